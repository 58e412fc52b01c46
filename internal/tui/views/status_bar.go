package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/pitlane/leaguechat/internal/status"
	"github.com/pitlane/leaguechat/internal/tui/model"
)

// StatusBar displays persistent channel/connection status.
type StatusBar struct {
	*tview.TextView
	channel     string
	state       status.State
	notice      string
	noticeLevel model.Level
}

// NewStatusBar creates a new status bar.
func NewStatusBar(channelKey string) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, channel: channelKey}
}

// SetState updates the connection state display.
func (sb *StatusBar) SetState(state status.State) {
	sb.state = state
	sb.render()
}

// SetNotice sets the transient message segment.
func (sb *StatusBar) SetNotice(msg string, level model.Level) {
	sb.notice = msg
	sb.noticeLevel = level
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	color := "green"
	switch sb.state {
	case status.Reconnecting, status.Degraded:
		color = "yellow"
	case status.Error:
		color = "red"
	}

	clock := time.Now().Format("15:04")

	line := fmt.Sprintf(" [::b]#%s[-:-:-] | [%s]%s[-] | %s", sb.channel, color, sb.state, clock)
	if sb.notice != "" {
		noticeColor := "yellow"
		if sb.noticeLevel == model.LevelError {
			noticeColor = "red"
		}
		line += fmt.Sprintf(" | [%s]%s[-]", noticeColor, sb.notice)
	}

	_, _ = fmt.Fprint(sb, line)
}
