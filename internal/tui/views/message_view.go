package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/pitlane/leaguechat/internal/chat"
)

// MessageView displays the reconciled message list for the channel.
type MessageView struct {
	*tview.TextView
}

// NewMessageView creates a new message view.
func NewMessageView(channelKey string) *MessageView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(fmt.Sprintf(" #%s ", channelKey))

	return &MessageView{TextView: tv}
}

// Update re-renders the view from the ordered message list.
func (mv *MessageView) Update(msgs []chat.DisplayMessage, selfID string) {
	mv.Clear()

	for _, m := range msgs {
		if m.System {
			_, _ = fmt.Fprintf(mv, "[::d]-- %s --[-:-:-]\n", tview.Escape(m.Text))
			continue
		}

		sender := m.User.Name
		if m.User.ID == selfID {
			sender = "You"
		}

		line := fmt.Sprintf("[::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s\n\n",
			tview.Escape(sender),
			m.CreatedAt.Format("15:04"),
			statusTag(m.Status),
			tview.Escape(m.Text))
		_, _ = fmt.Fprint(mv, line)
	}

	mv.ScrollToEnd()
}

// ShowLoadError replaces the list with a failed-to-load notice.
func (mv *MessageView) ShowLoadError(reason string) {
	mv.Clear()
	_, _ = fmt.Fprintf(mv, "[red]failed to load messages[-]\n[::d]%s[-:-:-]\n", tview.Escape(reason))
}

func statusTag(st chat.Status) string {
	switch st {
	case chat.StatusQueued:
		return " [::d](queued)[-:-:-]"
	case chat.StatusSending:
		return " [::d](sending)[-:-:-]"
	case chat.StatusFailed:
		return " [red](failed)[-]"
	default:
		return ""
	}
}
