package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/pitlane/leaguechat/internal/presence"
)

// Roster shows who is currently online in the channel.
type Roster struct {
	*tview.TextView
}

// NewRoster creates a new roster sidebar.
func NewRoster() *Roster {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true).SetTitle(" Online ")

	return &Roster{TextView: tv}
}

// Update re-renders the online list.
func (r *Roster) Update(entries []presence.Entry, selfID string) {
	r.Clear()
	r.SetTitle(fmt.Sprintf(" Online (%d) ", len(entries)))

	for _, e := range entries {
		name := tview.Escape(e.Name)
		if e.ID == selfID {
			_, _ = fmt.Fprintf(r, "[green]*[-] [::b]%s[-:-:-]\n", name)
			continue
		}
		_, _ = fmt.Fprintf(r, "[green]*[-] %s\n", name)
	}
}
