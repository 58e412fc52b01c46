// Package tui is the terminal front end: one channel view with message
// list, composer, online roster and status bar.
package tui

import (
	"context"
	"time"

	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/pitlane/leaguechat/internal/bus"
	"github.com/pitlane/leaguechat/internal/channel"
	"github.com/pitlane/leaguechat/internal/status"
	"github.com/pitlane/leaguechat/internal/store"
	"github.com/pitlane/leaguechat/internal/tui/model"
	"github.com/pitlane/leaguechat/internal/tui/views"
)

// App is the TUI application shell around one channel session.
type App struct {
	app     *tview.Application
	pages   *tview.Pages
	session *channel.Session
	machine *status.Machine
	bus     *bus.Bus
	db      *store.DB // nil when the cache is disabled
	logger  *zap.Logger
	notice  model.Notice

	msgView   *views.MessageView
	roster    *views.Roster
	composer  *views.Composer
	statusBar *views.StatusBar

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application for an already-constructed session.
func NewApp(session *channel.Session, machine *status.Machine, b *bus.Bus, db *store.DB, logger *zap.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		session:   session,
		machine:   machine,
		bus:       b,
		db:        db,
		logger:    logger,
		msgView:   views.NewMessageView(session.Channel()),
		roster:    views.NewRoster(),
		composer:  views.NewComposer(),
		statusBar: views.NewStatusBar(session.Channel()),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.composer.SetOnSend(a.submitDraft)
	a.setupLayout()

	return a
}

func (a *App) setupLayout() {
	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.msgView, 0, 1, false).
		AddItem(a.composer, 1, 0, true)

	body := tview.NewFlex().
		AddItem(left, 0, 1, true).
		AddItem(a.roster, 24, 0, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.pages.AddPage("chat", root, true, true)
	a.app.SetRoot(a.pages, true)
	a.app.SetFocus(a.composer.InputField)
}

// Run opens the session and blocks until the UI exits.
func (a *App) Run() error {
	defer a.cancel()

	// Paint cached scrollback immediately so the view is not blank while
	// the snapshot loads (or while the backend is unreachable).
	if a.db != nil {
		if cached, err := a.db.RecentMessages(a.session.Channel(), 100); err == nil && len(cached) > 0 {
			a.msgView.Update(cached, a.session.Self().ID)
		}
	}
	a.statusBar.SetState(a.machine.Current())
	a.roster.Update(a.session.Roster(), a.session.Self().ID)

	if err := a.session.Open(a.ctx); err != nil {
		a.logger.Error("failed to open channel", zap.Error(err))
		a.msgView.ShowLoadError(err.Error())
	}

	go a.eventLoop()

	err := a.app.Run()
	a.session.Close(context.Background())
	return err
}

// Stop terminates the UI from outside.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// eventLoop translates bus events into UI refreshes.
func (a *App) eventLoop() {
	ch, unsub := a.bus.Subscribe("", 64)
	defer unsub()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ch:
			a.app.QueueUpdateDraw(a.refresh)
		}
	}
}

func (a *App) refresh() {
	selfID := a.session.Self().ID
	a.msgView.Update(a.session.Messages(), selfID)
	a.roster.Update(a.session.Roster(), selfID)
	a.statusBar.SetState(a.machine.Current())
	a.statusBar.SetNotice(a.notice.Current())
}

// submitDraft runs the send pipeline off the UI thread. The composer has
// already cleared itself; on failure the draft is restored and a blocking
// alert shown.
func (a *App) submitDraft(text string) {
	go func() {
		if err := a.session.Send(a.ctx, text); err != nil {
			a.notice.Post(model.LevelError, "Send failed", 5*time.Second)
			a.app.QueueUpdateDraw(func() {
				a.composer.RestoreDraft(text)
				a.showAlert("Send failed: " + err.Error())
				a.refresh()
			})
			return
		}
		a.app.QueueUpdateDraw(a.refresh)
	}()
}

// showAlert displays a dismissible modal over the chat view.
func (a *App) showAlert(text string) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(int, string) {
			a.notice.Clear()
			a.pages.RemovePage("alert")
			a.app.SetFocus(a.composer.InputField)
		})
	a.pages.AddPage("alert", modal, true, true)
	a.app.SetFocus(modal)
}
