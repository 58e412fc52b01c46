// Package channel owns the lifecycle of one active chat view: the two
// backend subscriptions, the message reconciler, the presence tracker and
// the optimistic send pipeline.
package channel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pitlane/leaguechat/internal/bus"
	"github.com/pitlane/leaguechat/internal/chat"
	"github.com/pitlane/leaguechat/internal/presence"
	"github.com/pitlane/leaguechat/internal/status"
	"github.com/pitlane/leaguechat/internal/transport"
)

// MessagesPayload is published on "message.arrived" and "message.local".
type MessagesPayload struct {
	Channel  string
	Messages []chat.DisplayMessage
}

// AckPayload is published on "message.send_ack" whenever a temp id is
// resolved to a server id, by a synchronous confirmation or a stream echo.
type AckPayload struct {
	Channel   string
	TempID    string
	MessageID string
}

// SendFailure is published on "message.send_failed". Draft carries the
// original text so the composer can restore it.
type SendFailure struct {
	Channel string
	TempID  string
	Draft   string
	Reason  string
}

// Features toggles the optional backend signals mirrored from product
// configuration. Both default on.
type Features struct {
	Presence     bool
	ReadReceipts bool
}

// Session is the active view on one channel. Open starts the message and
// presence subscriptions; Close tears both down and marks self offline.
// A generation counter guards against in-flight callbacks mutating state
// after teardown.
type Session struct {
	channelKey  string
	self        chat.User
	transport   transport.Transport
	machine     *status.Machine
	bus         *bus.Bus
	logger      *zap.Logger
	sendTimeout time.Duration
	features    Features

	rec     *chat.Reconciler
	tracker *presence.Tracker

	mu        sync.Mutex
	gen       uint64
	unsubMsgs transport.Unsubscribe
	unsubPres transport.Unsubscribe
}

// NewSession creates a session for the given channel. machine may be nil.
func NewSession(channelKey string, self chat.User, tr transport.Transport, machine *status.Machine, b *bus.Bus, logger *zap.Logger, sendTimeout time.Duration) *Session {
	return &Session{
		channelKey:  channelKey,
		self:        self,
		transport:   tr,
		machine:     machine,
		features:    Features{Presence: true, ReadReceipts: true},
		bus:         b,
		logger:      logger,
		sendTimeout: sendTimeout,
		rec:         chat.NewReconciler(),
		tracker:     presence.NewTracker(),
	}
}

// SetFeatures overrides the default feature toggles. Call before Open.
func (s *Session) SetFeatures(f Features) {
	s.features = f
}

// Open activates the view: seeds self into the presence set, opens both
// stream subscriptions and fires the best-effort read receipt.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.tracker.Activate(s.self.ID, s.self.Name, s.self.Email)

	unsubMsgs, err := s.transport.SubscribeMessages(ctx, s.channelKey, func(batch []chat.ChatMessage) {
		if !s.alive(gen) {
			return
		}
		merge, merged := s.rec.Ingest(batch)
		s.publish("message.arrived", MessagesPayload{
			Channel:  s.channelKey,
			Messages: chat.NormalizeBatch(batch),
		})
		// A deferred confirmation resolved an optimistic entry; announce
		// it so the history cache drops the temp row too.
		if merged {
			s.publish("message.send_ack", AckPayload{
				Channel:   s.channelKey,
				TempID:    merge.TempID,
				MessageID: merge.ServerID,
			})
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe messages: %w", err)
	}

	var unsubPres transport.Unsubscribe
	if s.features.Presence {
		unsubPres, err = s.transport.SubscribePresence(ctx, s.channelKey, func(ev presence.Event) {
			if !s.alive(gen) {
				return
			}
			s.tracker.ApplyEvent(ev)
			s.publish("presence.changed", s.channelKey)
		})
		if err != nil {
			unsubMsgs()
			return fmt.Errorf("subscribe presence: %w", err)
		}
	}

	s.mu.Lock()
	s.unsubMsgs = unsubMsgs
	s.unsubPres = unsubPres
	s.mu.Unlock()

	if s.features.Presence {
		if err := s.transport.SetPresence(ctx, s.self.ID, true); err != nil {
			s.logger.Warn("presence online notify failed", zap.Error(err))
		}
	}
	if s.features.ReadReceipts {
		if err := s.transport.MarkRead(ctx, s.channelKey); err != nil {
			s.logger.Warn("mark read failed", zap.Error(err))
		}
	}

	return nil
}

// Send runs the optimistic send pipeline for a draft. The caller clears its
// input before calling; on error it restores the draft (also delivered via
// the "message.send_failed" event for other consumers).
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	tempID := uuid.New().String()
	st := chat.StatusSending
	if s.machine != nil && s.machine.Current() != status.Ready {
		st = chat.StatusQueued
	}

	optimistic := chat.DisplayMessage{
		ID:        tempID,
		Text:      text,
		User:      s.self,
		CreatedAt: time.Now(),
		Status:    st,
	}
	s.rec.Append(optimistic)
	s.publish("message.local", MessagesPayload{
		Channel:  s.channelKey,
		Messages: []chat.DisplayMessage{optimistic},
	})

	if s.sendTimeout > 0 {
		go s.watchConfirmation(gen, tempID, text)
	}

	result, err := s.transport.SendMessage(ctx, s.channelKey, transport.Draft{
		TempID: tempID,
		Text:   text,
		User:   s.self,
	})
	if err != nil {
		s.logger.Error("send failed", zap.Error(err), zap.String("temp_id", tempID))
		if s.alive(gen) {
			s.rec.MarkStatus(tempID, chat.StatusFailed)
			s.publish("message.send_failed", SendFailure{
				Channel: s.channelKey,
				TempID:  tempID,
				Draft:   text,
				Reason:  err.Error(),
			})
		}
		return err
	}

	if !s.alive(gen) {
		return nil
	}

	switch result.Status {
	case chat.StatusSent:
		// Confirmed synchronously: promote the optimistic entry.
		s.rec.Promote(tempID, result.MessageID)
		s.publish("message.send_ack", AckPayload{
			Channel:   s.channelKey,
			TempID:    tempID,
			MessageID: result.MessageID,
		})
	default:
		// Confirmation arrives later as an echo on the message stream;
		// the reconciler's echo window folds it onto this entry.
	}

	// Send activity doubles as a liveness signal.
	s.refreshPresence(ctx, gen)
	return nil
}

// watchConfirmation fails an optimistic entry that was never confirmed
// within the send timeout, so a message cannot sit in "queued" forever.
func (s *Session) watchConfirmation(gen uint64, tempID, draft string) {
	timer := time.NewTimer(s.sendTimeout)
	defer timer.Stop()
	<-timer.C

	if !s.alive(gen) {
		return
	}
	st, ok := s.rec.StatusOf(tempID)
	if !ok || (st != chat.StatusSending && st != chat.StatusQueued) {
		return
	}
	s.logger.Warn("send confirmation timed out", zap.String("temp_id", tempID))
	s.rec.MarkStatus(tempID, chat.StatusFailed)
	s.publish("message.send_failed", SendFailure{
		Channel: s.channelKey,
		TempID:  tempID,
		Draft:   draft,
		Reason:  "confirmation timeout",
	})
}

// RefreshPresence pulls an authoritative roster snapshot on demand.
func (s *Session) RefreshPresence(ctx context.Context) {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	s.refreshPresence(ctx, gen)
}

// refreshPresence failures are background noise, never surfaced.
func (s *Session) refreshPresence(ctx context.Context, gen uint64) {
	if !s.features.Presence {
		return
	}
	users, err := s.transport.OnlineUsers(ctx, s.channelKey)
	if err != nil {
		s.logger.Warn("presence refresh failed", zap.Error(err))
		return
	}
	if !s.alive(gen) {
		return
	}
	s.tracker.Refresh(users)
	s.publish("presence.changed", s.channelKey)
}

// Close deactivates the view: bumps the generation so late callbacks are
// dropped, unsubscribes both streams and notifies the backend that self is
// offline. The offline notify is best-effort and never blocks teardown.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	unsubMsgs := s.unsubMsgs
	unsubPres := s.unsubPres
	s.unsubMsgs = nil
	s.unsubPres = nil
	s.mu.Unlock()

	if unsubMsgs != nil {
		unsubMsgs()
	}
	if unsubPres != nil {
		unsubPres()
	}

	if s.features.Presence {
		if err := s.transport.SetPresence(ctx, s.self.ID, false); err != nil {
			s.logger.Warn("presence offline notify failed", zap.Error(err))
		}
	}

	s.tracker.Deactivate()
	s.rec.Reset()
}

// alive reports whether gen is still the current view generation.
func (s *Session) alive(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

func (s *Session) publish(kind string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

// Channel returns the channel key this session is bound to.
func (s *Session) Channel() string { return s.channelKey }

// Self returns the local user.
func (s *Session) Self() chat.User { return s.self }

// Messages returns the reconciled, ordered message list.
func (s *Session) Messages() []chat.DisplayMessage { return s.rec.Messages() }

// Roster returns the online participants sorted by name.
func (s *Session) Roster() []presence.Entry { return s.tracker.Online() }
