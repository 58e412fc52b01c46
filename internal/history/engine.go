// Package history write-behinds reconciled messages into the local
// scrollback cache. It subscribes to "message.*" events on the bus and is
// entirely passive: the chat core never waits on it.
package history

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pitlane/leaguechat/internal/bus"
	"github.com/pitlane/leaguechat/internal/channel"
	"github.com/pitlane/leaguechat/internal/chat"
	"github.com/pitlane/leaguechat/internal/store"
)

// CachedPayload is published on "history.cached" after a batch lands in
// the local store.
type CachedPayload struct {
	Channel string
	Count   int
}

// Engine caches message events into the store (idempotent upserts).
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewEngine creates a new history engine. A nil db disables caching; Start
// becomes a no-op.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{db: db, bus: b, logger: logger}
}

// Start subscribes to message events on the bus.
func (e *Engine) Start(ctx context.Context) {
	if e.db == nil {
		return
	}
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("message.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case "message.arrived", "message.local":
		payload, ok := evt.Payload.(channel.MessagesPayload)
		if !ok {
			return
		}
		e.cacheMessages(payload)
	case "message.send_ack":
		ack, ok := evt.Payload.(channel.AckPayload)
		if !ok {
			return
		}
		if err := e.db.PromoteMessage(ack.Channel, ack.TempID, ack.MessageID); err != nil {
			e.logger.Error("failed to promote cached message", zap.Error(err), zap.String("temp_id", ack.TempID))
		}
	case "message.send_failed":
		failure, ok := evt.Payload.(channel.SendFailure)
		if !ok {
			return
		}
		if err := e.db.MarkMessageStatus(failure.Channel, failure.TempID, chat.StatusFailed); err != nil {
			e.logger.Error("failed to mark cached message failed", zap.Error(err), zap.String("temp_id", failure.TempID))
		}
	}
}

func (e *Engine) cacheMessages(payload channel.MessagesPayload) {
	cached := 0
	for _, m := range payload.Messages {
		if err := e.db.UpsertMessage(payload.Channel, m); err != nil {
			e.logger.Error("failed to cache message", zap.Error(err), zap.String("msg_id", m.ID))
			continue
		}
		if err := e.db.TouchChannel(payload.Channel, m.CreatedAt, truncate(m.Text, 100)); err != nil {
			e.logger.Error("failed to touch channel", zap.Error(err), zap.String("channel", payload.Channel))
		}
		cached++
	}
	if cached > 0 {
		e.bus.Publish(bus.Event{
			Kind:      "history.cached",
			Timestamp: time.Now(),
			Payload:   CachedPayload{Channel: payload.Channel, Count: cached},
		})
	}
}

// truncate shortens s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
