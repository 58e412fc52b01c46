// Package transport defines the contract the client expects from the
// external chat backend. The backend owns persistence, fan-out and channel
// membership; this side only consumes its streams.
package transport

import (
	"context"

	"github.com/pitlane/leaguechat/internal/chat"
	"github.com/pitlane/leaguechat/internal/presence"
)

// Draft is an outgoing message before server confirmation.
type Draft struct {
	TempID string
	Text   string
	User   chat.User
}

// SendResult reports how the backend will confirm a send. StatusSent means
// the message was confirmed synchronously; StatusSending means the
// confirmation arrives later as an echo on the message stream.
type SendResult struct {
	MessageID string
	Status    chat.Status
}

// Unsubscribe tears down a stream subscription.
type Unsubscribe func()

// Transport is the client's view of the chat backend.
//
// Message stream contract: the first onBatch callback is the full initial
// snapshot; every subsequent callback is an incremental arrival whose first
// element is the logical new message.
type Transport interface {
	SubscribeMessages(ctx context.Context, channelKey string, onBatch func([]chat.ChatMessage)) (Unsubscribe, error)
	SubscribePresence(ctx context.Context, channelKey string, onUpdate func(presence.Event)) (Unsubscribe, error)
	OnlineUsers(ctx context.Context, channelKey string) ([]presence.Entry, error)
	SendMessage(ctx context.Context, channelKey string, draft Draft) (SendResult, error)
	// SetPresence and MarkRead are best-effort; callers log and move on.
	SetPresence(ctx context.Context, userID string, online bool) error
	MarkRead(ctx context.Context, channelKey string) error
}
