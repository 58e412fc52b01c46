// Package ws implements the chat backend transport over a websocket
// connection carrying JSON frames.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pitlane/leaguechat/internal/chat"
	"github.com/pitlane/leaguechat/internal/presence"
	"github.com/pitlane/leaguechat/internal/status"
	"github.com/pitlane/leaguechat/internal/transport"
)

const (
	defaultCallTimeout = 5 * time.Second
	maxBackoff         = 30 * time.Second
	// degradeAfter failed redial attempts we stop pretending a reconnect
	// is imminent and let the UI fall back to the cache.
	degradeAfter = 3
)

// Config holds websocket client settings.
type Config struct {
	URL         string
	AuthToken   string
	CallTimeout time.Duration
}

// frame is the wire envelope. Client-bound types: messages, presence,
// reply (correlated), error. Server-bound types: subscribe, unsubscribe,
// subscribe_presence, unsubscribe_presence, send, online_users,
// set_presence, mark_read.
type frame struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	CID       string          `json:"cid,omitempty"`
	Messages  []wireMessage   `json:"messages,omitempty"`
	Presence  json.RawMessage `json:"presence,omitempty"`
	Users     []wireEntry     `json:"users,omitempty"`
	Draft     *wireDraft      `json:"draft,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Online    bool            `json:"online"`
	Status    string          `json:"status,omitempty"`
	MessageID string          `json:"messageId,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Client is a transport.Transport over a single websocket connection. One
// read loop dispatches inbound frames to stream subscribers and correlated
// replies; the connection state machine is driven from connect/reconnect
// events.
type Client struct {
	cfg     Config
	machine *status.Machine
	logger  *zap.Logger

	writeMu sync.Mutex // gorilla allows a single concurrent writer

	mu       sync.Mutex
	conn     *websocket.Conn
	msgSubs  map[string]func([]chat.ChatMessage)
	presSubs map[string]func(presence.Event)
	pending  map[string]chan frame
	closed   bool
}

var _ transport.Transport = (*Client)(nil)

// NewClient creates an unconnected client.
func NewClient(cfg Config, machine *status.Machine, logger *zap.Logger) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	return &Client{
		cfg:      cfg,
		machine:  machine,
		logger:   logger,
		msgSubs:  make(map[string]func([]chat.ChatMessage)),
		presSubs: make(map[string]func(presence.Event)),
		pending:  make(map[string]chan frame),
	}
}

// Dial connects to the backend and starts the read loop.
func (c *Client) Dial(ctx context.Context) error {
	c.transition(status.Connecting)

	conn, err := c.dial(ctx)
	if err != nil {
		// Keep redialing in the background; the UI serves the cache
		// while the machine sits in Reconnecting, then Degraded.
		go c.reconnect()
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.transition(status.Ready)
	go c.readLoop(conn)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.cfg.AuthToken != "" {
		header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, header)
	return conn, err
}

// Close tears the connection down for good.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return
			}
			c.logger.Warn("connection lost", zap.Error(err))
			c.reconnect()
			return
		}
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f frame) {
	if f.CID != "" {
		c.mu.Lock()
		ch, ok := c.pending[f.CID]
		delete(c.pending, f.CID)
		c.mu.Unlock()
		if ok {
			ch <- f
		}
		return
	}

	switch f.Type {
	case "messages":
		c.mu.Lock()
		handler := c.msgSubs[f.Channel]
		c.mu.Unlock()
		if handler != nil {
			handler(decodeMessages(f.Messages))
		}
	case "presence":
		c.mu.Lock()
		handler := c.presSubs[f.Channel]
		c.mu.Unlock()
		if handler == nil {
			return
		}
		ev, err := decodePresence(f.Presence)
		if err != nil {
			c.logger.Warn("malformed presence payload", zap.Error(err), zap.String("channel", f.Channel))
			return
		}
		handler(ev)
	case "error":
		c.logger.Warn("server error frame", zap.String("error", f.Error), zap.String("channel", f.Channel))
	}
}

// reconnect redials with exponential backoff and replays subscriptions.
// After degradeAfter failed attempts the machine drops to Degraded while
// dialing continues.
func (c *Client) reconnect() {
	c.transition(status.Reconnecting)

	backoff := time.Second
	for attempt := 1; ; attempt++ {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		conn, err := c.dial(ctx)
		cancel()
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			channels := make([]string, 0, len(c.msgSubs))
			for key := range c.msgSubs {
				channels = append(channels, key)
			}
			presChannels := make([]string, 0, len(c.presSubs))
			for key := range c.presSubs {
				presChannels = append(presChannels, key)
			}
			c.mu.Unlock()

			c.transition(status.Connecting)
			for _, key := range channels {
				_ = c.write(frame{Type: "subscribe", Channel: key})
			}
			for _, key := range presChannels {
				_ = c.write(frame{Type: "subscribe_presence", Channel: key})
			}
			c.transition(status.Ready)
			c.logger.Info("reconnected", zap.Int("attempt", attempt))
			go c.readLoop(conn)
			return
		}

		c.logger.Warn("redial failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == degradeAfter {
			c.transition(status.Degraded)
		}
		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

func (c *Client) transition(to status.State) {
	if c.machine == nil {
		return
	}
	if err := c.machine.Transition(to); err != nil {
		c.logger.Warn("state transition rejected", zap.Error(err))
	}
}

func (c *Client) write(f frame) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(f)
}

// call performs a correlated request/reply round trip.
func (c *Client) call(ctx context.Context, f frame) (frame, error) {
	f.CID = uuid.New().String()
	ch := make(chan frame, 1)

	c.mu.Lock()
	c.pending[f.CID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, f.CID)
		c.mu.Unlock()
	}()

	if err := c.write(f); err != nil {
		return frame{}, err
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return frame{}, fmt.Errorf("server: %s", resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		return frame{}, ctx.Err()
	case <-time.After(c.cfg.CallTimeout):
		return frame{}, fmt.Errorf("%s: reply timeout", f.Type)
	}
}

// SubscribeMessages opens the message stream for a channel. The server
// replies with a full snapshot frame first, then one frame per arrival.
func (c *Client) SubscribeMessages(_ context.Context, channelKey string, onBatch func([]chat.ChatMessage)) (transport.Unsubscribe, error) {
	c.mu.Lock()
	c.msgSubs[channelKey] = onBatch
	c.mu.Unlock()

	if err := c.write(frame{Type: "subscribe", Channel: channelKey}); err != nil {
		c.mu.Lock()
		delete(c.msgSubs, channelKey)
		c.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: %w", channelKey, err)
	}

	return func() {
		c.mu.Lock()
		delete(c.msgSubs, channelKey)
		c.mu.Unlock()
		_ = c.write(frame{Type: "unsubscribe", Channel: channelKey})
	}, nil
}

// SubscribePresence opens the presence stream for a channel.
func (c *Client) SubscribePresence(_ context.Context, channelKey string, onUpdate func(presence.Event)) (transport.Unsubscribe, error) {
	c.mu.Lock()
	c.presSubs[channelKey] = onUpdate
	c.mu.Unlock()

	if err := c.write(frame{Type: "subscribe_presence", Channel: channelKey}); err != nil {
		c.mu.Lock()
		delete(c.presSubs, channelKey)
		c.mu.Unlock()
		return nil, fmt.Errorf("subscribe presence %s: %w", channelKey, err)
	}

	return func() {
		c.mu.Lock()
		delete(c.presSubs, channelKey)
		c.mu.Unlock()
		_ = c.write(frame{Type: "unsubscribe_presence", Channel: channelKey})
	}, nil
}

// OnlineUsers fetches an on-demand roster snapshot.
func (c *Client) OnlineUsers(ctx context.Context, channelKey string) ([]presence.Entry, error) {
	resp, err := c.call(ctx, frame{Type: "online_users", Channel: channelKey})
	if err != nil {
		return nil, fmt.Errorf("online users: %w", err)
	}
	return decodeEntries(resp.Users), nil
}

// SendMessage submits a draft and reports how confirmation will arrive.
func (c *Client) SendMessage(ctx context.Context, channelKey string, draft transport.Draft) (transport.SendResult, error) {
	resp, err := c.call(ctx, frame{
		Type:    "send",
		Channel: channelKey,
		Draft:   encodeDraft(draft.User, draft.TempID, draft.Text),
	})
	if err != nil {
		return transport.SendResult{}, fmt.Errorf("send: %w", err)
	}
	st := chat.Status(resp.Status)
	if st != chat.StatusSent {
		st = chat.StatusSending
	}
	return transport.SendResult{MessageID: resp.MessageID, Status: st}, nil
}

// SetPresence is fire-and-forget.
func (c *Client) SetPresence(_ context.Context, userID string, online bool) error {
	return c.write(frame{Type: "set_presence", UserID: userID, Online: online})
}

// MarkRead is fire-and-forget.
func (c *Client) MarkRead(_ context.Context, channelKey string) error {
	return c.write(frame{Type: "mark_read", Channel: channelKey})
}
