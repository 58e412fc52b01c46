package ws

import (
	"encoding/json"
	"time"

	"github.com/pitlane/leaguechat/internal/chat"
	"github.com/pitlane/leaguechat/internal/presence"
)

// The backend is loose about timestamp encoding: Firestore-style
// {seconds, nanoseconds} objects, RFC3339 strings and epoch millis all
// occur. Decoding maps each shape onto the chat.TimeValue tagged union so
// type sniffing stays at this boundary.

type wireTimestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int64 `json:"nanoseconds"`
}

type wireUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

type wireMessage struct {
	ID        string          `json:"id"`
	TempID    string          `json:"tempId,omitempty"`
	Text      string          `json:"text"`
	User      wireUser        `json:"user"`
	CreatedAt json.RawMessage `json:"createdAt,omitempty"`
	Status    string          `json:"status,omitempty"`
	Image     string          `json:"image,omitempty"`
	System    bool            `json:"system,omitempty"`
}

type wireDraft struct {
	TempID string   `json:"tempId"`
	Text   string   `json:"text"`
	User   wireUser `json:"user"`
}

type wireEntry struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	IsOnline bool            `json:"isOnline"`
	LastSeen json.RawMessage `json:"lastSeen,omitempty"`
}

func decodeTime(raw json.RawMessage) chat.TimeValue {
	if len(raw) == 0 || string(raw) == "null" {
		return chat.TimeValue{}
	}
	switch raw[0] {
	case '{':
		var ts wireTimestamp
		if err := json.Unmarshal(raw, &ts); err == nil {
			return chat.ServerTime(ts.Seconds, ts.Nanos)
		}
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return chat.ISOTime(s)
		}
	default:
		var ms int64
		if err := json.Unmarshal(raw, &ms); err == nil && ms > 0 {
			return chat.InstantTime(time.UnixMilli(ms))
		}
	}
	return chat.TimeValue{}
}

func (w wireMessage) toChatMessage() chat.ChatMessage {
	return chat.ChatMessage{
		ID:     w.ID,
		TempID: w.TempID,
		Text:   w.Text,
		User: chat.User{
			ID:     w.User.ID,
			Name:   w.User.Name,
			Email:  w.User.Email,
			Avatar: w.User.Avatar,
		},
		CreatedAt: decodeTime(w.CreatedAt),
		Status:    chat.Status(w.Status),
		Image:     w.Image,
		System:    w.System,
	}
}

func decodeMessages(wire []wireMessage) []chat.ChatMessage {
	out := make([]chat.ChatMessage, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toChatMessage())
	}
	return out
}

func (w wireEntry) toEntry() presence.Entry {
	e := presence.Entry{ID: w.ID, Name: w.Name, IsOnline: w.IsOnline}
	if tv := decodeTime(w.LastSeen); tv.Kind != chat.TimeNone {
		e.LastSeen = tv.Resolve()
	}
	return e
}

func decodeEntries(wire []wireEntry) []presence.Entry {
	out := make([]presence.Entry, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toEntry())
	}
	return out
}

// decodePresence handles the polymorphic presence payload: a JSON array is
// a full roster snapshot, a single object is a join/leave delta.
func decodePresence(raw json.RawMessage) (presence.Event, error) {
	trimmed := string(raw)
	if len(trimmed) == 0 {
		return presence.Event{Roster: []presence.Entry{}}, nil
	}
	if raw[0] == '[' {
		var wire []wireEntry
		if err := json.Unmarshal(raw, &wire); err != nil {
			return presence.Event{}, err
		}
		return presence.Event{Roster: decodeEntries(wire)}, nil
	}
	var w wireEntry
	if err := json.Unmarshal(raw, &w); err != nil {
		return presence.Event{}, err
	}
	e := w.toEntry()
	return presence.Event{Delta: &e}, nil
}

func encodeDraft(u chat.User, tempID, text string) *wireDraft {
	return &wireDraft{
		TempID: tempID,
		Text:   text,
		User:   wireUser{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar},
	}
}
