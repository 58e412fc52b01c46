package chat

import (
	"testing"
	"time"
)

func TestNormalizeServerTimestamp(t *testing.T) {
	want := time.Unix(1700000000, 500)
	m := Normalize(ChatMessage{
		ID:        "m1",
		Text:      "hi",
		User:      User{ID: "u1", Name: "Alice"},
		CreatedAt: ServerTime(1700000000, 500),
	})
	if !m.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", m.CreatedAt, want)
	}
}

func TestNormalizeISOTimestamp(t *testing.T) {
	m := Normalize(ChatMessage{
		ID:        "m1",
		CreatedAt: ISOTime("2025-03-09T14:00:00Z"),
	})
	want := time.Date(2025, 3, 9, 14, 0, 0, 0, time.UTC)
	if !m.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", m.CreatedAt, want)
	}
}

func TestNormalizeMalformedTimestampFallsBackToNow(t *testing.T) {
	before := time.Now()
	tests := []struct {
		name string
		tv   TimeValue
	}{
		{"garbage iso string", ISOTime("not-a-date")},
		{"zero server seconds", ServerTime(0, 0)},
		{"zero instant", InstantTime(time.Time{})},
		{"absent", TimeValue{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Normalize(ChatMessage{ID: "m1", CreatedAt: tt.tv})
			if m.CreatedAt.Before(before) || m.CreatedAt.After(time.Now().Add(time.Second)) {
				t.Errorf("CreatedAt = %v, want a current-time instant", m.CreatedAt)
			}
		})
	}
}

func TestNormalizeUnknownSender(t *testing.T) {
	m := Normalize(ChatMessage{ID: "m1", User: User{ID: "u1"}})
	if m.User.Name != UnknownSender {
		t.Errorf("User.Name = %q, want %q", m.User.Name, UnknownSender)
	}
}

func TestNormalizeUsesTempIDWhilePending(t *testing.T) {
	m := Normalize(ChatMessage{TempID: "tmp1", Status: StatusSending})
	if m.ID != "tmp1" {
		t.Errorf("ID = %q, want tmp1", m.ID)
	}
	if m.Status != StatusSending {
		t.Errorf("Status = %q, want sending", m.Status)
	}
}

func TestNormalizePassesOptionalFieldsThrough(t *testing.T) {
	m := Normalize(ChatMessage{ID: "m1", Image: "https://cdn/x.png", System: true})
	if m.Image != "https://cdn/x.png" {
		t.Errorf("Image = %q, want pass-through", m.Image)
	}
	if !m.System {
		t.Error("System = false, want true")
	}
	// Absent status stays absent, it must not be forced to a zero state.
	if m.Status != "" {
		t.Errorf("Status = %q, want empty for server message", m.Status)
	}
}
