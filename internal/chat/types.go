package chat

import "time"

// Status tracks the delivery state of a locally-originated message.
// Server-originated messages carry no status.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// User identifies a message sender or channel participant.
type User struct {
	ID     string
	Name   string
	Email  string
	Avatar string
}

// TimeKind discriminates the wire representations of a message timestamp.
type TimeKind int

const (
	// TimeNone means no timestamp was present on the wire.
	TimeNone TimeKind = iota
	// TimeServer is a server-timestamp object (unix seconds + nanos).
	TimeServer
	// TimeISO is an RFC3339 string.
	TimeISO
	// TimeInstant is an already-concrete instant.
	TimeInstant
)

// TimeValue is the tagged union of timestamp shapes the backend emits.
// The transport decodes into this; Normalize collapses it to a time.Time.
type TimeValue struct {
	Kind    TimeKind
	Seconds int64
	Nanos   int64
	ISO     string
	Instant time.Time
}

// ServerTime builds a TimeValue from a server-timestamp object.
func ServerTime(seconds, nanos int64) TimeValue {
	return TimeValue{Kind: TimeServer, Seconds: seconds, Nanos: nanos}
}

// ISOTime builds a TimeValue from an RFC3339 string.
func ISOTime(s string) TimeValue {
	return TimeValue{Kind: TimeISO, ISO: s}
}

// InstantTime builds a TimeValue from a concrete instant.
func InstantTime(t time.Time) TimeValue {
	return TimeValue{Kind: TimeInstant, Instant: t}
}

// ChatMessage is the transport-level message record as the backend sends it.
type ChatMessage struct {
	ID        string // server-assigned once persisted; empty for pending sends
	TempID    string // client correlation id for an optimistic message
	Text      string
	User      User
	CreatedAt TimeValue
	Status    Status // only meaningful for locally-originated messages
	Image     string
	System    bool
}

// DisplayMessage is the normalized, render-ready record owned by the
// reconciler. CreatedAt is always a concrete, sortable instant.
type DisplayMessage struct {
	ID        string // server id, or the temp id while pending
	Text      string
	User      User
	CreatedAt time.Time
	Status    Status
	Image     string
	System    bool
}
