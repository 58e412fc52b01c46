package chat

import "time"

// UnknownSender is displayed when a message arrives without a sender name.
const UnknownSender = "Unknown User"

// Normalize converts a transport record into a display record. It never
// fails: unparseable timestamps collapse to the current instant and an
// empty sender name falls back to UnknownSender.
func Normalize(raw ChatMessage) DisplayMessage {
	id := raw.ID
	if id == "" {
		id = raw.TempID
	}

	user := raw.User
	if user.Name == "" {
		user.Name = UnknownSender
	}

	return DisplayMessage{
		ID:        id,
		Text:      raw.Text,
		User:      user,
		CreatedAt: raw.CreatedAt.Resolve(),
		Status:    raw.Status,
		Image:     raw.Image,
		System:    raw.System,
	}
}

// NormalizeBatch normalizes a batch in order.
func NormalizeBatch(raw []ChatMessage) []DisplayMessage {
	out := make([]DisplayMessage, 0, len(raw))
	for _, m := range raw {
		out = append(out, Normalize(m))
	}
	return out
}

// Resolve collapses a TimeValue to a concrete instant. Priority follows the
// wire shape: server-timestamp object, then RFC3339 string, then concrete
// instant. Anything missing or invalid resolves to the current time so the
// result is always renderable and sortable.
func (tv TimeValue) Resolve() time.Time {
	var t time.Time
	switch tv.Kind {
	case TimeServer:
		if tv.Seconds > 0 {
			t = time.Unix(tv.Seconds, tv.Nanos)
		}
	case TimeISO:
		parsed, err := time.Parse(time.RFC3339, tv.ISO)
		if err == nil {
			t = parsed
		}
	case TimeInstant:
		t = tv.Instant
	}
	if t.IsZero() {
		return time.Now()
	}
	return t
}
