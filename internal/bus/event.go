package bus

import "time"

// Event is a domain event published in-process. Kinds are dot-namespaced
// ("message.arrived", "presence.changed", "conn.status_changed") and
// subscribers filter by prefix.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
