// Package presence tracks which participants are currently online in a
// channel, fed by a stream of join/leave deltas and full roster snapshots.
package presence

import (
	"sort"
	"sync"
	"time"
)

// SelfFallbackName is shown for the local user when neither a display name
// nor an email is configured.
const SelfFallbackName = "You"

// Entry is one online participant. Entries held by the tracker are online
// by definition; IsOnline is carried for wire deltas where false means leave.
type Entry struct {
	ID       string
	Name     string
	IsOnline bool
	LastSeen time.Time
}

// Event is a polymorphic presence update: a full roster snapshot (Roster
// non-nil, possibly empty) or a single join/leave delta.
type Event struct {
	Roster []Entry
	Delta  *Entry
}

// Tracker maintains the online set for one channel. The local user is
// seeded on Activate and survives every merge, so the acting user never
// sees themselves as absent. All methods are safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	active  bool
	self    Entry
	entries map[string]Entry
}

// NewTracker creates an inactive tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]Entry)}
}

// Activate seeds the set with the local user before any network
// confirmation. Display name falls back name -> email -> "You".
func (t *Tracker) Activate(id, name, email string) {
	display := name
	if display == "" {
		display = email
	}
	if display == "" {
		display = SelfFallbackName
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = true
	t.self = Entry{ID: id, Name: display, IsOnline: true, LastSeen: time.Now()}
	t.entries = map[string]Entry{id: t.self}
}

// ApplyEvent merges a presence stream update. Full rosters replace the set
// but preserve the local entry when the server omits it. Deltas are
// idempotent joins and leaves.
func (t *Tracker) ApplyEvent(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}

	switch {
	case ev.Roster != nil:
		t.mergeRoster(ev.Roster)
	case ev.Delta != nil:
		d := *ev.Delta
		if d.IsOnline {
			if _, ok := t.entries[d.ID]; !ok {
				t.entries[d.ID] = d
			}
		} else {
			if d.ID != t.self.ID {
				delete(t.entries, d.ID)
			}
		}
	}
}

// Refresh reconciles an on-demand full snapshot, e.g. after a send, using
// the same preserve-self merge as a streamed roster.
func (t *Tracker) Refresh(roster []Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	t.mergeRoster(roster)
}

// mergeRoster replaces the set with the server roster, re-adding the local
// entry if it is missing. Caller holds t.mu.
func (t *Tracker) mergeRoster(roster []Entry) {
	next := make(map[string]Entry, len(roster)+1)
	for _, e := range roster {
		e.IsOnline = true
		next[e.ID] = e
	}
	if _, ok := next[t.self.ID]; !ok {
		next[t.self.ID] = t.self
	}
	t.entries = next
}

// Deactivate discards all local state. The caller is responsible for the
// best-effort offline notification to the backend.
func (t *Tracker) Deactivate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
	t.entries = make(map[string]Entry)
}

// Online returns the current set sorted by display name.
func (t *Tracker) Online() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Contains reports whether the given user id is currently online.
func (t *Tracker) Contains(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[id]
	return ok
}

// Count returns the number of online participants.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
