package chat

import (
	"sort"
	"sync"
	"time"
)

// EchoWindow is how far apart an optimistic message and its server echo may
// be timestamped and still be considered the same message.
const EchoWindow = 5 * time.Second

// Reconciler owns the ordered message list for one channel. It merges the
// initial snapshot with live incremental arrivals and folds server echoes
// back onto optimistic local sends. All methods are safe for concurrent use.
type Reconciler struct {
	mu       sync.Mutex
	messages []DisplayMessage
	loaded   bool
}

// NewReconciler creates an empty reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Merge reports an echo fold performed by Apply: the optimistic entry that
// was replaced and the server id that superseded it.
type Merge struct {
	TempID   string
	ServerID string
}

// Ingest routes a transport callback: the first batch of a subscription is
// the authoritative snapshot, everything after it is incremental. Reports
// the echo merge, if the arrival caused one.
func (r *Reconciler) Ingest(batch []ChatMessage) (Merge, bool) {
	r.mu.Lock()
	loaded := r.loaded
	r.mu.Unlock()
	if !loaded {
		r.LoadInitial(batch)
		return Merge{}, false
	}
	return r.Apply(batch)
}

// LoadInitial normalizes the snapshot, sorts it ascending by CreatedAt and
// replaces the whole state.
func (r *Reconciler) LoadInitial(batch []ChatMessage) {
	msgs := NormalizeBatch(batch)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = msgs
	r.loaded = true
}

// Apply merges an incremental arrival. The first element of the batch is the
// logical new message:
//
//  1. if its id is already present the delivery is a duplicate and ignored;
//  2. if an optimistic entry (status sending or queued, so not yet matched
//     by an earlier echo) has the same text and sender and a timestamp
//     within EchoWindow, it is the server echo of that send: the entry is
//     replaced in place with status forced to sent. The earliest unmatched
//     entry wins when several qualify.
//  3. otherwise the batch is appended in order, without re-sorting, so the
//     visible list does not jump.
//
// The content+window match is a deliberate heuristic for backends that do
// not round-trip the client temp id; two identical texts from the same user
// inside the window will false-positive.
func (r *Reconciler) Apply(batch []ChatMessage) (Merge, bool) {
	if len(batch) == 0 {
		return Merge{}, false
	}
	incoming := Normalize(batch[0])

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages {
		if m.ID == incoming.ID {
			return Merge{}, false
		}
	}

	for i, m := range r.messages {
		if m.Status != StatusSending && m.Status != StatusQueued {
			continue
		}
		if m.Text != incoming.Text || m.User.ID != incoming.User.ID {
			continue
		}
		delta := incoming.CreatedAt.Sub(m.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= EchoWindow {
			tempID := m.ID
			incoming.Status = StatusSent
			r.messages[i] = incoming
			return Merge{TempID: tempID, ServerID: incoming.ID}, true
		}
	}

	r.messages = append(r.messages, incoming)
	for _, raw := range batch[1:] {
		r.messages = append(r.messages, Normalize(raw))
	}
	return Merge{}, false
}

// Append adds an already-normalized message to the end of the list. Used by
// the send pipeline for optimistic inserts.
func (r *Reconciler) Append(msg DisplayMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// MarkStatus updates the status of the message with the given id. Returns
// false if no such message exists.
func (r *Reconciler) MarkStatus(id string, status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			r.messages[i].Status = status
			return true
		}
	}
	return false
}

// Promote replaces a temp id with the server-assigned id on synchronous send
// confirmation, marking the entry sent.
func (r *Reconciler) Promote(tempID, serverID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == tempID {
			r.messages[i].ID = serverID
			r.messages[i].Status = StatusSent
			return true
		}
	}
	return false
}

// StatusOf reports the status of the message with the given id.
func (r *Reconciler) StatusOf(id string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			return r.messages[i].Status, true
		}
	}
	return "", false
}

// Messages returns a copy of the current ordered list.
func (r *Reconciler) Messages() []DisplayMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DisplayMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// Len returns the number of messages held.
func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// Reset discards all state, e.g. when the view is torn down.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
	r.loaded = false
}
