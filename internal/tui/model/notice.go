// Package model holds view-facing state shared between the TUI widgets.
package model

import (
	"sync"
	"time"
)

// Level classifies a notice for status-bar rendering.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notice is a transient status-bar message with a severity. The zero value
// is usable and reports no message.
type Notice struct {
	mu      sync.RWMutex
	text    string
	level   Level
	expires time.Time
}

// Post replaces the current notice; it expires after d.
func (n *Notice) Post(level Level, text string, d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.text = text
	n.level = level
	n.expires = time.Now().Add(d)
}

// Clear dismisses the notice before its natural expiry.
func (n *Notice) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.text = ""
}

// Current returns the active notice text and level, or empty when expired.
func (n *Notice) Current() (string, Level) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.text == "" || time.Now().After(n.expires) {
		return "", LevelInfo
	}
	return n.text, n.level
}
