package status

import (
	"testing"
	"time"

	"github.com/pitlane/leaguechat/internal/bus"
)

// walkTo transitions the machine through the given states sequentially.
func walkTo(t *testing.T, m *Machine, states ...State) {
	t.Helper()
	for _, s := range states {
		if err := m.Transition(s); err != nil {
			t.Fatalf("transition to %s failed: %v", s, err)
		}
	}
}

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		walk []State
		to   State
	}{
		{nil, Connecting},
		{nil, Error},
		{[]State{Connecting}, Ready},
		{[]State{Connecting, Ready}, Reconnecting},
		{[]State{Connecting, Ready, Reconnecting}, Connecting},
		{[]State{Connecting, Ready, Reconnecting}, Degraded},
		{[]State{Connecting, Ready, Reconnecting, Degraded}, Connecting},
		{[]State{Error}, Booting},
	}
	for _, tt := range tests {
		t.Run(string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.walk...)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(-> %s) error = %v", tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Ready); err == nil {
		t.Error("Transition(BOOTING -> READY) should fail")
	}
	if m.Current() != Booting {
		t.Errorf("state after failed transition = %s, want BOOTING", m.Current())
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("conn.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Connecting); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-ch:
		change, ok := evt.Payload.(StatusChange)
		if !ok {
			t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
		}
		if change.From != Booting || change.To != Connecting {
			t.Errorf("change = %+v, want BOOTING -> CONNECTING", change)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for conn.status_changed event")
	}
}
