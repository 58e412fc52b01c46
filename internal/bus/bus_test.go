package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 10)
	defer unsub()

	b.Publish(Event{Kind: "message.arrived", Timestamp: time.Now(), Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != "message.arrived" {
			t.Errorf("got kind %q, want message.arrived", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPrefixFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("presence.", 10)
	defer unsub()

	b.Publish(Event{Kind: "message.arrived"})
	b.Publish(Event{Kind: "presence.changed"})

	select {
	case evt := <-ch:
		if evt.Kind != "presence.changed" {
			t.Errorf("got kind %q, want presence.changed", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// The message event must not have been delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 10)
	unsub()

	b.Publish(Event{Kind: "message.arrived"})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conn.", 1)
	defer unsub()

	b.Publish(Event{Kind: "conn.one"})
	// Buffer is full now; this one is dropped rather than blocking.
	b.Publish(Event{Kind: "conn.two"})

	evt := <-ch
	if evt.Kind != "conn.one" {
		t.Errorf("got %q, want conn.one", evt.Kind)
	}
}
