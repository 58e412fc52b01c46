package presence

import "testing"

func activeTracker(t *testing.T) *Tracker {
	t.Helper()
	tr := NewTracker()
	tr.Activate("u1", "Alice", "")
	return tr
}

func TestActivateSeedsSelf(t *testing.T) {
	tr := activeTracker(t)
	if !tr.Contains("u1") {
		t.Fatal("self not present after Activate")
	}
	if got := tr.Online()[0].Name; got != "Alice" {
		t.Errorf("self name = %q, want Alice", got)
	}
}

func TestActivateNameFallbacks(t *testing.T) {
	tests := []struct {
		name, email, want string
	}{
		{"Alice", "a@x.com", "Alice"},
		{"", "a@x.com", "a@x.com"},
		{"", "", SelfFallbackName},
	}
	for _, tt := range tests {
		tr := NewTracker()
		tr.Activate("u1", tt.name, tt.email)
		if got := tr.Online()[0].Name; got != tt.want {
			t.Errorf("Activate(%q, %q) name = %q, want %q", tt.name, tt.email, got, tt.want)
		}
	}
}

func TestEmptyRosterPreservesSelf(t *testing.T) {
	tr := activeTracker(t)
	tr.ApplyEvent(Event{Roster: []Entry{}})
	if !tr.Contains("u1") {
		t.Error("self dropped by empty server roster")
	}
	if tr.Count() != 1 {
		t.Errorf("count = %d, want 1", tr.Count())
	}
}

func TestRosterReplacesSet(t *testing.T) {
	tr := activeTracker(t)
	tr.ApplyEvent(Event{Delta: &Entry{ID: "u9", Name: "Ghost", IsOnline: true}})

	tr.ApplyEvent(Event{Roster: []Entry{
		{ID: "u1", Name: "Alice"},
		{ID: "u2", Name: "Bob"},
	}})

	if tr.Contains("u9") {
		t.Error("stale entry u9 survived full roster replace")
	}
	if !tr.Contains("u2") {
		t.Error("u2 missing after roster")
	}
	if tr.Count() != 2 {
		t.Errorf("count = %d, want 2", tr.Count())
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	tr := activeTracker(t)
	join := Event{Delta: &Entry{ID: "u2", Name: "Bob", IsOnline: true}}
	tr.ApplyEvent(join)
	tr.ApplyEvent(join)
	if tr.Count() != 2 {
		t.Errorf("count = %d, want 2 after double join", tr.Count())
	}
}

func TestLeaveRemovesOnlyTarget(t *testing.T) {
	tr := activeTracker(t)
	tr.ApplyEvent(Event{Roster: []Entry{
		{ID: "u1", Name: "Alice"},
		{ID: "u2", Name: "Bob"},
		{ID: "u3", Name: "Cara"},
	}})

	tr.ApplyEvent(Event{Delta: &Entry{ID: "u2", IsOnline: false}})

	if tr.Contains("u2") {
		t.Error("u2 still present after leave")
	}
	if !tr.Contains("u1") || !tr.Contains("u3") {
		t.Error("leave removed more than its target")
	}

	// Leave is idempotent.
	tr.ApplyEvent(Event{Delta: &Entry{ID: "u2", IsOnline: false}})
	if tr.Count() != 2 {
		t.Errorf("count = %d, want 2", tr.Count())
	}
}

func TestRefreshPreservesSelf(t *testing.T) {
	tr := activeTracker(t)
	tr.Refresh([]Entry{{ID: "u5", Name: "Eve"}})
	if !tr.Contains("u1") {
		t.Error("self dropped by refresh snapshot")
	}
	if !tr.Contains("u5") {
		t.Error("snapshot entry missing after refresh")
	}
}

func TestDeactivateClearsState(t *testing.T) {
	tr := activeTracker(t)
	tr.Deactivate()
	if tr.Count() != 0 {
		t.Errorf("count = %d, want 0 after Deactivate", tr.Count())
	}

	// Late events after teardown must not resurrect state.
	tr.ApplyEvent(Event{Delta: &Entry{ID: "u2", Name: "Bob", IsOnline: true}})
	tr.Refresh([]Entry{{ID: "u3", Name: "Cara"}})
	if tr.Count() != 0 {
		t.Errorf("count = %d, want 0 for events after Deactivate", tr.Count())
	}
}

func TestOnlineSortedByName(t *testing.T) {
	tr := activeTracker(t)
	tr.ApplyEvent(Event{Roster: []Entry{
		{ID: "u3", Name: "Cara"},
		{ID: "u1", Name: "Alice"},
		{ID: "u2", Name: "Bob"},
	}})
	got := tr.Online()
	order := []string{"Alice", "Bob", "Cara"}
	for i, want := range order {
		if got[i].Name != want {
			t.Errorf("online[%d] = %q, want %q", i, got[i].Name, want)
		}
	}
}
