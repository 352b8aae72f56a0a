package history

import (
	"testing"

	"github.com/GriffinCanCode/screenwatch/internal/events"
)

func TestStoreKeepsMatchesAndDispatches(t *testing.T) {
	s := NewStore(10, 10)
	s.Emit(events.Event{Type: events.TickSkipped, Reason: events.ReasonUnchanged})
	s.Emit(events.Event{Type: events.MatchFound, Keyword: "北京"})
	s.Emit(events.Event{Type: events.ActionDispatched, Payload: "2"})
	s.Emit(events.Event{Type: events.StateChanged, From: "idle", To: "running"})

	recent := s.Recent(0)
	if len(recent) != 2 {
		t.Fatalf("Recent = %d entries, want 2", len(recent))
	}
	if recent[0].Type != events.ActionDispatched {
		t.Errorf("newest first: got %s", recent[0].Type)
	}
}

func TestStoreTrimsToMaxSize(t *testing.T) {
	s := NewStore(3, 10)
	for _, kw := range []string{"a", "b", "c", "d", "e"} {
		s.Emit(events.Event{Type: events.MatchFound, Keyword: kw})
	}

	recent := s.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
	if recent[0].Keyword != "e" || recent[2].Keyword != "c" {
		t.Errorf("kept %v", recent)
	}
	if got := s.Recent(2); len(got) != 2 {
		t.Errorf("Recent(2) = %d entries", len(got))
	}
}

func TestStoreMatches(t *testing.T) {
	s := NewStore(10, 10)
	s.Emit(events.Event{Type: events.MatchFound, Keyword: "a"})
	s.Emit(events.Event{Type: events.ActionDispatched})
	s.Emit(events.Event{Type: events.MatchFound, Keyword: "b"})

	m := s.Matches(1)
	if len(m) != 1 || m[0].Keyword != "b" {
		t.Errorf("Matches(1) = %v", m)
	}
	if len(s.Matches(0)) != 2 {
		t.Errorf("Matches(0) should return all matches")
	}
}

func TestStoreStreamNonBlocking(t *testing.T) {
	s := NewStore(10, 1)
	s.Emit(events.Event{Type: events.StateChanged})
	s.Emit(events.Event{Type: events.StateChanged}) // buffer full, dropped

	select {
	case e := <-s.Events():
		if e.Type != events.StateChanged {
			t.Errorf("got %s", e.Type)
		}
	default:
		t.Fatal("expected one buffered event")
	}
	select {
	case <-s.Events():
		t.Error("second event should have been dropped")
	default:
	}
}
