// Package history keeps the recent event log for status views and feeds the
// live event stream.
package history

import (
	"sync"

	"github.com/GriffinCanCode/screenwatch/internal/events"
)

// Store holds the most recent match and dispatch events in memory and
// republishes every event on a buffered channel.
type Store struct {
	mu       sync.RWMutex
	entries  []events.Event
	maxSize  int
	eventsCh chan events.Event
}

// NewStore creates a store keeping at most maxEntries records.
func NewStore(maxEntries, eventBuffer int) *Store {
	return &Store{
		entries:  make([]events.Event, 0, maxEntries),
		maxSize:  maxEntries,
		eventsCh: make(chan events.Event, eventBuffer),
	}
}

// Emit records match and dispatch events and forwards every event to the
// stream (non-blocking; a full buffer drops).
func (s *Store) Emit(e events.Event) {
	if e.Type == events.MatchFound || e.Type == events.ActionDispatched {
		s.mu.Lock()
		s.entries = append(s.entries, e)
		if len(s.entries) > s.maxSize {
			s.entries = s.entries[len(s.entries)-s.maxSize:]
		}
		s.mu.Unlock()
	}

	select {
	case s.eventsCh <- e:
	default:
	}
}

// Events returns the live stream.
func (s *Store) Events() <-chan events.Event {
	return s.eventsCh
}

// Recent returns up to n records, newest first. n <= 0 returns all.
func (s *Store) Recent(n int) []events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]events.Event, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out
}

// Matches returns up to n match-found records, newest first.
func (s *Store) Matches(n int) []events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []events.Event
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Type != events.MatchFound {
			continue
		}
		out = append(out, s.entries[i])
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}
