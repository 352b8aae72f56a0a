// Package syncx provides extended synchronization primitives
package syncx

import (
	"context"
	"sync"
)

// RWGuard wraps RWMutex with scoped lock helpers and change notification.
// Every Write or Set wakes the channels handed out by Changed.
type RWGuard[T any] struct {
	mu      sync.RWMutex
	value   T
	changed chan struct{}
}

// NewGuard creates a guarded value.
func NewGuard[T any](initial T) *RWGuard[T] {
	return &RWGuard[T]{value: initial, changed: make(chan struct{})}
}

// Write executes fn while holding write lock, fn receives pointer for mutation.
func (g *RWGuard[T]) Write(fn func(*T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.value)
	g.notifyLocked()
}

// Get returns a copy of the value (T should be value type or immutable).
func (g *RWGuard[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Set atomically replaces the value.
func (g *RWGuard[T]) Set(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
	g.notifyLocked()
}

// Changed returns a channel closed by the next Write or Set.
func (g *RWGuard[T]) Changed() <-chan struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.changed
}

// WaitFor blocks until pred holds for the guarded value or ctx ends, and
// returns the value it last observed.
func (g *RWGuard[T]) WaitFor(ctx context.Context, pred func(T) bool) (T, error) {
	for {
		g.mu.RLock()
		v, ch := g.value, g.changed
		g.mu.RUnlock()
		if pred(v) {
			return v, nil
		}
		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-ch:
		}
	}
}

func (g *RWGuard[T]) notifyLocked() {
	close(g.changed)
	g.changed = make(chan struct{})
}
