package journal

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/screenwatch/internal/events"
	"github.com/GriffinCanCode/screenwatch/internal/trace"
)

// Batcher accumulates events and writes them to the journal in batches, so
// the scheduler loop never waits on disk.
type Batcher struct {
	journal    *Journal
	maxSize    int
	flushDelay time.Duration
	mu         sync.Mutex
	items      []events.Event
	timer      *time.Timer
	stopped    bool
	wg         sync.WaitGroup
}

// NewBatcher creates a journal batcher.
func NewBatcher(j *Journal, maxSize int, flushDelay time.Duration) *Batcher {
	if maxSize <= 0 {
		maxSize = DefaultBatcherMaxSize
	}
	if flushDelay <= 0 {
		flushDelay = DefaultBatcherFlushDelay
	}
	return &Batcher{
		journal:    j,
		maxSize:    maxSize,
		flushDelay: flushDelay,
		items:      make([]events.Event, 0, maxSize),
	}
}

// Emit queues match and dispatch events; other kinds are not journaled.
func (b *Batcher) Emit(e events.Event) {
	if e.Type != events.MatchFound && e.Type != events.ActionDispatched {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}

	b.items = append(b.items, e)
	if len(b.items) >= b.maxSize {
		b.flushLocked()
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.flushDelay, b.timerFlush)
	} else {
		b.timer.Reset(b.flushDelay)
	}
}

func (b *Batcher) timerFlush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

func (b *Batcher) flushLocked() {
	if len(b.items) == 0 {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	items := b.items
	b.items = make([]events.Event, 0, b.maxSize)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, span := trace.StartSpan(context.Background(), "journal_batch_flush")
		defer span.End()
		span.SetAttr("count", len(items))

		log := trace.Logger(ctx)
		if err := b.journal.Append(ctx, items); err != nil {
			span.SetAttr("error", err.Error())
			log.Warn("journal write failed", "error", err, "count", len(items))
			return
		}
		log.Debug("journal batch written", "count", len(items))
	}()
}

// Flush forces immediate flush of pending events.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// Stop flushes remaining events and waits for in-flight writes.
func (b *Batcher) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.flushLocked()
	b.mu.Unlock()
	b.wg.Wait()
}
