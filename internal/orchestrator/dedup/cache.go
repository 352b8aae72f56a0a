// Package dedup records which text lines have already triggered a reply.
package dedup

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/screenwatch/internal/config"
	"github.com/GriffinCanCode/screenwatch/internal/fingerprint"
)

// Policy bounds claim retention. The zero value is Unbounded.
type Policy struct {
	limit  int
	window time.Duration
}

// Unbounded keeps every claim for the session lifetime.
func Unbounded() Policy { return Policy{} }

// SizeCapped keeps at most n claims, evicting the one least recently
// claimed or seen.
func SizeCapped(n int) Policy { return Policy{limit: n} }

// TimeWindow forgets a claim d after it was made, so a line still on screen
// after d triggers again.
func TimeWindow(d time.Duration) Policy { return Policy{window: d} }

// FromConfig maps the configured policy name. Validate has already run.
func FromConfig(d config.Dedup) Policy {
	switch d.Policy {
	case config.DedupSize:
		return SizeCapped(d.Limit)
	case config.DedupWindow:
		return TimeWindow(d.Window)
	default:
		return Unbounded()
	}
}

func (p Policy) String() string {
	switch {
	case p.limit > 0:
		return fmt.Sprintf("size(%d)", p.limit)
	case p.window > 0:
		return fmt.Sprintf("window(%s)", p.window)
	default:
		return "unbounded"
	}
}

type entry struct {
	sum       fingerprint.Sum
	claimedAt time.Time
}

// Cache is the at-most-once authority for line fingerprints. Safe for
// concurrent use.
type Cache struct {
	mu      sync.Mutex
	policy  Policy
	entries map[fingerprint.Sum]*list.Element
	order   *list.List // front = newest
	now     func() time.Time
}

// New creates an empty cache.
func New(p Policy) *Cache {
	return &Cache{
		policy:  p,
		entries: make(map[fingerprint.Sum]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// TryClaim inserts sum if absent and reports whether this call inserted it.
func (c *Cache) TryClaim(sum fingerprint.Sum) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expire()
	if el, ok := c.entries[sum]; ok {
		c.touch(el)
		return false
	}
	c.entries[sum] = c.order.PushFront(&entry{sum: sum, claimedAt: c.now()})
	if c.policy.limit > 0 {
		for c.order.Len() > c.policy.limit {
			c.remove(c.order.Back())
		}
	}
	return true
}

// Contains reports whether sum is currently claimed.
func (c *Cache) Contains(sum fingerprint.Sum) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expire()
	el, ok := c.entries[sum]
	if ok {
		c.touch(el)
	}
	return ok
}

// Len returns the number of live claims.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expire()
	return len(c.entries)
}

// Policy returns the eviction policy.
func (c *Cache) Policy() Policy { return c.policy }

// touch refreshes recency under the size policy only; time windows run
// from the original claim.
func (c *Cache) touch(el *list.Element) {
	if c.policy.limit > 0 {
		c.order.MoveToFront(el)
	}
}

func (c *Cache) expire() {
	if c.policy.window <= 0 {
		return
	}
	cutoff := c.now().Add(-c.policy.window)
	for el := c.order.Back(); el != nil; el = c.order.Back() {
		if el.Value.(*entry).claimedAt.After(cutoff) {
			return
		}
		c.remove(el)
	}
}

func (c *Cache) remove(el *list.Element) {
	delete(c.entries, el.Value.(*entry).sum)
	c.order.Remove(el)
}
