package journal

import "time"

// Batcher defaults
const (
	DefaultBatcherMaxSize    = 50
	DefaultBatcherFlushDelay = 2 * time.Second

	// DefaultRecentLimit bounds Recent when the caller passes no limit.
	DefaultRecentLimit = 20
)
