package orchestrator

import (
	"errors"
	"fmt"
	"time"
)

// State is the scheduler run mode.
type State int

const (
	Idle State = iota
	Running
	Paused
	Stopped
)

var stateNames = [...]string{"idle", "running", "paused", "stopped"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state by name in JSON status payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseState is the inverse of String.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return Idle, fmt.Errorf("unknown state %q", name)
}

// ErrSessionEnded is returned by Start once a session has been stopped.
// Reset begins a new one.
var ErrSessionEnded = errors.New("session ended; reset to start a new one")

// ErrSessionActive is returned by Reset while the session is running or paused.
var ErrSessionActive = errors.New("session is active; stop it first")

// Status is a point-in-time snapshot of a scheduler, safe to share.
type Status struct {
	Session            string    `json:"session"`
	State              State     `json:"state"`
	Keywords           []string  `json:"keywords"`
	Region             string    `json:"region"`
	Interval           string    `json:"interval"`
	Dedup              string    `json:"dedup"`
	StartedAt          time.Time `json:"started_at,omitzero"`
	LastTick           time.Time `json:"last_tick,omitzero"`
	Ticks              uint64    `json:"ticks"`
	Unchanged          uint64    `json:"unchanged"`
	CaptureFailures    uint64    `json:"capture_failures"`
	ExtractionFailures uint64    `json:"extraction_failures"`
	Matches            uint64    `json:"matches"`
	Dispatches         uint64    `json:"dispatches"`
	DispatchFailures   uint64    `json:"dispatch_failures"`
	Claims             int       `json:"claims"`
	LastError          string    `json:"last_error,omitempty"`
}
