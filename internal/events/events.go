// Package events defines the one-way notifications a monitoring session emits.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/GriffinCanCode/screenwatch/internal/trace"
)

// Type names an event kind. Values are stable wire names.
type Type string

const (
	TickSkipped      Type = "tick-skipped"
	MatchFound       Type = "match-found"
	ActionDispatched Type = "action-dispatched"
	StateChanged     Type = "state-changed"
)

// Skip reasons carried by TickSkipped.
const (
	ReasonUnchanged        = "unchanged"
	ReasonCaptureFailed    = "capture-failed"
	ReasonExtractionFailed = "extraction-failed"
)

// Dispatch outcomes carried by ActionDispatched.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Event is a flat record; only the fields relevant to Type are set.
type Event struct {
	Type        Type      `json:"type"`
	Time        time.Time `json:"time"`
	Session     string    `json:"session"`
	Reason      string    `json:"reason,omitempty"`
	Keyword     string    `json:"keyword,omitempty"`
	Line        string    `json:"line,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Payload     string    `json:"payload,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	Error       string    `json:"error,omitempty"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
}

// Sink receives events. Emit must not block the caller for long; sinks that
// do I/O buffer or drop.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Fanout delivers each event to every sink in order.
type Fanout []Sink

func (f Fanout) Emit(e Event) {
	for _, s := range f {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Discard drops everything.
var Discard Sink = SinkFunc(func(Event) {})

// LogSink writes events to slog. Skips log at debug, since an idle screen
// produces one every tick.
type LogSink struct {
	ctx context.Context
}

// NewLogSink logs with the trace attributes carried by ctx.
func NewLogSink(ctx context.Context) *LogSink {
	return &LogSink{ctx: ctx}
}

func (s *LogSink) Emit(e Event) {
	log := trace.Logger(s.ctx).With("session", e.Session)
	switch e.Type {
	case TickSkipped:
		if e.Reason == ReasonUnchanged {
			log.Debug("tick skipped", "reason", e.Reason)
			return
		}
		log.Warn("tick skipped", "reason", e.Reason, "error", e.Error)
	case MatchFound:
		log.Info("keyword matched", "keyword", e.Keyword, "line", e.Line, "fingerprint", e.Fingerprint)
	case ActionDispatched:
		if e.Outcome == OutcomeFailed {
			log.Error("reply dispatch failed", "payload", e.Payload, "error", e.Error)
			return
		}
		log.Info("reply dispatched", "payload", e.Payload)
	case StateChanged:
		log.Info("monitor state changed", "from", e.From, "to", e.To)
	default:
		log.Log(s.ctx, slog.LevelInfo, "event", "type", string(e.Type))
	}
}
