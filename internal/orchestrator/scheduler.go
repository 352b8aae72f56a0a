// Package orchestrator runs monitoring sessions: it captures the configured
// screen region on a fixed interval, extracts text, and dispatches the reply
// once per newly seen keyword line.
package orchestrator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"image"
	"sync"
	"time"

	"github.com/GriffinCanCode/screenwatch/internal/config"
	"github.com/GriffinCanCode/screenwatch/internal/events"
	"github.com/GriffinCanCode/screenwatch/internal/orchestrator/dedup"
	"github.com/GriffinCanCode/screenwatch/internal/orchestrator/frame"
	"github.com/GriffinCanCode/screenwatch/internal/orchestrator/keyword"
	"github.com/GriffinCanCode/screenwatch/internal/syncx"
	"github.com/GriffinCanCode/screenwatch/internal/trace"
)

// FrameSource captures a screen region as encoded image bytes.
type FrameSource interface {
	Capture(ctx context.Context, region image.Rectangle) ([]byte, error)
}

// TextExtractor recognizes text in an encoded image.
type TextExtractor interface {
	Extract(ctx context.Context, image []byte, language string) (string, error)
}

// ActionDispatcher delivers the reply payload to the foreground target.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, payload string) error
}

// Deps are the collaborators a scheduler drives. Sink may be nil.
type Deps struct {
	Source     FrameSource
	Extractor  TextExtractor
	Dispatcher ActionDispatcher
	Sink       events.Sink
}

type request int

const (
	reqPause request = iota
	reqResume
	reqStop
)

// next reports the state r leads to from state, and whether r applies there.
func (r request) next(from State) (State, bool) {
	switch {
	case r == reqPause && from == Running:
		return Paused, true
	case r == reqResume && from == Paused:
		return Running, true
	case r == reqStop && (from == Running || from == Paused):
		return Stopped, true
	}
	return from, false
}

// session is the pipeline state of one monitoring session. Only the loop
// goroutine touches it while the session is active.
type session struct {
	id       string
	cfg      config.Monitor
	detector *frame.Detector
	matcher  *keyword.Matcher
	claims   *dedup.Cache
}

func newSession(cfg config.Monitor) *session {
	var opts []frame.Option
	if cfg.MaxHashDistance > 0 {
		opts = append(opts, frame.WithPerceptual(cfg.MaxHashDistance))
	}
	return &session{
		id:       newSessionID(),
		cfg:      cfg,
		detector: frame.NewDetector(opts...),
		matcher:  keyword.NewMatcher(cfg.KeywordSet()),
		claims:   dedup.New(dedup.FromConfig(cfg.Dedup)),
	}
}

func newSessionID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Scheduler is the monitoring state machine: Idle → Running ⇄ Paused →
// Stopped. One goroutine runs the tick loop and is the sole writer of the
// run mode once a session starts; Pause, Resume and Stop post requests into
// a single-slot channel that the loop drains between ticks. Controls are
// judged against intent, the state the session reaches once the posted
// request is applied, so a stop cannot be replaced by a later pause.
type Scheduler struct {
	deps     Deps
	interval time.Duration
	now      func() time.Time

	// lifecycle serializes Start and Reset.
	lifecycle sync.Mutex
	sess      *session
	done      chan struct{}

	// ctl guards intent and posting into requests.
	ctl      sync.Mutex
	intent   State
	requests chan request

	status *syncx.RWGuard[Status]
}

// NewScheduler builds an Idle scheduler for cfg. cfg is validated by Start.
func NewScheduler(cfg config.Monitor, deps Deps) *Scheduler {
	if deps.Sink == nil {
		deps.Sink = events.Discard
	}
	s := &Scheduler{
		deps:     deps,
		interval: cfg.Interval,
		now:      time.Now,
		requests: make(chan request, 1),
	}
	s.sess = newSession(cfg)
	s.status = syncx.NewGuard(s.initialStatus())
	return s
}

func (s *Scheduler) initialStatus() Status {
	cfg := s.sess.cfg
	return Status{
		Session:  s.sess.id,
		State:    Idle,
		Keywords: s.sess.matcher.Keywords(),
		Region:   cfg.Region.String(),
		Interval: cfg.Interval.String(),
		Dedup:    s.sess.claims.Policy().String(),
	}
}

// Status returns the latest published snapshot.
func (s *Scheduler) Status() Status {
	return s.status.Get()
}

// State is shorthand for Status().State.
func (s *Scheduler) State() State {
	return s.status.Get().State
}

// Config returns the monitor configuration of the current session.
func (s *Scheduler) Config() config.Monitor {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.sess.cfg
}

// Start validates the configuration and begins ticking. It is a no-op while
// Running or Paused and fails with ErrSessionEnded once Stopped. The loop
// stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	return s.start(ctx, Running)
}

// StartPaused is Start for a session that enters Paused before its first
// tick. It waits for Resume.
func (s *Scheduler) StartPaused(ctx context.Context) error {
	return s.start(ctx, Paused)
}

func (s *Scheduler) start(ctx context.Context, initial State) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	switch s.intended() {
	case Running, Paused:
		return nil
	case Stopped:
		return ErrSessionEnded
	}
	if err := s.sess.cfg.Validate(); err != nil {
		return err
	}

	s.ctl.Lock()
	drain(s.requests)
	s.intent = initial
	s.ctl.Unlock()

	s.done = make(chan struct{})
	sess := s.sess
	ctx = trace.WithSession(ctx, sess.id)

	started := s.now()
	s.status.Write(func(st *Status) { st.StartedAt = started })
	s.transition(ctx, sess, Idle, Running)
	if initial == Paused {
		s.transition(ctx, sess, Running, Paused)
	}
	trace.Logger(ctx).Info("monitor started",
		"region", sess.cfg.Region.String(),
		"interval", s.interval,
		"keywords", len(sess.matcher.Keywords()),
		"dedup", sess.claims.Policy().String(),
		"paused", initial == Paused,
	)

	go s.run(ctx, sess, s.done, initial)
	return nil
}

// Pause suspends ticking. No-op unless Running.
func (s *Scheduler) Pause() { s.request(reqPause) }

// Resume continues a paused session with its claims and last frame intact.
func (s *Scheduler) Resume() { s.request(reqResume) }

// Stop ends the session. Claims are kept until Reset. Once Stop is called
// Pause and Resume are ignored.
func (s *Scheduler) Stop() { s.request(reqStop) }

// Reset replaces a stopped session with a fresh Idle one: new session id,
// empty claims, no reference frame. It is a no-op from Idle. A Reset right
// after Stop waits for the loop to exit.
func (s *Scheduler) Reset() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	switch s.intended() {
	case Idle:
		return nil
	case Running, Paused:
		return ErrSessionActive
	}
	if s.done != nil {
		<-s.done
	}
	s.sess = newSession(s.sess.cfg)

	s.ctl.Lock()
	drain(s.requests)
	s.intent = Idle
	s.ctl.Unlock()

	s.status.Set(s.initialStatus())
	return nil
}

// Wait blocks until the loop of the current session exits. It returns at
// once if the session never started.
func (s *Scheduler) Wait() {
	s.lifecycle.Lock()
	done := s.done
	s.lifecycle.Unlock()
	if done != nil {
		<-done
	}
}

// WaitState blocks until the scheduler reaches want or ctx ends.
func (s *Scheduler) WaitState(ctx context.Context, want State) error {
	_, err := s.status.WaitFor(ctx, func(st Status) bool { return st.State == want })
	return err
}

// intended returns the state the session settles in once the pending
// request, if any, is applied.
func (s *Scheduler) intended() State {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	return s.intent
}

// request posts r if it applies to the intended state, replacing an
// unconsumed older request. The newest request always leads to intent, so
// dropping the older one loses nothing.
func (s *Scheduler) request(r request) {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	next, ok := r.next(s.intent)
	if !ok {
		return
	}
	s.intent = next
	for {
		select {
		case s.requests <- r:
			return
		default:
		}
		select {
		case <-s.requests:
		default:
		}
	}
}

func drain(ch chan request) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func (s *Scheduler) run(ctx context.Context, sess *session, done chan struct{}, state State) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()
	armed := true

	for {
		select {
		case <-ctx.Done():
			s.ctl.Lock()
			s.intent = Stopped
			s.ctl.Unlock()
			s.transition(context.WithoutCancel(ctx), sess, state, Stopped)
			return
		case r := <-s.requests:
			state = s.apply(ctx, sess, state, r)
			if state == Stopped {
				return
			}
			if state == Running && !armed {
				timer.Reset(0)
				armed = true
			}
			continue
		case <-timer.C:
			armed = false
		}

		if state != Running {
			continue
		}

		started := s.now()
		s.tick(ctx, sess)

		// tick boundary
		select {
		case r := <-s.requests:
			state = s.apply(ctx, sess, state, r)
			if state == Stopped {
				return
			}
		default:
		}
		if state == Running {
			timer.Reset(s.interval - s.now().Sub(started))
			armed = true
		}
	}
}

// apply performs the transition r asks for, if it is legal from state.
func (s *Scheduler) apply(ctx context.Context, sess *session, state State, r request) State {
	next, ok := r.next(state)
	if ok {
		s.transition(ctx, sess, state, next)
	}
	return next
}

func (s *Scheduler) transition(ctx context.Context, sess *session, from, to State) {
	s.status.Write(func(st *Status) {
		st.State = to
		st.Claims = sess.claims.Len()
	})
	trace.Logger(ctx).Info("monitor state changed", "from", from.String(), "to", to.String())
	s.emit(sess, events.Event{Type: events.StateChanged, From: from.String(), To: to.String()})
}

func (s *Scheduler) emit(sess *session, e events.Event) {
	e.Time = s.now()
	e.Session = sess.id
	s.deps.Sink.Emit(e)
}
