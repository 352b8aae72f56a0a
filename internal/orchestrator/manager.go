package orchestrator

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/screenwatch/internal/config"
	"github.com/GriffinCanCode/screenwatch/internal/trace"
)

// Manager owns the current scheduler and swaps it when the configuration
// changes. HTTP handlers, the CLI and the config watcher all go through it.
type Manager struct {
	deps Deps

	mu      sync.RWMutex
	current *Scheduler
	ctx     context.Context
}

// NewManager creates a manager with an Idle scheduler for cfg.
func NewManager(cfg config.Monitor, deps Deps) *Manager {
	return &Manager{
		deps:    deps,
		current: NewScheduler(cfg, deps),
		ctx:     context.Background(),
	}
}

// Scheduler returns the current scheduler.
func (m *Manager) Scheduler() *Scheduler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Start starts the current session. ctx bounds this and every later session
// started by Reload.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.ctx = ctx
	s := m.current
	m.mu.Unlock()
	return s.Start(ctx)
}

// StartPaused is Start for a session that waits for Resume before ticking.
func (m *Manager) StartPaused(ctx context.Context) error {
	m.mu.Lock()
	m.ctx = ctx
	s := m.current
	m.mu.Unlock()
	return s.StartPaused(ctx)
}

func (m *Manager) Pause()         { m.Scheduler().Pause() }
func (m *Manager) Resume()        { m.Scheduler().Resume() }
func (m *Manager) Stop()          { m.Scheduler().Stop() }
func (m *Manager) Reset() error   { return m.Scheduler().Reset() }
func (m *Manager) Status() Status { return m.Scheduler().Status() }

// Restart stops the current session if needed, resets it and starts again.
func (m *Manager) Restart() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.current
	s.Stop()
	s.Wait()
	if err := s.Reset(); err != nil {
		return err
	}
	return s.Start(m.ctx)
}

// Reload replaces the session with one built from cfg. The new session
// takes over the run mode of the old one: Running stays Running, Paused
// comes back Paused and waits for Resume, anything else stays Idle. An
// invalid cfg is rejected and the current session is left untouched.
func (m *Manager) Reload(cfg config.Monitor) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.current
	mode := prev.intended()
	prev.Stop()
	prev.Wait()

	m.current = NewScheduler(cfg, m.deps)
	trace.Logger(m.ctx).Info("monitor configuration reloaded",
		"keywords", len(cfg.KeywordSet()), "region", cfg.Region.String(), "mode", mode.String())
	switch mode {
	case Running:
		return m.current.Start(m.ctx)
	case Paused:
		return m.current.StartPaused(m.ctx)
	}
	return nil
}

// Shutdown stops the session and waits for its loop to exit.
func (m *Manager) Shutdown() {
	s := m.Scheduler()
	s.Stop()
	s.Wait()
}
