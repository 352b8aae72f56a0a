// Package server provides HTTP and WebSocket handlers
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	apperrors "github.com/GriffinCanCode/screenwatch/internal/errors"
	"github.com/GriffinCanCode/screenwatch/internal/events"
	"github.com/GriffinCanCode/screenwatch/internal/orchestrator"
	"github.com/GriffinCanCode/screenwatch/internal/trace"
)

// Controller is the session surface the server drives.
type Controller interface {
	Start(ctx context.Context) error
	Pause()
	Resume()
	Stop()
	Reset() error
	Status() orchestrator.Status
}

// History serves recent events and the live stream.
type History interface {
	Recent(n int) []events.Event
	Matches(n int) []events.Event
	Events() <-chan events.Event
}

// Message types.
type Message struct {
	Type string `json:"type"`
}

type ControlMessage struct {
	Type    string `json:"type"`
	Action  string `json:"action"`
	TraceID string `json:"trace_id,omitempty"`
}

type StatusMessage struct {
	Type   string              `json:"type"`
	Status orchestrator.Status `json:"status"`
}

type EventMessage struct {
	Type  string       `json:"type"`
	Event events.Event `json:"event"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	ctx     context.Context
	ctrl    Controller
	history History

	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a new server. Sessions started over HTTP live as long as ctx;
// the event broadcaster stops with it too.
func New(ctx context.Context, ctrl Controller, history History) *Server {
	s := &Server{
		ctx:        ctx,
		ctrl:       ctrl,
		history:    history,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}

	go s.broadcastEvents()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/matches", s.handleMatches)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("POST /api/monitor/{action}", s.handleControl)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// control applies a named action to the session.
func (s *Server) control(ctx context.Context, action string) error {
	trace.Logger(ctx).Info("monitor control", "action", action)
	switch action {
	case "start":
		return s.ctrl.Start(s.ctx)
	case "pause":
		s.ctrl.Pause()
	case "resume":
		s.ctrl.Resume()
	case "stop":
		s.ctrl.Stop()
	case "reset":
		return s.ctrl.Reset()
	default:
		return errUnknownAction
	}
	return nil
}

var errUnknownAction = errors.New("unknown action")

// statusCode maps control errors onto HTTP.
func statusCode(err error) int {
	switch {
	case errors.Is(err, errUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrSessionEnded), errors.Is(err, orchestrator.ErrSessionActive):
		return http.StatusConflict
	case apperrors.IsCode(err, apperrors.CodeConfigInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) ErrorMessage {
	msg := ErrorMessage{Type: "error", Message: err.Error()}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg.Code = appErr.Code.String()
	}
	return msg
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func listLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return DefaultListLimit
	}
	return min(n, MaxListLimit)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	matches := s.history.Matches(listLimit(r))
	if matches == nil {
		matches = []events.Event{}
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.history.Recent(listLimit(r)))
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if err := s.control(r.Context(), r.PathValue("action")); err != nil {
		trace.Logger(r.Context()).Warn("monitor control failed", "action", r.PathValue("action"), "error", err)
		writeJSON(w, statusCode(err), errorMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	// Get trace context from HTTP upgrade request
	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	_ = s.write(baseCtx, conn, StatusMessage{Type: "status", Status: s.ctrl.Status()})

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		// Check rate limit
		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = s.write(baseCtx, conn, ErrorMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "control":
			var ctl ControlMessage
			if err := json.Unmarshal(msg, &ctl); err != nil {
				continue
			}
			// Continue the client's trace when it sent one
			ctx := baseCtx
			if tc, ok := trace.ExtractFromJSON(msg); ok {
				ctx = trace.WithContext(ctx, tc)
			}
			s.handleControlMessage(ctx, conn, ctl.Action)
		case "status":
			_ = s.write(baseCtx, conn, StatusMessage{Type: "status", Status: s.ctrl.Status()})
		}
	}
}

func (s *Server) handleControlMessage(ctx context.Context, conn *websocket.Conn, action string) {
	ctx, span := trace.StartSpan(ctx, "ws_control")
	defer span.End()
	span.SetAttr("action", action)

	if err := s.control(ctx, action); err != nil {
		span.SetAttr("error", err.Error())
		_ = s.write(ctx, conn, errorMessage(err))
		return
	}
	_ = s.write(ctx, conn, StatusMessage{Type: "status", Status: s.ctrl.Status()})
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, WriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}

func (s *Server) broadcastEvents() {
	ch := s.history.Events()
	for {
		select {
		case <-s.ctx.Done():
			return
		case evt := <-ch:
			msg := EventMessage{Type: "event", Event: evt}

			s.mu.RLock()
			for conn := range s.conns {
				go func(c *websocket.Conn) {
					_ = s.write(context.Background(), c, msg)
				}(conn)
			}
			s.mu.RUnlock()
		}
	}
}
