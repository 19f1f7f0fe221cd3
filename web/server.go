// ABOUTME: Headless HTTP mirror of the dashboard: serves the live session state and accepts commands.
// ABOUTME: Built on a chi router; every API route answers 503 while no session is connected.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/2389-research/simwatch/session"
	"github.com/2389-research/simwatch/wire"
)

// maxBodyBytes bounds command request bodies.
const maxBodyBytes = 64 << 10

// Source is the live session state the mirror reads. session.Tracker
// implements it.
type Source interface {
	Snapshot() session.State
	Current() *session.Session
}

// ServerConfig holds the configuration for the mirror server.
type ServerConfig struct {
	Addr   string // listen address (default: "127.0.0.1:8090")
	Logger *zap.Logger
}

// Server is the HTTP mirror.
type Server struct {
	source Source
	router chi.Router
	addr   string
	logger *zap.Logger
}

// NewServer creates a mirror over src.
func NewServer(src Source, cfg ServerConfig) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8090"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Server{
		source: src,
		addr:   cfg.Addr,
		logger: cfg.Logger,
	}
	s.router = s.buildRouter()
	return s
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("mirror listening", zap.String("addr", s.addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("mirror: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("mirror shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mirror: %w", err)
	}
	return nil
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireConnected)
		r.Get("/state", s.handleState)
		r.Get("/summary", s.handleSummary)
		r.Get("/stages", s.handleStages)
		r.Post("/rebuild", s.handleRebuild)
		r.Post("/skip-wait", s.handleSkipWait)
		r.Post("/fifos", s.handleFIFOs)
	})
	return r
}

// requireConnected answers 503 with the connection summary while no
// session is live.
func (s *Server) requireConnected(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := s.source.Snapshot()
		if !st.Connected {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"error":   "not connected",
				"summary": newSummaryView(st.Summary()),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st := s.source.Snapshot()
	var serverNow float64
	if sess := s.source.Current(); sess != nil {
		serverNow = sess.ServerNow()
	}
	writeJSON(w, http.StatusOK, newStateView(st, serverNow))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSummaryView(s.source.Snapshot().Summary()))
}

func (s *Server) handleStages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStageViews(s.source.Snapshot()))
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	s.runCommand(w, wire.CommandRebuild, (*session.Session).Rebuild)
}

func (s *Server) handleSkipWait(w http.ResponseWriter, r *http.Request) {
	s.runCommand(w, wire.CommandSkipWaitForSynthesis, (*session.Session).SkipWaitForSynthesis)
}

// handleFIFOs accepts {name: depth}. Depths may be JSON numbers or strings.
// The whole body becomes one change_fifos command, or nothing when any entry
// is rejected.
func (s *Server) handleFIFOs(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("no fifos given"))
		return
	}

	inputs := make(map[string]string, len(body))
	for name, raw := range body {
		inputs[name] = depthInput(raw)
	}

	sess := s.source.Current()
	if sess == nil {
		writeError(w, http.StatusServiceUnavailable, session.ErrClosed)
		return
	}
	accepted, err := sess.ChangeFIFODepths(inputs)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"sent": wire.CommandChangeFIFOs, "fifos": accepted})
}

// depthInput turns a JSON number or string into the text ParseFIFODepth
// validates. Anything else yields input that fails validation.
func depthInput(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		if _, err := strconv.Atoi(num.String()); err == nil {
			return num.String()
		}
	}
	return string(raw)
}

func (s *Server) runCommand(w http.ResponseWriter, name string, fn func(*session.Session) error) {
	sess := s.source.Current()
	if sess == nil {
		writeError(w, http.StatusServiceUnavailable, session.ErrClosed)
		return
	}
	if err := fn(sess); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"sent": name})
}

func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidDepth):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, session.ErrUnknownFIFO):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusBadGateway, err)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
