// Package api provides the HTTP surface of the questionnaire service.
//
// It exposes RESTful endpoints for starting sessions, fetching the current
// question, submitting answers, and tracking progress, plus an admin surface
// for question content when the configured content backend is writable.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/officeappout/out-run-app-sub001/internal/content"
	"github.com/officeappout/out-run-app-sub001/internal/session"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// DefaultShutdownTimeout bounds graceful shutdown on exit.
const DefaultShutdownTimeout = 10 * time.Second

// Opts holds configuration options for the API server.
type Opts struct {
	// Addr is the listen address (e.g. ":8080").
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires the session manager and content store to HTTP handlers.
type Server struct {
	mgr     *session.Manager
	content content.Store
	addr    string
}

// NewServer creates an API server over the given session manager and content
// store.
func NewServer(mgr *session.Manager, contentStore content.Store, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{mgr: mgr, content: contentStore, addr: cfg.Addr}
}

// Routes builds the HTTP router. Split out from Run so tests can exercise
// the full routing table through httptest.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/sessions", s.createSessionHandler).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}/question", s.currentQuestionHandler).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{id}/answer", s.answerHandler).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}/progress", s.progressHandler).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{id}/result", s.resultHandler).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{id}", s.abandonSessionHandler).Methods(http.MethodDelete)

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/questions", s.upsertQuestionHandler).Methods(http.MethodPost, http.MethodPut)
	admin.HandleFunc("/questions/{id}", s.getQuestionHandler).Methods(http.MethodGet)
	admin.HandleFunc("/questions/{id}", s.deleteQuestionHandler).Methods(http.MethodDelete)

	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
