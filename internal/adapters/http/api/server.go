package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/evently/internal/domain/model"
	"github.com/okian/evently/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// StatsProvider defines the interface for getting client statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Dependencies required by the handlers.
type Dependencies interface {
	StatsProvider

	// Profile reports the identity currently held by the session context.
	Profile() (model.Session, bool)
}

// TeamsProvider exposes the most recent match result.
type TeamsProvider interface {
	Teams() []model.Team
	Message() string
	LastEvent() int64
}

// Option configures a Server.
type Option func(*Server)

// WithTeams exposes GET /teams backed by p.
func WithTeams(p TeamsProvider) Option {
	return func(s *Server) { s.teams = p }
}

// WithLogger sets the logger used by Serve.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server wires the status routes.
type Server struct {
	deps   Dependencies
	teams  TeamsProvider
	logger logger.Logger
}

// NewServer creates a status server over deps.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{deps: deps, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with every status route attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Metrics)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/session", s.handleSession)
	if s.teams != nil {
		r.Get("/teams", s.handleTeams)
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler())
	r.Get("/openapi.yaml", handleOpenAPI)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "starting status server", logger.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: %w", ErrServe, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "status server shutdown failed", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrServe, err)
	}
	s.logger.Info(ctx, "status server stopped")
	return nil
}
