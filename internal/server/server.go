package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/interviewd/interviewd/internal/auth"
	"github.com/interviewd/interviewd/internal/interview"
)

const defaultMaxBodyBytes = int64(1 << 20) // 1 MiB

// Config tunes the HTTP listener.
type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxBodyBytes      int64
}

// Server exposes the interview service over HTTP.
type Server struct {
	registry      *interview.Registry
	controller    *interview.Controller
	authenticator *auth.Authenticator
	cfg           Config
	log           *zap.Logger
}

// New creates a Server.
func New(registry *interview.Registry, controller *interview.Controller, authenticator *auth.Authenticator, cfg Config, log *zap.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Server{
		registry:      registry,
		controller:    controller,
		authenticator: authenticator,
		cfg:           cfg,
		log:           log,
	}
}

// Routes builds the route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /token", s.handleLogin)

	mux.Handle("POST /v1/interviews", s.requireAuth(s.handleCreate))
	mux.Handle("POST /v1/interviews/{id}/start", s.requireAuth(s.handleStart))
	mux.Handle("POST /v1/interviews/{id}/messages", s.requireAuth(s.handleMessage))
	mux.Handle("POST /v1/interviews/{id}/end", s.requireAuth(s.handleEnd))
	mux.Handle("GET /v1/interviews/{id}/transcript", s.requireAuth(s.handleTranscript))
	mux.Handle("GET /v1/interviews/{id}/statistics", s.requireAuth(s.handleStatistics))

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	s.log.Info("http server stopped")

	return <-errCh
}
