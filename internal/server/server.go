package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/brandmix/internal/services"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Server owns the HTTP listener.
type Server struct {
	http   *http.Server
	logger *log.Logger
}

// NewServer creates a server for handler on addr.
func NewServer(addr string, handler http.Handler, logger *log.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Health reports process health for GET /health.
type Health struct {
	Version       string
	Started       time.Time
	PendingStates func() int
	LLMConfigured bool
	now           func() time.Time
}

// Health implements [HealthReporter].
func (h *Health) Health() services.HealthStatus {
	now := time.Now
	if h.now != nil {
		now = h.now
	}
	status := services.HealthStatus{
		Status:        "ok",
		Version:       h.Version,
		UptimeSeconds: int64(now().Sub(h.Started).Seconds()),
		LLMConfigured: h.LLMConfigured,
	}
	if h.PendingStates != nil {
		status.PendingStates = h.PendingStates()
	}
	return status
}
