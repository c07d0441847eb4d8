package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/netrasat/groundcore/internal/bridge"
	"github.com/netrasat/groundcore/internal/logger"
	"github.com/netrasat/groundcore/pkg/bridgelog"
	"github.com/netrasat/groundcore/pkg/config"
)

// Server serves the admin HTTP API on top of the bridge manager and the
// bridge message log.
type Server struct {
	cfg     config.GatewayConfig
	manager *bridge.Manager
	log     *bridgelog.Store
}

// NewServer creates the admin API server.
func NewServer(cfg config.GatewayConfig, m *bridge.Manager, log *bridgelog.Store) *Server {
	return &Server{cfg: cfg, manager: m, log: log}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stations", s.handleListStations)
		r.Get("/stats", s.handleStats)

		r.Route("/stations/{id}", func(r chi.Router) {
			r.Get("/status", s.handleStationStatus)
			r.Get("/messages", s.handleStationMessages)
			r.Get("/health-messages", s.handleStationHealth)

			// Lifecycle actions require an operator role.
			r.Group(func(r chi.Router) {
				r.Use(requireOperator)
				r.Post("/connect", s.handleStationConnect)
				r.Post("/disconnect", s.handleStationDisconnect)
			})
		})
	})

	return r
}

// Run serves the API until the context ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin API listening", logger.URL(srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("admin API shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("admin API: %w", err)
	}
}
