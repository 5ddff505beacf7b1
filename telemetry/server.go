package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/teranos/cadence/errors"
)

// Server exposes /metrics over HTTP.
type Server struct {
	srv    *http.Server
	logger *zap.SugaredLogger
}

// NewServer creates a metrics server listening on addr.
func NewServer(addr string, logger *zap.SugaredLogger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background. Listen errors after startup are logged.
func (s *Server) Start() {
	go func() {
		s.logger.Infow("Metrics endpoint listening", "address", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("Metrics endpoint failed", "address", s.srv.Addr, "error", err)
		}
	}()
}

// Shutdown stops the server, waiting for in-flight scrapes until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
