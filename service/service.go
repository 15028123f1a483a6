// Package service hosts the sidecar HTTP endpoints of a test run: a
// health check and the Prometheus metrics exporter.
package service

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/nbtest-labs/nbtest/metrics"
)

const (
	DefaultHealthzHost = "0.0.0.0"
	DefaultHealthzPort = "8080"

	DefaultMetricsHost = "0.0.0.0"
	DefaultMetricsPort = "7300"
)

// Service bundles the sidecar servers for one process.
type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	healthzAddr string
	metricsAddr string
	log         log.Logger
}

// New creates a service with default addresses.
func New(logger log.Logger) *Service {
	return &Service{
		Healthz:     &HealthzServer{log: logger},
		Metrics:     &MetricsServer{},
		healthzAddr: net.JoinHostPort(DefaultHealthzHost, DefaultHealthzPort),
		metricsAddr: net.JoinHostPort(DefaultMetricsHost, DefaultMetricsPort),
		log:         logger,
	}
}

// Start launches the servers. Failures are recorded, not fatal; the CLI can
// run tests even when a sidecar port is taken.
func (s *Service) Start(ctx context.Context) {
	s.log.Info("service starting")

	go func() {
		s.log.Info("starting healthz server", "addr", s.healthzAddr)
		if err := s.Healthz.Start(ctx, s.healthzAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error starting healthz server", "err", err)
			metrics.RecordErrorDetails("error starting healthz server", err)
		}
	}()

	go func() {
		s.log.Info("starting metrics server", "addr", s.metricsAddr)
		if err := s.Metrics.Start(ctx, s.metricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error starting metrics server", "err", err)
			metrics.RecordErrorDetails("error starting metrics server", err)
		}
	}()

	s.log.Info("service started")
}

// Shutdown stops both servers.
func (s *Service) Shutdown() {
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	s.log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	s.log.Info("metrics stopped")

	s.log.Info("service stopped")
}
