package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/maximewewer/timerfd-exporter/internal/binding"
	"github.com/maximewewer/timerfd-exporter/internal/config"
	"github.com/maximewewer/timerfd-exporter/internal/probe"
	"github.com/maximewewer/timerfd-exporter/pkg/logger"
	"github.com/maximewewer/timerfd-exporter/pkg/metrics"
)

// ProbeLister lists the probes reported by /health
type ProbeLister interface {
	Probes() []*probe.Probe
}

// Option configures a Server
type Option func(*Server)

// WithBindingTable serves the timer API over table
func WithBindingTable(table *binding.Table) Option {
	return func(s *Server) {
		s.table = table
	}
}

// WithProbes reports probe state on /health
func WithProbes(probes ProbeLister) Option {
	return func(s *Server) {
		s.probes = probes
	}
}

// WithClock replaces time.Now for uptime reporting
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// Server represents the HTTP server
type Server struct {
	config   *config.Config
	registry *prometheus.Registry
	metrics  *metrics.TimerMetrics
	table    *binding.Table
	probes   ProbeLister
	now      func() time.Time
	started  time.Time
	server   *http.Server
}

// New creates a new HTTP server
func New(cfg *config.Config, registry *prometheus.Registry, m *metrics.TimerMetrics, opts ...Option) *Server {
	s := &Server{
		config:   cfg,
		registry: registry,
		metrics:  m,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()
	return s
}

// Handler builds the routed and wrapped handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	handlers := NewHandlers(s.config, s.registry, s)
	mux.HandleFunc("/metrics", handlers.MetricsHandler)
	mux.HandleFunc("/health", handlers.HealthHandler)
	mux.HandleFunc("/", handlers.IndexHandler)

	if s.config.API.Enabled && s.table != nil {
		NewAPI(s.table, s.metrics, s.config.API.RateLimit).Register(mux)
	}

	return NewMiddleware(s.config, s.metrics).Apply(mux)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Server.Address + ":" + strconv.Itoa(s.config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	if s.config.Server.TLSEnabled {
		s.server.TLSConfig = createSecureTLSConfig()
		logger.Infof("server", "Starting HTTPS server on %s with TLS 1.2+", addr)
	} else {
		logger.Infof("server", "Starting HTTP server on %s", addr)
	}

	errChan := make(chan error, 1)
	go func() {
		if s.config.Server.TLSEnabled {
			errChan <- s.server.ListenAndServeTLS(
				s.config.Server.TLSCertFile,
				s.config.Server.TLSKeyFile,
			)
		} else {
			errChan <- s.server.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("server", "Shutting down HTTP server")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", "Server error", err)
			return fmt.Errorf("HTTP server failed on %s: %w", s.server.Addr, err)
		}
		return nil
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server", "Server shutdown failed", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("server shutdown timeout after 10s: %w", err)
		}
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("server", "HTTP server stopped")
	return nil
}

// uptime is the time since New
func (s *Server) uptime() time.Duration {
	return s.now().Sub(s.started)
}

// createSecureTLSConfig restricts the server to TLS 1.2+ with ECDHE suites
func createSecureTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP384,
			tls.CurveP256,
		},
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
		},
	}
}
