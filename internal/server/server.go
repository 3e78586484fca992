package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/zgpcy/cost-console/internal/collector"
	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/logger"
	"github.com/zgpcy/cost-console/internal/provider"
	"github.com/zgpcy/cost-console/internal/version"
)

// HTTP server timeout constants
const (
	DefaultReadTimeout  = 15 * time.Second // Maximum duration for reading the entire request
	DefaultWriteTimeout = 90 * time.Second // Floor for writing one aggregation cycle
	DefaultIdleTimeout  = 60 * time.Second // Maximum amount of time to wait for the next request

	// writeMargin is added on top of the adapter timeout for encoding the response
	writeMargin = 15 * time.Second
)

// providersResponse is the body of GET /api/providers
type providersResponse struct {
	Providers []provider.Record `json:"providers"`
}

// providerInfo is the body of GET /api/providers/{id}
type providerInfo struct {
	provider.Entry
	Configured bool `json:"configured"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server represents the HTTP server
type Server struct {
	server     *http.Server
	router     chi.Router
	aggregator collector.Fetcher
	registry   *provider.Registry
	collector  *collector.CostCollector
	limiter    *rate.Limiter
	cfg        *config.Config
	logger     *logger.Logger
}

// NewServer creates a new HTTP server. Every GET /api/providers runs a fresh
// cycle through agg; the collector only backs /ready and /metrics.
func NewServer(cfg *config.Config, registry *provider.Registry, agg collector.Fetcher,
	costCollector *collector.CostCollector, log *logger.Logger) *Server {
	s := &Server{
		aggregator: agg,
		registry:   registry,
		collector:  costCollector,
		limiter:    rate.NewLimiter(rate.Limit(cfg.API.RateLimit), cfg.API.Burst),
		cfg:        cfg,
		logger:     log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "cost-console")
	})

	r.Route("/api", func(r chi.Router) {
		r.With(s.rateLimit).Get("/providers", s.handleProviders)
		r.Get("/providers/{id}", s.handleProvider)
		r.Get("/version", s.handleVersion)
	})
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      r,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  DefaultIdleTimeout,
	}
	return s
}

// writeTimeout lets a cycle bounded by the adapter timeout finish before the
// response deadline. A disabled adapter timeout disables the write deadline.
func writeTimeout(cfg *config.Config) time.Duration {
	adapter := cfg.AdapterTimeoutDuration()
	if adapter == 0 {
		return 0
	}
	return max(DefaultWriteTimeout, adapter+writeMargin)
}

// Handler returns the routed handler, without the listener
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// rateLimit rejects requests beyond the configured token bucket with 429
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			s.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleProviders runs one aggregation cycle. It never fails because of a
// provider: failures are carried as error records.
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	records := s.aggregator.FetchAll(r.Context())
	if records == nil {
		records = []provider.Record{}
	}
	s.writeJSON(w, http.StatusOK, providersResponse{Providers: records})
}

// handleProvider describes one registry entry
func (s *Server) handleProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, ok := s.registry.FindByID(id)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown provider %q", id)})
		return
	}

	_, configured := s.cfg.Credentials.Lookup(entry.EnvKey)
	s.writeJSON(w, http.StatusOK, providerInfo{Entry: entry, Configured: configured})
}

// handleVersion reports build information
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, version.Info())
}

// handleHealth handles health check requests (always returns 200 for liveness)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
		s.logger.Error("Failed to write health response", "error", err)
	}
}

// handleReady handles readiness check requests (returns 200 once the
// collector has finished one cycle)
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !s.collector.IsReady() {
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := w.Write([]byte(`{"status":"not ready","message":"waiting for initial aggregation cycle"}`)); err != nil {
			s.logger.Error("Failed to write ready response", "error", err)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, `{"status":"ready","providers":%d,"failed":%d}`,
		s.collector.ProviderCount(), s.collector.FailedCount()); err != nil {
		s.logger.Error("Failed to write ready response", "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to write JSON response", "error", err)
	}
}
