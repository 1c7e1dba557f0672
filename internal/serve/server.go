package serve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/events"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/ratelimit"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/refresh"
)

// Server is the HTTP API surface.
type Server struct {
	server *http.Server
}

// Deps wires the services behind the HTTP handlers.
type Deps struct {
	Metadata    *MetadataService
	Collection  *CollectionService
	Refresher   *refresh.Refresher
	Scheduler   *refresh.Scheduler
	Invalidator *events.Invalidator
	Limiter     ratelimit.Limiter
	Health      HealthChecker
	CronSecret  string
}

// HealthChecker reports dependency liveness for /health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewServer builds the router and wraps it in an http.Server.
func NewServer(port int, deps Deps) *Server {
	h := &handlers{deps: deps}
	limited := rateLimitMiddleware(deps.Limiter)

	mux := http.NewServeMux()
	mux.Handle("GET /metadata/{id}", limited(http.HandlerFunc(h.handleMetadata)))
	mux.Handle("GET /collection", limited(http.HandlerFunc(h.handleCollection)))
	mux.Handle("POST /refresh/{id}", limited(http.HandlerFunc(h.handleRefresh)))
	mux.Handle("GET /refresh-batch", http.HandlerFunc(h.handleRefreshBatch))
	mux.Handle("POST /events/maintenance", limited(http.HandlerFunc(h.handleEvent)))
	mux.Handle("GET /ratelimit/{identity}", http.HandlerFunc(h.handleRateLimitStatus))
	mux.Handle("GET /health", http.HandlerFunc(h.handleHealth))
	mux.Handle("GET /metrics", promhttp.Handler())

	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
