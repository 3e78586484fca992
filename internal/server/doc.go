// Package server provides the HTTP boundary of the cost console.
//
// Available endpoints:
//   - GET /api/providers      : runs one aggregation cycle and returns {"providers":[...]}
//   - GET /api/providers/{id} : registry entry of one provider, with whether it is configured
//   - GET /api/version        : build information
//   - GET /metrics            : Prometheus metrics endpoint
//   - GET /health             : Liveness probe (always returns 200)
//   - GET /ready              : Readiness probe (200 once the collector finished a cycle)
//
// /api/providers is guarded by a single token bucket (api.rate_limit and
// api.burst); requests beyond it get 429. Routing uses chi and every request
// is traced through otelhttp.
//
// Example usage:
//
//	srv := server.NewServer(cfg, registry, agg, costCollector, log)
//
//	serverErrors := make(chan error, 1)
//	go func() {
//		serverErrors <- srv.Start()
//	}()
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	if err := srv.Shutdown(ctx); err != nil {
//		log.Error("Error during shutdown", "error", err)
//	}
package server
