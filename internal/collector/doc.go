// Package collector implements a Prometheus collector for provider cost metrics.
//
// CostCollector runs an aggregation cycle at start-up and then once per
// refresh interval, caches the last set of records and serves them to
// Prometheus scrapes under an RWMutex. The HTTP API does not read this cache;
// every API request runs its own cycle.
//
// The collector exposes the following metrics:
//   - cost_console_provider_cost_current_month{provider,category,currency}
//   - cost_console_provider_cost_projected{provider,category,currency}
//   - cost_console_provider_cost_last_month{provider,category,currency}, when reported
//   - cost_console_provider_usage_current{provider,unit}
//   - cost_console_provider_usage_percentage{provider,unit}
//   - cost_console_provider_health_status{provider,status}: 1 for the current status
//   - up{provider}: 1 when the last fetch succeeded
//   - cost_console_provider_fetch_errors_total{provider}
//   - cost_console_cycle_duration_seconds
//   - cost_console_last_cycle_timestamp_seconds
//   - cost_console_providers
//   - cost_console_build_info
//
// Example usage:
//
//	agg := aggregator.New(registry, aggregator.Options{Timeout: cfg.AdapterTimeoutDuration()})
//	c := collector.NewCostCollector(agg, cfg, log)
//	prometheus.MustRegister(c)
//	c.StartBackgroundRefresh(ctx)
package collector
