// Package config provides configuration management for the cost console.
//
// This package handles loading configuration from an optional YAML file,
// applying environment variable overrides, setting defaults, and validating
// the result. Validation reports every problem at once.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (highest priority)
//  2. YAML configuration file
//  3. Default values (lowest priority)
//
// Service settings are overridden by COST_CONSOLE_* variables:
//   - COST_CONSOLE_HTTP_PORT: HTTP server port (1-65535)
//   - COST_CONSOLE_LOG_LEVEL: Log level (debug, info, warn, error)
//   - COST_CONSOLE_LOG_FORMAT: json or text
//   - COST_CONSOLE_REFRESH_INTERVAL: Metrics refresh interval in seconds (minimum: 60)
//   - COST_CONSOLE_ADAPTER_TIMEOUT: Per-provider bound in seconds, 0 disables (maximum: 300)
//   - COST_CONSOLE_MAX_RETRIES: Retries of a failed upstream call within one cycle
//   - COST_CONSOLE_RATE_LIMIT, COST_CONSOLE_BURST: API token bucket
//
// Provider credentials are read from their canonical variables, for example
// OPENAI_API_KEY, STRIPE_SECRET_KEY, GITHUB_TOKEN and GITHUB_ORG. A provider
// whose gating credential is empty reports health "unknown"; that is not a
// configuration error.
//
// Example configuration file (config.yaml):
//
//	http_port: 8080
//	log_level: "info"
//	refresh_interval: 900
//
//	aggregation:
//	  adapter_timeout: 30
//	  max_retries: 0
//
//	api:
//	  rate_limit: 5
//	  burst: 10
//
//	estimates:
//	  openai_projected_factor: 1.2
//
//	endpoints:
//	  openai: "https://api.openai.com"
//
//	credentials:
//	  github_org: "acme"
//
// Example usage:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//		log.Fatalf("Failed to load config: %v", err)
//	}
//
//	fmt.Printf("Adapter timeout: %s\n", cfg.AdapterTimeoutDuration())
package config
