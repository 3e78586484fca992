package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zgpcy/cost-console/internal/adapters"
	"github.com/zgpcy/cost-console/internal/aggregator"
	"github.com/zgpcy/cost-console/internal/collector"
	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/logger"
	"github.com/zgpcy/cost-console/internal/server"
	"github.com/zgpcy/cost-console/internal/version"
)

const (
	// DefaultShutdownTimeout is the maximum time to wait for graceful shutdown
	DefaultShutdownTimeout = 30 * time.Second
)

var (
	configPath  = flag.String("config", "", "Path to configuration file (optional; defaults and environment apply without it)")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		info := version.Info()
		fmt.Printf("cost-console %s (commit %s, built %s, %s)\n",
			info["version"], info["git_commit"], info["build_date"], info["go_version"])
		return
	}

	// Load configuration first (need log level from config)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	logger.Info("Cost console starting",
		"version", version.Version,
		"config_path", *configPath)

	logger.Info("Configuration loaded successfully",
		"refresh_interval_seconds", cfg.RefreshInterval,
		"http_port", cfg.HTTPPort,
		"adapter_timeout", cfg.AdapterTimeoutDuration().String(),
		"max_retries", cfg.Aggregation.MaxRetries,
		"api_rate_limit", cfg.API.RateLimit)

	registry, err := adapters.NewRegistry(cfg, adapters.Options{
		MaxRetries: cfg.Aggregation.MaxRetries,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("Failed to build provider registry", "error", err)
		os.Exit(1)
	}

	configured := 0
	for _, entry := range registry.All() {
		if _, ok := cfg.Credentials.Lookup(entry.EnvKey); ok {
			configured++
		}
	}
	logger.Info("Provider registry built",
		"providers", registry.Len(),
		"configured", configured)

	agg := aggregator.New(registry, aggregator.Options{
		Timeout: cfg.AdapterTimeoutDuration(),
		Logger:  logger,
	})

	costCollector := collector.NewCostCollector(agg, cfg, logger)
	if err := prometheus.Register(costCollector); err != nil {
		logger.Error("Failed to register collector", "error", err)
		os.Exit(1)
	}
	logger.Info("Collector registered with Prometheus")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Starting background aggregation")
	costCollector.StartBackgroundRefresh(ctx)

	logger.Info("Creating HTTP server", "port", cfg.HTTPPort)
	srv := server.NewServer(cfg, registry, agg, costCollector, logger)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("Server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		logger.Info("Received shutdown signal, starting graceful shutdown", "signal", sig.String())

		// Cancel background refresh
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during server shutdown", "error", err)
			os.Exit(1)
		}

		logger.Info("Server stopped gracefully")
	}
}
