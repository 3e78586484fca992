package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zgpcy/cost-console/internal/clock"
	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/logger"
	"github.com/zgpcy/cost-console/internal/provider"
	"github.com/zgpcy/cost-console/internal/version"
)

const namespace = "cost_console"

// Fetcher runs one aggregation cycle over every provider
type Fetcher interface {
	FetchAll(ctx context.Context) []provider.Record
}

// CostCollector implements prometheus.Collector for provider cost metrics
type CostCollector struct {
	fetcher Fetcher
	cfg     *config.Config
	logger  *logger.Logger
	clock   clock.Clock // Time provider for testing

	// Per-provider metrics
	costCurrentMonthMetric *prometheus.Desc
	costProjectedMetric    *prometheus.Desc
	costLastMonthMetric    *prometheus.Desc
	usageCurrentMetric     *prometheus.Desc
	usagePercentageMetric  *prometheus.Desc
	healthStatusMetric     *prometheus.Desc
	upMetric               *prometheus.Desc

	// Cycle metrics
	cycleDurationMetric *prometheus.Desc
	fetchErrorsTotal    *prometheus.CounterVec
	lastCycleTimeMetric *prometheus.Desc
	providerCountMetric *prometheus.Desc
	buildInfo           *prometheus.GaugeVec

	// State
	mu                sync.RWMutex
	lastRecords       []provider.Record
	lastCycle         time.Time
	lastCycleDuration time.Duration
	refreshStarted    atomic.Bool // Prevent multiple refresh goroutines
	isReady           bool
}

// NewCostCollector creates a new CostCollector
func NewCostCollector(fetcher Fetcher, cfg *config.Config, log *logger.Logger) *CostCollector {
	fetchErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetch_errors_total",
			Help:      "Total number of provider fetches that ended in error since startup",
		},
		[]string{"provider"},
	)

	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build version information",
		},
		[]string{"version", "git_commit", "build_date", "go_version"},
	)

	versionInfo := version.Info()
	buildInfo.With(prometheus.Labels{
		"version":    versionInfo["version"],
		"git_commit": versionInfo["git_commit"],
		"build_date": versionInfo["build_date"],
		"go_version": versionInfo["go_version"],
	}).Set(1)

	costLabels := []string{"provider", "category", "currency"}
	usageLabels := []string{"provider", "unit"}

	return &CostCollector{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  log,
		clock:   clock.RealClock{},
		costCurrentMonthMetric: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "provider", "cost_current_month"),
			"Month-to-date cost reported or estimated for the provider",
			costLabels, nil,
		),
		costProjectedMetric: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "provider", "cost_projected"),
			"Projected end-of-month cost for the provider",
			costLabels, nil,
		),
		costLastMonthMetric: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "provider", "cost_last_month"),
			"Previous month cost, exported only when the provider reports it",
			costLabels, nil,
		),
		usageCurrentMetric: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "provider", "usage_current"),
			"Current usage quantity in the provider's unit",
			usageLabels, nil,
		),
		usagePercentageMetric: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "provider", "usage_percentage"),
			"Usage as a percentage of the provider limit (0-100)",
			usageLabels, nil,
		),
		healthStatusMetric: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "provider", "health_status"),
			"Provider health in the last cycle, 1 for the current status and 0 otherwise",
			[]string{"provider", "status"}, nil,
		),
		upMetric: prometheus.NewDesc(
			"up",
			"Was the last provider fetch successful (1 = success, 0 = failure or not configured)",
			[]string{"provider"}, nil,
		),
		cycleDurationMetric: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "cycle_duration_seconds"),
			"Duration of the last aggregation cycle in seconds",
			nil, nil,
		),
		fetchErrorsTotal: fetchErrorsTotal,
		lastCycleTimeMetric: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "last_cycle_timestamp_seconds"),
			"Unix timestamp of the last completed aggregation cycle",
			nil, nil,
		),
		providerCountMetric: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "providers"),
			"Number of provider records in the last cycle",
			nil, nil,
		),
		buildInfo: buildInfo,
	}
}

// Describe implements prometheus.Collector
func (c *CostCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.costCurrentMonthMetric
	ch <- c.costProjectedMetric
	ch <- c.costLastMonthMetric
	ch <- c.usageCurrentMetric
	ch <- c.usagePercentageMetric
	ch <- c.healthStatusMetric
	ch <- c.upMetric
	ch <- c.cycleDurationMetric
	c.fetchErrorsTotal.Describe(ch)
	ch <- c.lastCycleTimeMetric
	ch <- c.providerCountMetric
	c.buildInfo.Describe(ch)
}

// Collect implements prometheus.Collector
func (c *CostCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, rec := range c.lastRecords {
		c.collectRecord(ch, rec)
	}

	ch <- prometheus.MustNewConstMetric(
		c.cycleDurationMetric,
		prometheus.GaugeValue,
		c.lastCycleDuration.Seconds(),
	)

	// Counter survives across cycles
	c.fetchErrorsTotal.Collect(ch)

	if !c.lastCycle.IsZero() {
		ch <- prometheus.MustNewConstMetric(
			c.lastCycleTimeMetric,
			prometheus.GaugeValue,
			float64(c.lastCycle.Unix()),
		)
	}

	ch <- prometheus.MustNewConstMetric(
		c.providerCountMetric,
		prometheus.GaugeValue,
		float64(len(c.lastRecords)),
	)

	c.buildInfo.Collect(ch)
}

// collectRecord exports the gauges of one provider record
func (c *CostCollector) collectRecord(ch chan<- prometheus.Metric, rec provider.Record) {
	if costs := rec.Costs; costs != nil {
		labels := []string{rec.ID, string(rec.Category), costs.Currency}
		ch <- prometheus.MustNewConstMetric(c.costCurrentMonthMetric, prometheus.GaugeValue, costs.CurrentMonth, labels...)
		ch <- prometheus.MustNewConstMetric(c.costProjectedMetric, prometheus.GaugeValue, costs.Projected, labels...)
		if costs.LastMonth != nil {
			ch <- prometheus.MustNewConstMetric(c.costLastMonthMetric, prometheus.GaugeValue, *costs.LastMonth, labels...)
		}
	}

	if usage := rec.Usage; usage != nil {
		ch <- prometheus.MustNewConstMetric(c.usageCurrentMetric, prometheus.GaugeValue, usage.Current, rec.ID, usage.Unit)
		ch <- prometheus.MustNewConstMetric(c.usagePercentageMetric, prometheus.GaugeValue, usage.Percentage, rec.ID, usage.Unit)
	}

	for _, status := range provider.Statuses {
		value := 0.0
		if rec.Health.Status == status {
			value = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.healthStatusMetric, prometheus.GaugeValue, value, rec.ID, string(status))
	}

	upValue := 0.0
	if rec.Health.Status == provider.StatusHealthy || rec.Health.Status == provider.StatusDegraded {
		upValue = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.upMetric, prometheus.GaugeValue, upValue, rec.ID)
}

// StartBackgroundRefresh runs one cycle synchronously and then one per
// refresh interval until ctx is cancelled. A second call is a no-op while a
// refresh loop is running.
func (c *CostCollector) StartBackgroundRefresh(ctx context.Context) {
	if !c.refreshStarted.CompareAndSwap(false, true) {
		c.logger.Warn("Background refresh already started, skipping")
		return
	}

	// Initial fetch
	c.refresh(ctx)

	interval := c.cfg.RefreshDuration()
	if interval <= 0 {
		interval = config.DefaultRefreshInterval * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		defer c.refreshStarted.Store(false) // Reset on exit
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Stopping background refresh")
				return
			case <-ticker.C:
				c.refresh(ctx)
			}
		}
	}()
}

// refresh runs one aggregation cycle and replaces the cached records
func (c *CostCollector) refresh(ctx context.Context) {
	c.logger.Info("Refreshing provider costs")
	start := time.Now()

	records := c.fetcher.FetchAll(ctx)
	duration := time.Since(start)

	failed := 0
	for _, rec := range records {
		if rec.Health.Status == provider.StatusError {
			failed++
			c.fetchErrorsTotal.With(prometheus.Labels{"provider": rec.ID}).Inc()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastCycle = c.clock.Now()
	c.lastCycleDuration = duration
	c.lastRecords = records
	c.isReady = true

	c.logger.Info("Refreshed provider costs",
		"provider_count", len(records),
		"failed_count", failed,
		"duration_seconds", duration.Seconds())
}

// IsReady returns true once the collector has completed at least one cycle
func (c *CostCollector) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// LastCycleTime returns the time the last cycle completed
func (c *CostCollector) LastCycleTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastCycle
}

// ProviderCount returns the number of records of the last cycle
func (c *CostCollector) ProviderCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lastRecords)
}

// FailedCount returns how many providers ended in error in the last cycle
func (c *CostCollector) FailedCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, rec := range c.lastRecords {
		if rec.Health.Status == provider.StatusError {
			n++
		}
	}
	return n
}
