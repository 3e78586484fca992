package collector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/logger"
	"github.com/zgpcy/cost-console/internal/provider"
)

// testLogger creates a logger for testing
func testLogger() *logger.Logger {
	return logger.Discard()
}

// mockFetcher is a mock aggregation cycle for testing
type mockFetcher struct {
	mu            sync.Mutex
	records       []provider.Record
	calls         int
	fetchDuration time.Duration
}

func (m *mockFetcher) FetchAll(ctx context.Context) []provider.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++

	// Simulate cycle duration if set
	if m.fetchDuration > 0 {
		time.Sleep(m.fetchDuration)
	}

	out := make([]provider.Record, len(m.records))
	copy(out, m.records)
	return out
}

func (m *mockFetcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockFetcher) SetRecords(records []provider.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = records
}

var cycleTime = time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

func healthyRecord() provider.Record {
	meta := provider.Meta{ID: "openai", Name: "OpenAI", Category: provider.CategoryAI, HasBillingAPI: true}
	last := 80.0
	limit := 1000.0
	return meta.Succeeded(cycleTime,
		&provider.Costs{CurrentMonth: 42.5, LastMonth: &last, Projected: 51, Currency: "USD"},
		&provider.Usage{Unit: "credits", Current: 250, Limit: &limit, Percentage: 25})
}

func erroredRecord() provider.Record {
	meta := provider.Meta{ID: "stripe", Name: "Stripe", Category: provider.CategoryPayments, HasBillingAPI: true}
	return meta.Failed(cycleTime, nil)
}

func unknownRecord() provider.Record {
	meta := provider.Meta{ID: "groq", Name: "Groq", Category: provider.CategoryAI}
	return meta.Placeholder(cycleTime)
}

func collect(c *CostCollector) []prometheus.Metric {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		c.Collect(ch)
		close(ch)
	}()

	var metrics []prometheus.Metric
	for m := range ch {
		metrics = append(metrics, m)
	}
	return metrics
}

// gaugeValue finds the metric with desc whose labels include all of want
func gaugeValue(t *testing.T, metrics []prometheus.Metric, desc *prometheus.Desc, want map[string]string) (float64, bool) {
	t.Helper()
	for _, m := range metrics {
		if m.Desc().String() != desc.String() {
			continue
		}
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			t.Fatalf("Failed to write metric: %v", err)
		}
		labels := make(map[string]string)
		for _, lp := range pb.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		match := true
		for k, v := range want {
			if labels[k] != v {
				match = false
				break
			}
		}
		if match {
			return pb.GetGauge().GetValue(), true
		}
	}
	return 0, false
}

// TestNewCostCollector tests collector creation
func TestNewCostCollector(t *testing.T) {
	collector := NewCostCollector(&mockFetcher{}, config.Default(), testLogger())

	if collector == nil {
		t.Fatal("NewCostCollector returned nil")
	}
	if collector.fetcher == nil {
		t.Error("fetcher should not be nil")
	}
	if collector.costCurrentMonthMetric == nil {
		t.Error("costCurrentMonthMetric should not be nil")
	}
	if collector.upMetric == nil {
		t.Error("upMetric should not be nil")
	}
	if collector.IsReady() {
		t.Error("Collector should not be ready before the first cycle")
	}
}

// TestDescribe tests the Describe method
func TestDescribe(t *testing.T) {
	collector := NewCostCollector(&mockFetcher{}, config.Default(), testLogger())

	ch := make(chan *prometheus.Desc, 20)
	go func() {
		collector.Describe(ch)
		close(ch)
	}()

	var descs []*prometheus.Desc
	for desc := range ch {
		descs = append(descs, desc)
	}

	// 7 per-provider descs, 5 cycle metrics (errors counter and build info included)
	if len(descs) != 12 {
		t.Errorf("Expected 12 descriptors, got %d", len(descs))
	}
}

// TestCollect_NoData tests collection before the first cycle
func TestCollect_NoData(t *testing.T) {
	collector := NewCostCollector(&mockFetcher{}, config.Default(), testLogger())

	metrics := collect(collector)

	// cycle_duration, providers and build_info; the error counter is not
	// exported until incremented and the last cycle timestamp is zero
	if len(metrics) != 3 {
		t.Errorf("Expected 3 metrics, got %d", len(metrics))
	}
}

// TestCollect_WithData tests collection after a cycle with mixed outcomes
func TestCollect_WithData(t *testing.T) {
	fetcher := &mockFetcher{records: []provider.Record{healthyRecord(), erroredRecord(), unknownRecord()}}
	collector := NewCostCollector(fetcher, config.Default(), testLogger())

	collector.refresh(context.Background())
	metrics := collect(collector)

	// openai: 3 cost + 2 usage; 4 health_status and 1 up per provider;
	// cycle_duration, errors counter, last_cycle, providers, build_info
	want := 5 + 3*5 + 5
	if len(metrics) != want {
		t.Errorf("Expected %d metrics, got %d", want, len(metrics))
	}

	if !collector.IsReady() {
		t.Error("Collector should be ready after a cycle")
	}
	if collector.ProviderCount() != 3 {
		t.Errorf("ProviderCount: got %d, want 3", collector.ProviderCount())
	}
	if collector.FailedCount() != 1 {
		t.Errorf("FailedCount: got %d, want 1", collector.FailedCount())
	}
}

// TestCollect_Values tests the exported gauge values and labels
func TestCollect_Values(t *testing.T) {
	fetcher := &mockFetcher{records: []provider.Record{healthyRecord(), erroredRecord(), unknownRecord()}}
	collector := NewCostCollector(fetcher, config.Default(), testLogger())

	collector.refresh(context.Background())
	metrics := collect(collector)

	tests := []struct {
		name   string
		desc   *prometheus.Desc
		labels map[string]string
		want   float64
	}{
		{"current month", collector.costCurrentMonthMetric, map[string]string{"provider": "openai", "category": "ai", "currency": "USD"}, 42.5},
		{"projected", collector.costProjectedMetric, map[string]string{"provider": "openai"}, 51},
		{"last month", collector.costLastMonthMetric, map[string]string{"provider": "openai"}, 80},
		{"usage", collector.usageCurrentMetric, map[string]string{"provider": "openai", "unit": "credits"}, 250},
		{"usage percentage", collector.usagePercentageMetric, map[string]string{"provider": "openai"}, 25},
		{"healthy status", collector.healthStatusMetric, map[string]string{"provider": "openai", "status": "healthy"}, 1},
		{"not error status", collector.healthStatusMetric, map[string]string{"provider": "openai", "status": "error"}, 0},
		{"error status", collector.healthStatusMetric, map[string]string{"provider": "stripe", "status": "error"}, 1},
		{"unknown status", collector.healthStatusMetric, map[string]string{"provider": "groq", "status": "unknown"}, 1},
		{"up healthy", collector.upMetric, map[string]string{"provider": "openai"}, 1},
		{"up error", collector.upMetric, map[string]string{"provider": "stripe"}, 0},
		{"up unknown", collector.upMetric, map[string]string{"provider": "groq"}, 0},
		{"provider count", collector.providerCountMetric, nil, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := gaugeValue(t, metrics, tt.desc, tt.labels)
			if !ok {
				t.Fatalf("metric %s with labels %v not found", tt.desc, tt.labels)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, ok := gaugeValue(t, metrics, collector.costCurrentMonthMetric, map[string]string{"provider": "stripe"}); ok {
		t.Error("A provider without costs should not export cost gauges")
	}
}

// TestRefresh_ErrorCounterAccumulates tests the error counter across cycles
func TestRefresh_ErrorCounterAccumulates(t *testing.T) {
	fetcher := &mockFetcher{records: []provider.Record{erroredRecord()}}
	collector := NewCostCollector(fetcher, config.Default(), testLogger())

	ctx := context.Background()
	collector.refresh(ctx)
	collector.refresh(ctx)

	var pb dto.Metric
	if err := collector.fetchErrorsTotal.WithLabelValues("stripe").Write(&pb); err != nil {
		t.Fatalf("Failed to write counter: %v", err)
	}
	if got := pb.GetCounter().GetValue(); got != 2 {
		t.Errorf("fetch errors: got %v, want 2", got)
	}

	// Recovery clears the failed count but not the counter
	fetcher.SetRecords([]provider.Record{healthyRecord()})
	collector.refresh(ctx)
	if collector.FailedCount() != 0 {
		t.Errorf("FailedCount after recovery: got %d, want 0", collector.FailedCount())
	}
}

// TestRefresh tests the refresh method
func TestRefresh(t *testing.T) {
	fetcher := &mockFetcher{records: []provider.Record{healthyRecord()}}
	collector := NewCostCollector(fetcher, config.Default(), testLogger())

	beforeRefresh := time.Now()
	collector.refresh(context.Background())
	afterRefresh := time.Now()

	cycle := collector.LastCycleTime()
	if cycle.Before(beforeRefresh) || cycle.After(afterRefresh) {
		t.Errorf("LastCycleTime %v not within expected range [%v, %v]", cycle, beforeRefresh, afterRefresh)
	}
	if collector.ProviderCount() != 1 {
		t.Errorf("Expected 1 record after refresh, got %d", collector.ProviderCount())
	}
	if !collector.IsReady() {
		t.Error("Collector should be ready after refresh")
	}
}

// TestRefresh_ReplacesRecords tests that cycles never accumulate records
func TestRefresh_ReplacesRecords(t *testing.T) {
	fetcher := &mockFetcher{records: []provider.Record{healthyRecord(), unknownRecord()}}
	collector := NewCostCollector(fetcher, config.Default(), testLogger())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		collector.refresh(ctx)
	}

	if collector.ProviderCount() != 2 {
		t.Errorf("ProviderCount after 3 cycles: got %d, want 2", collector.ProviderCount())
	}
}

// TestStartBackgroundRefresh tests the background refresh goroutine
func TestStartBackgroundRefresh(t *testing.T) {
	fetcher := &mockFetcher{records: []provider.Record{healthyRecord()}}
	cfg := &config.Config{RefreshInterval: 1} // 1 second for fast test
	collector := NewCostCollector(fetcher, cfg, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector.StartBackgroundRefresh(ctx)

	// The initial cycle is synchronous
	initialCalls := fetcher.CallCount()
	if initialCalls != 1 {
		t.Errorf("Expected 1 call after start, got %d", initialCalls)
	}
	if !collector.IsReady() {
		t.Error("Collector should be ready after the initial cycle")
	}

	// Wait for at least one more refresh cycle
	time.Sleep(1200 * time.Millisecond)

	finalCalls := fetcher.CallCount()
	if finalCalls <= initialCalls {
		t.Errorf("Expected more calls after refresh interval, initial=%d final=%d", initialCalls, finalCalls)
	}

	// Cancel context and verify goroutine stops
	cancel()
	time.Sleep(100 * time.Millisecond)

	callsAfterCancel := fetcher.CallCount()
	time.Sleep(1200 * time.Millisecond)

	if fetcher.CallCount() != callsAfterCancel {
		t.Error("Calls should not increase after context cancellation")
	}
}

// TestStartBackgroundRefresh_Twice tests that a second start is ignored
func TestStartBackgroundRefresh_Twice(t *testing.T) {
	fetcher := &mockFetcher{records: []provider.Record{healthyRecord()}}
	cfg := &config.Config{RefreshInterval: 10} // Long interval
	collector := NewCostCollector(fetcher, cfg, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector.StartBackgroundRefresh(ctx)
	collector.StartBackgroundRefresh(ctx)

	if calls := fetcher.CallCount(); calls != 1 {
		t.Errorf("Expected exactly 1 call, got %d", calls)
	}
}

// TestConcurrency_CollectDuringRefresh tests Collect calls while refresh is running
func TestConcurrency_CollectDuringRefresh(t *testing.T) {
	fetcher := &mockFetcher{
		records:       []provider.Record{healthyRecord(), erroredRecord()},
		fetchDuration: 200 * time.Millisecond, // Simulate slow cycle
	}
	cfg := &config.Config{RefreshInterval: 1}
	collector := NewCostCollector(fetcher, cfg, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector.StartBackgroundRefresh(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(iteration int) {
			defer wg.Done()

			// Stagger the calls
			time.Sleep(time.Duration(iteration*10) * time.Millisecond)
			_ = collect(collector)
			_ = collector.IsReady()
			_ = collector.LastCycleTime()
			_ = collector.ProviderCount()
			_ = collector.FailedCount()
		}(i)
	}

	wg.Wait()
	cancel()
}
