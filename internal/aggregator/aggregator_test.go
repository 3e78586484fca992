package aggregator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zgpcy/cost-console/internal/clock"
	"github.com/zgpcy/cost-console/internal/provider"
)

var cycleTime = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func entry(id string, fn provider.AdapterFunc) provider.Entry {
	return provider.Entry{
		Meta:    provider.Meta{ID: id, Name: "Provider " + id, Category: provider.CategoryAI, HasBillingAPI: true},
		EnvKey:  "KEY_" + id,
		Adapter: fn,
	}
}

// healthyAfter returns an adapter that succeeds after d
func healthyAfter(id string, d time.Duration) provider.Entry {
	var e provider.Entry
	e = entry(id, func(ctx context.Context, now time.Time) provider.Record {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
		return e.Succeeded(now, &provider.Costs{CurrentMonth: 1, Projected: 1, Currency: "USD"}, nil)
	})
	return e
}

func opts() Options {
	return Options{Clock: clock.Fixed(cycleTime)}
}

func ids(records []provider.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestFetchAll_PreservesRegistryOrder(t *testing.T) {
	entries := []provider.Entry{
		healthyAfter("slow", 60*time.Millisecond),
		healthyAfter("fast", 0),
		healthyAfter("medium", 20*time.Millisecond),
	}

	records := FetchAll(context.Background(), entries, opts())

	require.Len(t, records, 3)
	assert.Equal(t, []string{"slow", "fast", "medium"}, ids(records))
	for _, r := range records {
		assert.Equal(t, provider.StatusHealthy, r.Health.Status)
		assert.Equal(t, cycleTime, r.LastUpdated)
	}
}

func TestFetchAll_Empty(t *testing.T) {
	records := FetchAll(context.Background(), nil, Options{})
	assert.Empty(t, records)
}

func TestFetchAll_PanicIsIsolated(t *testing.T) {
	entries := []provider.Entry{
		healthyAfter("before", 0),
		entry("boom", func(context.Context, time.Time) provider.Record {
			panic("upstream shape changed")
		}),
		entry("boom-error", func(context.Context, time.Time) provider.Record {
			panic(errors.New("nil map write"))
		}),
		entry("boom-empty", func(context.Context, time.Time) provider.Record {
			panic("")
		}),
		healthyAfter("after", 0),
	}

	records := FetchAll(context.Background(), entries, opts())

	require.Len(t, records, 5)
	assert.Equal(t, provider.StatusHealthy, records[0].Health.Status)
	assert.Equal(t, provider.StatusHealthy, records[4].Health.Status)

	tests := []struct {
		idx     int
		message string
	}{
		{1, "upstream shape changed"},
		{2, "nil map write"},
		{3, provider.FallbackErrorMessage},
	}
	for _, tt := range tests {
		rec := records[tt.idx]
		assert.Equal(t, provider.StatusError, rec.Health.Status, rec.ID)
		assert.Equal(t, tt.message, rec.Health.ErrorMessage, rec.ID)
		assert.Equal(t, "Provider "+rec.ID, rec.Name)
		assert.Equal(t, provider.CategoryAI, rec.Category)
		assert.Nil(t, rec.Costs)
		assert.Nil(t, rec.Usage)
		require.NotNil(t, rec.Health.LastSync)
	}
}

func TestFetchAll_LatencyIsSlowestAdapter(t *testing.T) {
	const slow = 150 * time.Millisecond
	var entries []provider.Entry
	for i := 0; i < 8; i++ {
		entries = append(entries, healthyAfter(fmt.Sprintf("p%d", i), slow))
	}

	start := time.Now()
	records := FetchAll(context.Background(), entries, opts())
	elapsed := time.Since(start)

	assert.Len(t, records, 8)
	assert.GreaterOrEqual(t, elapsed, slow)
	assert.Less(t, elapsed, 4*slow, "adapters should run concurrently")
}

func TestFetchAll_TimeoutBoundsStuckAdapter(t *testing.T) {
	stuck := entry("stuck", func(context.Context, time.Time) provider.Record {
		time.Sleep(2 * time.Second)
		return provider.Record{}
	})
	o := opts()
	o.Timeout = 50 * time.Millisecond

	start := time.Now()
	records := FetchAll(context.Background(), []provider.Entry{stuck, healthyAfter("ok", 0)}, o)

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, records, 2)
	assert.Equal(t, "stuck", records[0].ID)
	assert.Equal(t, provider.StatusError, records[0].Health.Status)
	assert.Equal(t, "timed out after 50ms", records[0].Health.ErrorMessage)
	assert.Equal(t, provider.StatusHealthy, records[1].Health.Status)
}

func TestFetchAll_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocked := entry("blocked", func(ctx context.Context, now time.Time) provider.Record {
		time.Sleep(time.Second)
		return provider.Record{}
	})

	records := FetchAll(ctx, []provider.Entry{blocked}, opts())

	require.Len(t, records, 1)
	assert.Equal(t, provider.StatusError, records[0].Health.Status)
	assert.Equal(t, context.Canceled.Error(), records[0].Health.ErrorMessage)
}

func TestFetchAll_PassesCycleTime(t *testing.T) {
	seen := make(chan time.Time, 2)
	record := func(ctx context.Context, now time.Time) provider.Record {
		seen <- now
		return provider.Record{ID: "x"}
	}

	FetchAll(context.Background(), []provider.Entry{entry("a", record), entry("b", record)}, opts())

	assert.Equal(t, cycleTime, <-seen)
	assert.Equal(t, cycleTime, <-seen)
}

func TestAggregator_FetchAll(t *testing.T) {
	reg, err := provider.NewRegistry(healthyAfter("one", 0), healthyAfter("two", 0))
	require.NoError(t, err)

	agg := New(reg, opts())

	assert.Equal(t, 2, agg.Len())
	for i := 0; i < 3; i++ {
		records := agg.FetchAll(context.Background())
		assert.Equal(t, []string{"one", "two"}, ids(records))
	}
}
