package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zgpcy/cost-console/internal/clock"
	"github.com/zgpcy/cost-console/internal/logger"
	"github.com/zgpcy/cost-console/internal/provider"
)

const tracerName = "github.com/zgpcy/cost-console/internal/aggregator"

// Options tune a fetch cycle. The zero value is usable: real clock, no
// per-adapter bound, discarded logs.
type Options struct {
	// Timeout bounds each adapter; 0 disables the bound
	Timeout time.Duration
	Clock   clock.Clock
	Logger  *logger.Logger
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
	return o
}

// Aggregator runs every adapter of a registry once per call
type Aggregator struct {
	registry *provider.Registry
	opts     Options
}

// New creates an Aggregator over registry
func New(registry *provider.Registry, opts Options) *Aggregator {
	return &Aggregator{
		registry: registry,
		opts:     opts.withDefaults(),
	}
}

// FetchAll runs one cycle over the registry. See the package-level FetchAll.
func (a *Aggregator) FetchAll(ctx context.Context) []provider.Record {
	return FetchAll(ctx, a.registry.All(), a.opts)
}

// Len is the number of records every cycle returns
func (a *Aggregator) Len() int {
	return a.registry.Len()
}

// FetchAll invokes every adapter concurrently and waits for all of them.
//
// The result has one record per entry, in entry order. An adapter that
// panics or outlives opts.Timeout is reported as an error record built from
// its entry; the other records are unaffected.
func FetchAll(ctx context.Context, entries []provider.Entry, opts Options) []provider.Record {
	opts = opts.withDefaults()
	now := opts.Clock.Now().UTC()
	log := opts.Logger.WithFields("cycle_id", uuid.NewString())

	ctx, span := otel.Tracer(tracerName).Start(ctx, "aggregator.FetchAll",
		trace.WithAttributes(attribute.Int("providers.count", len(entries))))
	defer span.End()

	start := time.Now()
	records := make([]provider.Record, len(entries))

	var g errgroup.Group
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			records[i] = fetchOne(ctx, entry, now, opts.Timeout, log.WithProvider(entry.ID))
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, rec := range records {
		if rec.Health.Status == provider.StatusError {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("providers.failed", failed))
	log.Debug("Aggregation cycle finished",
		"provider_count", len(records),
		"failed_count", failed,
		"duration_seconds", time.Since(start).Seconds())

	return records
}

// fetchOne runs a single adapter and always settles to a record
func fetchOne(ctx context.Context, entry provider.Entry, now time.Time, timeout time.Duration, log *logger.Logger) provider.Record {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "adapter.Fetch",
		trace.WithAttributes(
			attribute.String("provider.id", entry.ID),
			attribute.String("provider.category", string(entry.Category))))
	defer span.End()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan provider.Record, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Adapter panicked", "panic", r)
				done <- entry.Failed(now, errors.New(panicMessage(r)))
			}
		}()
		done <- entry.Adapter.Fetch(ctx, now)
	}()

	var rec provider.Record
	select {
	case rec = <-done:
	case <-ctx.Done():
		rec = entry.Failed(now, interruption(ctx, timeout))
	}

	span.SetAttributes(attribute.String("provider.status", string(rec.Health.Status)))
	switch rec.Health.Status {
	case provider.StatusError:
		span.SetStatus(codes.Error, rec.Health.ErrorMessage)
		log.Warn("Provider fetch failed", "error", rec.Health.ErrorMessage)
	case provider.StatusUnknown:
		log.Debug("Provider not configured or has no billing API",
			"has_billing_api", rec.HasBillingAPI)
	default:
		log.Debug("Provider fetched", "status", rec.Health.Status)
	}
	return rec
}

// interruption explains why an adapter was abandoned
func interruption(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s", timeout)
	}
	return ctx.Err()
}

// panicMessage renders a recovered value. An empty rendering yields ""
// so the health constructor substitutes the fallback message.
func panicMessage(r any) string {
	switch v := r.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
