package adapters

import (
	"context"
	"net/url"
	"time"

	"github.com/zgpcy/cost-console/internal/amount"
	"github.com/zgpcy/cost-console/internal/clock"
	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/provider"
	"github.com/zgpcy/cost-console/internal/upstream"
)

// LemonSqueezyURL is the LemonSqueezy API base URL
const LemonSqueezyURL = "https://api.lemonsqueezy.com"

// LemonSqueezy sums the totals of orders created this month. Orders whose
// created_at cannot be parsed are counted.
type LemonSqueezy struct {
	meta   provider.Meta
	apiKey string
	client *upstream.Client
}

// NewLemonSqueezy creates the LemonSqueezy adapter
func NewLemonSqueezy(cfg *config.Config, opts Options) *LemonSqueezy {
	key := cfg.Credentials.LemonSqueezyAPIKey
	return &LemonSqueezy{
		meta:   LemonSqueezyMeta,
		apiKey: key,
		client: opts.client(LemonSqueezyMeta.Name, cfg.Endpoint(LemonSqueezyMeta.ID, LemonSqueezyURL),
			append(bearer(key), upstream.WithHeader("Accept", "application/vnd.api+json"))...),
	}
}

// Fetch implements provider.Adapter
func (l *LemonSqueezy) Fetch(ctx context.Context, now time.Time) provider.Record {
	if l.apiKey == "" {
		return l.meta.Unconfigured(now)
	}
	costs, err := l.fetch(ctx, now)
	return settle(l.meta, now, costs, nil, err)
}

func (l *LemonSqueezy) fetch(ctx context.Context, now time.Time) (*provider.Costs, error) {
	var resp map[string]any
	query := url.Values{"page[size]": {"100"}, "sort": {"-created_at"}}
	if err := l.client.GetJSON(ctx, "/v1/orders", query, &resp); err != nil {
		return nil, err
	}

	start := clock.MonthStart(now)
	var cents float64
	for _, order := range amount.Objects(resp["data"]) {
		attrs := amount.Object(order["attributes"])
		if created, err := time.Parse(time.RFC3339, amount.String(amount.Field(attrs, "created_at"))); err == nil && created.Before(start) {
			continue
		}
		cents += amount.ExtractAmount(amount.Field(attrs, "total"))
	}

	total := amount.MinorToMajor(cents)
	return &provider.Costs{
		CurrentMonth: total,
		Projected:    total,
		Currency:     amount.DefaultCurrency,
	}, nil
}
