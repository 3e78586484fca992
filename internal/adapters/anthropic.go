package adapters

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/zgpcy/cost-console/internal/clock"
	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/provider"
	"github.com/zgpcy/cost-console/internal/upstream"
)

// Anthropic API constants
const (
	AnthropicURL     = "https://api.anthropic.com"
	AnthropicVersion = "2023-06-01"
)

// Anthropic reads month-to-date spend from the organisation cost report.
// Amounts are taken as major units.
type Anthropic struct {
	meta   provider.Meta
	apiKey string
	factor float64
	client *upstream.Client
}

// NewAnthropic creates the Anthropic adapter
func NewAnthropic(cfg *config.Config, opts Options) *Anthropic {
	key := cfg.Credentials.AnthropicAPIKey
	hint := upstream.OnStatus("the cost report requires an Admin API key (sk-ant-admin...)",
		http.StatusUnauthorized, http.StatusForbidden)
	return &Anthropic{
		meta:   AnthropicMeta,
		apiKey: key,
		factor: cfg.Estimates.AnthropicProjectedFactor,
		client: opts.client(AnthropicMeta.Name, cfg.Endpoint(AnthropicMeta.ID, AnthropicURL),
			upstream.WithHeader("x-api-key", key),
			upstream.WithHeader("anthropic-version", AnthropicVersion),
			upstream.WithHint(hint)),
	}
}

// Fetch implements provider.Adapter
func (a *Anthropic) Fetch(ctx context.Context, now time.Time) provider.Record {
	if a.apiKey == "" {
		return a.meta.Unconfigured(now)
	}
	costs, err := a.fetch(ctx, now)
	return settle(a.meta, now, costs, nil, err)
}

func (a *Anthropic) fetch(ctx context.Context, now time.Time) (*provider.Costs, error) {
	query := url.Values{
		"starting_at": {clock.MonthStart(now).Format(time.RFC3339)},
		"ending_at":   {now.UTC().Format(time.RFC3339)},
	}

	total, currency, err := sumPagedBuckets(ctx, a.client, "/v1/organizations/cost_report", query)
	if err != nil {
		return nil, err
	}

	return &provider.Costs{
		CurrentMonth: total,
		Projected:    total * a.factor,
		Currency:     currency,
	}, nil
}
