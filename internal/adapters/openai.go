package adapters

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/zgpcy/cost-console/internal/clock"
	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/provider"
	"github.com/zgpcy/cost-console/internal/upstream"
)

// OpenAIURL is the OpenAI API base URL
const OpenAIURL = "https://api.openai.com"

// OpenAI reads month-to-date spend from the organisation costs endpoint.
// The endpoint requires an admin key.
type OpenAI struct {
	meta   provider.Meta
	apiKey string
	factor float64
	client *upstream.Client
}

// NewOpenAI creates the OpenAI adapter
func NewOpenAI(cfg *config.Config, opts Options) *OpenAI {
	key := cfg.Credentials.OpenAIAPIKey
	hint := upstream.OnStatus("organisation costs require an admin key (sk-admin-...)",
		http.StatusUnauthorized, http.StatusForbidden)
	return &OpenAI{
		meta:   OpenAIMeta,
		apiKey: key,
		factor: cfg.Estimates.OpenAIProjectedFactor,
		client: opts.client(OpenAIMeta.Name, cfg.Endpoint(OpenAIMeta.ID, OpenAIURL),
			append(bearer(key), upstream.WithHint(hint))...),
	}
}

// Fetch implements provider.Adapter
func (o *OpenAI) Fetch(ctx context.Context, now time.Time) provider.Record {
	if o.apiKey == "" {
		return o.meta.Unconfigured(now)
	}
	costs, err := o.fetch(ctx, now)
	return settle(o.meta, now, costs, nil, err)
}

func (o *OpenAI) fetch(ctx context.Context, now time.Time) (*provider.Costs, error) {
	query := url.Values{
		"start_time":   {strconv.FormatInt(clock.MonthStart(now).Unix(), 10)},
		"bucket_width": {"1d"},
		"limit":        {"31"},
	}

	total, currency, err := sumPagedBuckets(ctx, o.client, "/v1/organization/costs", query)
	if err != nil {
		return nil, err
	}

	return &provider.Costs{
		CurrentMonth: total,
		Projected:    total * o.factor,
		Currency:     currency,
	}, nil
}
