package adapters

import (
	"context"
	"net/url"
	"time"

	"github.com/zgpcy/cost-console/internal/amount"
	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/provider"
	"github.com/zgpcy/cost-console/internal/upstream"
)

// StripeURL is the Stripe API base URL
const StripeURL = "https://api.stripe.com"

// Stripe reports the most recent invoices: the newest as the current month
// and the one before it as last month.
type Stripe struct {
	meta   provider.Meta
	apiKey string
	client *upstream.Client
}

// NewStripe creates the Stripe adapter
func NewStripe(cfg *config.Config, opts Options) *Stripe {
	key := cfg.Credentials.StripeSecretKey
	return &Stripe{
		meta:   StripeMeta,
		apiKey: key,
		client: opts.client(StripeMeta.Name, cfg.Endpoint(StripeMeta.ID, StripeURL), bearer(key)...),
	}
}

// Fetch implements provider.Adapter
func (s *Stripe) Fetch(ctx context.Context, now time.Time) provider.Record {
	if s.apiKey == "" {
		return s.meta.Unconfigured(now)
	}
	costs, err := s.fetch(ctx)
	return settle(s.meta, now, costs, nil, err)
}

func (s *Stripe) fetch(ctx context.Context) (*provider.Costs, error) {
	var resp map[string]any
	if err := s.client.GetJSON(ctx, "/v1/invoices", url.Values{"limit": {"3"}}, &resp); err != nil {
		return nil, err
	}

	invoices := amount.Objects(resp["data"])
	costs := &provider.Costs{}
	if len(invoices) > 0 {
		costs.CurrentMonth = amount.MinorToMajor(amount.ExtractAmount(amount.Field(invoices[0], "amount_paid")))
		costs.Currency = amount.String(invoices[0]["currency"])
	}
	// An unpaid or missing previous invoice reports no last month at all.
	if len(invoices) > 1 {
		if paid := amount.ExtractAmount(amount.Field(invoices[1], "amount_paid")); paid != 0 {
			costs.LastMonth = provider.Float(amount.MinorToMajor(paid))
		}
	}
	costs.Projected = costs.CurrentMonth
	return costs, nil
}
