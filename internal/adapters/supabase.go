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

// SupabaseURL is the Supabase management API base URL
const SupabaseURL = "https://api.supabase.com"

// Supabase sums the monthly price of the project's billed add-ons
type Supabase struct {
	meta       provider.Meta
	token      string
	projectRef string
	client     *upstream.Client
}

// NewSupabase creates the Supabase adapter
func NewSupabase(cfg *config.Config, opts Options) *Supabase {
	token := cfg.Credentials.SupabaseAccessToken
	return &Supabase{
		meta:       SupabaseMeta,
		token:      token,
		projectRef: cfg.Credentials.SupabaseProjectRef,
		client:     opts.client(SupabaseMeta.Name, cfg.Endpoint(SupabaseMeta.ID, SupabaseURL), bearer(token)...),
	}
}

// Fetch implements provider.Adapter
func (s *Supabase) Fetch(ctx context.Context, now time.Time) provider.Record {
	if s.token == "" || s.projectRef == "" {
		return s.meta.Unconfigured(now)
	}
	costs, err := s.fetch(ctx)
	return settle(s.meta, now, costs, nil, err)
}

func (s *Supabase) fetch(ctx context.Context) (*provider.Costs, error) {
	var resp map[string]any
	path := "/v1/projects/" + url.PathEscape(s.projectRef) + "/billing/addons"
	if err := s.client.GetJSON(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	var total float64
	for _, addon := range amount.Objects(addonList(resp)) {
		total += addonPrice(addon)
	}

	return &provider.Costs{
		CurrentMonth: total,
		Projected:    total,
		Currency:     amount.DefaultCurrency,
	}, nil
}

// addonList accepts both the legacy "addons" and the current
// "selected_addons" response shapes
func addonList(resp map[string]any) any {
	if v, ok := resp["addons"]; ok {
		return v
	}
	return resp["selected_addons"]
}

// addonPrice reads a flat price, or the nested variant.price.amount
func addonPrice(addon map[string]any) float64 {
	if p, ok := addon["price"]; ok {
		if m := amount.Object(p); m != nil {
			return amount.ExtractAmount(amount.Field(m, "amount"))
		}
		return amount.ExtractAmount(p)
	}
	return amount.ExtractAmount(amount.Path(addon, "variant", "price", "amount"))
}
