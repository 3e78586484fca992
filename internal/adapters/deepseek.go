package adapters

import (
	"context"
	"time"

	"github.com/zgpcy/cost-console/internal/amount"
	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/provider"
	"github.com/zgpcy/cost-console/internal/upstream"
)

// DeepSeekURL is the DeepSeek API base URL
const DeepSeekURL = "https://api.deepseek.com"

// DeepSeek is prepaid: it reports the remaining balance as usage and zero
// costs.
type DeepSeek struct {
	meta   provider.Meta
	apiKey string
	client *upstream.Client
}

// NewDeepSeek creates the DeepSeek adapter
func NewDeepSeek(cfg *config.Config, opts Options) *DeepSeek {
	key := cfg.Credentials.DeepSeekAPIKey
	return &DeepSeek{
		meta:   DeepSeekMeta,
		apiKey: key,
		client: opts.client(DeepSeekMeta.Name, cfg.Endpoint(DeepSeekMeta.ID, DeepSeekURL), bearer(key)...),
	}
}

// Fetch implements provider.Adapter
func (d *DeepSeek) Fetch(ctx context.Context, now time.Time) provider.Record {
	if d.apiKey == "" {
		return d.meta.Unconfigured(now)
	}
	costs, usage, err := d.fetch(ctx)
	return settle(d.meta, now, costs, usage, err)
}

func (d *DeepSeek) fetch(ctx context.Context) (*provider.Costs, *provider.Usage, error) {
	var resp map[string]any
	if err := d.client.GetJSON(ctx, "/user/balance", nil, &resp); err != nil {
		return nil, nil, err
	}

	var balance float64
	var currency string
	if infos := amount.Objects(resp["balance_infos"]); len(infos) > 0 {
		balance = amount.ExtractAmount(amount.Field(infos[0], "total_balance"))
		currency = amount.String(infos[0]["currency"])
	}

	return &provider.Costs{Currency: currency},
		&provider.Usage{Unit: "balance", Current: balance},
		nil
}
