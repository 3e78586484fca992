package adapters

import (
	"context"
	"time"

	"github.com/zgpcy/cost-console/internal/amount"
	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/provider"
	"github.com/zgpcy/cost-console/internal/upstream"
)

// ElevenLabsURL is the ElevenLabs API base URL
const ElevenLabsURL = "https://api.elevenlabs.io"

// ElevenLabs reports character usage against the subscription limit and the
// first open invoice as the month's cost.
type ElevenLabs struct {
	meta   provider.Meta
	apiKey string
	client *upstream.Client
}

// NewElevenLabs creates the ElevenLabs adapter
func NewElevenLabs(cfg *config.Config, opts Options) *ElevenLabs {
	key := cfg.Credentials.ElevenLabsAPIKey
	return &ElevenLabs{
		meta:   ElevenLabsMeta,
		apiKey: key,
		client: opts.client(ElevenLabsMeta.Name, cfg.Endpoint(ElevenLabsMeta.ID, ElevenLabsURL),
			upstream.WithHeader("xi-api-key", key)),
	}
}

// Fetch implements provider.Adapter
func (e *ElevenLabs) Fetch(ctx context.Context, now time.Time) provider.Record {
	if e.apiKey == "" {
		return e.meta.Unconfigured(now)
	}
	costs, usage, err := e.fetch(ctx)
	return settle(e.meta, now, costs, usage, err)
}

func (e *ElevenLabs) fetch(ctx context.Context) (*provider.Costs, *provider.Usage, error) {
	var resp map[string]any
	if err := e.client.GetJSON(ctx, "/v1/user/subscription", nil, &resp); err != nil {
		return nil, nil, err
	}

	current := amount.ExtractAmount(resp["character_count"])
	limit := amount.ExtractAmount(resp["character_limit"])

	var invoice float64
	if open := amount.Objects(resp["open_invoices"]); len(open) > 0 {
		invoice = amount.MinorToMajor(amount.ExtractAmount(amount.Field(open[0], "amount_due_cents")))
	}

	costs := &provider.Costs{
		CurrentMonth: invoice,
		Projected:    invoice,
		Currency:     amount.String(resp["currency"]),
	}
	usage := &provider.Usage{
		Unit:       "characters",
		Current:    current,
		Limit:      provider.Float(limit),
		Percentage: amount.Percentage(current, limit),
	}
	return costs, usage, nil
}
