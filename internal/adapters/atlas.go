package adapters

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/icholy/digest"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zgpcy/cost-console/internal/amount"
	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/provider"
	"github.com/zgpcy/cost-console/internal/upstream"
)

// Atlas API constants
const (
	AtlasURL         = "https://cloud.mongodb.com"
	AtlasContentType = "application/vnd.atlas.2023-01-01+json"
)

// Atlas reads the organisation's pending invoice. The Atlas Admin API
// authenticates with HTTP digest using a programmatic API key pair.
type Atlas struct {
	meta       provider.Meta
	publicKey  string
	privateKey string
	orgID      string
	client     *upstream.Client
}

// NewAtlas creates the MongoDB Atlas adapter
func NewAtlas(cfg *config.Config, opts Options) *Atlas {
	creds := cfg.Credentials
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: upstream.DefaultRequestTimeout,
			Transport: &digest.Transport{
				Username:  creds.AtlasPublicKey,
				Password:  creds.AtlasPrivateKey,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
		}
	}
	return &Atlas{
		meta:       AtlasMeta,
		publicKey:  creds.AtlasPublicKey,
		privateKey: creds.AtlasPrivateKey,
		orgID:      creds.AtlasOrgID,
		client: opts.client(AtlasMeta.Name, cfg.Endpoint(AtlasMeta.ID, AtlasURL),
			upstream.WithHeader("Accept", AtlasContentType)),
	}
}

// Fetch implements provider.Adapter
func (a *Atlas) Fetch(ctx context.Context, now time.Time) provider.Record {
	if a.publicKey == "" || a.privateKey == "" || a.orgID == "" {
		return a.meta.Unconfigured(now)
	}
	costs, err := a.fetch(ctx)
	return settle(a.meta, now, costs, nil, err)
}

func (a *Atlas) fetch(ctx context.Context) (*provider.Costs, error) {
	var invoice map[string]any
	path := "/api/atlas/v2/orgs/" + url.PathEscape(a.orgID) + "/invoices/pending"
	if err := a.client.GetJSON(ctx, path, nil, &invoice); err != nil {
		return nil, err
	}

	var cents float64
	if items := amount.Objects(invoice["lineItems"]); len(items) > 0 {
		cents = amount.SumAmounts(items, "totalPriceCents")
	} else {
		cents = amount.ExtractAmount(invoice["subtotalCents"])
	}

	total := amount.MinorToMajor(cents)
	return &provider.Costs{
		CurrentMonth: total,
		Projected:    total,
		Currency:     amount.DefaultCurrency,
	}, nil
}
