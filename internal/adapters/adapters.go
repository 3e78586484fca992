package adapters

import (
	"context"
	"time"

	"github.com/zgpcy/cost-console/internal/logger"
	"github.com/zgpcy/cost-console/internal/provider"
	"github.com/zgpcy/cost-console/internal/upstream"
)

// Options carries what every adapter shares. The zero value is usable.
type Options struct {
	// HTTPClient replaces each adapter's own *http.Client. Tests only.
	HTTPClient upstream.Doer
	// MaxRetries of a failed upstream call within one cycle
	MaxRetries int
	Logger     *logger.Logger
}

func (o Options) client(name, baseURL string, extra ...upstream.Option) *upstream.Client {
	opts := []upstream.Option{
		upstream.WithHTTPClient(o.HTTPClient),
		upstream.WithRetries(o.MaxRetries),
		upstream.WithLogger(o.Logger),
	}
	return upstream.New(name, baseURL, append(opts, extra...)...)
}

// settle turns the result of an upstream fetch into a record
func settle(meta provider.Meta, now time.Time, costs *provider.Costs, usage *provider.Usage, err error) provider.Record {
	if err != nil {
		return meta.Failed(now, err)
	}
	return meta.Succeeded(now, costs, usage)
}

// Placeholder is the adapter of a provider without a billing API
type Placeholder struct {
	meta provider.Meta
}

// NewPlaceholder creates a placeholder adapter for meta
func NewPlaceholder(meta provider.Meta) *Placeholder {
	return &Placeholder{meta: meta}
}

// Fetch always reports unknown health with no costs or usage
func (p *Placeholder) Fetch(_ context.Context, now time.Time) provider.Record {
	return p.meta.Placeholder(now)
}

func bearer(token string) []upstream.Option {
	if token == "" {
		return nil
	}
	return []upstream.Option{upstream.WithBearer(token)}
}
