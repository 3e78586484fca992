package provider

import (
	"context"
	"time"

	"github.com/zgpcy/cost-console/internal/amount"
)

// Category groups providers for display
type Category string

// Supported categories
const (
	CategoryAI             Category = "ai"
	CategoryInfrastructure Category = "infrastructure"
	CategoryPayments       Category = "payments"
	CategorySearch         Category = "search"
	CategoryPlatform       Category = "platform"
)

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryAI, CategoryInfrastructure, CategoryPayments, CategorySearch, CategoryPlatform:
		return true
	}
	return false
}

// Costs is the normalized cost block of a Record. Amounts are in major
// currency units.
type Costs struct {
	CurrentMonth float64  `json:"currentMonth"`
	LastMonth    *float64 `json:"lastMonth"`
	Projected    float64  `json:"projected"`
	Currency     string   `json:"currency"`
}

// Usage is the normalized usage block of a Record
type Usage struct {
	Unit       string   `json:"unit"`
	Current    float64  `json:"current"`
	Limit      *float64 `json:"limit"`
	Percentage float64  `json:"percentage"`
}

// Record is the common output schema: one per adapter per aggregation cycle
type Record struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Category      Category  `json:"category"`
	Costs         *Costs    `json:"costs"`
	Usage         *Usage    `json:"usage"`
	Health        Health    `json:"health"`
	LastUpdated   time.Time `json:"lastUpdated"`
	HasBillingAPI bool      `json:"hasBillingApi"`
}

// Meta holds the static, registry-owned identity of a provider
type Meta struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Category      Category `json:"category"`
	HasBillingAPI bool     `json:"hasBillingApi"`
}

// Adapter fetches one provider's billing data.
//
// Fetch must not panic and reports every failure inside the returned Record
// (health status "error"), never as a Go error. now is the timestamp of the
// aggregation cycle.
type Adapter interface {
	Fetch(ctx context.Context, now time.Time) Record
}

// AdapterFunc lets a plain function act as an Adapter
type AdapterFunc func(ctx context.Context, now time.Time) Record

// Fetch calls f
func (f AdapterFunc) Fetch(ctx context.Context, now time.Time) Record {
	return f(ctx, now)
}

// Entry is one row of the provider registry
type Entry struct {
	Meta
	// EnvKey names the configuration variable that gates the adapter
	EnvKey  string  `json:"envKey"`
	Adapter Adapter `json:"-"`
}

func (m Meta) record(now time.Time, health Health) Record {
	return Record{
		ID:            m.ID,
		Name:          m.Name,
		Category:      m.Category,
		Health:        health,
		LastUpdated:   now,
		HasBillingAPI: m.HasBillingAPI,
	}
}

// Unconfigured is the outcome when the gating credential is absent
func (m Meta) Unconfigured(now time.Time) Record {
	return m.record(now, Unknown())
}

// Placeholder is the outcome for providers without a billing API. Costs and
// usage are always absent, whatever credentials exist.
func (m Meta) Placeholder(now time.Time) Record {
	rec := m.record(now, Unknown())
	rec.HasBillingAPI = false
	return rec
}

// Succeeded is the outcome of a successful upstream call. Numeric fields are
// sanitized so the record never carries NaN or ±Inf.
func (m Meta) Succeeded(now time.Time, costs *Costs, usage *Usage) Record {
	rec := m.record(now, Healthy(now))
	rec.Costs = costs.sanitized()
	rec.Usage = usage.sanitized()
	return rec
}

// Failed is the outcome of a failed upstream call
func (m Meta) Failed(now time.Time, err error) Record {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return m.record(now, Failed(now, msg))
}

func (c *Costs) sanitized() *Costs {
	if c == nil {
		return nil
	}
	out := *c
	out.CurrentMonth = amount.Finite(c.CurrentMonth)
	out.Projected = amount.Finite(c.Projected)
	out.LastMonth = finitePtr(c.LastMonth)
	out.Currency = amount.Currency(c.Currency)
	return &out
}

func (u *Usage) sanitized() *Usage {
	if u == nil {
		return nil
	}
	out := *u
	out.Current = amount.Finite(u.Current)
	out.Limit = finitePtr(u.Limit)
	out.Percentage = amount.Finite(u.Percentage)
	if out.Percentage < 0 {
		out.Percentage = 0
	}
	if out.Percentage > 100 {
		out.Percentage = 100
	}
	return &out
}

func finitePtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := amount.Finite(*f)
	return &v
}

// Float returns a pointer to f, for the nullable LastMonth and Limit fields
func Float(f float64) *float64 {
	return &f
}
