package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zgpcy/cost-console/internal/amount"
	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/provider"
)

// RailwayURL is the Railway public GraphQL endpoint
const RailwayURL = "https://backboard.railway.app/graphql/v2"

const (
	railwayProjectsQuery = `query { projects { edges { node { id name } } } }`
	railwayUsageQuery    = `query { estimatedUsage { estimatedUsage projectedCost } }`
)

// Railway estimates spend from the project count. The public API exposes no
// invoice total, so current cost is derived from a credit heuristic and the
// projection prefers Railway's own estimatedUsage when it reports one.
type Railway struct {
	meta      provider.Meta
	token     string
	estimates config.Estimates
	client    graphQLClient
}

type graphQLClient interface {
	PostJSON(ctx context.Context, path string, in, out any) error
}

type graphQLRequest struct {
	Query string `json:"query"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// NewRailway creates the Railway adapter
func NewRailway(cfg *config.Config, opts Options) *Railway {
	token := cfg.Credentials.RailwayAPIToken
	return &Railway{
		meta:      RailwayMeta,
		token:     token,
		estimates: cfg.Estimates,
		client:    opts.client(RailwayMeta.Name, cfg.Endpoint(RailwayMeta.ID, RailwayURL), bearer(token)...),
	}
}

// Fetch implements provider.Adapter
func (r *Railway) Fetch(ctx context.Context, now time.Time) provider.Record {
	if r.token == "" {
		return r.meta.Unconfigured(now)
	}
	costs, usage, err := r.fetch(ctx)
	return settle(r.meta, now, costs, usage, err)
}

func (r *Railway) fetch(ctx context.Context) (*provider.Costs, *provider.Usage, error) {
	var projects struct {
		Projects struct {
			Edges []json.RawMessage `json:"edges"`
		} `json:"projects"`
	}
	if err := r.query(ctx, railwayProjectsQuery, &projects); err != nil {
		return nil, nil, err
	}

	// estimatedUsage is optional; a failure falls back to the heuristic
	var usage struct {
		EstimatedUsage struct {
			EstimatedUsage any `json:"estimatedUsage"`
			ProjectedCost  any `json:"projectedCost"`
		} `json:"estimatedUsage"`
	}
	projectedCost := 0.0
	if err := r.query(ctx, railwayUsageQuery, &usage); err == nil {
		projectedCost = amount.ExtractAmount(usage.EstimatedUsage.ProjectedCost)
	}

	e := r.estimates
	credits := float64(len(projects.Projects.Edges))*e.RailwayCreditsPerProject + e.RailwayBaseCredits
	current := credits * e.RailwayCreditUSD
	projected := current * e.RailwayProjectedFactor
	if projectedCost > 0 {
		projected = projectedCost
	}

	costs := &provider.Costs{
		CurrentMonth: current,
		LastMonth:    provider.Float(current * e.RailwayLastMonthFactor),
		Projected:    projected,
		Currency:     amount.DefaultCurrency,
	}
	return costs, &provider.Usage{Unit: "credits", Current: credits}, nil
}

// query runs one GraphQL query and decodes its data block into out
func (r *Railway) query(ctx context.Context, query string, out any) error {
	var resp graphQLResponse
	if err := r.client.PostJSON(ctx, "", graphQLRequest{Query: query}, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("Railway GraphQL error: %s", strings.Join(msgs, ", "))
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return errors.New("no data returned from Railway API")
	}
	return json.Unmarshal(resp.Data, out)
}
