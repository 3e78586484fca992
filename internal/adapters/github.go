package adapters

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zgpcy/cost-console/internal/amount"
	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/provider"
	"github.com/zgpcy/cost-console/internal/upstream"
)

// GitHub API constants
const (
	GitHubURL        = "https://api.github.com"
	GitHubAPIVersion = "2022-11-28"
)

// GitHub reads the organisation's enhanced billing usage for the current
// month. Both the token and the organisation must be configured.
type GitHub struct {
	meta   provider.Meta
	token  string
	org    string
	client *upstream.Client
}

// NewGitHub creates the GitHub adapter
func NewGitHub(cfg *config.Config, opts Options) *GitHub {
	token := cfg.Credentials.GitHubToken
	hint := upstream.OnStatus("the token needs billing read access on the organisation",
		http.StatusForbidden, http.StatusNotFound)
	return &GitHub{
		meta:  GitHubMeta,
		token: token,
		org:   cfg.Credentials.GitHubOrg,
		client: opts.client(GitHubMeta.Name, cfg.Endpoint(GitHubMeta.ID, GitHubURL),
			append(bearer(token),
				upstream.WithHeader("Accept", "application/vnd.github+json"),
				upstream.WithHeader("X-GitHub-Api-Version", GitHubAPIVersion),
				upstream.WithHint(hint))...),
	}
}

// Fetch implements provider.Adapter
func (g *GitHub) Fetch(ctx context.Context, now time.Time) provider.Record {
	if g.token == "" || g.org == "" {
		return g.meta.Unconfigured(now)
	}
	costs, usage, err := g.fetch(ctx, now)
	return settle(g.meta, now, costs, usage, err)
}

func (g *GitHub) fetch(ctx context.Context, now time.Time) (*provider.Costs, *provider.Usage, error) {
	now = now.UTC()
	query := url.Values{
		"year":  {strconv.Itoa(now.Year())},
		"month": {strconv.Itoa(int(now.Month()))},
	}

	var resp map[string]any
	path := "/organizations/" + url.PathEscape(g.org) + "/settings/billing/usage"
	if err := g.client.GetJSON(ctx, path, query, &resp); err != nil {
		return nil, nil, err
	}

	// Costs and minutes cover the Actions product only.
	var actions []map[string]any
	var minutes float64
	for _, item := range amount.Objects(resp["usageItems"]) {
		if !strings.EqualFold(amount.String(item["product"]), "actions") {
			continue
		}
		actions = append(actions, item)
		if strings.EqualFold(amount.String(amount.Field(item, "unitType")), "minutes") {
			minutes += amount.ExtractAmount(item["quantity"])
		}
	}
	total := amount.SumAmounts(actions, "netAmount")

	costs := &provider.Costs{
		CurrentMonth: total,
		Projected:    total,
		Currency:     amount.DefaultCurrency,
	}
	return costs, &provider.Usage{Unit: "minutes", Current: minutes}, nil
}
