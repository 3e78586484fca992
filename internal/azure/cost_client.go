package azure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/cenkalti/backoff/v4"

	"github.com/zgpcy/cost-console/internal/amount"
	"github.com/zgpcy/cost-console/internal/clock"
	"github.com/zgpcy/cost-console/internal/config"
	"github.com/zgpcy/cost-console/internal/logger"
	"github.com/zgpcy/cost-console/internal/provider"
)

// Azure API retry constants
const (
	// InitialRetryInterval is the initial backoff interval for retries
	InitialRetryInterval = 1 * time.Second

	// MaxRetryInterval is the maximum backoff interval between retries
	MaxRetryInterval = 30 * time.Second
)

// Meta is the registry identity of the Azure adapter
var Meta = provider.Meta{
	ID:            "azure",
	Name:          "Azure",
	Category:      provider.CategoryInfrastructure,
	HasBillingAPI: true,
}

// EnvKey gates the Azure adapter
const EnvKey = "AZURE_SUBSCRIPTION_ID"

// Querier is the subset of armcostmanagement.QueryClient used here
type Querier interface {
	Usage(ctx context.Context, scope string, parameters armcostmanagement.QueryDefinition,
		options *armcostmanagement.QueryClientUsageOptions) (armcostmanagement.QueryClientUsageResponse, error)
}

// Adapter reports month-to-date actual cost of one subscription from Azure
// Cost Management and extrapolates it linearly to the end of the month.
type Adapter struct {
	subscriptionID string
	maxRetries     int
	logger         *logger.Logger

	mu         sync.Mutex
	querier    Querier
	newQuerier func() (Querier, error)
}

// Verify that Adapter implements provider.Adapter
var _ provider.Adapter = (*Adapter)(nil)

// NewAdapter creates the Azure adapter. Credentials are resolved lazily by
// azidentity on the first fetch, so a host without Azure credentials still
// starts.
func NewAdapter(cfg *config.Config, maxRetries int, log *logger.Logger) *Adapter {
	if log == nil {
		log = logger.Discard()
	}
	return &Adapter{
		subscriptionID: cfg.Credentials.AzureSubscriptionID,
		maxRetries:     maxRetries,
		logger:         log.WithProvider(Meta.ID),
		newQuerier:     newQueryClient,
	}
}

// NewAdapterWithQuerier creates an adapter around an existing querier
func NewAdapterWithQuerier(subscriptionID string, q Querier) *Adapter {
	return &Adapter{
		subscriptionID: subscriptionID,
		logger:         logger.Discard(),
		querier:        q,
	}
}

func newQueryClient() (Querier, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	client, err := armcostmanagement.NewQueryClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cost management client: %w", err)
	}
	return client, nil
}

// Fetch implements provider.Adapter
func (a *Adapter) Fetch(ctx context.Context, now time.Time) provider.Record {
	if a.subscriptionID == "" {
		return Meta.Unconfigured(now)
	}

	q, err := a.client()
	if err != nil {
		return Meta.Failed(now, err)
	}

	total, currency, err := a.queryWithRetry(ctx, q)
	if err != nil {
		return Meta.Failed(now, err)
	}

	return Meta.Succeeded(now, &provider.Costs{
		CurrentMonth: total,
		Projected:    project(total, now),
		Currency:     currency,
	}, nil)
}

// project extrapolates a month-to-date total linearly to the whole month.
// At least one day counts as elapsed so the first hours of a month do not
// multiply the total by hundreds.
func project(total float64, now time.Time) float64 {
	minElapsed := 1 / float64(clock.DaysInMonth(now))
	return total / max(clock.MonthElapsed(now), minElapsed)
}

// client returns the cached querier, creating it on first use. A failed
// creation is retried on the next cycle.
func (a *Adapter) client() (Querier, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.querier != nil {
		return a.querier, nil
	}
	if a.newQuerier == nil {
		return nil, errors.New("azure cost client is not configured")
	}
	q, err := a.newQuerier()
	if err != nil {
		return nil, err
	}
	a.querier = q
	return q, nil
}

// queryWithRetry runs the month-to-date query, retrying up to maxRetries
func (a *Adapter) queryWithRetry(ctx context.Context, q Querier) (float64, string, error) {
	var (
		total    float64
		currency string
	)

	operation := func() error {
		t, c, err := a.query(ctx, q)
		if err != nil {
			a.logger.Debug("Azure API call failed",
				"subscription_id", a.subscriptionID,
				"error", err)
			return err
		}
		total, currency = t, c
		return nil
	}

	if a.maxRetries <= 0 {
		return total, currency, a.wrap(operation())
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = InitialRetryInterval
	bo.MaxInterval = MaxRetryInterval
	bo.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(a.maxRetries)), ctx))
	return total, currency, a.wrap(err)
}

func (a *Adapter) wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("Azure API error: subscription %s: %w", a.subscriptionID, err)
}

// query performs the actual API call without retry logic
func (a *Adapter) query(ctx context.Context, q Querier) (float64, string, error) {
	scope := fmt.Sprintf("/subscriptions/%s", a.subscriptionID)
	queryType := armcostmanagement.ExportTypeActualCost
	timeframe := armcostmanagement.TimeframeTypeMonthToDate

	queryDef := armcostmanagement.QueryDefinition{
		Type:      &queryType,
		Timeframe: &timeframe,
		Dataset: &armcostmanagement.QueryDataset{
			Aggregation: map[string]*armcostmanagement.QueryAggregation{
				"totalCost": {
					Name:     stringPtr("Cost"),
					Function: functionPtr(armcostmanagement.FunctionTypeSum),
				},
			},
		},
	}

	resp, err := q.Usage(ctx, scope, queryDef, nil)
	if err != nil {
		return 0, "", fmt.Errorf("month-to-date cost query failed: %w", err)
	}

	total, currency := parseTotal(resp.QueryResult)
	return total, currency, nil
}

// costColumns are the names Cost Management uses for the summed amount,
// in order of preference
var costColumns = []string{"totalCost", "Cost", "PreTaxCost", "CostUSD"}

// parseTotal sums the cost column over every row and returns the first
// reported currency
func parseTotal(result armcostmanagement.QueryResult) (float64, string) {
	if result.Properties == nil || result.Properties.Rows == nil {
		return 0, ""
	}

	columnMap := buildColumnMap(result.Properties.Columns)

	costIdx := -1
	for _, name := range costColumns {
		if idx, ok := columnMap[name]; ok {
			costIdx = idx
			break
		}
	}
	if costIdx < 0 {
		return 0, ""
	}

	var (
		total    float64
		currency string
	)
	for _, row := range result.Properties.Rows {
		if len(row) <= costIdx {
			continue
		}
		total += amount.ExtractAmount(row[costIdx])
		if currency == "" {
			currency = getStringFromRow(row, columnMap, "Currency")
		}
	}
	return amount.Finite(total), currency
}

// buildColumnMap creates a map of column names to their indices
func buildColumnMap(columns []*armcostmanagement.QueryColumn) map[string]int {
	columnMap := make(map[string]int)
	for i, col := range columns {
		if col != nil && col.Name != nil {
			columnMap[*col.Name] = i
		}
	}
	return columnMap
}

// getStringFromRow extracts a string value from a row by column name
func getStringFromRow(row []any, columnMap map[string]int, columnName string) string {
	if idx, ok := columnMap[columnName]; ok && len(row) > idx {
		value := strings.TrimSpace(fmt.Sprintf("%v", row[idx]))
		if value != "" && value != "<nil>" {
			return value
		}
	}
	return ""
}

func stringPtr(s string) *string {
	return &s
}

func functionPtr(f armcostmanagement.FunctionType) *armcostmanagement.FunctionType {
	return &f
}
