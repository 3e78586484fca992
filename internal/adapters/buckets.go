package adapters

import (
	"context"
	"net/url"

	"github.com/zgpcy/cost-console/internal/amount"
	"github.com/zgpcy/cost-console/internal/upstream"
)

// maxCostPages bounds pagination of bucketed cost reports
const maxCostPages = 10

// sumPagedBuckets walks a bucketed cost report that paginates with
// has_more/next_page and returns the summed amount and the first currency seen.
func sumPagedBuckets(ctx context.Context, client *upstream.Client, path string, query url.Values) (float64, string, error) {
	var (
		total    float64
		currency string
	)
	for page := 0; page < maxCostPages; page++ {
		var resp map[string]any
		if err := client.GetJSON(ctx, path, query, &resp); err != nil {
			return 0, "", err
		}

		total += sumBuckets(resp["data"])
		if currency == "" {
			currency = bucketCurrency(resp["data"])
		}

		next := amount.String(resp["next_page"])
		if hasMore, _ := resp["has_more"].(bool); !hasMore || next == "" {
			break
		}
		query.Set("page", next)
	}
	return amount.Finite(total), currency, nil
}

// sumBuckets adds up a list of time buckets. A bucket contributes the sum of
// its results[].amount when it has results, or its own amount otherwise.
func sumBuckets(data any) float64 {
	var total float64
	for _, bucket := range amount.Objects(data) {
		if results, ok := bucket["results"].([]any); ok {
			total += amount.SumAmounts(results, "amount")
			continue
		}
		total += amount.ExtractAmount(amount.Field(bucket, "amount"))
	}
	return amount.Finite(total)
}

// bucketCurrency returns the first currency found on a bucket amount
func bucketCurrency(data any) string {
	for _, bucket := range amount.Objects(data) {
		for _, r := range amount.Objects(bucket["results"]) {
			if c := amount.String(amount.Path(r, "amount", "currency")); c != "" {
				return c
			}
		}
		if c := amount.String(amount.Field(bucket, "currency")); c != "" {
			return c
		}
	}
	return ""
}
