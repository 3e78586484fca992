// Package azure provides the Azure adapter, backed by the Azure Cost
// Management query API.
//
// The adapter runs one ActualCost query with the MonthToDate timeframe
// against /subscriptions/<AZURE_SUBSCRIPTION_ID>, sums the cost column of the
// result and reads the reported currency. The projected figure is a linear
// extrapolation of the month-to-date total over the length of the month.
//
// Authentication uses azidentity.DefaultAzureCredential (environment,
// workload identity, managed identity or Azure CLI). The credential and query
// client are created on the first fetch so a process without Azure access
// still starts; a failure is reported on that provider's record and retried
// on the next cycle.
//
// Example usage:
//
//	adapter := azure.NewAdapter(cfg, cfg.Aggregation.MaxRetries, log)
//	rec := adapter.Fetch(ctx, time.Now().UTC())
//	fmt.Printf("Azure month to date: %.2f %s\n",
//		rec.Costs.CurrentMonth, rec.Costs.Currency)
package azure
