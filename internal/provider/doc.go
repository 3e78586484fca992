// Package provider defines the normalized billing model shared by every
// provider adapter, the health constructors, and the provider registry.
//
// Each third-party billing source is wrapped in an Adapter:
//
//	type Adapter interface {
//		Fetch(ctx context.Context, now time.Time) Record
//	}
//
// An adapter never returns an error. Every outcome is a Record whose
// Health.Status is exactly one of:
//
//   - unknown: no credential configured, or the provider has no billing API
//   - healthy: the upstream call succeeded
//   - error: the upstream call failed; Health.ErrorMessage says why
//   - degraded: reserved for partial data, currently unused
//
// Adapters build their records through the Meta helpers (Unconfigured,
// Placeholder, Succeeded, Failed) so the static registry fields and the
// numeric invariants (finite amounts, percentage within [0, 100], upper-case
// currency defaulting to USD) are applied in one place.
//
// The Registry owns the ordered list of Entry values. Its order is the order
// of aggregation output and of display.
package provider
