// Package adapters holds one provider.Adapter per third-party billing source
// and the default registry that lists them.
//
// Every adapter follows the same shape: an empty gating credential yields
// Meta.Unconfigured without any network call, an upstream failure yields
// Meta.Failed with the upstream.StatusError text, and a successful call is
// normalised through Meta.Succeeded. Providers without a billing API are
// served by Placeholder.
//
// Base URLs default to the public endpoints and can be overridden per
// provider id through the config "endpoints" section.
package adapters
