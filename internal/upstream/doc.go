// Package upstream is the HTTP plumbing shared by provider adapters.
//
// A Client is bound to one provider. It adds authentication headers and the
// service User-Agent, decodes JSON responses, and turns non-2xx responses into
// *StatusError values whose message reads
//
//	<Provider> API error <status>: <collapsed body excerpt> Hint: <remediation>
//
// The excerpt is limited to MaxExcerpt characters. Hints come from the
// provider-specific HintFunc given to WithHint, then DefaultHint.
//
// Retries are off unless WithRetries is set. When enabled, transport failures,
// 429 and 5xx responses are retried with exponential backoff; other statuses
// fail immediately.
package upstream
