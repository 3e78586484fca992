package upstream

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// MaxExcerpt is the longest body excerpt carried in an error message
const MaxExcerpt = 600

// StatusError is returned for every non-2xx upstream response
type StatusError struct {
	Provider   string
	StatusCode int
	Excerpt    string
	Hint       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s API error %d", e.Provider, e.StatusCode)
	if e.Excerpt != "" {
		msg += ": " + e.Excerpt
	}
	if e.Hint != "" {
		msg += " Hint: " + e.Hint
	}
	return msg
}

// Retryable reports whether the same request may succeed on a later attempt
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Excerpt collapses whitespace runs in body and truncates the result to
// MaxExcerpt runes, ending with "..." when cut.
func Excerpt(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if utf8.RuneCountInString(s) <= MaxExcerpt {
		return s
	}
	r := []rune(s)
	return string(r[:MaxExcerpt-3]) + "..."
}

// HintFunc maps a failed response to a remediation hint, or ""
type HintFunc func(status int, body string) string

// Common remediation hints
const (
	HintInvalidCredential = "check that the credential is valid and not revoked"
	HintMissingScope      = "key is missing required scope"
	HintRateLimited       = "rate limited by provider; the next cycle will retry"
)

// DefaultHint recognises failure signatures shared by every provider
func DefaultHint(status int, body string) string {
	switch status {
	case http.StatusUnauthorized:
		return HintInvalidCredential
	case http.StatusForbidden:
		lower := strings.ToLower(body)
		if strings.Contains(lower, "scope") || strings.Contains(lower, "permission") {
			return HintMissingScope
		}
	case http.StatusTooManyRequests:
		return HintRateLimited
	}
	return ""
}

// Hints chains hint functions; the first non-empty hint wins
func Hints(funcs ...HintFunc) HintFunc {
	return func(status int, body string) string {
		for _, f := range funcs {
			if f == nil {
				continue
			}
			if h := f(status, body); h != "" {
				return h
			}
		}
		return ""
	}
}

// OnStatus returns a HintFunc that yields hint for the listed statuses
func OnStatus(hint string, statuses ...int) HintFunc {
	return func(status int, _ string) string {
		for _, s := range statuses {
			if s == status {
				return hint
			}
		}
		return ""
	}
}
