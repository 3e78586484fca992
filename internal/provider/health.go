package provider

import "time"

// Status is the coarse serviceability of a provider in one cycle
type Status string

// Health statuses
const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
	StatusUnknown  Status = "unknown"
)

// Statuses lists every status, in display order
var Statuses = []Status{StatusHealthy, StatusDegraded, StatusError, StatusUnknown}

// FallbackErrorMessage is used when a failure carries no message
const FallbackErrorMessage = "Unknown error"

// Health is the health block of a Record
type Health struct {
	Status       Status     `json:"status"`
	LastSync     *time.Time `json:"lastSync"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// Unknown marks a provider with no credential or no billing API.
// LastSync stays nil because nothing was contacted.
func Unknown() Health {
	return Health{Status: StatusUnknown}
}

// Healthy marks a successful upstream call at now
func Healthy(now time.Time) Health {
	return Health{Status: StatusHealthy, LastSync: &now}
}

// Degraded marks a call that succeeded with partial or stale data.
// No adapter currently reports it.
func Degraded(now time.Time, msg string) Health {
	return Health{Status: StatusDegraded, LastSync: &now, ErrorMessage: msg}
}

// Failed marks a failed call. An empty msg is replaced by
// FallbackErrorMessage so consumers always have something to show.
func Failed(now time.Time, msg string) Health {
	if msg == "" {
		msg = FallbackErrorMessage
	}
	return Health{Status: StatusError, LastSync: &now, ErrorMessage: msg}
}
