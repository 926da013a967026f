package dispatch

import "errors"

var (
	// ErrWebhookNotFound is returned when a test delivery names an unknown
	// webhook id.
	ErrWebhookNotFound = errors.New("webhook not found")

	// ErrLogNotFound is returned when a retry names an unknown delivery log
	// id.
	ErrLogNotFound = errors.New("delivery log not found")

	// ErrRetryLimitExceeded is returned when a log row has already used up
	// its retry budget. No HTTP call is made.
	ErrRetryLimitExceeded = errors.New("retry limit exceeded")
)
