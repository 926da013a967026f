package domain

import (
	"encoding/json"
	"time"
)

// DispatchEvent is the logical trigger for a fan-out. It is transient: only
// the per-webhook delivery logs are persisted.
type DispatchEvent struct {
	ID             string          `json:"id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	UserID         string          `json:"user_id,omitempty"`
	OrganizationID string          `json:"organization_id,omitempty"`
}

// DeliveryResult is the outcome of one delivery attempt to one webhook.
type DeliveryResult struct {
	WebhookID  string `json:"webhook_id"`
	LogID      string `json:"log_id,omitempty"`
	Success    bool   `json:"success"`
	StatusCode *int   `json:"status_code,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// DispatchResult aggregates the fan-out of one event. Partial failure is a
// normal result, not an error.
type DispatchResult struct {
	Dispatched int              `json:"dispatched"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Results    []DeliveryResult `json:"results"`
}

// RetryResult is a delivery result plus the log row's new retry count.
type RetryResult struct {
	DeliveryResult
	RetryCount int `json:"retry_count"`
}

// ActivityEntry is one item in the recent-deliveries feed kept in Redis for
// the dashboard.
type ActivityEntry struct {
	LogID      string    `json:"log_id"`
	WebhookID  string    `json:"webhook_id"`
	EventType  string    `json:"event_type"`
	Status     string    `json:"status"`
	StatusCode *int      `json:"status_code,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
