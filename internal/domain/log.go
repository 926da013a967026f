package domain

import (
	"encoding/json"
	"time"
)

// Delivery log statuses. A row moves pending -> success/failed/error, and a
// caller-driven retry moves it failed/error -> retrying -> terminal again on
// the same row.
const (
	StatusPending  = "pending"
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusError    = "error"
	StatusRetrying = "retrying"
)

// DeliveryLog is one delivery attempt, including the payload exactly as it
// was sent so the attempt can be audited and replayed.
type DeliveryLog struct {
	ID           string          `json:"id"`
	WebhookID    string          `json:"webhook_id"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	ResponseCode *int            `json:"response_code,omitempty"`
	ResponseBody *string         `json:"response_body,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	DurationMs   *int            `json:"duration_ms,omitempty"`
	RetryCount   int             `json:"retry_count"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LogCompletion carries the result of a resolved HTTP attempt back onto the
// pending/retrying log row.
type LogCompletion struct {
	Status       string
	ResponseCode *int
	ResponseBody string
	ErrorMessage string
	DurationMs   int
}
