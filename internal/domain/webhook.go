package domain

import (
	"time"
)

// Webhook is a registered outbound endpoint plus the event types it
// subscribes to. Creation and editing happen in the SITA dashboard; the
// dispatcher only mutates the delivery-outcome fields (failure_count,
// is_active, last_triggered_at, last_response_code).
type Webhook struct {
	ID               string            `json:"id"`
	UserID           *string           `json:"user_id,omitempty"`
	OrganizationID   *string           `json:"organization_id,omitempty"`
	URL              string            `json:"url"`
	Secret           string            `json:"secret,omitempty"`
	Events           []string          `json:"events"`
	Headers          map[string]string `json:"headers,omitempty"`
	IsActive         bool              `json:"is_active"`
	FailureCount     int               `json:"failure_count"`
	LastTriggeredAt  *time.Time        `json:"last_triggered_at,omitempty"`
	LastResponseCode *int              `json:"last_response_code,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// DeliveryOutcome is the webhook row state after a delivery attempt has been
// accounted for.
type DeliveryOutcome struct {
	FailureCount int
	IsActive     bool
}
