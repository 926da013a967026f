package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sita-labs/webhook-dispatcher/internal/dispatch"
	"github.com/sita-labs/webhook-dispatcher/internal/domain"
)

// DispatchService is the engine surface the HTTP handlers need.
type DispatchService interface {
	Dispatch(ctx context.Context, ev domain.DispatchEvent) (*domain.DispatchResult, error)
	Test(ctx context.Context, webhookID string, testPayload json.RawMessage) (*domain.DeliveryResult, error)
	Retry(ctx context.Context, logID string) (*domain.RetryResult, error)
}

type DispatchHandler struct {
	service DispatchService
}

func NewDispatchHandler(service DispatchService) *DispatchHandler {
	return &DispatchHandler{service: service}
}

type dispatchRequest struct {
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	UserID         string          `json:"user_id,omitempty"`
	OrganizationID string          `json:"organization_id,omitempty"`
}

// Dispatch fans one event out to all matching webhooks.
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.EventType == "" {
		respondError(w, http.StatusBadRequest, "event_type is required")
		return
	}
	if len(req.Payload) > 0 && !json.Valid(req.Payload) {
		respondError(w, http.StatusBadRequest, "payload must be valid JSON")
		return
	}

	result, err := h.service.Dispatch(r.Context(), domain.DispatchEvent{
		EventType:      req.EventType,
		Payload:        req.Payload,
		UserID:         req.UserID,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type testRequest struct {
	WebhookID   string          `json:"webhook_id"`
	TestPayload json.RawMessage `json:"test_payload,omitempty"`
}

// Test delivers a synthetic webhook.test event to one webhook.
func (h *DispatchHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.WebhookID == "" {
		respondError(w, http.StatusBadRequest, "webhook_id is required")
		return
	}
	if len(req.TestPayload) > 0 && !json.Valid(req.TestPayload) {
		respondError(w, http.StatusBadRequest, "test_payload must be valid JSON")
		return
	}

	result, err := h.service.Test(r.Context(), req.WebhookID, req.TestPayload)
	if err != nil {
		if errors.Is(err, dispatch.ErrWebhookNotFound) {
			respondError(w, http.StatusNotFound, "webhook not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type retryRequest struct {
	LogID string `json:"log_id"`
}

// Retry re-runs a previously logged delivery, bounded by the retry budget.
func (h *DispatchHandler) Retry(w http.ResponseWriter, r *http.Request) {
	var req retryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.LogID == "" {
		respondError(w, http.StatusBadRequest, "log_id is required")
		return
	}

	result, err := h.service.Retry(r.Context(), req.LogID)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrLogNotFound):
			respondError(w, http.StatusNotFound, "delivery log not found")
		case errors.Is(err, dispatch.ErrRetryLimitExceeded):
			respondError(w, http.StatusBadRequest, "retry limit exceeded")
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}
