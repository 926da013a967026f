package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sita-labs/webhook-dispatcher/internal/domain"
)

// LogReader is the delivery audit trail surface.
type LogReader interface {
	ListLogs(ctx context.Context, webhookID, eventType, status string, limit int) ([]domain.DeliveryLog, error)
	GetLog(ctx context.Context, id string) (*domain.DeliveryLog, error)
}

type LogHandler struct {
	store LogReader
}

func NewLogHandler(store LogReader) *LogHandler {
	return &LogHandler{store: store}
}

func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	webhookID := r.URL.Query().Get("webhook_id")
	eventType := r.URL.Query().Get("event_type")
	status := r.URL.Query().Get("status")
	limitStr := r.URL.Query().Get("limit")

	limit := 50
	if limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	logs, err := h.store.ListLogs(r.Context(), webhookID, eventType, status, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list delivery logs")
		return
	}

	respondJSON(w, http.StatusOK, logs)
}

func (h *LogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	log, err := h.store.GetLog(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get delivery log")
		return
	}
	if log == nil {
		respondError(w, http.StatusNotFound, "delivery log not found")
		return
	}

	respondJSON(w, http.StatusOK, log)
}
