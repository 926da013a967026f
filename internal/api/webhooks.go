package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sita-labs/webhook-dispatcher/internal/domain"
)

// WebhookReader is the read-only subscription surface exposed to the
// dashboard. Webhook creation and editing live in the SITA configuration UI,
// not here.
type WebhookReader interface {
	ListWebhooks(ctx context.Context) ([]domain.Webhook, error)
	GetWebhook(ctx context.Context, id string) (*domain.Webhook, error)
}

type WebhookHandler struct {
	store WebhookReader
}

func NewWebhookHandler(store WebhookReader) *WebhookHandler {
	return &WebhookHandler{store: store}
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	webhooks, err := h.store.ListWebhooks(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list webhooks")
		return
	}

	// Secrets never leave the service
	for i := range webhooks {
		webhooks[i].Secret = ""
	}

	respondJSON(w, http.StatusOK, webhooks)
}

func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	wh, err := h.store.GetWebhook(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get webhook")
		return
	}
	if wh == nil {
		respondError(w, http.StatusNotFound, "webhook not found")
		return
	}

	wh.Secret = ""
	respondJSON(w, http.StatusOK, wh)
}
