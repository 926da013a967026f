package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sita-labs/webhook-dispatcher/internal/domain"
	"github.com/sita-labs/webhook-dispatcher/internal/store"
	ws "github.com/sita-labs/webhook-dispatcher/internal/websocket"
)

// StatsReader provides aggregated delivery statistics.
type StatsReader interface {
	GetDeliveryStats(ctx context.Context) (*store.DeliveryStats, error)
}

// ActivityReader provides the recent-deliveries feed.
type ActivityReader interface {
	RecentDeliveries(ctx context.Context, limit int) ([]domain.ActivityEntry, error)
}

type DashboardHandler struct {
	stats    StatsReader
	activity ActivityReader
	hub      *ws.Hub
}

func NewDashboardHandler(stats StatsReader, activity ActivityReader, hub *ws.Hub) *DashboardHandler {
	return &DashboardHandler{stats: stats, activity: activity, hub: hub}
}

// Stats returns aggregated delivery statistics for the dashboard.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetDeliveryStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	type statsResponse struct {
		store.DeliveryStats
		WebSocketClients int `json:"websocket_clients"`
	}

	clients := 0
	if h.hub != nil {
		clients = h.hub.ClientCount()
	}

	respondJSON(w, http.StatusOK, statsResponse{
		DeliveryStats:    *stats,
		WebSocketClients: clients,
	})
}

// Activity returns the most recent delivery outcomes from the Redis feed.
func (h *DashboardHandler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.activity.RecentDeliveries(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read activity feed")
		return
	}

	respondJSON(w, http.StatusOK, entries)
}
