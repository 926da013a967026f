package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sita-labs/webhook-dispatcher/internal/metrics"
	"github.com/sita-labs/webhook-dispatcher/internal/store"
	ws "github.com/sita-labs/webhook-dispatcher/internal/websocket"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(pgStore *store.PostgresStore, redisStore *store.RedisStore, service DispatchService, hub *ws.Hub) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	r.Use(corsMiddleware)

	// Handlers
	dispatchHandler := NewDispatchHandler(service)
	webhookHandler := NewWebhookHandler(pgStore)
	logHandler := NewLogHandler(pgStore)
	dashHandler := NewDashboardHandler(pgStore, redisStore, hub)

	// Dispatch surface consumed by the rest of the platform
	r.Post("/dispatch", dispatchHandler.Dispatch)
	r.Post("/test", dispatchHandler.Test)
	r.Post("/retry", dispatchHandler.Retry)

	// WebSocket endpoint
	r.Get("/ws", hub.HandleWebSocket)

	// Prometheus
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// Dashboard read API
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler())

		r.Route("/webhooks", func(r chi.Router) {
			r.Get("/", webhookHandler.List)
			r.Get("/{id}", webhookHandler.Get)
		})

		r.Route("/logs", func(r chi.Router) {
			r.Get("/", logHandler.List)
			r.Get("/{id}", logHandler.Get)
		})

		r.Get("/stats", dashHandler.Stats)
		r.Get("/activity", dashHandler.Activity)
	})

	// Unknown paths get a 400, matching the contract callers rely on
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusBadRequest, "Invalid endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusBadRequest, "Invalid endpoint")
	})

	return r
}

// corsMiddleware opens the API to browser callers from any origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
