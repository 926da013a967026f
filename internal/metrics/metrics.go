package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the dispatcher.
	Registry = prometheus.NewRegistry()

	// Dispatches counts dispatch calls by event type.
	Dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_dispatches_total", Help: "Dispatch calls by event type."},
		[]string{"event_type"},
	)
	// WebhookDeliveries counts delivery outcomes by event type and status.
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks delivery latencies in milliseconds.
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000}},
		[]string{"event_type", "status"},
	)
	// WebhookRetries counts caller-driven retry attempts by outcome.
	WebhookRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_retries_total", Help: "Caller-driven retry attempts by outcome."},
		[]string{"outcome"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on the dispatcher registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(Dispatches)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		Registry.MustRegister(WebhookRetries)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
