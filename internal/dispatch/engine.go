package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sita-labs/webhook-dispatcher/internal/domain"
	"github.com/sita-labs/webhook-dispatcher/internal/metrics"
	"golang.org/x/sync/semaphore"
)

// TestEventType is the synthetic event type used by test deliveries.
const TestEventType = "webhook.test"

// Engine fans dispatch events out to matching webhooks and coordinates test
// and retry deliveries.
type Engine struct {
	webhooks      WebhookStore
	logs          LogStore
	deliverer     *Deliverer
	maxConcurrent int64
	maxRetries    int
	logger        *slog.Logger
}

func NewEngine(webhooks WebhookStore, logs LogStore, deliverer *Deliverer, maxConcurrent, maxRetries int, logger *slog.Logger) *Engine {
	if maxConcurrent <= 0 {
		maxConcurrent = 32
	}
	return &Engine{
		webhooks:      webhooks,
		logs:          logs,
		deliverer:     deliverer,
		maxConcurrent: int64(maxConcurrent),
		maxRetries:    maxRetries,
		logger:        logger,
	}
}

// Dispatch fans one event out to every matching active webhook. Deliveries
// run concurrently, bounded by the engine's semaphore; one slow or broken
// subscriber cannot block or cancel its siblings. Zero matches is a normal
// result. Only a failed subscription query is an error.
func (e *Engine) Dispatch(ctx context.Context, ev domain.DispatchEvent) (*domain.DispatchResult, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	metrics.Dispatches.WithLabelValues(ev.EventType).Inc()

	webhooks, err := e.webhooks.MatchWebhooks(ctx, ev.EventType, ev.UserID, ev.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("matching webhooks: %w", err)
	}

	if len(webhooks) == 0 {
		e.logger.Info("no matching webhooks",
			"dispatch_id", ev.ID,
			"event_type", ev.EventType,
		)
		return &domain.DispatchResult{Results: []domain.DeliveryResult{}}, nil
	}

	start := time.Now()
	sem := semaphore.NewWeighted(e.maxConcurrent)
	results := make([]domain.DeliveryResult, len(webhooks))

	for i := range webhooks {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = domain.DeliveryResult{
				WebhookID: webhooks[i].ID,
				Error:     fmt.Sprintf("dispatch cancelled: %v", err),
			}
			continue
		}

		go func(i int) {
			defer sem.Release(1)
			results[i] = e.deliverer.Deliver(ctx, &webhooks[i], ev.EventType, ev.Payload)
		}(i)
	}

	// Draining the full semaphore weight waits for every delivery goroutine.
	if err := sem.Acquire(context.Background(), e.maxConcurrent); err == nil {
		sem.Release(e.maxConcurrent)
	}

	res := &domain.DispatchResult{
		Dispatched: len(webhooks),
		Results:    results,
	}
	for _, r := range results {
		if r.Success {
			res.Successful++
		} else {
			res.Failed++
		}
	}

	e.logger.Info("dispatch complete",
		"dispatch_id", ev.ID,
		"event_type", ev.EventType,
		"dispatched", res.Dispatched,
		"successful", res.Successful,
		"failed", res.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return res, nil
}

// Test delivers a synthetic webhook.test event to exactly one webhook.
// Returns ErrWebhookNotFound if the id does not resolve.
func (e *Engine) Test(ctx context.Context, webhookID string, testPayload json.RawMessage) (*domain.DeliveryResult, error) {
	wh, err := e.webhooks.GetWebhook(ctx, webhookID)
	if err != nil {
		return nil, fmt.Errorf("loading webhook: %w", err)
	}
	if wh == nil {
		return nil, ErrWebhookNotFound
	}

	payload := testPayload
	if len(payload) == 0 {
		defaultPayload, _ := json.Marshal(map[string]interface{}{
			"test":      true,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		payload = defaultPayload
	}

	result := e.deliverer.Deliver(ctx, wh, TestEventType, payload)
	return &result, nil
}
