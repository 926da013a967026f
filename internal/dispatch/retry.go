package dispatch

import (
	"context"
	"fmt"

	"github.com/sita-labs/webhook-dispatcher/internal/domain"
	"github.com/sita-labs/webhook-dispatcher/internal/metrics"
)

// Retry re-runs a previously logged delivery. The log row is marked retrying
// and its retry_count incremented before the HTTP attempt, so a crash
// mid-retry still reflects that the attempt was made. Returns ErrLogNotFound
// for an unknown id and ErrRetryLimitExceeded once the budget is spent; the
// limit check happens before any HTTP call.
func (e *Engine) Retry(ctx context.Context, logID string) (*domain.RetryResult, error) {
	log, wh, err := e.logs.GetLogWithWebhook(ctx, logID)
	if err != nil {
		return nil, fmt.Errorf("loading delivery log: %w", err)
	}
	if log == nil {
		return nil, ErrLogNotFound
	}

	if log.RetryCount >= e.maxRetries {
		metrics.WebhookRetries.WithLabelValues("limit_exceeded").Inc()
		return nil, fmt.Errorf("%w: log %s already retried %d times", ErrRetryLimitExceeded, logID, log.RetryCount)
	}

	retryCount, err := e.logs.MarkRetrying(ctx, logID)
	if err != nil {
		return nil, fmt.Errorf("marking log retrying: %w", err)
	}

	e.logger.Info("retrying delivery",
		"log_id", logID,
		"webhook_id", wh.ID,
		"event_type", log.EventType,
		"retry_count", retryCount,
	)

	result := e.deliverer.Redeliver(ctx, wh, log)

	if result.Success {
		metrics.WebhookRetries.WithLabelValues("success").Inc()
	} else {
		metrics.WebhookRetries.WithLabelValues("failed").Inc()
	}

	return &domain.RetryResult{
		DeliveryResult: result,
		RetryCount:     retryCount,
	}, nil
}
