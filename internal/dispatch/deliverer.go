package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sita-labs/webhook-dispatcher/internal/domain"
	"github.com/sita-labs/webhook-dispatcher/internal/metrics"
	ws "github.com/sita-labs/webhook-dispatcher/internal/websocket"
)

// maxResponseBodyBytes bounds how much of a subscriber's response is kept on
// the log row.
const maxResponseBodyBytes = 1000

// WebhookStore is the subscription-side storage the deliverer needs.
type WebhookStore interface {
	MatchWebhooks(ctx context.Context, eventType, userID, organizationID string) ([]domain.Webhook, error)
	GetWebhook(ctx context.Context, id string) (*domain.Webhook, error)
	RecordDeliveryOutcome(ctx context.Context, id string, responseCode *int, success bool, failureThreshold int) (domain.DeliveryOutcome, error)
}

// LogStore is the audit-trail storage the deliverer needs.
type LogStore interface {
	CreateLog(ctx context.Context, webhookID, eventType string, payload []byte) (*domain.DeliveryLog, error)
	CompleteLog(ctx context.Context, id string, res domain.LogCompletion) error
	GetLogWithWebhook(ctx context.Context, id string) (*domain.DeliveryLog, *domain.Webhook, error)
	MarkRetrying(ctx context.Context, id string) (int, error)
}

// ActivityRecorder receives delivery outcomes for the recent-activity feed.
type ActivityRecorder interface {
	PushDelivery(ctx context.Context, entry domain.ActivityEntry) error
}

// Broadcaster receives delivery outcomes for live dashboard clients.
type Broadcaster interface {
	Broadcast(event ws.DeliveryEvent)
}

// deliveryPayload is the canonical body sent to subscribers. The signature
// is computed over its JSON serialization.
type deliveryPayload struct {
	Event     string          `json:"event"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	WebhookID string          `json:"webhook_id"`
}

// Deliverer performs single HTTP deliveries to webhook endpoints: signing,
// log recording, failure-count accounting, and auto-disable.
type Deliverer struct {
	httpClient       *http.Client
	webhooks         WebhookStore
	logs             LogStore
	activity         ActivityRecorder
	hub              Broadcaster
	logger           *slog.Logger
	failureThreshold int
}

// NewDeliverer creates a deliverer with a bounded per-call HTTP timeout so
// one hanging subscriber cannot stall a dispatch indefinitely. activity and
// hub may be nil.
func NewDeliverer(webhooks WebhookStore, logs LogStore, activity ActivityRecorder, hub Broadcaster, timeout time.Duration, failureThreshold int, logger *slog.Logger) *Deliverer {
	return &Deliverer{
		httpClient:       &http.Client{Timeout: timeout},
		webhooks:         webhooks,
		logs:             logs,
		activity:         activity,
		hub:              hub,
		logger:           logger,
		failureThreshold: failureThreshold,
	}
}

// Deliver sends one event to one webhook: builds the canonical payload,
// inserts a pending log row, and runs the HTTP attempt against it.
func (d *Deliverer) Deliver(ctx context.Context, wh *domain.Webhook, eventType string, data json.RawMessage) domain.DeliveryResult {
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}

	body, err := json.Marshal(deliveryPayload{
		Event:     eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
		WebhookID: wh.ID,
	})
	if err != nil {
		return domain.DeliveryResult{
			WebhookID: wh.ID,
			Error:     fmt.Sprintf("marshaling payload: %v", err),
		}
	}

	log, err := d.logs.CreateLog(ctx, wh.ID, eventType, body)
	if err != nil {
		d.logger.Error("failed to create delivery log",
			"error", err,
			"webhook_id", wh.ID,
			"event_type", eventType,
		)
		return domain.DeliveryResult{
			WebhookID: wh.ID,
			Error:     fmt.Sprintf("creating delivery log: %v", err),
		}
	}

	return d.attempt(ctx, wh, log.ID, eventType, body)
}

// Redeliver re-runs the HTTP attempt for an existing log row, reusing the
// payload exactly as it was originally sent. The row must already be marked
// retrying by the caller.
func (d *Deliverer) Redeliver(ctx context.Context, wh *domain.Webhook, log *domain.DeliveryLog) domain.DeliveryResult {
	return d.attempt(ctx, wh, log.ID, log.EventType, log.Payload)
}

// attempt performs the HTTP POST and records the outcome on the log row and
// the webhook row. All failure modes resolve to a DeliveryResult; nothing
// propagates as an error to the fan-out.
func (d *Deliverer) attempt(ctx context.Context, wh *domain.Webhook, logID, eventType string, body []byte) domain.DeliveryResult {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return d.resolve(ctx, wh, logID, eventType, start, nil, "", fmt.Sprintf("creating request: %v", err))
	}

	// Custom headers first, signature headers last: a misconfigured custom
	// header can never mask the real signature.
	for k, v := range wh.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", Sign(body, wh.Secret))
	req.Header.Set("X-Webhook-Timestamp", time.Now().UTC().Format(time.RFC3339))
	req.Header.Set("X-Webhook-ID", wh.ID)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return d.resolve(ctx, wh, logID, eventType, start, nil, "", fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))

	return d.resolve(ctx, wh, logID, eventType, start, &resp.StatusCode, string(respBody), "")
}

// resolve records the attempt outcome: log row update, webhook failure
// accounting, metrics, activity feed, and live broadcast.
func (d *Deliverer) resolve(ctx context.Context, wh *domain.Webhook, logID, eventType string, start time.Time, statusCode *int, responseBody, errMsg string) domain.DeliveryResult {
	elapsed := time.Since(start).Milliseconds()

	status := domain.StatusSuccess
	switch {
	case errMsg != "":
		status = domain.StatusError
	case statusCode == nil || *statusCode < 200 || *statusCode >= 300:
		status = domain.StatusFailed
	}
	success := status == domain.StatusSuccess

	if err := d.logs.CompleteLog(ctx, logID, domain.LogCompletion{
		Status:       status,
		ResponseCode: statusCode,
		ResponseBody: responseBody,
		ErrorMessage: errMsg,
		DurationMs:   int(elapsed),
	}); err != nil {
		d.logger.Error("failed to complete delivery log",
			"error", err,
			"log_id", logID,
			"webhook_id", wh.ID,
		)
	}

	outcome, err := d.webhooks.RecordDeliveryOutcome(ctx, wh.ID, statusCode, success, d.failureThreshold)
	if err != nil {
		d.logger.Error("failed to record delivery outcome",
			"error", err,
			"webhook_id", wh.ID,
		)
	} else if !success && !outcome.IsActive {
		d.logger.Warn("webhook auto-disabled after consecutive failures",
			"webhook_id", wh.ID,
			"failure_count", outcome.FailureCount,
			"threshold", d.failureThreshold,
		)
	}

	metrics.WebhookDeliveries.WithLabelValues(eventType, status).Inc()
	metrics.WebhookLatency.WithLabelValues(eventType, status).Observe(float64(elapsed))

	if d.activity != nil {
		if err := d.activity.PushDelivery(ctx, domain.ActivityEntry{
			LogID:      logID,
			WebhookID:  wh.ID,
			EventType:  eventType,
			Status:     status,
			StatusCode: statusCode,
			DurationMs: elapsed,
			Timestamp:  time.Now().UTC(),
		}); err != nil {
			d.logger.Error("failed to push activity entry", "error", err, "log_id", logID)
		}
	}

	if d.hub != nil {
		d.hub.Broadcast(ws.DeliveryEvent{
			Type:       "delivery_" + status,
			LogID:      logID,
			WebhookID:  wh.ID,
			URL:        wh.URL,
			EventType:  eventType,
			StatusCode: statusCode,
			DurationMs: elapsed,
			Error:      errMsg,
			Timestamp:  time.Now().UTC(),
		})
	}

	if success {
		d.logger.Info("delivery successful",
			"log_id", logID,
			"webhook_id", wh.ID,
			"event_type", eventType,
			"status_code", statusCode,
			"duration_ms", elapsed,
		)
	} else {
		d.logger.Warn("delivery failed",
			"log_id", logID,
			"webhook_id", wh.ID,
			"event_type", eventType,
			"status", status,
			"status_code", statusCode,
			"error", errMsg,
			"duration_ms", elapsed,
		)
	}

	result := domain.DeliveryResult{
		WebhookID:  wh.ID,
		LogID:      logID,
		Success:    success,
		StatusCode: statusCode,
		DurationMs: elapsed,
	}
	if errMsg != "" {
		result.Error = errMsg
	} else if !success && statusCode != nil {
		result.Error = fmt.Sprintf("subscriber returned HTTP %d", *statusCode)
	}

	return result
}
