package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sita-labs/webhook-dispatcher/internal/domain"
)

const logColumns = `id, webhook_id, event_type, payload, status, response_code,
	response_body, error_message, duration_ms, retry_count, created_at, updated_at`

func scanLog(row pgx.Row) (*domain.DeliveryLog, error) {
	var l domain.DeliveryLog
	err := row.Scan(
		&l.ID, &l.WebhookID, &l.EventType, &l.Payload, &l.Status,
		&l.ResponseCode, &l.ResponseBody, &l.ErrorMessage,
		&l.DurationMs, &l.RetryCount, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLog inserts a pending delivery log row capturing the payload exactly
// as it will be sent.
func (s *PostgresStore) CreateLog(ctx context.Context, webhookID, eventType string, payload []byte) (*domain.DeliveryLog, error) {
	l, err := scanLog(s.pool.QueryRow(ctx, `
		INSERT INTO webhook_logs (webhook_id, event_type, payload, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+logColumns,
		webhookID, eventType, payload, domain.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("inserting delivery log: %w", err)
	}
	return l, nil
}

// CompleteLog updates the row in place once the HTTP call resolves or fails.
func (s *PostgresStore) CompleteLog(ctx context.Context, id string, res domain.LogCompletion) error {
	var respBody *string
	if res.ResponseBody != "" {
		respBody = &res.ResponseBody
	}

	var errMsg *string
	if res.ErrorMessage != "" {
		errMsg = &res.ErrorMessage
	}

	_, err := s.pool.Exec(ctx, `
		UPDATE webhook_logs
		SET status = $2, response_code = $3, response_body = $4,
		    error_message = $5, duration_ms = $6, updated_at = NOW()
		WHERE id = $1
	`, id, res.Status, res.ResponseCode, respBody, errMsg, res.DurationMs)
	if err != nil {
		return fmt.Errorf("completing delivery log: %w", err)
	}
	return nil
}

// GetLog returns a single delivery log by ID, or nil if it does not exist.
func (s *PostgresStore) GetLog(ctx context.Context, id string) (*domain.DeliveryLog, error) {
	l, err := scanLog(s.pool.QueryRow(ctx,
		`SELECT `+logColumns+` FROM webhook_logs WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying delivery log: %w", err)
	}
	return l, nil
}

// GetLogWithWebhook returns a delivery log joined with its webhook. Both are
// nil when the log row does not exist.
func (s *PostgresStore) GetLogWithWebhook(ctx context.Context, id string) (*domain.DeliveryLog, *domain.Webhook, error) {
	var l domain.DeliveryLog
	var wh domain.Webhook
	err := s.pool.QueryRow(ctx, `
		SELECT l.id, l.webhook_id, l.event_type, l.payload, l.status, l.response_code,
		       l.response_body, l.error_message, l.duration_ms, l.retry_count,
		       l.created_at, l.updated_at,
		       w.id, w.user_id, w.organization_id, w.url, w.secret, w.events, w.headers,
		       w.is_active, w.failure_count, w.last_triggered_at, w.last_response_code,
		       w.created_at, w.updated_at
		FROM webhook_logs l
		JOIN webhooks w ON w.id = l.webhook_id
		WHERE l.id = $1
	`, id).Scan(
		&l.ID, &l.WebhookID, &l.EventType, &l.Payload, &l.Status,
		&l.ResponseCode, &l.ResponseBody, &l.ErrorMessage,
		&l.DurationMs, &l.RetryCount, &l.CreatedAt, &l.UpdatedAt,
		&wh.ID, &wh.UserID, &wh.OrganizationID, &wh.URL, &wh.Secret,
		&wh.Events, &wh.Headers, &wh.IsActive, &wh.FailureCount,
		&wh.LastTriggeredAt, &wh.LastResponseCode, &wh.CreatedAt, &wh.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("querying delivery log with webhook: %w", err)
	}
	return &l, &wh, nil
}

// MarkRetrying flips the row to retrying and increments retry_count before
// the attempt is made, so a crash mid-retry still shows the attempt.
func (s *PostgresStore) MarkRetrying(ctx context.Context, id string) (int, error) {
	var retryCount int
	err := s.pool.QueryRow(ctx, `
		UPDATE webhook_logs
		SET status = $2, retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING retry_count
	`, id, domain.StatusRetrying).Scan(&retryCount)
	if err != nil {
		return 0, fmt.Errorf("marking log retrying: %w", err)
	}
	return retryCount, nil
}

// ListLogs returns delivery logs with optional filtering, newest first.
func (s *PostgresStore) ListLogs(ctx context.Context, webhookID, eventType, status string, limit int) ([]domain.DeliveryLog, error) {
	query := `SELECT ` + logColumns + ` FROM webhook_logs`
	args := []interface{}{}
	argIdx := 1
	conditions := []string{}

	if webhookID != "" {
		conditions = append(conditions, fmt.Sprintf("webhook_id = $%d", argIdx))
		args = append(args, webhookID)
		argIdx++
	}
	if eventType != "" {
		conditions = append(conditions, fmt.Sprintf("event_type = $%d", argIdx))
		args = append(args, eventType)
		argIdx++
	}
	if status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, status)
		argIdx++
	}

	if len(conditions) > 0 {
		query += " WHERE "
		for i, c := range conditions {
			if i > 0 {
				query += " AND "
			}
			query += c
		}
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying delivery logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.DeliveryLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning delivery log: %w", err)
		}
		logs = append(logs, *l)
	}

	if logs == nil {
		logs = []domain.DeliveryLog{}
	}

	return logs, nil
}
