package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sita-labs/webhook-dispatcher/internal/domain"
)

const webhookColumns = `id, user_id, organization_id, url, secret, events, headers,
	is_active, failure_count, last_triggered_at, last_response_code, created_at, updated_at`

func scanWebhook(row pgx.Row) (*domain.Webhook, error) {
	var wh domain.Webhook
	err := row.Scan(
		&wh.ID, &wh.UserID, &wh.OrganizationID, &wh.URL, &wh.Secret,
		&wh.Events, &wh.Headers, &wh.IsActive, &wh.FailureCount,
		&wh.LastTriggeredAt, &wh.LastResponseCode, &wh.CreatedAt, &wh.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &wh, nil
}

// MatchWebhooks returns active webhooks subscribed to the event type. A user
// id restricts results to that user's webhooks; an organization id admits
// rows scoped to that org plus rows with no org (user-level webhooks stay
// visible inside any org context). An empty result is normal, not an error.
func (s *PostgresStore) MatchWebhooks(ctx context.Context, eventType, userID, organizationID string) ([]domain.Webhook, error) {
	query := `SELECT ` + webhookColumns + `
		FROM webhooks
		WHERE is_active = true AND events @> ARRAY[$1]`
	args := []interface{}{eventType}
	argIdx := 2

	if userID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, userID)
		argIdx++
	}
	if organizationID != "" {
		query += fmt.Sprintf(" AND (organization_id = $%d OR organization_id IS NULL)", argIdx)
		args = append(args, organizationID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("matching webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []domain.Webhook
	for rows.Next() {
		wh, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning webhook: %w", err)
		}
		webhooks = append(webhooks, *wh)
	}

	if webhooks == nil {
		webhooks = []domain.Webhook{}
	}

	return webhooks, nil
}

// GetWebhook returns a single webhook by ID, or nil if it does not exist.
func (s *PostgresStore) GetWebhook(ctx context.Context, id string) (*domain.Webhook, error) {
	wh, err := scanWebhook(s.pool.QueryRow(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying webhook: %w", err)
	}
	return wh, nil
}

// ListWebhooks returns all webhooks, newest first.
func (s *PostgresStore) ListWebhooks(ctx context.Context) ([]domain.Webhook, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+webhookColumns+` FROM webhooks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []domain.Webhook
	for rows.Next() {
		wh, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning webhook: %w", err)
		}
		webhooks = append(webhooks, *wh)
	}

	if webhooks == nil {
		webhooks = []domain.Webhook{}
	}

	return webhooks, nil
}

// RecordDeliveryOutcome folds one delivery attempt into the webhook row.
// Success resets failure_count to 0; failure increments it in a single UPDATE
// so concurrent dispatches cannot lose counts. Once the counter reaches the
// threshold the webhook is disabled, one-directionally: this statement never
// re-enables a webhook.
func (s *PostgresStore) RecordDeliveryOutcome(ctx context.Context, id string, responseCode *int, success bool, failureThreshold int) (domain.DeliveryOutcome, error) {
	var out domain.DeliveryOutcome
	var err error

	if success {
		err = s.pool.QueryRow(ctx, `
			UPDATE webhooks
			SET failure_count = 0,
			    last_triggered_at = NOW(),
			    last_response_code = $2,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING failure_count, is_active
		`, id, responseCode).Scan(&out.FailureCount, &out.IsActive)
	} else {
		err = s.pool.QueryRow(ctx, `
			UPDATE webhooks
			SET failure_count = failure_count + 1,
			    is_active = is_active AND (failure_count + 1 < $3),
			    last_triggered_at = NOW(),
			    last_response_code = $2,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING failure_count, is_active
		`, id, responseCode, failureThreshold).Scan(&out.FailureCount, &out.IsActive)
	}
	if err != nil {
		return out, fmt.Errorf("recording delivery outcome: %w", err)
	}

	return out, nil
}
