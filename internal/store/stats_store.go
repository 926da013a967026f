package store

import (
	"context"
	"fmt"
)

// DeliveryStats holds aggregated delivery statistics.
type DeliveryStats struct {
	TotalDeliveries int     `json:"total_deliveries"`
	SuccessCount    int     `json:"success_count"`
	FailedCount     int     `json:"failed_count"`
	ErrorCount      int     `json:"error_count"`
	SuccessRate     float64 `json:"success_rate"`
	AvgDurationMs   float64 `json:"avg_duration_ms"`
	ActiveWebhooks  int     `json:"active_webhooks"`
	DisabledWebhooks int    `json:"disabled_webhooks"`
}

// GetDeliveryStats returns aggregated delivery statistics from the database.
func (s *PostgresStore) GetDeliveryStats(ctx context.Context) (*DeliveryStats, error) {
	var st DeliveryStats

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'success') AS success,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed,
			COUNT(*) FILTER (WHERE status = 'error') AS error,
			COALESCE(AVG(duration_ms) FILTER (WHERE duration_ms > 0), 0) AS avg_duration_ms
		FROM webhook_logs
	`).Scan(&st.TotalDeliveries, &st.SuccessCount, &st.FailedCount, &st.ErrorCount, &st.AvgDurationMs)
	if err != nil {
		return nil, fmt.Errorf("querying delivery stats: %w", err)
	}

	if st.TotalDeliveries > 0 {
		st.SuccessRate = float64(st.SuccessCount) / float64(st.TotalDeliveries) * 100
	}

	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE is_active = true),
			COUNT(*) FILTER (WHERE is_active = false)
		FROM webhooks
	`).Scan(&st.ActiveWebhooks, &st.DisabledWebhooks)
	if err != nil {
		return nil, fmt.Errorf("querying webhook counts: %w", err)
	}

	return &st, nil
}
