package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sita-labs/webhook-dispatcher/internal/domain"
)

// ActivityKey is the Redis list holding the most recent delivery outcomes.
const ActivityKey = "webhook:recent_deliveries"

// activityMaxEntries caps the feed; older entries are trimmed away.
const activityMaxEntries = 100

// PushDelivery prepends a delivery outcome to the recent-activity feed and
// trims it to the cap. Best-effort: callers log failures, they never block a
// delivery.
func (s *RedisStore) PushDelivery(ctx context.Context, entry domain.ActivityEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling activity entry: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.LPush(ctx, ActivityKey, data)
	pipe.LTrim(ctx, ActivityKey, 0, activityMaxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pushing activity entry: %w", err)
	}

	return nil
}

// RecentDeliveries returns up to limit entries from the feed, newest first.
func (s *RedisStore) RecentDeliveries(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	if limit <= 0 || limit > activityMaxEntries {
		limit = activityMaxEntries
	}

	items, err := s.client.LRange(ctx, ActivityKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading activity feed: %w", err)
	}

	entries := make([]domain.ActivityEntry, 0, len(items))
	for _, item := range items {
		var e domain.ActivityEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			// Skip malformed entries rather than failing the whole read
			continue
		}
		entries = append(entries, e)
	}

	return entries, nil
}
