package dispatch

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sita-labs/webhook-dispatcher/internal/domain"
)

// memStore is an in-memory WebhookStore + LogStore used to exercise the
// engine without Postgres.
type memStore struct {
	mu       sync.Mutex
	webhooks map[string]*domain.Webhook
	logs     map[string]*domain.DeliveryLog
	seq      int
}

func newMemStore(webhooks ...*domain.Webhook) *memStore {
	s := &memStore{
		webhooks: make(map[string]*domain.Webhook),
		logs:     make(map[string]*domain.DeliveryLog),
	}
	for _, wh := range webhooks {
		s.webhooks[wh.ID] = wh
	}
	return s
}

func (s *memStore) MatchWebhooks(ctx context.Context, eventType, userID, organizationID string) ([]domain.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.Webhook
	for _, wh := range s.webhooks {
		if !wh.IsActive || !slices.Contains(wh.Events, eventType) {
			continue
		}
		if userID != "" && (wh.UserID == nil || *wh.UserID != userID) {
			continue
		}
		if organizationID != "" && wh.OrganizationID != nil && *wh.OrganizationID != organizationID {
			continue
		}
		matched = append(matched, *wh)
	}
	if matched == nil {
		matched = []domain.Webhook{}
	}
	return matched, nil
}

func (s *memStore) GetWebhook(ctx context.Context, id string) (*domain.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wh, ok := s.webhooks[id]
	if !ok {
		return nil, nil
	}
	cp := *wh
	return &cp, nil
}

func (s *memStore) RecordDeliveryOutcome(ctx context.Context, id string, responseCode *int, success bool, failureThreshold int) (domain.DeliveryOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wh, ok := s.webhooks[id]
	if !ok {
		return domain.DeliveryOutcome{}, fmt.Errorf("webhook %s not found", id)
	}

	if success {
		wh.FailureCount = 0
	} else {
		wh.FailureCount++
		if wh.FailureCount >= failureThreshold {
			wh.IsActive = false
		}
	}
	now := time.Now()
	wh.LastTriggeredAt = &now
	wh.LastResponseCode = responseCode

	return domain.DeliveryOutcome{FailureCount: wh.FailureCount, IsActive: wh.IsActive}, nil
}

func (s *memStore) CreateLog(ctx context.Context, webhookID, eventType string, payload []byte) (*domain.DeliveryLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	l := &domain.DeliveryLog{
		ID:        fmt.Sprintf("log-%d", s.seq),
		WebhookID: webhookID,
		EventType: eventType,
		Payload:   append([]byte(nil), payload...),
		Status:    domain.StatusPending,
		CreatedAt: time.Now(),
	}
	s.logs[l.ID] = l
	cp := *l
	return &cp, nil
}

func (s *memStore) CompleteLog(ctx context.Context, id string, res domain.LogCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[id]
	if !ok {
		return fmt.Errorf("log %s not found", id)
	}

	l.Status = res.Status
	l.ResponseCode = res.ResponseCode
	if res.ResponseBody != "" {
		body := res.ResponseBody
		l.ResponseBody = &body
	}
	if res.ErrorMessage != "" {
		msg := res.ErrorMessage
		l.ErrorMessage = &msg
	}
	dur := res.DurationMs
	l.DurationMs = &dur
	l.UpdatedAt = time.Now()
	return nil
}

func (s *memStore) GetLogWithWebhook(ctx context.Context, id string) (*domain.DeliveryLog, *domain.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[id]
	if !ok {
		return nil, nil, nil
	}
	wh, ok := s.webhooks[l.WebhookID]
	if !ok {
		return nil, nil, nil
	}
	lcp := *l
	wcp := *wh
	return &lcp, &wcp, nil
}

func (s *memStore) MarkRetrying(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[id]
	if !ok {
		return 0, fmt.Errorf("log %s not found", id)
	}
	l.Status = domain.StatusRetrying
	l.RetryCount++
	return l.RetryCount, nil
}

// log returns a copy of a stored log row for assertions.
func (s *memStore) log(id string) *domain.DeliveryLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[id]
	if !ok {
		return nil
	}
	cp := *l
	return &cp
}

// webhook returns a copy of a stored webhook row for assertions.
func (s *memStore) webhook(id string) *domain.Webhook {
	s.mu.Lock()
	defer s.mu.Unlock()
	wh, ok := s.webhooks[id]
	if !ok {
		return nil
	}
	cp := *wh
	return &cp
}

// logCount reports how many log rows exist.
func (s *memStore) logCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}
