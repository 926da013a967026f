package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/sita-labs/webhook-dispatcher/internal/dispatch"
	"github.com/sita-labs/webhook-dispatcher/internal/domain"
	ws "github.com/sita-labs/webhook-dispatcher/internal/websocket"
)

// stubService is a canned DispatchService for handler tests.
type stubService struct {
	dispatchResult *domain.DispatchResult
	testResult     *domain.DeliveryResult
	retryResult    *domain.RetryResult
	testErr        error
	retryErr       error

	lastEvent domain.DispatchEvent
}

func (s *stubService) Dispatch(ctx context.Context, ev domain.DispatchEvent) (*domain.DispatchResult, error) {
	s.lastEvent = ev
	return s.dispatchResult, nil
}

func (s *stubService) Test(ctx context.Context, webhookID string, testPayload json.RawMessage) (*domain.DeliveryResult, error) {
	if s.testErr != nil {
		return nil, s.testErr
	}
	return s.testResult, nil
}

func (s *stubService) Retry(ctx context.Context, logID string) (*domain.RetryResult, error) {
	if s.retryErr != nil {
		return nil, s.retryErr
	}
	return s.retryResult, nil
}

func testRouter(svc DispatchService) http.Handler {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	hub := ws.NewHub(logger)
	go hub.Run()
	return NewRouter(nil, nil, svc, hub)
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestDispatchEndpoint(t *testing.T) {
	svc := &stubService{
		dispatchResult: &domain.DispatchResult{
			Dispatched: 2,
			Successful: 1,
			Failed:     1,
			Results: []domain.DeliveryResult{
				{WebhookID: "wh-a", Success: true},
				{WebhookID: "wh-b", Success: false, Error: "subscriber returned HTTP 500"},
			},
		},
	}
	router := testRouter(svc)

	rec := postJSON(t, router, "/dispatch",
		`{"event_type":"user.created","payload":{"id":"u1"},"organization_id":"org-1"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp domain.DispatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.Dispatched != 2 || resp.Successful != 1 || resp.Failed != 1 {
		t.Errorf("unexpected aggregate: %+v", resp)
	}

	if svc.lastEvent.EventType != "user.created" {
		t.Errorf("event_type = %q, want user.created", svc.lastEvent.EventType)
	}
	if svc.lastEvent.OrganizationID != "org-1" {
		t.Errorf("organization_id = %q, want org-1", svc.lastEvent.OrganizationID)
	}
}

func TestDispatchEndpoint_MissingEventType(t *testing.T) {
	router := testRouter(&stubService{})

	rec := postJSON(t, router, "/dispatch", `{"payload":{}}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDispatchEndpoint_InvalidPayload(t *testing.T) {
	router := testRouter(&stubService{})

	rec := postJSON(t, router, "/dispatch", `{"event_type":"x","payload":"{broken"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTestEndpoint_NotFound(t *testing.T) {
	router := testRouter(&stubService{testErr: dispatch.ErrWebhookNotFound})

	rec := postJSON(t, router, "/test", `{"webhook_id":"missing"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestRetryEndpoint_LimitExceeded(t *testing.T) {
	router := testRouter(&stubService{
		retryErr: fmt.Errorf("%w: log x already retried 3 times", dispatch.ErrRetryLimitExceeded),
	})

	rec := postJSON(t, router, "/retry", `{"log_id":"log-x"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "retry limit exceeded") {
		t.Errorf("body should name the retry limit: %s", rec.Body.String())
	}
}

func TestRetryEndpoint_Success(t *testing.T) {
	code := 200
	router := testRouter(&stubService{
		retryResult: &domain.RetryResult{
			DeliveryResult: domain.DeliveryResult{
				WebhookID:  "wh-a",
				LogID:      "log-1",
				Success:    true,
				StatusCode: &code,
			},
			RetryCount: 2,
		},
	})

	rec := postJSON(t, router, "/retry", `{"log_id":"log-1"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp domain.RetryResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.RetryCount != 2 || !resp.Success {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := testRouter(&stubService{})

	req := httptest.NewRequest(http.MethodOptions, "/dispatch", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "x-client-info") {
		t.Errorf("Allow-Headers = %q, want x-client-info included", got)
	}
}

func TestUnknownEndpoint(t *testing.T) {
	router := testRouter(&stubService{})

	rec := postJSON(t, router, "/nope", `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid endpoint") {
		t.Errorf("body = %s, want Invalid endpoint", rec.Body.String())
	}
}
