package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pavra/push-dispatch/internal/domain"
	"github.com/pavra/push-dispatch/internal/provider"
	"github.com/pavra/push-dispatch/internal/queue"
	"github.com/pavra/push-dispatch/internal/service"
	"github.com/pavra/push-dispatch/internal/transport"
	"go.uber.org/zap"
)

type stubDispatchService struct {
	dispatchFn func(ctx context.Context, notificationID string) (*service.DispatchResult, error)
}

func (s *stubDispatchService) Dispatch(ctx context.Context, notificationID string) (*service.DispatchResult, error) {
	return s.dispatchFn(ctx, notificationID)
}

type stubPublisher struct {
	published []queue.DispatchMessage
	err       error
}

func (p *stubPublisher) Publish(_ context.Context, _ string, msg queue.DispatchMessage) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func (p *stubPublisher) Close() error {
	return nil
}

func TestDispatchIntegration_Dispatch(t *testing.T) {
	t.Parallel()

	svc := &stubDispatchService{
		dispatchFn: func(ctx context.Context, notificationID string) (*service.DispatchResult, error) {
			if notificationID != "n1" {
				t.Fatalf("notificationID = %s, want n1", notificationID)
			}
			return &service.DispatchResult{
				NotificationID: "n1",
				ProviderID:     "p1",
				Recipients:     2,
			}, nil
		},
	}

	app := newDispatchTestApp(t, svc, nil)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/notifications/dispatch", `{"notificationId":"n1"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["success"] != true {
		t.Fatalf("success = %v, want true", parsed["success"])
	}
	if parsed["notificationId"] != "n1" {
		t.Fatalf("notificationId = %v, want n1", parsed["notificationId"])
	}
	if parsed["providerId"] != "p1" {
		t.Fatalf("providerId = %v, want p1", parsed["providerId"])
	}
	if parsed["recipients"] != float64(2) {
		t.Fatalf("recipients = %v, want 2", parsed["recipients"])
	}
}

func TestDispatchIntegration_DispatchSkipped(t *testing.T) {
	t.Parallel()

	svc := &stubDispatchService{
		dispatchFn: func(ctx context.Context, notificationID string) (*service.DispatchResult, error) {
			return &service.DispatchResult{
				NotificationID: notificationID,
				Skipped:        true,
				SkipReason:     "notification status is DRAFT, skipping send",
			}, nil
		},
	}

	app := newDispatchTestApp(t, svc, nil)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/notifications/dispatch", `{"notificationId":"n-draft"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["success"] != true {
		t.Fatalf("success = %v, want true", parsed["success"])
	}
	if parsed["skipped"] != true {
		t.Fatalf("skipped = %v, want true", parsed["skipped"])
	}
	if parsed["message"] != "notification status is DRAFT, skipping send" {
		t.Fatalf("message = %v, want skip reason", parsed["message"])
	}
	if _, ok := parsed["recipients"]; ok {
		t.Fatal("recipients should be omitted for a skipped dispatch")
	}
}

func TestDispatchIntegration_DispatchErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "validation",
			err:        fmt.Errorf("%w: notification id is required", domain.ErrValidation),
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "not found",
			err:        fmt.Errorf("notification n-missing: %w", domain.ErrNotFound),
			wantStatus: fiber.StatusNotFound,
		},
		{
			name:       "empty audience",
			err:        fmt.Errorf("%w: no target users", domain.ErrEmptyAudience),
			wantStatus: fiber.StatusUnprocessableEntity,
		},
		{
			name:       "unknown target type",
			err:        fmt.Errorf("%w: %q", domain.ErrUnknownTargetType, "cohort"),
			wantStatus: fiber.StatusUnprocessableEntity,
		},
		{
			name:       "audience lookup",
			err:        fmt.Errorf("%w: directory unavailable", domain.ErrAudienceLookup),
			wantStatus: fiber.StatusBadGateway,
		},
		{
			name:       "missing credentials",
			err:        domain.ErrMissingCredentials,
			wantStatus: fiber.StatusInternalServerError,
		},
		{
			name:       "provider rejection",
			err:        &provider.ProviderError{StatusCode: 422, Body: "invalid app_id"},
			wantStatus: fiber.StatusBadGateway,
		},
		{
			name:       "unexpected",
			err:        fmt.Errorf("database connection lost"),
			wantStatus: fiber.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &stubDispatchService{
				dispatchFn: func(ctx context.Context, notificationID string) (*service.DispatchResult, error) {
					return nil, tt.err
				},
			}

			app := newDispatchTestApp(t, svc, nil)

			resp, body := performRequest(t, app, http.MethodPost, "/v1/notifications/dispatch", `{"notificationId":"n1"}`)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body=%s", resp.StatusCode, tt.wantStatus, string(body))
			}

			var parsed map[string]any
			if err := json.Unmarshal(body, &parsed); err != nil {
				t.Fatalf("json unmarshal error = %v", err)
			}
			if parsed["success"] != false {
				t.Fatalf("success = %v, want false", parsed["success"])
			}
			if parsed["error"] == "" {
				t.Fatal("error message should not be empty")
			}
		})
	}
}

func TestDispatchIntegration_DispatchAsync(t *testing.T) {
	t.Parallel()

	svc := &stubDispatchService{
		dispatchFn: func(ctx context.Context, notificationID string) (*service.DispatchResult, error) {
			t.Fatal("synchronous dispatch should not run for the async route")
			return nil, nil
		},
	}
	pub := &stubPublisher{}

	app := newDispatchTestApp(t, svc, pub)

	req := httptest.NewRequest(http.MethodPost, "/v1/notifications/dispatch/async", bytes.NewBufferString(`{"notificationId":"n1"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderXRequestID, "req-42")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", resp.StatusCode, string(body))
	}
	if len(pub.published) != 1 {
		t.Fatalf("published = %d messages, want 1", len(pub.published))
	}
	if pub.published[0].NotificationID != "n1" {
		t.Fatalf("NotificationID = %s, want n1", pub.published[0].NotificationID)
	}
	if pub.published[0].CorrelationID != "req-42" {
		t.Fatalf("CorrelationID = %s, want req-42 from X-Request-ID", pub.published[0].CorrelationID)
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["queued"] != true {
		t.Fatalf("queued = %v, want true", parsed["queued"])
	}
}

func TestDispatchIntegration_DispatchAsyncValidation(t *testing.T) {
	t.Parallel()

	svc := &stubDispatchService{
		dispatchFn: func(ctx context.Context, notificationID string) (*service.DispatchResult, error) {
			return nil, nil
		},
	}
	pub := &stubPublisher{}

	app := newDispatchTestApp(t, svc, pub)

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/notifications/dispatch/async", `{"notificationId":"  "}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for blank notificationId", resp.StatusCode)
	}
	if len(pub.published) != 0 {
		t.Fatalf("published = %d messages, want 0", len(pub.published))
	}
}

func TestDispatchIntegration_AsyncRouteNotRegisteredWithoutPublisher(t *testing.T) {
	t.Parallel()

	svc := &stubDispatchService{
		dispatchFn: func(ctx context.Context, notificationID string) (*service.DispatchResult, error) {
			return nil, nil
		},
	}

	app := newDispatchTestApp(t, svc, nil)

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/notifications/dispatch/async", `{"notificationId":"n1"}`)
	if resp.StatusCode == fiber.StatusAccepted {
		t.Fatal("async route should not accept requests without a publisher")
	}
}

func TestDispatchIntegration_InvalidBody(t *testing.T) {
	t.Parallel()

	svc := &stubDispatchService{
		dispatchFn: func(ctx context.Context, notificationID string) (*service.DispatchResult, error) {
			t.Fatal("dispatch should not run for an unparsable body")
			return nil, nil
		},
	}

	app := newDispatchTestApp(t, svc, nil)

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/notifications/dispatch", `{not-json`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid body", resp.StatusCode)
	}
}

func newDispatchTestApp(t *testing.T, svc DispatchService, publisher queue.Publisher) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterDispatchRoutes(app, svc, publisher); err != nil {
		t.Fatalf("RegisterDispatchRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}
