package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsDispatchCounters(t *testing.T) {
	t.Parallel()

	m := NewMetrics()

	m.IncDispatch("sent")
	m.IncDispatch("sent")
	m.IncDispatch("skipped")
	m.IncDispatch("  FAILED ")
	m.IncDispatch("")

	if got := testutil.ToFloat64(m.dispatchesTotal.WithLabelValues("sent")); got != 2 {
		t.Fatalf("dispatches_total{sent} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.dispatchesTotal.WithLabelValues("skipped")); got != 1 {
		t.Fatalf("dispatches_total{skipped} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.dispatchesTotal.WithLabelValues("failed")); got != 1 {
		t.Fatalf("dispatches_total{failed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.dispatchesTotal.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("dispatches_total{unknown} = %v, want 1", got)
	}
}

func TestMetricsPersistenceWarnings(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.IncPersistenceWarning()
	m.IncPersistenceWarning()

	if got := testutil.ToFloat64(m.persistenceWarningsTotal); got != 2 {
		t.Fatalf("persistence_warnings_total = %v, want 2", got)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.IncDispatch("sent")
	m.ObserveProviderSendDuration(time.Second)
	m.ObserveRecipients(3)
	m.IncPersistenceWarning()
}

func TestMetricsHTTPMiddleware(t *testing.T) {
	t.Parallel()

	m := NewMetrics()

	app := fiber.New()
	app.Use(m.HTTPMiddleware())
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	for _, path := range []string{"/ok", "/boom"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		if err != nil {
			t.Fatalf("app.Test(%s) error = %v", path, err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/ok", "200")); got != 1 {
		t.Fatalf("http_requests_total{GET,/ok,200} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total{GET,/boom,500} = %v, want 1", got)
	}
}

func TestMetricsHandlerServesRegistry(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.IncDispatch("sent")

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(recorder.Result().Body)
	if err != nil {
		t.Fatalf("failed to read metrics body: %v", err)
	}
	if !strings.Contains(string(body), "push_dispatch_dispatches_total") {
		t.Fatal("metrics output should include dispatch counter")
	}
}
