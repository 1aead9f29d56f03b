package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/chronicle/pkg/config"
	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/retention"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func enabledConfig() *config.MetricsConfig {
	on := true
	return &config.MetricsConfig{Enabled: &on, Path: "/metrics", Namespace: "test"}
}

func TestObserveQuery(t *testing.T) {
	c := NewCollector(enabledConfig(), nil)

	c.ObserveQuery("process-instance", "list", 2*time.Millisecond, 3, nil)
	c.ObserveQuery("process-instance", "list", time.Millisecond, 1, nil)
	c.ObserveQuery("process-instance", "count", time.Millisecond, 0, history.NewExecutionError("sqlite", "count", errors.New("locked")))

	ok := c.queryMetrics.operationsTotal.WithLabelValues("process-instance", "list", "ok")
	if got := testutil.ToFloat64(ok); got != 2 {
		t.Errorf("ok operations = %v, want 2", got)
	}
	failed := c.queryMetrics.operationsTotal.WithLabelValues("process-instance", "count", "error")
	if got := testutil.ToFloat64(failed); got != 1 {
		t.Errorf("failed operations = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(c.queryMetrics.rows); n != 1 {
		t.Errorf("rows series = %d, want 1 (failures are not observed)", n)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{history.NewUsageError("bad"), "usage_error"},
		{fmt.Errorf("wrapped: %w", history.NewInvalidArgumentError("maxResults", "negative")), "invalid_argument"},
		{history.NewAmbiguousResultError(2), "ambiguous"},
		{history.NewPolicyError("policies.yaml", errors.New("parse")), "policy_error"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := status(tt.err); got != tt.want {
			t.Errorf("status(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestPublishReport(t *testing.T) {
	c := NewCollector(enabledConfig(), nil)

	c.PublishReport(retention.ProcessDefinition, []retention.Row{
		{GroupingKey: "invoice:1", FinishedCount: 10, CleanableCount: 4},
		{GroupingKey: "invoice:2", FinishedCount: 3, CleanableCount: 0},
	})

	cleanable := c.retentionMetrics.cleanable.WithLabelValues("process-definition", "invoice:1")
	if got := testutil.ToFloat64(cleanable); got != 4 {
		t.Errorf("cleanable = %v, want 4", got)
	}
	if n := testutil.CollectAndCount(c.retentionMetrics.finished); n != 2 {
		t.Errorf("finished series = %d, want 2", n)
	}

	// A later run without invoice:2 drops its series.
	c.PublishReport(retention.ProcessDefinition, []retention.Row{
		{GroupingKey: "invoice:1", FinishedCount: 12, CleanableCount: 5},
	})
	if n := testutil.CollectAndCount(c.retentionMetrics.finished); n != 1 {
		t.Errorf("finished series after republish = %d, want 1", n)
	}
	if got := testutil.ToFloat64(c.retentionMetrics.finished.WithLabelValues("process-definition", "invoice:1")); got != 12 {
		t.Errorf("finished = %v, want 12", got)
	}
}

func TestPublishReportOverflow(t *testing.T) {
	c := NewCollector(enabledConfig(), nil)
	c.retentionMetrics.limiter = NewCardinalityLimiter(1)

	c.PublishReport(retention.BatchOperation, []retention.Row{
		{GroupingKey: "migration", FinishedCount: 1, CleanableCount: 1},
		{GroupingKey: "deletion", FinishedCount: 2, CleanableCount: 2},
		{GroupingKey: "restart", FinishedCount: 3, CleanableCount: 0},
	})

	other := c.retentionMetrics.finished.WithLabelValues("batch", overflowKey)
	if got := testutil.ToFloat64(other); got != 5 {
		t.Errorf("overflow finished = %v, want 5", got)
	}
}

func TestDisabledCollector(t *testing.T) {
	off := false
	c := NewCollector(&config.MetricsConfig{Enabled: &off}, nil)
	if c.Enabled() {
		t.Fatal("collector should be disabled")
	}

	c.ObserveQuery("process-instance", "list", time.Millisecond, 1, nil)
	c.ObserveReport("batch", time.Millisecond, 1, nil)
	c.PublishReport(retention.BatchOperation, []retention.Row{{GroupingKey: "x", FinishedCount: 1}})

	if n := testutil.CollectAndCount(c.queryMetrics.operationsTotal); n != 0 {
		t.Errorf("operations series = %d, want 0", n)
	}
	if n := testutil.CollectAndCount(c.retentionMetrics.finished); n != 0 {
		t.Errorf("finished series = %d, want 0", n)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)
	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("first two label sets should be allowed")
	}
	if cl.Allow("c") {
		t.Error("third label set should be refused")
	}
	if !cl.Allow("a") {
		t.Error("known label set should stay allowed")
	}
	if cl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cl.Count())
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector(enabledConfig(), nil)
	c.ObserveReport("process-definition", time.Millisecond, 2, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_report_runs_total") {
		t.Errorf("report counter missing from exposition:\n%s", rec.Body.String())
	}
}

func TestCollector_RegisterRuntime(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{}, nil)
	if err := c.RegisterRuntime(); err != nil {
		t.Fatalf("RegisterRuntime() = %v", err)
	}
	if err := c.RegisterRuntime(); err == nil {
		t.Error("second RegisterRuntime() should report a duplicate registration")
	}
}
