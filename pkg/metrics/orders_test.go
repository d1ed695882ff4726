package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/dishdash-backend/pkg/enums"
)

func TestOrderMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.IncPlaced()
	m.IncPlaced()
	m.IncTransition(enums.OrderStatusPlaced, enums.OrderStatusAccepted)
	m.AddExpired(3)
	m.AddExpired(0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got := findMetric(t, mfs, "orders_placed_total", nil).GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected orders_placed_total=2, got %f", got)
	}
	transition := findMetric(t, mfs, "order_transitions_total", map[string]string{"from": "placed", "to": "accepted"})
	if got := transition.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected one accepted transition, got %f", got)
	}
	if got := findMetric(t, mfs, "orders_expired_total", nil).GetCounter().GetValue(); got != 3 {
		t.Fatalf("expected orders_expired_total=3, got %f", got)
	}
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe(http.MethodGet, "/api/v1/orders/{orderId}", http.StatusOK, 20*time.Millisecond)
	m.Observe(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	routed := findMetric(t, mfs, "http_requests_total", map[string]string{"route": "/api/v1/orders/{orderId}"})
	if got := routed.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected one request for route, got %f", got)
	}
	unmatched := findMetric(t, mfs, "http_requests_total", map[string]string{"route": "unmatched"})
	if got := unmatched.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected unmatched route label, got %f", got)
	}
	latency := findMetric(t, mfs, "http_request_duration_seconds", map[string]string{"method": "GET"})
	if latency.GetHistogram().GetSampleSum() <= 0 {
		t.Fatalf("expected latency recorded")
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var orders *OrderMetrics
	orders.IncPlaced()
	orders.IncTransition(enums.OrderStatusReady, enums.OrderStatusPickedUp)
	var cron *CronJobMetrics
	cron.IncSuccess("job")
	NewHTTPMetrics(nil).Observe(http.MethodGet, "/", http.StatusOK, time.Second)
}

func TestOutboxMetricsCountsRows(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncRow("order_placed", "published")
	m.IncRow("order_placed", "published")
	m.IncRow("order_status_changed", "retry")
	m.IncBatchError()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	published := findMetric(t, mfs, "outbox_rows_total", map[string]string{"event_type": "order_placed", "result": "published"})
	if published.GetCounter().GetValue() != 2 {
		t.Fatalf("expected two published rows")
	}
	if findMetric(t, mfs, "outbox_batch_errors_total", nil).GetCounter().GetValue() != 1 {
		t.Fatalf("expected one batch error")
	}

	var nilMetrics *OutboxMetrics
	nilMetrics.IncRow("x", "y")
	nilMetrics.IncBatchError()
}
