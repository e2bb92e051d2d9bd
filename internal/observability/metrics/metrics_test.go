package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestFlowMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFlowMetrics(reg)

	m.ObserveEvent("message", "handled")
	m.ObserveEvent("message", "handled")
	m.ObserveTransition("IDLE", "REGISTRATION_PHONE")
	m.BookingCreated()
	m.ObserveOutbound("reply", "error")
	m.ObserveWebhookLatency(0.25)

	if got := testutil.ToFloat64(m.eventsTotal.WithLabelValues("message", "handled")); got != 2 {
		t.Fatalf("expected 2 handled messages, got %v", got)
	}
	if got := testutil.ToFloat64(m.bookingsCreated); got != 1 {
		t.Fatalf("expected 1 booking, got %v", got)
	}
	if got := testutil.ToFloat64(m.outboundTotal.WithLabelValues("reply", "error")); got != 1 {
		t.Fatalf("expected 1 failed reply, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var latency *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "spa_webhook_latency_seconds" {
			latency = mf
		}
	}
	if latency == nil {
		t.Fatalf("latency histogram not registered")
	}
	if got := latency.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Fatalf("expected 1 latency sample, got %d", got)
	}
}

func TestFlowMetricsDefaultRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	prev := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = reg
	defer func() { prometheus.DefaultRegisterer = prev }()

	m := NewFlowMetrics(nil)
	m.ObserveTransition("BOOKING_CONFIRM", "IDLE")
	if got := testutil.ToFloat64(m.transitionsTotal.WithLabelValues("BOOKING_CONFIRM", "IDLE")); got != 1 {
		t.Fatalf("expected 1 transition, got %v", got)
	}
}

func TestFlowMetricsNilSafe(t *testing.T) {
	var m *FlowMetrics
	m.ObserveEvent("follow", "handled")
	m.ObserveTransition("IDLE", "IDLE")
	m.BookingCreated()
	m.ObserveOutbound("push", "ok")
	m.ObserveWebhookLatency(0.1)
}
