package metrics

import "github.com/prometheus/client_golang/prometheus"

// FlowMetrics exposes counters/histograms for the LINE booking flow.
type FlowMetrics struct {
	eventsTotal      *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	bookingsCreated  prometheus.Counter
	outboundTotal    *prometheus.CounterVec
	webhookLatency   prometheus.Histogram
}

func NewFlowMetrics(reg prometheus.Registerer) *FlowMetrics {
	m := &FlowMetrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spa",
			Name:      "line_events_total",
			Help:      "Total LINE webhook events by type and handling status",
		}, []string{"event_type", "status"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spa",
			Name:      "flow_transitions_total",
			Help:      "Conversation state transitions",
		}, []string{"from", "to"}),
		bookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spa",
			Name:      "bookings_created_total",
			Help:      "Bookings committed from the chat flow",
		}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spa",
			Name:      "outbound_messages_total",
			Help:      "Outbound LINE sends by kind (reply|push) and status",
		}, []string{"kind", "status"}),
		webhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "spa",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of dispatching one LINE webhook batch",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.eventsTotal, m.transitionsTotal, m.bookingsCreated, m.outboundTotal, m.webhookLatency)
	return m
}

func (m *FlowMetrics) ObserveEvent(eventType, status string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(eventType, status).Inc()
}

// ObserveTransition counts a state change. Self-transitions are counted too.
func (m *FlowMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *FlowMetrics) BookingCreated() {
	if m == nil {
		return
	}
	m.bookingsCreated.Inc()
}

func (m *FlowMetrics) ObserveOutbound(kind, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *FlowMetrics) ObserveWebhookLatency(seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.Observe(seconds)
}
