package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Empty label values break Prometheus queries, so blanks map to a
// sentinel instead.
func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// LedgerMetrics counts crop ledger mutations by operation and outcome.
type LedgerMetrics struct {
	mutations *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crop_ledger_mutations_total",
		Help: "Crop ledger mutations by operation and outcome.",
	}, []string{"op", "outcome"})
	reg.MustRegister(mutations)
	return &LedgerMetrics{mutations: mutations}
}

// IncMutation records one ledger mutation attempt.
func (l *LedgerMetrics) IncMutation(op, outcome string) {
	if l == nil || l.mutations == nil {
		return
	}
	l.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

// ChatMetrics counts chat traffic through persistence and fan-out.
type ChatMetrics struct {
	messagesSent *prometheus.CounterVec
	deliveries   prometheus.Counter
	dropped      prometheus.Counter
	subscribers  prometheus.Gauge
}

// NewChatMetrics registers the chat metrics on the provided registerer.
func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	if reg == nil {
		return &ChatMetrics{}
	}
	messagesSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Persisted chat messages by sender role.",
	}, []string{"role"})
	deliveries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_fanout_deliveries_total",
		Help: "Messages delivered to realtime subscribers.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_fanout_dropped_total",
		Help: "Messages dropped because a subscriber was too slow.",
	})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_stream_subscribers",
		Help: "Currently connected realtime subscribers.",
	})
	reg.MustRegister(messagesSent, deliveries, dropped, subscribers)
	return &ChatMetrics{
		messagesSent: messagesSent,
		deliveries:   deliveries,
		dropped:      dropped,
		subscribers:  subscribers,
	}
}

// IncMessageSent records one persisted message for the sender role.
func (c *ChatMetrics) IncMessageSent(role string) {
	if c == nil || c.messagesSent == nil {
		return
	}
	c.messagesSent.WithLabelValues(normalizeLabel(role)).Inc()
}

// IncDelivery records one successful fan-out delivery.
func (c *ChatMetrics) IncDelivery() {
	if c == nil || c.deliveries == nil {
		return
	}
	c.deliveries.Inc()
}

// IncDropped records one dropped fan-out delivery.
func (c *ChatMetrics) IncDropped() {
	if c == nil || c.dropped == nil {
		return
	}
	c.dropped.Inc()
}

// SubscriberConnected adjusts the live subscriber gauge.
func (c *ChatMetrics) SubscriberConnected() {
	if c == nil || c.subscribers == nil {
		return
	}
	c.subscribers.Inc()
}

// SubscriberDisconnected adjusts the live subscriber gauge.
func (c *ChatMetrics) SubscriberDisconnected() {
	if c == nil || c.subscribers == nil {
		return
	}
	c.subscribers.Dec()
}
