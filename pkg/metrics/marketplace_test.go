package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if matchesLabels(metric, labels) {
				if metric.GetCounter() != nil {
					return metric.GetCounter().GetValue()
				}
				return metric.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func matchesLabels(metric *dto.Metric, labels map[string]string) bool {
	if len(labels) == 0 {
		return true
	}
	found := map[string]string{}
	for _, pair := range metric.GetLabel() {
		found[pair.GetName()] = pair.GetValue()
	}
	for k, v := range labels {
		if found[k] != v {
			return false
		}
	}
	return true
}

func TestLedgerMetricsCountsByOpAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)

	m.IncMutation("decrease", "insufficient")
	m.IncMutation("decrease", "insufficient")
	m.IncMutation("increase", "ok")

	got := counterValue(t, reg, "crop_ledger_mutations_total", map[string]string{"op": "decrease", "outcome": "insufficient"})
	if got != 2 {
		t.Fatalf("expected 2 insufficient decreases, got %v", got)
	}
}

func TestChatMetricsSubscriberGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.SubscriberConnected()
	m.SubscriberConnected()
	m.SubscriberDisconnected()
	m.IncMessageSent("farmer")
	m.IncDelivery()
	m.IncDropped()

	if got := counterValue(t, reg, "chat_stream_subscribers", nil); got != 1 {
		t.Fatalf("expected 1 live subscriber, got %v", got)
	}
	if got := counterValue(t, reg, "chat_messages_sent_total", map[string]string{"role": "farmer"}); got != 1 {
		t.Fatalf("expected 1 farmer message, got %v", got)
	}
}

func TestNilRegistererIsSafe(t *testing.T) {
	var ledger *LedgerMetrics
	ledger.IncMutation("increase", "ok")

	chat := NewChatMetrics(nil)
	chat.IncDelivery()
	chat.SubscriberConnected()
}
