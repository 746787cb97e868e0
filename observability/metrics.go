// Package observability exposes the counters and gauges of the router.
// Every method is safe on a nil *Metrics so collaborators can run without it.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pluralchat"

type Metrics struct {
	registry *prometheus.Registry

	Commands          *prometheus.CounterVec
	Messages          *prometheus.CounterVec
	DeliveryFailures  *prometheus.CounterVec
	ProviderFallbacks *prometheus.CounterVec
	TriggersDropped   prometheus.Counter
	Sessions          prometheus.Gauge
	ProcessRSS        prometheus.Gauge
	ProcessCPU        prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Slash commands executed, by command and outcome.",
		}, []string{"command", "outcome"}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound chat events, by outcome.",
		}, []string{"outcome"}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Events a session handle failed to accept, by reason.",
		}, []string{"reason"}),
		ProviderFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fallbacks_total",
			Help:      "Automated replies replaced by the fallback text, by provider.",
		}, []string{"provider"}),
		TriggersDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_dropped_total",
			Help:      "Responder jobs dropped because the queue was full.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Live session handles.",
		}),
		ProcessRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Resident memory of the process.",
		}),
		ProcessCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "CPU usage of the process.",
		}),
	}
	m.registry.MustRegister(
		m.Commands, m.Messages, m.DeliveryFailures, m.ProviderFallbacks,
		m.TriggersDropped, m.Sessions, m.ProcessRSS, m.ProcessCPU,
	)
	return m
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CommandExecuted(command, outcome string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) MessageHandled(outcome string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(outcome).Inc()
}

func (m *Metrics) DeliveryFailed(reason string) {
	if m == nil {
		return
	}
	m.DeliveryFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) ProviderFellBack(provider string) {
	if m == nil {
		return
	}
	m.ProviderFallbacks.WithLabelValues(provider).Inc()
}

func (m *Metrics) TriggerDropped() {
	if m == nil {
		return
	}
	m.TriggersDropped.Inc()
}

func (m *Metrics) SessionAttached() {
	if m == nil {
		return
	}
	m.Sessions.Inc()
}

func (m *Metrics) SessionDetached() {
	if m == nil {
		return
	}
	m.Sessions.Dec()
}

func (m *Metrics) ProcessStats(rss uint64, cpu float64) {
	if m == nil {
		return
	}
	m.ProcessRSS.Set(float64(rss))
	m.ProcessCPU.Set(cpu)
}
