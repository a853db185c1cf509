// monitor/monitor.go
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlineParticipants prometheus.Gauge
	GameActive         prometheus.Gauge
	Energy             prometheus.Gauge
	EventsReceived     *prometheus.CounterVec
	EventsRejected     *prometheus.CounterVec
	MessagesDropped    prometheus.Counter
	AuditFailures      *prometheus.CounterVec
	EventLatency       prometheus.Histogram
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlineParticipants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_participants",
			Help:      "Number of authenticated participants",
		}),
		GameActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "game_active",
			Help:      "1 while a game is running",
		}),
		Energy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "energy",
			Help:      "Remaining energy of the current game",
		}),
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Inbound events by name",
		}, []string{"event"}),
		EventsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Rejected inbound events by name and error code",
		}, []string{"event", "code"}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Outbound messages dropped because a recipient queue was full",
		}),
		AuditFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Audit records that were dropped or failed to persist",
		}, []string{"kind"}),
		EventLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_latency_seconds",
			Help:      "Inbound event processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}

	reg.MustRegister(
		m.OnlineParticipants,
		m.GameActive,
		m.Energy,
		m.EventsReceived,
		m.EventsRejected,
		m.MessagesDropped,
		m.AuditFailures,
		m.EventLatency,
	)

	return m
}

// Monitor owns a private registry so several instances can coexist in tests.
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := &Monitor{
		metrics:   NewMetrics(namespace, reg),
		registry:  reg,
		startTime: time.Now(),
	}
	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the server started",
	}, func() float64 { return time.Since(m.startTime).Seconds() })
	reg.MustRegister(uptime)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Monitor) Registry() *prometheus.Registry { return m.registry }

func (m *Monitor) SetOnlineParticipants(n int) {
	m.metrics.OnlineParticipants.Set(float64(n))
}

func (m *Monitor) SetGameActive(active bool) {
	if active {
		m.metrics.GameActive.Set(1)
		return
	}
	m.metrics.GameActive.Set(0)
}

func (m *Monitor) SetEnergy(energy int) {
	m.metrics.Energy.Set(float64(energy))
}

func (m *Monitor) IncEventReceived(event string) {
	m.metrics.EventsReceived.WithLabelValues(event).Inc()
}

func (m *Monitor) IncEventRejected(event, code string) {
	m.metrics.EventsRejected.WithLabelValues(event, code).Inc()
}

func (m *Monitor) IncMessagesDropped() {
	m.metrics.MessagesDropped.Inc()
}

func (m *Monitor) IncAuditFailure(kind string) {
	m.metrics.AuditFailures.WithLabelValues(kind).Inc()
}

func (m *Monitor) ObserveEventLatency(duration time.Duration) {
	m.metrics.EventLatency.Observe(duration.Seconds())
}
