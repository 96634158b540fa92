package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	UpstreamRequests *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	AlertPolls       *prometheus.CounterVec
	AlertsTriggered  *prometheus.CounterVec
	AlertsCleared    prometheus.Counter
	MockOverrides    prometheus.Counter
	Alarming         prometheus.Gauge
	ShelterRemaining prometheus.Gauge
	Connected        prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
}

// New registers all collectors, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "silentwave",
			Name:      "upstream_requests_total",
			Help:      "Requests to upstream providers by source and result",
		}, []string{"source", "result"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "silentwave",
			Name:      "cache_lookups_total",
			Help:      "Proxy cache lookups by cache and outcome",
		}, []string{"cache", "outcome"}),
		AlertPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "silentwave",
			Name:      "alert_polls_total",
			Help:      "Alert polls performed by the monitor",
		}, []string{"result"}),
		AlertsTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "silentwave",
			Name:      "alerts_triggered_total",
			Help:      "Deduplicated alerts promoted to current, by severity",
		}, []string{"severity"}),
		AlertsCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "silentwave",
			Name:      "alerts_cleared_total",
			Help:      "Times the active alert was cleared",
		}),
		MockOverrides: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "silentwave",
			Name:      "mock_overrides_total",
			Help:      "Mock alerts set through the test endpoint",
		}),
		Alarming: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "silentwave",
			Name:      "alarming",
			Help:      "1 while an alert is active",
		}),
		ShelterRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "silentwave",
			Name:      "shelter_remaining_seconds",
			Help:      "Seconds left to reach shelter for the active alert",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "silentwave",
			Name:      "connected",
			Help:      "1 when the last alert poll succeeded",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "silentwave",
			Name:      "http_requests_total",
			Help:      "HTTP requests served by route and status",
		}, []string{"route", "status"}),
	}

	m.registry.MustRegister(
		m.UpstreamRequests,
		m.CacheLookups,
		m.AlertPolls,
		m.AlertsTriggered,
		m.AlertsCleared,
		m.MockOverrides,
		m.Alarming,
		m.ShelterRemaining,
		m.Connected,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// CacheLookup counts a proxy cache hit or miss. Safe on a nil *Metrics.
func (m *Metrics) CacheLookup(cache, outcome string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(cache, outcome).Inc()
}

// Upstream counts an upstream request by source and result. Safe on a nil *Metrics.
func (m *Metrics) Upstream(source, result string) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(source, result).Inc()
}

// MockOverride counts a mock alert being set. Safe on a nil *Metrics.
func (m *Metrics) MockOverride() {
	if m == nil {
		return
	}
	m.MockOverrides.Inc()
}
