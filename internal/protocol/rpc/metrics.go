package rpc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Label constants for metrics.
const (
	LabelMethod = "method"
	LabelResult = "result"
)

// Result label values for ObserveCall.
const (
	ResultOK       = "ok"
	ResultTimeout  = "timeout"
	ResultIOError  = "io_error"
	ResultCanceled = "canceled"
)

// Metrics provides optional Prometheus instrumentation for a Client. A nil
// *Metrics is valid and every method is a no-op on it, so a Client built
// without a registry incurs no forced global registration (spec §4.7's
// "absent by default" dependency note).
type Metrics struct {
	callsTotal      *prometheus.CounterVec
	callDuration    *prometheus.HistogramVec
	reconnectsTotal prometheus.Counter
	inFlight        prometheus.Gauge

	registered bool
}

// NewMetrics creates call metrics. If registry is nil the metrics are
// created but not registered, which is convenient for tests.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sertools",
				Subsystem: "rpc",
				Name:      "calls_total",
				Help:      "Total number of RPC calls by method and result.",
			},
			[]string{LabelMethod, LabelResult},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sertools",
				Subsystem: "rpc",
				Name:      "call_duration_seconds",
				Help:      "Time from Call/BeginCall to reply.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{LabelMethod},
		),
		reconnectsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sertools",
				Subsystem: "rpc",
				Name:      "reconnects_total",
				Help:      "Total number of automatic reconnect-and-retry attempts.",
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sertools",
				Subsystem: "rpc",
				Name:      "calls_in_flight",
				Help:      "1 if a call is currently outstanding on the client, 0 otherwise.",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(m.callsTotal, m.callDuration, m.reconnectsTotal, m.inFlight)
		m.registered = true
	}

	return m
}

// ObserveCall records a finished call's outcome and latency.
func (m *Metrics) ObserveCall(method, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.callsTotal.WithLabelValues(method, result).Inc()
	m.callDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveReconnect records one reconnect-on-error retry.
func (m *Metrics) ObserveReconnect() {
	if m == nil {
		return
	}
	m.reconnectsTotal.Inc()
}

// SetInFlight reports whether a call is currently outstanding.
func (m *Metrics) SetInFlight(inFlight bool) {
	if m == nil {
		return
	}
	if inFlight {
		m.inFlight.Set(1)
	} else {
		m.inFlight.Set(0)
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	if m == nil || !m.registered {
		return
	}
	m.callsTotal.Describe(ch)
	m.callDuration.Describe(ch)
	ch <- m.reconnectsTotal.Desc()
	ch <- m.inFlight.Desc()
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	if m == nil || !m.registered {
		return
	}
	m.callsTotal.Collect(ch)
	m.callDuration.Collect(ch)
	ch <- m.reconnectsTotal
	ch <- m.inFlight
}
