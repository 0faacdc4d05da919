// Package metrics provides Prometheus instrumentation for the xrootd data
// server: request counts by opcode and outcome, bytes streamed, and DH
// session counts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the server's Prometheus collectors. All methods are
// nil-safe: calls on a nil *Metrics are no-ops, so components can take a
// *Metrics without every caller checking for a disabled metrics subsystem.
type Metrics struct {
	// RequestsTotal counts dispatched requests by opcode name.
	RequestsTotal *prometheus.CounterVec

	// ErrorsTotal counts error responses by opcode name and error kind.
	ErrorsTotal *prometheus.CounterVec

	// BytesStreamedTotal counts payload bytes written in read/readv
	// responses.
	BytesStreamedTotal prometheus.Counter

	// OpenFilesGauge tracks the number of currently open file handles
	// across all connections.
	OpenFilesGauge prometheus.Gauge

	// ConnectionsGauge tracks the number of currently open connections.
	ConnectionsGauge prometheus.Gauge

	// DHSessionsTotal counts DH sessions that reached Finalized.
	DHSessionsTotal prometheus.Counter
}

// New creates and registers the server's metrics with reg. If reg is nil,
// collectors are created but not registered (useful in tests).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xrootd4j",
			Name:      "requests_total",
			Help:      "Total number of dispatched requests by opcode",
		}, []string{"opcode"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xrootd4j",
			Name:      "errors_total",
			Help:      "Total number of error responses by opcode and error kind",
		}, []string{"opcode", "kind"}),
		BytesStreamedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xrootd4j",
			Name:      "bytes_streamed_total",
			Help:      "Total payload bytes written in read/readv responses",
		}),
		OpenFilesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "xrootd4j",
			Name:      "open_files",
			Help:      "Number of currently open file handles across all connections",
		}),
		ConnectionsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "xrootd4j",
			Name:      "connections",
			Help:      "Number of currently open client connections",
		}),
		DHSessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xrootd4j",
			Name:      "dh_sessions_total",
			Help:      "Total number of DH sessions that reached Finalized",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RequestsTotal,
			m.ErrorsTotal,
			m.BytesStreamedTotal,
			m.OpenFilesGauge,
			m.ConnectionsGauge,
			m.DHSessionsTotal,
		)
	}

	return m
}

// RecordRequest increments the request counter for opcode.
func (m *Metrics) RecordRequest(opcode string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(opcode).Inc()
}

// RecordError increments the error counter for opcode/kind.
func (m *Metrics) RecordError(opcode, kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(opcode, kind).Inc()
}

// AddBytesStreamed adds n to the bytes-streamed counter.
func (m *Metrics) AddBytesStreamed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesStreamedTotal.Add(float64(n))
}

// SetOpenFiles sets the open-files gauge.
func (m *Metrics) SetOpenFiles(n int) {
	if m == nil {
		return
	}
	m.OpenFilesGauge.Set(float64(n))
}

// IncConnections increments the connections gauge.
func (m *Metrics) IncConnections() {
	if m == nil {
		return
	}
	m.ConnectionsGauge.Inc()
}

// DecConnections decrements the connections gauge.
func (m *Metrics) DecConnections() {
	if m == nil {
		return
	}
	m.ConnectionsGauge.Dec()
}

// RecordDHSessionFinalized increments the DH sessions counter.
func (m *Metrics) RecordDHSessionFinalized() {
	if m == nil {
		return
	}
	m.DHSessionsTotal.Inc()
}
