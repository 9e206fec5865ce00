package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// WebSocket metrics
	WebSocketConnections prometheus.Gauge
	WebSocketMessages    *prometheus.CounterVec

	// Analysis metrics
	AnalysisCycles  prometheus.Counter
	AnalysisErrors  *prometheus.CounterVec
	AnalysisDropped prometheus.Counter
	OracleLatency   prometheus.Histogram

	// Broadcast metrics
	Broadcasts prometheus.Counter

	connManager *ConnectionManager
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics(connManager *ConnectionManager) *Metrics {
	metrics := &Metrics{
		connManager: connManager,

		WebSocketConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "remi_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		}),

		WebSocketMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "remi_websocket_messages_total",
			Help: "Total number of WebSocket messages by type",
		}, []string{"type", "direction"}), // direction: "inbound" or "outbound"

		AnalysisCycles: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remi_analysis_cycles_total",
			Help: "Total number of analysis cycles applied",
		}),

		AnalysisErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "remi_analysis_errors_total",
			Help: "Total number of discarded analysis cycles by error type",
		}, []string{"error_type"}),

		AnalysisDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remi_analysis_dropped_total",
			Help: "Analysis cycles dropped because the session queue was full",
		}),

		OracleLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "remi_oracle_request_duration_seconds",
			Help:    "Analysis oracle round-trip latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		Broadcasts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remi_state_broadcasts_total",
			Help: "Total number of state snapshots broadcast to sessions",
		}),
	}

	// Register a collector that reads the live connection count
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "remi_websocket_connections_current",
			Help: "Current number of active WebSocket connections (from connection manager)",
		},
		func() float64 {
			if connManager != nil {
				return float64(connManager.Count())
			}
			return 0
		},
	))

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordWebSocketConnect records a new WebSocket connection
func (m *Metrics) RecordWebSocketConnect() {
	m.WebSocketConnections.Inc()
}

// RecordWebSocketDisconnect records a WebSocket disconnection
func (m *Metrics) RecordWebSocketDisconnect() {
	m.WebSocketConnections.Dec()
}

// RecordWebSocketMessage records a WebSocket message
func (m *Metrics) RecordWebSocketMessage(msgType, direction string) {
	m.WebSocketMessages.WithLabelValues(msgType, direction).Inc()
}

// RecordAnalysisCycle records one applied analysis cycle
func (m *Metrics) RecordAnalysisCycle() {
	m.AnalysisCycles.Inc()
}

// RecordAnalysisError records a discarded analysis cycle
func (m *Metrics) RecordAnalysisError(errorType string) {
	m.AnalysisErrors.WithLabelValues(errorType).Inc()
}

// RecordAnalysisDropped records a cycle dropped due to queue pressure
func (m *Metrics) RecordAnalysisDropped() {
	m.AnalysisDropped.Inc()
}

// RecordOracleLatency records one oracle round trip
func (m *Metrics) RecordOracleLatency(seconds float64) {
	m.OracleLatency.Observe(seconds)
}

// RecordBroadcast records one state fan-out
func (m *Metrics) RecordBroadcast() {
	m.Broadcasts.Inc()
}
