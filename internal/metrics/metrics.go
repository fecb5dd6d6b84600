package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedded_cassandra_http_requests_total",
			Help: "Total management API requests",
		},
		[]string{"path"},
	)

	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedded_cassandra_http_request_errors_total",
			Help: "Management API requests answered with status >= 400",
		},
		[]string{"path"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "embedded_cassandra_http_request_duration_seconds",
			Help:    "Duration of management API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	nodeStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedded_cassandra_node_starts_total",
			Help: "Node start attempts by outcome (ready, failed, timeout, canceled)",
		},
		[]string{"node", "outcome"},
	)

	nodeStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedded_cassandra_node_stops_total",
			Help: "Node stops by mode (graceful, forced)",
		},
		[]string{"node", "mode"},
	)

	startupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "embedded_cassandra_node_startup_seconds",
			Help:    "Time from spawn to ready",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"node"},
	)

	portRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedded_cassandra_port_allocation_retries_total",
			Help: "Probed ports rejected because they collided with another port",
		},
		[]string{"port"},
	)

	runningNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "embedded_cassandra_running_nodes",
			Help: "Nodes currently in RUNNING state",
		},
	)

	totalRequests atomic.Int64
	totalErrors   atomic.Int64
)

func init() {
	prometheus.MustRegister(requestCount, requestErrors, requestDuration)
	prometheus.MustRegister(nodeStarts, nodeStops, startupDuration, portRetries, runningNodes)
}

// RecordRequest counts one API request; the health endpoint reads the totals back.
func RecordRequest(path string, seconds float64, status int) {
	requestCount.WithLabelValues(path).Inc()
	requestDuration.WithLabelValues(path).Observe(seconds)
	totalRequests.Add(1)
	if status >= 400 {
		requestErrors.WithLabelValues(path).Inc()
		totalErrors.Add(1)
	}
}

func GetTotalRequestCount() int64 { return totalRequests.Load() }

func GetTotalErrorCount() int64 { return totalErrors.Load() }

// RecordStart counts a start outcome and, for ready nodes, the startup time.
func RecordStart(node, outcome string, seconds float64) {
	nodeStarts.WithLabelValues(node, outcome).Inc()
	if outcome == "ready" {
		startupDuration.WithLabelValues(node).Observe(seconds)
		runningNodes.Inc()
	}
}

// RecordStop counts a stop. wasRunning lowers the running gauge.
func RecordStop(node, mode string, wasRunning bool) {
	nodeStops.WithLabelValues(node, mode).Inc()
	if wasRunning {
		runningNodes.Dec()
	}
}

// RecordUnexpectedExit lowers the running gauge for a node that died on its own.
func RecordUnexpectedExit(node string) {
	nodeStarts.WithLabelValues(node, "exited").Inc()
	runningNodes.Dec()
}

func IncPortRetry(port string) {
	portRetries.WithLabelValues(port).Inc()
}
