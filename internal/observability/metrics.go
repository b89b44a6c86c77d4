// Package observability holds the prometheus collectors shared by the store and HTTP layers.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Store operation outcomes.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	storeOpsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitjournal",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Document store operations, labeled by operation and result.",
	}, []string{"op", "result"})

	storeOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fitjournal",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Time spent in document store operations.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"op"})

	participantsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitjournal",
		Subsystem: "challenge",
		Name:      "participants",
		Help:      "Participant count most recently committed to the document.",
	})

	httpRequestsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitjournal",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, labeled by route, method and status code.",
	}, []string{"route", "method", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fitjournal",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	backupCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitjournal",
		Subsystem: "backup",
		Name:      "snapshots_total",
		Help:      "Document snapshots attempted, labeled by result.",
	}, []string{"result"})

	lastBackupGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitjournal",
		Subsystem: "backup",
		Name:      "last_snapshot_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful document snapshot.",
	})
)

func init() {
	prometheus.MustRegister(
		storeOpsCounter,
		storeOpDuration,
		participantsGauge,
		httpRequestsCounter,
		httpRequestDuration,
		backupCounter,
		lastBackupGauge,
	)
}

// RecordStoreOp counts a store operation and observes its latency.
func RecordStoreOp(op string, started time.Time, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	storeOpsCounter.WithLabelValues(op, result).Inc()
	storeOpDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// RecordParticipants updates the participants gauge.
func RecordParticipants(n int) {
	participantsGauge.Set(float64(n))
}

// RecordHTTPRequest counts a served request.
func RecordHTTPRequest(route, method string, status int, elapsed time.Duration) {
	httpRequestsCounter.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RecordBackup counts a snapshot attempt and moves the watermark on success.
func RecordBackup(ts time.Time, err error) {
	if err != nil {
		backupCounter.WithLabelValues(ResultError).Inc()
		return
	}
	backupCounter.WithLabelValues(ResultOK).Inc()
	if !ts.IsZero() {
		lastBackupGauge.Set(float64(ts.Unix()))
	}
}
