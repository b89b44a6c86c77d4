package events

import "github.com/prometheus/client_golang/prometheus"

const (
	resultPublished = "published"
	resultFailed    = "failed"
	resultDropped   = "dropped"
)

var (
	publishCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitjournal",
		Subsystem: "events",
		Name:      "challenge_events_total",
		Help:      "Challenge events handled by the async publisher, labeled by outcome.",
	}, []string{"result"})

	queueDepthGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitjournal",
		Subsystem: "events",
		Name:      "queue_depth",
		Help:      "Events waiting in the async publisher queue.",
	})
)

func init() {
	prometheus.MustRegister(publishCounter, queueDepthGauge)
}

func recordPublish(result string) {
	publishCounter.WithLabelValues(result).Inc()
}
