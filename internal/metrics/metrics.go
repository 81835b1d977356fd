package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clearstream",
		Name:      "active_sessions",
		Help:      "Number of currently active streaming sessions.",
	})

	SessionStartsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clearstream",
		Name:      "session_starts_total",
		Help:      "Total streaming sessions started, by delivery strategy.",
	}, []string{"strategy"})

	SessionFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clearstream",
		Name:      "session_failures_total",
		Help:      "Total streaming sessions that ended in error, by delivery strategy.",
	}, []string{"strategy"})

	BytesStreamedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clearstream",
		Name:      "bytes_streamed_total",
		Help:      "Total bytes written to streaming destinations.",
	})

	TranscodeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "clearstream",
		Name:      "transcode_duration_seconds",
		Help:      "Wall-clock duration of ffmpeg transcode processes.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 900, 3600},
	})

	QueueJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clearstream",
		Name:      "queue_jobs_total",
		Help:      "Total background jobs executed, by name and outcome.",
	}, []string{"name", "outcome"})
)

func init() {
	prometheus.MustRegister(
		ActiveSessions,
		SessionStartsTotal,
		SessionFailuresTotal,
		BytesStreamedTotal,
		TranscodeDuration,
		QueueJobsTotal,
	)
}
