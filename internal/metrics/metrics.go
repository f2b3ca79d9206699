// Package metrics exposes the prometheus collectors of the analysis
// pipeline, served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatlens_jobs_submitted_total",
			Help: "Total analysis jobs accepted for processing",
		},
	)

	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlens_jobs_finished_total",
			Help: "Total analysis jobs reaching a terminal state",
		},
		[]string{"status"}, // "complete" or "failed"
	)

	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatlens_job_duration_seconds",
			Help:    "Wall time of one job pipeline run",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	MessagesAnalyzed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatlens_messages_analyzed_total",
			Help: "Total messages scored and persisted",
		},
	)

	OracleFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlens_oracle_failures_total",
			Help: "Total oracle calls absorbed as neutral zero-confidence results",
		},
		[]string{"oracle"},
	)

	QueueRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatlens_queue_rejections_total",
			Help: "Total submissions rejected because the job queue was full",
		},
	)
)
