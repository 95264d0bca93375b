package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmitted counts accepted split job submissions.
	JobsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splitsvc_jobs_submitted_total",
			Help: "Total number of accepted split job submissions",
		},
	)

	// JobsFinished counts jobs by terminal status.
	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitsvc_jobs_finished_total",
			Help: "Total number of split jobs by terminal status",
		},
		[]string{"status"},
	)

	// SplitDuration tracks end-to-end split duration in seconds.
	SplitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "splitsvc_split_duration_seconds",
			Help:    "Duration of split jobs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.5min
		},
	)

	// PagesProcessed counts pages analyzed across all jobs.
	PagesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splitsvc_pages_processed_total",
			Help: "Total number of pages analyzed",
		},
	)

	// WorkersActive tracks the number of currently active workers.
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "splitsvc_workers_active",
			Help: "Number of currently active worker goroutines",
		},
	)
)
