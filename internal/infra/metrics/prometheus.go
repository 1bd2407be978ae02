package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posex_jobs_processed_total",
		Help: "Total number of jobs processed, by kind and status",
	}, []string{"kind", "status"})

	JobStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "posex_job_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesReadTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posex_frames_read_total",
		Help: "Total number of frames decoded across all runs",
	})

	FramesRetainedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posex_frames_retained_total",
		Help: "Total number of frames with a detected pose",
	})

	ActiveExtractions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "posex_active_extractions",
		Help: "Number of extraction loops currently running",
	})

	RunsStoppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posex_runs_stopped_total",
		Help: "Completed extraction runs, by stop reason",
	}, []string{"reason"})
)
