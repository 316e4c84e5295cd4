// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	MatchScores = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "afh_match_score",
			Help:    "Distribution of overall facility match scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"care_type"},
	)

	FacilitiesRanked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "afh_facilities_ranked_total",
			Help: "Facilities scored by the ranking worker",
		},
	)

	FacilityCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afh_facility_cache_lookups_total",
			Help: "Facility cache lookups by result",
		},
		[]string{"result"},
	)

	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afh_geocode_lookups_total",
			Help: "Zip geocoding lookups by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	FormsRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afh_forms_rendered_total",
			Help: "Regulatory forms rendered by form type and output format",
		},
		[]string{"form_type", "format"},
	)

	FormPages = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "afh_form_pages",
			Help:    "Page count of rendered forms",
			Buckets: []float64{1, 2, 5, 10, 20, 40},
		},
		[]string{"form_type"},
	)
)
