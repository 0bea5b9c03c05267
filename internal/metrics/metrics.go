package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avfallsor_requests_total",
			Help: "Total number of HTTP API requests per path",
		},
		[]string{"path"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "avfallsor_request_duration_seconds",
			Help:    "HTTP API request duration in seconds per path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avfallsor_request_errors_total",
			Help: "Total number of error responses per path and code",
		},
		[]string{"path", "code"},
	)
)

var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avfallsor_pipeline_runs_total",
			Help: "Calendar pipeline runs per provider and result",
		},
		[]string{"provider", "result"},
	)

	PipelineDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "avfallsor_pipeline_duration_seconds",
			Help:    "Calendar pipeline duration in seconds per provider",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	WasteTypesFound = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "avfallsor_waste_types",
			Help: "Number of waste types with an upcoming pickup in the last run",
		},
		[]string{"provider"},
	)

	NextPickupTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "avfallsor_next_pickup_timestamp",
			Help: "Unix timestamp (local midnight) of the next published pickup per waste type",
		},
		[]string{"provider", "waste_type"},
	)

	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avfallsor_mqtt_messages_published_total",
			Help: "MQTT messages published per provider",
		},
		[]string{"provider"},
	)

	PublishErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avfallsor_mqtt_publish_errors_total",
			Help: "MQTT publish failures per provider",
		},
		[]string{"provider"},
	)
)

// ObservePipeline records the outcome of one pipeline run.
func ObservePipeline(provider string, startedAt time.Time, types int, err error) {
	PipelineDurationSeconds.WithLabelValues(provider).Observe(time.Since(startedAt).Seconds())
	if err != nil {
		PipelineRunsTotal.WithLabelValues(provider, "error").Inc()
		return
	}
	PipelineRunsTotal.WithLabelValues(provider, "success").Inc()
	WasteTypesFound.WithLabelValues(provider).Set(float64(types))
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "avfallsor_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "avfallsor_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avfallsor_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

// ResetNextPickups drops every next-pickup series of provider, so waste types
// missing from the latest schedule stop being exported.
func ResetNextPickups(provider string) {
	NextPickupTimestamp.DeletePartialMatch(prometheus.Labels{"provider": provider})
}

func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
