package metrics

import (
	"net/http"
	"time"

	"github.com/awion/cryon-soc/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pass durations are short; buckets in seconds
var passBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5}

// Recorder owns a private registry and the monitor's metrics. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	EventsClassified *prometheus.CounterVec
	FetchFailures    *prometheus.CounterVec
	PassDuration     prometheus.Histogram
	BatchStats       *prometheus.GaugeVec
	Passes           prometheus.Counter
}

// NewRecorder registers every metric on a fresh registry
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	registry.MustRegister(collectors.NewGoCollector())

	return &Recorder{
		registry: registry,
		EventsClassified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryon_events_classified_total",
				Help: "Total number of activity records classified, by priority",
			},
			[]string{"priority"},
		),
		FetchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryon_source_fetch_failures_total",
				Help: "Total number of failed source fetches downgraded to an empty batch",
			},
			[]string{"source"},
		),
		PassDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cryon_classification_pass_seconds",
				Help:    "Duration of a full classification pass in seconds",
				Buckets: passBuckets,
			},
		),
		BatchStats: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryon_batch_stats",
				Help: "Aggregate counters of the most recent batch",
			},
			[]string{"kind"},
		),
		Passes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cryon_classification_passes_total",
				Help: "Total number of completed classification passes",
			},
		),
	}
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObservePass records one completed pass
func (r *Recorder) ObservePass(duration time.Duration, counts map[model.Priority]int, stats model.Stats) {
	if r == nil {
		return
	}

	r.Passes.Inc()
	r.PassDuration.Observe(duration.Seconds())
	for priority, count := range counts {
		r.EventsClassified.WithLabelValues(string(priority)).Add(float64(count))
	}

	r.BatchStats.WithLabelValues("total_logins").Set(float64(stats.TotalLogins))
	r.BatchStats.WithLabelValues("failed_attempts").Set(float64(stats.FailedAttempts))
	r.BatchStats.WithLabelValues("data_downloads").Set(float64(stats.DataDownloads))
	r.BatchStats.WithLabelValues("critical_alerts").Set(float64(stats.CriticalAlerts))
}

// FetchFailed counts a source failure
func (r *Recorder) FetchFailed(source string) {
	if r == nil {
		return
	}
	r.FetchFailures.WithLabelValues(source).Inc()
}
