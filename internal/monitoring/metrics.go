// Package monitoring exposes run and geocoding metrics and raises alerts
// for unhealthy runs.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meowafisha/eventmap/internal/model"
)

const namespace = "eventmap"

// Metrics holds the Prometheus collectors for pipeline runs and geocoding.
// It satisfies geocode.Observer.
type Metrics struct {
	PostsFetched    prometheus.Counter
	EventsExtracted prometheus.Counter
	Duplicates      prometheus.Counter
	EventsPersisted prometheus.Gauge
	RunDuration     prometheus.Histogram
	FetchFailures   prometheus.Counter

	GeocodeRequests *prometheus.CounterVec   // labels: provider, outcome
	GeocodeCache    *prometheus.CounterVec   // labels: result={hit,hit_unresolved,miss}
	GeocodeDuration *prometheus.HistogramVec // labels: provider
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which suits tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PostsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_fetched_total",
			Help:      "Wall posts read from the post source.",
		}),
		EventsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_extracted_total",
			Help:      "Event candidates extracted from posts.",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_duplicate_total",
			Help:      "Extracted events skipped as already known.",
		}),
		EventsPersisted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events_persisted",
			Help:      "Events in the store after the last run.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Runs whose post fetch was aborted.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
		GeocodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_request_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.PostsFetched,
			m.EventsExtracted,
			m.Duplicates,
			m.EventsPersisted,
			m.RunDuration,
			m.FetchFailures,
			m.GeocodeRequests,
			m.GeocodeCache,
			m.GeocodeDuration,
		)
	}
	return m
}

// ProviderCall records one provider call.
func (m *Metrics) ProviderCall(provider, outcome string, elapsed time.Duration) {
	m.GeocodeRequests.WithLabelValues(provider, outcome).Inc()
	if elapsed > 0 {
		m.GeocodeDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

// CacheLookup records one cache lookup.
func (m *Metrics) CacheLookup(result string) {
	m.GeocodeCache.WithLabelValues(result).Inc()
}

// RecordRun folds a finished run into the run-level collectors.
func (m *Metrics) RecordRun(res *model.RunResult) {
	m.PostsFetched.Add(float64(res.PostsFetched))
	m.EventsExtracted.Add(float64(res.Extracted))
	m.Duplicates.Add(float64(res.Duplicates))
	m.EventsPersisted.Set(float64(res.TotalEvents))
	m.RunDuration.Observe(res.Duration.Seconds())
	if res.FetchError != "" {
		m.FetchFailures.Inc()
	}
}
