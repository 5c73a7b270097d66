package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	attempts     *prometheus.CounterVec
	failures     *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		attempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratehub_provider_attempts_total",
				Help: "Total number of provider call attempts",
			},
			[]string{"provider"},
		),
		failures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratehub_provider_failures_total",
				Help: "Total number of provider call failures",
			},
			[]string{"provider", "kind"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratehub_cache_lookups_total",
				Help: "Cache lookups partitioned by asset class and outcome",
			},
			[]string{"class", "outcome"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ratehub_last_price",
				Help: "Last normalized price for an asset",
			},
			[]string{"asset"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ratehub_fetch_duration_seconds",
				Help:    "Duration of unified fetch operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"class"},
		),
	}
}

// RecordAttempt records one provider call attempt.
func (r *Recorder) RecordAttempt(provider string) {
	r.attempts.WithLabelValues(provider).Inc()
}

// RecordFailure records a provider call failure by kind.
func (r *Recorder) RecordFailure(provider, kind string) {
	r.failures.WithLabelValues(provider, kind).Inc()
}

// RecordCache records a cache lookup outcome.
func (r *Recorder) RecordCache(class string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(class, outcome).Inc()
}

// RecordFetchLatency records end-to-end fetch latency in seconds.
func (r *Recorder) RecordFetchLatency(class string, seconds float64) {
	r.latency.WithLabelValues(class).Observe(seconds)
}

// RecordLastPrice records the last normalized price for an asset.
func (r *Recorder) RecordLastPrice(assetID string, price float64) {
	r.lastPrice.WithLabelValues(assetID).Set(price)
}
