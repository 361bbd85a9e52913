package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all Prometheus metrics for the scoring engine.
type Registry struct {
	// Calculation metrics, labeled by calculator (fvs|momentum) and result
	// (ok|insufficient_data|error).
	CalcTotal    *prometheus.CounterVec
	CalcDuration *prometheus.HistogramVec

	// Batch run metrics.
	BatchRuns       prometheus.Counter
	BatchFailures   prometheus.Counter
	BatchInFlight   prometheus.Gauge
	BatchLastScored prometheus.Gauge

	// Latest-result cache metrics, labeled by result kind.
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

var (
	defaultRegistry *Registry
	registerOnce    sync.Once
)

// NewRegistry creates all scoring engine metrics.
func NewRegistry() *Registry {
	return &Registry{
		CalcTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fanpulse_calculations_total",
				Help: "Total scoring calculations by calculator and result",
			},
			[]string{"calculator", "result"},
		),
		CalcDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fanpulse_calculation_duration_seconds",
				Help:    "Duration of one artist's scoring calculation",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"calculator"},
		),
		BatchRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fanpulse_batch_runs_total",
				Help: "Total batch recomputation runs",
			},
		),
		BatchFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fanpulse_batch_artist_failures_total",
				Help: "Per-artist failures inside batch runs (isolated, non-fatal)",
			},
		),
		BatchInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fanpulse_batch_in_flight",
				Help: "Artists currently being scored",
			},
		),
		BatchLastScored: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fanpulse_batch_last_scored",
				Help: "Artists scored in the most recent batch run",
			},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fanpulse_cache_hits_total",
				Help: "Latest-result cache hits by result kind",
			},
			[]string{"kind"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fanpulse_cache_misses_total",
				Help: "Latest-result cache misses by result kind",
			},
			[]string{"kind"},
		),
	}
}

// Register registers all metrics with the given Prometheus registerer.
func (r *Registry) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		r.CalcTotal, r.CalcDuration,
		r.BatchRuns, r.BatchFailures, r.BatchInFlight, r.BatchLastScored,
		r.CacheHits, r.CacheMisses,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Default returns the process-wide registry, registered against the default
// Prometheus registerer on first use.
func Default() *Registry {
	registerOnce.Do(func() {
		defaultRegistry = NewRegistry()
		_ = defaultRegistry.Register(prometheus.DefaultRegisterer)
	})
	return defaultRegistry
}
