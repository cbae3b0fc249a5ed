package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// promMetrics are registered on a private registry so that several
// collectors can coexist in one process (tests, evaluation sweeps).
type promMetrics struct {
	registry *prometheus.Registry

	// runs counts runs by result: "ok" or the failure kind
	runs *prometheus.CounterVec

	// samples counts Monte Carlo evaluations
	samples prometheus.Counter

	estimateDuration  prometheus.Histogram
	referenceDuration prometheus.Histogram

	// cache counts reference cache lookups by result
	cache *prometheus.CounterVec

	// relativeError is the relative error of the latest run
	relativeError prometheus.Gauge
}

func newPromMetrics() *promMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &promMetrics{
		registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcint_runs_total",
			Help: "Integration runs by result",
		}, []string{"result"}),
		samples: factory.NewCounter(prometheus.CounterOpts{
			Name: "mcint_samples_total",
			Help: "Monte Carlo function evaluations",
		}),
		estimateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mcint_estimate_duration_seconds",
			Help:    "Monte Carlo estimate duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
		}),
		referenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mcint_reference_duration_seconds",
			Help:    "Quadrature reference duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		cache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcint_reference_cache_total",
			Help: "Reference cache lookups by result",
		}, []string{"result"}),
		relativeError: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mcint_relative_error",
			Help: "Relative error of the latest run",
		}),
	}
}

func (p *promMetrics) observeRun(r Run) {
	p.runs.WithLabelValues("ok").Inc()
	p.samples.Add(float64(r.Samples))
	p.estimateDuration.Observe(r.EstimateLatency.Seconds())
	p.referenceDuration.Observe(r.ReferenceLatency.Seconds())
	if r.RelativeDefined {
		p.relativeError.Set(r.RelativeError)
	}
}
