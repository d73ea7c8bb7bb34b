package fftgen

import "github.com/prometheus/client_golang/prometheus"

const (
	metricsNamespace = "fftgen"
	metricsSubsystem = "kernel"
)

// Cache request outcomes.
const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// Metrics holds prometheus metrics for kernel acquisition. A nil *Metrics
// records nothing.
type Metrics struct {
	requests      *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
}

// NewMetrics creates unregistered metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "cache_requests_total",
				Help:      "Kernel program requests by generator and outcome.",
			},
			[]string{"generator", "result"}, // hit, miss or error
		),
		buildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "build_duration_seconds",
				Help:      "Time to generate and compile a program pair in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
			},
			[]string{"generator", "result"}, // success or error
		),
	}
}

// MustRegister registers the metrics with the given Prometheus registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.requests)
	registry.MustRegister(m.buildDuration)
}

// ObserveRequest counts one action construction.
func (m *Metrics) ObserveRequest(kind GeneratorKind, result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind.String(), result).Inc()
}

// ObserveBuild records the duration of one build.
func (m *Metrics) ObserveBuild(kind GeneratorKind, durationSeconds float64, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = resultError
	}
	m.buildDuration.WithLabelValues(kind.String(), result).Observe(durationSeconds)
}
