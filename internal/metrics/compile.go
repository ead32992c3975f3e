package metrics

import "github.com/prometheus/client_golang/prometheus"

// Compiler Prometheus metrics.
var (
	CompileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "compile_total",
			Help:      "Total number of filter compilations",
		},
		[]string{"namespace", "status"}, // "ok" / "invalid"
	)

	CompileFiltersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "compile_filters_total",
			Help:      "Filters compiled, by rule",
		},
		[]string{"namespace", "rule"},
	)

	CompileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "compile_duration_seconds",
			Help:      "Filter compilation duration in seconds",
			Buckets:   []float64{0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005},
		},
		[]string{"namespace"},
	)
)

var compileMetricsRegistered bool

// RegisterCompileMetrics registers Prometheus compiler metrics. Must be called once from main.
func RegisterCompileMetrics() {
	if compileMetricsRegistered {
		return
	}
	prometheus.MustRegister(CompileTotal)
	prometheus.MustRegister(CompileFiltersTotal)
	prometheus.MustRegister(CompileDuration)
	compileMetricsRegistered = true
}
