package archivist

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation outcomes used as the "status" label.
const (
	statusOK       = "ok"
	statusRejected = "invalid"
	statusError    = "error"
)

type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	filters    *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "archivist",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK operations by type and status (ok, invalid, error).",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "archivist",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"operation"}),
		filters: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "archivist",
			Subsystem: "sdk",
			Name:      "compiled_filters",
			Help:      "Filters per successful compile, by namespace.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{"namespace"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.filters); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or points it at the collector already
// registered under the same descriptor.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("archivist: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("archivist: metric already registered with incompatible type: %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer records SDK operations. A nil observer records nothing.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func status(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, ErrInvalidArgument):
		return statusRejected
	default:
		return statusError
	}
}

// observeCompile records a compile of n filters for namespace ns.
func (o *observer) observeCompile(ns string, n int, start time.Time, err error) {
	if o == nil {
		return
	}
	if err == nil && o.metrics != nil {
		o.metrics.filters.WithLabelValues(ns).Observe(float64(n))
	}
	o.observe("compile", start, err, "namespace", ns, "filters", n)
}

func (o *observer) observe(op string, start time.Time, err error, attrs ...any) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	st := status(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, st).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}

	attrs = append([]any{"op", op, "duration", dur}, attrs...)
	switch st {
	case statusOK:
		o.logger.Debug("operation completed", attrs...)
	case statusRejected:
		o.logger.Info("operation rejected", append(attrs, "reason", err)...)
	default:
		o.logger.Warn("operation failed", append(attrs, "error", err)...)
	}
}
