// Package metrics exports line fit statistics as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cwbudde/algo-spectro/measure/linefit"
)

// Recorder implements linefit.Recorder using Prometheus.
type Recorder struct {
	registry    *prometheus.Registry
	fitsTotal   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	evaluations *prometheus.HistogramVec
	duration    *prometheus.HistogramVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		fitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ewfit_fits_total",
				Help: "Total number of completed line fits",
			},
			[]string{"strategy", "converged"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ewfit_errors_total",
				Help: "Total number of failed line fits by error class",
			},
			[]string{"strategy", "class"},
		),
		evaluations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ewfit_objective_evaluations",
				Help:    "Objective evaluations per line fit",
				Buckets: prometheus.ExponentialBuckets(16, 2, 10),
			},
			[]string{"strategy"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ewfit_fit_duration_seconds",
				Help:    "Duration of line fits in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
	}
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// RecordFit records a completed fit.
func (r *Recorder) RecordFit(strategy string, converged bool, _, evaluations int, elapsed time.Duration) {
	r.fitsTotal.WithLabelValues(strategy, fmt.Sprint(converged)).Inc()
	r.evaluations.WithLabelValues(strategy).Observe(float64(evaluations))
	r.duration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// RecordFailure records a failed fit.
func (r *Recorder) RecordFailure(strategy string, err error) {
	r.errorsTotal.WithLabelValues(strategy, Class(err)).Inc()
}

// WriteToTextfile writes all metrics in the text exposition format, for
// the node exporter textfile collector.
func (r *Recorder) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

var classes = []struct {
	err  error
	name string
}{
	{linefit.ErrConfiguration, "configuration"},
	{linefit.ErrPrecondition, "precondition"},
	{linefit.ErrMissingStellarParameters, "missing_stellar_parameters"},
	{linefit.ErrCannotEstimateFWHM, "cannot_estimate_fwhm"},
	{linefit.ErrInvalidSeed, "invalid_seed"},
	{linefit.ErrSynthesis, "synthesis"},
	{linefit.ErrNotImplemented, "not_implemented"},
	{context.Canceled, "canceled"},
	{context.DeadlineExceeded, "deadline_exceeded"},
}

// Class maps a fit error to a metric label.
func Class(err error) string {
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.name
		}
	}
	return "other"
}
