// Package observe provides the OpenTelemetry metrics recorded by formant
// tracking sessions and the Prometheus bridge that exposes them.
//
// Tests should use [NewMetrics] with their own [metric.MeterProvider] to
// avoid cross-test pollution; [DefaultMetrics] uses the global provider.
package observe

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cwbudde/algo-formant/dsp/formant"
	"github.com/cwbudde/algo-formant/dsp/spectrum"
)

// meterName is the instrumentation scope name used for all formant metrics.
const meterName = "github.com/cwbudde/algo-formant"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// Frames counts frames that produced a tick. Use with attribute:
	//   attribute.Bool("voiced", ...)
	Frames metric.Int64Counter

	// FrameErrors counts frames rejected by validation. Use with attribute:
	//   attribute.String("reason", ...)
	FrameErrors metric.Int64Counter

	// Estimates counts smoothed formant reports. Use with attributes:
	//   attribute.String("formant", "f1"|"f2"), attribute.String("status", "valid"|"held"|"absent")
	Estimates metric.Int64Counter

	// ExtractDuration tracks the time spent per frame in the tracker.
	ExtractDuration metric.Float64Histogram

	// ActiveSessions tracks the number of live tracking sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// extractBuckets defines histogram bucket boundaries (in seconds) for a
// single frame, which is expected to take microseconds.
var extractBuckets = []float64{
	0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("formant.frames",
		metric.WithDescription("Total frames tracked, by voicing."),
	); err != nil {
		return nil, err
	}
	if met.FrameErrors, err = m.Int64Counter("formant.frame.errors",
		metric.WithDescription("Total frames rejected by validation, by reason."),
	); err != nil {
		return nil, err
	}
	if met.Estimates, err = m.Int64Counter("formant.estimates",
		metric.WithDescription("Total smoothed formant reports by formant and status."),
	); err != nil {
		return nil, err
	}
	if met.ExtractDuration, err = m.Float64Histogram("formant.extract.duration",
		metric.WithDescription("Time spent extracting and smoothing one frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(extractBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("formant.active_sessions",
		metric.WithDescription("Number of live tracking sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordTick records one successful tracker update that took d.
func (m *Metrics) RecordTick(ctx context.Context, res formant.Result, d time.Duration) {
	m.Frames.Add(ctx, 1, metric.WithAttributes(attribute.Bool("voiced", res.Voiced)))
	m.ExtractDuration.Record(ctx, d.Seconds())
	m.Estimates.Add(ctx, 1, metric.WithAttributes(
		attribute.String("formant", "f1"),
		attribute.String("status", estimateStatus(res.Smoothed.F1)),
	))
	m.Estimates.Add(ctx, 1, metric.WithAttributes(
		attribute.String("formant", "f2"),
		attribute.String("status", estimateStatus(res.Smoothed.F2)),
	))
}

// RecordFrameError records a frame rejected with err.
func (m *Metrics) RecordFrameError(ctx context.Context, err error) {
	m.FrameErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", ErrorReason(err))))
}

// SessionStarted increments the active session gauge and returns the
// matching decrement.
func (m *Metrics) SessionStarted(ctx context.Context) (done func()) {
	m.ActiveSessions.Add(ctx, 1)
	var once sync.Once
	return func() {
		once.Do(func() { m.ActiveSessions.Add(ctx, -1) })
	}
}

// ErrorReason maps a frame error to a low-cardinality label.
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, spectrum.ErrEmptyFrame):
		return "empty"
	case errors.Is(err, spectrum.ErrInvalidSampleRate):
		return "sample_rate"
	case errors.Is(err, spectrum.ErrInvalidTransformSize):
		return "transform_size"
	case errors.Is(err, spectrum.ErrFrameTooLong):
		return "too_long"
	case errors.Is(err, spectrum.ErrNonFiniteMagnitude):
		return "non_finite"
	default:
		return "other"
	}
}

func estimateStatus(e formant.Estimate) string {
	switch {
	case !e.Valid:
		return "absent"
	case e.Held:
		return "held"
	default:
		return "valid"
	}
}
