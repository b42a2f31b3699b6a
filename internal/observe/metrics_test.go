package observe

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/cwbudde/algo-formant/dsp/formant"
	"github.com/cwbudde/algo-formant/dsp/spectrum"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumByAttrs indexes an int64 sum by the string form of its attribute set.
func sumByAttrs(t *testing.T, rm metricdata.ResourceMetrics, name string) map[string]int64 {
	t.Helper()
	met := findMetric(rm, name)
	require.NotNil(t, met, "metric %q not found", name)
	sum, ok := met.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %q is not a sum", name)

	out := make(map[string]int64, len(sum.DataPoints))
	for _, dp := range sum.DataPoints {
		key := ""
		for _, kv := range dp.Attributes.ToSlice() {
			key += fmt.Sprintf("%s=%s;", kv.Key, kv.Value.Emit())
		}
		out[key] = dp.Value
	}
	return out
}

func TestRecordTick(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	valid := formant.Estimate{FrequencyHz: 500, Valid: true}
	held := formant.Estimate{FrequencyHz: 1200, Valid: true, Held: true}

	m.RecordTick(ctx, formant.Result{Smoothed: formant.Pair{F1: valid, F2: held}, Voiced: true}, 20*time.Microsecond)
	m.RecordTick(ctx, formant.Result{Smoothed: formant.Pair{F1: valid}, Voiced: true}, 40*time.Microsecond)
	m.RecordTick(ctx, formant.Result{}, 10*time.Microsecond)

	rm := collect(t, reader)

	frames := sumByAttrs(t, rm, "formant.frames")
	assert.Equal(t, int64(2), frames["voiced=true;"])
	assert.Equal(t, int64(1), frames["voiced=false;"])

	est := sumByAttrs(t, rm, "formant.estimates")
	assert.Equal(t, int64(2), est["formant=f1;status=valid;"])
	assert.Equal(t, int64(1), est["formant=f1;status=absent;"])
	assert.Equal(t, int64(1), est["formant=f2;status=held;"])
	assert.Equal(t, int64(2), est["formant=f2;status=absent;"])

	met := findMetric(rm, "formant.extract.duration")
	require.NotNil(t, met)
	hist, ok := met.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(3), hist.DataPoints[0].Count)
	assert.Equal(t, "s", met.Unit)
}

func TestRecordFrameError(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	empty := spectrum.Frame{SampleRate: 16000, TransformSize: 2048}
	m.RecordFrameError(ctx, empty.Validate())
	m.RecordFrameError(ctx, fmt.Errorf("wrapped: %w", spectrum.ErrFrameTooLong))
	m.RecordFrameError(ctx, fmt.Errorf("boom"))

	errs := sumByAttrs(t, collect(t, reader), "formant.frame.errors")
	assert.Equal(t, int64(1), errs["reason=empty;"])
	assert.Equal(t, int64(1), errs["reason=too_long;"])
	assert.Equal(t, int64(1), errs["reason=other;"])
}

func TestSessionStarted(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	doneA := m.SessionStarted(ctx)
	doneB := m.SessionStarted(ctx)
	doneA()
	doneA()

	active := sumByAttrs(t, collect(t, reader), "formant.active_sessions")
	assert.Equal(t, int64(1), active[""], "a second done call must not decrement again")

	doneB()
	active = sumByAttrs(t, collect(t, reader), "formant.active_sessions")
	assert.Equal(t, int64(0), active[""])
}

func TestErrorReason(t *testing.T) {
	cases := map[error]string{
		spectrum.ErrEmptyFrame:           "empty",
		spectrum.ErrInvalidSampleRate:    "sample_rate",
		spectrum.ErrInvalidTransformSize: "transform_size",
		spectrum.ErrFrameTooLong:         "too_long",
		spectrum.ErrNonFiniteMagnitude:   "non_finite",
	}
	for err, want := range cases {
		assert.Equal(t, want, ErrorReason(fmt.Errorf("ctx: %w", err)))
	}
}

func TestDefaultMetricsIsSingleton(t *testing.T) {
	assert.Same(t, DefaultMetrics(), DefaultMetrics())
}
