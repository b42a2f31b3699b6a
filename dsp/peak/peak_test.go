package peak

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-formant/dsp/core"
	"github.com/cwbudde/algo-formant/dsp/spectrum"
	"github.com/cwbudde/algo-formant/internal/testutil"
)

func bins(peaks []Peak) []int {
	out := make([]int, len(peaks))
	for i, p := range peaks {
		out[i] = p.Bin
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFindStrictLocalMaxima(t *testing.T) {
	tests := []struct {
		name string
		mags []float64
		want []int
	}{
		{name: "single", mags: []float64{-100, -20, -100}, want: []int{1}},
		{name: "plateau", mags: []float64{-100, -10, -10, -100}, want: []int{}},
		{name: "edges ignored", mags: []float64{0, -100, -100, 0}, want: []int{}},
		{name: "ascending", mags: []float64{-100, -30, -90, -10, -90, -50, -100}, want: []int{1, 3, 5}},
		{name: "below threshold", mags: []float64{-100, -60, -100, -59.5, -100}, want: []int{3}},
		{name: "too short", mags: []float64{-10, -5}, want: []int{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Find(spectrum.NewFrame(tc.mags, 1000, 16))
			if err != nil {
				t.Fatalf("Find: %v", err)
			}
			if !equalInts(bins(got), tc.want) {
				t.Fatalf("bins=%v want %v", bins(got), tc.want)
			}
		})
	}
}

func TestFindFrequencyMapping(t *testing.T) {
	mags := testutil.FrameDB(1024, -100, map[int]float64{64: -20, 154: -25})
	got, err := Find(spectrum.NewFrame(mags, 16000, 2048))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d peaks", len(got))
	}
	if got[0].FrequencyHz != 500 || got[0].CentreHz != 500 || got[0].MagnitudeDB != -20 {
		t.Fatalf("unexpected first peak: %+v", got[0])
	}
	if math.Abs(got[1].FrequencyHz-1203.125) > 1e-9 {
		t.Fatalf("second peak at %f Hz", got[1].FrequencyHz)
	}
}

func TestFindPropagatesFrameErrors(t *testing.T) {
	_, err := Find(spectrum.NewFrame(nil, 16000, 2048))
	if !errors.Is(err, spectrum.ErrEmptyFrame) {
		t.Fatalf("got %v want ErrEmptyFrame", err)
	}
	_, err = Find(spectrum.NewFrame(make([]float64, 8), 16000, 8))
	if !errors.Is(err, spectrum.ErrFrameTooLong) {
		t.Fatalf("got %v want ErrFrameTooLong", err)
	}
}

func TestFindWithThreshold(t *testing.T) {
	mags := []float64{-100, -40, -100, -20, -100}
	got, err := Find(spectrum.NewFrame(mags, 1000, 16), WithThreshold(-30))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !equalInts(bins(got), []int{3}) {
		t.Fatalf("bins=%v want [3]", bins(got))
	}
}

func TestAdaptiveThresholdNeverBelowFixed(t *testing.T) {
	quiet := spectrum.NewFrame(testutil.FrameDB(64, -120, map[int]float64{10: -55}), 8000, 128)
	d := NewDetector(WithAdaptiveThreshold(6))

	if got := d.ThresholdDB(quiet); got != DefaultThresholdDB {
		t.Fatalf("threshold=%f want fixed %f", got, DefaultThresholdDB)
	}

	loud := spectrum.NewFrame(testutil.FrameDB(64, -30, map[int]float64{10: -5, 20: -27}), 8000, 128)
	th := d.ThresholdDB(loud)
	if th <= -30 || th >= -5 {
		t.Fatalf("adaptive threshold=%f outside (-30, -5)", th)
	}

	got, err := d.Find(loud)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !equalInts(bins(got), []int{10}) {
		t.Fatalf("bins=%v want [10]", bins(got))
	}
}

func TestInterpolationRefinesVertex(t *testing.T) {
	mags := []float64{-100, -20, -10, -14, -100}
	frame := spectrum.NewFrame(mags, 800, 8)

	got, err := Find(frame, WithInterpolation())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d peaks", len(got))
	}
	p := got[0]
	wantOffset := 0.5 * (-20.0 + 14.0) / (-20.0 + 20.0 - 14.0)
	if math.Abs(p.Position-(2+wantOffset)) > 1e-12 {
		t.Fatalf("position=%f want %f", p.Position, 2+wantOffset)
	}
	if p.CentreHz != 200 {
		t.Fatalf("centre=%f want 200", p.CentreHz)
	}
	if p.FrequencyHz <= p.CentreHz {
		t.Fatalf("refined frequency %f should move towards the louder neighbour", p.FrequencyHz)
	}
	if p.MagnitudeDB < -10 {
		t.Fatalf("refined level %f below sampled maximum", p.MagnitudeDB)
	}
}

func TestBandwidthTriangle(t *testing.T) {
	mags := testutil.Resonance(33, -100, 3, map[int]float64{10: -20})
	frame := spectrum.NewFrame(mags, 640, 64)

	got, err := Find(frame, WithBandwidth())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d peaks", len(got))
	}
	// Skirt falls 20 dB per bin, so -3 dB lies 0.15 bins either side.
	if math.Abs(got[0].BandwidthHz-3) > 1e-9 {
		t.Fatalf("bandwidth=%f Hz want 3", got[0].BandwidthHz)
	}
}

func TestLinearFrameMatchesDB(t *testing.T) {
	db := testutil.Resonance(128, -90, 4, map[int]float64{20: -20, 60: -35, 90: -65})
	lin := make([]float64, len(db))
	for i, v := range db {
		lin[i] = core.DBToLinear(v)
	}

	dbPeaks, err := Find(spectrum.NewFrame(db, 8000, 256))
	if err != nil {
		t.Fatalf("Find dB: %v", err)
	}
	linPeaks, err := Find(spectrum.Frame{Magnitudes: lin, SampleRate: 8000, TransformSize: 256, Scale: spectrum.ScaleLinear})
	if err != nil {
		t.Fatalf("Find linear: %v", err)
	}
	if !equalInts(bins(dbPeaks), bins(linPeaks)) {
		t.Fatalf("dB peaks %v != linear peaks %v", bins(dbPeaks), bins(linPeaks))
	}
	if !equalInts(bins(dbPeaks), []int{20, 60}) {
		t.Fatalf("bins=%v want [20 60]", bins(dbPeaks))
	}
}

func TestScanStopsEarly(t *testing.T) {
	mags := testutil.FrameDB(32, -100, map[int]float64{4: -10, 8: -10, 12: -10})
	calls := 0
	err := NewDetector().Scan(spectrum.NewFrame(mags, 1000, 64), func(Peak) bool {
		calls++
		return false
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if calls != 1 {
		t.Fatalf("visit called %d times, want 1", calls)
	}
}

func BenchmarkScan(b *testing.B) {
	mags := testutil.Resonance(1024, -100, 6, map[int]float64{60: -20, 150: -25, 320: -30})
	frame := spectrum.NewFrame(mags, 16000, 2048)
	d := NewDetector(WithInterpolation())
	visit := func(Peak) bool { return true }

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = d.Scan(frame, visit)
	}
}
