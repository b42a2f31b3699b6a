package fir

import (
	"math"
	"testing"
)

func TestNewRejectsEmptyTaps(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for no taps")
	}
}

func TestProcessSampleImpulse(t *testing.T) {
	taps := []float64{0.5, 0.25, 0.125}
	f, err := New(taps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 5; i++ {
		x := 0.0
		if i == 0 {
			x = 1
		}
		want := 0.0
		if i < len(taps) {
			want = taps[i]
		}
		if got := f.ProcessSample(x); got != want {
			t.Fatalf("y[%d]=%g want %g", i, got, want)
		}
	}
}

func TestPreEmphasis(t *testing.T) {
	f, err := PreEmphasis(0.97)
	if err != nil {
		t.Fatalf("PreEmphasis: %v", err)
	}
	buf := []float64{1, 1, 1, 1}
	f.ProcessBlock(buf)
	want := []float64{1, 0.03, 0.03, 0.03}
	for i := range buf {
		if math.Abs(buf[i]-want[i]) > 1e-12 {
			t.Fatalf("y[%d]=%g want %g", i, buf[i], want[i])
		}
	}

	// About +6 dB per octave well below Nyquist, and a deep cut at DC.
	lo := f.MagnitudeDB(500, 16000)
	hi := f.MagnitudeDB(1000, 16000)
	if d := hi - lo; d < 5 || d > 6.1 {
		t.Fatalf("octave gain=%g dB want about 6", d)
	}
	if dc := f.MagnitudeDB(0, 16000); math.Abs(dc-20*math.Log10(0.03)) > 1e-9 {
		t.Fatalf("DC gain=%g dB", dc)
	}

	for _, bad := range []float64{-0.1, 1, math.NaN()} {
		if _, err := PreEmphasis(bad); err == nil {
			t.Fatalf("expected error for coefficient %g", bad)
		}
	}
}

func TestResetClearsHistory(t *testing.T) {
	f, _ := PreEmphasis(0.5)
	f.ProcessSample(4)
	f.Reset()
	if got := f.ProcessSample(1); got != 1 {
		t.Fatalf("after Reset y=%g want 1", got)
	}
}

func TestTapsIsCopy(t *testing.T) {
	f, _ := New([]float64{1, 2})
	taps := f.Taps()
	taps[0] = 9
	if f.Taps()[0] != 1 {
		t.Fatal("Taps must return a copy")
	}
}
