package formant

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-formant/dsp/spectrum"
	"github.com/cwbudde/algo-formant/internal/testutil"
)

func est(hz float64) Estimate {
	return Estimate{FrequencyHz: hz, MagnitudeDB: -20, Valid: true}
}

func TestSmootherMedianRejectsOutlier(t *testing.T) {
	s := NewSmoother(WithWindow(3), WithMaxHold(0))

	var got Estimate
	for _, hz := range []float64{500, 520, 780} {
		got = s.Update(Pair{F1: est(hz)}).F1
	}
	if got.FrequencyHz != 520 {
		t.Fatalf("median=%f want 520", got.FrequencyHz)
	}

	// The ring keeps only the last three values: 520, 780, 530.
	got = s.Update(Pair{F1: est(530)}).F1
	if got.FrequencyHz != 530 {
		t.Fatalf("median=%f want 530", got.FrequencyHz)
	}
}

func TestSmootherMedianEvenCount(t *testing.T) {
	s := NewSmoother(WithWindow(4))
	s.Update(Pair{F2: est(1000)})
	got := s.Update(Pair{F2: est(1100)}).F2
	if got.FrequencyHz != 1050 {
		t.Fatalf("median=%f want 1050", got.FrequencyHz)
	}
}

func TestSmootherEMA(t *testing.T) {
	s := NewSmoother(WithMode(ModeEMA), WithAlpha(0.5))

	if got := s.Update(Pair{F1: est(400)}).F1.FrequencyHz; got != 400 {
		t.Fatalf("first EMA=%f want 400", got)
	}
	if got := s.Update(Pair{F1: est(600)}).F1.FrequencyHz; got != 500 {
		t.Fatalf("second EMA=%f want 500", got)
	}
	if got := s.Update(Pair{F1: est(700)}).F1.FrequencyHz; got != 600 {
		t.Fatalf("third EMA=%f want 600", got)
	}
}

func TestSmootherHoldThenReset(t *testing.T) {
	s := NewSmoother(WithMaxHold(2))

	s.Update(Pair{F1: est(500)})
	for i := 0; i < 2; i++ {
		got := s.Update(Pair{}).F1
		if !got.Valid || !got.Held || got.FrequencyHz != 500 {
			t.Fatalf("tick %d: got %+v, want held 500 Hz", i, got)
		}
	}
	if got := s.Update(Pair{}).F1; got.Valid {
		t.Fatalf("hold exceeded but got %+v", got)
	}

	got := s.Update(Pair{F1: est(700)}).F1
	if got.FrequencyHz != 700 || got.Held {
		t.Fatalf("history should restart after a reset, got %+v", got)
	}
}

func TestSmootherNoHistoryNoHold(t *testing.T) {
	s := NewSmoother()
	if got := s.Update(Pair{}); got != (Pair{}) {
		t.Fatalf("got %v, want empty pair", got)
	}
}

func TestSmootherKeepsOrder(t *testing.T) {
	s := NewSmoother(WithWindow(1), WithMaxHold(5))

	s.Update(Pair{F1: est(700), F2: est(1500)})
	raw := Pair{F2: est(650)}
	got := s.Update(raw)
	if got != raw {
		t.Fatalf("held F1 above new F2 must fall back to the raw pair, got %v", got)
	}
}

func TestSmootherUpdateBands(t *testing.T) {
	s := NewSmoother(WithWindow(3))
	var out []Estimate
	for _, hz := range []float64{2500, 2700, 2600} {
		out = s.UpdateBands([]Estimate{est(500), est(1500), est(hz)}, out[:0])
	}
	if len(out) != 3 || out[2].FrequencyHz != 2600 {
		t.Fatalf("UpdateBands=%v", out)
	}

	s.Reset()
	out = s.UpdateBands([]Estimate{{}, {}, {}}, out[:0])
	for i, e := range out {
		if e.Valid {
			t.Fatalf("slot %d valid after Reset: %+v", i, e)
		}
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeMedian, "median": ModeMedian, "ema": ModeEMA} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseMode("mean"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if ModeEMA.String() != "ema" {
		t.Fatalf("ModeEMA.String()=%q", ModeEMA.String())
	}
}

func TestTrackerSmoothsAndHolds(t *testing.T) {
	tr := NewTracker(nil, WithSmoother(NewSmoother(WithWindow(3), WithMaxHold(1))))

	vowel := frameWithPeaks(testRate, testSize, map[float64]float64{500: -20, 1500: -25})
	res, err := tr.Update(vowel)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !res.Voiced || res.Smoothed != res.Raw {
		t.Fatalf("first tick should pass through, got %+v", res)
	}

	if _, err := tr.Update(spectrum.NewFrame(nil, testRate, testSize)); err == nil {
		t.Fatalf("expected error for empty frame")
	}

	silence := spectrum.NewFrame(testutil.FrameDB(testBins, floorDB, nil), testRate, testSize)
	res, err = tr.Update(silence)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Raw.Valid() {
		t.Fatalf("silence produced raw formants: %v", res.Raw)
	}
	if !res.Smoothed.F1.Held || res.Smoothed.F1.FrequencyHz != 500 {
		t.Fatalf("failed tick must not consume the hold, got %+v", res.Smoothed.F1)
	}

	res, err = tr.Update(silence)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Smoothed.F1.Valid {
		t.Fatalf("hold of one tick exceeded, got %+v", res.Smoothed.F1)
	}
}

func TestTrackerVoicingGate(t *testing.T) {
	tr := NewTracker(nil, WithVoicingGate(0.5), WithSmoother(NewSmoother(WithMaxHold(0))))

	noise := testutil.DeterministicNoise(5, 5, testBins)
	for i := range noise {
		noise[i] -= 40
	}
	res, err := tr.Update(spectrum.NewFrame(noise, testRate, testSize))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Voiced || res.Flatness <= 0.5 {
		t.Fatalf("noise frame: voiced=%v flatness=%f", res.Voiced, res.Flatness)
	}
	if !res.Raw.Valid() || res.Smoothed.F1.Valid || res.Smoothed.F2.Valid {
		t.Fatalf("gated tick: raw=%v smoothed=%v", res.Raw, res.Smoothed)
	}

	vowel := frameWithPeaks(testRate, testSize, map[float64]float64{500: -20, 1500: -25})
	res, err = tr.Update(vowel)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !res.Voiced || !res.Smoothed.Valid() || math.Abs(res.Smoothed.F1.FrequencyHz-500) > 1e-9 {
		t.Fatalf("vowel frame: %+v", res)
	}

	tr.Reset()
	if tr.Extractor() == nil {
		t.Fatalf("tracker lost its extractor")
	}
}

func TestSmootherTreatsNonFiniteAsDropout(t *testing.T) {
	s := NewSmoother(WithMode(ModeEMA), WithAlpha(0.5), WithMaxHold(1))
	s.Update(Pair{F1: est(500)})

	bad := Estimate{FrequencyHz: 500, MagnitudeDB: math.Inf(1), Valid: true}
	got := s.Update(Pair{F1: bad}).F1
	if !got.Held || got.MagnitudeDB != -20 {
		t.Fatalf("non-finite estimate gave %+v, want the held -20 dB value", got)
	}

	got = s.Update(Pair{F1: est(600)}).F1
	if got.FrequencyHz != 550 || got.MagnitudeDB != -20 {
		t.Fatalf("EMA after dropout=%+v, want 550 Hz at -20 dB", got)
	}
}

func TestTrackerSkipsNonFiniteFrame(t *testing.T) {
	tr := NewTracker(nil, WithSmoother(NewSmoother(WithMode(ModeEMA), WithAlpha(0.5))))
	clean := spectrum.NewFrame(testutil.FrameDB(testBins, floorDB, map[int]float64{64: -20, 192: -30}), testRate, testSize)
	bad := spectrum.NewFrame(testutil.FrameDB(testBins, floorDB, map[int]float64{64: math.Inf(1), 150: -20}), testRate, testSize)

	if _, err := tr.Update(clean); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := tr.Update(bad); !errors.Is(err, ErrNonFiniteMagnitude) {
		t.Fatalf("got %v, want ErrNonFiniteMagnitude", err)
	}

	var res Result
	for i := 0; i < 3; i++ {
		var err error
		if res, err = tr.Update(clean); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	f1 := res.Smoothed.F1
	if f1.FrequencyHz != 500 || f1.MagnitudeDB != -20 {
		t.Fatalf("F1 after a rejected frame=%+v, want 500 Hz at -20 dB", f1)
	}
}

func TestTrackerF3(t *testing.T) {
	// Bins 64, 192, 294 and 358 are 500, 1500, 2296.875 and 2796.875 Hz.
	frame := spectrum.NewFrame(testutil.FrameDB(testBins, floorDB,
		map[int]float64{64: -20, 192: -25, 294: -28, 358: -30}), testRate, testSize)

	res, err := NewTracker(nil).Update(frame)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.F3.Valid {
		t.Fatalf("F3=%v without WithF3", res.F3)
	}

	tr := NewTracker(nil, WithF3())
	for i := 0; i < 2; i++ {
		if res, err = tr.Update(frame); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	if res.Smoothed.F1.FrequencyHz != 500 || res.Smoothed.F2.FrequencyHz != 1500 {
		t.Fatalf("smoothed pair=%v want 500/1500 Hz", res.Smoothed)
	}
	if !res.F3.Valid || res.F3.FrequencyHz != 2296.875 {
		t.Fatalf("F3=%v want 2296.875 Hz", res.F3)
	}

	// A wider F2 band pushes the F3 search above it.
	wide := mustExtractor(t, WithBands(F1Band, Band{Name: "F2", Low: 800, High: 2500, LowOpen: true}))
	res, err = NewTracker(wide, WithF3()).Update(frame)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !res.F3.Valid || res.F3.FrequencyHz != 2796.875 {
		t.Fatalf("F3=%v want 2796.875 Hz", res.F3)
	}
}
