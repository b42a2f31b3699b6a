package formant

import (
	"github.com/cwbudde/algo-formant/dsp/spectrum"
	frequencystats "github.com/cwbudde/algo-formant/stats/frequency"
)

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithSmoother replaces the tracker's smoother.
func WithSmoother(s *Smoother) TrackerOption {
	return func(t *Tracker) {
		if s != nil {
			t.smoother = s
		}
	}
}

// WithVoicingGate treats frames whose spectral flatness exceeds maxFlatness
// as unvoiced: both formants are reported absent for that tick. Zero
// disables the gate.
func WithVoicingGate(maxFlatness float64) TrackerOption {
	return func(t *Tracker) {
		if maxFlatness >= 0 {
			t.maxFlatness = maxFlatness
		}
	}
}

// WithF3 also tracks the third formant in F3Band, clipped so it starts
// above the extractor's F2 band.
func WithF3() TrackerOption {
	return func(t *Tracker) {
		t.f3 = true
	}
}

// Result is one tracker tick.
type Result struct {
	// Raw is the single-frame extraction.
	Raw Pair `json:"raw"`
	// Smoothed is Raw after the smoother.
	Smoothed Pair `json:"smoothed"`
	// Flatness is the frame's spectral flatness, computed only when the
	// voicing gate is on.
	Flatness float64 `json:"flatness,omitempty"`
	// Voiced is false when the voicing gate rejected the frame.
	Voiced bool `json:"voiced"`
	// F3 is the smoothed third formant. It stays absent unless the tracker
	// was built with WithF3.
	F3 Estimate `json:"f3"`
}

// Tracker runs an Extractor and a Smoother over one stream of frames. It is
// not safe for concurrent use. Create one per stream.
type Tracker struct {
	extractor   *Extractor
	smoother    *Smoother
	maxFlatness float64

	f3    bool
	bands []Band
	est   []Estimate
	out   []Estimate
}

// NewTracker wraps ex. A nil extractor uses the defaults.
func NewTracker(ex *Extractor, opts ...TrackerOption) *Tracker {
	if ex == nil {
		ex = defaultExtractor
	}
	t := &Tracker{
		extractor: ex,
		smoother:  NewSmoother(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	if t.f3 {
		f1, f2 := ex.Bands()
		f3 := F3Band
		if f2.High >= f3.Low {
			f3.Low, f3.LowOpen = f2.High, !f2.HighOpen
		}
		t.bands = []Band{f1, f2}
		if f3.Validate() == nil {
			t.bands = append(t.bands, f3)
		}
	}
	return t
}

// Update processes one frame. A frame that fails validation returns the
// error and leaves the smoothing history untouched, so the caller can skip
// the tick and carry on.
func (t *Tracker) Update(frame spectrum.Frame) (Result, error) {
	if t.f3 {
		return t.updateBands(frame)
	}

	raw, err := t.extractor.Extract(frame)
	if err != nil {
		return Result{}, err
	}

	res := Result{Raw: raw}
	if !t.voiced(frame, &res) {
		raw = Pair{}
	}
	res.Smoothed = t.smoother.Update(raw)
	return res, nil
}

func (t *Tracker) updateBands(frame spectrum.Frame) (Result, error) {
	est, err := t.extractor.ExtractBands(frame, t.bands, t.est[:0])
	if err != nil {
		return Result{}, err
	}
	t.est = est

	raw := Pair{F1: est[0], F2: est[1]}
	if err := raw.Validate(); err != nil {
		return Result{}, err
	}

	res := Result{Raw: raw}
	if !t.voiced(frame, &res) {
		for i := range est {
			est[i] = Estimate{}
		}
	}

	// Three slots, F3 last, so a missing F3 band still keeps the layout.
	var in [3]Estimate
	copy(in[:], est)
	t.out = t.smoother.UpdateBands(in[:], t.out[:0])

	res.Smoothed = Pair{F1: t.out[0], F2: t.out[1]}
	if res.Smoothed.Validate() != nil {
		res.Smoothed = Pair{F1: in[0], F2: in[1]}
	}
	res.F3 = t.out[2]
	return res, nil
}

// voiced runs the voicing gate and records its outcome in res.
func (t *Tracker) voiced(frame spectrum.Frame, res *Result) bool {
	res.Voiced = true
	if t.maxFlatness > 0 {
		res.Flatness = frequencystats.FrameFlatness(frame)
		res.Voiced = !(res.Flatness > t.maxFlatness)
	}
	return res.Voiced
}

// Reset drops the smoothing history, for example when the stream restarts.
func (t *Tracker) Reset() {
	t.smoother.Reset()
}

// Extractor returns the wrapped extractor.
func (t *Tracker) Extractor() *Extractor {
	return t.extractor
}
