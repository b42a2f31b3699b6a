package formant

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-formant/dsp/core"
)

// Mode selects how a Smoother combines recent estimates.
type Mode int

const (
	// ModeMedian reports the median of the last K valid values.
	ModeMedian Mode = iota
	// ModeEMA reports an exponential moving average of valid values.
	ModeEMA
)

// String returns "median" or "ema".
func (m Mode) String() string {
	switch m {
	case ModeMedian:
		return "median"
	case ModeEMA:
		return "ema"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "median" or "ema".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "median", "":
		return ModeMedian, nil
	case "ema":
		return ModeEMA, nil
	default:
		return 0, fmt.Errorf("unknown smoothing mode %q", s)
	}
}

const (
	defaultWindow  = 5
	defaultAlpha   = 0.35
	defaultMaxHold = 3
)

// SmootherOption configures a Smoother.
type SmootherOption func(*smootherConfig)

type smootherConfig struct {
	mode    Mode
	window  int
	alpha   float64
	maxHold int
}

// WithMode selects median or EMA smoothing.
func WithMode(m Mode) SmootherOption {
	return func(c *smootherConfig) {
		if m == ModeMedian || m == ModeEMA {
			c.mode = m
		}
	}
}

// WithWindow sets K, the number of recent valid values kept per formant.
func WithWindow(k int) SmootherOption {
	return func(c *smootherConfig) {
		if k > 0 {
			c.window = k
		}
	}
}

// WithAlpha sets the EMA weight of the newest value, in (0, 1].
func WithAlpha(alpha float64) SmootherOption {
	return func(c *smootherConfig) {
		if alpha > 0 && alpha <= 1 {
			c.alpha = alpha
		}
	}
}

// WithMaxHold sets how many consecutive invalid ticks keep reporting the
// last smoothed value before the history is dropped. Zero reports dropouts
// immediately.
func WithMaxHold(ticks int) SmootherOption {
	return func(c *smootherConfig) {
		if ticks >= 0 {
			c.maxHold = ticks
		}
	}
}

// track is the history of one formant.
type track struct {
	freq    []float64
	mag     []float64
	scratch []float64
	head    int
	count   int

	emaFreq float64
	emaMag  float64

	last Estimate
	held int
}

func newTrack(k int) track {
	return track{
		freq:    make([]float64, k),
		mag:     make([]float64, k),
		scratch: make([]float64, k),
	}
}

func (t *track) reset() {
	t.head = 0
	t.count = 0
	t.held = 0
	t.last = Estimate{}
}

// Smoother reduces tick-to-tick jitter of formant estimates. Each formant
// slot keeps its own ring buffer of recent valid values. An estimate with a
// non-finite frequency or level counts as a dropout. A Smoother is not
// safe for concurrent use; keep one per stream.
type Smoother struct {
	cfg    smootherConfig
	tracks []track
}

// NewSmoother returns a smoother with the given options applied.
func NewSmoother(opts ...SmootherOption) *Smoother {
	cfg := smootherConfig{
		mode:    ModeMedian,
		window:  defaultWindow,
		alpha:   defaultAlpha,
		maxHold: defaultMaxHold,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Smoother{cfg: cfg}
}

// Update smooths one tick of F1 and F2. If smoothing would ever put F1 at or
// above F2, the raw pair is returned instead.
func (s *Smoother) Update(p Pair) Pair {
	var buf [2]Estimate
	s.ensure(2)
	buf[0] = s.update(0, p.F1)
	buf[1] = s.update(1, p.F2)

	out := Pair{F1: buf[0], F2: buf[1]}
	if out.Validate() != nil {
		return p
	}
	return out
}

// UpdateBands smooths one tick of any number of formants, slot by slot, and
// appends the results to dst. The slot count must stay the same between
// calls; a change resets all history.
func (s *Smoother) UpdateBands(in, dst []Estimate) []Estimate {
	s.ensure(len(in))
	for i, e := range in {
		dst = append(dst, s.update(i, e))
	}
	return dst
}

// Reset drops all history.
func (s *Smoother) Reset() {
	for i := range s.tracks {
		s.tracks[i].reset()
	}
}

func (s *Smoother) ensure(n int) {
	if len(s.tracks) == n {
		return
	}
	s.tracks = make([]track, n)
	for i := range s.tracks {
		s.tracks[i] = newTrack(s.cfg.window)
	}
}

func (s *Smoother) update(slot int, e Estimate) Estimate {
	t := &s.tracks[slot]

	if !e.Valid || !core.IsFinite(e.FrequencyHz) || !core.IsFinite(e.MagnitudeDB) {
		if t.count > 0 && t.held < s.cfg.maxHold {
			t.held++
			out := t.last
			out.Held = true
			return out
		}
		t.reset()
		return Estimate{}
	}

	t.held = 0
	k := len(t.freq)
	t.freq[t.head] = e.FrequencyHz
	t.mag[t.head] = e.MagnitudeDB
	t.head = (t.head + 1) % k
	if t.count < k {
		t.count++
	}

	out := e
	switch s.cfg.mode {
	case ModeEMA:
		if t.count == 1 {
			t.emaFreq, t.emaMag = e.FrequencyHz, e.MagnitudeDB
		} else {
			a := s.cfg.alpha
			t.emaFreq = a*e.FrequencyHz + (1-a)*t.emaFreq
			t.emaMag = a*e.MagnitudeDB + (1-a)*t.emaMag
		}
		out.FrequencyHz, out.MagnitudeDB = t.emaFreq, t.emaMag
	default:
		out.FrequencyHz = t.median(t.freq)
		out.MagnitudeDB = t.median(t.mag)
	}

	t.last = out
	return out
}

// median returns the median of the filled part of ring. Even counts average
// the two middle values.
func (t *track) median(ring []float64) float64 {
	vals := t.scratch[:t.count]
	copy(vals, ring[:t.count])
	sort.Float64s(vals)

	if t.count%2 == 1 {
		return stat.Quantile(0.5, stat.Empirical, vals, nil)
	}
	mid := t.count / 2
	return (vals[mid-1] + vals[mid]) / 2
}
