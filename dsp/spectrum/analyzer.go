package spectrum

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-formant/dsp/core"
	"github.com/cwbudde/algo-formant/dsp/filter/fir"
	"github.com/cwbudde/algo-formant/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

const (
	defaultSmoothing  = 0.8
	defaultMinDecibel = -130.0
)

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*analyzerConfig)

type analyzerConfig struct {
	window      window.Type
	smoothing   float64
	minDecibel  float64
	preEmphasis float64
}

// WithWindow selects the analysis window. The default is Blackman, matching
// the Web Audio AnalyserNode.
func WithWindow(t window.Type) AnalyzerOption {
	return func(c *analyzerConfig) {
		c.window = t
	}
}

// WithSmoothing sets the temporal smoothing constant applied to linear
// magnitudes between frames. Values outside [0, 1) are ignored.
func WithSmoothing(tau float64) AnalyzerOption {
	return func(c *analyzerConfig) {
		if tau >= 0 && tau < 1 {
			c.smoothing = tau
		}
	}
}

// WithMinDecibels sets the level written for silent bins.
func WithMinDecibels(db float64) AnalyzerOption {
	return func(c *analyzerConfig) {
		if core.IsFinite(db) {
			c.minDecibel = db
		}
	}
}

// WithPreEmphasis runs the input through fir.PreEmphasis(coef) before
// buffering. Zero disables it.
func WithPreEmphasis(coef float64) AnalyzerOption {
	return func(c *analyzerConfig) {
		c.preEmphasis = coef
	}
}

// Analyzer turns a PCM stream into decibel spectral frames the way a browser
// AnalyserNode does: a windowed FFT over the most recent FFTSize samples,
// magnitudes normalised by the transform size, exponential smoothing across
// frames and FFTSize/2 output bins. A frame is emitted every HopSize samples
// once the first full block has arrived.
//
// An Analyzer is not safe for concurrent use.
type Analyzer struct {
	cfg        core.ProcessorConfig
	smoothing  float64
	minDecibel float64

	pre  *fir.Filter
	win  []float64
	plan *algofft.Plan[complex128]
	in   []complex128
	out  []complex128
	mag  []float64
	prev []float64

	dropped int
	lastErr error

	ring   []float64
	write  int
	filled int
	toHop  int
	primed bool
}

// NewAnalyzer builds an analyzer for cfg. The FFT size must be a power of
// two and the sample rate positive.
func NewAnalyzer(cfg core.ProcessorConfig, opts ...AnalyzerOption) (*Analyzer, error) {
	if cfg.SampleRate <= 0 || !core.IsFinite(cfg.SampleRate) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSampleRate, cfg.SampleRate)
	}
	n := cfg.FFTSize
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: %d is not a power of two", ErrInvalidTransformSize, n)
	}
	if cfg.HopSize <= 0 || cfg.HopSize > n {
		cfg.HopSize = n / 2
	}

	ac := analyzerConfig{
		window:     window.TypeBlackman,
		smoothing:  defaultSmoothing,
		minDecibel: defaultMinDecibel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&ac)
		}
	}

	var pre *fir.Filter
	if ac.preEmphasis != 0 {
		f, err := fir.PreEmphasis(ac.preEmphasis)
		if err != nil {
			return nil, fmt.Errorf("spectrum: %w", err)
		}
		pre = f
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("spectrum init fft plan: %w", err)
	}

	bins := n / 2
	a := &Analyzer{
		cfg:        cfg,
		smoothing:  ac.smoothing,
		minDecibel: ac.minDecibel,
		pre:        pre,
		win:        window.Generate(ac.window, n, window.WithPeriodic()),
		plan:       plan,
		in:         make([]complex128, n),
		out:        make([]complex128, n),
		mag:        make([]float64, bins),
		prev:       make([]float64, bins),
		ring:       make([]float64, n),
	}
	return a, nil
}

// Config returns the processor configuration in use.
func (a *Analyzer) Config() core.ProcessorConfig {
	return a.cfg
}

// Bins returns the number of magnitudes in each emitted frame.
func (a *Analyzer) Bins() int {
	return len(a.mag)
}

// Dropped returns how many hops produced no frame because the transform
// failed, and the most recent failure.
func (a *Analyzer) Dropped() (int, error) {
	return a.dropped, a.lastErr
}

// Reset clears buffered samples, the pre-emphasis state and the smoothing
// history. The drop count is kept.
func (a *Analyzer) Reset() {
	if a.pre != nil {
		a.pre.Reset()
	}
	core.Fill(a.ring, 0)
	core.Fill(a.prev, 0)
	a.write = 0
	a.filled = 0
	a.toHop = 0
	a.primed = false
}

// Write feeds samples and calls emit for every frame completed along the
// way. Each emitted frame owns a fresh magnitude slice. It returns the number
// of frames emitted. A hop whose transform fails emits nothing and is
// counted by Dropped.
func (a *Analyzer) Write(samples []float64, emit func(Frame)) int {
	n := len(a.ring)
	count := 0
	for _, x := range samples {
		if a.pre != nil {
			x = a.pre.ProcessSample(x)
		}
		a.ring[a.write] = x
		a.write++
		if a.write >= n {
			a.write = 0
		}
		if a.filled < n {
			a.filled++
		}
		a.toHop++
		if a.filled < n || a.toHop < a.cfg.HopSize {
			continue
		}
		a.toHop = 0

		f, err := a.frame()
		if err != nil {
			a.dropped++
			a.lastErr = err
			continue
		}
		count++
		if emit != nil {
			emit(f)
		}
	}
	return count
}

// Process is a convenience wrapper around Write that collects the frames.
func (a *Analyzer) Process(samples []float64) []Frame {
	var frames []Frame
	a.Write(samples, func(f Frame) {
		frames = append(frames, f)
	})
	return frames
}

func (a *Analyzer) frame() (Frame, error) {
	n := len(a.ring)
	read := a.write
	for i := 0; i < n; i++ {
		a.in[i] = complex(a.ring[read]*a.win[i], 0)
		read++
		if read >= n {
			read = 0
		}
	}

	if err := a.plan.Forward(a.out, a.in); err != nil {
		return Frame{}, fmt.Errorf("spectrum forward transform: %w", err)
	}
	if err := MagnitudeInto(a.mag, a.out[:len(a.mag)]); err != nil {
		return Frame{}, err
	}
	vecmath.ScaleBlock(a.mag, a.mag, 1/float64(n))

	if a.primed {
		tau := a.smoothing
		for k, m := range a.mag {
			a.prev[k] = tau*a.prev[k] + (1-tau)*m
		}
	} else {
		copy(a.prev, a.mag)
		a.primed = true
	}

	db := make([]float64, len(a.prev))
	if err := MagnitudeToDB(db, a.prev, a.minDecibel); err != nil {
		return Frame{}, err
	}
	return NewFrame(db, a.cfg.SampleRate, n), nil
}
