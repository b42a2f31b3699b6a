// Package webdemo holds the browser demo state behind the WebAssembly
// bridge. It has no syscall/js dependency so it can be tested natively.
package webdemo

import (
	"fmt"

	"github.com/cwbudde/algo-formant/dsp/core"
	"github.com/cwbudde/algo-formant/dsp/formant"
	"github.com/cwbudde/algo-formant/dsp/signal"
	"github.com/cwbudde/algo-formant/dsp/spectrum"
	"github.com/cwbudde/algo-formant/internal/config"
	"github.com/cwbudde/algo-formant/measure/vowel"
)

// Settings are the knobs the demo page exposes.
type Settings struct {
	Selection       string
	Interpolate     bool
	EnvelopeWidthHz float64
	ThresholdDB     float64
	TrackerMode     string
	VoicingGate     float64
	F3              bool
}

// View is one tracked frame as the page draws it.
type View struct {
	F1, F2   float64
	F3       float64
	Valid    bool
	Held     bool
	Voiced   bool
	X, Y     float64
	Placed   bool
	Col, Row int
}

// Engine runs formant tracking for one browser tab. The page either hands
// it decibel frames from an AnalyserNode or raw microphone samples, which go
// through the Go spectrum analyzer first.
type Engine struct {
	cfg        *config.Config
	sampleRate float64
	fftSize    int

	extractor *formant.Extractor
	tracker   *formant.Tracker
	analyzer  *spectrum.Analyzer
	last      View
}

// NewEngine creates an engine for the given audio context rate and
// transform size.
func NewEngine(sampleRate float64, fftSize int) (*Engine, error) {
	cfg := config.Default()
	cfg.Analyzer.SampleRate = sampleRate
	cfg.Analyzer.FFTSize = fftSize
	cfg.Analyzer.HopSize = 0
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, sampleRate: sampleRate, fftSize: fftSize}
	if err := e.rebuild(); err != nil {
		return nil, err
	}
	return e, nil
}

// Configure replaces the extraction and smoothing settings and resets the
// track.
func (e *Engine) Configure(s Settings) error {
	next := *e.cfg
	next.Extractor.Selection = s.Selection
	next.Extractor.Interpolate = s.Interpolate
	next.Extractor.EnvelopeWidthHz = s.EnvelopeWidthHz
	next.Extractor.ThresholdDB = s.ThresholdDB
	next.Tracker.Mode = s.TrackerMode
	next.Tracker.VoicingGate = s.VoicingGate
	next.Tracker.F3 = s.F3
	if err := config.Validate(&next); err != nil {
		return err
	}

	prev := e.cfg
	e.cfg = &next
	if err := e.rebuild(); err != nil {
		e.cfg = prev
		return err
	}
	return nil
}

// Settings returns the current settings.
func (e *Engine) Settings() Settings {
	return Settings{
		Selection:       e.cfg.Extractor.Selection,
		Interpolate:     e.cfg.Extractor.Interpolate,
		EnvelopeWidthHz: e.cfg.Extractor.EnvelopeWidthHz,
		ThresholdDB:     e.cfg.Extractor.ThresholdDB,
		TrackerMode:     e.cfg.Tracker.Mode,
		VoicingGate:     e.cfg.Tracker.VoicingGate,
		F3:              e.cfg.Tracker.F3,
	}
}

func (e *Engine) rebuild() error {
	ex, err := e.cfg.Extractor.NewExtractor()
	if err != nil {
		return err
	}
	tr, err := e.cfg.Tracker.NewTracker(ex)
	if err != nil {
		return err
	}
	an, err := e.cfg.Analyzer.NewAnalyzer(e.sampleRate)
	if err != nil {
		return err
	}
	e.extractor, e.tracker, e.analyzer = ex, tr, an
	e.last = View{}
	return nil
}

// Extract estimates F1 and F2 from one frame without touching the track.
func (e *Engine) Extract(mags []float64) (formant.Pair, error) {
	return e.extractor.Extract(spectrum.NewFrame(mags, e.sampleRate, e.fftSize))
}

// Track feeds one decibel frame through the tracker.
func (e *Engine) Track(mags []float64) (View, error) {
	res, err := e.tracker.Update(spectrum.NewFrame(mags, e.sampleRate, e.fftSize))
	if err != nil {
		return View{}, err
	}
	e.last = e.view(res)
	return e.last, nil
}

// PushSamples analyses raw samples and tracks every frame they complete.
// It returns the view of the newest frame and whether any frame completed.
func (e *Engine) PushSamples(samples []float64) (View, bool, error) {
	var (
		updated bool
		err     error
	)
	e.analyzer.Write(samples, func(f spectrum.Frame) {
		if err != nil {
			return
		}
		var res formant.Result
		res, err = e.tracker.Update(f)
		if err == nil {
			e.last = e.view(res)
			updated = true
		}
	})
	return e.last, updated, err
}

// Last returns the most recent view.
func (e *Engine) Last() View {
	return e.last
}

// Reset clears the track and the analyzer history.
func (e *Engine) Reset() {
	e.tracker.Reset()
	e.analyzer.Reset()
	e.last = View{}
}

// Chart returns the chart geometry.
func (e *Engine) Chart() vowel.Chart {
	return e.cfg.Chart
}

// Target returns the chart position of a reference vowel.
func (e *Engine) Target(key string) (vowel.Point, error) {
	v, err := vowel.Lookup(key)
	if err != nil {
		return vowel.Point{}, err
	}
	return e.cfg.Chart.Target(v), nil
}

// RenderVowel synthesises a reference vowel for playback at the engine's
// sample rate.
func (e *Engine) RenderVowel(key string, f0 float64, samples int) ([]float64, error) {
	v, err := vowel.Lookup(key)
	if err != nil {
		return nil, err
	}
	res := make([]signal.Resonance, 0, 3)
	for _, hz := range []float64{v.F1, v.F2, v.F3} {
		if hz < e.sampleRate/2 {
			res = append(res, signal.Resonance{FrequencyHz: hz, BandwidthHz: signal.DefaultBandwidth(hz)})
		}
	}
	g := signal.NewGenerator(core.WithSampleRate(e.sampleRate))
	out, err := g.Vowel(f0, res, 0.5, samples)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", v.Code, err)
	}
	return out, nil
}

func (e *Engine) view(res formant.Result) View {
	s := res.Smoothed
	v := View{
		F1:     s.F1.FrequencyHz,
		F2:     s.F2.FrequencyHz,
		Valid:  s.Valid(),
		Held:   s.F1.Held || s.F2.Held,
		Voiced: res.Voiced,
	}
	if res.F3.Valid {
		v.F3 = res.F3.FrequencyHz
	}
	if pt, ok := e.cfg.Chart.Place(s); ok {
		v.X, v.Y, v.Placed = pt.X, pt.Y, true
		v.Col, v.Row = e.cfg.Chart.Cell(pt)
	}
	return v
}
