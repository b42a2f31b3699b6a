package config

import (
	"github.com/cwbudde/algo-formant/dsp/core"
	"github.com/cwbudde/algo-formant/dsp/formant"
	"github.com/cwbudde/algo-formant/dsp/spectrum"
	"github.com/cwbudde/algo-formant/dsp/window"
)

// ProcessorConfig returns the analysis settings for a stream at sampleRate.
// A non-positive sampleRate uses the configured one.
func (a AnalyzerConfig) ProcessorConfig(sampleRate float64) core.ProcessorConfig {
	if !(sampleRate > 0) {
		sampleRate = a.SampleRate
	}
	hop := a.HopSize
	if hop <= 0 {
		hop = a.FFTSize / 2
	}
	return core.ApplyProcessorOptions(
		core.WithSampleRate(sampleRate),
		core.WithFFTSize(a.FFTSize),
		core.WithHopSize(hop),
	)
}

// Options converts the analyzer settings. The window name has already been
// checked by Validate; an unknown name keeps the analyzer default.
func (a AnalyzerConfig) Options() []spectrum.AnalyzerOption {
	opts := []spectrum.AnalyzerOption{
		spectrum.WithSmoothing(a.Smoothing),
		spectrum.WithMinDecibels(a.MinDecibels),
		spectrum.WithPreEmphasis(a.PreEmphasis),
	}
	if t, err := window.ParseType(a.Window); err == nil {
		opts = append(opts, spectrum.WithWindow(t))
	}
	return opts
}

// NewAnalyzer builds a spectrum analyzer for a stream at sampleRate.
func (a AnalyzerConfig) NewAnalyzer(sampleRate float64) (*spectrum.Analyzer, error) {
	return spectrum.NewAnalyzer(a.ProcessorConfig(sampleRate), a.Options()...)
}

// Options converts the extractor settings.
func (e ExtractorConfig) Options() ([]formant.Option, error) {
	sel, err := formant.ParseSelection(e.Selection)
	if err != nil {
		return nil, err
	}
	opts := []formant.Option{
		formant.WithThreshold(e.ThresholdDB),
		formant.WithSelection(sel),
	}
	if e.Adaptive {
		opts = append(opts, formant.WithAdaptiveThreshold(e.AdaptiveOffsetDB))
	}
	if e.Interpolate {
		opts = append(opts, formant.WithInterpolation())
	}
	if e.Bandwidth {
		opts = append(opts, formant.WithBandwidth())
	}
	if e.EnvelopeWidthHz > 0 {
		opts = append(opts, formant.WithEnvelopeSmoothing(e.EnvelopeWidthHz))
	}
	return opts, nil
}

// NewExtractor builds an extractor from the settings.
func (e ExtractorConfig) NewExtractor() (*formant.Extractor, error) {
	opts, err := e.Options()
	if err != nil {
		return nil, err
	}
	return formant.NewExtractor(opts...)
}

// SmootherOptions converts the smoothing settings.
func (t TrackerConfig) SmootherOptions() ([]formant.SmootherOption, error) {
	mode, err := formant.ParseMode(t.Mode)
	if err != nil {
		return nil, err
	}
	return []formant.SmootherOption{
		formant.WithMode(mode),
		formant.WithWindow(t.Window),
		formant.WithAlpha(t.Alpha),
		formant.WithMaxHold(t.MaxHold),
	}, nil
}

// NewTracker builds a tracker around ex. Each stream needs its own tracker.
func (t TrackerConfig) NewTracker(ex *formant.Extractor) (*formant.Tracker, error) {
	sopts, err := t.SmootherOptions()
	if err != nil {
		return nil, err
	}
	topts := []formant.TrackerOption{
		formant.WithSmoother(formant.NewSmoother(sopts...)),
		formant.WithVoicingGate(t.VoicingGate),
	}
	if t.F3 {
		topts = append(topts, formant.WithF3())
	}
	return formant.NewTracker(ex, topts...), nil
}
