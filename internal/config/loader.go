package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cwbudde/algo-formant/dsp/formant"
	"github.com/cwbudde/algo-formant/dsp/window"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Analyzer
	a := cfg.Analyzer
	if !(a.SampleRate > 0) || math.IsInf(a.SampleRate, 0) {
		errs = append(errs, fmt.Errorf("analyzer.sample_rate %g must be positive", a.SampleRate))
	}
	if a.FFTSize < 2 || a.FFTSize&(a.FFTSize-1) != 0 {
		errs = append(errs, fmt.Errorf("analyzer.fft_size %d must be a power of two >= 2", a.FFTSize))
	}
	if a.HopSize < 0 || (a.FFTSize > 0 && a.HopSize > a.FFTSize) {
		errs = append(errs, fmt.Errorf("analyzer.hop_size %d is out of range [0, fft_size]", a.HopSize))
	}
	if _, err := window.ParseType(a.Window); err != nil {
		errs = append(errs, fmt.Errorf("analyzer.window: %w", err))
	}
	if a.Smoothing < 0 || a.Smoothing >= 1 {
		errs = append(errs, fmt.Errorf("analyzer.smoothing %g is out of range [0, 1)", a.Smoothing))
	}
	if !(a.PreEmphasis >= 0 && a.PreEmphasis < 1) {
		errs = append(errs, fmt.Errorf("analyzer.pre_emphasis %g is out of range [0, 1)", a.PreEmphasis))
	}

	// Extractor
	e := cfg.Extractor
	if math.IsNaN(e.ThresholdDB) || math.IsInf(e.ThresholdDB, 0) {
		errs = append(errs, fmt.Errorf("extractor.threshold_db %g must be finite", e.ThresholdDB))
	}
	if e.EnvelopeWidthHz < 0 {
		errs = append(errs, fmt.Errorf("extractor.envelope_width_hz %g must not be negative", e.EnvelopeWidthHz))
	}
	if _, err := formant.ParseSelection(e.Selection); err != nil {
		errs = append(errs, fmt.Errorf("extractor.selection: %w; valid values: first, loudest", err))
	}

	// Tracker
	t := cfg.Tracker
	if _, err := formant.ParseMode(t.Mode); err != nil {
		errs = append(errs, fmt.Errorf("tracker.mode: %w; valid values: median, ema", err))
	}
	if t.Window <= 0 {
		errs = append(errs, fmt.Errorf("tracker.window %d must be positive", t.Window))
	}
	if t.Alpha <= 0 || t.Alpha > 1 {
		errs = append(errs, fmt.Errorf("tracker.alpha %g is out of range (0, 1]", t.Alpha))
	}
	if t.MaxHold < 0 {
		errs = append(errs, fmt.Errorf("tracker.max_hold %d must not be negative", t.MaxHold))
	}
	if t.VoicingGate < 0 || t.VoicingGate > 1 {
		errs = append(errs, fmt.Errorf("tracker.voicing_gate %g is out of range [0, 1]", t.VoicingGate))
	}

	// Chart
	if err := cfg.Chart.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("chart: %w", err))
	}

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("server.max_sessions %d must not be negative", cfg.Server.MaxSessions))
	}

	return errors.Join(errs...)
}
