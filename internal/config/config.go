// Package config provides the YAML configuration schema and loader for the
// formant command and server.
package config

import (
	"log/slog"

	"github.com/cwbudde/algo-formant/measure/vowel"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a slog level. Unknown values map to Info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration structure.
type Config struct {
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	Chart     vowel.Chart     `yaml:"chart"`
	Server    ServerConfig    `yaml:"server"`
}

// AnalyzerConfig describes how PCM input is turned into spectral frames.
type AnalyzerConfig struct {
	// SampleRate is used for raw PCM input. WAV files carry their own rate.
	SampleRate float64 `yaml:"sample_rate"`

	// FFTSize is the transform size, a power of two.
	FFTSize int `yaml:"fft_size"`

	// HopSize is the number of samples between frames. Zero means half
	// the transform.
	HopSize int `yaml:"hop_size"`

	// Window names the analysis window, e.g. "blackman" or "hann".
	Window string `yaml:"window"`

	// Smoothing is the temporal smoothing constant in [0, 1).
	Smoothing float64 `yaml:"smoothing"`

	// MinDecibels is the level written for silent bins.
	MinDecibels float64 `yaml:"min_decibels"`

	// PreEmphasis is the first-difference coefficient applied to PCM
	// before analysis, typically 0.97. Zero disables it.
	PreEmphasis float64 `yaml:"pre_emphasis"`
}

// ExtractorConfig describes single-frame formant extraction.
type ExtractorConfig struct {
	// ThresholdDB is the fixed noise threshold.
	ThresholdDB float64 `yaml:"threshold_db"`

	// Adaptive raises the threshold to the frame mean plus AdaptiveOffsetDB.
	Adaptive         bool    `yaml:"adaptive"`
	AdaptiveOffsetDB float64 `yaml:"adaptive_offset_db"`

	// Interpolate enables parabolic sub-bin refinement.
	Interpolate bool `yaml:"interpolate"`

	// Bandwidth enables half-power bandwidth estimation.
	Bandwidth bool `yaml:"bandwidth"`

	// EnvelopeWidthHz smooths the spectrum before peak picking. Zero
	// disables it.
	EnvelopeWidthHz float64 `yaml:"envelope_width_hz"`

	// Selection is "first" or "loudest".
	Selection string `yaml:"selection"`
}

// TrackerConfig describes per-stream smoothing.
type TrackerConfig struct {
	// Mode is "median" or "ema".
	Mode string `yaml:"mode"`

	// Window is the number of recent values kept per formant.
	Window int `yaml:"window"`

	// Alpha is the EMA weight of the newest value.
	Alpha float64 `yaml:"alpha"`

	// MaxHold is the number of dropout ticks that keep the last value.
	MaxHold int `yaml:"max_hold"`

	// VoicingGate is the spectral flatness above which a frame is treated
	// as unvoiced. Zero disables the gate.
	VoicingGate float64 `yaml:"voicing_gate"`

	// F3 also tracks the third formant.
	F3 bool `yaml:"f3"`
}

// ServerConfig holds the network server settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server binds to (e.g. ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// MetricsPath is where Prometheus metrics are served. Empty disables
	// the endpoint.
	MetricsPath string `yaml:"metrics_path"`

	// MaxSessions caps concurrent websocket sessions. Zero means no limit.
	MaxSessions int `yaml:"max_sessions"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// Default returns the configuration used when no file is given. A decoded
// file only overrides the keys it sets.
func Default() *Config {
	return &Config{
		Analyzer: AnalyzerConfig{
			SampleRate:  44100,
			FFTSize:     2048,
			HopSize:     1024,
			Window:      "blackman",
			Smoothing:   0.8,
			MinDecibels: -130,
		},
		Extractor: ExtractorConfig{
			ThresholdDB:      -60,
			AdaptiveOffsetDB: 10,
			Selection:        "first",
		},
		Tracker: TrackerConfig{
			Mode:    "median",
			Window:  5,
			Alpha:   0.35,
			MaxHold: 3,
		},
		Chart: vowel.DefaultChart(),
		Server: ServerConfig{
			ListenAddr:  ":8080",
			MetricsPath: "/metrics",
			LogLevel:    LogInfo,
		},
	}
}
