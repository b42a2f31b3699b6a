package core

// ProcessorConfig defines the analysis settings shared by frame producers and
// consumers: the stream sample rate, the transform size and the hop between
// successive frames.
type ProcessorConfig struct {
	SampleRate float64
	FFTSize    int
	HopSize    int
}

// ProcessorOption mutates a ProcessorConfig.
type ProcessorOption func(*ProcessorConfig)

// DefaultProcessorConfig returns the analysis defaults of a browser
// AnalyserNode: 44.1 kHz, 2048-point transform, half-frame hop.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SampleRate: 44100,
		FFTSize:    2048,
		HopSize:    1024,
	}
}

// WithSampleRate sets the stream sample rate.
func WithSampleRate(sampleRate float64) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithFFTSize sets the transform size. The hop is clamped so it never
// exceeds the new size.
func WithFFTSize(size int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if size > 1 {
			cfg.FFTSize = size
			if cfg.HopSize > size {
				cfg.HopSize = size
			}
		}
	}
}

// WithHopSize sets the number of samples between successive frames.
func WithHopSize(hop int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if hop > 0 {
			cfg.HopSize = hop
		}
	}
}

// ApplyProcessorOptions applies zero or more options to the default config.
func ApplyProcessorOptions(opts ...ProcessorOption) ProcessorConfig {
	cfg := DefaultProcessorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.HopSize > cfg.FFTSize {
		cfg.HopSize = cfg.FFTSize
	}
	return cfg
}

// BinWidth returns the frequency spacing of one transform bin in Hz.
func (c ProcessorConfig) BinWidth() float64 {
	if c.FFTSize <= 0 {
		return 0
	}
	return c.SampleRate / float64(c.FFTSize)
}
