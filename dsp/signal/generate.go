package signal

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-formant/dsp/core"
)

// Generator renders deterministic test material at a fixed sample rate.
// Noise is reproducible: the same seed always yields the same samples.
type Generator struct {
	cfg  core.ProcessorConfig
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the noise seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a generator from processor options.
func NewGenerator(opts ...core.ProcessorOption) *Generator {
	return NewGeneratorWithOptions(opts)
}

// NewGeneratorWithOptions creates a generator from processor options and
// generator options.
func NewGeneratorWithOptions(coreOpts []core.ProcessorOption, opts ...Option) *Generator {
	g := &Generator{
		cfg:  core.ApplyProcessorOptions(coreOpts...),
		seed: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// SampleRate returns the rate the generator renders at.
func (g *Generator) SampleRate() float64 {
	return g.cfg.SampleRate
}

// Sine renders a single partial at freqHz.
func (g *Generator) Sine(freqHz, amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("sine samples must be > 0: %d", samples)
	}
	out := make([]float64, samples)
	addPartial(out, freqHz/g.cfg.SampleRate, amplitude)
	return out, nil
}

// WhiteNoise renders uniform noise in [-amplitude, amplitude].
func (g *Generator) WhiteNoise(amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("noise samples must be > 0: %d", samples)
	}
	if amplitude < 0 {
		return nil, fmt.Errorf("noise amplitude must be >= 0: %f", amplitude)
	}
	out := make([]float64, samples)
	g.addNoise(out, amplitude)
	return out, nil
}

// AddNoise mixes white noise into x whose peak sits snrDB below the peak
// of x. A silent x is left untouched.
func (g *Generator) AddNoise(x []float64, snrDB float64) error {
	if len(x) == 0 {
		return fmt.Errorf("noise target must not be empty")
	}
	if snrDB < 0 || !core.IsFinite(snrDB) {
		return fmt.Errorf("noise SNR must be finite and >= 0 dB: %g", snrDB)
	}
	g.addNoise(x, peakAbs(x)*core.DBToLinear(-snrDB))
	return nil
}

func (g *Generator) addNoise(dst []float64, amplitude float64) {
	rng := rand.New(rand.NewSource(g.seed))
	for i := range dst {
		dst[i] += (rng.Float64()*2 - 1) * amplitude
	}
}

// addPartial accumulates amplitude*sin(2*pi*cycles*n) into dst, where
// cycles is the frequency in cycles per sample.
func addPartial(dst []float64, cycles, amplitude float64) {
	step := 2 * math.Pi * cycles
	for i := range dst {
		dst[i] += amplitude * math.Sin(step*float64(i))
	}
}

// Normalize returns a copy of data scaled so its largest magnitude equals
// targetPeak. Silence stays silent.
func Normalize(data []float64, targetPeak float64) ([]float64, error) {
	out := append([]float64(nil), data...)
	if err := NormalizeInPlace(out, targetPeak); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeInPlace scales data so its largest magnitude equals targetPeak.
func NormalizeInPlace(data []float64, targetPeak float64) error {
	if targetPeak < 0 {
		return fmt.Errorf("normalize target peak must be >= 0: %f", targetPeak)
	}
	if len(data) == 0 {
		return fmt.Errorf("normalize input must not be empty")
	}
	peak := peakAbs(data)
	if peak == 0 || targetPeak == 0 {
		floats.Scale(0, data)
		return nil
	}
	floats.Scale(targetPeak/peak, data)
	return nil
}

func peakAbs(x []float64) float64 {
	return math.Max(floats.Max(x), -floats.Min(x))
}
