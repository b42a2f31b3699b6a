package spectrum

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-formant/dsp/core"
)

// Scale tells how a frame's magnitudes are expressed.
type Scale int

const (
	// ScaleDB magnitudes are decibels (20*log10 of linear amplitude), as
	// produced by AnalyserNode.getFloatFrequencyData.
	ScaleDB Scale = iota
	// ScaleLinear magnitudes are non-negative linear amplitudes.
	ScaleLinear
)

// String returns "dB" or "linear".
func (s Scale) String() string {
	switch s {
	case ScaleDB:
		return "dB"
	case ScaleLinear:
		return "linear"
	default:
		return fmt.Sprintf("Scale(%d)", int(s))
	}
}

// Frame is one spectral snapshot. Bin i covers frequency
// i * SampleRate / TransformSize. A frame is treated as immutable once
// captured: consumers read Magnitudes but never write to it.
type Frame struct {
	Magnitudes    []float64
	SampleRate    float64
	TransformSize int
	Scale         Scale
}

// NewFrame wraps decibel magnitudes without copying.
func NewFrame(magnitudesDB []float64, sampleRate float64, transformSize int) Frame {
	return Frame{
		Magnitudes:    magnitudesDB,
		SampleRate:    sampleRate,
		TransformSize: transformSize,
		Scale:         ScaleDB,
	}
}

// Validate checks the frame preconditions: at least one bin, a positive
// finite sample rate, a positive transform size, no more than
// TransformSize/2+1 bins (DC through Nyquist) and no NaN or +Inf bin.
// A decibel frame may hold -Inf for a silent bin; a linear frame may not.
func (f Frame) Validate() error {
	if len(f.Magnitudes) == 0 {
		return ErrEmptyFrame
	}
	if f.SampleRate <= 0 || !core.IsFinite(f.SampleRate) {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, f.SampleRate)
	}
	if f.TransformSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTransformSize, f.TransformSize)
	}
	if maxBins := f.TransformSize/2 + 1; len(f.Magnitudes) > maxBins {
		return fmt.Errorf("%w: %d bins for transform size %d (max %d)",
			ErrFrameTooLong, len(f.Magnitudes), f.TransformSize, maxBins)
	}
	for i, v := range f.Magnitudes {
		if math.IsNaN(v) || math.IsInf(v, 1) || (math.IsInf(v, -1) && f.Scale != ScaleDB) {
			return fmt.Errorf("%w: bin %d is %v", ErrNonFiniteMagnitude, i, v)
		}
	}
	return nil
}

// Len returns the number of bins.
func (f Frame) Len() int {
	return len(f.Magnitudes)
}

// BinWidth returns the bin spacing in Hz.
func (f Frame) BinWidth() float64 {
	if f.TransformSize <= 0 {
		return 0
	}
	return f.SampleRate / float64(f.TransformSize)
}

// BinFrequency returns the centre frequency of bin i in Hz. Fractional bins
// are allowed via BinFrequencyAt.
func (f Frame) BinFrequency(i int) float64 {
	return float64(i) * f.SampleRate / float64(f.TransformSize)
}

// BinFrequencyAt returns the frequency of a fractional bin position.
func (f Frame) BinFrequencyAt(bin float64) float64 {
	return bin * f.SampleRate / float64(f.TransformSize)
}

// FrequencyBin returns the fractional bin position of hz.
func (f Frame) FrequencyBin(hz float64) float64 {
	if f.SampleRate <= 0 {
		return 0
	}
	return hz * float64(f.TransformSize) / f.SampleRate
}

// DB returns the magnitude of bin i in decibels regardless of scale.
func (f Frame) DB(i int) float64 {
	v := f.Magnitudes[i]
	if f.Scale == ScaleLinear {
		return core.LinearToDB(v)
	}
	return v
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	out := f
	out.Magnitudes = append([]float64(nil), f.Magnitudes...)
	return out
}

// ThresholdFor converts a decibel threshold into the frame's scale so that a
// bin comparison needs no per-bin conversion. Monotonicity of 20*log10 keeps
// strict comparisons equivalent.
func (f Frame) ThresholdFor(db float64) float64 {
	if f.Scale == ScaleLinear {
		if math.IsInf(db, -1) {
			return 0
		}
		return core.DBToLinear(db)
	}
	return db
}
