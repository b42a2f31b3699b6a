package time

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Stats holds time-domain level statistics of a block of samples.
//
//nolint:revive
type Stats struct {
	Length        int
	DC            float64 // mean
	RMS           float64
	RMS_dB        float64
	Peak          float64 // max |x|
	Peak_dB       float64
	CrestFactor   float64 // peak / RMS (linear)
	ZeroCrossings int
}

// ampTodB converts an amplitude value to decibels: 20 * log10(|value|).
// Returns -Inf for zero values.
func ampTodB(value float64) float64 {
	a := math.Abs(value)
	if a == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(a)
}

// Calculate computes all statistics in a single pass.
func Calculate(signal []float64) Stats {
	n := len(signal)
	if n == 0 {
		return Stats{RMS_dB: math.Inf(-1), Peak_dB: math.Inf(-1)}
	}

	var sum, sumSq, peak float64
	zc := 0
	for i, x := range signal {
		sum += x
		sumSq += x * x
		if a := math.Abs(x); a > peak {
			peak = a
		}
		if i > 0 && signal[i-1]*x < 0 {
			zc++
		}
	}

	rms := math.Sqrt(sumSq / float64(n))
	s := Stats{
		Length:        n,
		DC:            sum / float64(n),
		RMS:           rms,
		RMS_dB:        ampTodB(rms),
		Peak:          peak,
		Peak_dB:       ampTodB(peak),
		ZeroCrossings: zc,
	}
	if rms > 0 {
		s.CrestFactor = peak / rms
	}
	return s
}

// RMS returns the root-mean-square level of signal, or 0 when empty.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(signal, signal) / float64(len(signal)))
}

// DC returns the mean of signal, or 0 when empty.
func DC(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	return floats.Sum(signal) / float64(len(signal))
}

// Peak returns the largest absolute sample value.
func Peak(signal []float64) float64 {
	peak := 0.0
	for _, x := range signal {
		if a := math.Abs(x); a > peak {
			peak = a
		}
	}
	return peak
}

// LevelDB returns the RMS level of signal in dBFS. Silence is -Inf.
func LevelDB(signal []float64) float64 {
	return ampTodB(RMS(signal))
}

// ByteRMS returns the RMS of unsigned 8-bit samples centred on 128, scaled
// to [0, 1]. This is the level reported by AnalyserNode.getByteTimeDomainData
// consumers.
func ByteRMS(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	sumSq := 0.0
	for _, b := range data {
		x := (float64(b) - 128) / 128
		sumSq += x * x
	}
	return math.Sqrt(sumSq / float64(len(data)))
}

// Mean returns the arithmetic mean of values, for example the average bin
// level of a byte frequency frame used as a coarse volume meter.
func Mean(values []float64) float64 {
	return DC(values)
}

// LevelMeter accumulates RMS and peak across blocks.
type LevelMeter struct {
	count int
	sumSq float64
	peak  float64
}

// Update adds samples to the running totals.
func (m *LevelMeter) Update(samples []float64) {
	m.count += len(samples)
	m.sumSq += floats.Dot(samples, samples)
	if p := Peak(samples); p > m.peak {
		m.peak = p
	}
}

// RMS returns the RMS level over everything seen since the last Reset.
func (m *LevelMeter) RMS() float64 {
	if m.count == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.count))
}

// Peak returns the largest absolute sample seen since the last Reset.
func (m *LevelMeter) Peak() float64 {
	return m.peak
}

// Count returns the number of samples seen since the last Reset.
func (m *LevelMeter) Count() int {
	return m.count
}

// Reset clears the meter.
func (m *LevelMeter) Reset() {
	*m = LevelMeter{}
}
