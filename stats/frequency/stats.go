package frequency

import (
	"math"

	"github.com/cwbudde/algo-formant/dsp/core"
	"github.com/cwbudde/algo-formant/dsp/spectrum"
	"gonum.org/v1/gonum/floats"
)

// ln10Over20 converts decibels to natural-log amplitude: ln(a) = dB * ln10/20.
const ln10Over20 = math.Ln10 / 20

// Stats holds frequency-domain statistics of one spectral frame.
//
//nolint:revive
type Stats struct {
	BinCount int
	PeakBin  int
	PeakHz   float64
	Peak_dB  float64
	Mean_dB  float64 // mean level of finite bins
	Centroid float64 // spectral centroid (Hz)
	Spread   float64 // spectral spread (Hz)
	Flatness float64 // spectral flatness (Wiener entropy), 0..1
	Rolloff  float64 // frequency below which 85% of the energy lies (Hz)
}

// Calculate computes all statistics for frame. Magnitudes of either scale
// are accepted; an invalid frame yields a zero Stats with -Inf levels.
func Calculate(frame spectrum.Frame) Stats {
	if frame.Validate() != nil {
		return Stats{Peak_dB: math.Inf(-1), Mean_dB: math.Inf(-1)}
	}

	n := frame.Len()
	lin := make([]float64, n)
	s := Stats{BinCount: n, Peak_dB: math.Inf(-1)}

	sumDB, finite := 0.0, 0
	for i := range lin {
		db := frame.DB(i)
		lin[i] = amplitude(frame, i)
		if db > s.Peak_dB {
			s.Peak_dB = db
			s.PeakBin = i
		}
		if core.IsFinite(db) {
			sumDB += db
			finite++
		}
	}
	s.PeakHz = frame.BinFrequency(s.PeakBin)
	s.Mean_dB = math.Inf(-1)
	if finite > 0 {
		s.Mean_dB = sumDB / float64(finite)
	}

	total := floats.Sum(lin)
	s.Centroid = centroid(frame, lin, total)
	s.Spread = spread(frame, lin, s.Centroid, total)
	s.Flatness = Flatness(lin)
	s.Rolloff = rolloff(frame, lin, 0.85)

	return s
}

// Flatness returns the spectral flatness (Wiener entropy) of linear
// magnitudes in the range 0..1.
//
// Flatness = exp(mean(log(|X_i|))) / mean(|X_i|)
//
// DC bin (index 0) is excluded. If any considered bin is zero, 0 is returned.
func Flatness(magnitude []float64) float64 {
	n := len(magnitude)
	if n < 2 {
		return 0
	}

	bins := magnitude[1:]
	meanLin := floats.Sum(bins) / float64(len(bins))
	if meanLin <= 0 {
		return 0
	}

	sumLog := 0.0
	for _, v := range bins {
		if v <= 0 {
			return 0
		}
		sumLog += math.Log(v)
	}
	return math.Exp(sumLog/float64(len(bins))) / meanLin
}

// FrameFlatness returns the spectral flatness of frame without allocating.
// Decibel frames are handled in the log domain directly. Voiced speech has a
// low flatness, noise and unvoiced fricatives a high one.
func FrameFlatness(frame spectrum.Frame) float64 {
	n := frame.Len()
	if n < 2 {
		return 0
	}

	sumLin, sumLog := 0.0, 0.0
	for i := 1; i < n; i++ {
		db := frame.DB(i)
		if math.IsInf(db, -1) || math.IsNaN(db) {
			return 0
		}
		sumLin += core.DBToLinear(db)
		sumLog += db * ln10Over20
	}

	bins := float64(n - 1)
	meanLin := sumLin / bins
	if meanLin <= 0 {
		return 0
	}
	return math.Exp(sumLog/bins) / meanLin
}

// Centroid returns the spectral centroid of frame in Hz.
//
//	centroid = sum(f_i * |X_i|) / sum(|X_i|)
func Centroid(frame spectrum.Frame) float64 {
	if frame.Validate() != nil {
		return 0
	}
	sum, weighted := 0.0, 0.0
	for i := range frame.Magnitudes {
		a := amplitude(frame, i)
		sum += a
		weighted += frame.BinFrequency(i) * a
	}
	if sum == 0 {
		return 0
	}
	return weighted / sum
}

// Rolloff returns the frequency below which fraction (0..1) of the spectral
// energy lies. A typical fraction is 0.85.
func Rolloff(frame spectrum.Frame, fraction float64) float64 {
	if frame.Validate() != nil {
		return 0
	}
	lin := make([]float64, frame.Len())
	for i := range lin {
		lin[i] = amplitude(frame, i)
	}
	return rolloff(frame, lin, fraction)
}

func amplitude(frame spectrum.Frame, i int) float64 {
	v := frame.Magnitudes[i]
	if frame.Scale == spectrum.ScaleLinear {
		return v
	}
	if math.IsInf(v, -1) || math.IsNaN(v) {
		return 0
	}
	return core.DBToLinear(v)
}

func centroid(frame spectrum.Frame, lin []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	weighted := 0.0
	for i, v := range lin {
		weighted += frame.BinFrequency(i) * v
	}
	return weighted / total
}

func spread(frame spectrum.Frame, lin []float64, cent, total float64) float64 {
	if total == 0 {
		return 0
	}
	weightedSq := 0.0
	for i, v := range lin {
		d := frame.BinFrequency(i) - cent
		weightedSq += d * d * v
	}
	return math.Sqrt(weightedSq / total)
}

func rolloff(frame spectrum.Frame, lin []float64, fraction float64) float64 {
	energy := floats.Dot(lin, lin)
	if energy == 0 {
		return 0
	}
	threshold := fraction * energy
	cum := 0.0
	for i, v := range lin {
		cum += v * v
		if cum >= threshold {
			return frame.BinFrequency(i)
		}
	}
	return frame.BinFrequency(len(lin) - 1)
}
