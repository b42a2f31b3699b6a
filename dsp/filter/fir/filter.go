package fir

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Filter is a direct-form FIR filter with a circular delay line. It is not
// safe for concurrent use.
type Filter struct {
	taps  []float64
	delay []float64
	pos   int
}

// New creates a filter from taps, which are copied. At least one tap is
// required.
func New(taps []float64) (*Filter, error) {
	if len(taps) == 0 {
		return nil, fmt.Errorf("fir: at least one tap is required")
	}
	return &Filter{
		taps:  append([]float64(nil), taps...),
		delay: make([]float64, len(taps)),
	}, nil
}

// PreEmphasis returns the first-difference filter [1, -coef]. Speech front
// ends use coef between 0.9 and 0.97; coef must lie in [0, 1).
func PreEmphasis(coef float64) (*Filter, error) {
	if !(coef >= 0 && coef < 1) {
		return nil, fmt.Errorf("fir: pre-emphasis coefficient must be in [0, 1): %g", coef)
	}
	return New([]float64{1, -coef})
}

// ProcessSample filters one sample.
func (f *Filter) ProcessSample(x float64) float64 {
	f.delay[f.pos] = x
	y := 0.0
	p := f.pos
	for _, h := range f.taps {
		y += h * f.delay[p]
		if p--; p < 0 {
			p = len(f.delay) - 1
		}
	}
	if f.pos++; f.pos == len(f.delay) {
		f.pos = 0
	}
	return y
}

// ProcessBlock filters buf in place.
func (f *Filter) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = f.ProcessSample(x)
	}
}

// Reset clears the delay line.
func (f *Filter) Reset() {
	clear(f.delay)
	f.pos = 0
}

// Taps returns a copy of the filter taps.
func (f *Filter) Taps() []float64 {
	return append([]float64(nil), f.taps...)
}

// MagnitudeDB returns the gain at freqHz in dB.
func (f *Filter) MagnitudeDB(freqHz, sampleRate float64) float64 {
	w := 2 * math.Pi * freqHz / sampleRate
	var h complex128
	for k, c := range f.taps {
		h += complex(c, 0) * cmplx.Exp(complex(0, -w*float64(k)))
	}
	return 20 * math.Log10(cmplx.Abs(h))
}
