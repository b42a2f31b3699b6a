// Package fir provides a short direct-form FIR filter for conditioning
// audio before spectral analysis.
//
// The usual speech front end is [PreEmphasis], a first difference
// y[n] = x[n] - a*x[n-1] that tilts the spectrum up by about 6 dB per
// octave so the weaker upper formants are not buried under F1.
package fir
