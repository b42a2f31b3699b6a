// Package spectrum provides the spectral-frame data model and the analyzer
// that produces frames from PCM.
//
// A [Frame] is one magnitude-per-bin snapshot, the unit consumed by peak and
// formant estimation. [Analyzer] turns a PCM stream into frames the way a
// browser AnalyserNode does: Blackman window, forward FFT, magnitude scaled
// by 1/N, exponential smoothing across frames and conversion to decibels.
package spectrum
