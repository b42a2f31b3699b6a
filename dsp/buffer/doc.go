// Package buffer provides a reusable float64 scratch buffer and pool so that
// per-frame spectral work (envelope smoothing, dB conversion) can run in a
// real-time capture loop without allocating on every tick.
package buffer
