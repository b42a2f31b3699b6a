// Package frequency computes descriptive statistics of spectral frames:
// peak, centroid, spread, flatness and rolloff. Flatness separates voiced
// frames, which have a few strong harmonics and resonances, from noise-like
// frames.
package frequency
