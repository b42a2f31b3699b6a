// Package peak finds local maxima in spectral frames.
//
// A bin is a peak when it is strictly greater than both neighbours and
// strictly above the detection threshold. The first and last bins are never
// peaks. Peaks are reported in ascending bin order, which is also ascending
// frequency, so callers never need to sort.
//
// Optional refinements: parabolic interpolation of the vertex for sub-bin
// frequency and level, an adaptive threshold that tracks the frame's mean
// level, and a half-power bandwidth estimate.
package peak
