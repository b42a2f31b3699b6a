// Package formant estimates vowel formants from spectral frames.
//
// [Extractor] is the pure single-frame estimator: it finds peaks in a
// [spectrum.Frame], maps them to frequency and assigns the lowest peak of
// each fixed band to a formant. F1 is searched in [300, 800] Hz and F2 in
// (800, 2200] Hz, so a peak at exactly 800 Hz is F1. A band without a peak
// yields an [Estimate] with Valid false; that is not an error.
//
// [Smoother] and [Tracker] add per-stream state on top of the extractor:
// median or exponential smoothing over recent valid estimates, a short hold
// across dropouts and an optional voicing gate. Use one Tracker per stream.
package formant
