// Package time computes time-domain level statistics: RMS, peak, DC offset,
// crest factor and zero crossings, plus helpers for 8-bit analyser data.
package time
