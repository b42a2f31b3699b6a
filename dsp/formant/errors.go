package formant

import (
	"errors"

	"github.com/cwbudde/algo-formant/dsp/spectrum"
)

// Frame precondition errors, shared with package spectrum.
var (
	ErrEmptyFrame           = spectrum.ErrEmptyFrame
	ErrInvalidSampleRate    = spectrum.ErrInvalidSampleRate
	ErrInvalidTransformSize = spectrum.ErrInvalidTransformSize
	ErrFrameTooLong         = spectrum.ErrFrameTooLong
	ErrNonFiniteMagnitude   = spectrum.ErrNonFiniteMagnitude
)

var (
	// ErrInvalidBand is returned for bands that are empty, inverted or
	// overlap a neighbouring band.
	ErrInvalidBand = errors.New("invalid formant band")
	// ErrOrder reports a pair whose valid F1 is not below its valid F2.
	ErrOrder = errors.New("formant F1 must be below F2")
)
