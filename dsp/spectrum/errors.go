package spectrum

import "errors"

// Frame precondition errors. Validate wraps these with detail; test with
// errors.Is.
var (
	ErrEmptyFrame           = errors.New("spectral frame is empty")
	ErrInvalidSampleRate    = errors.New("sample rate must be positive and finite")
	ErrInvalidTransformSize = errors.New("transform size must be positive")
	ErrFrameTooLong         = errors.New("frame has more bins than the transform size allows")
	ErrNonFiniteMagnitude   = errors.New("frame holds a NaN or infinite magnitude")
)
