package formant

import "fmt"

// Estimate is one formant measurement. When Valid is false every other field
// is zero: no peak fell inside the band.
type Estimate struct {
	FrequencyHz float64 `json:"frequencyHz"`
	MagnitudeDB float64 `json:"magnitudeDb"`
	// Bin is the frame bin of the selected peak.
	Bin int `json:"bin"`
	// BandwidthHz is the half-power width, when bandwidth estimation is on.
	BandwidthHz float64 `json:"bandwidthHz,omitempty"`
	// Confidence in [0, 1] grows with the peak's height above the detection
	// threshold.
	Confidence float64 `json:"confidence"`
	Valid      bool    `json:"valid"`
	// Held marks a value carried over by a Smoother during a dropout.
	Held bool `json:"held,omitempty"`
}

// String formats the estimate for logs.
func (e Estimate) String() string {
	if !e.Valid {
		return "-"
	}
	return fmt.Sprintf("%.1f Hz @ %.1f dB", e.FrequencyHz, e.MagnitudeDB)
}

// Pair holds the first two formants. When both are valid F1 is below F2.
type Pair struct {
	F1 Estimate `json:"f1"`
	F2 Estimate `json:"f2"`
}

// NewPair builds a pair from two estimates, swapping them if both are valid
// and out of order.
func NewPair(f1, f2 Estimate) Pair {
	if f1.Valid && f2.Valid && f1.FrequencyHz > f2.FrequencyHz {
		f1, f2 = f2, f1
	}
	return Pair{F1: f1, F2: f2}
}

// Validate returns ErrOrder if both formants are valid and F1 is not below F2.
func (p Pair) Validate() error {
	if p.F1.Valid && p.F2.Valid && !(p.F1.FrequencyHz < p.F2.FrequencyHz) {
		return fmt.Errorf("%w: F1=%g Hz, F2=%g Hz", ErrOrder, p.F1.FrequencyHz, p.F2.FrequencyHz)
	}
	return nil
}

// Valid reports whether both formants are present.
func (p Pair) Valid() bool {
	return p.F1.Valid && p.F2.Valid
}

// String formats the pair for logs.
func (p Pair) String() string {
	return fmt.Sprintf("F1=%s F2=%s", p.F1, p.F2)
}
