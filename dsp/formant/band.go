package formant

import (
	"fmt"
	"math"
)

// Band is a frequency range in Hz searched for one formant. Low and High are
// inclusive unless the matching Open flag is set.
type Band struct {
	Name     string
	Low      float64
	High     float64
	LowOpen  bool
	HighOpen bool
}

// Default formant bands. F1 owns the shared 800 Hz edge.
var (
	F1Band = Band{Name: "F1", Low: 300, High: 800}
	F2Band = Band{Name: "F2", Low: 800, High: 2200, LowOpen: true}
	F3Band = Band{Name: "F3", Low: 2200, High: 3500, LowOpen: true}
)

// DefaultBands returns F1, F2 and F3 in ascending order.
func DefaultBands() []Band {
	return []Band{F1Band, F2Band, F3Band}
}

// Contains reports whether hz lies inside the band.
func (b Band) Contains(hz float64) bool {
	if b.LowOpen {
		if !(hz > b.Low) {
			return false
		}
	} else if !(hz >= b.Low) {
		return false
	}
	if b.HighOpen {
		return hz < b.High
	}
	return hz <= b.High
}

// String formats the band in interval notation.
func (b Band) String() string {
	lo, hi := "[", "]"
	if b.LowOpen {
		lo = "("
	}
	if b.HighOpen {
		hi = ")"
	}
	name := b.Name
	if name == "" {
		name = "band"
	}
	return fmt.Sprintf("%s %s%g, %g%s Hz", name, lo, b.Low, b.High, hi)
}

// Validate checks that the band is finite and non-empty.
func (b Band) Validate() error {
	if math.IsNaN(b.Low) || math.IsNaN(b.High) || math.IsInf(b.Low, 0) || math.IsInf(b.High, 0) {
		return fmt.Errorf("%w: %s has non-finite edges", ErrInvalidBand, b)
	}
	if b.Low < 0 {
		return fmt.Errorf("%w: %s starts below 0 Hz", ErrInvalidBand, b)
	}
	if b.High < b.Low || (b.High == b.Low && (b.LowOpen || b.HighOpen)) {
		return fmt.Errorf("%w: %s is empty", ErrInvalidBand, b)
	}
	return nil
}

// validateOrdered checks each band and that consecutive bands are disjoint
// and ascending. A shared edge is allowed when at most one side includes it.
func validateOrdered(bands []Band) error {
	for i, b := range bands {
		if err := b.Validate(); err != nil {
			return err
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		switch {
		case b.Low < prev.High:
			return fmt.Errorf("%w: %s overlaps %s", ErrInvalidBand, b, prev)
		case b.Low == prev.High && !b.LowOpen && !prev.HighOpen:
			return fmt.Errorf("%w: %s and %s both include %g Hz", ErrInvalidBand, prev, b, b.Low)
		}
	}
	return nil
}
