package peak

import (
	"math"

	"github.com/cwbudde/algo-formant/dsp/interp"
	"github.com/cwbudde/algo-formant/dsp/spectrum"
	"gonum.org/v1/gonum/stat"
)

// DefaultThresholdDB is the fixed detection threshold.
const DefaultThresholdDB = -60.0

// Peak is a local maximum of a frame.
type Peak struct {
	// Bin is the index of the maximum bin.
	Bin int
	// Position is the fractional bin of the refined vertex. Equal to Bin
	// without interpolation.
	Position float64
	// CentreHz is the centre frequency of Bin.
	CentreHz float64
	// FrequencyHz is the frequency at Position.
	FrequencyHz float64
	// MagnitudeDB is the level at Position in decibels.
	MagnitudeDB float64
	// BandwidthHz is the half-power (-3 dB) width. Zero unless requested.
	BandwidthHz float64
}

// Option configures a Detector.
type Option func(*config)

type config struct {
	thresholdDB   float64
	adaptive      bool
	adaptiveDB    float64
	interpolate   bool
	bandwidth     bool
	bandwidthDrop float64
}

func defaultConfig() config {
	return config{
		thresholdDB:   DefaultThresholdDB,
		bandwidthDrop: 3,
	}
}

// WithThreshold sets the fixed detection threshold in dB.
func WithThreshold(db float64) Option {
	return func(c *config) {
		if !math.IsNaN(db) {
			c.thresholdDB = db
		}
	}
}

// WithAdaptiveThreshold raises the threshold to the frame's mean level plus
// offsetDB whenever that is higher than the fixed threshold.
func WithAdaptiveThreshold(offsetDB float64) Option {
	return func(c *config) {
		if !math.IsNaN(offsetDB) && !math.IsInf(offsetDB, 0) {
			c.adaptive = true
			c.adaptiveDB = offsetDB
		}
	}
}

// WithInterpolation enables parabolic vertex refinement on dB levels.
func WithInterpolation() Option {
	return func(c *config) {
		c.interpolate = true
	}
}

// WithBandwidth enables the half-power bandwidth estimate.
func WithBandwidth() Option {
	return func(c *config) {
		c.bandwidth = true
	}
}

// Detector scans frames for peaks. A Detector holds only configuration and
// may be shared between goroutines.
type Detector struct {
	cfg config
}

// NewDetector returns a detector with the given options applied.
func NewDetector(opts ...Option) *Detector {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Detector{cfg: cfg}
}

// Find returns all peaks of frame using a one-off detector.
func Find(frame spectrum.Frame, opts ...Option) ([]Peak, error) {
	return NewDetector(opts...).Find(frame)
}

// Find returns all peaks of frame in ascending bin order.
func (d *Detector) Find(frame spectrum.Frame) ([]Peak, error) {
	var out []Peak
	err := d.Scan(frame, func(p Peak) bool {
		out = append(out, p)
		return true
	})
	return out, err
}

// ThresholdDB returns the effective detection threshold for frame.
func (d *Detector) ThresholdDB(frame spectrum.Frame) float64 {
	th := d.cfg.thresholdDB
	if !d.cfg.adaptive {
		return th
	}
	if floor := meanDB(frame) + d.cfg.adaptiveDB; floor > th {
		return floor
	}
	return th
}

// Scan validates frame and calls visit for each peak in ascending bin order
// until visit returns false. Scan does not allocate.
func (d *Detector) Scan(frame spectrum.Frame, visit func(Peak) bool) error {
	if err := frame.Validate(); err != nil {
		return err
	}

	mags := frame.Magnitudes
	n := len(mags)
	if n < 3 {
		return nil
	}

	th := frame.ThresholdFor(d.ThresholdDB(frame))

	for i := 1; i <= n-2; i++ {
		v := mags[i]
		if !(v > th) || !(v > mags[i-1]) || !(v > mags[i+1]) {
			continue
		}
		if !visit(d.describe(frame, i)) {
			return nil
		}
	}
	return nil
}

func (d *Detector) describe(frame spectrum.Frame, i int) Peak {
	centre := frame.BinFrequency(i)
	p := Peak{
		Bin:         i,
		Position:    float64(i),
		CentreHz:    centre,
		FrequencyHz: centre,
		MagnitudeDB: frame.DB(i),
	}

	if d.cfg.interpolate {
		ym1, y0, y1 := frame.DB(i-1), p.MagnitudeDB, frame.DB(i+1)
		if finite3(ym1, y0, y1) {
			offset, height := interp.Parabolic(ym1, y0, y1)
			p.Position = float64(i) + offset
			p.FrequencyHz = frame.BinFrequencyAt(p.Position)
			p.MagnitudeDB = height
		}
	}

	if d.cfg.bandwidth {
		p.BandwidthHz = halfPowerWidth(frame, i, p.MagnitudeDB-d.cfg.bandwidthDrop) * frame.BinWidth()
	}
	return p
}

// halfPowerWidth returns the width in bins of the region around peak bin i
// that stays above level. Each side walks down the peak's skirt and stops
// either at the crossing, interpolated linearly, or where the skirt starts
// rising again.
func halfPowerWidth(frame spectrum.Frame, i int, level float64) float64 {
	n := frame.Len()

	left := 0.0
	for j := i; j > 0; j-- {
		a, b := frame.DB(j-1), frame.DB(j)
		if a < level {
			left = float64(j) - interp.Crossing(b, a, level)
			break
		}
		if a > b {
			left = float64(j)
			break
		}
		left = float64(j - 1)
	}

	right := float64(n - 1)
	for j := i; j < n-1; j++ {
		a, b := frame.DB(j), frame.DB(j+1)
		if b < level {
			right = float64(j) + interp.Crossing(a, b, level)
			break
		}
		if b > a {
			right = float64(j)
			break
		}
		right = float64(j + 1)
	}

	if right < left {
		return 0
	}
	return right - left
}

// meanDB returns the mean level of frame in dB, ignoring non-finite bins.
func meanDB(frame spectrum.Frame) float64 {
	if frame.Scale == spectrum.ScaleDB {
		if m := stat.Mean(frame.Magnitudes, nil); !math.IsNaN(m) && !math.IsInf(m, 0) {
			return m
		}
	}

	sum := 0.0
	count := 0
	for i := range frame.Magnitudes {
		v := frame.DB(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return math.Inf(-1)
	}
	return sum / float64(count)
}

func finite3(a, b, c float64) bool {
	return !math.IsInf(a, 0) && !math.IsInf(b, 0) && !math.IsInf(c, 0) &&
		!math.IsNaN(a) && !math.IsNaN(b) && !math.IsNaN(c)
}
