package formant

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-formant/dsp/buffer"
	"github.com/cwbudde/algo-formant/dsp/core"
	"github.com/cwbudde/algo-formant/dsp/peak"
	"github.com/cwbudde/algo-formant/dsp/spectrum"
)

// DefaultThresholdDB is the fixed noise threshold a peak must exceed.
const DefaultThresholdDB = peak.DefaultThresholdDB

const (
	// confidenceSpanDB is the height above threshold that maps to full
	// confidence.
	confidenceSpanDB = 40.0
	envelopeFloorDB  = -200.0
)

// Selection picks among several peaks inside one band.
type Selection int

const (
	// SelectFirst takes the lowest-frequency peak in the band.
	SelectFirst Selection = iota
	// SelectLoudest takes the peak with the highest level in the band.
	// Equal levels resolve to the lower frequency.
	SelectLoudest
)

// String returns "first" or "loudest".
func (s Selection) String() string {
	switch s {
	case SelectFirst:
		return "first"
	case SelectLoudest:
		return "loudest"
	default:
		return fmt.Sprintf("Selection(%d)", int(s))
	}
}

// ParseSelection parses "first" or "loudest". The empty string is "first".
func ParseSelection(s string) (Selection, error) {
	switch s {
	case "first", "":
		return SelectFirst, nil
	case "loudest":
		return SelectLoudest, nil
	default:
		return 0, fmt.Errorf("unknown selection %q", s)
	}
}

// Option configures an Extractor.
type Option func(*config)

type config struct {
	thresholdDB float64
	adaptive    bool
	adaptiveDB  float64
	interpolate bool
	bandwidth   bool
	envelopeHz  float64
	selection   Selection
	f1, f2      Band
	pool        *buffer.Pool
}

func defaultConfig() config {
	return config{
		thresholdDB: DefaultThresholdDB,
		selection:   SelectFirst,
		f1:          F1Band,
		f2:          F2Band,
	}
}

// WithThreshold sets the fixed noise threshold in dB.
func WithThreshold(db float64) Option {
	return func(c *config) {
		c.thresholdDB = db
	}
}

// WithAdaptiveThreshold raises the threshold to the frame mean plus offsetDB
// when that is higher than the fixed threshold.
func WithAdaptiveThreshold(offsetDB float64) Option {
	return func(c *config) {
		c.adaptive = true
		c.adaptiveDB = offsetDB
	}
}

// WithInterpolation refines peak frequency and level with a parabolic fit.
// Band membership is still judged on the bin centre.
func WithInterpolation() Option {
	return func(c *config) {
		c.interpolate = true
	}
}

// WithBandwidth fills Estimate.BandwidthHz.
func WithBandwidth() Option {
	return func(c *config) {
		c.bandwidth = true
	}
}

// WithEnvelopeSmoothing averages the frame over widthHz before peak picking,
// which merges individual harmonics of voiced speech into their resonance.
// Zero disables smoothing.
func WithEnvelopeSmoothing(widthHz float64) Option {
	return func(c *config) {
		c.envelopeHz = widthHz
	}
}

// WithSelection sets the in-band selection policy.
func WithSelection(s Selection) Option {
	return func(c *config) {
		c.selection = s
	}
}

// WithBands replaces the F1 and F2 search bands.
func WithBands(f1, f2 Band) Option {
	return func(c *config) {
		c.f1 = f1
		c.f2 = f2
	}
}

// WithPool shares a scratch pool between extractors.
func WithPool(p *buffer.Pool) Option {
	return func(c *config) {
		if p != nil {
			c.pool = p
		}
	}
}

// Extractor maps spectral frames to formant estimates. It keeps no state
// between calls and may be used from several goroutines at once.
type Extractor struct {
	cfg      config
	detector *peak.Detector
	pool     *buffer.Pool
}

// NewExtractor returns an extractor with the given options applied.
func NewExtractor(opts ...Option) (*Extractor, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if math.IsNaN(cfg.thresholdDB) {
		return nil, fmt.Errorf("formant threshold must not be NaN")
	}
	if cfg.adaptive && !core.IsFinite(cfg.adaptiveDB) {
		return nil, fmt.Errorf("formant adaptive offset must be finite: %v", cfg.adaptiveDB)
	}
	if cfg.envelopeHz < 0 || !core.IsFinite(cfg.envelopeHz) {
		return nil, fmt.Errorf("formant envelope width must be >= 0: %v", cfg.envelopeHz)
	}
	if cfg.selection != SelectFirst && cfg.selection != SelectLoudest {
		return nil, fmt.Errorf("formant selection %v is not supported", cfg.selection)
	}
	if err := validateOrdered([]Band{cfg.f1, cfg.f2}); err != nil {
		return nil, err
	}

	popts := []peak.Option{peak.WithThreshold(cfg.thresholdDB)}
	if cfg.adaptive {
		popts = append(popts, peak.WithAdaptiveThreshold(cfg.adaptiveDB))
	}
	if cfg.interpolate {
		popts = append(popts, peak.WithInterpolation())
	}
	if cfg.bandwidth {
		popts = append(popts, peak.WithBandwidth())
	}

	pool := cfg.pool
	if pool == nil {
		pool = buffer.NewPool()
	}

	return &Extractor{
		cfg:      cfg,
		detector: peak.NewDetector(popts...),
		pool:     pool,
	}, nil
}

var defaultExtractor, _ = NewExtractor()

// Extract runs the default extractor on frame.
func Extract(frame spectrum.Frame) (Pair, error) {
	return defaultExtractor.Extract(frame)
}

// Bands returns the F1 and F2 search bands.
func (e *Extractor) Bands() (f1, f2 Band) {
	return e.cfg.f1, e.cfg.f2
}

// Selection returns the in-band selection policy.
func (e *Extractor) Selection() Selection {
	return e.cfg.selection
}

// Extract returns the F1/F2 pair for frame. Frame precondition failures are
// returned as errors wrapping ErrEmptyFrame, ErrInvalidSampleRate,
// ErrInvalidTransformSize, ErrFrameTooLong or ErrNonFiniteMagnitude.
func (e *Extractor) Extract(frame spectrum.Frame) (Pair, error) {
	bands := [2]Band{e.cfg.f1, e.cfg.f2}
	var est [2]Estimate

	if err := e.extract(frame, bands[:], est[:]); err != nil {
		return Pair{}, err
	}

	p := Pair{F1: est[0], F2: est[1]}
	if err := p.Validate(); err != nil {
		return Pair{}, err
	}
	return p, nil
}

// ExtractBands estimates one formant per band and appends them to dst in
// band order. Bands are searched independently and may be given in any
// order; use DefaultBands for F1 through F3.
func (e *Extractor) ExtractBands(frame spectrum.Frame, bands []Band, dst []Estimate) ([]Estimate, error) {
	for _, b := range bands {
		if err := b.Validate(); err != nil {
			return dst, err
		}
	}

	start := len(dst)
	for range bands {
		dst = append(dst, Estimate{})
	}
	if err := e.extract(frame, bands, dst[start:]); err != nil {
		return dst[:start], err
	}
	return dst, nil
}

func (e *Extractor) extract(frame spectrum.Frame, bands []Band, out []Estimate) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	for i := range out {
		out[i] = Estimate{}
	}

	work := frame
	if half := e.envelopeHalfWidth(frame); half > 0 {
		buf := e.pool.Get(frame.Len())
		defer e.pool.Put(buf)

		floor := frame.ThresholdFor(envelopeFloorDB)
		if err := spectrum.SmoothEnvelope(buf.Samples(), frame.Magnitudes, half, floor); err != nil {
			return err
		}
		work.Magnitudes = buf.Samples()
	}

	thresholdDB := e.detector.ThresholdDB(work)
	ceiling := 0.0
	for _, b := range bands {
		ceiling = math.Max(ceiling, b.High)
	}

	filled := 0
	return e.detector.Scan(work, func(p peak.Peak) bool {
		if p.CentreHz > ceiling {
			return false
		}
		for i, b := range bands {
			if !b.Contains(p.CentreHz) {
				continue
			}
			cur := &out[i]
			switch {
			case !cur.Valid:
				*cur = estimateFrom(p, thresholdDB)
				filled++
			case e.cfg.selection == SelectLoudest && p.MagnitudeDB > cur.MagnitudeDB:
				*cur = estimateFrom(p, thresholdDB)
			}
		}
		return e.cfg.selection == SelectLoudest || filled < len(bands)
	})
}

func (e *Extractor) envelopeHalfWidth(frame spectrum.Frame) int {
	if e.cfg.envelopeHz <= 0 {
		return 0
	}
	return int(math.Round(e.cfg.envelopeHz / frame.BinWidth() / 2))
}

func estimateFrom(p peak.Peak, thresholdDB float64) Estimate {
	conf := 1.0
	if core.IsFinite(thresholdDB) {
		conf = core.Clamp((p.MagnitudeDB-thresholdDB)/confidenceSpanDB, 0, 1)
	}
	return Estimate{
		FrequencyHz: p.FrequencyHz,
		MagnitudeDB: p.MagnitudeDB,
		Bin:         p.Bin,
		BandwidthHz: p.BandwidthHz,
		Confidence:  conf,
		Valid:       true,
	}
}
