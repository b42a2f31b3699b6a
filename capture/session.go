// Package capture drives formant tracking over a stream of spectral frames.
//
// A [Session] pulls frames from a [Source], runs them through one
// [formant.Tracker] and hands each result to a sink. Sessions are
// independent: each owns its tracker, so several streams can be tracked
// concurrently by running one session per stream.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cwbudde/algo-formant/dsp/formant"
	"github.com/cwbudde/algo-formant/dsp/spectrum"
	"github.com/cwbudde/algo-formant/internal/observe"
	"github.com/cwbudde/algo-formant/measure/vowel"
)

// Source yields spectral frames. Next returns io.EOF when the stream ends
// and should return promptly once ctx is cancelled.
type Source interface {
	Next(ctx context.Context) (spectrum.Frame, error)
}

// Leveler is implemented by sources that know the input level of the block
// behind the frame most recently returned by Next.
type Leveler interface {
	LevelDB() float64
}

// Tick is one processed frame. Exactly one of Result and Err is meaningful.
type Tick struct {
	// Seq counts frames from zero, including failed ones.
	Seq int `json:"seq"`

	Result formant.Result `json:"result"`

	// Point is the smoothed pair placed on the chart; Placed is false when
	// either formant is absent.
	Point  vowel.Point `json:"point"`
	Placed bool        `json:"placed"`

	// LevelDB is the input RMS level, when the source reports one.
	LevelDB float64 `json:"levelDb,omitempty"`

	// Err is the validation error of a rejected frame.
	Err error `json:"-"`
}

// SessionConfig configures a [Session].
type SessionConfig struct {
	// Source supplies frames. Required.
	Source Source

	// Tracker processes frames. A nil tracker uses the default extractor
	// and smoother.
	Tracker *formant.Tracker

	// Chart places smoothed pairs. The zero value uses [vowel.DefaultChart].
	Chart vowel.Chart

	// Metrics records per-frame metrics. Defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Logger receives per-frame diagnostics. Defaults to [slog.Default].
	Logger *slog.Logger
}

// Session tracks formants over one stream. It is not safe for concurrent
// use; run one session per stream.
type Session struct {
	src     Source
	tracker *formant.Tracker
	chart   vowel.Chart
	metrics *observe.Metrics
	log     *slog.Logger

	frames int
	failed int
}

// NewSession creates a session from cfg.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Source == nil {
		return nil, errors.New("capture: session needs a source")
	}
	if cfg.Tracker == nil {
		cfg.Tracker = formant.NewTracker(nil)
	}
	if cfg.Chart == (vowel.Chart{}) {
		cfg.Chart = vowel.DefaultChart()
	}
	if err := cfg.Chart.Validate(); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{
		src:     cfg.Source,
		tracker: cfg.Tracker,
		chart:   cfg.Chart,
		metrics: cfg.Metrics,
		log:     cfg.Logger,
	}, nil
}

// Run processes frames until the source is exhausted, ctx is cancelled or
// sink returns an error. A frame that fails validation is delivered as a
// Tick with Err set and the loop carries on. Run returns nil at end of
// stream and ctx.Err() on cancellation.
func (s *Session) Run(ctx context.Context, sink func(Tick) error) error {
	done := s.metrics.SessionStarted(ctx)
	defer done()

	s.log.Debug("capture session started")
	defer func() {
		s.log.Debug("capture session stopped", "frames", s.frames, "failed", s.failed)
	}()

	for seq := s.frames + s.failed; ; seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := s.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("capture: read frame %d: %w", seq, err)
		}

		tick := s.process(ctx, seq, frame)
		if l, ok := s.src.(Leveler); ok {
			tick.LevelDB = l.LevelDB()
		}
		if sink == nil {
			continue
		}
		if err := sink(tick); err != nil {
			return err
		}
	}
}

func (s *Session) process(ctx context.Context, seq int, frame spectrum.Frame) Tick {
	start := time.Now()
	res, err := s.tracker.Update(frame)
	elapsed := time.Since(start)

	if err != nil {
		s.failed++
		s.metrics.RecordFrameError(ctx, err)
		s.log.Debug("frame rejected", "seq", seq, "err", err)
		return Tick{Seq: seq, Err: err}
	}

	s.frames++
	s.metrics.RecordTick(ctx, res, elapsed)
	tick := Tick{Seq: seq, Result: res}
	tick.Point, tick.Placed = s.chart.Place(res.Smoothed)
	return tick
}

// Frames returns the number of frames processed successfully.
func (s *Session) Frames() int {
	return s.frames
}

// Failed returns the number of frames rejected by validation.
func (s *Session) Failed() int {
	return s.failed
}

// Reset drops the tracker's smoothing history and the counters.
func (s *Session) Reset() {
	s.tracker.Reset()
	s.frames = 0
	s.failed = 0
}
