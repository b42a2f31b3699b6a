package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cwbudde/algo-formant/dsp/core"
	"github.com/cwbudde/algo-formant/dsp/spectrum"
	"github.com/cwbudde/algo-formant/internal/wav"
	timestats "github.com/cwbudde/algo-formant/stats/time"
)

// SliceSource replays a fixed list of frames.
type SliceSource struct {
	frames []spectrum.Frame
	next   int
}

// NewSliceSource returns a source over frames. The frames are not copied.
func NewSliceSource(frames []spectrum.Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

// Next returns the next frame or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (spectrum.Frame, error) {
	if err := ctx.Err(); err != nil {
		return spectrum.Frame{}, err
	}
	if s.next >= len(s.frames) {
		return spectrum.Frame{}, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// blockSource runs blocks of samples through an analyzer and queues the
// frames they complete.
type blockSource struct {
	an    *spectrum.Analyzer
	read  func() ([]float64, error)
	queue []spectrum.Frame
	meter timestats.LevelMeter
	level float64
	eof   bool
}

func (b *blockSource) Next(ctx context.Context) (spectrum.Frame, error) {
	for len(b.queue) == 0 {
		if err := ctx.Err(); err != nil {
			return spectrum.Frame{}, err
		}
		if b.eof {
			return spectrum.Frame{}, io.EOF
		}

		block, err := b.read()
		if errors.Is(err, io.EOF) {
			b.eof = true
		} else if err != nil {
			return spectrum.Frame{}, err
		}
		if len(block) == 0 {
			continue
		}

		b.meter.Reset()
		b.meter.Update(block)
		b.level = math.Max(core.LinearToDB(b.meter.RMS()), levelFloorDB)
		b.an.Write(block, func(f spectrum.Frame) {
			b.queue = append(b.queue, f)
		})
	}

	f := b.queue[0]
	b.queue[0] = spectrum.Frame{}
	b.queue = b.queue[1:]
	return f, nil
}

// levelFloorDB stands in for the level of digital silence.
const levelFloorDB = -120.0

// LevelDB returns the RMS level of the block that produced the last frame.
func (b *blockSource) LevelDB() float64 {
	return b.level
}

// Peak returns the absolute peak of that block.
func (b *blockSource) Peak() float64 {
	return b.meter.Peak()
}

// PCMSource reads little-endian 16-bit mono PCM from an io.Reader and turns
// it into frames with a spectrum.Analyzer. It reads one hop at a time.
type PCMSource struct {
	blockSource
	r   io.Reader
	raw []byte
	buf []float64
}

// NewPCMSource wraps r. The analyzer fixes the sample rate and frame size.
func NewPCMSource(r io.Reader, an *spectrum.Analyzer) (*PCMSource, error) {
	if r == nil || an == nil {
		return nil, fmt.Errorf("capture: pcm source needs a reader and an analyzer")
	}
	hop := an.Config().HopSize
	s := &PCMSource{
		r:   r,
		raw: make([]byte, 2*hop),
		buf: make([]float64, 0, hop),
	}
	s.blockSource = blockSource{an: an, read: s.readBlock}
	return s, nil
}

func (s *PCMSource) readBlock() ([]float64, error) {
	n, err := io.ReadFull(s.r, s.raw)
	s.buf = wav.DecodePCM16(s.buf[:0], s.raw[:n])
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return s.buf, io.EOF
	case err != nil:
		return s.buf, err
	}
	return s.buf, nil
}

// SampleSource feeds decoded samples, such as a WAV file, through an
// analyzer one hop at a time.
type SampleSource struct {
	blockSource
	samples []float64
	pos     int
	hop     int
}

// NewSampleSource wraps samples, which must be at the analyzer's sample rate.
func NewSampleSource(samples []float64, an *spectrum.Analyzer) (*SampleSource, error) {
	if an == nil {
		return nil, fmt.Errorf("capture: sample source needs an analyzer")
	}
	s := &SampleSource{samples: samples, hop: an.Config().HopSize}
	s.blockSource = blockSource{an: an, read: s.readBlock}
	return s, nil
}

func (s *SampleSource) readBlock() ([]float64, error) {
	if s.pos >= len(s.samples) {
		return nil, io.EOF
	}
	end := min(s.pos+s.hop, len(s.samples))
	block := s.samples[s.pos:end]
	s.pos = end
	return block, nil
}
