package server

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/coder/websocket"

	"github.com/cwbudde/algo-formant/capture"
	"github.com/cwbudde/algo-formant/dsp/formant"
	"github.com/cwbudde/algo-formant/dsp/spectrum"
	"github.com/cwbudde/algo-formant/measure/vowel"
)

// readLimit admits frames of up to 65536-point transforms.
const readLimit = 4*(65536/2+1) + 1024

var errMalformedFrame = errors.New("binary frame length is not a multiple of 4")

// Message types.
const (
	msgHello = "hello"
	msgReady = "ready"
	msgReset = "reset"
	msgTick  = "tick"
	msgError = "error"
)

// helloMessage opens a stream.
type helloMessage struct {
	Type          string  `json:"type"`
	SampleRate    float64 `json:"sampleRate"`
	TransformSize int     `json:"transformSize"`
}

func (h helloMessage) validate() error {
	if h.Type != msgHello {
		return fmt.Errorf("expected %q message, got %q", msgHello, h.Type)
	}
	if !(h.SampleRate > 0) || math.IsInf(h.SampleRate, 0) {
		return fmt.Errorf("%w: %v", spectrum.ErrInvalidSampleRate, h.SampleRate)
	}
	if h.TransformSize < 2 || h.TransformSize > 65536 {
		return fmt.Errorf("%w: %d", spectrum.ErrInvalidTransformSize, h.TransformSize)
	}
	return nil
}

// readyMessage acknowledges a hello.
type readyMessage struct {
	Type  string      `json:"type"`
	Bins  int         `json:"bins"`
	Chart vowel.Chart `json:"chart"`
}

// tickMessage reports one frame.
type tickMessage struct {
	Type   string            `json:"type"`
	Seq    int               `json:"seq"`
	F1     *formant.Estimate `json:"f1,omitempty"`
	F2     *formant.Estimate `json:"f2,omitempty"`
	F3     *formant.Estimate `json:"f3,omitempty"`
	Point  *vowel.Point      `json:"point,omitempty"`
	Voiced bool              `json:"voiced"`
	Error  string            `json:"error,omitempty"`
}

func newTickMessage(t capture.Tick) tickMessage {
	msg := tickMessage{Type: msgTick, Seq: t.Seq}
	if t.Err != nil {
		msg.Error = t.Err.Error()
		return msg
	}
	f1, f2 := t.Result.Smoothed.F1, t.Result.Smoothed.F2
	msg.F1, msg.F2 = &f1, &f2
	if f3 := t.Result.F3; f3.Valid {
		msg.F3 = &f3
	}
	msg.Voiced = t.Result.Voiced
	if t.Placed {
		pt := t.Point
		msg.Point = &pt
	}
	return msg
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// controlMessage is any text message after the hello.
type controlMessage struct {
	Type string `json:"type"`
}

func writeMessage(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", v, err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.acquire() {
		http.Error(w, "too many sessions", http.StatusServiceUnavailable)
		return
	}
	defer s.release()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		s.log.Warn("websocket accept failed", slog.Any("err", err))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	ctx := r.Context()
	log := s.log.With(slog.String("remote", r.RemoteAddr))

	hello, err := readHello(ctx, conn)
	if err != nil {
		log.Debug("rejecting stream", slog.Any("err", err))
		_ = writeMessage(ctx, conn, errorMessage{Type: msgError, Error: err.Error()})
		conn.Close(websocket.StatusPolicyViolation, "invalid hello")
		return
	}

	tracker, err := s.cfg.Tracker.NewTracker(s.extractor)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "tracker setup failed")
		return
	}
	sess, err := capture.NewSession(capture.SessionConfig{
		Source:  &streamSource{conn: conn, hello: hello, tracker: tracker},
		Tracker: tracker,
		Chart:   s.cfg.Chart,
		Metrics: s.metrics,
		Logger:  log,
	})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "session setup failed")
		return
	}

	ready := readyMessage{Type: msgReady, Bins: hello.TransformSize/2 + 1, Chart: s.cfg.Chart}
	if err := writeMessage(ctx, conn, ready); err != nil {
		return
	}

	log.Info("stream opened",
		slog.Float64("sample_rate", hello.SampleRate),
		slog.Int("transform_size", hello.TransformSize),
	)

	err = sess.Run(ctx, func(t capture.Tick) error {
		return writeMessage(ctx, conn, newTickMessage(t))
	})

	log.Info("stream closed",
		slog.Int("frames", sess.Frames()),
		slog.Int("failed", sess.Failed()),
	)

	switch {
	case err == nil:
		conn.Close(websocket.StatusNormalClosure, "")
	case errors.Is(err, errMalformedFrame):
		conn.Close(websocket.StatusUnsupportedData, errMalformedFrame.Error())
	case ctx.Err() != nil:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	default:
		log.Debug("stream ended with error", slog.Any("err", err))
		conn.Close(websocket.StatusInternalError, "stream failed")
	}
}

func readHello(ctx context.Context, conn *websocket.Conn) (helloMessage, error) {
	typ, data, err := conn.Read(ctx)
	if err != nil {
		return helloMessage{}, err
	}
	if typ != websocket.MessageText {
		return helloMessage{}, fmt.Errorf("expected a text %q message", msgHello)
	}
	var h helloMessage
	if err := json.Unmarshal(data, &h); err != nil {
		return helloMessage{}, fmt.Errorf("decode hello: %w", err)
	}
	return h, h.validate()
}

// streamSource reads frames from a WebSocket. Text messages between frames
// are control messages.
type streamSource struct {
	conn    *websocket.Conn
	hello   helloMessage
	tracker *formant.Tracker
}

func (s *streamSource) Next(ctx context.Context) (spectrum.Frame, error) {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return spectrum.Frame{}, io.EOF
			}
			return spectrum.Frame{}, err
		}

		if typ == websocket.MessageText {
			var msg controlMessage
			if json.Unmarshal(data, &msg) == nil && msg.Type == msgReset {
				s.tracker.Reset()
			}
			continue
		}

		if len(data)%4 != 0 {
			return spectrum.Frame{}, errMalformedFrame
		}
		mags := make([]float64, len(data)/4)
		for i := range mags {
			mags[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:])))
		}
		return spectrum.NewFrame(mags, s.hello.SampleRate, s.hello.TransformSize), nil
	}
}

// EncodeFrame packs decibel magnitudes as little-endian float32, the binary
// frame layout the stream endpoint accepts.
func EncodeFrame(mags []float64) []byte {
	out := make([]byte, 4*len(mags))
	for i, v := range mags {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(float32(v)))
	}
	return out
}
