package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/cwbudde/algo-formant/internal/config"
	"github.com/cwbudde/algo-formant/internal/observe"
	"github.com/cwbudde/algo-formant/internal/testutil"
)

// startServer launches the server on an httptest listener. It is closed
// when the test finishes.
func startServer(t *testing.T, cfg *config.Config, opts ...Option) (*httptest.Server, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	require.NoError(t, err)

	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(m),
	}, opts...)
	s, err := New(cfg, opts...)
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, reader
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

// readJSON reads one WebSocket text frame and decodes it into v.
func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)
	require.NoError(t, json.Unmarshal(data, v))
}

// writeJSON marshals v and sends it as a text frame.
func writeJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func writeFrame(t *testing.T, conn *websocket.Conn, mags []float64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, EncodeFrame(mags)))
}

// readCloseStatus reads until the server closes the connection.
func readCloseStatus(t *testing.T, conn *websocket.Conn) websocket.StatusCode {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return websocket.CloseStatus(err)
		}
	}
}

func hello() helloMessage {
	return helloMessage{Type: msgHello, SampleRate: 16000, TransformSize: 2048}
}

// vowelMags has peaks at 500 Hz (bin 64) and 1500 Hz (bin 192) at 16 kHz/2048.
func vowelMags() []float64 {
	return testutil.FrameDB(1024, -100, map[int]float64{64: -20, 192: -30})
}

func frameErrors(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "formant.frame.errors" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestStreamTracksFrames(t *testing.T) {
	srv, reader := startServer(t, config.Default())
	conn := dial(t, srv)

	writeJSON(t, conn, hello())
	var ready readyMessage
	readJSON(t, conn, &ready)
	assert.Equal(t, msgReady, ready.Type)
	assert.Equal(t, 1025, ready.Bins)
	assert.Equal(t, 800.0, ready.Chart.Width)

	writeFrame(t, conn, vowelMags())
	var tick tickMessage
	readJSON(t, conn, &tick)
	assert.Equal(t, msgTick, tick.Type)
	assert.Equal(t, 0, tick.Seq)
	require.NotNil(t, tick.F1)
	require.NotNil(t, tick.F2)
	assert.True(t, tick.F1.Valid)
	assert.Equal(t, 500.0, tick.F1.FrequencyHz)
	assert.Equal(t, 1500.0, tick.F2.FrequencyHz)
	assert.Equal(t, -20.0, tick.F1.MagnitudeDB)
	assert.NotNil(t, tick.Point)
	assert.True(t, tick.Voiced)
	assert.Empty(t, tick.Error)

	// More bins than a 2048-point transform has.
	writeFrame(t, conn, make([]float64, 2000))
	tick = tickMessage{}
	readJSON(t, conn, &tick)
	assert.Equal(t, 1, tick.Seq)
	assert.Contains(t, tick.Error, "more bins")
	assert.Nil(t, tick.F1)

	writeJSON(t, conn, controlMessage{Type: msgReset})
	writeFrame(t, conn, vowelMags())
	tick = tickMessage{}
	readJSON(t, conn, &tick)
	assert.Equal(t, 2, tick.Seq)
	require.NotNil(t, tick.F1)
	assert.Equal(t, 500.0, tick.F1.FrequencyHz)

	_ = conn.Close(websocket.StatusNormalClosure, "")
	assert.Equal(t, int64(1), frameErrors(t, reader))
}

func TestStreamSurvivesNonFiniteFrame(t *testing.T) {
	cfg := config.Default()
	cfg.Tracker.Mode = "ema"
	srv, reader := startServer(t, cfg)
	conn := dial(t, srv)

	writeJSON(t, conn, hello())
	var ready readyMessage
	readJSON(t, conn, &ready)

	bad := testutil.FrameDB(1024, -100, map[int]float64{64: math.Inf(1), 150: -20})
	writeFrame(t, conn, bad)
	var tick tickMessage
	readJSON(t, conn, &tick)
	assert.Equal(t, 0, tick.Seq)
	assert.Contains(t, tick.Error, "infinite")
	assert.Nil(t, tick.F1)

	writeFrame(t, conn, vowelMags())
	tick = tickMessage{}
	readJSON(t, conn, &tick)
	assert.Equal(t, 1, tick.Seq)
	assert.Empty(t, tick.Error)
	require.NotNil(t, tick.F1)
	assert.Equal(t, 500.0, tick.F1.FrequencyHz)
	assert.Equal(t, -20.0, tick.F1.MagnitudeDB)

	_ = conn.Close(websocket.StatusNormalClosure, "")
	assert.Equal(t, int64(1), frameErrors(t, reader))
}

func TestStreamReportsF3(t *testing.T) {
	cfg := config.Default()
	cfg.Tracker.F3 = true
	srv, _ := startServer(t, cfg)
	conn := dial(t, srv)

	writeJSON(t, conn, hello())
	var ready readyMessage
	readJSON(t, conn, &ready)

	// Bin 358 is 2796.875 Hz.
	writeFrame(t, conn, testutil.FrameDB(1024, -100, map[int]float64{64: -20, 192: -30, 358: -35}))
	var tick tickMessage
	readJSON(t, conn, &tick)
	require.NotNil(t, tick.F3)
	assert.True(t, tick.F3.Valid)
	assert.Equal(t, 2796.875, tick.F3.FrequencyHz)

	writeFrame(t, conn, vowelMags())
	tick = tickMessage{}
	readJSON(t, conn, &tick)
	require.NotNil(t, tick.F3)
	assert.True(t, tick.F3.Held, "a missing F3 is held like F1 and F2")
}

func TestStreamRejectsBadHello(t *testing.T) {
	srv, _ := startServer(t, config.Default())
	conn := dial(t, srv)

	h := hello()
	h.SampleRate = 0
	writeJSON(t, conn, h)

	var msg errorMessage
	readJSON(t, conn, &msg)
	assert.Equal(t, msgError, msg.Type)
	assert.Contains(t, msg.Error, "sample rate")
	assert.Equal(t, websocket.StatusPolicyViolation, readCloseStatus(t, conn))
}

func TestStreamRejectsMalformedFrame(t *testing.T) {
	srv, _ := startServer(t, config.Default())
	conn := dial(t, srv)

	writeJSON(t, conn, hello())
	var ready readyMessage
	readJSON(t, conn, &ready)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, []byte{1, 2, 3}))
	assert.Equal(t, websocket.StatusUnsupportedData, readCloseStatus(t, conn))
}

func TestMaxSessions(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxSessions = 1
	srv, _ := startServer(t, cfg)

	_ = dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHTTPRoutes(t *testing.T) {
	srv, _ := startServer(t, config.Default(),
		WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "formant_frames_total 0\n")
		})),
	)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/vowels")
	require.NoError(t, err)
	var vowels []struct {
		Code   string  `json:"code"`
		F1     float64 `json:"f1"`
		Target struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"target"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&vowels))
	resp.Body.Close()
	require.Len(t, vowels, 9)
	assert.Equal(t, "IY", vowels[0].Code)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "formant_frames_total")
}

func TestDefaultMetricsHandler(t *testing.T) {
	srv, _ := startServer(t, config.Default())

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Tracker.Mode = "mean"
	_, err := New(cfg)
	require.Error(t, err)
}

func TestEncodeFrame(t *testing.T) {
	data := EncodeFrame([]float64{-20, 0.5})
	require.Len(t, data, 8)
	assert.Equal(t, []byte{0x00, 0x00, 0xa0, 0xc1}, data[:4])
}
