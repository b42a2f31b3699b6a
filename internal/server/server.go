// Package server exposes formant tracking to browsers over WebSocket.
//
// A client connects to /ws, sends a JSON hello naming its sample rate and
// transform size, then streams spectral frames as binary messages of
// little-endian float32 decibel magnitudes (the layout of
// AnalyserNode.getFloatFrequencyData). The server answers every frame with a
// JSON tick. Each connection gets its own tracker; the stateless extractor
// is shared.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwbudde/algo-formant/dsp/formant"
	"github.com/cwbudde/algo-formant/internal/config"
	"github.com/cwbudde/algo-formant/internal/observe"
	"github.com/cwbudde/algo-formant/measure/vowel"
)

const shutdownTimeout = 5 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the metric instruments. Defaults to
// observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithMetricsHandler replaces the Prometheus handler served at the
// configured metrics path.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.metricsHandler = h
		}
	}
}

// WithOriginPatterns allows cross-origin WebSocket clients matching the
// given host patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) {
		s.origins = append(s.origins, patterns...)
	}
}

// Server serves the WebSocket tracker, the reference vowel table and
// Prometheus metrics.
type Server struct {
	cfg            *config.Config
	extractor      *formant.Extractor
	metrics        *observe.Metrics
	metricsHandler http.Handler
	log            *slog.Logger
	origins        []string

	// slots limits concurrent sessions; nil means unlimited.
	slots chan struct{}
	mux   *http.ServeMux
}

// New creates a server from a validated configuration.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	ex, err := cfg.Extractor.NewExtractor()
	if err != nil {
		return nil, fmt.Errorf("server: build extractor: %w", err)
	}

	s := &Server{
		cfg:            cfg,
		extractor:      ex,
		metricsHandler: promhttp.Handler(),
		log:            slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if n := cfg.Server.MaxSessions; n > 0 {
		s.slots = make(chan struct{}, n)
	}

	s.mux = http.NewServeMux()
	s.setupRoutes(s.mux)
	return s, nil
}

func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /vowels", s.handleVowels)
	mux.HandleFunc("GET /ws", s.handleStream)
	if p := s.cfg.Server.MetricsPath; p != "" {
		mux.Handle("GET "+p, s.metricsHandler)
	}
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully. Open sessions see their request context
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVowels(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		vowel.Vowel
		Target vowel.Point `json:"target"`
	}
	all := vowel.All()
	out := make([]entry, len(all))
	for i, v := range all {
		out[i] = entry{Vowel: v, Target: s.cfg.Chart.Target(v)}
	}
	writeJSONResponse(w, http.StatusOK, out)
}

func (s *Server) acquire() bool {
	if s.slots == nil {
		return true
	}
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Server) release() {
	if s.slots != nil {
		<-s.slots
	}
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
