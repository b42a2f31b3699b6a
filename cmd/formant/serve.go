package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-formant/internal/config"
	"github.com/cwbudde/algo-formant/internal/observe"
	"github.com/cwbudde/algo-formant/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var origins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve formant tracking over WebSocket",
		Long: `Starts the HTTP server: /ws streams spectral frames in and formant ticks
out, /vowels lists the reference vowels with their chart targets, /healthz
reports liveness and the metrics path serves Prometheus metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
				ServiceName:    "formant",
				ServiceVersion: version,
			})
			if err != nil {
				return err
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(sctx); err != nil {
					a.log.Warn("metrics shutdown failed", slog.Any("err", err))
				}
			}()

			srv, err := server.New(a.cfg,
				server.WithLogger(a.log),
				server.WithOriginPatterns(origins...),
			)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx)
		},
	}

	fs := cmd.Flags()
	addTrackingFlags(fs)
	def := config.Default().Server
	fs.String("listen", def.ListenAddr, "address to listen on")
	fs.Int("max-sessions", def.MaxSessions, "maximum concurrent streams (0 = unlimited)")
	fs.StringSliceVar(&origins, "origin", nil, "allowed cross-origin WebSocket host patterns")
	return cmd
}
