package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cwbudde/algo-formant/internal/config"
)

// app is the state shared by all subcommands.
type app struct {
	v   *viper.Viper
	cfg *config.Config
	log *slog.Logger

	configFile string
	output     string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "formant",
		Short: "Vowel formant extraction and tracking",
		Long: `formant estimates the first two vowel formants (F1, F2) from audio
spectra, smooths them over time and places them on a vowel chart.

Configuration is read from --config, ./formant.yaml or
$HOME/.config/formant/formant.yaml. Any key can be overridden by an
environment variable: analyzer.fft_size becomes FORMANT_ANALYZER_FFT_SIZE.
Command-line flags take precedence over both.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initialize(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default is ./formant.yaml or $HOME/.config/formant/formant.yaml)")
	pf.String("log-level", string(config.LogInfo), "log level (debug, info, warn, error)")
	pf.StringVarP(&a.output, "output", "o", "table", "output format (table, json, yaml)")

	root.AddCommand(
		newAnalyzeCmd(a),
		newSynthCmd(a),
		newServeCmd(a),
		newVowelsCmd(a),
		newWindowsCmd(a),
	)
	return root
}

// initialize resolves the configuration for the command about to run:
// defaults, then the config file, then FORMANT_* environment variables, then
// flags.
func (a *app) initialize(cmd *cobra.Command) error {
	switch a.output {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (table, json, yaml)", a.output)
	}

	v := a.v
	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
	} else {
		v.SetConfigName("formant")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "formant"))
		}
	}
	v.SetEnvPrefix("FORMANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := bindFlags(cmd, v); err != nil {
		return err
	}

	cfg := config.Default()
	if err := v.ReadInConfig(); err == nil {
		loaded, err := config.Load(v.ConfigFileUsed())
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		var notFound viper.ConfigFileNotFoundError
		if a.configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	applyOverrides(v, cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.Server.LogLevel.Level(),
	}))
	if used := v.ConfigFileUsed(); used != "" {
		a.log.Debug("using config file", slog.String("path", used))
	}
	return nil
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":      "server.log_level",
	"fft-size":       "analyzer.fft_size",
	"hop-size":       "analyzer.hop_size",
	"window":         "analyzer.window",
	"smoothing":      "analyzer.smoothing",
	"pre-emphasis":   "analyzer.pre_emphasis",
	"threshold":      "extractor.threshold_db",
	"adaptive":       "extractor.adaptive",
	"interpolate":    "extractor.interpolate",
	"bandwidth":      "extractor.bandwidth",
	"envelope-width": "extractor.envelope_width_hz",
	"selection":      "extractor.selection",
	"tracker":        "tracker.mode",
	"voicing-gate":   "tracker.voicing_gate",
	"f3":             "tracker.f3",
	"listen":         "server.listen_addr",
	"max-sessions":   "server.max_sessions",
}

// bindFlags binds the command's flags, inherited ones included, to their
// configuration keys.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var errs []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, fmt.Errorf("bind flag %q: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

// applyOverrides copies keys set by a flag or an environment variable onto
// cfg.
func applyOverrides(v *viper.Viper, cfg *config.Config) {
	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	setFloat := func(key string, dst *float64) {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}
	setBool := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}
	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	setFloat("analyzer.sample_rate", &cfg.Analyzer.SampleRate)
	setInt("analyzer.fft_size", &cfg.Analyzer.FFTSize)
	setInt("analyzer.hop_size", &cfg.Analyzer.HopSize)
	setString("analyzer.window", &cfg.Analyzer.Window)
	setFloat("analyzer.smoothing", &cfg.Analyzer.Smoothing)
	setFloat("analyzer.min_decibels", &cfg.Analyzer.MinDecibels)
	setFloat("analyzer.pre_emphasis", &cfg.Analyzer.PreEmphasis)

	setFloat("extractor.threshold_db", &cfg.Extractor.ThresholdDB)
	setBool("extractor.adaptive", &cfg.Extractor.Adaptive)
	setFloat("extractor.adaptive_offset_db", &cfg.Extractor.AdaptiveOffsetDB)
	setBool("extractor.interpolate", &cfg.Extractor.Interpolate)
	setBool("extractor.bandwidth", &cfg.Extractor.Bandwidth)
	setFloat("extractor.envelope_width_hz", &cfg.Extractor.EnvelopeWidthHz)
	setString("extractor.selection", &cfg.Extractor.Selection)

	setString("tracker.mode", &cfg.Tracker.Mode)
	setInt("tracker.window", &cfg.Tracker.Window)
	setFloat("tracker.alpha", &cfg.Tracker.Alpha)
	setInt("tracker.max_hold", &cfg.Tracker.MaxHold)
	setFloat("tracker.voicing_gate", &cfg.Tracker.VoicingGate)
	setBool("tracker.f3", &cfg.Tracker.F3)

	setString("server.listen_addr", &cfg.Server.ListenAddr)
	setString("server.metrics_path", &cfg.Server.MetricsPath)
	setInt("server.max_sessions", &cfg.Server.MaxSessions)
	if v.IsSet("server.log_level") {
		cfg.Server.LogLevel = config.LogLevel(strings.ToLower(v.GetString("server.log_level")))
	}
}

// addAnalyzerFlags registers the spectrum analyzer flags. Flag defaults only
// document the built-in values; unchanged flags never override the config
// file.
func addAnalyzerFlags(fs *pflag.FlagSet) {
	def := config.Default().Analyzer
	fs.Int("fft-size", def.FFTSize, "transform size (power of two)")
	fs.Int("hop-size", def.HopSize, "samples between frames (0 = half the transform)")
	fs.String("window", def.Window, "analysis window (rectangular, hann, hamming, blackman, blackman-harris)")
	fs.Float64("smoothing", def.Smoothing, "temporal smoothing constant in [0, 1)")
	fs.Float64("pre-emphasis", def.PreEmphasis, "first-difference pre-emphasis coefficient in [0, 1) (0 = off)")
}

// addTrackingFlags registers the extractor and tracker flags shared by
// analyze and serve.
func addTrackingFlags(fs *pflag.FlagSet) {
	def := config.Default()
	fs.Float64("threshold", def.Extractor.ThresholdDB, "noise threshold in dB")
	fs.Bool("adaptive", def.Extractor.Adaptive, "raise the threshold to the frame mean plus an offset")
	fs.Bool("interpolate", def.Extractor.Interpolate, "refine peaks with parabolic interpolation")
	fs.Bool("bandwidth", def.Extractor.Bandwidth, "estimate -3 dB bandwidths")
	fs.Float64("envelope-width", def.Extractor.EnvelopeWidthHz, "smooth the spectrum over this many Hz before peak picking (0 = off)")
	fs.String("selection", def.Extractor.Selection, "peak selection within a band (first, loudest)")
	fs.String("tracker", def.Tracker.Mode, "tracker smoothing (median, ema)")
	fs.Float64("voicing-gate", def.Tracker.VoicingGate, "spectral flatness above which frames count as unvoiced (0 = off)")
	fs.Bool("f3", def.Tracker.F3, "also track the third formant")
}
