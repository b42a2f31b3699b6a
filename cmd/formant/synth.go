package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-formant/dsp/core"
	"github.com/cwbudde/algo-formant/dsp/signal"
	"github.com/cwbudde/algo-formant/internal/wav"
	"github.com/cwbudde/algo-formant/measure/vowel"
)

type synthOptions struct {
	vowel      string
	f0         float64
	f1, f2     float64
	duration   time.Duration
	sampleRate int
	amplitude  float64
	snrDB      float64
	seed       int64
	out        string
}

func newSynthCmd(a *app) *cobra.Command {
	var opts synthOptions

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesise a steady vowel as a WAV file",
		Long: `Writes a harmonic-rich test vowel shaped by the reference F1, F2 and F3
of the chosen vowel. --f1 and --f2 override the reference values. Use
--out - to write to standard output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			samples, err := opts.synthesize()
			if err != nil {
				return err
			}
			if opts.out == "-" {
				return wav.Write(cmd.OutOrStdout(), samples, opts.sampleRate)
			}

			f, err := os.Create(opts.out)
			if err != nil {
				return err
			}
			if err := wav.Write(f, samples, opts.sampleRate); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.log.Info("wrote vowel",
				slog.String("path", opts.out),
				slog.String("vowel", opts.vowel),
				slog.Int("samples", len(samples)),
			)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.vowel, "vowel", "AA", "reference vowel by ARPAbet code, IPA symbol or word (see 'formant vowels')")
	fs.Float64Var(&opts.f0, "f0", 120, "fundamental frequency in Hz")
	fs.Float64Var(&opts.f1, "f1", 0, "override F1 in Hz")
	fs.Float64Var(&opts.f2, "f2", 0, "override F2 in Hz")
	fs.DurationVar(&opts.duration, "duration", time.Second, "length of the vowel")
	fs.IntVar(&opts.sampleRate, "sample-rate", 16000, "sample rate in Hz")
	fs.Float64Var(&opts.amplitude, "amplitude", 0.5, "peak amplitude in (0, 1]")
	fs.Float64Var(&opts.snrDB, "snr", 0, "add white noise this many dB below the peak (0 = no noise)")
	fs.Int64Var(&opts.seed, "seed", 1, "noise seed")
	fs.StringVar(&opts.out, "out", "", "output WAV file, or - for stdout")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (o synthOptions) synthesize() ([]float64, error) {
	v, err := vowel.Lookup(o.vowel)
	if err != nil {
		return nil, err
	}
	if o.sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0: %d", o.sampleRate)
	}
	if !(o.amplitude > 0) || o.amplitude > 1 {
		return nil, fmt.Errorf("amplitude must be in (0, 1]: %g", o.amplitude)
	}
	n := int(o.duration.Seconds() * float64(o.sampleRate))
	if n <= 0 {
		return nil, fmt.Errorf("duration too short: %v", o.duration)
	}

	f1, f2 := v.F1, v.F2
	if o.f1 > 0 {
		f1 = o.f1
	}
	if o.f2 > 0 {
		f2 = o.f2
	}
	resonances := []signal.Resonance{
		{FrequencyHz: f1, BandwidthHz: signal.DefaultBandwidth(f1)},
		{FrequencyHz: f2, BandwidthHz: signal.DefaultBandwidth(f2)},
		{FrequencyHz: v.F3, BandwidthHz: signal.DefaultBandwidth(v.F3)},
	}

	g := signal.NewGeneratorWithOptions(
		[]core.ProcessorOption{core.WithSampleRate(float64(o.sampleRate))},
		signal.WithSeed(o.seed),
	)
	x, err := g.Vowel(o.f0, resonances, o.amplitude, n)
	if err != nil || o.snrDB <= 0 {
		return x, err
	}

	if err := g.AddNoise(x, o.snrDB); err != nil {
		return nil, err
	}
	return x, nil
}
