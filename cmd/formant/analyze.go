package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-formant/capture"
	"github.com/cwbudde/algo-formant/dsp/formant"
	"github.com/cwbudde/algo-formant/internal/wav"
)

// fileReport summarises the formant track of one recording.
type fileReport struct {
	File       string          `json:"file" yaml:"file"`
	SampleRate int             `json:"sampleRate" yaml:"sample_rate"`
	Duration   float64         `json:"durationSec" yaml:"duration_sec"`
	Frames     int             `json:"frames" yaml:"frames"`
	Failed     int             `json:"failed" yaml:"failed"`
	Voiced     int             `json:"voiced" yaml:"voiced"`
	F1         formantSummary  `json:"f1" yaml:"f1"`
	F2         formantSummary  `json:"f2" yaml:"f2"`
	F3         *formantSummary `json:"f3,omitempty" yaml:"f3,omitempty"`
	Ticks      []tickReport    `json:"ticks,omitempty" yaml:"ticks,omitempty"`
}

// formantSummary describes the valid smoothed estimates of one formant.
type formantSummary struct {
	Count    int     `json:"count" yaml:"count"`
	MeanHz   float64 `json:"meanHz" yaml:"mean_hz"`
	StdDevHz float64 `json:"stdDevHz" yaml:"std_dev_hz"`
	MinHz    float64 `json:"minHz" yaml:"min_hz"`
	MaxHz    float64 `json:"maxHz" yaml:"max_hz"`
}

// tickReport is one frame of the track. Absent formants are zero.
type tickReport struct {
	TimeSec float64 `json:"timeSec" yaml:"time_sec"`
	F1Hz    float64 `json:"f1Hz" yaml:"f1_hz"`
	F2Hz    float64 `json:"f2Hz" yaml:"f2_hz"`
	F3Hz    float64 `json:"f3Hz,omitempty" yaml:"f3_hz,omitempty"`
	Voiced  bool    `json:"voiced" yaml:"voiced"`
	Error   string  `json:"error,omitempty" yaml:"error,omitempty"`
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var withTicks bool

	cmd := &cobra.Command{
		Use:   "analyze <file.wav>...",
		Short: "Track formants in WAV recordings",
		Long: `Runs each 16-bit PCM WAV file through the spectrum analyzer and the
formant tracker, and prints the mean, spread and range of the smoothed F1
and F2 estimates, and of F3 with --f3. Files are analysed concurrently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := a.analyzeFiles(cmd.Context(), args, withTicks)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), reports, func(tw *tabwriter.Writer) error {
				return writeReportTable(tw, reports)
			})
		},
	}

	addAnalyzerFlags(cmd.Flags())
	addTrackingFlags(cmd.Flags())
	cmd.Flags().BoolVar(&withTicks, "ticks", false, "include the per-frame track in json and yaml output")
	return cmd
}

func (a *app) analyzeFiles(ctx context.Context, paths []string, withTicks bool) ([]fileReport, error) {
	ex, err := a.cfg.Extractor.NewExtractor()
	if err != nil {
		return nil, err
	}

	reports := make([]fileReport, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			r, err := a.analyzeFile(ctx, ex, path, withTicks)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (a *app) analyzeFile(ctx context.Context, ex *formant.Extractor, path string, withTicks bool) (fileReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileReport{}, err
	}
	defer f.Close()

	audio, err := wav.Read(f)
	if err != nil {
		return fileReport{}, err
	}

	an, err := a.cfg.Analyzer.NewAnalyzer(float64(audio.SampleRate))
	if err != nil {
		return fileReport{}, err
	}
	src, err := capture.NewSampleSource(audio.Samples, an)
	if err != nil {
		return fileReport{}, err
	}
	tracker, err := a.cfg.Tracker.NewTracker(ex)
	if err != nil {
		return fileReport{}, err
	}
	sess, err := capture.NewSession(capture.SessionConfig{
		Source:  src,
		Tracker: tracker,
		Chart:   a.cfg.Chart,
		Logger:  a.log.With(slog.String("file", path)),
	})
	if err != nil {
		return fileReport{}, err
	}

	pc := an.Config()
	report := fileReport{
		File:       path,
		SampleRate: audio.SampleRate,
		Duration:   audio.Duration(),
	}
	var f1, f2, f3 []float64
	err = sess.Run(ctx, func(t capture.Tick) error {
		tr := tickReport{
			TimeSec: float64(t.Seq*pc.HopSize+pc.FFTSize/2) / pc.SampleRate,
			Voiced:  t.Result.Voiced,
		}
		if t.Err != nil {
			tr.Error = t.Err.Error()
		} else {
			if t.Result.Voiced {
				report.Voiced++
			}
			if e := t.Result.Smoothed.F1; e.Valid {
				f1 = append(f1, e.FrequencyHz)
				tr.F1Hz = e.FrequencyHz
			}
			if e := t.Result.Smoothed.F2; e.Valid {
				f2 = append(f2, e.FrequencyHz)
				tr.F2Hz = e.FrequencyHz
			}
			if e := t.Result.F3; e.Valid {
				f3 = append(f3, e.FrequencyHz)
				tr.F3Hz = e.FrequencyHz
			}
		}
		if withTicks {
			report.Ticks = append(report.Ticks, tr)
		}
		return nil
	})
	if err != nil {
		return fileReport{}, err
	}

	report.Frames = sess.Frames()
	report.Failed = sess.Failed()
	report.F1 = summarize(f1)
	report.F2 = summarize(f2)
	if a.cfg.Tracker.F3 {
		s := summarize(f3)
		report.F3 = &s
	}
	if dropped, err := an.Dropped(); dropped > 0 {
		a.log.Warn("analyzer dropped frames",
			slog.String("file", path),
			slog.Int("dropped", dropped),
			slog.Any("err", err),
		)
	}

	a.log.Debug("analysed file",
		slog.String("file", path),
		slog.Int("frames", report.Frames),
		slog.Int("voiced", report.Voiced),
	)
	return report, nil
}

func summarize(x []float64) formantSummary {
	if len(x) == 0 {
		return formantSummary{}
	}
	s := formantSummary{
		Count: len(x),
		MinHz: floats.Min(x),
		MaxHz: floats.Max(x),
	}
	if len(x) == 1 {
		s.MeanHz = x[0]
		return s
	}
	s.MeanHz, s.StdDevHz = stat.MeanStdDev(x, nil)
	return s
}

func writeReportTable(tw *tabwriter.Writer, reports []fileReport) error {
	if _, err := fmt.Fprintln(tw, "File\tDuration [s]\tFrames\tVoiced\tF1 [Hz]\tF1 sd\tF2 [Hz]\tF2 sd\tF3 [Hz]"); err != nil {
		return err
	}
	for _, r := range reports {
		f3 := 0.0
		if r.F3 != nil {
			f3 = r.F3.MeanHz
		}
		if _, err := fmt.Fprintf(tw, "%s\t%.2f\t%d\t%d\t%s\t%.1f\t%s\t%.1f\t%s\n",
			r.File, r.Duration, r.Frames, r.Voiced,
			hz(r.F1.MeanHz), r.F1.StdDevHz,
			hz(r.F2.MeanHz), r.F2.StdDevHz,
			hz(f3),
		); err != nil {
			return err
		}
	}
	return nil
}
