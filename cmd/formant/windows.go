package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-formant/dsp/window"
)

var windowTypes = []window.Type{
	window.TypeRectangular,
	window.TypeHann,
	window.TypeHamming,
	window.TypeBlackman,
	window.TypeBlackmanHarris4Term,
}

// windowReport describes one analysis window at the configured transform
// size and sample rate.
type windowReport struct {
	Name         string  `json:"name" yaml:"name"`
	Size         int     `json:"size" yaml:"size"`
	CoherentGain float64 `json:"coherentGain" yaml:"coherent_gain"`
	GainDB       float64 `json:"gainDb" yaml:"gain_db"`
	ENBW         float64 `json:"enbwBins" yaml:"enbw_bins"`
	ResolutionHz float64 `json:"resolutionHz" yaml:"resolution_hz"`
	Selected     bool    `json:"selected" yaml:"selected"`
}

func newWindowsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Compare the analysis windows",
		Long: `Prints the coherent gain and equivalent noise bandwidth of every
analysis window at the configured transform size, and the noise bandwidth
in Hz at the configured sample rate. The configured window is marked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports, err := analyzeWindows(a.cfg.Analyzer.FFTSize, a.cfg.Analyzer.SampleRate, a.cfg.Analyzer.Window)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), reports, func(tw *tabwriter.Writer) error {
				if _, err := fmt.Fprintln(tw, "Window\tSize\tCoherent Gain\tGain [dB]\tENBW [bins]\tENBW [Hz]\t"); err != nil {
					return err
				}
				for _, r := range reports {
					mark := ""
					if r.Selected {
						mark = "*"
					}
					if _, err := fmt.Fprintf(tw, "%s\t%d\t%.6f\t%.2f\t%.4f\t%.2f\t%s\n",
						r.Name, r.Size, r.CoherentGain, r.GainDB, r.ENBW, r.ResolutionHz, mark,
					); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	addAnalyzerFlags(cmd.Flags())
	return cmd
}

func analyzeWindows(size int, sampleRate float64, selected string) ([]windowReport, error) {
	sel, err := window.ParseType(selected)
	if err != nil {
		return nil, err
	}

	reports := make([]windowReport, 0, len(windowTypes))
	for _, t := range windowTypes {
		coeffs := window.Generate(t, size, window.WithPeriodic())
		cg, err := window.CoherentGain(coeffs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t, err)
		}
		enbw, err := window.EquivalentNoiseBandwidth(coeffs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t, err)
		}
		reports = append(reports, windowReport{
			Name:         t.String(),
			Size:         size,
			CoherentGain: cg,
			GainDB:       20 * math.Log10(cg),
			ENBW:         enbw,
			ResolutionHz: enbw * sampleRate / float64(size),
			Selected:     t == sel,
		})
	}
	return reports, nil
}
