package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-formant/measure/vowel"
)

// vowelEntry is a reference vowel with its target on the configured chart.
type vowelEntry struct {
	vowel.Vowel `yaml:",inline"`
	Target      vowel.Point `json:"target" yaml:"target"`
}

func newVowelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vowels",
		Short: "List the reference vowels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all := vowel.All()
			entries := make([]vowelEntry, len(all))
			for i, v := range all {
				entries[i] = vowelEntry{Vowel: v, Target: a.cfg.Chart.Target(v)}
			}
			return a.render(cmd.OutOrStdout(), entries, func(tw *tabwriter.Writer) error {
				if _, err := fmt.Fprintln(tw, "Code\tIPA\tWord\tF1 [Hz]\tF2 [Hz]\tF3 [Hz]\tChart x\tChart y"); err != nil {
					return err
				}
				for _, e := range entries {
					if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\n",
						e.Code, e.IPA, e.Word, e.F1, e.F2, e.F3, e.Target.X, e.Target.Y,
					); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
