package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solardash-cli/internal/analysis"
)

var (
	anovaMetric    string
	anovaCountries []string
)

var anovaCmd = &cobra.Command{
	Use:   "anova",
	Short: "One-way ANOVA of a metric across the selected countries",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		s, err := openSession(out, anovaMetric)
		if err != nil {
			return err
		}
		applyCountries(cmd, s, anovaCountries)
		a, err := analysis.SignificanceTest(s.Table(), s.Selection(), cfg.AnalysisOptions())
		if err != nil {
			if analysis.Recoverable(err) {
				placeholder(out, "ANOVA", err)
				return nil
			}
			return err
		}
		printANOVA(out, a)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(anovaCmd)
	anovaCmd.Flags().StringVarP(&anovaMetric, "metric", "m", "", "metric column (default from config, GHI)")
	anovaCmd.Flags().StringSliceVarP(&anovaCountries, "countries", "c", nil, "comma-separated countries (default all loaded)")
}
