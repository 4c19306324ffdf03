package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solardash-cli/internal/chart"
)

var (
	chartsOutDir    string
	chartsMetric    string
	chartsCountries []string
)

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Render every available view as a PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		s, err := openSession(out, chartsMetric)
		if err != nil {
			return err
		}
		applyCountries(cmd, s, chartsCountries)
		dir := chartsOutDir
		if dir == "" {
			dir = cfg.ChartsDir
		}
		outcomes := s.Views()
		for _, o := range outcomes {
			if o.Err != nil {
				placeholder(out, o.View.Title, o.Err)
			}
		}
		paths, err := chart.Render(outcomes, dir, chart.Options{WidthIn: cfg.ChartWidthIn, HeightIn: cfg.ChartHeightIn})
		for _, p := range paths {
			okf(out, "Wrote %s", p)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chartsCmd)
	chartsCmd.Flags().StringVar(&chartsOutDir, "out-dir", "", "directory for PNG files (default charts_dir from config)")
	chartsCmd.Flags().StringVarP(&chartsMetric, "metric", "m", "", "metric column (default from config, GHI)")
	chartsCmd.Flags().StringSliceVarP(&chartsCountries, "countries", "c", nil, "comma-separated countries (default all loaded)")
}
