package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solardash-cli/internal/export"
	"github.com/KaramelBytes/solardash-cli/internal/utils"
)

var (
	exportXLSX      string
	exportHTML      string
	exportMetric    string
	exportCountries []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the ranking, summary and ANOVA to an XLSX workbook and/or an HTML report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportXLSX == "" && exportHTML == "" {
			return errors.New("nothing to export: pass --xlsx and/or --html")
		}
		out := cmd.OutOrStdout()
		s, err := openSession(out, exportMetric)
		if err != nil {
			return err
		}
		applyCountries(cmd, s, exportCountries)
		if exportXLSX != "" {
			rk, rkErr := s.Ranking()
			res, resErr := s.Result()
			wb := export.Workbook{SessionID: s.ID, Ranking: rk, RankingErr: rkErr, Result: res, ResultErr: resErr}
			if err := export.WriteXLSX(exportXLSX, wb); err != nil {
				return err
			}
			okf(out, "Wrote %s", exportXLSX)
		}
		if exportHTML != "" {
			r := s.Report("Solar dashboard: " + s.Selection().Metric)
			if err := utils.SafeWriteFile(exportHTML, export.HTML(r.Title, r.Markdown())); err != nil {
				return err
			}
			okf(out, "Wrote %s", exportHTML)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportXLSX, "xlsx", "", "path of the .xlsx workbook to write")
	exportCmd.Flags().StringVar(&exportHTML, "html", "", "path of the HTML report to write")
	exportCmd.Flags().StringVarP(&exportMetric, "metric", "m", "", "metric column (default from config, GHI)")
	exportCmd.Flags().StringSliceVarP(&exportCountries, "countries", "c", nil, "comma-separated countries (default all loaded)")
}
