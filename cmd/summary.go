package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solardash-cli/internal/analysis"
	"github.com/KaramelBytes/solardash-cli/internal/export"
	"github.com/KaramelBytes/solardash-cli/internal/session"
	"github.com/KaramelBytes/solardash-cli/internal/utils"
)

var (
	sumMetric    string
	sumCountries []string
	sumJSON      bool
	sumFormat    string
	sumOut       string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Per-country statistics, best performer and ANOVA for one metric",
	Example: `  solardash summary --source Benin=benin.csv --source Togo=togo.csv
  solardash summary --metric DNI --countries Benin,Togo --json
  solardash summary --format html -o report.html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		s, err := openSession(out, sumMetric)
		if err != nil {
			return err
		}
		applyCountries(cmd, s, sumCountries)

		switch strings.ToLower(sumFormat) {
		case "", "text":
		case "md", "markdown", "html":
			return writeReport(cmd, s, strings.ToLower(sumFormat), sumOut)
		default:
			return fmt.Errorf("unsupported format: %s (use text|md|html)", sumFormat)
		}

		res, err := s.Result()
		if err != nil {
			if analysis.Recoverable(err) {
				placeholder(out, "summary", err)
				return nil
			}
			return err
		}
		if sumJSON {
			b, err := utils.PrettyJSON(toJSON(s.ID, res))
			if err != nil {
				return err
			}
			return emit(cmd, b, sumOut)
		}
		printSummary(out, res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVarP(&sumMetric, "metric", "m", "", "metric column (default from config, GHI)")
	summaryCmd.Flags().StringSliceVarP(&sumCountries, "countries", "c", nil, "comma-separated countries (default all loaded)")
	summaryCmd.Flags().BoolVar(&sumJSON, "json", false, "print the summary as JSON")
	summaryCmd.Flags().StringVar(&sumFormat, "format", "text", "output format: text|md|html (md and html render every view)")
	summaryCmd.Flags().StringVarP(&sumOut, "output", "o", "", "write output to file instead of stdout")
}

// applyCountries narrows the session only when the flag was given, so that an
// explicit empty list still means an empty selection.
func applyCountries(cmd *cobra.Command, s *session.Session, countries []string) {
	if cmd.Flags().Changed("countries") {
		s.SetCountries(countries)
	}
}

func writeReport(cmd *cobra.Command, s *session.Session, format, path string) error {
	r := s.Report("Solar dashboard: " + s.Selection().Metric)
	md := r.Markdown()
	data := []byte(md)
	if format == "html" {
		data = export.HTML(r.Title, md)
	}
	return emit(cmd, data, path)
}

// emit writes data to path, or to the command's stdout when path is empty.
func emit(cmd *cobra.Command, data []byte, path string) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return err
	}
	okf(cmd.OutOrStdout(), "Wrote %s", path)
	return nil
}
