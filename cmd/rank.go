package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solardash-cli/internal/analysis"
	"github.com/KaramelBytes/solardash-cli/internal/export"
)

var rankXLSX string

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank every loaded country by mean GHI, DNI, DHI and Tamb",
	Long: `Rank computes per-country means over the full table, ignoring any country selection,
rounded to one decimal and sorted by GHI. The highest mean per metric is starred.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		s, err := openSession(out, "")
		if err != nil {
			return err
		}
		rk, rkErr := s.Ranking()
		if rkErr != nil {
			if !analysis.Recoverable(rkErr) {
				return rkErr
			}
			placeholder(out, "ranking", rkErr)
		} else {
			printRanking(out, rk)
		}
		if rankXLSX == "" {
			return nil
		}
		res, resErr := s.Result()
		if err := export.WriteXLSX(rankXLSX, export.Workbook{SessionID: s.ID, Ranking: rk, RankingErr: rkErr, Result: res, ResultErr: resErr}); err != nil {
			return err
		}
		okf(out, "Wrote %s", rankXLSX)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)
	rankCmd.Flags().StringVar(&rankXLSX, "xlsx", "", "also write the ranking workbook to this .xlsx path")
}
