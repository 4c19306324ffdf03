package cmd

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solardash-cli/internal/analysis"
	"github.com/KaramelBytes/solardash-cli/internal/dataset"
	"github.com/KaramelBytes/solardash-cli/internal/session"
)

const interactiveHelp = `Commands:
  metric [name]            show or select the metric (one of the configured metrics)
  countries <a,b>|all      select countries; "countries" alone selects none
  source <Country=path>    add or replace a country's file
  load                     reload sources (reuses the cached table when unchanged)
  show                     summary for the current selection
  rank                     full-table ranking
  anova                    significance test for the current selection
  views                    which views the loaded columns support
  help                     this text
  quit                     leave`

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Explore the loaded data one command per line",
	Long: `Interactive starts a session over the configured sources and reads commands from stdin.
Each command re-checks the sources; unchanged files are served from the session cache.

` + interactiveHelp,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession("")
		if err != nil {
			return err
		}
		return runInteractive(s, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractive(s *session.Session, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Session %s. Type 'help' for commands.\n", s.ID)
	refresh(s, out, true)
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		verb, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch strings.ToLower(verb) {
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			fmt.Fprintln(out, interactiveHelp)
		case "metric":
			if arg == "" {
				fmt.Fprintf(out, "metric: %s (choices: %s)\n", s.Selection().Metric, strings.Join(s.MetricChoices(), ", "))
				continue
			}
			if err := s.SetMetric(arg); err != nil {
				placeholder(out, "metric", err)
				continue
			}
			okf(out, "metric %s", s.Selection().Metric)
		case "countries":
			if strings.EqualFold(arg, "all") {
				s.SelectAll()
			} else {
				s.SetCountries(splitList(arg))
			}
			okf(out, "countries %s", strings.Join(s.Selection().Countries, ", "))
		case "source":
			src, err := dataset.ParseSourceSpec(arg)
			if err != nil {
				fmt.Fprintf(out, "%s %v\n", color.YellowString("⚠"), err)
				continue
			}
			s.SetSources(upsertSource(s.Sources(), src))
			okf(out, "source %s = %s", src.Country, src.Path)
		case "load":
			refresh(s, out, true)
		case "show":
			refresh(s, out, false)
			res, err := s.Result()
			if err != nil {
				placeholder(out, "summary", err)
				continue
			}
			printSummary(out, res)
		case "rank":
			refresh(s, out, false)
			rk, err := s.Ranking()
			if err != nil {
				placeholder(out, "ranking", err)
				continue
			}
			printRanking(out, rk)
		case "anova":
			refresh(s, out, false)
			res, err := s.Result()
			switch {
			case err != nil:
				placeholder(out, "ANOVA", err)
			case res.ANOVA == nil:
				placeholder(out, "ANOVA", res.ANOVAErr)
			default:
				printANOVA(out, res.ANOVA)
			}
		case "views":
			refresh(s, out, false)
			printAvailability(out, s.Available())
		default:
			fmt.Fprintf(out, "%s unknown command %q (try 'help')\n", color.YellowString("⚠"), verb)
		}
	}
}

// refresh reloads the sources through the session cache. verbose reports
// the outcome even when nothing changed. Load failures are repeated on a
// cache hit only while there is no table at all.
func refresh(s *session.Session, out io.Writer, verbose bool) {
	_, before := s.CacheStats()
	t, err := s.Refresh()
	_, after := s.CacheStats()
	changed := after != before
	if err != nil && (changed || verbose || t == nil) {
		warnLoad(out, err)
	}
	if t == nil || (!verbose && !changed) {
		return
	}
	if !changed {
		okf(out, "sources unchanged, using cached table (%d rows)", t.Len())
		return
	}
	okf(out, "loaded %d rows from %s", t.Len(), strings.Join(t.Countries(), ", "))
}

func printAvailability(out io.Writer, a analysis.Availability) {
	ids := make([]string, 0, len(a.Views))
	for id := range a.Views {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		mark := color.GreenString("✓")
		if !a.Views[id] {
			mark = color.YellowString("⚠")
		}
		fmt.Fprintf(out, "%s %s\n", mark, id)
	}
}

func upsertSource(list []dataset.Source, src dataset.Source) []dataset.Source {
	for i := range list {
		if list[i].Country == src.Country {
			list[i] = src
			return list
		}
	}
	return append(list, src)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
