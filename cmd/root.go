package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solardash-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/solardash-cli/internal/config"
	"github.com/KaramelBytes/solardash-cli/internal/dataset"
	"github.com/KaramelBytes/solardash-cli/internal/session"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	sourceSpecs []string
	policyFlag  string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "solardash",
	Short: "SolarDash CLI: compare solar measurements across countries",
	Long: `SolarDash loads one solar-measurement CSV per country, merges them into a single table
and reports per-country statistics, rankings, ANOVA significance tests and charts.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("✗ Error:"), err)
		os.Exit(1)
	}
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle (loadConfig refers to rootCmd).
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		log.SetHandler(cli.New(cmd.ErrOrStderr()))
		log.SetLevel(log.InfoLevel)
		if debug {
			log.SetLevel(log.DebugLevel)
		}
		return loadConfig()
	}

	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.solardash/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringArrayVar(&sourceSpecs, "source", nil, "country source as Country=path, repeatable; replaces configured sources")
	rootCmd.PersistentFlags().StringVar(&policyFlag, "policy", "", "load policy when a source fails: all|partial (overrides config)")
}

func loadConfig() error {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c
	if rootCmd.PersistentFlags().Changed("policy") {
		cfg.LoadPolicy = policyFlag
	}
	log.WithFields(log.Fields{"sources": len(cfg.Sources), "policy": cfg.LoadPolicy}).Debug("config loaded")
	return nil
}

// resolveSources prefers --source flags over the configured list.
func resolveSources() ([]dataset.Source, error) {
	if len(sourceSpecs) == 0 {
		return cfg.DataSources(), nil
	}
	out := make([]dataset.Source, 0, len(sourceSpecs))
	for _, spec := range sourceSpecs {
		s, err := dataset.ParseSourceSpec(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// newSession builds a session over the resolved sources without loading them.
func newSession(metric string) (*session.Session, error) {
	srcs, err := resolveSources()
	if err != nil {
		return nil, err
	}
	if len(srcs) == 0 {
		return nil, errors.New("no sources: pass --source Country=path or set sources in the config")
	}
	dopt, err := cfg.DatasetOptions()
	if err != nil {
		return nil, err
	}
	if metric == "" {
		metric = cfg.DefaultMetric
	}
	s := session.New(srcs, dopt, cfg.AnalysisOptions(), "")
	s.SetMetricChoices(cfg.Metrics)
	if err := s.SetMetric(metric); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"session": s.ID, "sources": len(srcs)}).Debug("session opened")
	return s, nil
}

// openSession loads the sources into a new session. Load failures are reported
// as warnings while some table is available; with nothing loaded it fails.
func openSession(out io.Writer, metric string) (*session.Session, error) {
	s, err := newSession(metric)
	if err != nil {
		return nil, err
	}
	t, err := s.Refresh()
	if err != nil {
		if t == nil {
			return nil, fmt.Errorf("load sources: %w", err)
		}
		warnLoad(out, err)
	}
	return s, nil
}

// warnLoad prints one line per failed source.
func warnLoad(w io.Writer, err error) {
	var joined interface{ Unwrap() []error }
	errs := []error{err}
	if errors.As(err, &joined) {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		fmt.Fprintf(w, "%s %s: %v\n", color.YellowString("⚠"), analysis.Placeholder(e), e)
	}
}

func okf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

func placeholder(w io.Writer, title string, err error) {
	fmt.Fprintf(w, "%s %s: %s\n", color.YellowString("⚠"), title, analysis.Placeholder(err))
}
