package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/solardash-cli/internal/config"
	"github.com/KaramelBytes/solardash-cli/internal/dataset"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set SolarDash configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintln(out, "sources:")
		for _, s := range cfg.Sources {
			fmt.Fprintf(out, "  - %s: %s\n", s.Country, s.Path)
		}
		fmt.Fprintf(out, "default_metric: %s\n", cfg.DefaultMetric)
		fmt.Fprintf(out, "metrics: %s\n", strings.Join(cfg.Metrics, ","))
		fmt.Fprintf(out, "alpha: %.3f\n", cfg.Alpha)
		fmt.Fprintf(out, "load_policy: %s\n", cfg.LoadPolicy)
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		}
		if cfg.Decimal != "" {
			fmt.Fprintf(out, "decimal: %q\n", cfg.Decimal)
		}
		if cfg.Thousands != "" {
			fmt.Fprintf(out, "thousands: %q\n", cfg.Thousands)
		}
		fmt.Fprintf(out, "charts_dir: %s\n", cfg.ChartsDir)
		fmt.Fprintf(out, "chart_width_in: %.1f\n", cfg.ChartWidthIn)
		fmt.Fprintf(out, "chart_height_in: %.1f\n", cfg.ChartHeightIn)
		fmt.Fprintf(out, "scatter_max_points: %d\n", cfg.ScatterMaxPoints)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Example: `  solardash config set sources "Benin=data/benin.csv,Togo=data/togo.csv"
  solardash config set alpha 0.01
  solardash config set load_policy partial`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "sources":
			var entries []cfgpkg.SourceEntry
			for _, spec := range splitList(val) {
				s, err := dataset.ParseSourceSpec(spec)
				if err != nil {
					return err
				}
				entries = append(entries, cfgpkg.SourceEntry{Country: s.Country, Path: s.Path})
			}
			cfg.Sources = entries
		case "default_metric":
			cfg.DefaultMetric = strings.TrimSpace(val)
		case "metrics":
			cfg.Metrics = splitList(val)
		case "alpha":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f <= 0 || f >= 1 {
				return fmt.Errorf("invalid alpha: %v (want 0 < alpha < 1)", val)
			}
			cfg.Alpha = f
		case "load_policy":
			p, err := dataset.ParsePolicy(val)
			if err != nil {
				return err
			}
			cfg.LoadPolicy = p.String()
		case "delimiter":
			cfg.Delimiter = val
		case "decimal":
			cfg.Decimal = val
		case "thousands":
			cfg.Thousands = val
		case "charts_dir":
			cfg.ChartsDir = val
		case "chart_width_in", "chart_height_in":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f <= 0 {
				return fmt.Errorf("invalid size for %s: %v", key, val)
			}
			if key == "chart_width_in" {
				cfg.ChartWidthIn = f
			} else {
				cfg.ChartHeightIn = f
			}
		case "scatter_max_points":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for scatter_max_points: %v", val)
			}
			cfg.ScatterMaxPoints = i
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if _, err := cfg.DatasetOptions(); err != nil {
			return err
		}
		if err := cfg.CheckMetrics(); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
