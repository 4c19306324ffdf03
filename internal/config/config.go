package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/solardash-cli/internal/analysis"
	"github.com/KaramelBytes/solardash-cli/internal/dataset"
)

const dirName = ".solardash"

// SourceEntry names one country's CSV file.
type SourceEntry struct {
	Country string `mapstructure:"country" yaml:"country"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Global configuration structure.
type Global struct {
	// Sources are loaded in list order; that order is the country enumeration order.
	Sources       []SourceEntry `mapstructure:"sources" yaml:"sources"`
	DefaultMetric string        `mapstructure:"default_metric" yaml:"default_metric"`
	Metrics       []string      `mapstructure:"metrics" yaml:"metrics"`
	Alpha         float64       `mapstructure:"alpha" yaml:"alpha"`
	LoadPolicy    string        `mapstructure:"load_policy" yaml:"load_policy"`

	// CSV dialect; empty means sniff/auto-detect.
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	Decimal   string `mapstructure:"decimal" yaml:"decimal"`
	Thousands string `mapstructure:"thousands" yaml:"thousands"`

	// Chart output
	ChartsDir        string  `mapstructure:"charts_dir" yaml:"charts_dir"`
	ChartWidthIn     float64 `mapstructure:"chart_width_in" yaml:"chart_width_in"`
	ChartHeightIn    float64 `mapstructure:"chart_height_in" yaml:"chart_height_in"`
	ScatterMaxPoints int     `mapstructure:"scatter_max_points" yaml:"scatter_max_points"`
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.solardash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Dir returns ~/.solardash.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is read first; it never overrides
// variables already set in the environment.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("SOLARDASH")
	v.AutomaticEnv()

	v.SetDefault("sources", []SourceEntry{})
	v.SetDefault("default_metric", analysis.DefaultMetric)
	v.SetDefault("metrics", analysis.RankingMetrics)
	v.SetDefault("alpha", analysis.DefaultAlpha)
	v.SetDefault("load_policy", dataset.PolicyAllOrNothing.String())
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal", "")
	v.SetDefault("thousands", "")
	v.SetDefault("charts_dir", "charts")
	v.SetDefault("chart_width_in", 8.0)
	v.SetDefault("chart_height_in", 5.0)
	v.SetDefault("scatter_max_points", analysis.DefaultOptions().ScatterMaxPoints)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if strings.TrimSpace(c.DefaultMetric) == "" {
		c.DefaultMetric = analysis.DefaultMetric
	}
	return &c, nil
}

// DataSources converts the configured entries into loadable sources.
func (c *Global) DataSources() []dataset.Source {
	out := make([]dataset.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		out = append(out, dataset.FileSource(s.Country, s.Path))
	}
	return out
}

// DatasetOptions builds ingestion options from the CSV dialect and load policy keys.
func (c *Global) DatasetOptions() (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	var err error
	if opt.Policy, err = dataset.ParsePolicy(c.LoadPolicy); err != nil {
		return opt, err
	}
	if opt.Delimiter, err = separator("delimiter", c.Delimiter); err != nil {
		return opt, err
	}
	if opt.DecimalSeparator, err = separator("decimal", c.Decimal); err != nil {
		return opt, err
	}
	if opt.ThousandsSeparator, err = separator("thousands", c.Thousands); err != nil {
		return opt, err
	}
	return opt, nil
}

// CheckMetrics verifies that metrics is non-empty and holds the default
// metric, normalising DefaultMetric to the configured spelling.
func (c *Global) CheckMetrics() error {
	if len(c.Metrics) == 0 {
		return errors.New("metrics: at least one metric is required")
	}
	m, err := analysis.CheckMetric(c.DefaultMetric, c.Metrics)
	if err != nil {
		return fmt.Errorf("default_metric: %w", err)
	}
	c.DefaultMetric = m
	return nil
}

// AnalysisOptions builds aggregation options.
func (c *Global) AnalysisOptions() analysis.Options {
	opt := analysis.DefaultOptions()
	if c.Alpha > 0 && c.Alpha < 1 {
		opt.Alpha = c.Alpha
	}
	if c.ScatterMaxPoints >= 0 {
		opt.ScatterMaxPoints = c.ScatterMaxPoints
	}
	return opt
}

func separator(key, s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case "\t", `\t`, "tab":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("invalid %s: %q (want a single character)", key, s)
	}
	return r[0], nil
}
