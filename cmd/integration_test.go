package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xuri/excelize/v2"
)

func init() {
	color.NoColor = true
}

const (
	beninCSV = "Timestamp,GHI,DNI,DHI,Tamb,WS,WD\n" +
		"t1,240,160,110,28,2.0,10\n" +
		"t2,260,180,120,29,3.0,100\n"
	togoCSV = "Timestamp;GHI;DNI;DHI;Tamb;WS;WD\n" +
		"t1;220;140;118;27;1,5;200\n" +
		"t2;230;NA;122;26;2,5;210\n"
	sierraCSV = "Timestamp,GHI,DNI,DHI,Tamb,WS,WD\n" +
		"t1,180,100,100,25,4.0,300\n" +
		"t2,200,110,104,26,3.5,310\n"
)

// resetFlags clears values and Changed state left over from a previous Execute.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(t, "", args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

// setupHome isolates config under a temp HOME and writes the three country files.
func setupHome(t *testing.T) (home string, sources []string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	files := []struct{ country, name, body string }{
		{"Benin", "benin.csv", beninCSV},
		{"Togo", "togo.csv", togoCSV},
		{"Sierra Leone", "sierraleone.csv", sierraCSV},
	}
	for _, f := range files {
		p := filepath.Join(home, f.name)
		if err := os.WriteFile(p, []byte(f.body), 0o644); err != nil {
			t.Fatalf("write %s: %v", f.name, err)
		}
		sources = append(sources, "--source", f.country+"="+p)
	}
	return home, sources
}

func TestCLI_SummaryText(t *testing.T) {
	_, src := setupHome(t)
	out := runCmd(t, append([]string{"summary"}, src...)...)
	for _, want := range []string{"1. Benin", "2. Togo", "3. Sierra Leone", "Best: Benin (250.00)", "ANOVA GHI"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary output missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_SummaryJSONAndSelection(t *testing.T) {
	_, src := setupHome(t)
	out := runCmd(t, append([]string{"summary", "--metric", "DNI", "--countries", "Togo,Sierra Leone", "--json"}, src...)...)
	var got jsonSummary
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if got.Metric != "DNI" || got.Best != "Togo" || len(got.Ranking) != 2 {
		t.Fatalf("summary = %+v", got)
	}
	if got.Ranking[0].Count != 1 || *got.Ranking[0].Mean != 140 {
		t.Fatalf("togo DNI = %+v", got.Ranking[0])
	}
	if got.ANOVA == nil || got.Session == "" {
		t.Fatalf("missing anova or session: %+v", got)
	}
}

func TestCLI_EmptySelectionPlaceholder(t *testing.T) {
	_, src := setupHome(t)
	out := runCmd(t, append([]string{"summary", "--countries", ""}, src...)...)
	if !strings.Contains(out, "Please select at least one country") {
		t.Fatalf("expected placeholder, got:\n%s", out)
	}
}

func TestCLI_AnovaSingleCountry(t *testing.T) {
	_, src := setupHome(t)
	out := runCmd(t, append([]string{"anova", "--countries", "Benin"}, src...)...)
	if !strings.Contains(out, "insufficient data") {
		t.Fatalf("expected insufficient data, got:\n%s", out)
	}
}

func TestCLI_RankWithWorkbook(t *testing.T) {
	home, src := setupHome(t)
	xlsx := filepath.Join(home, "rank.xlsx")
	out := runCmd(t, append([]string{"rank", "--xlsx", xlsx}, src...)...)
	lines := strings.Split(out, "\n")
	if len(lines) < 4 || !strings.HasPrefix(lines[1], "Benin") || !strings.HasPrefix(lines[3], "Sierra Leone") {
		t.Fatalf("rank output:\n%s", out)
	}
	if !strings.Contains(lines[2], "120.0*") {
		t.Fatalf("expected Togo to lead DHI:\n%s", out)
	}
	f, err := excelize.OpenFile(xlsx)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("Ranking", "B2"); v != "Benin" {
		t.Fatalf("Ranking!B2 = %q", v)
	}
}

func TestCLI_ChartsAndExport(t *testing.T) {
	home, src := setupHome(t)
	dir := filepath.Join(home, "charts")
	out := runCmd(t, append([]string{"charts", "--out-dir", dir}, src...)...)
	for _, name := range []string{"summary.png", "distribution.png", "ghi-vs-tamb.png", "wind-rose.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing chart %s: %v\n%s", name, err, out)
		}
	}
	if !strings.Contains(out, "column not found: RH") || !strings.Contains(out, "column not found: Cleaning, ModA, ModB") {
		t.Fatalf("expected placeholders for missing columns:\n%s", out)
	}

	xlsx := filepath.Join(home, "out", "dash.xlsx")
	html := filepath.Join(home, "out", "dash.html")
	runCmd(t, append([]string{"export", "--xlsx", xlsx, "--html", html}, src...)...)
	b, err := os.ReadFile(html)
	if err != nil {
		t.Fatalf("read html: %v", err)
	}
	if !strings.Contains(string(b), "<title>Solar dashboard: GHI</title>") {
		t.Fatalf("html report missing title")
	}
	if _, err := os.Stat(xlsx); err != nil {
		t.Fatalf("workbook: %v", err)
	}
}

func TestCLI_LoadPolicy(t *testing.T) {
	home, src := setupHome(t)
	missing := "Niger=" + filepath.Join(home, "niger.csv")
	args := append([]string{"summary"}, src...)
	args = append(args, "--source", missing)
	if _, err := execCmd(t, "", args...); err == nil || !strings.Contains(err.Error(), "niger.csv") {
		t.Fatalf("all-or-nothing should fail on the missing file, got %v", err)
	}
	out := runCmd(t, append(args, "--policy", "partial")...)
	if !strings.Contains(out, "could not load Niger") || !strings.Contains(out, "Best: Benin") {
		t.Fatalf("partial load output:\n%s", out)
	}
}

func TestCLI_ConfigSourcesAndShow(t *testing.T) {
	home, _ := setupHome(t)
	spec := "Togo=" + filepath.Join(home, "togo.csv") + ",Benin=" + filepath.Join(home, "benin.csv")
	runCmd(t, "config", "set", "sources", spec)
	runCmd(t, "config", "set", "alpha", "0.01")
	if _, err := execCmd(t, "", "config", "set", "alpha", "2"); err == nil {
		t.Fatalf("expected invalid alpha error")
	}
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "  - Togo: ") || !strings.Contains(out, "alpha: 0.010") {
		t.Fatalf("config show:\n%s", out)
	}
	out = runCmd(t, "summary")
	if !strings.Contains(out, "GHI by country (Togo, Benin)") || !strings.Contains(out, "alpha 0.01") {
		t.Fatalf("summary from config:\n%s", out)
	}
}

func TestCLI_Interactive(t *testing.T) {
	_, src := setupHome(t)
	script := strings.Join([]string{
		"show",
		"load",
		"metric Tamb",
		"show",
		"countries",
		"show",
		"countries all",
		"views",
		"bogus",
		"quit",
	}, "\n")
	out, err := execCmd(t, script, append([]string{"interactive"}, src...)...)
	if err != nil {
		t.Fatalf("interactive: %v\n%s", err, out)
	}
	for _, want := range []string{
		"loaded 6 rows from Benin, Togo, Sierra Leone",
		"sources unchanged, using cached table (6 rows)",
		"Tamb by country",
		"Please select at least one country",
		"✓ wind-rose",
		"⚠ cleaning-impact",
		`unknown command "bogus"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("interactive output missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_MetricMustBeConfigured(t *testing.T) {
	_, src := setupHome(t)
	_, err := execCmd(t, "", append([]string{"summary", "--metric", "WS"}, src...)...)
	if err == nil || !strings.Contains(err.Error(), `metric "WS" is not offered`) {
		t.Fatalf("expected unsupported metric error, got %v", err)
	}
	out := runCmd(t, append([]string{"summary", "--metric", "tamb"}, src...)...)
	if !strings.Contains(out, "Tamb by country") {
		t.Fatalf("metric should match case-insensitively:\n%s", out)
	}

	runCmd(t, "config", "set", "metrics", "GHI,DNI")
	if _, err := execCmd(t, "", append([]string{"anova", "--metric", "DHI"}, src...)...); err == nil {
		t.Fatalf("DHI was removed from metrics and should be rejected")
	}
	if _, err := execCmd(t, "", "config", "set", "metrics", "DNI"); err == nil {
		t.Fatalf("metrics without the default metric should be rejected")
	}

	out, err = execCmd(t, "metric DHI\nmetric\nquit\n", append([]string{"interactive"}, src...)...)
	if err != nil {
		t.Fatalf("interactive: %v", err)
	}
	if !strings.Contains(out, `⚠ metric: metric "DHI" is not offered (choose GHI, DNI)`) ||
		!strings.Contains(out, "metric: GHI (choices: GHI, DNI)") {
		t.Fatalf("interactive metric output:\n%s", out)
	}
}

func TestCLI_InteractiveWithoutTable(t *testing.T) {
	home, src := setupHome(t)
	bad := filepath.Join(home, "niger.csv")
	if err := os.WriteFile(bad, []byte("GHI\n1,2,3\n"), 0o644); err != nil {
		t.Fatalf("write niger.csv: %v", err)
	}
	args := append([]string{"interactive"}, src...)
	args = append(args, "--source", "Niger="+bad)
	out, err := execCmd(t, "show\nrank\nquit\n", args...)
	if err != nil {
		t.Fatalf("interactive: %v\n%s", err, out)
	}
	if got := strings.Count(out, "⚠ could not load Niger"); got != 3 {
		t.Fatalf("load failure should be reported on start and on each command, got %d:\n%s", got, out)
	}
	for _, want := range []string{
		"⚠ summary: no table yet (could not load Niger)",
		"⚠ ranking: no table yet (could not load Niger)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Please select at least one country") {
		t.Fatalf("a failed load must not look like an empty selection:\n%s", out)
	}
}
