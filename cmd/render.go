package cmd

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"

	"github.com/KaramelBytes/solardash-cli/internal/analysis"
)

func fmtNum(x float64) string {
	switch {
	case math.IsNaN(x):
		return analysis.NoData
	case math.IsInf(x, 1):
		return "+Inf"
	}
	return fmt.Sprintf("%.2f", x)
}

func printSummary(w io.Writer, r *analysis.Result) {
	unit := ""
	if r.Unit != "" {
		unit = " " + r.Unit
	}
	fmt.Fprintf(w, "%s by country (%s)\n", r.Metric, strings.Join(countryNames(r.Countries), ", "))
	for i, c := range r.Ranking {
		if c.NoData {
			fmt.Fprintf(w, "  %d. %-14s %s\n", i+1, c.Country, analysis.NoData)
			continue
		}
		fmt.Fprintf(w, "  %d. %-14s mean %s%s  std %s  min %s  max %s  (n=%d)\n",
			i+1, c.Country, fmtNum(c.Mean), unit, fmtNum(c.Std), fmtNum(c.Min), fmtNum(c.Max), c.Count)
	}
	if r.Best != nil {
		fmt.Fprintf(w, "Best: %s (%s%s)\n", color.GreenString(r.Best.Country), fmtNum(r.Best.Mean), unit)
	} else {
		fmt.Fprintf(w, "Best: %s\n", analysis.NoData)
	}
	fmt.Fprintf(w, "Overall mean: %s%s\n", fmtNum(r.Overall), unit)
	if r.ANOVA != nil {
		printANOVA(w, r.ANOVA)
	} else {
		placeholder(w, "ANOVA", r.ANOVAErr)
	}
}

func printANOVA(w io.Writer, a *analysis.ANOVAResult) {
	verdict := a.Verdict()
	if a.Significant {
		verdict = color.GreenString(verdict)
	}
	fmt.Fprintf(w, "ANOVA %s: F(%d, %d) = %s, p = %.4g -> %s (alpha %.2f)\n",
		a.Metric, a.DFBetween, a.DFWithin, fmtNum(a.F), a.P, verdict, a.Alpha)
}

func printRanking(w io.Writer, rk *analysis.Ranking) {
	fmt.Fprintf(w, "%-16s", "Country")
	for _, m := range rk.Metrics {
		fmt.Fprintf(w, "%10s", m)
	}
	fmt.Fprintln(w)
	for _, row := range rk.Rows {
		fmt.Fprintf(w, "%-16s", row.Country)
		for j, m := range rk.Metrics {
			cell := analysis.NoData
			if !math.IsNaN(row.Means[j]) {
				cell = fmt.Sprintf("%.1f", row.Means[j])
			}
			if rk.Leaders[m] == row.Country {
				cell += "*"
			}
			fmt.Fprintf(w, "%10s", cell)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "* highest mean for the metric")
}

func countryNames(cs []analysis.CountryStats) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Country
	}
	return out
}

// JSON forms: undefined statistics become null.

type jsonStats struct {
	Country string   `json:"country"`
	Count   int      `json:"count"`
	Mean    *float64 `json:"mean"`
	Std     *float64 `json:"std"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
}

type jsonANOVA struct {
	F           *float64 `json:"f"`
	P           float64  `json:"p"`
	DFBetween   int      `json:"df_between"`
	DFWithin    int      `json:"df_within"`
	Alpha       float64  `json:"alpha"`
	Significant bool     `json:"significant"`
	Verdict     string   `json:"verdict"`
}

type jsonSummary struct {
	Session string      `json:"session"`
	Metric  string      `json:"metric"`
	Unit    string      `json:"unit,omitempty"`
	Ranking []jsonStats `json:"ranking"`
	Best    string      `json:"best,omitempty"`
	Overall *float64    `json:"overall_mean"`
	ANOVA   *jsonANOVA  `json:"anova,omitempty"`
	Notes   []string    `json:"notes,omitempty"`
}

func finite(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

func toJSON(session string, r *analysis.Result) jsonSummary {
	out := jsonSummary{Session: session, Metric: r.Metric, Unit: r.Unit, Overall: finite(r.Overall)}
	for _, c := range r.Ranking {
		out.Ranking = append(out.Ranking, jsonStats{
			Country: c.Country, Count: c.Count,
			Mean: finite(c.Mean), Std: finite(c.Std), Min: finite(c.Min), Max: finite(c.Max),
		})
	}
	if r.Best != nil {
		out.Best = r.Best.Country
	}
	if a := r.ANOVA; a != nil {
		out.ANOVA = &jsonANOVA{F: finite(a.F), P: a.P, DFBetween: a.DFBetween, DFWithin: a.DFWithin, Alpha: a.Alpha, Significant: a.Significant, Verdict: a.Verdict()}
	} else if r.ANOVAErr != nil {
		out.Notes = append(out.Notes, "ANOVA: "+analysis.Placeholder(r.ANOVAErr))
	}
	return out
}
