package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/solardash-cli/internal/dataset"
)

// NoData is printed in place of an undefined statistic.
const NoData = "no data"

// Report bundles evaluated views for rendering as a standalone document.
type Report struct {
	Title     string
	SessionID string
	Selection Selection
	Sources   []dataset.SourceInfo
	Outcomes  []Outcome
}

// Markdown renders the report. Views that failed recoverably become a
// placeholder line instead of being dropped.
func (r *Report) Markdown() string {
	var b strings.Builder
	title := r.Title
	if title == "" {
		title = "Solar dashboard"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if r.SessionID != "" {
		fmt.Fprintf(&b, "Session: `%s`\n\n", r.SessionID)
	}
	if len(r.Sources) > 0 {
		b.WriteString("## Sources\n\n")
		for _, s := range r.Sources {
			fmt.Fprintf(&b, "- %s: %s (%d rows)\n", s.Country, safeCell(s.Name), s.Rows)
		}
		b.WriteString("\n")
	}
	for _, o := range r.Outcomes {
		fmt.Fprintf(&b, "## %s\n\n", o.View.Title)
		if o.Err != nil {
			fmt.Fprintf(&b, "_%s_\n\n", Placeholder(o.Err))
			continue
		}
		b.WriteString(outcomeMarkdown(o))
		b.WriteString("\n")
	}
	return b.String()
}

func outcomeMarkdown(o Outcome) string {
	switch d := o.Data.(type) {
	case *Result:
		return d.Markdown()
	case *ANOVAResult:
		return d.Markdown()
	case *Ranking:
		return d.Markdown()
	case []Distribution:
		return distributionsMarkdown(d)
	case *Scatter:
		return d.Markdown()
	case *WindRose:
		return d.Markdown()
	case *CleaningImpact:
		return d.Markdown()
	}
	return fmt.Sprintf("_%s: nothing to render_\n", o.View.ID)
}

// Markdown renders the per-country cards, ranking and test verdict.
func (r *Result) Markdown() string {
	var b strings.Builder
	unit := ""
	if r.Unit != "" {
		unit = " " + r.Unit
	}
	if r.Best != nil {
		fmt.Fprintf(&b, "**Best %s:** %s (%s%s)\n\n", r.Metric, r.Best.Country, num(r.Best.Mean), unit)
	} else {
		fmt.Fprintf(&b, "**Best %s:** %s\n\n", r.Metric, NoData)
	}
	fmt.Fprintf(&b, "Overall mean: %s%s\n\n", num(r.Overall), unit)
	b.WriteString("| Rank | Country | n | Mean | Std | Min | Max |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
	for i, c := range r.Ranking {
		fmt.Fprintf(&b, "| %d | %s | %d | %s | %s | %s | %s |\n",
			i+1, safeCell(c.Country), c.Count, num(c.Mean), num(c.Std), num(c.Min), num(c.Max))
	}
	b.WriteString("\n")
	if r.ANOVA != nil {
		b.WriteString(r.ANOVA.Markdown())
	} else if r.ANOVAErr != nil {
		fmt.Fprintf(&b, "ANOVA: _%s_\n", Placeholder(r.ANOVAErr))
	}
	return b.String()
}

// Markdown renders the F statistic, p-value and verdict.
func (a *ANOVAResult) Markdown() string {
	if a == nil {
		return "ANOVA: _insufficient data_\n"
	}
	return fmt.Sprintf("ANOVA on %s across %s: F(%d, %d) = %s, p = %s -> **%s** (alpha %.2f)\n",
		a.Metric, strings.Join(a.Groups, ", "), a.DFBetween, a.DFWithin, num(a.F), pval(a.P), a.Verdict(), a.Alpha)
}

// Markdown renders the ranking table, starring each metric's leader.
func (rk *Ranking) Markdown() string {
	var b strings.Builder
	b.WriteString("| Country |")
	for _, m := range rk.Metrics {
		fmt.Fprintf(&b, " %s |", m)
	}
	b.WriteString("\n|" + strings.Repeat(" --- |", len(rk.Metrics)+1) + "\n")
	for _, row := range rk.Rows {
		fmt.Fprintf(&b, "| %s |", safeCell(row.Country))
		for j, m := range rk.Metrics {
			cell := num1(row.Means[j])
			if rk.Leaders[m] == row.Country {
				cell = "**" + cell + "**"
			}
			fmt.Fprintf(&b, " %s |", cell)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func distributionsMarkdown(ds []Distribution) string {
	var b strings.Builder
	b.WriteString("| Country | n | Min | Q1 | Median | Q3 | Max | Outliers |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- |\n")
	for _, d := range ds {
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s | %s | %d |\n",
			safeCell(d.Country), d.Count, num(d.Min), num(d.Q1), num(d.Median), num(d.Q3), num(d.Max), d.Outliers)
	}
	return b.String()
}

// Markdown lists point counts per country; the points themselves go to charts.
func (s *Scatter) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s against %s:\n\n", s.Y, s.X)
	for _, ser := range s.Series {
		fmt.Fprintf(&b, "- %s: %d points\n", ser.Country, len(ser.Points))
	}
	return b.String()
}

// Markdown renders sector counts with mean speed.
func (w *WindRose) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d observations from %s\n\n", w.Total, strings.Join(w.Countries, ", "))
	b.WriteString("| Sector | Count | Mean WS |\n| --- | --- | --- |\n")
	for i, s := range WindSectors {
		if w.Counts[i] == 0 {
			continue
		}
		fmt.Fprintf(&b, "| %s | %d | %s |\n", s, w.Counts[i], num(w.MeanSpeed[i]))
	}
	return b.String()
}

// Markdown renders mean module irradiance by cleaning flag.
func (c *CleaningImpact) Markdown() string {
	var b strings.Builder
	b.WriteString("| Cleaning | Rows | ModA | ModB |\n| --- | --- | --- | --- |\n")
	for g, grp := range c.Groups {
		fmt.Fprintf(&b, "| %d | %d | %s | %s |\n", g, grp.Rows, num(grp.MeanModA), num(grp.MeanModB))
	}
	return b.String()
}

func num(x float64) string {
	switch {
	case math.IsNaN(x):
		return NoData
	case math.IsInf(x, 1):
		return "+Inf"
	}
	return fmt.Sprintf("%.2f", x)
}

func num1(x float64) string {
	if math.IsNaN(x) {
		return NoData
	}
	return fmt.Sprintf("%.1f", x)
}

func pval(p float64) string {
	if p < 1e-4 {
		return fmt.Sprintf("%.2e", p)
	}
	return fmt.Sprintf("%.4f", p)
}

func safeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
