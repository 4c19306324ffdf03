package analysis

import (
	"math"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/solardash-cli/internal/dataset"
)

// DefaultMetric is the metric used when none is selected.
const DefaultMetric = "GHI"

// DefaultAlpha is the significance threshold for the ANOVA verdict.
const DefaultAlpha = 0.05

// Selection is the user's current metric and country subset.
type Selection struct {
	Metric    string
	Countries []string
}

// Options controls aggregation behaviour.
type Options struct {
	// Alpha is the significance level; p < Alpha is reported as significant.
	Alpha float64
	// ScatterMaxPoints caps points per country in scatter views; 0 means unlimited.
	ScatterMaxPoints int
}

// DefaultOptions returns the reference aggregation settings.
func DefaultOptions() Options {
	return Options{Alpha: DefaultAlpha, ScatterMaxPoints: 2000}
}

func (o Options) alpha() float64 {
	if o.Alpha <= 0 || o.Alpha >= 1 {
		return DefaultAlpha
	}
	return o.Alpha
}

// CountryStats summarizes one country's values for a metric. A country with no
// valid values has NoData set and NaN statistics.
type CountryStats struct {
	Country string
	Count   int
	Mean    float64
	Std     float64
	Min     float64
	Max     float64
	NoData  bool
}

// Result is the derived, read-only view for one metric and country selection.
type Result struct {
	Metric string
	Unit   string
	// Countries is in enumeration order.
	Countries []CountryStats
	// Ranking is Countries sorted by descending mean, ties in enumeration order, no-data last.
	Ranking []CountryStats
	// Best is the top of Ranking, nil when every mean is undefined.
	Best *CountryStats
	// Overall is the pooled mean of all selected values.
	Overall float64
	ANOVA   *ANOVAResult
	// ANOVAErr records why the test was skipped (an InsufficientDataError).
	ANOVAErr error
}

// Aggregate computes per-country statistics, ranking, best performer and the
// ANOVA test for sel.Metric over the rows of sel.Countries.
func Aggregate(t *dataset.Table, sel Selection, opt Options) (*Result, error) {
	countries := resolveCountries(t, sel.Countries)
	if len(countries) == 0 {
		return nil, &EmptySelectionError{}
	}
	metric := strings.TrimSpace(sel.Metric)
	if metric == "" {
		metric = DefaultMetric
	}
	if !dataset.HasField(t, metric) {
		return nil, &MissingColumnError{View: "aggregate", Fields: []string{metric}}
	}

	groups := groupValues(t, metric, countries)
	res := &Result{Metric: metric, Unit: t.Unit(metric)}
	var pooled []float64
	for _, c := range countries {
		vals := groups[c]
		res.Countries = append(res.Countries, describe(c, vals))
		pooled = append(pooled, vals...)
	}
	res.Overall = mean(pooled)
	res.Ranking = rank(res.Countries)
	if len(res.Ranking) > 0 && !res.Ranking[0].NoData {
		best := res.Ranking[0]
		res.Best = &best
	}

	var anovaGroups []Group
	for _, c := range countries {
		anovaGroups = append(anovaGroups, Group{Name: c, Values: groups[c]})
	}
	res.ANOVA, res.ANOVAErr = OneWayANOVA(anovaGroups, opt.alpha())
	if res.ANOVA != nil {
		res.ANOVA.Metric = metric
	}
	log.WithFields(log.Fields{"metric": metric, "countries": len(countries), "values": len(pooled)}).Debug("aggregated")
	return res, nil
}

// resolveCountries orders the selection by the table's enumeration order,
// appending selected names the table does not know, and drops duplicates.
func resolveCountries(t *dataset.Table, selected []string) []string {
	want := map[string]bool{}
	var order []string
	for _, c := range selected {
		c = strings.TrimSpace(c)
		if c == "" || want[c] {
			continue
		}
		want[c] = true
		order = append(order, c)
	}
	var out []string
	placed := map[string]bool{}
	for _, c := range t.Countries() {
		if want[c] {
			out = append(out, c)
			placed[c] = true
		}
	}
	for _, c := range order {
		if !placed[c] {
			out = append(out, c)
		}
	}
	return out
}

// groupValues collects non-null values of field for each country in one pass.
func groupValues(t *dataset.Table, field string, countries []string) map[string][]float64 {
	groups := make(map[string][]float64, len(countries))
	include := make(map[string]bool, len(countries))
	for _, c := range countries {
		include[c] = true
	}
	for _, r := range t.Rows() {
		c := r.Country()
		if !include[c] {
			continue
		}
		if x, ok := r.Float(field); ok {
			groups[c] = append(groups[c], x)
		}
	}
	return groups
}

func describe(country string, vals []float64) CountryStats {
	cs := CountryStats{Country: country, Count: len(vals), Mean: math.NaN(), Std: math.NaN(), Min: math.NaN(), Max: math.NaN()}
	if len(vals) == 0 {
		cs.NoData = true
		return cs
	}
	cs.Mean = mean(vals)
	cs.Min, _ = stats.Min(vals)
	cs.Max, _ = stats.Max(vals)
	if len(vals) > 1 {
		cs.Std, _ = stats.StandardDeviationSample(vals)
	}
	return cs
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	m, err := stats.Mean(vals)
	if err != nil {
		return math.NaN()
	}
	return m
}

func rank(in []CountryStats) []CountryStats {
	out := make([]CountryStats, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return descNaNLast(out[i].Mean, out[j].Mean)
	})
	return out
}

// descNaNLast orders a before b when a is larger; NaN sorts after every number.
func descNaNLast(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	default:
		return a > b
	}
}

// SignificanceTest runs the one-way ANOVA for sel on its own, with the same
// selection and column checks as Aggregate.
func SignificanceTest(t *dataset.Table, sel Selection, opt Options) (*ANOVAResult, error) {
	countries := resolveCountries(t, sel.Countries)
	if len(countries) == 0 {
		return nil, &EmptySelectionError{}
	}
	metric := strings.TrimSpace(sel.Metric)
	if metric == "" {
		metric = DefaultMetric
	}
	if !dataset.HasField(t, metric) {
		return nil, &MissingColumnError{View: "anova", Fields: []string{metric}}
	}
	groups := groupValues(t, metric, countries)
	in := make([]Group, 0, len(countries))
	for _, c := range countries {
		in = append(in, Group{Name: c, Values: groups[c]})
	}
	res, err := OneWayANOVA(in, opt.alpha())
	if err != nil {
		return nil, err
	}
	res.Metric = metric
	return res, nil
}
