package analysis

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/solardash-cli/internal/dataset"
)

// Distribution is one country's five-number summary of a metric, with the raw
// values kept for box-plot rendering.
type Distribution struct {
	Country  string
	Count    int
	Min      float64
	Q1       float64
	Median   float64
	Q3       float64
	Max      float64
	Outliers int // beyond 1.5 IQR from the quartiles
	Values   []float64
}

// Distributions summarizes sel.Metric per selected country.
func Distributions(t *dataset.Table, sel Selection) ([]Distribution, error) {
	countries, metric, err := checkSelection(t, sel, "distribution", sel.Metric)
	if err != nil {
		return nil, err
	}
	groups := groupValues(t, metric, countries)
	out := make([]Distribution, 0, len(countries))
	for _, c := range countries {
		out = append(out, fiveNumber(c, groups[c]))
	}
	return out, nil
}

func fiveNumber(country string, vals []float64) Distribution {
	d := Distribution{Country: country, Count: len(vals), Values: vals}
	nan := math.NaN()
	d.Min, d.Q1, d.Median, d.Q3, d.Max = nan, nan, nan, nan, nan
	if len(vals) == 0 {
		return d
	}
	d.Min, _ = stats.Min(vals)
	d.Max, _ = stats.Max(vals)
	d.Median, _ = stats.Median(vals)
	// Percentile has no rank below the first value for tiny samples.
	var err error
	if d.Q1, err = stats.Percentile(vals, 25); err != nil {
		d.Q1 = d.Min
	}
	if d.Q3, err = stats.Percentile(vals, 75); err != nil {
		d.Q3 = d.Max
	}
	iqr := d.Q3 - d.Q1
	lo, hi := d.Q1-1.5*iqr, d.Q3+1.5*iqr
	for _, x := range vals {
		if x < lo || x > hi {
			d.Outliers++
		}
	}
	return d
}

// XY is one scatter point.
type XY struct{ X, Y float64 }

// ScatterSeries holds one country's points.
type ScatterSeries struct {
	Country string
	Points  []XY
}

// Scatter pairs two fields per selected country.
type Scatter struct {
	X, Y   string
	Series []ScatterSeries
}

// ScatterOf collects (x, y) pairs where both fields are present, evenly thinned
// to at most maxPoints per country when maxPoints > 0.
func ScatterOf(t *dataset.Table, sel Selection, x, y string, maxPoints int) (*Scatter, error) {
	countries, _, err := checkSelection(t, sel, "scatter "+y+" vs "+x, x, y)
	if err != nil {
		return nil, err
	}
	byCountry := map[string][]XY{}
	for _, r := range t.Rows() {
		xv, okx := r.Float(x)
		yv, oky := r.Float(y)
		if okx && oky {
			byCountry[r.Country()] = append(byCountry[r.Country()], XY{xv, yv})
		}
	}
	sc := &Scatter{X: x, Y: y}
	for _, c := range countries {
		sc.Series = append(sc.Series, ScatterSeries{Country: c, Points: thin(byCountry[c], maxPoints)})
	}
	return sc, nil
}

func thin(pts []XY, max int) []XY {
	if max <= 0 || len(pts) <= max {
		return pts
	}
	out := make([]XY, 0, max)
	step := float64(len(pts)) / float64(max)
	for i := 0; i < max; i++ {
		out = append(out, pts[int(float64(i)*step)])
	}
	return out
}

// WindSectors are the 16 compass sectors of a wind rose, clockwise from north.
var WindSectors = []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}

// WindRose counts observations per direction sector with their mean speed.
type WindRose struct {
	Countries []string
	Counts    []int
	MeanSpeed []float64
	Total     int
}

// WindRoseOf bins WD into 16 sectors for the selected countries. Rows need both WS and WD.
func WindRoseOf(t *dataset.Table, sel Selection) (*WindRose, error) {
	countries, _, err := checkSelection(t, sel, "wind rose", "WS", "WD")
	if err != nil {
		return nil, err
	}
	include := map[string]bool{}
	for _, c := range countries {
		include[c] = true
	}
	n := len(WindSectors)
	wr := &WindRose{Countries: countries, Counts: make([]int, n), MeanSpeed: make([]float64, n)}
	sums := make([]float64, n)
	for _, r := range t.Rows() {
		if !include[r.Country()] {
			continue
		}
		ws, ok1 := r.Float("WS")
		wd, ok2 := r.Float("WD")
		if !ok1 || !ok2 {
			continue
		}
		i := sectorOf(wd, n)
		wr.Counts[i]++
		sums[i] += ws
		wr.Total++
	}
	for i := range sums {
		wr.MeanSpeed[i] = math.NaN()
		if wr.Counts[i] > 0 {
			wr.MeanSpeed[i] = sums[i] / float64(wr.Counts[i])
		}
	}
	if wr.Total == 0 {
		return wr, &InsufficientDataError{Test: "wind rose", Reason: "no rows with both WS and WD"}
	}
	return wr, nil
}

func sectorOf(deg float64, n int) int {
	width := 360.0 / float64(n)
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return int(math.Mod(d+width/2, 360) / width)
}

// CleaningImpact compares module irradiance with and without a cleaning event.
type CleaningImpact struct {
	Countries []string
	// Groups is indexed by cleaning flag: 0 not cleaned, 1 cleaned.
	Groups [2]CleaningGroup
}

// CleaningGroup holds mean ModA/ModB for one value of the cleaning flag.
type CleaningGroup struct {
	Rows     int
	MeanModA float64
	MeanModB float64
}

// CleaningImpactOf averages ModA and ModB by the Cleaning flag over the selected countries.
func CleaningImpactOf(t *dataset.Table, sel Selection) (*CleaningImpact, error) {
	countries, _, err := checkSelection(t, sel, "cleaning impact", "Cleaning", "ModA", "ModB")
	if err != nil {
		return nil, err
	}
	include := map[string]bool{}
	for _, c := range countries {
		include[c] = true
	}
	var a, b [2][]float64
	var rows [2]int
	for _, r := range t.Rows() {
		if !include[r.Country()] {
			continue
		}
		flag, ok := r.Float("Cleaning")
		if !ok {
			continue
		}
		g := 0
		if flag != 0 {
			g = 1
		}
		rows[g]++
		if x, ok := r.Float("ModA"); ok {
			a[g] = append(a[g], x)
		}
		if x, ok := r.Float("ModB"); ok {
			b[g] = append(b[g], x)
		}
	}
	ci := &CleaningImpact{Countries: countries}
	for g := range ci.Groups {
		ci.Groups[g] = CleaningGroup{Rows: rows[g], MeanModA: mean(a[g]), MeanModB: mean(b[g])}
	}
	if rows[0]+rows[1] == 0 {
		return ci, &InsufficientDataError{Test: "cleaning impact", Reason: "no rows with a cleaning flag"}
	}
	return ci, nil
}

// checkSelection applies the shared preconditions of selection-driven views:
// a non-empty country subset and presence of every required field.
func checkSelection(t *dataset.Table, sel Selection, view string, fields ...string) ([]string, string, error) {
	countries := resolveCountries(t, sel.Countries)
	if len(countries) == 0 {
		return nil, "", &EmptySelectionError{}
	}
	metric := sel.Metric
	if metric == "" {
		metric = DefaultMetric
	}
	for i, f := range fields {
		if f == "" {
			fields[i] = metric
		}
	}
	if missing := dataset.MissingFields(t, fields...); len(missing) > 0 {
		return nil, "", &MissingColumnError{View: view, Fields: missing}
	}
	return countries, metric, nil
}
