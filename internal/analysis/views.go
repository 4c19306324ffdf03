package analysis

import (
	"github.com/KaramelBytes/solardash-cli/internal/dataset"
)

// RenderHint tells the presentation layer how to draw a view's data.
type RenderHint string

const (
	HintCards    RenderHint = "cards"
	HintBox      RenderHint = "box"
	HintText     RenderHint = "text"
	HintTable    RenderHint = "table"
	HintScatter  RenderHint = "scatter"
	HintWindRose RenderHint = "windrose"
	HintBar      RenderHint = "bar"
)

// View is one entry of the dashboard catalogue. Compute is only called once
// every Required field is present.
type View struct {
	ID       string
	Title    string
	Required []string
	Hint     RenderHint
	// Selective views honour the country selection; the others use the full table.
	Selective bool
	Compute   func(t *dataset.Table, sel Selection, opt Options) (any, error)
}

// Outcome is a view evaluated against a table: Data, or a recoverable Err for a
// placeholder. Data is nil whenever Err is set.
type Outcome struct {
	View View
	Data any
	Err  error
}

// Catalogue lists every view for the selected metric, in display order.
func Catalogue(metric string) []View {
	if metric == "" {
		metric = DefaultMetric
	}
	return []View{
		{
			ID: "summary", Title: metric + " summary", Required: []string{metric}, Hint: HintCards, Selective: true,
			Compute: func(t *dataset.Table, sel Selection, opt Options) (any, error) { return Aggregate(t, sel, opt) },
		},
		{
			ID: "distribution", Title: metric + " distribution by country", Required: []string{metric}, Hint: HintBox, Selective: true,
			Compute: func(t *dataset.Table, sel Selection, _ Options) (any, error) { return Distributions(t, sel) },
		},
		{
			ID: "anova", Title: metric + " ANOVA across countries", Required: []string{metric}, Hint: HintText, Selective: true,
			Compute: func(t *dataset.Table, sel Selection, opt Options) (any, error) { return SignificanceTest(t, sel, opt) },
		},
		{
			ID: "ranking", Title: "Country rankings", Required: RankingMetrics, Hint: HintTable,
			Compute: func(t *dataset.Table, _ Selection, _ Options) (any, error) { return RankCountries(t) },
		},
		{
			ID: "ghi-vs-tamb", Title: "GHI vs ambient temperature", Required: []string{"GHI", "Tamb"}, Hint: HintScatter, Selective: true,
			Compute: func(t *dataset.Table, sel Selection, opt Options) (any, error) {
				return ScatterOf(t, sel, "Tamb", "GHI", opt.ScatterMaxPoints)
			},
		},
		{
			ID: "rh-vs-tamb", Title: "Relative humidity vs ambient temperature", Required: []string{"RH", "Tamb"}, Hint: HintScatter, Selective: true,
			Compute: func(t *dataset.Table, sel Selection, opt Options) (any, error) {
				return ScatterOf(t, sel, "RH", "Tamb", opt.ScatterMaxPoints)
			},
		},
		{
			ID: "wind-rose", Title: "Wind rose", Required: []string{"WS", "WD"}, Hint: HintWindRose, Selective: true,
			Compute: func(t *dataset.Table, sel Selection, _ Options) (any, error) { return WindRoseOf(t, sel) },
		},
		{
			ID: "cleaning-impact", Title: "Cleaning impact on module irradiance", Required: []string{"Cleaning", "ModA", "ModB"}, Hint: HintBar, Selective: true,
			Compute: func(t *dataset.Table, sel Selection, _ Options) (any, error) { return CleaningImpactOf(t, sel) },
		},
	}
}

// Evaluate runs every view against t. A view whose fields are missing yields a
// MissingColumnError outcome without calling Compute.
func Evaluate(t *dataset.Table, sel Selection, views []View, opt Options) []Outcome {
	out := make([]Outcome, 0, len(views))
	for _, v := range views {
		if missing := dataset.MissingFields(t, v.Required...); len(missing) > 0 {
			out = append(out, Outcome{View: v, Err: &MissingColumnError{View: v.ID, Fields: missing}})
			continue
		}
		data, err := v.Compute(t, sel, opt)
		if err != nil {
			data = nil
		}
		out = append(out, Outcome{View: v, Data: data, Err: err})
	}
	return out
}

// Availability is the set of capability flags the presentation layer uses to
// decide which charts to offer.
type Availability struct {
	Metric   bool
	Wind     bool
	Cleaning bool
	Ranking  bool
	Views    map[string]bool
}

// Available reports what can be drawn from t for metric.
func Available(t *dataset.Table, metric string) Availability {
	if metric == "" {
		metric = DefaultMetric
	}
	a := Availability{
		Metric:   dataset.HasField(t, metric),
		Wind:     dataset.HasFields(t, "WS", "WD"),
		Cleaning: dataset.HasFields(t, "Cleaning", "ModA", "ModB"),
		Ranking:  dataset.HasFields(t, RankingMetrics...),
		Views:    map[string]bool{},
	}
	for _, v := range Catalogue(metric) {
		a.Views[v.ID] = dataset.HasFields(t, v.Required...)
	}
	return a
}
