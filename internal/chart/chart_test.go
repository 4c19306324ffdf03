package chart

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/plot/plotter"

	"github.com/KaramelBytes/solardash-cli/internal/analysis"
	"github.com/KaramelBytes/solardash-cli/internal/dataset"
)

func init() {
	log.SetHandler(discard.Default)
}

const header = "Timestamp,GHI,DNI,DHI,Tamb,RH,WS,WD,ModA,ModB,Cleaning\n"

func fullTable(t *testing.T) *dataset.Table {
	t.Helper()
	benin := header +
		"t1,200,150,80,28,70,2.1,10,190,185,0\n" +
		"t2,250,170,90,29,65,3.4,95,240,230,1\n" +
		"t3,300,190,85,30,60,1.2,200,280,270,0\n"
	togo := header +
		"t1,180,120,70,27,75,4.0,350,170,160,0\n" +
		"t2,NA,110,72,26,80,2.2,45,NA,150,1\n"
	tbl, err := dataset.Load([]dataset.Source{
		{Country: "Benin", Name: "benin.csv", Data: []byte(benin)},
		{Country: "Togo", Name: "togo.csv", Data: []byte(togo)},
	}, dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tbl
}

func TestRenderWritesPNGPerDrawableView(t *testing.T) {
	tbl := fullTable(t)
	sel := analysis.Selection{Metric: "GHI", Countries: tbl.Countries()}
	outcomes := analysis.Evaluate(tbl, sel, analysis.Catalogue("GHI"), analysis.DefaultOptions())
	dir := filepath.Join(t.TempDir(), "charts")
	paths, err := Render(outcomes, dir, Options{WidthIn: 4, HeightIn: 3})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
		b, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if !bytes.HasPrefix(b, []byte("\x89PNG")) {
			t.Fatalf("%s is not a PNG", p)
		}
	}
	want := []string{"summary.png", "distribution.png", "ghi-vs-tamb.png", "rh-vs-tamb.png", "wind-rose.png", "cleaning-impact.png"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("charts (-want +got):\n%s", diff)
	}
}

func TestRenderSkipsPlaceholders(t *testing.T) {
	tbl := fullTable(t)
	outcomes := analysis.Evaluate(tbl, analysis.Selection{Metric: "GHI"}, analysis.Catalogue("GHI"), analysis.DefaultOptions())
	paths, err := Render(outcomes, t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// Only the ranking ignores the empty selection, and it has no chart form.
	if len(paths) != 0 {
		t.Fatalf("paths = %v, want none", paths)
	}
}

func TestPlotNotDrawable(t *testing.T) {
	_, err := Plot(analysis.Outcome{Data: &analysis.Ranking{}})
	if !errors.Is(err, ErrNotDrawable) {
		t.Fatalf("want ErrNotDrawable, got %v", err)
	}
}

func TestNoDataMeansAreLabelledNotZero(t *testing.T) {
	res := &analysis.Result{
		Metric: "GHI",
		Ranking: []analysis.CountryStats{
			{Country: "Benin", Count: 2, Mean: 250},
			{Country: "Sierra Leone", Count: 3, Mean: 190},
			{Country: "Togo", Mean: math.NaN(), NoData: true},
		},
	}
	means, missing := meanPoints(res)
	if diff := cmp.Diff(plotter.XYs{{X: 0, Y: 250}, {X: 1, Y: 190}}, means); diff != "" {
		t.Fatalf("bars (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(plotter.XYs{{X: 2}}, missing.XYs); diff != "" {
		t.Fatalf("no-data slots (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"no data"}, missing.Labels); diff != "" {
		t.Fatalf("labels (-want +got):\n%s", diff)
	}

	outcomes := []analysis.Outcome{
		{View: analysis.View{ID: "summary", Title: "Summary"}, Data: res},
		{View: analysis.View{ID: "cleaning-impact", Title: "Cleaning"}, Data: &analysis.CleaningImpact{
			Groups: [2]analysis.CleaningGroup{
				{Rows: 2, MeanModA: 190, MeanModB: 185},
				{Rows: 1, MeanModA: math.NaN(), MeanModB: 150},
			},
		}},
	}
	paths, err := Render(outcomes, t.TempDir(), Options{WidthIn: 4, HeightIn: 3})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %v, want summary and cleaning-impact", paths)
	}
}

func TestCleaningPlotWithoutReadings(t *testing.T) {
	nan := math.NaN()
	_, err := Plot(analysis.Outcome{Data: &analysis.CleaningImpact{
		Groups: [2]analysis.CleaningGroup{{Rows: 1, MeanModA: nan, MeanModB: nan}, {MeanModA: nan, MeanModB: nan}},
	}})
	var id *analysis.InsufficientDataError
	if !errors.As(err, &id) {
		t.Fatalf("want InsufficientDataError, got %v", err)
	}
}
