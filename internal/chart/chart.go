// Package chart draws view outcomes as PNG files with gonum/plot.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/apex/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/solardash-cli/internal/analysis"
	"github.com/KaramelBytes/solardash-cli/internal/utils"
)

// ErrNotDrawable is returned by Plot for outcomes with no chart form, such as
// the ranking table or the ANOVA verdict.
var ErrNotDrawable = errors.New("view has no chart form")

// Options sets the image size in inches.
type Options struct {
	WidthIn  float64
	HeightIn float64
}

// DefaultOptions returns an 8x5 inch canvas.
func DefaultOptions() Options { return Options{WidthIn: 8, HeightIn: 5} }

func (o Options) size() (vg.Length, vg.Length) {
	w, h := o.WidthIn, o.HeightIn
	if w <= 0 {
		w = 8
	}
	if h <= 0 {
		h = 5
	}
	return vg.Length(w) * vg.Inch, vg.Length(h) * vg.Inch
}

// Render writes <dir>/<view-id>.png for every drawable outcome and returns the
// written paths in outcome order. Outcomes carrying an error or no chart form
// are skipped.
func Render(outcomes []analysis.Outcome, dir string, opt Options) ([]string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("charts dir: %w", err)
	}
	var paths []string
	for _, o := range outcomes {
		if o.Err != nil {
			log.WithFields(log.Fields{"view": o.View.ID, "reason": analysis.Placeholder(o.Err)}).Debug("chart skipped")
			continue
		}
		p, err := Plot(o)
		if errors.Is(err, ErrNotDrawable) {
			continue
		}
		if analysis.Recoverable(err) {
			log.WithFields(log.Fields{"view": o.View.ID, "reason": analysis.Placeholder(err)}).Debug("chart skipped")
			continue
		}
		if err != nil {
			return paths, fmt.Errorf("plot %s: %w", o.View.ID, err)
		}
		path := filepath.Join(dir, utils.SafeName(o.View.ID)+".png")
		if err := save(p, path, opt); err != nil {
			return paths, fmt.Errorf("save %s: %w", o.View.ID, err)
		}
		log.WithFields(log.Fields{"view": o.View.ID, "path": path}).Debug("chart written")
		paths = append(paths, path)
	}
	return paths, nil
}

func save(p *plot.Plot, path string, opt Options) error {
	w, h := opt.size()
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// Plot builds the chart for one successful outcome according to its render hint.
func Plot(o analysis.Outcome) (*plot.Plot, error) {
	switch d := o.Data.(type) {
	case *analysis.Result:
		return meansPlot(o.View.Title, d)
	case []analysis.Distribution:
		return boxPlot(o.View.Title, d)
	case *analysis.Scatter:
		return scatterPlot(o.View.Title, d)
	case *analysis.WindRose:
		return windRosePlot(o.View.Title, d)
	case *analysis.CleaningImpact:
		return cleaningPlot(o.View.Title, d)
	}
	return nil, ErrNotDrawable
}

func newPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Add(plotter.NewGrid())
	return p
}

// meansPlot draws the summary cards as one bar per country, in ranking order.
// A country without data keeps its slot on the axis and is labelled "no data"
// instead of getting a bar.
func meansPlot(title string, r *analysis.Result) (*plot.Plot, error) {
	ylabel := r.Metric
	if r.Unit != "" {
		ylabel += " (" + r.Unit + ")"
	}
	p := newPlot(title, "Country", "Mean "+ylabel)
	names := make([]string, len(r.Ranking))
	for i, c := range r.Ranking {
		names[i] = c.Country
	}
	means, missing := meanPoints(r)
	for _, pt := range means {
		bars, err := plotter.NewBarChart(plotter.Values{pt.Y}, vg.Points(30))
		if err != nil {
			return nil, err
		}
		bars.XMin = pt.X
		bars.Color = plotutil.Color(0)
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)
	}
	if err := addNoData(p, missing); err != nil {
		return nil, err
	}
	p.NominalX(names...)
	return p, nil
}

// meanPoints splits the ranking into drawable means and no-data markers, both
// placed at the country's position on the nominal axis.
func meanPoints(r *analysis.Result) (plotter.XYs, plotter.XYLabels) {
	var means plotter.XYs
	var missing plotter.XYLabels
	for i, c := range r.Ranking {
		if c.NoData || math.IsNaN(c.Mean) || math.IsInf(c.Mean, 0) {
			missing.XYs = append(missing.XYs, plotter.XY{X: float64(i)})
			missing.Labels = append(missing.Labels, analysis.NoData)
			continue
		}
		means = append(means, plotter.XY{X: float64(i), Y: c.Mean})
	}
	return means, missing
}

// addNoData writes each label at its point, centred on the slot.
func addNoData(p *plot.Plot, missing plotter.XYLabels) error {
	if len(missing.XYs) == 0 {
		return nil
	}
	lbl, err := plotter.NewLabels(missing)
	if err != nil {
		return err
	}
	for i := range lbl.TextStyle {
		lbl.TextStyle[i].XAlign = draw.XCenter
	}
	p.Add(lbl)
	return nil
}

func boxPlot(title string, ds []analysis.Distribution) (*plot.Plot, error) {
	p := newPlot(title, "Country", "")
	var names []string
	for _, d := range ds {
		if d.Count == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(30), float64(len(names)), plotter.Values(d.Values))
		if err != nil {
			return nil, err
		}
		box.FillColor = plotutil.Color(len(names))
		p.Add(box)
		names = append(names, d.Country)
	}
	if len(names) == 0 {
		return nil, &analysis.InsufficientDataError{Test: "box plot", Reason: "no values"}
	}
	p.NominalX(names...)
	return p, nil
}

func scatterPlot(title string, s *analysis.Scatter) (*plot.Plot, error) {
	p := newPlot(title, s.X, s.Y)
	n := 0
	for i, ser := range s.Series {
		if len(ser.Points) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(ser.Points))
		for j, pt := range ser.Points {
			pts[j].X, pts[j].Y = pt.X, pt.Y
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(sc)
		p.Legend.Add(ser.Country, sc)
		n++
	}
	if n == 0 {
		return nil, &analysis.InsufficientDataError{Test: "scatter", Reason: "no complete pairs"}
	}
	p.Legend.Top = true
	return p, nil
}

// windRosePlot unrolls the rose onto a sector axis: observation counts as
// bars, clockwise from north.
func windRosePlot(title string, w *analysis.WindRose) (*plot.Plot, error) {
	p := newPlot(title, "Direction", "Observations")
	values := make(plotter.Values, len(w.Counts))
	for i, c := range w.Counts {
		values[i] = float64(c)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return nil, err
	}
	bars.Color = plotutil.Color(2)
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(analysis.WindSectors...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	return p, nil
}

// cleaningPlot groups ModA and ModB bars by cleaning flag. A sensor with no
// readings in a group is labelled "no data" in its slot.
func cleaningPlot(title string, c *analysis.CleaningImpact) (*plot.Plot, error) {
	p := newPlot(title, "Cleaning flag", "Mean irradiance")
	width := vg.Points(24)
	sensors := []struct {
		name string
		get  func(analysis.CleaningGroup) float64
	}{
		{"ModA", func(g analysis.CleaningGroup) float64 { return g.MeanModA }},
		{"ModB", func(g analysis.CleaningGroup) float64 { return g.MeanModB }},
	}
	var missing plotter.XYLabels
	drawn := 0
	for i, s := range sensors {
		offset := vg.Length(2*i-1) * width / 2
		legend := false
		for g, grp := range c.Groups {
			v := s.get(grp)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				// shift the label to the sensor's half of the slot
				missing.XYs = append(missing.XYs, plotter.XY{X: float64(g) + 0.2*float64(2*i-1)})
				missing.Labels = append(missing.Labels, s.name+": "+analysis.NoData)
				continue
			}
			bars, err := plotter.NewBarChart(plotter.Values{v}, width)
			if err != nil {
				return nil, err
			}
			bars.XMin = float64(g)
			bars.Color = plotutil.Color(i)
			bars.LineStyle.Width = vg.Length(0)
			bars.Offset = offset
			p.Add(bars)
			if !legend {
				p.Legend.Add(s.name, bars)
				legend = true
			}
			drawn++
		}
	}
	if drawn == 0 {
		return nil, &analysis.InsufficientDataError{Test: "cleaning impact", Reason: "no ModA or ModB readings"}
	}
	if err := addNoData(p, missing); err != nil {
		return nil, err
	}
	p.NominalX("not cleaned", "cleaned")
	p.Legend.Top = true
	return p, nil
}
