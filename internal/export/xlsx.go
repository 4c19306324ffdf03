// Package export writes dashboard results as standalone files.
package export

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/solardash-cli/internal/analysis"
	"github.com/KaramelBytes/solardash-cli/internal/utils"
)

// Sheet names, in workbook order.
const (
	SheetRanking = "Ranking"
	SheetSummary = "Summary"
	SheetANOVA   = "ANOVA"
)

// Workbook is the content of an XLSX export. A nil result with its error set
// becomes a placeholder row on that sheet.
type Workbook struct {
	SessionID  string
	Ranking    *analysis.Ranking
	RankingErr error
	Result     *analysis.Result
	ResultErr  error
}

// WriteXLSX builds the workbook and writes it to path atomically.
func WriteXLSX(path string, wb Workbook) error {
	f, err := Build(wb)
	if err != nil {
		return err
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode xlsx: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// Build lays out the Ranking, Summary and ANOVA sheets.
func Build(wb Workbook) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetRanking); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetSummary, SheetANOVA} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("new sheet %s: %w", name, err)
		}
	}
	w := &sheetWriter{f: f}
	writeRanking(w, wb.Ranking, wb.RankingErr)
	writeSummary(w, wb.Result, wb.ResultErr, wb.SessionID)
	var anova *analysis.ANOVAResult
	anovaErr := wb.ResultErr
	if wb.Result != nil {
		anova, anovaErr = wb.Result.ANOVA, wb.Result.ANOVAErr
	}
	writeANOVA(w, anova, anovaErr)
	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// sheetWriter keeps the first cell error so layout code stays linear.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) row(sheet string, r int, vals ...any) {
	for i, v := range vals {
		if w.err != nil {
			return
		}
		cell, err := excelize.CoordinatesToCellName(i+1, r)
		if err != nil {
			w.err = err
			return
		}
		if x, ok := v.(float64); ok && (math.IsNaN(x) || math.IsInf(x, 0)) {
			v = cellText(x)
		}
		if err := w.f.SetCellValue(sheet, cell, v); err != nil {
			w.err = fmt.Errorf("%s!%s: %w", sheet, cell, err)
		}
	}
}

func (w *sheetWriter) width(sheet string, cols int, width float64) {
	if w.err != nil || cols == 0 {
		return
	}
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetColWidth(sheet, "A", last, width); err != nil {
		w.err = err
	}
}

func writeRanking(w *sheetWriter, rk *analysis.Ranking, err error) {
	if rk == nil {
		w.row(SheetRanking, 1, analysis.Placeholder(err))
		return
	}
	header := []any{"Rank", "Country"}
	for _, m := range rk.Metrics {
		header = append(header, m)
	}
	w.row(SheetRanking, 1, header...)
	for i, row := range rk.Rows {
		vals := []any{i + 1, row.Country}
		for _, m := range row.Means {
			vals = append(vals, m)
		}
		w.row(SheetRanking, i+2, vals...)
	}
	r := len(rk.Rows) + 3
	w.row(SheetRanking, r, "Leader")
	for j, m := range rk.Metrics {
		w.row(SheetRanking, r+1+j, m, rk.Leaders[m])
	}
	w.width(SheetRanking, len(header), 14)
}

func writeSummary(w *sheetWriter, res *analysis.Result, err error, session string) {
	if res == nil {
		w.row(SheetSummary, 1, analysis.Placeholder(err))
		return
	}
	w.row(SheetSummary, 1, "Metric", res.Metric, "Unit", res.Unit, "Session", session)
	w.row(SheetSummary, 3, "Rank", "Country", "Count", "Mean", "Std", "Min", "Max")
	for i, c := range res.Ranking {
		w.row(SheetSummary, i+4, i+1, c.Country, c.Count, c.Mean, c.Std, c.Min, c.Max)
	}
	r := len(res.Ranking) + 5
	w.row(SheetSummary, r, "Overall mean", res.Overall)
	if res.Best != nil {
		w.row(SheetSummary, r+1, "Best", res.Best.Country, res.Best.Mean)
	} else {
		w.row(SheetSummary, r+1, "Best", analysis.NoData)
	}
	w.width(SheetSummary, 7, 14)
}

func writeANOVA(w *sheetWriter, a *analysis.ANOVAResult, err error) {
	if a == nil {
		if err == nil {
			err = &analysis.InsufficientDataError{Test: "ANOVA"}
		}
		w.row(SheetANOVA, 1, analysis.Placeholder(err))
		return
	}
	rows := [][]any{
		{"Metric", a.Metric},
		{"F", a.F},
		{"p-value", a.P},
		{"df between", a.DFBetween},
		{"df within", a.DFWithin},
		{"alpha", a.Alpha},
		{"Verdict", a.Verdict()},
	}
	for i, r := range rows {
		w.row(SheetANOVA, i+1, r...)
	}
	w.width(SheetANOVA, 2, 20)
}

func cellText(x float64) string {
	if math.IsInf(x, 1) {
		return "+Inf"
	}
	if math.IsInf(x, -1) {
		return "-Inf"
	}
	return analysis.NoData
}
