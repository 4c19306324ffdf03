package dataset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestLoadXLSXSource(t *testing.T) {
	data := workbook(t, [][]any{
		{"Timestamp", "GHI (W/m²)", "Tamb"},
		{"2021-08-09 00:01", 12.5, 26},
		{},
		{"2021-08-09 00:02", "NA", 27},
	})
	tbl, err := Load([]Source{
		{Country: "Benin", Name: "benin.xlsx", Data: data},
		{Country: "Togo", Data: []byte(togoCSV)},
	}, DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := tbl.Values("Benin", "GHI"); !cmp.Equal(got, []float64{12.5}) {
		t.Fatalf("Benin GHI = %v", got)
	}
	if tbl.Unit("GHI") != "W/m²" {
		t.Fatalf("unit = %q", tbl.Unit("GHI"))
	}
	if tbl.Len() != 4 {
		t.Fatalf("rows = %d, want 4", tbl.Len())
	}
}

func TestIsXLSX(t *testing.T) {
	if !isXLSX("a.XLSX", nil) || !isXLSX("(stream)", []byte("PK\x03\x04rest")) || isXLSX("a.csv", []byte("GHI\n")) {
		t.Fatalf("isXLSX mismatch")
	}
}
