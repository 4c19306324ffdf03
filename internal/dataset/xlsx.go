package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var zipMagic = []byte("PK\x03\x04")

func isXLSX(name string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return true
	}
	return bytes.HasPrefix(data, zipMagic)
}

// parseXLSX reads the first worksheet of a workbook the same way parseCSV
// reads a file: first row header, fully empty rows skipped.
func parseXLSX(data []byte) ([]string, []string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, nil, errors.New("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	for len(records) > 0 && emptyRecord(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, nil, nil, errors.New("no header row")
	}
	header, units := cleanHeader(records[0])
	var rows [][]string
	for _, rec := range records[1:] {
		if emptyRecord(rec) {
			continue
		}
		rec, err := fitRow(rec, len(header), len(rows)+1)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("sheet %s: %w", sheets[0], err)
		}
		rows = append(rows, rec)
	}
	return header, units, rows, nil
}

func emptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
