package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"
)

// Policy decides what a failing source does to the rest of a load.
type Policy int

const (
	// PolicyAllOrNothing requires every source to load; one failure means no table.
	PolicyAllOrNothing Policy = iota
	// PolicyPartial skips failing sources and keeps the others.
	PolicyPartial
)

func (p Policy) String() string {
	if p == PolicyPartial {
		return "partial"
	}
	return "all"
}

// ParsePolicy accepts "all" (default) or "partial".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "all-or-nothing", "strict":
		return PolicyAllOrNothing, nil
	case "partial":
		return PolicyPartial, nil
	default:
		return PolicyAllOrNothing, fmt.Errorf("unsupported load policy: %s (use all|partial)", s)
	}
}

// Options controls CSV ingestion.
type Options struct {
	// Delimiter for CSV. If 0, sniffed from the header line among ',', ';', '\t'.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	Policy             Policy
}

// DefaultOptions returns the reference ingestion settings.
func DefaultOptions() Options {
	return Options{Policy: PolicyAllOrNothing}
}

// Load reads every source and concatenates them into one Table in submission order.
//
// With PolicyAllOrNothing any failure returns a nil table and the joined
// SourceLoadErrors. With PolicyPartial the table holds the countries that loaded
// and the error (if any) lists the ones that did not. Zero sources give an empty table.
func Load(sources []Source, opt Options) (*Table, error) {
	contents := make([]content, len(sources))
	for i, s := range sources {
		contents[i] = readContent(s)
	}
	return assemble(contents, opt)
}

func assemble(contents []content, opt Options) (*Table, error) {
	t := NewTable()
	var errs []error
	seen := map[string]struct{}{}
	for _, c := range contents {
		if c.err != nil {
			errs = append(errs, c.err)
			continue
		}
		country := c.src.Country
		if country == "" {
			errs = append(errs, &SourceLoadError{Name: c.src.label(), Err: errors.New("empty country name")})
			continue
		}
		if _, dup := seen[country]; dup {
			errs = append(errs, &SourceLoadError{Country: country, Name: c.src.label(), Err: errors.New("country already loaded")})
			continue
		}
		header, units, rows, err := parse(c, opt)
		if err != nil {
			errs = append(errs, &SourceLoadError{Country: country, Name: c.src.label(), Err: err})
			continue
		}
		seen[country] = struct{}{}
		sh := &sheet{country: country, index: make(map[string]int, len(header)), num: numberFormatFrom(opt)}
		for i, h := range header {
			if _, ok := sh.index[h]; !ok {
				sh.index[h] = i
			}
		}
		t.append(sh, header, units, rows, SourceInfo{Country: country, Name: c.src.label(), Rows: len(rows), Digest: c.digest})
		log.WithFields(log.Fields{"country": country, "source": c.src.label(), "rows": len(rows)}).Debug("source loaded")
	}
	if len(errs) == 0 {
		return t, nil
	}
	err := errors.Join(errs...)
	if opt.Policy == PolicyPartial {
		log.WithError(err).Warnf("loaded %d of %d sources", len(t.sources), len(contents))
		return t, err
	}
	return nil, err
}

// parse dispatches on the content: XLSX workbooks by name or zip signature,
// CSV otherwise.
func parse(c content, opt Options) ([]string, []string, [][]string, error) {
	if isXLSX(c.src.label(), c.data) {
		return parseXLSX(c.data)
	}
	return parseCSV(c.data, opt)
}

// parseCSV returns the cleaned header, per-column units and the data records.
func parseCSV(data []byte, opt Options) ([]string, []string, [][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(data)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	raw, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil, errors.New("no header row")
		}
		return nil, nil, nil, fmt.Errorf("read header: %w", err)
	}
	header, units := cleanHeader(raw)
	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" && len(header) > 1 {
			continue
		}
		rec, err = fitRow(rec, len(header), len(rows)+1)
		if err != nil {
			return nil, nil, nil, err
		}
		rows = append(rows, rec)
	}
	return header, units, rows, nil
}

func cleanHeader(raw []string) ([]string, []string) {
	header := make([]string, len(raw))
	units := make([]string, len(raw))
	for i, h := range raw {
		header[i], units[i] = splitUnits(h)
		if header[i] == "" {
			header[i] = fmt.Sprintf("column_%d", i+1)
		}
	}
	return header, units
}

// fitRow pads short records; a record longer than the header is malformed.
func fitRow(rec []string, width, n int) ([]string, error) {
	if len(rec) > width {
		return nil, fmt.Errorf("row %d: expected %d fields, got %d", n, width, len(rec))
	}
	if len(rec) < width {
		tmp := make([]string, width)
		copy(tmp, rec)
		rec = tmp
	}
	return rec, nil
}

// sniffDelimiter picks the most frequent candidate outside quotes on the first line.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	counts := map[rune]int{}
	inQuote := false
	for _, c := range string(line) {
		switch {
		case c == '"':
			inQuote = !inQuote
		case !inQuote && (c == ',' || c == ';' || c == '\t'):
			counts[c]++
		}
	}
	best := ','
	for _, c := range []rune{',', ';', '\t'} {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

// numberFormat is the separator pair configured for a sheet. A zero decimal
// separator means each value's separators are inferred from its own text.
type numberFormat struct {
	decimal   rune
	thousands rune
}

func numberFormatFrom(opt Options) numberFormat {
	return numberFormat{decimal: opt.DecimalSeparator, thousands: opt.ThousandsSeparator}
}

// separators resolves the decimal and grouping runes used by raw. When both
// ',' and '.' appear the rightmost one is the decimal point.
func (nf numberFormat) separators(raw string) (dec, group rune) {
	if nf.decimal != 0 {
		return nf.decimal, nf.thousands
	}
	comma, dot := strings.LastIndexByte(raw, ','), strings.LastIndexByte(raw, '.')
	switch {
	case comma > dot && dot >= 0:
		return ',', '.'
	case dot > comma && comma >= 0:
		return '.', ','
	case comma >= 0:
		return ',', 0
	}
	return '.', 0
}

// parse reads one cell as a number. Percent signs, spaces and grouping marks
// are dropped; the decimal separator is normalised to '.'.
func (nf numberFormat) parse(s string) (float64, bool) {
	raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if nf.decimal == 0 {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f, true
		}
	}
	dec, group := nf.separators(raw)
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r == dec:
			b.WriteByte('.')
		case r == group, r == ' ', r == '\u00A0':
		case group == 0 && (r == ',' || r == '.'):
			// stray grouping mark in a value with no known grouping rune
		default:
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	return f, err == nil
}

var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.*?)\s*\(([^)]+)\)\s*$`),  // GHI (W/m²)
	regexp.MustCompile(`^(.*?)\s*\[([^\]]+)\]\s*$`), // Tamb [°C]
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(name), `"`))
	for _, re := range unitPatterns {
		if m := re.FindStringSubmatch(s); len(m) == 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[2])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
