package dataset

import (
	"math"
	"strings"
)

// CountryField is the label injected into every row during ingestion.
const CountryField = "Country"

// Table is the unified, read-only dataset spanning every loaded country.
type Table struct {
	rows      []Row
	fields    []string
	fieldSet  map[string]struct{}
	countries []string
	units     map[string]string
	sources   []SourceInfo
}

// SourceInfo describes one source that contributed to a Table.
type SourceInfo struct {
	Country string
	Name    string
	Rows    int
	Digest  string
}

// sheet holds per-source parsing context shared by all of its rows.
type sheet struct {
	country string
	index   map[string]int
	num     numberFormat
}

// Row is one measurement. Cells keep their raw text; numeric access parses on demand.
type Row struct {
	sh    *sheet
	cells []string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{fieldSet: map[string]struct{}{}, units: map[string]string{}}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Rows returns the rows in ingestion order. The slice must not be modified.
func (t *Table) Rows() []Row {
	if t == nil {
		return nil
	}
	return t.rows
}

// Fields returns the union of source headers in first-seen order, followed by Country.
func (t *Table) Fields() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.fields))
	copy(out, t.fields)
	return out
}

// Countries returns the loaded countries in submission order.
func (t *Table) Countries() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.countries))
	copy(out, t.countries)
	return out
}

// Unit returns the unit split off the header for field, if any.
func (t *Table) Unit(field string) string {
	if t == nil {
		return ""
	}
	return t.units[field]
}

// Sources describes the inputs that make up the table.
func (t *Table) Sources() []SourceInfo {
	if t == nil {
		return nil
	}
	out := make([]SourceInfo, len(t.sources))
	copy(out, t.sources)
	return out
}

// Values returns the non-null numeric values of field for one country, in row order.
func (t *Table) Values(country, field string) []float64 {
	var out []float64
	for _, r := range t.Rows() {
		if r.Country() != country {
			continue
		}
		if x, ok := r.Float(field); ok {
			out = append(out, x)
		}
	}
	return out
}

// HasField reports whether the table carries a column called name.
func HasField(t *Table, name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.fieldSet[name]
	return ok
}

// HasFields reports whether every name is a field of t.
func HasFields(t *Table, names ...string) bool { return len(MissingFields(t, names...)) == 0 }

// MissingFields returns the names the table does not carry, in argument order.
func MissingFields(t *Table, names ...string) []string {
	var missing []string
	for _, n := range names {
		if !HasField(t, n) {
			missing = append(missing, n)
		}
	}
	return missing
}

func (t *Table) addField(name, unit string) {
	if unit != "" && t.units[name] == "" {
		t.units[name] = unit
	}
	if _, ok := t.fieldSet[name]; ok {
		return
	}
	t.fieldSet[name] = struct{}{}
	t.fields = append(t.fields, name)
}

// append adds a parsed source. Country is kept as the last field.
func (t *Table) append(sh *sheet, header []string, units []string, rows [][]string, info SourceInfo) {
	if i := indexOf(t.fields, CountryField); i >= 0 {
		t.fields = append(t.fields[:i], t.fields[i+1:]...)
		delete(t.fieldSet, CountryField)
	}
	for i, h := range header {
		if h == CountryField {
			continue
		}
		t.addField(h, units[i])
	}
	t.addField(CountryField, "")
	t.countries = append(t.countries, sh.country)
	for _, cells := range rows {
		t.rows = append(t.rows, Row{sh: sh, cells: cells})
	}
	t.sources = append(t.sources, info)
}

// Country returns the row's origin label.
func (r Row) Country() string {
	if r.sh == nil {
		return ""
	}
	return r.sh.country
}

// Get returns the raw cell for field. The injected Country label wins over a
// Country column present in the file.
func (r Row) Get(field string) (string, bool) {
	if r.sh == nil {
		return "", false
	}
	if field == CountryField {
		return r.sh.country, true
	}
	i, ok := r.sh.index[field]
	if !ok || i >= len(r.cells) {
		return "", false
	}
	return r.cells[i], true
}

// Float returns field parsed as a finite number. Null tokens and text yield false.
func (r Row) Float(field string) (float64, bool) {
	v, ok := r.Get(field)
	if !ok || isNull(v) {
		return 0, false
	}
	x, ok := r.sh.num.parse(v)
	if !ok || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

var nullTokens = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "nan": {}, "null": {}, "none": {}, "-": {},
}

func isNull(s string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
