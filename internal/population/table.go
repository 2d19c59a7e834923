// Package population holds the country population table the map is shaded from.
package population

import (
	"math"

	"github.com/sells-group/popmap/internal/quartile"
)

// Row is one country's population. Value is NaN when the source value was
// missing or malformed.
type Row struct {
	Country string  `json:"country" yaml:"country"`
	Value   float64 `json:"value" yaml:"value"`
}

// Available reports whether the row carries a usable population value.
func (r Row) Available() bool {
	return !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0) && r.Value >= 0
}

// Table maps country names to population values, keeping source order.
// A Table is immutable once built and safe to share between goroutines.
type Table struct {
	rows   []Row
	index  map[string]int
	folded map[string]int
}

// NewTable builds a Table from rows. When a country repeats, the later value
// replaces the earlier one but the first position is kept.
func NewTable(rows []Row) *Table {
	t := &Table{
		rows:   make([]Row, 0, len(rows)),
		index:  make(map[string]int, len(rows)),
		folded: make(map[string]int, len(rows)),
	}
	for _, r := range rows {
		if i, ok := t.index[r.Country]; ok {
			t.rows[i].Value = r.Value
			continue
		}
		i := len(t.rows)
		t.rows = append(t.rows, r)
		t.index[r.Country] = i
		if _, ok := t.folded[FoldKey(r.Country)]; !ok {
			t.folded[FoldKey(r.Country)] = i
		}
	}
	return t
}

// FromMap builds a Table from a name→value mapping. Map order is not
// defined, so rows are ordered by name for reproducible output.
func FromMap(m map[string]float64) *Table {
	rows := make([]Row, 0, len(m))
	for name, v := range m {
		rows = append(rows, Row{Country: name, Value: v})
	}
	sortRowsByName(rows)
	return NewTable(rows)
}

// Len returns the number of countries in the table, available or not.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns a copy of the rows in source order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// Lookup finds a row by exact name, falling back to the folded key.
func (t *Table) Lookup(name string) (Row, bool) {
	if i, ok := t.index[name]; ok {
		return t.rows[i], true
	}
	if i, ok := t.folded[FoldKey(name)]; ok {
		return t.rows[i], true
	}
	return Row{}, false
}

// Value returns the population of name when it is present and available.
func (t *Table) Value(name string) (float64, bool) {
	r, ok := t.Lookup(name)
	if !ok || !r.Available() {
		return 0, false
	}
	return r.Value, true
}

// Available returns the bucketable entries in source order. Rows with a
// missing or malformed value are left out.
func (t *Table) Available() []quartile.Entry {
	out := make([]quartile.Entry, 0, len(t.rows))
	for _, r := range t.rows {
		if r.Available() {
			out = append(out, quartile.Entry{Country: r.Country, Value: r.Value})
		}
	}
	return out
}

// Unavailable returns the names whose value is missing or malformed.
func (t *Table) Unavailable() []string {
	var out []string
	for _, r := range t.rows {
		if !r.Available() {
			out = append(out, r.Country)
		}
	}
	return out
}

// Buckets computes the quartile buckets over the available rows.
func (t *Table) Buckets() quartile.Result {
	return quartile.Bucketize(t.Available())
}
