// Package table holds the date-indexed tabular value exchanged between the
// EODHD fetcher and the raw-data bucket store.
package table

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrSchemaMismatch is returned when tables with different column sets are combined.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Row is one record keyed by its date index. Values are kept verbatim.
type Row struct {
	Date   time.Time
	Values []string
}

// Table is an ordered set of rows with a date index column and string value columns.
// Row order is whatever the source produced; nothing here re-sorts it.
type Table struct {
	Index   string
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given index and value column names.
func New(index string, columns ...string) *Table {
	return &Table{
		Index:   index,
		Columns: slices.Clone(columns),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Header returns the index name followed by the value columns.
func (t *Table) Header() []string {
	return append([]string{t.Index}, t.Columns...)
}

// Append adds a row. The number of values must match the column count.
func (t *Table) Append(date time.Time, values ...string) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row %s has %d values, table has %d columns",
			date.Format("2006-01-02"), len(values), len(t.Columns))
	}
	t.Rows = append(t.Rows, Row{Date: date, Values: slices.Clone(values)})
	return nil
}

// SameSchema reports whether both tables have the same index and columns in the same order.
func (t *Table) SameSchema(o *Table) bool {
	return t.Index == o.Index && slices.Equal(t.Columns, o.Columns)
}

// HasUniqueIndex reports whether no date appears twice.
func (t *Table) HasUniqueIndex() bool {
	seen := make(map[time.Time]struct{}, len(t.Rows))
	for _, r := range t.Rows {
		if _, ok := seen[r.Date]; ok {
			return false
		}
		seen[r.Date] = struct{}{}
	}
	return true
}

// Concat appends the rows of all parts, in order, into a new table.
// Every part must share the schema of the first one.
func Concat(parts ...*Table) (*Table, error) {
	if len(parts) == 0 {
		return &Table{}, nil
	}
	first := parts[0]
	out := New(first.Index, first.Columns...)
	for i, p := range parts {
		if !first.SameSchema(p) {
			return nil, fmt.Errorf("%w: part %d has columns %v, expected %v",
				ErrSchemaMismatch, i, p.Header(), first.Header())
		}
		out.Rows = append(out.Rows, p.Rows...)
	}
	return out, nil
}

// Partition groups rows by key(date). Keys are returned in order of first appearance
// and each group keeps the original row order.
func (t *Table) Partition(key func(time.Time) string) ([]string, map[string]*Table) {
	var keys []string
	groups := make(map[string]*Table)
	for _, r := range t.Rows {
		k := key(r.Date)
		g, ok := groups[k]
		if !ok {
			g = New(t.Index, t.Columns...)
			groups[k] = g
			keys = append(keys, k)
		}
		g.Rows = append(g.Rows, r)
	}
	return keys, groups
}
