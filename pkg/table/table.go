// Package table provides the in-memory columnar dataset shared by every
// analysis component. A Table is an ordered set of named columns whose rows
// are positionally aligned; cells are dynamically typed (float64, string,
// bool, or nil for missing).
package table

import (
	"fmt"
	"math"
)

// Value is a single cell. Concrete types are float64, string, bool, or nil.
type Value = any

// Table is an ordered set of named, row-aligned columns.
type Table struct {
	names []string
	cols  map[string][]Value
}

// New creates an empty table.
func New() *Table {
	return &Table{cols: make(map[string][]Value)}
}

// FromColumns creates a table from ordered (name, values) pairs.
// All columns must have the same length.
func FromColumns(names []string, cols map[string][]Value) (*Table, error) {
	t := New()
	for _, name := range names {
		values, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("column %q has no values", name)
		}
		if err := t.SetColumn(name, values); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// FromRecords creates a table from row-major records. Column order follows
// the given names; a record missing a key yields a nil cell.
func FromRecords(names []string, records []map[string]any) *Table {
	t := New()
	for _, name := range names {
		values := make([]Value, len(records))
		for i, rec := range records {
			values[i] = normalizeCell(rec[name])
		}
		t.names = append(t.names, name)
		t.cols[name] = values
	}
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.names) == 0 {
		return 0
	}
	return len(t.cols[t.names[0]])
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.names) }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]Value, bool) {
	values, ok := t.cols[name]
	return values, ok
}

// SetColumn assigns a column, appending it to the column order if new.
// The value count must match the table's row count unless the table is empty.
func (t *Table) SetColumn(name string, values []Value) error {
	if len(t.names) > 0 && len(values) != t.Len() {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.Len())
	}
	if _, exists := t.cols[name]; !exists {
		t.names = append(t.names, name)
	}
	normalized := make([]Value, len(values))
	for i, v := range values {
		normalized[i] = normalizeCell(v)
	}
	t.cols[name] = normalized
	return nil
}

// DropColumn removes the named column. Unknown names are a no-op.
func (t *Table) DropColumn(name string) {
	if _, ok := t.cols[name]; !ok {
		return
	}
	delete(t.cols, name)
	for i, n := range t.names {
		if n == name {
			t.names = append(t.names[:i], t.names[i+1:]...)
			break
		}
	}
}

// Filter keeps only the rows where keep[i] is true. The mask length must
// match the row count.
func (t *Table) Filter(keep []bool) error {
	if len(keep) != t.Len() {
		return fmt.Errorf("mask has %d entries, table has %d rows", len(keep), t.Len())
	}
	for name, values := range t.cols {
		kept := values[:0:0]
		for i, v := range values {
			if keep[i] {
				kept = append(kept, v)
			}
		}
		t.cols[name] = kept
	}
	return nil
}

// Row returns the values of row i in column order.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.names))
	for j, name := range t.names {
		row[j] = t.cols[name][i]
	}
	return row
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := New()
	c.names = make([]string, len(t.names))
	copy(c.names, t.names)
	for name, values := range t.cols {
		cp := make([]Value, len(values))
		copy(cp, values)
		c.cols[name] = cp
	}
	return c
}

// Records serializes the table to row-major records. NaN cells become nil
// so the result is JSON-safe.
func (t *Table) Records() []map[string]any {
	records := make([]map[string]any, t.Len())
	for i := range records {
		rec := make(map[string]any, len(t.names))
		for _, name := range t.names {
			rec[name] = jsonCell(t.cols[name][i])
		}
		records[i] = rec
	}
	return records
}

// SampleRecords serializes the first n rows restricted to the given columns.
// Unknown columns are skipped; nil cols means all columns.
func (t *Table) SampleRecords(n int, cols []string) []map[string]any {
	if cols == nil {
		cols = t.names
	}
	if n > t.Len() {
		n = t.Len()
	}
	records := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		rec := make(map[string]any, len(cols))
		for _, name := range cols {
			if values, ok := t.cols[name]; ok {
				rec[name] = jsonCell(values[i])
			}
		}
		records = append(records, rec)
	}
	return records
}

// AsFloat coerces a cell to float64. Returns false for nil, strings,
// and bools.
func AsFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// NumericColumn returns the named column coerced to float64, with NaN for
// missing cells. It fails if the column does not exist or holds
// non-numeric values.
func (t *Table) NumericColumn(name string) ([]float64, error) {
	values, ok := t.cols[name]
	if !ok {
		return nil, &MissingColumnError{Column: name}
	}
	return ToNumeric(name, values)
}

// ToNumeric coerces a column's values to float64, with NaN for nil cells.
func ToNumeric(name string, values []Value) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		f, ok := AsFloat(v)
		if !ok {
			return nil, fmt.Errorf("column %q must be numeric, found %T at row %d", name, v, i)
		}
		out[i] = f
	}
	return out, nil
}

// IsNumeric reports whether every non-missing cell of the named column is
// numeric. Returns false for unknown columns.
func (t *Table) IsNumeric(name string) bool {
	values, ok := t.cols[name]
	if !ok {
		return false
	}
	for _, v := range values {
		if v == nil {
			continue
		}
		if _, ok := AsFloat(v); !ok {
			return false
		}
	}
	return true
}

// MissingColumnError is returned when an operation references a column the
// table does not have.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not found in dataset", e.Column)
}

// normalizeCell folds integer cells into float64 so a column has one
// numeric representation, and maps NaN onto itself (kept as float64).
func normalizeCell(v Value) Value {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return normalizeFloat(float64(n))
	case float64:
		return normalizeFloat(n)
	default:
		return v
	}
}

// normalizeFloat folds NaN and infinities into the missing value, so a
// stored cell is either a real number or nil. Cleaning and serialization
// both key off nil alone.
func normalizeFloat(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// jsonCell maps a cell to its JSON-safe form: NaN and infinities become nil.
func jsonCell(v Value) any {
	if f, ok := v.(float64); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
	}
	return v
}
