// Package sandbox executes untrusted Starlark scripts against an in-memory
// dataset. Scripts see a controlled namespace only: the dataset table, the
// transformation builtins, a math module, and a plot collector. There is no
// filesystem, network, or process access to restrict because the interpreter
// never had any.
package sandbox

import (
	"fmt"
	"math"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/marinad-syro/inferra/pkg/table"
)

// TableValue exposes a table to Starlark as the `df` global. Column access
// uses indexing (df["score"]) and assignment (df["z"] = ...). The wrapped
// table is a working copy, so scripts never mutate caller state.
type TableValue struct {
	tbl    *table.Table
	frozen bool
}

// NewTableValue wraps a table for Starlark. The caller decides whether to
// pass a clone; Execute always does.
func NewTableValue(t *table.Table) *TableValue {
	return &TableValue{tbl: t}
}

// Table returns the wrapped table.
func (v *TableValue) Table() *table.Table { return v.tbl }

func (v *TableValue) String() string {
	return fmt.Sprintf("<table %d rows x %d columns>", v.tbl.Len(), v.tbl.NumColumns())
}

func (v *TableValue) Type() string          { return "table" }
func (v *TableValue) Freeze()               { v.frozen = true }
func (v *TableValue) Truth() starlark.Bool  { return v.tbl.Len() > 0 }
func (v *TableValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: table") }

// Get implements df["col"] and returns a column value. The column data is
// copied so that later column assignment cannot alias script-held values.
func (v *TableValue) Get(k starlark.Value) (starlark.Value, bool, error) {
	name, ok := starlark.AsString(k)
	if !ok {
		return nil, false, fmt.Errorf("table index must be a column name string, got %s", k.Type())
	}
	vals, ok := v.tbl.Column(name)
	if !ok {
		return nil, false, &table.MissingColumnError{Column: name}
	}
	return NewColumn(name, append([]table.Value(nil), vals...)), true, nil
}

// SetKey implements df["col"] = value. Accepts a column, a list, or a
// scalar (broadcast to every row).
func (v *TableValue) SetKey(k, val starlark.Value) error {
	if v.frozen {
		return fmt.Errorf("cannot assign to column of frozen table")
	}
	name, ok := starlark.AsString(k)
	if !ok {
		return fmt.Errorf("table index must be a column name string, got %s", k.Type())
	}
	cells, err := ColumnCells(val, v.tbl.Len())
	if err != nil {
		return fmt.Errorf("assigning column %q: %w", name, err)
	}
	return v.tbl.SetColumn(name, cells)
}

func (v *TableValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "columns":
		names := v.tbl.Columns()
		items := make([]starlark.Value, len(names))
		for i, n := range names {
			items[i] = starlark.String(n)
		}
		return starlark.NewList(items), nil
	case "num_rows":
		return starlark.MakeInt(v.tbl.Len()), nil
	case "num_cols":
		return starlark.MakeInt(v.tbl.NumColumns()), nil
	case "drop":
		return starlark.NewBuiltin("drop", v.drop), nil
	case "head":
		return starlark.NewBuiltin("head", v.head), nil
	}
	return nil, nil
}

func (v *TableValue) AttrNames() []string {
	return []string{"columns", "drop", "head", "num_cols", "num_rows"}
}

func (v *TableValue) drop(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	if !v.tbl.HasColumn(name) {
		return nil, &table.MissingColumnError{Column: name}
	}
	v.tbl.DropColumn(name)
	return starlark.None, nil
}

func (v *TableValue) head(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	n := 5
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "n?", &n); err != nil {
		return nil, err
	}
	if n > v.tbl.Len() {
		n = v.tbl.Len()
	}
	items := make([]starlark.Value, 0, n)
	for i := 0; i < n; i++ {
		row := starlark.NewDict(v.tbl.NumColumns())
		for _, col := range v.tbl.Columns() {
			vals, _ := v.tbl.Column(col)
			cell, err := CellToStarlark(vals[i])
			if err != nil {
				return nil, err
			}
			if err := row.SetKey(starlark.String(col), cell); err != nil {
				return nil, err
			}
		}
		items = append(items, row)
	}
	return starlark.NewList(items), nil
}

// Column is a single named column exposed to Starlark. It supports
// elementwise arithmetic against scalars and other columns, iteration,
// indexing, and the aggregate methods the formula grammar allows.
type Column struct {
	name   string
	values []table.Value
	frozen bool
}

// NewColumn builds a column value. The slice is owned by the Column.
func NewColumn(name string, values []table.Value) *Column {
	return &Column{name: name, values: values}
}

// Cells returns the underlying cell slice.
func (c *Column) Cells() []table.Value { return c.values }

func (c *Column) String() string {
	var sb strings.Builder
	sb.WriteString("column(")
	for i, v := range c.values {
		if i == 8 {
			sb.WriteString(", ...")
			break
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%v", v)
	}
	sb.WriteString(")")
	return sb.String()
}

func (c *Column) Type() string          { return "column" }
func (c *Column) Freeze()               { c.frozen = true }
func (c *Column) Truth() starlark.Bool  { return len(c.values) > 0 }
func (c *Column) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: column") }
func (c *Column) Len() int              { return len(c.values) }

func (c *Column) Index(i int) starlark.Value {
	v, err := CellToStarlark(c.values[i])
	if err != nil {
		return starlark.None
	}
	return v
}

func (c *Column) Iterate() starlark.Iterator {
	return &columnIterator{col: c}
}

type columnIterator struct {
	col *Column
	i   int
}

func (it *columnIterator) Next(p *starlark.Value) bool {
	if it.i >= len(it.col.values) {
		return false
	}
	*p = it.col.Index(it.i)
	it.i++
	return true
}

func (it *columnIterator) Done() {}

// Binary implements elementwise arithmetic. Missing cells behave like NaN
// and propagate through the result, matching how the transformation
// functions treat them.
func (c *Column) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	var other []float64
	var scalar float64
	switch yv := y.(type) {
	case *Column:
		if len(yv.values) != len(c.values) {
			return nil, fmt.Errorf("column length mismatch: %d vs %d", len(c.values), len(yv.values))
		}
		other = cellFloats(yv.values)
	case starlark.Int, starlark.Float:
		scalar, _ = starlark.AsFloat(y)
	default:
		return nil, nil // defer to the other operand
	}

	xs := cellFloats(c.values)
	out := make([]table.Value, len(xs))
	for i, x := range xs {
		yf := scalar
		if other != nil {
			yf = other[i]
		}
		a, b := x, yf
		if side == starlark.Right {
			a, b = b, a
		}
		r, err := applyArith(op, a, b)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(r) {
			out[i] = nil
		} else {
			out[i] = r
		}
	}
	return NewColumn(c.name, out), nil
}

func (c *Column) Attr(name string) (starlark.Value, error) {
	switch name {
	case "mean", "min", "max", "median", "std", "sum", "count":
		return starlark.NewBuiltin(name, c.aggregate), nil
	case "quantile":
		return starlark.NewBuiltin(name, c.quantile), nil
	case "unique":
		return starlark.NewBuiltin(name, c.unique), nil
	case "name":
		return starlark.String(c.name), nil
	}
	return nil, nil
}

func (c *Column) AttrNames() []string {
	return []string{"count", "max", "mean", "median", "min", "name", "quantile", "std", "sum", "unique"}
}

func (c *Column) aggregate(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	f, err := Aggregate(c.name, c.values, b.Name(), 0)
	if err != nil {
		return nil, err
	}
	if b.Name() == "count" {
		return starlark.MakeInt(int(f)), nil
	}
	return starlark.Float(f), nil
}

func (c *Column) quantile(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var q float64
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &q); err != nil {
		return nil, err
	}
	f, err := Aggregate(c.name, c.values, "quantile", q)
	if err != nil {
		return nil, err
	}
	return starlark.Float(f), nil
}

func (c *Column) unique(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var items []starlark.Value
	for _, v := range c.values {
		if v == nil {
			continue
		}
		key := fmt.Sprintf("%T:%v", v, v)
		if seen[key] {
			continue
		}
		seen[key] = true
		sv, err := CellToStarlark(v)
		if err != nil {
			return nil, err
		}
		items = append(items, sv)
	}
	return starlark.NewList(items), nil
}

// Aggregate computes a named aggregate over a column, ignoring missing
// cells. Supported: min, max, mean, median, std, sum, count, quantile.
func Aggregate(column string, values []table.Value, stat string, q float64) (float64, error) {
	xs, err := table.ToNumeric(column, values)
	if err != nil {
		return 0, err
	}
	switch stat {
	case "min":
		return table.Min(xs), nil
	case "max":
		return table.Max(xs), nil
	case "mean":
		return table.Mean(xs), nil
	case "median":
		return table.Median(xs), nil
	case "std":
		return table.Std(xs), nil
	case "sum":
		return table.Sum(xs), nil
	case "count":
		return float64(len(table.DropNaN(xs))), nil
	case "quantile":
		if q < 0 || q > 1 {
			return 0, fmt.Errorf("quantile must be between 0 and 1, got %g", q)
		}
		return table.Quantile(xs, q), nil
	default:
		return 0, fmt.Errorf("unknown aggregate %q", stat)
	}
}

func applyArith(op syntax.Token, a, b float64) (float64, error) {
	switch op {
	case syntax.PLUS:
		return a + b, nil
	case syntax.MINUS:
		return a - b, nil
	case syntax.STAR:
		return a * b, nil
	case syntax.SLASH:
		if b == 0 {
			return math.NaN(), nil
		}
		return a / b, nil
	case syntax.SLASHSLASH:
		if b == 0 {
			return math.NaN(), nil
		}
		return math.Floor(a / b), nil
	case syntax.PERCENT:
		if b == 0 {
			return math.NaN(), nil
		}
		return math.Mod(a, b), nil
	case syntax.STARSTAR:
		return math.Pow(a, b), nil
	default:
		return 0, fmt.Errorf("operator %s is not supported on columns", op)
	}
}

func cellFloats(values []table.Value) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		f, ok := table.AsFloat(v)
		if !ok {
			f = math.NaN()
		}
		out[i] = f
	}
	return out
}

// CellToStarlark converts a single table cell to its Starlark value.
func CellToStarlark(v table.Value) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case float64:
		if math.IsNaN(val) {
			return starlark.None, nil
		}
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case bool:
		return starlark.Bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported cell type: %T", v)
	}
}

// CellFromStarlark converts a Starlark value to a table cell.
func CellFromStarlark(v starlark.Value) (table.Value, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		f, _ := starlark.AsFloat(val)
		return f, nil
	case starlark.Float:
		f := float64(val)
		if math.IsNaN(f) {
			return nil, nil
		}
		return f, nil
	case starlark.String:
		return string(val), nil
	default:
		return nil, fmt.Errorf("value of type %s cannot be stored in a table cell", v.Type())
	}
}

// ColumnCells converts a Starlark value into a cell slice of the given row
// count. Columns and lists must match the row count exactly; scalars are
// broadcast.
func ColumnCells(v starlark.Value, rows int) ([]table.Value, error) {
	switch val := v.(type) {
	case *Column:
		if rows > 0 && len(val.values) != rows {
			return nil, fmt.Errorf("column has %d values, table has %d rows", len(val.values), rows)
		}
		return append([]table.Value(nil), val.values...), nil
	case *starlark.List:
		if rows > 0 && val.Len() != rows {
			return nil, fmt.Errorf("list has %d values, table has %d rows", val.Len(), rows)
		}
		out := make([]table.Value, val.Len())
		for i := 0; i < val.Len(); i++ {
			cell, err := CellFromStarlark(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = cell
		}
		return out, nil
	default:
		cell, err := CellFromStarlark(v)
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			return []table.Value{cell}, nil
		}
		out := make([]table.Value, rows)
		for i := range out {
			out[i] = cell
		}
		return out, nil
	}
}

// ToGo converts a Starlark value to a plain Go value for argument passing
// into the transformation registry. Columns become cell slices.
func ToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return string(val), nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		f, _ := starlark.AsFloat(val)
		return f, nil
	case starlark.Float:
		return float64(val), nil
	case *Column:
		return append([]table.Value(nil), val.values...), nil
	case *starlark.List:
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			out[i] = gv
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				key = item[0].String()
			}
			gv, err := ToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", key, err)
			}
			out[key] = gv
		}
		return out, nil
	case starlark.Tuple:
		out := make([]any, len(val))
		for i, item := range val {
			gv, err := ToGo(item)
			if err != nil {
				return nil, fmt.Errorf("tuple index %d: %w", i, err)
			}
			out[i] = gv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %s", v.Type())
	}
}
