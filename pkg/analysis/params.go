package analysis

import (
	"fmt"

	"github.com/marinad-syro/inferra/pkg/table"
)

// ParamHint describes how one analysis parameter should be bound: either
// to a named column, or inferred from a role (group, value, x, y, col1,
// col2, dependent, independent).
type ParamHint struct {
	Type   string `json:"type,omitempty"`
	Column string `json:"column,omitempty"`
}

// MapParameters resolves parameter hints to concrete column names. A
// specified column wins; otherwise the role drives inference: group roles
// pick a categorical column with 2-20 distinct values, everything else
// picks the first numeric column not already taken.
func MapParameters(hints map[string]ParamHint, tbl *table.Table) (map[string]string, error) {
	mapped := make(map[string]string, len(hints))
	taken := func() []string {
		out := make([]string, 0, len(mapped))
		for _, c := range mapped {
			out = append(out, c)
		}
		return out
	}

	for _, name := range sortedKeys(hints) {
		hint := hints[name]
		if hint.Column != "" {
			if !tbl.HasColumn(hint.Column) {
				return nil, &table.MissingColumnError{Column: hint.Column}
			}
			mapped[name] = hint.Column
			continue
		}

		switch hint.Type {
		case "group":
			col, ok := findGroupColumn(tbl)
			if !ok {
				return nil, fmt.Errorf("no suitable grouping column found")
			}
			mapped[name] = col
		case "value", "x", "y", "col1", "col2", "dependent", "independent":
			col, ok := findNumericColumn(tbl, taken())
			if !ok {
				return nil, fmt.Errorf("no suitable numeric column found for %s", name)
			}
			mapped[name] = col
		default:
			return nil, fmt.Errorf("unknown parameter type %q for %s", hint.Type, name)
		}
	}
	return mapped, nil
}

// findGroupColumn returns the first non-numeric column with a group-sized
// number of distinct values.
func findGroupColumn(tbl *table.Table) (string, bool) {
	for _, col := range tbl.Columns() {
		if tbl.IsNumeric(col) {
			continue
		}
		n := distinctCount(tbl, col)
		if n >= 2 && n <= 20 {
			return col, true
		}
	}
	return "", false
}

func findNumericColumn(tbl *table.Table, exclude []string) (string, bool) {
	skip := make(map[string]bool, len(exclude))
	for _, c := range exclude {
		skip[c] = true
	}
	for _, col := range tbl.Columns() {
		if skip[col] || !tbl.IsNumeric(col) {
			continue
		}
		return col, true
	}
	return "", false
}

func distinctCount(tbl *table.Table, col string) int {
	vals, _ := tbl.Column(col)
	seen := make(map[table.Value]bool)
	for _, v := range vals {
		if v == nil {
			continue
		}
		seen[v] = true
	}
	return len(seen)
}
