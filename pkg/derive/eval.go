package derive

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	starlarkmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/marinad-syro/inferra/pkg/sandbox"
	"github.com/marinad-syro/inferra/pkg/table"
)

// computeEval evaluates a row-wise expression once per row. The expression
// is compiled to a single Starlark function whose parameters are the
// referenced columns; each row is one call with that row's scalars.
//
// Missing cells short-circuit: a row with a missing value in any referenced
// column yields a missing result cell, matching how the transformation
// functions propagate gaps.
func (e *Evaluator) computeEval(tbl *table.Table, src string) ([]table.Value, error) {
	expr, aliases, err := aliasBackticks(src, tbl)
	if err != nil {
		return nil, err
	}
	expr = rewriteAggregates(expr, aliases)

	params, err := referencedColumns(expr, aliases, tbl)
	if err != nil {
		return nil, err
	}

	fn, thread, err := compileRowFunc(expr, params, tbl)
	if err != nil {
		return nil, err
	}

	cols := make([][]table.Value, len(params))
	for i, p := range params {
		vals, _ := tbl.Column(aliasTarget(aliases, p))
		cols[i] = vals
	}

	out := make([]table.Value, tbl.Len())
	args := make(starlark.Tuple, len(params))
	for row := 0; row < tbl.Len(); row++ {
		missing := false
		for i := range params {
			cell := cols[i][row]
			if isMissing(cell) {
				missing = true
				break
			}
			sv, err := sandbox.CellToStarlark(cell)
			if err != nil {
				return nil, err
			}
			args[i] = sv
		}
		if missing {
			out[row] = nil
			continue
		}
		v, err := starlark.Call(thread, fn, args, nil)
		if err != nil {
			return nil, fmt.Errorf("evaluating expression: %w", err)
		}
		cell, err := sandbox.CellFromStarlark(v)
		if err != nil {
			return nil, fmt.Errorf("expression result: %w", err)
		}
		out[row] = cell
	}
	return out, nil
}

func isMissing(v table.Value) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return true
	}
	return false
}

func aliasTarget(aliases map[string]string, ident string) string {
	if col, ok := aliases[ident]; ok {
		return col
	}
	return ident
}

// aliasBackticks replaces backtick-quoted column names with generated
// identifiers so the expression parses, returning the alias map.
func aliasBackticks(src string, tbl *table.Table) (string, map[string]string, error) {
	aliases := make(map[string]string)
	var sb strings.Builder
	n := 0
	for {
		start := strings.IndexByte(src, '`')
		if start < 0 {
			sb.WriteString(src)
			break
		}
		end := strings.IndexByte(src[start+1:], '`')
		if end < 0 {
			return "", nil, fmt.Errorf("unterminated backtick in expression")
		}
		name := src[start+1 : start+1+end]
		if !tbl.HasColumn(name) {
			return "", nil, &table.MissingColumnError{Column: name}
		}
		alias := fmt.Sprintf("_col%d", n)
		n++
		aliases[alias] = name
		sb.WriteString(src[:start])
		sb.WriteString(alias)
		src = src[start+2+end:]
	}
	return sb.String(), aliases, nil
}

var (
	aggMethodRe = regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\.\s*(min|max|mean|median|std|sum|count)\s*\(\s*\)`)
	quantileRe  = regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\.\s*quantile\s*\(([^()]*)\)`)
)

// rewriteAggregates turns trailing aggregate method calls into calls to the
// __agg helper, which computes over the whole column rather than the row
// scalar the parameter binds to. Aliased names are resolved back to real
// column names here so __agg sees the table's own naming.
func rewriteAggregates(expr string, aliases map[string]string) string {
	expr = aggMethodRe.ReplaceAllStringFunc(expr, func(m string) string {
		sub := aggMethodRe.FindStringSubmatch(m)
		if sub[1] == "math" {
			return m
		}
		return fmt.Sprintf("__agg(%q, %q)", aliasTarget(aliases, sub[1]), sub[2])
	})
	expr = quantileRe.ReplaceAllStringFunc(expr, func(m string) string {
		sub := quantileRe.FindStringSubmatch(m)
		return fmt.Sprintf("__agg(%q, %q, %s)", aliasTarget(aliases, sub[1]), "quantile", sub[2])
	})
	return expr
}

var evalFileOptions = &syntax.FileOptions{}

// referencedColumns parses the expression and returns, in first-use order,
// every identifier naming a table column (directly or through an alias).
func referencedColumns(expr string, aliases map[string]string, tbl *table.Table) ([]string, error) {
	parsed, err := evalFileOptions.ParseExpr("formula", expr, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}

	// Attribute names after a dot are not column references.
	attrNames := make(map[*syntax.Ident]bool)
	syntax.Walk(parsed, func(n syntax.Node) bool {
		if dot, ok := n.(*syntax.DotExpr); ok {
			attrNames[dot.Name] = true
		}
		return true
	})

	var params []string
	seen := make(map[string]bool)
	syntax.Walk(parsed, func(n syntax.Node) bool {
		ident, ok := n.(*syntax.Ident)
		if !ok || attrNames[ident] || seen[ident.Name] {
			return true
		}
		if _, aliased := aliases[ident.Name]; aliased || tbl.HasColumn(ident.Name) {
			seen[ident.Name] = true
			params = append(params, ident.Name)
		}
		return true
	})
	return params, nil
}

// compileRowFunc wraps the expression in a one-line function and compiles
// it once. The returned thread is reused for every row call.
func compileRowFunc(expr string, params []string, tbl *table.Table) (*starlark.Function, *starlark.Thread, error) {
	src := fmt.Sprintf("def __formula(%s):\n    return (%s)\n", strings.Join(params, ", "), expr)

	predeclared := starlark.StringDict{
		"math":  starlarkmath.Module,
		"__agg": aggBuiltin(tbl),
	}

	thread := &starlark.Thread{Name: "eval"}
	thread.SetMaxExecutionSteps(10_000_000)

	globals, err := starlark.ExecFileOptions(evalFileOptions, thread, "formula", src, predeclared)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid expression: %w", err)
	}
	fn, ok := globals["__formula"].(*starlark.Function)
	if !ok {
		return nil, nil, fmt.Errorf("invalid expression")
	}
	return fn, thread, nil
}

// aggBuiltin computes column aggregates, memoized per formula so repeated
// per-row evaluation stays cheap.
func aggBuiltin(tbl *table.Table) *starlark.Builtin {
	cache := make(map[string]float64)
	return starlark.NewBuiltin("__agg", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var column, stat string
		q := 0.0
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &column, &stat, &q); err != nil {
			return nil, err
		}
		key := fmt.Sprintf("%s\x00%s\x00%g", column, stat, q)
		if v, ok := cache[key]; ok {
			return starlark.Float(v), nil
		}
		vals, ok := tbl.Column(column)
		if !ok {
			return nil, &table.MissingColumnError{Column: column}
		}
		v, err := sandbox.Aggregate(column, vals, stat, q)
		if err != nil {
			return nil, err
		}
		cache[key] = v
		return starlark.Float(v), nil
	})
}
