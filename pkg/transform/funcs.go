package transform

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/marinad-syro/inferra/pkg/table"
)

func init() {
	register(&Transformation{
		Name:    "map_binary",
		Summary: "Map categorical values to binary (0/1) encoding",
		Params: []Param{
			{Name: "column", Required: true},
			{Name: "mapping", Required: true},
		},
		Fn: mapValues("map_binary"),
	})
	register(&Transformation{
		Name:    "map_categorical",
		Summary: "Map categorical values to other values",
		Params: []Param{
			{Name: "column", Required: true},
			{Name: "mapping", Required: true},
		},
		Fn: mapValues("map_categorical"),
	})
	register(&Transformation{
		Name:    "normalize",
		Summary: "Min-max rescale a numeric column to [min_val, max_val]",
		Params: []Param{
			{Name: "column", Required: true},
			{Name: "min_val", Default: 0.0},
			{Name: "max_val", Default: 1.0},
		},
		Fn: normalize,
	})
	register(&Transformation{
		Name:    "z_score",
		Summary: "Standardize a numeric column to mean 0, std 1",
		Params: []Param{
			{Name: "column", Required: true},
		},
		Fn: zScore,
	})
	register(&Transformation{
		Name:    "composite_score",
		Summary: "Weighted composite of multiple numeric columns",
		Params: []Param{
			{Name: "columns", Required: true},
			{Name: "weights", Default: nil},
			{Name: "normalize_first", Default: true},
		},
		Fn: compositeScore,
	})
	register(&Transformation{
		Name:    "conditional_value",
		Summary: "Element-wise exact-equality branch",
		Params: []Param{
			{Name: "column", Required: true},
			{Name: "equals", Required: true},
			{Name: "if_true", Required: true},
			{Name: "if_false", Required: true},
		},
		Fn: conditionalValue,
	})
	register(&Transformation{
		Name:    "conditional_numeric",
		Summary: "Element-wise numeric comparison branch",
		Params: []Param{
			{Name: "column", Required: true},
			{Name: "operator", Required: true},
			{Name: "threshold", Required: true},
			{Name: "if_true", Required: true},
			{Name: "if_false", Required: true},
		},
		Fn: conditionalNumeric,
	})
	register(&Transformation{
		Name:    "percentile_rank",
		Summary: "Rank-based percentile in [0, 100], ties averaged",
		Params: []Param{
			{Name: "column", Required: true},
		},
		Fn: percentileRank,
	})
	register(&Transformation{
		Name:    "bin_numeric",
		Summary: "Bin numeric values into discrete categories",
		Params: []Param{
			{Name: "column", Required: true},
			{Name: "bins", Required: true},
			{Name: "labels", Default: nil},
		},
		Fn: binNumeric,
	})
	register(&Transformation{
		Name:    "log_transform",
		Summary: "Logarithm of a strictly positive numeric column",
		Params: []Param{
			{Name: "column", Required: true},
			{Name: "base", Default: math.E},
		},
		Fn: logTransform,
	})
	register(&Transformation{
		Name:    "winsorize",
		Summary: "Clip values outside a quantile band",
		Params: []Param{
			{Name: "column", Required: true},
			{Name: "lower_pct", Default: 5.0},
			{Name: "upper_pct", Default: 95.0},
		},
		Fn: winsorize,
	})
}

// mapValues serves both map_binary and map_categorical: an exact lookup
// where unmapped values become nil, surfaced to the caller as nulls rather
// than an error. The registered name is closed over so failures report the
// transformation the caller actually invoked.
func mapValues(name string) func(*table.Table, map[string]any) ([]table.Value, error) {
	return func(t *table.Table, args map[string]any) ([]table.Value, error) {
		column, err := argString(args, "column")
		if err != nil {
			return nil, runtime(name, err)
		}
		mapping, err := argMap(args, "mapping")
		if err != nil {
			return nil, runtime(name, err)
		}
		values, ok := t.Column(column)
		if !ok {
			return nil, runtime(name, &table.MissingColumnError{Column: column})
		}

		out := make([]table.Value, len(values))
		for i, v := range values {
			if mapped, ok := mapping[MappingKey(v)]; ok {
				out[i] = mapped
			}
		}
		return out, nil
	}
}

// MappingKey canonicalizes a cell for dictionary lookup: strings map to
// themselves, numbers to their shortest decimal text, bools to true/false.
func MappingKey(v table.Value) string {
	switch c := v.(type) {
	case string:
		return c
	case bool:
		return strconv.FormatBool(c)
	default:
		if f, ok := table.AsFloat(v); ok {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return fmt.Sprint(v)
	}
}

func normalize(t *table.Table, args map[string]any) ([]table.Value, error) {
	column, err := argString(args, "column")
	if err != nil {
		return nil, runtime("normalize", err)
	}
	minVal, err := argFloat(args, "min_val")
	if err != nil {
		return nil, runtime("normalize", err)
	}
	maxVal, err := argFloat(args, "max_val")
	if err != nil {
		return nil, runtime("normalize", err)
	}

	col, err := t.NumericColumn(column)
	if err != nil {
		return nil, runtime("normalize", err)
	}

	lo, hi := table.Min(col), table.Max(col)
	out := make([]table.Value, len(col))
	for i, x := range col {
		switch {
		case math.IsNaN(x):
			out[i] = math.NaN()
		case hi == lo:
			// constant column: defined fallback, not an error
			out[i] = minVal
		default:
			out[i] = minVal + (x-lo)/(hi-lo)*(maxVal-minVal)
		}
	}
	return out, nil
}

func zScore(t *table.Table, args map[string]any) ([]table.Value, error) {
	column, err := argString(args, "column")
	if err != nil {
		return nil, runtime("z_score", err)
	}
	col, err := t.NumericColumn(column)
	if err != nil {
		return nil, runtime("z_score", err)
	}

	mean, std := table.Mean(col), table.Std(col)
	out := make([]table.Value, len(col))
	for i, x := range col {
		switch {
		case math.IsNaN(x):
			out[i] = math.NaN()
		case std == 0:
			out[i] = 0.0
		default:
			out[i] = (x - mean) / std
		}
	}
	return out, nil
}

func compositeScore(t *table.Table, args map[string]any) ([]table.Value, error) {
	const fn = "composite_score"

	spec, err := argList(args, "columns")
	if err != nil {
		return nil, runtime(fn, err)
	}
	if len(spec) == 0 {
		return nil, &InvalidArgumentError{Fn: fn, Message: "columns must not be empty"}
	}

	// columns accepts a mix of column-name strings and already-computed
	// column values; each entry must resolve to a numeric column.
	resolved := make([][]float64, 0, len(spec))
	for _, entry := range spec {
		switch col := entry.(type) {
		case string:
			nums, err := t.NumericColumn(col)
			if err != nil {
				return nil, runtime(fn, err)
			}
			resolved = append(resolved, nums)
		case []table.Value:
			nums, err := table.ToNumeric("<computed>", col)
			if err != nil {
				return nil, runtime(fn, err)
			}
			resolved = append(resolved, nums)
		case []float64:
			resolved = append(resolved, col)
		default:
			return nil, &InvalidArgumentError{
				Fn:      fn,
				Message: fmt.Sprintf("columns entries must be column names or columns, got %T", entry),
			}
		}
		if n := len(resolved[len(resolved)-1]); n != t.Len() {
			return nil, runtime(fn, fmt.Errorf("computed column has %d values, table has %d rows", n, t.Len()))
		}
	}

	weights, err := compositeWeights(args["weights"], len(resolved))
	if err != nil {
		return nil, err
	}

	normalizeFirst, err := argBool(args, "normalize_first")
	if err != nil {
		return nil, runtime(fn, err)
	}
	if normalizeFirst {
		for idx, col := range resolved {
			lo, hi := table.Min(col), table.Max(col)
			scaled := make([]float64, len(col))
			for i, x := range col {
				if hi == lo {
					scaled[i] = 0.0
				} else {
					scaled[i] = (x - lo) / (hi - lo)
				}
			}
			resolved[idx] = scaled
		}
	}

	out := make([]table.Value, t.Len())
	for i := range out {
		sum := 0.0
		for j, col := range resolved {
			sum += weights[j] * col[i]
		}
		out[i] = sum
	}
	return out, nil
}

// compositeWeights defaults to equal weights and re-normalizes any input
// vector to sum to 1 regardless of its scale.
func compositeWeights(raw any, n int) ([]float64, error) {
	const fn = "composite_score"

	if raw == nil {
		weights := make([]float64, n)
		for i := range weights {
			weights[i] = 1.0 / float64(n)
		}
		return weights, nil
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, &InvalidArgumentError{Fn: fn, Message: fmt.Sprintf("weights must be a list, got %T", raw)}
	}
	if len(list) != n {
		return nil, &InvalidArgumentError{
			Fn:      fn,
			Message: fmt.Sprintf("number of weights (%d) must match number of columns (%d)", len(list), n),
		}
	}

	weights := make([]float64, n)
	total := 0.0
	for i, w := range list {
		f, ok := table.AsFloat(w)
		if !ok {
			return nil, &InvalidArgumentError{Fn: fn, Message: fmt.Sprintf("weights must be numeric, got %T", w)}
		}
		weights[i] = f
		total += f
	}
	if total == 0 {
		return nil, &InvalidArgumentError{Fn: fn, Message: "sum of weights cannot be zero"}
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights, nil
}

func conditionalValue(t *table.Table, args map[string]any) ([]table.Value, error) {
	column, err := argString(args, "column")
	if err != nil {
		return nil, runtime("conditional_value", err)
	}
	values, ok := t.Column(column)
	if !ok {
		return nil, runtime("conditional_value", &table.MissingColumnError{Column: column})
	}

	equals := args["equals"]
	ifTrue, ifFalse := args["if_true"], args["if_false"]

	out := make([]table.Value, len(values))
	for i, v := range values {
		if cellEquals(v, equals) {
			out[i] = ifTrue
		} else {
			out[i] = ifFalse
		}
	}
	return out, nil
}

func conditionalNumeric(t *table.Table, args map[string]any) ([]table.Value, error) {
	const fn = "conditional_numeric"

	column, err := argString(args, "column")
	if err != nil {
		return nil, runtime(fn, err)
	}
	operator, err := argString(args, "operator")
	if err != nil {
		return nil, runtime(fn, err)
	}
	threshold, err := argFloat(args, "threshold")
	if err != nil {
		return nil, runtime(fn, err)
	}

	var cmp func(float64) bool
	switch operator {
	case ">":
		cmp = func(x float64) bool { return x > threshold }
	case "<":
		cmp = func(x float64) bool { return x < threshold }
	case ">=":
		cmp = func(x float64) bool { return x >= threshold }
	case "<=":
		cmp = func(x float64) bool { return x <= threshold }
	case "==":
		cmp = func(x float64) bool { return x == threshold }
	case "!=":
		cmp = func(x float64) bool { return x != threshold }
	default:
		return nil, &InvalidArgumentError{
			Fn:      fn,
			Message: fmt.Sprintf("invalid operator %q, must be one of >, <, >=, <=, ==, !=", operator),
		}
	}

	col, err := t.NumericColumn(column)
	if err != nil {
		return nil, runtime(fn, err)
	}

	ifTrue, ifFalse := args["if_true"], args["if_false"]
	out := make([]table.Value, len(col))
	for i, x := range col {
		// NaN compares false on every operator, so missing cells branch false
		if !math.IsNaN(x) && cmp(x) {
			out[i] = ifTrue
		} else {
			out[i] = ifFalse
		}
	}
	return out, nil
}

func percentileRank(t *table.Table, args map[string]any) ([]table.Value, error) {
	column, err := argString(args, "column")
	if err != nil {
		return nil, runtime("percentile_rank", err)
	}
	col, err := t.NumericColumn(column)
	if err != nil {
		return nil, runtime("percentile_rank", err)
	}

	ranks := table.Ranks(col)
	n := float64(len(table.DropNaN(col)))
	out := make([]table.Value, len(col))
	for i, r := range ranks {
		if math.IsNaN(r) {
			out[i] = math.NaN()
		} else {
			out[i] = r / n * 100.0
		}
	}
	return out, nil
}

func binNumeric(t *table.Table, args map[string]any) ([]table.Value, error) {
	const fn = "bin_numeric"

	column, err := argString(args, "column")
	if err != nil {
		return nil, runtime(fn, err)
	}
	rawBins, err := argList(args, "bins")
	if err != nil {
		return nil, runtime(fn, err)
	}
	if len(rawBins) < 2 {
		return nil, &InvalidArgumentError{Fn: fn, Message: "must provide at least 2 bin edges"}
	}
	bins := make([]float64, len(rawBins))
	for i, b := range rawBins {
		f, ok := table.AsFloat(b)
		if !ok {
			return nil, &InvalidArgumentError{Fn: fn, Message: fmt.Sprintf("bin edges must be numeric, got %T", b)}
		}
		bins[i] = f
	}
	for i := 1; i < len(bins); i++ {
		if bins[i] <= bins[i-1] {
			return nil, &InvalidArgumentError{Fn: fn, Message: "bin edges must be in ascending order"}
		}
	}

	var labels []string
	if raw := args["labels"]; raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, &InvalidArgumentError{Fn: fn, Message: fmt.Sprintf("labels must be a list, got %T", raw)}
		}
		if len(list) != len(bins)-1 {
			return nil, &InvalidArgumentError{
				Fn:      fn,
				Message: fmt.Sprintf("number of labels (%d) must be len(bins)-1 (%d)", len(list), len(bins)-1),
			}
		}
		labels = make([]string, len(list))
		for i, l := range list {
			labels[i] = fmt.Sprint(l)
		}
	}

	col, err := t.NumericColumn(column)
	if err != nil {
		return nil, runtime(fn, err)
	}

	out := make([]table.Value, len(col))
	for i, x := range col {
		idx := binIndex(x, bins)
		if idx < 0 {
			continue // out of range or missing: null
		}
		if labels != nil {
			out[i] = labels[idx]
		} else {
			out[i] = fmt.Sprintf("(%v, %v]", bins[idx], bins[idx+1])
		}
	}
	return out, nil
}

// binIndex locates x in half-open-from-above intervals (lo, hi], with the
// lowest edge inclusive. Returns -1 when x is NaN or out of range.
func binIndex(x float64, bins []float64) int {
	if math.IsNaN(x) || x < bins[0] || x > bins[len(bins)-1] {
		return -1
	}
	for i := 1; i < len(bins); i++ {
		if x <= bins[i] {
			return i - 1
		}
	}
	return -1
}

func logTransform(t *table.Table, args map[string]any) ([]table.Value, error) {
	const fn = "log_transform"

	column, err := argString(args, "column")
	if err != nil {
		return nil, runtime(fn, err)
	}
	base, err := argFloat(args, "base")
	if err != nil {
		return nil, runtime(fn, err)
	}

	col, err := t.NumericColumn(column)
	if err != nil {
		return nil, runtime(fn, err)
	}
	for _, x := range col {
		if !math.IsNaN(x) && x <= 0 {
			return nil, runtime(fn, fmt.Errorf("cannot apply log transform to column %q containing non-positive values", column))
		}
	}

	logBase := math.Log(base)
	out := make([]table.Value, len(col))
	for i, x := range col {
		if math.IsNaN(x) {
			out[i] = math.NaN()
		} else if base == math.E {
			out[i] = math.Log(x)
		} else {
			out[i] = math.Log(x) / logBase
		}
	}
	return out, nil
}

func winsorize(t *table.Table, args map[string]any) ([]table.Value, error) {
	const fn = "winsorize"

	column, err := argString(args, "column")
	if err != nil {
		return nil, runtime(fn, err)
	}
	lower, err := argFloat(args, "lower_pct")
	if err != nil {
		return nil, runtime(fn, err)
	}
	upper, err := argFloat(args, "upper_pct")
	if err != nil {
		return nil, runtime(fn, err)
	}
	if !(0 <= lower && lower < upper && upper <= 100) {
		return nil, &InvalidArgumentError{Fn: fn, Message: "must have 0 <= lower_pct < upper_pct <= 100"}
	}

	col, err := t.NumericColumn(column)
	if err != nil {
		return nil, runtime(fn, err)
	}

	lo := table.Quantile(col, lower/100)
	hi := table.Quantile(col, upper/100)
	out := make([]table.Value, len(col))
	for i, x := range col {
		switch {
		case math.IsNaN(x):
			out[i] = math.NaN()
		case x < lo:
			out[i] = lo
		case x > hi:
			out[i] = hi
		default:
			out[i] = x
		}
	}
	return out, nil
}

// ---------- argument coercion ----------

func runtime(fn string, err error) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		return err
	}
	return &RuntimeError{Fn: fn, Err: err}
}

func argString(args map[string]any, name string) (string, error) {
	s, ok := args[name].(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", name, args[name])
	}
	return s, nil
}

func argFloat(args map[string]any, name string) (float64, error) {
	f, ok := table.AsFloat(args[name])
	if !ok {
		return 0, fmt.Errorf("argument %q must be numeric, got %T", name, args[name])
	}
	return f, nil
}

func argBool(args map[string]any, name string) (bool, error) {
	b, ok := args[name].(bool)
	if !ok {
		return false, fmt.Errorf("argument %q must be a boolean, got %T", name, args[name])
	}
	return b, nil
}

func argList(args map[string]any, name string) ([]any, error) {
	l, ok := args[name].([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be a list, got %T", name, args[name])
	}
	return l, nil
}

func argMap(args map[string]any, name string) (map[string]any, error) {
	m, ok := args[name].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be a mapping, got %T", name, args[name])
	}
	return m, nil
}

// cellEquals compares a cell against a literal with numeric coercion, so
// 1 and 1.0 compare equal across representations.
func cellEquals(cell, lit table.Value) bool {
	if cf, ok := table.AsFloat(cell); ok {
		if lf, ok := table.AsFloat(lit); ok {
			return cf == lf
		}
		return false
	}
	return cell == lit
}
