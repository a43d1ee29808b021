// Package analysis runs the supported statistical tests against in-memory
// tables. Each test reports the same result keys the generated analysis
// scripts print, so callers can compare engine output against script
// output directly.
package analysis

import (
	"fmt"
	"sort"

	"github.com/marinad-syro/inferra/pkg/table"
)

// UnsupportedFunctionError is returned when a requested analysis function
// is not implemented.
type UnsupportedFunctionError struct {
	Function string
}

func (e *UnsupportedFunctionError) Error() string {
	return fmt.Sprintf("unsupported analysis function: %q", e.Function)
}

// Results holds the named statistics of one analysis, keyed the way they
// are serialized.
type Results map[string]any

// Run executes the named analysis with parameters already resolved to
// column names (see MapParameters).
func Run(tbl *table.Table, function string, params map[string]string) (Results, error) {
	switch function {
	case "ttest_ind":
		return ttestInd(tbl, params)
	case "ttest_rel":
		return ttestRel(tbl, params)
	case "f_oneway":
		return fOneway(tbl, params)
	case "pearsonr":
		return correlation(tbl, params, "pearson")
	case "spearmanr":
		return correlation(tbl, params, "spearman")
	case "kendalltau":
		return correlation(tbl, params, "kendall")
	case "chi2_contingency":
		return chi2Contingency(tbl, params)
	case "mannwhitneyu":
		return mannWhitneyU(tbl, params)
	case "wilcoxon":
		return wilcoxon(tbl, params)
	case "kruskal":
		return kruskal(tbl, params)
	case "ols":
		return ols(tbl, params)
	default:
		return nil, &UnsupportedFunctionError{Function: function}
	}
}

// Functions lists the supported analysis function names, sorted.
func Functions() []string {
	return []string{
		"chi2_contingency",
		"f_oneway",
		"kendalltau",
		"kruskal",
		"mannwhitneyu",
		"ols",
		"pearsonr",
		"spearmanr",
		"ttest_ind",
		"ttest_rel",
		"wilcoxon",
	}
}

func sortedKeys(m map[string]ParamHint) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// param fetches a required resolved parameter.
func param(params map[string]string, name string) (string, error) {
	col, ok := params[name]
	if !ok || col == "" {
		return "", fmt.Errorf("analysis requires parameter %q", name)
	}
	return col, nil
}

// groupValues splits a value column by the distinct labels of a group
// column, dropping missing values. Labels come back in first-appearance
// order.
func groupValues(tbl *table.Table, groupCol, valueCol string) ([]string, [][]float64, error) {
	groups, ok := tbl.Column(groupCol)
	if !ok {
		return nil, nil, &table.MissingColumnError{Column: groupCol}
	}
	values, err := tbl.NumericColumn(valueCol)
	if err != nil {
		return nil, nil, err
	}

	var labels []string
	index := make(map[string]int)
	var data [][]float64
	for i, g := range groups {
		if g == nil {
			continue
		}
		label := fmt.Sprintf("%v", g)
		idx, ok := index[label]
		if !ok {
			idx = len(labels)
			index[label] = idx
			labels = append(labels, label)
			data = append(data, nil)
		}
		v := values[i]
		if !isNaN(v) {
			data[idx] = append(data[idx], v)
		}
	}
	return labels, data, nil
}

// pairedValues returns two columns filtered to rows where both are
// present.
func pairedValues(tbl *table.Table, col1, col2 string) ([]float64, []float64, error) {
	xs, err := tbl.NumericColumn(col1)
	if err != nil {
		return nil, nil, err
	}
	ys, err := tbl.NumericColumn(col2)
	if err != nil {
		return nil, nil, err
	}
	var a, b []float64
	for i := range xs {
		if isNaN(xs[i]) || isNaN(ys[i]) {
			continue
		}
		a = append(a, xs[i])
		b = append(b, ys[i])
	}
	return a, b, nil
}

func isNaN(f float64) bool { return f != f }
