package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/marinad-syro/inferra/pkg/table"
)

// twoSidedT converts a t statistic into a two-sided p-value.
func twoSidedT(t, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.CDF(-math.Abs(t))
}

// twoSidedZ converts a z statistic into a two-sided p-value.
func twoSidedZ(z float64) float64 {
	return 2 * distuv.UnitNormal.CDF(-math.Abs(z))
}

func chiSquaredSurvival(x, df float64) float64 {
	return 1 - distuv.ChiSquared{K: df}.CDF(x)
}

// ttestInd is the independent two-sample t-test with pooled variance.
func ttestInd(tbl *table.Table, params map[string]string) (Results, error) {
	groupCol, err := param(params, "group_col")
	if err != nil {
		return nil, err
	}
	valueCol, err := param(params, "value_col")
	if err != nil {
		return nil, err
	}
	labels, data, err := groupValues(tbl, groupCol, valueCol)
	if err != nil {
		return nil, err
	}
	if len(labels) != 2 {
		return nil, fmt.Errorf("expected 2 groups, found %d", len(labels))
	}

	a, b := data[0], data[1]
	n1, n2 := float64(len(a)), float64(len(b))
	if n1 < 2 || n2 < 2 {
		return nil, fmt.Errorf("each group needs at least 2 observations")
	}
	m1, m2 := table.Mean(a), table.Mean(b)
	s1, s2 := table.Std(a), table.Std(b)

	df := n1 + n2 - 2
	pooled := ((n1-1)*s1*s1 + (n2-1)*s2*s2) / df
	t := (m1 - m2) / math.Sqrt(pooled*(1/n1+1/n2))

	return Results{
		"t_statistic": t,
		"p_value":     twoSidedT(t, df),
		"group1":      labels[0],
		"group2":      labels[1],
		"group1_mean": m1,
		"group2_mean": m2,
		"group1_n":    len(a),
		"group2_n":    len(b),
	}, nil
}

// ttestRel is the paired t-test.
func ttestRel(tbl *table.Table, params map[string]string) (Results, error) {
	col1, err := param(params, "col1")
	if err != nil {
		return nil, err
	}
	col2, err := param(params, "col2")
	if err != nil {
		return nil, err
	}
	a, b, err := pairedValues(tbl, col1, col2)
	if err != nil {
		return nil, err
	}
	n := float64(len(a))
	if n < 2 {
		return nil, fmt.Errorf("paired test needs at least 2 complete pairs")
	}

	diffs := make([]float64, len(a))
	for i := range a {
		diffs[i] = a[i] - b[i]
	}
	md := table.Mean(diffs)
	sd := table.Std(diffs)
	t := md / (sd / math.Sqrt(n))

	return Results{
		"t_statistic": t,
		"p_value":     twoSidedT(t, n-1),
		"col1_mean":   table.Mean(a),
		"col2_mean":   table.Mean(b),
		"n":           len(a),
	}, nil
}

// fOneway is one-way ANOVA.
func fOneway(tbl *table.Table, params map[string]string) (Results, error) {
	groupCol, err := param(params, "group_col")
	if err != nil {
		return nil, err
	}
	valueCol, err := param(params, "value_col")
	if err != nil {
		return nil, err
	}
	labels, data, err := groupValues(tbl, groupCol, valueCol)
	if err != nil {
		return nil, err
	}
	k := len(labels)
	if k < 2 {
		return nil, fmt.Errorf("ANOVA needs at least 2 groups, found %d", k)
	}

	var all []float64
	for _, g := range data {
		all = append(all, g...)
	}
	grand := table.Mean(all)
	n := float64(len(all))

	var ssb, ssw float64
	for _, g := range data {
		m := table.Mean(g)
		ssb += float64(len(g)) * (m - grand) * (m - grand)
		for _, v := range g {
			ssw += (v - m) * (v - m)
		}
	}

	dfb := float64(k - 1)
	dfw := n - float64(k)
	if dfw <= 0 {
		return nil, fmt.Errorf("not enough observations for %d groups", k)
	}
	f := (ssb / dfb) / (ssw / dfw)
	p := 1 - distuv.F{D1: dfb, D2: dfw}.CDF(f)

	return Results{
		"f_statistic": f,
		"p_value":     p,
		"num_groups":  k,
		"groups":      labels,
	}, nil
}

// correlation computes Pearson, Spearman, or Kendall correlation with a
// two-sided p-value.
func correlation(tbl *table.Table, params map[string]string, method string) (Results, error) {
	xCol, err := param(params, "x_col")
	if err != nil {
		return nil, err
	}
	yCol, err := param(params, "y_col")
	if err != nil {
		return nil, err
	}
	x, y, err := pairedValues(tbl, xCol, yCol)
	if err != nil {
		return nil, err
	}
	n := float64(len(x))
	if n < 3 {
		return nil, fmt.Errorf("correlation needs at least 3 complete pairs")
	}

	var r, p float64
	switch method {
	case "pearson":
		r = stat.Correlation(x, y, nil)
		p = pearsonPValue(r, n)
	case "spearman":
		r = stat.Correlation(table.Ranks(x), table.Ranks(y), nil)
		p = pearsonPValue(r, n)
	case "kendall":
		r, p = kendallTau(x, y)
	default:
		return nil, fmt.Errorf("unknown correlation method %q", method)
	}

	return Results{
		"correlation": r,
		"p_value":     p,
		"n":           len(x),
	}, nil
}

func pearsonPValue(r, n float64) float64 {
	if math.Abs(r) >= 1 {
		return 0
	}
	t := r * math.Sqrt((n-2)/(1-r*r))
	return twoSidedT(t, n-2)
}

// kendallTau computes tau-b with the tie-corrected normal approximation
// for the p-value.
func kendallTau(x, y []float64) (tau, p float64) {
	n := len(x)
	var concordant, discordant float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := x[i] - x[j]
			dy := y[i] - y[j]
			s := dx * dy
			switch {
			case s > 0:
				concordant++
			case s < 0:
				discordant++
			}
		}
	}

	tiesX := tieGroups(x)
	tiesY := tieGroups(y)
	n0 := float64(n*(n-1)) / 2
	n1 := tieSum(tiesX, func(t float64) float64 { return t * (t - 1) / 2 })
	n2 := tieSum(tiesY, func(t float64) float64 { return t * (t - 1) / 2 })

	denom := math.Sqrt((n0 - n1) * (n0 - n2))
	if denom == 0 {
		return math.NaN(), math.NaN()
	}
	tau = (concordant - discordant) / denom

	nf := float64(n)
	v0 := nf * (nf - 1) * (2*nf + 5)
	vt := tieSum(tiesX, func(t float64) float64 { return t * (t - 1) * (2*t + 5) })
	vu := tieSum(tiesY, func(t float64) float64 { return t * (t - 1) * (2*t + 5) })
	v1 := tieSum(tiesX, func(t float64) float64 { return t * (t - 1) }) *
		tieSum(tiesY, func(t float64) float64 { return t * (t - 1) }) /
		(2 * nf * (nf - 1))
	v2 := tieSum(tiesX, func(t float64) float64 { return t * (t - 1) * (t - 2) }) *
		tieSum(tiesY, func(t float64) float64 { return t * (t - 1) * (t - 2) }) /
		(9 * nf * (nf - 1) * (nf - 2))
	variance := (v0-vt-vu)/18 + v1 + v2
	if variance <= 0 {
		return tau, math.NaN()
	}
	z := (concordant - discordant) / math.Sqrt(variance)
	return tau, twoSidedZ(z)
}

func tieGroups(xs []float64) []float64 {
	counts := make(map[float64]float64)
	for _, x := range xs {
		counts[x]++
	}
	var groups []float64
	for _, c := range counts {
		if c > 1 {
			groups = append(groups, c)
		}
	}
	return groups
}

func tieSum(groups []float64, f func(float64) float64) float64 {
	var s float64
	for _, t := range groups {
		s += f(t)
	}
	return s
}

// chi2Contingency is the chi-square test of independence over the cross
// tabulation of two categorical columns.
func chi2Contingency(tbl *table.Table, params map[string]string) (Results, error) {
	rowCol := params["row_col"]
	if rowCol == "" {
		rowCol = params["var1"]
	}
	if rowCol == "" {
		rowCol = params["x_col"]
	}
	colCol := params["col_col"]
	if colCol == "" {
		colCol = params["var2"]
	}
	if colCol == "" {
		colCol = params["y_col"]
	}
	if rowCol == "" || colCol == "" {
		return nil, fmt.Errorf("chi2_contingency requires row_col and col_col parameters")
	}

	rows, ok := tbl.Column(rowCol)
	if !ok {
		return nil, &table.MissingColumnError{Column: rowCol}
	}
	cols, ok := tbl.Column(colCol)
	if !ok {
		return nil, &table.MissingColumnError{Column: colCol}
	}

	observed, rowLabels, colLabels, total := crosstab(rows, cols)
	if len(rowLabels) < 2 || len(colLabels) < 2 {
		return nil, fmt.Errorf("contingency table needs at least 2 levels per variable")
	}

	rowSums := make([]float64, len(rowLabels))
	colSums := make([]float64, len(colLabels))
	for i := range rowLabels {
		for j := range colLabels {
			rowSums[i] += observed[i][j]
			colSums[j] += observed[i][j]
		}
	}

	var chi2 float64
	for i := range rowLabels {
		for j := range colLabels {
			expected := rowSums[i] * colSums[j] / total
			d := observed[i][j] - expected
			chi2 += d * d / expected
		}
	}
	dof := (len(rowLabels) - 1) * (len(colLabels) - 1)

	return Results{
		"chi2_statistic":     chi2,
		"p_value":            chiSquaredSurvival(chi2, float64(dof)),
		"degrees_of_freedom": dof,
		"row_variable":       rowCol,
		"col_variable":       colCol,
		"n":                  int(total),
	}, nil
}

func crosstab(rows, cols []table.Value) (obs [][]float64, rowLabels, colLabels []string, total float64) {
	rowIdx := make(map[string]int)
	colIdx := make(map[string]int)
	type cell struct{ r, c int }
	counts := make(map[cell]float64)

	for i := range rows {
		if rows[i] == nil || cols[i] == nil {
			continue
		}
		rl := fmt.Sprintf("%v", rows[i])
		cl := fmt.Sprintf("%v", cols[i])
		ri, ok := rowIdx[rl]
		if !ok {
			ri = len(rowLabels)
			rowIdx[rl] = ri
			rowLabels = append(rowLabels, rl)
		}
		ci, ok := colIdx[cl]
		if !ok {
			ci = len(colLabels)
			colIdx[cl] = ci
			colLabels = append(colLabels, cl)
		}
		counts[cell{ri, ci}]++
		total++
	}

	obs = make([][]float64, len(rowLabels))
	for i := range obs {
		obs[i] = make([]float64, len(colLabels))
		for j := range obs[i] {
			obs[i][j] = counts[cell{i, j}]
		}
	}
	return obs, rowLabels, colLabels, total
}

// mannWhitneyU is the two-sided Mann-Whitney U test with the tie-corrected
// normal approximation and continuity correction.
func mannWhitneyU(tbl *table.Table, params map[string]string) (Results, error) {
	groupCol, err := param(params, "group_col")
	if err != nil {
		return nil, err
	}
	valueCol, err := param(params, "value_col")
	if err != nil {
		return nil, err
	}
	labels, data, err := groupValues(tbl, groupCol, valueCol)
	if err != nil {
		return nil, err
	}
	if len(labels) != 2 {
		return nil, fmt.Errorf("expected 2 groups, found %d", len(labels))
	}
	a, b := data[0], data[1]
	n1, n2 := float64(len(a)), float64(len(b))
	if n1 == 0 || n2 == 0 {
		return nil, fmt.Errorf("each group needs at least 1 observation")
	}

	combined := append(append([]float64(nil), a...), b...)
	ranks := table.Ranks(combined)
	var r1 float64
	for i := range a {
		r1 += ranks[i]
	}
	u1 := r1 - n1*(n1+1)/2

	n := n1 + n2
	mu := n1 * n2 / 2
	tieTerm := tieSum(tieGroups(combined), func(t float64) float64 { return t*t*t - t })
	sigma := math.Sqrt(n1 * n2 / 12 * ((n + 1) - tieTerm/(n*(n-1))))
	if sigma == 0 {
		return nil, fmt.Errorf("all values are tied")
	}
	z := (u1 - mu - 0.5*sign(u1-mu)) / sigma

	return Results{
		"u_statistic":   u1,
		"p_value":       twoSidedZ(z),
		"group1":        labels[0],
		"group2":        labels[1],
		"group1_median": table.Median(a),
		"group2_median": table.Median(b),
		"group1_n":      len(a),
		"group2_n":      len(b),
	}, nil
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// wilcoxon is the Wilcoxon signed-rank test with the normal approximation.
// Zero differences are discarded before ranking.
func wilcoxon(tbl *table.Table, params map[string]string) (Results, error) {
	col1, err := param(params, "col1")
	if err != nil {
		return nil, err
	}
	col2, err := param(params, "col2")
	if err != nil {
		return nil, err
	}
	a, b, err := pairedValues(tbl, col1, col2)
	if err != nil {
		return nil, err
	}

	var diffs []float64
	for i := range a {
		d := a[i] - b[i]
		if d != 0 {
			diffs = append(diffs, d)
		}
	}
	n := float64(len(diffs))
	if n < 1 {
		return nil, fmt.Errorf("all paired differences are zero")
	}

	abs := make([]float64, len(diffs))
	for i, d := range diffs {
		abs[i] = math.Abs(d)
	}
	ranks := table.Ranks(abs)

	var rPlus, rMinus float64
	for i, d := range diffs {
		if d > 0 {
			rPlus += ranks[i]
		} else {
			rMinus += ranks[i]
		}
	}
	w := math.Min(rPlus, rMinus)

	mu := n * (n + 1) / 4
	tieTerm := tieSum(tieGroups(abs), func(t float64) float64 { return t*t*t - t })
	variance := n*(n+1)*(2*n+1)/24 - tieTerm/48
	if variance <= 0 {
		return nil, fmt.Errorf("all values are tied")
	}
	z := (w - mu) / math.Sqrt(variance)

	return Results{
		"w_statistic": w,
		"p_value":     twoSidedZ(z),
		"col1_median": table.Median(a),
		"col2_median": table.Median(b),
		"n":           len(a),
	}, nil
}

// kruskal is the Kruskal-Wallis H test with tie correction.
func kruskal(tbl *table.Table, params map[string]string) (Results, error) {
	groupCol, err := param(params, "group_col")
	if err != nil {
		return nil, err
	}
	valueCol, err := param(params, "value_col")
	if err != nil {
		return nil, err
	}
	labels, data, err := groupValues(tbl, groupCol, valueCol)
	if err != nil {
		return nil, err
	}
	k := len(labels)
	if k < 2 {
		return nil, fmt.Errorf("Kruskal-Wallis needs at least 2 groups, found %d", k)
	}

	var combined []float64
	sizes := make([]int, k)
	for i, g := range data {
		sizes[i] = len(g)
		combined = append(combined, g...)
	}
	n := float64(len(combined))
	ranks := table.Ranks(combined)

	var h float64
	offset := 0
	for i := range data {
		var rSum float64
		for j := 0; j < sizes[i]; j++ {
			rSum += ranks[offset+j]
		}
		offset += sizes[i]
		h += rSum * rSum / float64(sizes[i])
	}
	h = 12/(n*(n+1))*h - 3*(n+1)

	tieTerm := tieSum(tieGroups(combined), func(t float64) float64 { return t*t*t - t })
	correction := 1 - tieTerm/(n*n*n-n)
	if correction == 0 {
		return nil, fmt.Errorf("all values are tied")
	}
	h /= correction

	return Results{
		"h_statistic": h,
		"p_value":     chiSquaredSurvival(h, float64(k-1)),
		"num_groups":  k,
		"groups":      labels,
	}, nil
}
