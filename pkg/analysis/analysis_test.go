package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marinad-syro/inferra/pkg/table"
)

func twoGroupTable(t *testing.T, a, b []float64) *table.Table {
	t.Helper()
	tbl := table.New()
	groups := make([]table.Value, 0, len(a)+len(b))
	values := make([]table.Value, 0, len(a)+len(b))
	for _, v := range a {
		groups = append(groups, "a")
		values = append(values, v)
	}
	for _, v := range b {
		groups = append(groups, "b")
		values = append(values, v)
	}
	require.NoError(t, tbl.SetColumn("group", groups))
	require.NoError(t, tbl.SetColumn("value", values))
	return tbl
}

func pairedTable(t *testing.T, a, b []float64) *table.Table {
	t.Helper()
	tbl := table.New()
	ca := make([]table.Value, len(a))
	cb := make([]table.Value, len(b))
	for i := range a {
		ca[i] = a[i]
		cb[i] = b[i]
	}
	require.NoError(t, tbl.SetColumn("before", ca))
	require.NoError(t, tbl.SetColumn("after", cb))
	return tbl
}

func TestRunUnsupportedFunction(t *testing.T) {
	_, err := Run(table.New(), "bootstrap", nil)

	var unsupported *UnsupportedFunctionError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "bootstrap", unsupported.Function)
	assert.Contains(t, err.Error(), "bootstrap")
}

func TestFunctionsListsAllSupported(t *testing.T) {
	want := []string{
		"chi2_contingency", "f_oneway", "kendalltau", "kruskal",
		"mannwhitneyu", "ols", "pearsonr", "spearmanr",
		"ttest_ind", "ttest_rel", "wilcoxon",
	}
	assert.Equal(t, want, Functions())
}

func TestTTestIndIdenticalGroups(t *testing.T) {
	tbl := twoGroupTable(t, []float64{1, 2, 3}, []float64{1, 2, 3})
	res, err := Run(tbl, "ttest_ind", map[string]string{"group_col": "group", "value_col": "value"})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, res["t_statistic"].(float64), 1e-12)
	assert.InDelta(t, 1.0, res["p_value"].(float64), 1e-9)
	assert.Equal(t, "a", res["group1"])
	assert.Equal(t, "b", res["group2"])
	assert.InDelta(t, 2.0, res["group1_mean"].(float64), 1e-12)
	assert.Equal(t, 3, res["group1_n"])
}

func TestTTestIndNeedsTwoGroups(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("group", []table.Value{"a", "a", "a"}))
	require.NoError(t, tbl.SetColumn("value", []table.Value{1.0, 2.0, 3.0}))

	_, err := Run(tbl, "ttest_ind", map[string]string{"group_col": "group", "value_col": "value"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 groups, found 1")
}

func TestTTestIndMissingParameter(t *testing.T) {
	_, err := Run(table.New(), "ttest_ind", map[string]string{"group_col": "group"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `requires parameter "value_col"`)
}

func TestTTestRelSymmetricDifferences(t *testing.T) {
	tbl := pairedTable(t, []float64{1, 2, 3, 4}, []float64{4, 3, 2, 1})
	res, err := Run(tbl, "ttest_rel", map[string]string{"col1": "before", "col2": "after"})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, res["t_statistic"].(float64), 1e-12)
	assert.InDelta(t, 1.0, res["p_value"].(float64), 1e-9)
	assert.Equal(t, 4, res["n"])
}

func TestFOnewayEqualGroupMeans(t *testing.T) {
	tbl := twoGroupTable(t, []float64{1, 2, 3}, []float64{1, 2, 3})
	res, err := Run(tbl, "f_oneway", map[string]string{"group_col": "group", "value_col": "value"})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, res["f_statistic"].(float64), 1e-12)
	assert.InDelta(t, 1.0, res["p_value"].(float64), 1e-9)
	assert.Equal(t, 2, res["num_groups"])
	assert.Equal(t, []string{"a", "b"}, res["groups"])
}

func TestPearsonPerfectCorrelation(t *testing.T) {
	tbl := pairedTable(t, []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8})
	res, err := Run(tbl, "pearsonr", map[string]string{"x_col": "before", "y_col": "after"})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res["correlation"].(float64), 1e-9)
	assert.InDelta(t, 0.0, res["p_value"].(float64), 1e-12)
	assert.Equal(t, 4, res["n"])
}

func TestPearsonSkipsIncompletePairs(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("x", []table.Value{1.0, 2.0, nil, 3.0, 4.0}))
	require.NoError(t, tbl.SetColumn("y", []table.Value{2.0, 4.0, 5.0, 6.0, 8.0}))

	res, err := Run(tbl, "pearsonr", map[string]string{"x_col": "x", "y_col": "y"})
	require.NoError(t, err)
	assert.Equal(t, 4, res["n"])
	assert.InDelta(t, 1.0, res["correlation"].(float64), 1e-9)
}

func TestPearsonTooFewPairs(t *testing.T) {
	tbl := pairedTable(t, []float64{1, 2}, []float64{2, 4})
	_, err := Run(tbl, "pearsonr", map[string]string{"x_col": "before", "y_col": "after"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 3 complete pairs")
}

func TestSpearmanMonotonicNonlinear(t *testing.T) {
	tbl := pairedTable(t, []float64{1, 2, 3, 4}, []float64{1, 4, 9, 16})
	res, err := Run(tbl, "spearmanr", map[string]string{"x_col": "before", "y_col": "after"})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res["correlation"].(float64), 1e-9)
	assert.InDelta(t, 0.0, res["p_value"].(float64), 1e-12)
}

func TestKendallPerfectAgreement(t *testing.T) {
	tbl := pairedTable(t, []float64{1, 2, 3, 4}, []float64{10, 20, 30, 40})
	res, err := Run(tbl, "kendalltau", map[string]string{"x_col": "before", "y_col": "after"})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res["correlation"].(float64), 1e-9)
	p := res["p_value"].(float64)
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 1.0)
}

func TestChi2IndependentVariables(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("treatment", []table.Value{"a", "a", "b", "b", "a", "a", "b", "b"}))
	require.NoError(t, tbl.SetColumn("outcome", []table.Value{"x", "y", "x", "y", "x", "y", "x", "y"}))

	res, err := Run(tbl, "chi2_contingency", map[string]string{"row_col": "treatment", "col_col": "outcome"})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, res["chi2_statistic"].(float64), 1e-12)
	assert.InDelta(t, 1.0, res["p_value"].(float64), 1e-9)
	assert.Equal(t, 1, res["degrees_of_freedom"])
	assert.Equal(t, 8, res["n"])
	assert.Equal(t, "treatment", res["row_variable"])
}

func TestChi2AcceptsVarAliases(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("a", []table.Value{"x", "x", "y", "y"}))
	require.NoError(t, tbl.SetColumn("b", []table.Value{"p", "q", "p", "q"}))

	_, err := Run(tbl, "chi2_contingency", map[string]string{"var1": "a", "var2": "b"})
	assert.NoError(t, err)
}

func TestMannWhitneyUSeparatedGroups(t *testing.T) {
	tbl := twoGroupTable(t, []float64{1, 2, 3}, []float64{4, 5, 6})
	res, err := Run(tbl, "mannwhitneyu", map[string]string{"group_col": "group", "value_col": "value"})
	require.NoError(t, err)

	// Group a ranks 1-3: U1 = 6 - 3*4/2 = 0.
	assert.InDelta(t, 0.0, res["u_statistic"].(float64), 1e-12)
	assert.InDelta(t, 2.0, res["group1_median"].(float64), 1e-12)
	assert.InDelta(t, 5.0, res["group2_median"].(float64), 1e-12)
	p := res["p_value"].(float64)
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 1.0)
}

func TestWilcoxonDropsZeroDifferences(t *testing.T) {
	tbl := pairedTable(t, []float64{1, 2, 3, 4, 5}, []float64{2, 1, 4, 3, 7})
	res, err := Run(tbl, "wilcoxon", map[string]string{"col1": "before", "col2": "after"})
	require.NoError(t, err)

	// |diffs| = [1,1,1,1,2], ranks [2.5 x4, 5]; positive diffs rank-sum 5.
	assert.InDelta(t, 5.0, res["w_statistic"].(float64), 1e-12)
	assert.Equal(t, 5, res["n"])
}

func TestWilcoxonAllZeroDifferences(t *testing.T) {
	tbl := pairedTable(t, []float64{1, 2, 3}, []float64{1, 2, 3})
	_, err := Run(tbl, "wilcoxon", map[string]string{"col1": "before", "col2": "after"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all paired differences are zero")
}

func TestKruskalSeparatedGroups(t *testing.T) {
	tbl := twoGroupTable(t, []float64{1, 2, 3}, []float64{4, 5, 6})
	res, err := Run(tbl, "kruskal", map[string]string{"group_col": "group", "value_col": "value"})
	require.NoError(t, err)

	// Rank sums 6 and 15: H = 12/42*(12+75) - 21 = 27/7.
	assert.InDelta(t, 27.0/7, res["h_statistic"].(float64), 1e-9)
	assert.Equal(t, 2, res["num_groups"])
}

func TestOLSSimpleRegression(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("x", []table.Value{1.0, 2.0, 3.0, 4.0, 5.0}))
	require.NoError(t, tbl.SetColumn("y", []table.Value{2.0, 4.0, 5.0, 4.0, 5.0}))

	res, err := Run(tbl, "ols", map[string]string{"dependent": "y", "independent": "x"})
	require.NoError(t, err)

	assert.InDelta(t, 0.6, res["rsquared"].(float64), 1e-9)
	coefs := res["params"].(map[string]any)
	assert.InDelta(t, 2.2, coefs["Intercept"].(float64), 1e-9)
	assert.InDelta(t, 0.6, coefs["x"].(float64), 1e-9)
	pvalues := res["pvalues"].(map[string]any)
	assert.Contains(t, pvalues, "x")
}

func TestOLSMultiplePredictors(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("y", []table.Value{3.0, 5.0, 8.0, 9.0, 12.0, 14.0}))
	require.NoError(t, tbl.SetColumn("a", []table.Value{1.0, 2.0, 3.0, 4.0, 5.0, 6.0}))
	require.NoError(t, tbl.SetColumn("b", []table.Value{1.0, 1.0, 2.0, 1.0, 2.0, 3.0}))

	res, err := Run(tbl, "ols", map[string]string{"dependent": "y", "independent": "a + b"})
	require.NoError(t, err)

	coefs := res["params"].(map[string]any)
	assert.Contains(t, coefs, "a")
	assert.Contains(t, coefs, "b")
	assert.Greater(t, res["rsquared"].(float64), 0.9)
}

func TestOLSCollinearPredictors(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("y", []table.Value{1.0, 2.0, 3.0, 4.0, 5.0}))
	require.NoError(t, tbl.SetColumn("a", []table.Value{1.0, 2.0, 3.0, 4.0, 5.0}))
	require.NoError(t, tbl.SetColumn("b", []table.Value{2.0, 4.0, 6.0, 8.0, 10.0}))

	_, err := Run(tbl, "ols", map[string]string{"dependent": "y", "independent": "a + b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "singular")
}
