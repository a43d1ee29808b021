package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marinad-syro/inferra/pkg/table"
)

func numericTable(t *testing.T, name string, values ...float64) *table.Table {
	t.Helper()
	tbl := table.New()
	cells := make([]table.Value, len(values))
	for i, v := range values {
		cells[i] = v
	}
	require.NoError(t, tbl.SetColumn(name, cells))
	return tbl
}

func floats(t *testing.T, values []table.Value) []float64 {
	t.Helper()
	out := make([]float64, len(values))
	for i, v := range values {
		f, ok := table.AsFloat(v)
		require.True(t, ok, "value %d is %T, not numeric", i, v)
		out[i] = f
	}
	return out
}

func TestZScoreMoments(t *testing.T) {
	tbl := numericTable(t, "x", 10, 20, 30, 40, 50)

	values, err := Dispatch(tbl, "z_score", []any{"x"}, nil)
	require.NoError(t, err)

	zs := floats(t, values)
	assert.InDelta(t, 0.0, table.Mean(zs), 1e-9)
	assert.InDelta(t, 1.0, table.Std(zs), 1e-9)
}

func TestZScoreConstantColumn(t *testing.T) {
	tbl := numericTable(t, "x", 7, 7, 7)

	values, err := Dispatch(tbl, "z_score", []any{"x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []table.Value{0.0, 0.0, 0.0}, values)
}

func TestNormalizeEndpoints(t *testing.T) {
	tbl := numericTable(t, "x", 5, 10, 15, 20)

	values, err := Dispatch(tbl, "normalize", []any{"x"}, nil)
	require.NoError(t, err)

	out := floats(t, values)
	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 1.0, out[3])
	assert.InDelta(t, 1.0/3.0, out[1], 1e-12)
}

func TestNormalizeCustomRange(t *testing.T) {
	tbl := numericTable(t, "x", 0, 50, 100)

	values, err := Dispatch(tbl, "normalize", []any{"x"}, map[string]any{
		"min_val": -1.0,
		"max_val": 1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, []table.Value{-1.0, 0.0, 1.0}, values)
}

func TestNormalizeConstantColumn(t *testing.T) {
	tbl := numericTable(t, "x", 3, 3)

	values, err := Dispatch(tbl, "normalize", []any{"x"}, map[string]any{"min_val": 0.2})
	require.NoError(t, err)
	assert.Equal(t, []table.Value{0.2, 0.2}, values)
}

func TestMapBinary(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("status", []table.Value{"Active", "Inactive", "Active"}))

	values, err := Dispatch(tbl, "map_binary", []any{"status"}, map[string]any{
		"mapping": map[string]any{"Active": 1.0, "Inactive": 0.0},
	})
	require.NoError(t, err)
	assert.Equal(t, []table.Value{1.0, 0.0, 1.0}, values)
}

func TestMapBinaryFailureNamesMapBinary(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("status", []table.Value{"Active"}))

	_, err := Dispatch(tbl, "map_binary", []any{"missing"}, map[string]any{
		"mapping": map[string]any{"Active": 1.0},
	})
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "map_binary", re.Fn)
}

func TestMapCategoricalUnmappedBecomesNil(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("grade", []table.Value{"A", "B", "C"}))

	values, err := Dispatch(tbl, "map_categorical", []any{"grade"}, map[string]any{
		"mapping": map[string]any{"A": 4.0, "B": 3.0},
	})
	require.NoError(t, err)
	assert.Equal(t, 4.0, values[0])
	assert.Equal(t, 3.0, values[1])
	assert.Nil(t, values[2])
}

func TestMapCategoricalNumericKeys(t *testing.T) {
	tbl := numericTable(t, "code", 1, 2)

	values, err := Dispatch(tbl, "map_categorical", []any{"code"}, map[string]any{
		"mapping": map[string]any{"1": "one", "2": "two"},
	})
	require.NoError(t, err)
	assert.Equal(t, []table.Value{"one", "two"}, values)
}

func TestCompositeScoreRange(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("a", []table.Value{1.0, 5.0, 3.0}))
	require.NoError(t, tbl.SetColumn("b", []table.Value{100.0, 0.0, 50.0}))

	values, err := Dispatch(tbl, "composite_score", []any{[]any{"a", "b"}}, nil)
	require.NoError(t, err)

	for _, v := range floats(t, values) {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestCompositeScoreWeightsRenormalized(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("a", []table.Value{0.0, 1.0}))
	require.NoError(t, tbl.SetColumn("b", []table.Value{0.0, 1.0}))

	// weights 2 and 6 behave like 0.25 and 0.75
	values, err := Dispatch(tbl, "composite_score", []any{[]any{"a", "b"}}, map[string]any{
		"weights": []any{2.0, 6.0},
	})
	require.NoError(t, err)
	assert.Equal(t, []table.Value{0.0, 1.0}, values)
}

func TestCompositeScoreWeightCountMismatch(t *testing.T) {
	tbl := numericTable(t, "a", 1, 2)

	_, err := Dispatch(tbl, "composite_score", []any{[]any{"a"}}, map[string]any{
		"weights": []any{0.5, 0.5},
	})
	var invalid *InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
}

func TestConditionalValue(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("status", []table.Value{"yes", "no", "yes"}))

	values, err := Dispatch(tbl, "conditional_value", []any{"status"}, map[string]any{
		"equals":   "yes",
		"if_true":  1.0,
		"if_false": 0.0,
	})
	require.NoError(t, err)
	assert.Equal(t, []table.Value{1.0, 0.0, 1.0}, values)
}

func TestConditionalNumeric(t *testing.T) {
	tbl := numericTable(t, "age", 10, 20, 30)

	values, err := Dispatch(tbl, "conditional_numeric", []any{"age"}, map[string]any{
		"operator":  ">=",
		"threshold": 20.0,
		"if_true":   "adult",
		"if_false":  "minor",
	})
	require.NoError(t, err)
	assert.Equal(t, []table.Value{"minor", "adult", "adult"}, values)
}

func TestConditionalNumericBadOperator(t *testing.T) {
	tbl := numericTable(t, "x", 1)

	_, err := Dispatch(tbl, "conditional_numeric", []any{"x"}, map[string]any{
		"operator":  "~",
		"threshold": 0.0,
		"if_true":   1.0,
		"if_false":  0.0,
	})
	var invalid *InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
}

func TestConditionalNumericMissingBranchesFalse(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("x", []table.Value{5.0, nil}))

	values, err := Dispatch(tbl, "conditional_numeric", []any{"x"}, map[string]any{
		"operator":  ">",
		"threshold": 0.0,
		"if_true":   "t",
		"if_false":  "f",
	})
	require.NoError(t, err)
	assert.Equal(t, []table.Value{"t", "f"}, values)
}

func TestPercentileRank(t *testing.T) {
	tbl := numericTable(t, "x", 10, 20, 30, 40)

	values, err := Dispatch(tbl, "percentile_rank", []any{"x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []table.Value{25.0, 50.0, 75.0, 100.0}, values)
}

func TestBinNumeric(t *testing.T) {
	tbl := numericTable(t, "age", 10, 25, 45, 70, 15)

	values, err := Dispatch(tbl, "bin_numeric", []any{"age"}, map[string]any{
		"bins":   []any{0.0, 18.0, 65.0, 100.0},
		"labels": []any{"Child", "Adult", "Senior"},
	})
	require.NoError(t, err)
	assert.Equal(t, []table.Value{"Child", "Adult", "Adult", "Senior", "Child"}, values)
}

func TestBinNumericOutOfRangeIsNil(t *testing.T) {
	tbl := numericTable(t, "x", -5, 50, 150)

	values, err := Dispatch(tbl, "bin_numeric", []any{"x"}, map[string]any{
		"bins": []any{0.0, 100.0},
	})
	require.NoError(t, err)
	assert.Nil(t, values[0])
	assert.NotNil(t, values[1])
	assert.Nil(t, values[2])
}

func TestBinNumericUnsortedEdges(t *testing.T) {
	tbl := numericTable(t, "x", 1)

	_, err := Dispatch(tbl, "bin_numeric", []any{"x"}, map[string]any{
		"bins": []any{10.0, 0.0},
	})
	var invalid *InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
}

func TestLogTransform(t *testing.T) {
	tbl := numericTable(t, "x", 1, math.E, 100)

	values, err := Dispatch(tbl, "log_transform", []any{"x"}, nil)
	require.NoError(t, err)
	out := floats(t, values)
	assert.InDelta(t, 0.0, out[0], 1e-12)
	assert.InDelta(t, 1.0, out[1], 1e-12)

	values, err = Dispatch(tbl, "log_transform", []any{"x"}, map[string]any{"base": 10.0})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, floats(t, values)[2], 1e-12)
}

func TestLogTransformRejectsNonPositive(t *testing.T) {
	tbl := numericTable(t, "x", 1, 0)

	_, err := Dispatch(tbl, "log_transform", []any{"x"}, nil)
	var runtimeErr *RuntimeError
	require.ErrorAs(t, err, &runtimeErr)
	assert.Contains(t, err.Error(), "non-positive")
}

func TestWinsorize(t *testing.T) {
	tbl := numericTable(t, "x", 1, 2, 3, 4, 5, 6, 7, 8, 9, 100)

	values, err := Dispatch(tbl, "winsorize", []any{"x"}, map[string]any{
		"lower_pct": 10.0,
		"upper_pct": 90.0,
	})
	require.NoError(t, err)

	out := floats(t, values)
	lo := table.Quantile([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}, 0.10)
	hi := table.Quantile([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}, 0.90)
	assert.Equal(t, lo, out[0])
	assert.Equal(t, hi, out[9])
	assert.Equal(t, 5.0, out[4])
}

func TestWinsorizeBadBounds(t *testing.T) {
	tbl := numericTable(t, "x", 1)

	_, err := Dispatch(tbl, "winsorize", []any{"x"}, map[string]any{
		"lower_pct": 90.0,
		"upper_pct": 10.0,
	})
	var invalid *InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
}
