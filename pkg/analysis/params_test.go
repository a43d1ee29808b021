package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marinad-syro/inferra/pkg/table"
)

func surveyTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("respondent", []table.Value{"r1", "r2", "r3", "r4"}))
	require.NoError(t, tbl.SetColumn("score", []table.Value{10.0, 20.0, 30.0, 40.0}))
	require.NoError(t, tbl.SetColumn("age", []table.Value{25.0, 35.0, 45.0, 55.0}))
	require.NoError(t, tbl.SetColumn("cohort", []table.Value{"a", "b", "a", "b"}))
	return tbl
}

func TestMapParametersExplicitColumnWins(t *testing.T) {
	hints := map[string]ParamHint{
		"value_col": {Type: "value", Column: "age"},
	}
	mapped, err := MapParameters(hints, surveyTable(t))
	require.NoError(t, err)
	assert.Equal(t, "age", mapped["value_col"])
}

func TestMapParametersExplicitColumnMustExist(t *testing.T) {
	hints := map[string]ParamHint{
		"value_col": {Type: "value", Column: "nope"},
	}
	_, err := MapParameters(hints, surveyTable(t))

	var missing *table.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "nope", missing.Column)
}

func TestMapParametersGroupInference(t *testing.T) {
	// respondent has 4 distinct values on 4 rows, so it qualifies too; the
	// first qualifying non-numeric column wins.
	hints := map[string]ParamHint{
		"group_col": {Type: "group"},
		"value_col": {Type: "value"},
	}
	mapped, err := MapParameters(hints, surveyTable(t))
	require.NoError(t, err)
	assert.Equal(t, "respondent", mapped["group_col"])
	assert.Equal(t, "score", mapped["value_col"])
}

func TestMapParametersNumericColumnsNotReused(t *testing.T) {
	hints := map[string]ParamHint{
		"x_col": {Type: "x"},
		"y_col": {Type: "y"},
	}
	mapped, err := MapParameters(hints, surveyTable(t))
	require.NoError(t, err)
	assert.Equal(t, "score", mapped["x_col"])
	assert.Equal(t, "age", mapped["y_col"])
	assert.NotEqual(t, mapped["x_col"], mapped["y_col"])
}

func TestMapParametersNoNumericColumn(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("name", []table.Value{"a", "b"}))

	_, err := MapParameters(map[string]ParamHint{"value_col": {Type: "value"}}, tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no suitable numeric column")
}

func TestMapParametersNoGroupColumn(t *testing.T) {
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("x", []table.Value{1.0, 2.0}))

	_, err := MapParameters(map[string]ParamHint{"group_col": {Type: "group"}}, tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no suitable grouping column")
}

func TestMapParametersUnknownType(t *testing.T) {
	_, err := MapParameters(map[string]ParamHint{"p": {Type: "widget"}}, surveyTable(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown parameter type "widget"`)
}
