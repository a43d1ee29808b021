package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetColumn(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetColumn("a", []Value{1.0, 2.0, 3.0}))
	require.NoError(t, tbl.SetColumn("b", []Value{"x", "y", "z"}))

	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"a", "b"}, tbl.Columns())

	// length mismatch
	err := tbl.SetColumn("c", []Value{1.0})
	assert.Error(t, err)

	// replacing keeps the column order
	require.NoError(t, tbl.SetColumn("a", []Value{4.0, 5.0, 6.0}))
	assert.Equal(t, []string{"a", "b"}, tbl.Columns())
}

func TestSetColumnNormalizesInts(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetColumn("n", []Value{1, int64(2), float32(3)}))

	values, ok := tbl.Column("n")
	require.True(t, ok)
	assert.Equal(t, []Value{1.0, 2.0, 3.0}, values)
}

func TestFromRecords(t *testing.T) {
	tbl := FromRecords([]string{"name", "score"}, []map[string]any{
		{"name": "a", "score": 1.5},
		{"name": "b"}, // missing score
	})

	assert.Equal(t, 2, tbl.Len())
	scores, ok := tbl.Column("score")
	require.True(t, ok)
	assert.Equal(t, 1.5, scores[0])
	assert.Nil(t, scores[1])
}

func TestDropColumn(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetColumn("a", []Value{1.0}))
	require.NoError(t, tbl.SetColumn("b", []Value{2.0}))

	tbl.DropColumn("a")
	assert.Equal(t, []string{"b"}, tbl.Columns())
	assert.False(t, tbl.HasColumn("a"))

	// unknown names are a no-op
	tbl.DropColumn("nope")
	assert.Equal(t, []string{"b"}, tbl.Columns())
}

func TestFilter(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetColumn("a", []Value{1.0, 2.0, 3.0, 4.0}))

	require.NoError(t, tbl.Filter([]bool{true, false, true, false}))
	values, _ := tbl.Column("a")
	assert.Equal(t, []Value{1.0, 3.0}, values)

	assert.Error(t, tbl.Filter([]bool{true}))
}

func TestCloneIsDeep(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetColumn("a", []Value{1.0, 2.0}))

	c := tbl.Clone()
	require.NoError(t, c.SetColumn("a", []Value{9.0, 9.0}))

	orig, _ := tbl.Column("a")
	assert.Equal(t, []Value{1.0, 2.0}, orig)
}

func TestSetColumnNormalizesNaNToMissing(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetColumn("x", []Value{1.0, math.NaN(), math.Inf(1)}))

	values, ok := tbl.Column("x")
	require.True(t, ok)
	assert.Equal(t, 1.0, values[0])
	assert.Nil(t, values[1])
	assert.Nil(t, values[2])
}

func TestRecordsMapsNaNToNil(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetColumn("x", []Value{1.0, math.NaN()}))

	records := tbl.Records()
	require.Len(t, records, 2)
	assert.Equal(t, 1.0, records[0]["x"])
	assert.Nil(t, records[1]["x"])
}

func TestSampleRecords(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetColumn("x", []Value{1.0, 2.0, 3.0}))
	require.NoError(t, tbl.SetColumn("y", []Value{"a", "b", "c"}))

	sample := tbl.SampleRecords(2, []string{"y"})
	require.Len(t, sample, 2)
	assert.Equal(t, map[string]any{"y": "a"}, sample[0])

	// n larger than the table is clamped
	assert.Len(t, tbl.SampleRecords(10, nil), 3)
}

func TestNumericColumn(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetColumn("x", []Value{1.0, nil, 3.0}))
	require.NoError(t, tbl.SetColumn("s", []Value{"a", "b", "c"}))

	nums, err := tbl.NumericColumn("x")
	require.NoError(t, err)
	assert.Equal(t, 1.0, nums[0])
	assert.True(t, math.IsNaN(nums[1]))
	assert.Equal(t, 3.0, nums[2])

	_, err = tbl.NumericColumn("s")
	assert.Error(t, err)

	_, err = tbl.NumericColumn("missing")
	var missing *MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "missing", missing.Column)
}

func TestIsNumeric(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.SetColumn("x", []Value{1.0, nil, 3.0}))
	require.NoError(t, tbl.SetColumn("s", []Value{"a", nil, "c"}))

	assert.True(t, tbl.IsNumeric("x"))
	assert.False(t, tbl.IsNumeric("s"))
	assert.False(t, tbl.IsNumeric("missing"))
}
