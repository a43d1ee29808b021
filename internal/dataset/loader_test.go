package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marinad-syro/inferra/pkg/table"
)

func TestLoadCSVSniffsColumnTypes(t *testing.T) {
	csv := `name, age ,active,note
alice,30,true,hello
bob,25.5,false,
carol,,TRUE,world
`
	tbl, err := (&Loader{}).LoadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "active", "note"}, tbl.Columns())
	assert.Equal(t, 3, tbl.Len())

	ages, _ := tbl.Column("age")
	assert.Equal(t, []table.Value{30.0, 25.5, nil}, ages)

	active, _ := tbl.Column("active")
	assert.Equal(t, []table.Value{true, false, true}, active)

	notes, _ := tbl.Column("note")
	assert.Equal(t, []table.Value{"hello", nil, "world"}, notes)
}

func TestLoadCSVMixedColumnStaysString(t *testing.T) {
	csv := "code\n12\nabc\n"
	tbl, err := (&Loader{}).LoadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	codes, _ := tbl.Column("code")
	assert.Equal(t, []table.Value{"12", "abc"}, codes)
}

func TestLoadCSVNaNLiteralBecomesMissing(t *testing.T) {
	csv := "x\n1\nNaN\n3\n"
	tbl, err := (&Loader{}).LoadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	xs, _ := tbl.Column("x")
	assert.Equal(t, []table.Value{1.0, nil, 3.0}, xs)
}

func TestLoadCSVShortRowsPadWithMissing(t *testing.T) {
	csv := "a,b\n1,2\n3\n"
	tbl, err := (&Loader{}).LoadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	bs, _ := tbl.Column("b")
	assert.Equal(t, []table.Value{2.0, nil}, bs)
}

func TestLoadCSVRowLimit(t *testing.T) {
	csv := "x\n1\n2\n3\n"
	_, err := (&Loader{MaxRows: 2}).LoadCSV(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row limit of 2")
}

func TestLoadJSONPreservesKeyOrder(t *testing.T) {
	data := `[
		{"zeta": 1, "alpha": "x", "mid": true},
		{"zeta": 2, "alpha": "y", "mid": false}
	]`
	tbl, err := (&Loader{}).LoadJSON([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, tbl.Columns())
	zetas, _ := tbl.Column("zeta")
	assert.Equal(t, []table.Value{1.0, 2.0}, zetas)
}

func TestLoadJSONLaterKeysBecomeColumns(t *testing.T) {
	data := `[{"a": 1}, {"a": 2, "extra": "x"}]`
	tbl, err := (&Loader{}).LoadJSON([]byte(data))
	require.NoError(t, err)

	require.True(t, tbl.HasColumn("extra"))
	extras, _ := tbl.Column("extra")
	assert.Equal(t, []table.Value{nil, "x"}, extras)
}

func TestLoadJSONNestedValuesSkipped(t *testing.T) {
	data := `[{"a": 1, "meta": {"deep": [1, 2]}, "b": 2}]`
	tbl, err := (&Loader{}).LoadJSON([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "meta", "b"}, tbl.Columns())
}

func TestLoadJSONRowLimit(t *testing.T) {
	_, err := (&Loader{MaxRows: 1}).LoadJSON([]byte(`[{"a": 1}, {"a": 2}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row limit of 1")
}

func TestLoadJSONRejectsNonArray(t *testing.T) {
	_, err := (&Loader{}).LoadJSON([]byte(`{"a": 1}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse JSON records")
}

func TestLoadFileByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("x\n1\n2\n"), 0o644))

	tbl, err := (&Loader{Dir: dir}).LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}

func TestLoadFileUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.parquet")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := (&Loader{Dir: dir}).LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported dataset format ".parquet"`)
}

func TestLoadFileOutsideAllowedDirectory(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	path := filepath.Join(other, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("x\n1\n"), 0o644))

	_, err := (&Loader{Dir: dir}).LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the allowed directory")
}

func TestLoadFileTraversalRejected(t *testing.T) {
	dir := t.TempDir()
	_, err := (&Loader{Dir: dir}).LoadFile(filepath.Join(dir, "..", "escape.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the allowed directory")
}

func TestLoadFileMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := (&Loader{Dir: dir}).LoadFile(filepath.Join(dir, "absent.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read dataset")
}
