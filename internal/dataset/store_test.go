package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marinad-syro/inferra/pkg/table"
)

func storeTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New()
	require.NoError(t, tbl.SetColumn("x", []table.Value{1.0, 2.0}))
	return tbl
}

func TestStoreAddAndGet(t *testing.T) {
	s := NewStore()
	id := s.Add("survey", storeTable(t))
	require.NotEmpty(t, id)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore()
	id := s.Add("survey", storeTable(t))

	got, err := s.Get(id)
	require.NoError(t, err)
	require.NoError(t, got.SetColumn("y", []table.Value{9.0, 9.0}))

	again, err := s.Get(id)
	require.NoError(t, err)
	assert.False(t, again.HasColumn("y"), "mutating a fetched table must not touch the store")
}

func TestStoreGetUnknownID(t *testing.T) {
	s := NewStore()
	_, err := s.Get("missing-id")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing-id", notFound.ID)
	assert.Equal(t, `dataset "missing-id" not found`, err.Error())
}

func TestStoreReplace(t *testing.T) {
	s := NewStore()
	id := s.Add("survey", storeTable(t))

	bigger := table.New()
	require.NoError(t, bigger.SetColumn("x", []table.Value{1.0, 2.0, 3.0}))
	require.NoError(t, s.Replace(id, bigger))

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len())
}

func TestStoreReplaceUnknownID(t *testing.T) {
	s := NewStore()
	var notFound *NotFoundError
	assert.ErrorAs(t, s.Replace("nope", storeTable(t)), &notFound)
}

func TestStoreDelete(t *testing.T) {
	s := NewStore()
	id := s.Add("survey", storeTable(t))

	s.Delete(id)
	_, err := s.Get(id)
	assert.Error(t, err)

	s.Delete("already-gone")
}

func TestStoreList(t *testing.T) {
	s := NewStore()
	assert.Empty(t, s.List())

	first := s.Add("one", storeTable(t))
	second := s.Add("two", storeTable(t))

	infos := s.List()
	require.Len(t, infos, 2)
	assert.Equal(t, first, infos[0].ID)
	assert.Equal(t, "one", infos[0].Name)
	assert.Equal(t, second, infos[1].ID)
	assert.Equal(t, 2, infos[0].Rows)
	assert.Equal(t, []string{"x"}, infos[0].Columns)
}
