package badger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/db/storetest"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecords(t *testing.T) {
	storetest.Records(t, openInMemory(t))
}

func TestChats(t *testing.T) {
	storetest.Chats(t, openInMemory(t))
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	r := storetest.NewRecord()
	require.NoError(t, s.Create(t.Context(), r))
	_, err = s.SetFacet(t.Context(), r.ID, "ingredients", []byte(`{"ingredients":[]}`), false)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(t.Context(), r.ID)
	require.NoError(t, err)
	require.Equal(t, `{"ingredients":[]}`, string(got.IngredientsData))
}

func TestLargeImageOnDisk(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	storetest.LargeImage(t, s, storetest.LargeImageBytes)
}

func TestLargeImageInMemory(t *testing.T) {
	storetest.LargeImage(t, openInMemory(t), InMemoryImageLimit)
}
