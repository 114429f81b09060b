package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchedStore_BuffersWithFakeIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	// Insert a real file into the database (the single-writer phase).
	f := insertTestFile(t, s, "/lib.rs", "rust")

	// Create a BatchedStore (what a worker goroutine uses).
	batch := NewBatchedStore()

	id1, err := batch.InsertSymbol(&Symbol{FileID: &f.ID, Name: "foo", Kind: "function"})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), id1, "batched IDs should be negative")

	id2, err := batch.InsertSymbol(&Symbol{FileID: &f.ID, Name: "Bar", Kind: "struct"})
	require.NoError(t, err)
	assert.Equal(t, int64(-2), id2)
	assert.Equal(t, 2, batch.Len())

	// Nothing reaches SQLite until the batch is committed.
	syms, err := s.SymbolsByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, syms)

	require.NoError(t, s.CommitBatch(batch))
	syms, err = s.SymbolsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, "foo", syms[0].Name)
	assert.Equal(t, "Bar", syms[1].Name)
	for _, sym := range syms {
		assert.Positive(t, sym.ID, "committed symbols get real IDs")
	}
}

func TestCommitBatch_RemapsParentIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/lib.rs", "rust")

	batch := NewBatchedStore()
	parentID, err := batch.InsertSymbol(&Symbol{FileID: &f.ID, Name: "Foo", Kind: "struct"})
	require.NoError(t, err)
	_, err = batch.InsertSymbol(&Symbol{FileID: &f.ID, Name: "spam", Kind: "field", Container: "Foo", ParentSymbolID: &parentID})
	require.NoError(t, err)

	require.NoError(t, s.CommitBatch(batch))

	parents, err := s.SymbolsByName("Foo")
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Positive(t, parents[0].ID)

	children, err := s.SymbolChildren(parents[0].ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "spam", children[0].Name)
}

func TestCommitBatch_UnknownParentFails(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/lib.rs", "rust")

	batch := NewBatchedStore()
	missing := int64(-42)
	_, err := batch.InsertSymbol(&Symbol{FileID: &f.ID, Name: "orphan", Kind: "field", ParentSymbolID: &missing})
	require.NoError(t, err)

	err = s.CommitBatch(batch)
	require.Error(t, err)

	syms, err := s.SymbolsByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, syms, "failed batch is rolled back")
}
