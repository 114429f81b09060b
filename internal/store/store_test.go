package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestFile is a helper that inserts a file and returns it with ID set.
func insertTestFile(t *testing.T, s *Store, path, lang string) *File {
	t.Helper()
	f := &File{Path: path, Language: lang, Hash: "abc123", Content: "fn main() {}\n", LineCount: 1, LastIndexed: time.Now().Truncate(time.Second)}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

// insertTestSymbol inserts a symbol with minimal required fields.
func insertTestSymbol(t *testing.T, s *Store, fileID *int64, name, kind string) *Symbol {
	t.Helper()
	sym := &Symbol{
		FileID:     fileID,
		Name:       name,
		Kind:       kind,
		Visibility: "pub",
		StartByte:  0, EndByte: 20, FocusStart: 7, FocusEnd: 7 + len(name),
	}
	id, err := s.InsertSymbol(sym)
	require.NoError(t, err)
	require.Positive(t, id)
	return sym
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "symbols"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

// =============================================================================
// File operations
// =============================================================================

func TestFile_InsertAndRetrieve(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	now := time.Now().Truncate(time.Second)
	f := &File{Path: "/src/lib.rs", Language: "rust", Hash: "sha256abc", LineCount: 2, Content: "mod a;\nmod b;\n", LastIndexed: now}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)

	got, err := s.FileByPath("/src/lib.rs")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "/src/lib.rs", got.Path)
	assert.Equal(t, "rust", got.Language)
	assert.Equal(t, "sha256abc", got.Hash)
	assert.Equal(t, 2, got.LineCount)
	assert.Equal(t, "mod a;\nmod b;\n", got.Content)
}

func TestFile_ByPathNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	got, err := s.FileByPath("/nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFile_Update(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/lib.rs", "rust")

	f.Hash = "changed"
	f.Content = "struct Foo;\n"
	require.NoError(t, s.UpdateFile(f))

	got, err := s.FileByPath("/lib.rs")
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Hash)
	assert.Equal(t, "struct Foo;\n", got.Content)
}

func TestFile_ListAndByLanguage(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "/a.rs", "rust")
	insertTestFile(t, s, "/b.rs", "rust")
	insertTestFile(t, s, "/c.toml", "toml")

	all, err := s.Files()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "/a.rs", all[0].Path)
	assert.Equal(t, "/c.toml", all[2].Path)

	rs, err := s.FilesByLanguage("rust")
	require.NoError(t, err)
	assert.Len(t, rs, 2)
}

func TestDeleteFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "/a.rs", "rust")
	b := insertTestFile(t, s, "/b.rs", "rust")
	parent := insertTestSymbol(t, s, &a.ID, "Foo", "struct")
	_, err := s.InsertSymbol(&Symbol{FileID: &a.ID, Name: "new", Kind: "function", ParentSymbolID: &parent.ID})
	require.NoError(t, err)
	insertTestSymbol(t, s, &b.ID, "Bar", "struct")

	require.NoError(t, s.DeleteFiles([]int64{a.ID}))
	require.NoError(t, s.DeleteFiles(nil))

	got, err := s.FileByPath("/a.rs")
	require.NoError(t, err)
	assert.Nil(t, got)
	syms, err := s.SymbolsByFile(a.ID)
	require.NoError(t, err)
	assert.Empty(t, syms)

	syms, err = s.SymbolsByFile(b.ID)
	require.NoError(t, err)
	assert.Len(t, syms, 1)
}

// =============================================================================
// Symbol operations
// =============================================================================

func TestSymbol_InsertAndQueryByFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/lib.rs", "rust")

	sym := &Symbol{
		FileID: &f.ID, Name: "foo", Kind: "function", Visibility: "pub",
		Modifiers: []string{"async", "unsafe"}, Container: "bar",
		StartByte: 0, EndByte: 30, FocusStart: 13, FocusEnd: 16,
		StartLine: 4, StartCol: 2,
		Docs: "Frobs the foo.", Description: "pub async unsafe fn foo()",
	}
	id, err := s.InsertSymbol(sym)
	require.NoError(t, err)
	require.Positive(t, id)

	symbols, err := s.SymbolsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	got := symbols[0]
	assert.Equal(t, "foo", got.Name)
	assert.Equal(t, "function", got.Kind)
	assert.Equal(t, []string{"async", "unsafe"}, got.Modifiers)
	assert.Equal(t, "bar", got.Container)
	assert.Equal(t, 13, got.FocusStart)
	assert.Equal(t, 16, got.FocusEnd)
	assert.Equal(t, 4, got.StartLine)
	assert.Equal(t, "Frobs the foo.", got.Docs)
	assert.Equal(t, "pub async unsafe fn foo()", got.Description)
}

func TestSymbol_QueryByNameIsExactAndOrdered(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "/a.rs", "rust")
	b := insertTestFile(t, s, "/b.rs", "rust")
	insertTestSymbol(t, s, &b.ID, "foo", "function")
	insertTestSymbol(t, s, &a.ID, "foo", "function")
	insertTestSymbol(t, s, &a.ID, "foobar", "function")
	insertTestSymbol(t, s, &a.ID, "Foo", "struct")

	syms, err := s.SymbolsByName("foo")
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, b.ID, *syms[0].FileID)
	assert.Equal(t, a.ID, *syms[1].FileID)
}

func TestSymbol_MatchesCarryFileHash(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/lib.rs", "rust")
	insertTestSymbol(t, s, &f.ID, "foo", "function")
	insertTestSymbol(t, s, nil, "foo", "module")

	matches, err := s.SymbolMatchesByName("foo")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "abc123", matches[0].FileHash)
	assert.Equal(t, "function", matches[0].Kind)
	assert.Empty(t, matches[1].FileHash, "symbols without a file have no hash")

	f.Hash = "def456"
	require.NoError(t, s.UpdateFile(f))
	matches, err = s.SymbolMatchesByName("foo")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "def456", matches[0].FileHash)
}

func TestSymbol_Children(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/lib.rs", "rust")
	parent := insertTestSymbol(t, s, &f.ID, "MyTrait", "trait")

	child := &Symbol{FileID: &f.ID, Name: "method", Kind: "function", ParentSymbolID: &parent.ID, Container: "MyTrait"}
	_, err := s.InsertSymbol(child)
	require.NoError(t, err)

	children, err := s.SymbolChildren(parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "method", children[0].Name)
	assert.Equal(t, "MyTrait", children[0].Container)
}

func TestSymbol_NilFileID(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	sym := &Symbol{Name: "core", Kind: "module"}
	id, err := s.InsertSymbol(sym)
	require.NoError(t, err)
	require.Positive(t, id)

	syms, err := s.SymbolsByName("core")
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Nil(t, syms[0].FileID)
	assert.Empty(t, syms[0].Modifiers)
}

// =============================================================================
// Reindexing
// =============================================================================

func TestDeleteFileData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/lib.rs", "rust")
	parent := insertTestSymbol(t, s, &f.ID, "Foo", "struct")
	_, err := s.InsertSymbol(&Symbol{FileID: &f.ID, Name: "field", Kind: "field", ParentSymbolID: &parent.ID})
	require.NoError(t, err)

	require.NoError(t, s.DeleteFileData(f.ID))

	syms, err := s.SymbolsByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, syms)

	got, err := s.FileByPath("/lib.rs")
	require.NoError(t, err)
	require.NotNil(t, got, "file row survives")
}

func TestDeleteFileData_ReindexWithNewData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/lib.rs", "rust")

	insertTestSymbol(t, s, &f.ID, "old_fn", "function")
	syms, _ := s.SymbolsByFile(f.ID)
	require.Len(t, syms, 1)

	require.NoError(t, s.DeleteFileData(f.ID))
	insertTestSymbol(t, s, &f.ID, "new_fn", "function")

	syms, err := s.SymbolsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "new_fn", syms[0].Name)
}

// =============================================================================
// Content hash
// =============================================================================

func TestContentHash(t *testing.T) {
	t.Parallel()
	h1 := ContentHash([]byte("fn main() {}"))
	h2 := ContentHash([]byte("fn main() {}"))
	h3 := ContentHash([]byte("fn main() { }"))
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}
