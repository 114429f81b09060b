package wayfind

import (
	"github.com/jward/wayfind/internal/hir"
	"github.com/jward/wayfind/internal/store"
	"github.com/jward/wayfind/internal/syntax"
)

// Public type aliases for internal types that appear in the Engine and
// Analysis API.

type Store = store.Store
type Symbol = store.Symbol
type File = store.File
type FileID = hir.FileID
type TextRange = syntax.TextRange
