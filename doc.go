// Package wayfind answers navigation queries over Rust sources: go to
// definition, hover and type of expression. It reconciles three sources of
// truth, the syntax tree, a best-effort semantic model built from it, and a
// name-keyed symbol index kept in SQLite.
//
// # Pipeline
//
// An [Engine] indexes source files. Each file is parsed with tree-sitter,
// its declarations are written to the symbol index, and its content is kept
// so that a semantic snapshot can be rebuilt later:
//
//	e, err := wayfind.New("wayfind.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/crate")
//
// [Engine.Analysis] returns an immutable [Analysis] snapshot over everything
// indexed so far:
//
//	a, err := e.Analysis(ctx)
//	id, _ := a.FileID("path/to/crate/src/lib.rs")
//	nav, err := a.GotoDefinition(ctx, wayfind.FilePosition{FileID: id, Offset: 120})
//
// # Exact and approximate answers
//
// When the semantic model proves a single definition the answer is exact.
// Otherwise the symbol index is consulted by name and the answer is
// approximate: possibly empty, possibly several candidates. Hover results
// carry the distinction in [HoverResult.IsExact] and render a caveat for
// approximate answers in [HoverResult.ToMarkup].
package wayfind
