// Package hir is a best-effort semantic model of Rust sources: a module
// tree, per-scope item tables, path resolution, local scopes and type
// inference, all computed from tree-sitter trees.
//
// A Database is an immutable snapshot. It is built once from a set of
// sources and is never updated; callers build a new one when sources
// change.
package hir

import (
	"context"
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/wayfind/internal/syntax"
)

// FileID identifies a file within a Database. IDs are 1-based in the order
// sources were supplied.
type FileID uint32

// Source is the text of one file.
type Source struct {
	Path string
	Text string
}

// File is a parsed source file.
type File struct {
	ID   FileID
	Path string
	Tree *syntax.Tree
}

type nodeKey struct {
	file       FileID
	start, end uint32
	kind       string
}

func keyOf(file FileID, n *sitter.Node) nodeKey {
	return nodeKey{file: file, start: n.StartByte(), end: n.EndByte(), kind: n.Type()}
}

// Database holds the parsed files and every derived table.
type Database struct {
	files  []*File
	byPath map[string]*File

	crates      []*Crate
	modules     []*Module
	fileModules map[FileID]*Module
	declModules map[nodeKey]*Module // mod_item -> module it declares

	scopes   map[nodeKey]*ItemScope
	defs     map[nodeKey]*Def
	fields   map[nodeKey]*Field
	impls    []*Impl
	implAt   map[nodeKey]*Impl
	macros   []*MacroDef
	builtins map[string]*Def
}

// New parses every source and builds the semantic tables.
func New(ctx context.Context, sources []Source) (*Database, error) {
	db := &Database{
		byPath:      make(map[string]*File),
		fileModules: make(map[FileID]*Module),
		declModules: make(map[nodeKey]*Module),
		scopes:      make(map[nodeKey]*ItemScope),
		defs:        make(map[nodeKey]*Def),
		fields:      make(map[nodeKey]*Field),
		implAt:      make(map[nodeKey]*Impl),
		builtins:    make(map[string]*Def),
	}
	for _, name := range builtinTypes {
		db.builtins[name] = &Def{Kind: DefBuiltin, Name: name}
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tree, err := syntax.Parse(ctx, []byte(src.Text))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", src.Path, err)
		}
		f := &File{ID: FileID(len(db.files) + 1), Path: CleanPath(src.Path), Tree: tree}
		db.files = append(db.files, f)
		db.byPath[f.Path] = f
	}

	db.buildModuleTree()
	for _, m := range db.modules {
		if m.Decl == nil || m.Body.Type() == syntax.KindSourceFile {
			db.collectScope(m.Body, m)
			db.collectNested(m.Body, m)
		}
	}
	db.resolveImpls()
	return db, nil
}

// CleanPath normalizes a file path to slash form.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return p
	}
	return path.Clean(p)
}

// Files returns all files in ID order.
func (db *Database) Files() []*File {
	return db.files
}

// File returns the file with the given ID, or nil.
func (db *Database) File(id FileID) *File {
	if id == 0 || int(id) > len(db.files) {
		return nil
	}
	return db.files[id-1]
}

// FileByPath returns the file at path, or nil.
func (db *Database) FileByPath(p string) *File {
	return db.byPath[CleanPath(p)]
}

// Crates returns the crates in discovery order.
func (db *Database) Crates() []*Crate {
	return db.crates
}

// ModuleForFile returns the module whose body is the given file.
func (db *Database) ModuleForFile(id FileID) *Module {
	return db.fileModules[id]
}

// ModuleForDecl returns the module declared by a `mod` item, or nil when a
// `mod foo;` declaration points at no known file.
func (db *Database) ModuleForDecl(file FileID, decl *sitter.Node) *Module {
	if decl == nil {
		return nil
	}
	return db.declModules[keyOf(file, decl)]
}

// DefAt returns the definition declared by node, or nil.
func (db *Database) DefAt(file FileID, node *sitter.Node) *Def {
	if node == nil {
		return nil
	}
	return db.defs[keyOf(file, node)]
}

// FieldAt returns the field declared by node, or nil.
func (db *Database) FieldAt(file FileID, node *sitter.Node) *Field {
	if node == nil {
		return nil
	}
	return db.fields[keyOf(file, node)]
}

// Macros returns all macro_rules! definitions.
func (db *Database) Macros() []*MacroDef {
	return db.macros
}

// Impls returns all impl blocks.
func (db *Database) Impls() []*Impl {
	return db.impls
}

// Builtin returns the builtin type named name, or nil.
func (db *Database) Builtin(name string) *Def {
	return db.builtins[name]
}

func (db *Database) text(file FileID, n *sitter.Node) string {
	f := db.File(file)
	if f == nil {
		return ""
	}
	return f.Tree.Text(n)
}

var builtinTypes = []string{
	"bool", "char", "str",
	"i8", "i16", "i32", "i64", "i128", "isize",
	"u8", "u16", "u32", "u64", "u128", "usize",
	"f32", "f64",
}
