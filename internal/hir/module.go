package hir

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/wayfind/internal/syntax"
)

// Crate is a tree of modules rooted at one file.
type Crate struct {
	Name string
	Root *Module
}

// Module is a Rust module: either a whole file or an inline `mod x { }`.
type Module struct {
	Crate    *Crate
	Parent   *Module
	Name     string
	File     FileID       // file containing Body
	Decl     *sitter.Node // mod_item in the parent; nil for crate roots
	DeclFile FileID
	Body     *sitter.Node // source_file or declaration_list
	Children map[string]*Module
	Def      *Def
	Scope    *ItemScope

	dir string // directory in which child module files are looked up
}

// IsInline reports whether the module body is a declaration list inside
// another file.
func (m *Module) IsInline() bool {
	return m.Body.Type() != syntax.KindSourceFile
}

// IsRoot reports whether m is the root module of its crate.
func (m *Module) IsRoot() bool {
	return m.Parent == nil
}

func isCrateRoot(p string) bool {
	base := path.Base(p)
	return base == "lib.rs" || base == "main.rs"
}

func crateName(rootPath string) string {
	dir := path.Dir(rootPath)
	if path.Base(dir) == "src" {
		dir = path.Dir(dir)
	}
	name := path.Base(dir)
	if name == "." || name == "/" {
		return ""
	}
	return strings.ReplaceAll(name, "-", "_")
}

// buildModuleTree discovers crates and modules. lib.rs and main.rs files
// are crate roots; `mod foo;` declarations pull in foo.rs or foo/mod.rs;
// every file left unreached becomes a crate root of its own.
func (db *Database) buildModuleTree() {
	assigned := make(map[FileID]bool)
	for _, f := range db.files {
		if isCrateRoot(f.Path) {
			db.addCrate(f, assigned)
		}
	}
	for _, f := range db.files {
		if !assigned[f.ID] {
			db.addCrate(f, assigned)
		}
	}
}

func (db *Database) addCrate(f *File, assigned map[FileID]bool) {
	crate := &Crate{Name: crateName(f.Path)}
	root := db.newModule(crate, nil, crate.Name, f.ID, nil, f.Tree.Root(), path.Dir(f.Path))
	root.Def = &Def{Kind: DefModule, Name: crate.Name, File: f.ID, Module: root}
	crate.Root = root
	db.crates = append(db.crates, crate)
	db.fileModules[f.ID] = root
	assigned[f.ID] = true
	db.discoverChildren(root, assigned)
}

func (db *Database) newModule(crate *Crate, parent *Module, name string, file FileID, decl, body *sitter.Node, dir string) *Module {
	m := &Module{
		Crate:    crate,
		Parent:   parent,
		Name:     name,
		File:     file,
		Decl:     decl,
		Body:     body,
		Children: make(map[string]*Module),
		dir:      dir,
	}
	if parent != nil {
		parent.Children[name] = m
		m.DeclFile = parent.File
	}
	db.modules = append(db.modules, m)
	return m
}

func (db *Database) discoverChildren(m *Module, assigned map[FileID]bool) {
	for _, item := range syntax.NamedChildren(m.Body) {
		if item.Type() != syntax.KindModule {
			continue
		}
		name := db.text(m.File, syntax.NameOf(item))
		if name == "" {
			continue
		}
		var child *Module
		if body := item.ChildByFieldName("body"); body != nil {
			child = db.newModule(m.Crate, m, name, m.File, item, body, path.Join(m.dir, name))
		} else {
			f := db.moduleFile(m.dir, name)
			if f == nil || assigned[f.ID] {
				continue
			}
			dir := strings.TrimSuffix(f.Path, ".rs")
			if path.Base(f.Path) == "mod.rs" {
				dir = path.Dir(f.Path)
			}
			child = db.newModule(m.Crate, m, name, f.ID, item, f.Tree.Root(), dir)
			db.fileModules[f.ID] = child
			assigned[f.ID] = true
		}
		child.Def = &Def{Kind: DefModule, Name: name, File: m.File, Node: item, Module: child}
		db.declModules[keyOf(m.File, item)] = child
		db.defs[keyOf(m.File, item)] = child.Def
		db.discoverChildren(child, assigned)
	}
}

func (db *Database) moduleFile(dir, name string) *File {
	for _, p := range []string{path.Join(dir, name+".rs"), path.Join(dir, name, "mod.rs")} {
		if f := db.byPath[p]; f != nil {
			return f
		}
	}
	return nil
}

// moduleAt returns the innermost module whose body contains n.
func (db *Database) moduleAt(file FileID, n *sitter.Node) *Module {
	for anc := n; anc != nil; anc = anc.Parent() {
		if anc.Type() != syntax.KindDeclarationList {
			continue
		}
		if p := anc.Parent(); p != nil && p.Type() == syntax.KindModule {
			if m := db.declModules[keyOf(file, p)]; m != nil && m.IsInline() {
				return m
			}
		}
	}
	return db.fileModules[file]
}

// CrateByName returns the crate with the given name, or nil.
func (db *Database) CrateByName(name string) *Crate {
	if name == "" {
		return nil
	}
	for _, c := range db.crates {
		if c.Name == name {
			return c
		}
	}
	return nil
}
