package hir

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/wayfind/internal/syntax"
)

// ItemScope holds the items declared directly in a module body or a block.
type ItemScope struct {
	Module  *Module
	File    FileID
	Node    *sitter.Node
	Defs    map[string][]*Def
	Imports []*Import
	Macros  []*MacroDef
}

// Import is one leaf of a use tree.
type Import struct {
	Path []string // full path, including the imported name
	Name string   // binding name; empty for globs
	Glob bool
	Node *sitter.Node
}

var itemDefKinds = map[string]DefKind{
	syntax.KindStruct:    DefStruct,
	syntax.KindUnion:     DefUnion,
	syntax.KindEnum:      DefEnum,
	syntax.KindFunction:  DefFunction,
	syntax.KindConst:     DefConst,
	syntax.KindStatic:    DefStatic,
	syntax.KindTrait:     DefTrait,
	syntax.KindTypeAlias: DefTypeAlias,
}

func (sc *ItemScope) add(d *Def) {
	sc.Defs[d.Name] = append(sc.Defs[d.Name], d)
}

func (db *Database) collectScope(container *sitter.Node, m *Module) *ItemScope {
	file := m.File
	sc := &ItemScope{Module: m, File: file, Node: container, Defs: make(map[string][]*Def)}
	db.scopes[keyOf(file, container)] = sc
	if container.Type() != syntax.KindBlock {
		m.Scope = sc
	}

	for _, item := range syntax.NamedChildren(container) {
		kind := item.Type()
		if dk, ok := itemDefKinds[kind]; ok {
			name := db.text(file, syntax.NameOf(item))
			if name == "" {
				continue
			}
			d := db.newDef(dk, name, file, item, m)
			sc.add(d)
			switch dk {
			case DefStruct, DefUnion:
				d.Fields = db.collectFields(file, item.ChildByFieldName("body"), d)
			case DefEnum:
				db.collectVariants(file, item, d)
			case DefTrait:
				db.collectTraitItems(file, item, d)
			}
			continue
		}
		switch kind {
		case syntax.KindModule:
			if child := db.declModules[keyOf(file, item)]; child != nil {
				sc.add(child.Def)
			}
		case syntax.KindMacroDefinition:
			name := db.text(file, syntax.NameOf(item))
			if name == "" {
				continue
			}
			mac := &MacroDef{Name: name, File: file, Node: item, Module: m, Exported: hasMacroExport(db.File(file).Tree, item)}
			sc.Macros = append(sc.Macros, mac)
			db.macros = append(db.macros, mac)
		case syntax.KindUse:
			if arg := item.ChildByFieldName("argument"); arg != nil {
				sc.Imports = append(sc.Imports, db.useTree(file, arg, nil)...)
			}
		case syntax.KindImpl:
			db.collectImpl(file, item, m)
		}
	}
	return sc
}

// collectNested walks n for inline modules and item-bearing blocks.
func (db *Database) collectNested(n *sitter.Node, m *Module) {
	for _, c := range syntax.NamedChildren(n) {
		if c.Type() == syntax.KindModule {
			if child := db.declModules[keyOf(m.File, c)]; child != nil && child.IsInline() {
				db.collectScope(child.Body, child)
				db.collectNested(child.Body, child)
			}
			continue
		}
		if c.Type() == syntax.KindBlock && hasItems(c) {
			db.collectScope(c, m)
		}
		db.collectNested(c, m)
	}
}

func hasItems(block *sitter.Node) bool {
	for _, c := range syntax.NamedChildren(block) {
		if _, ok := itemDefKinds[c.Type()]; ok {
			return true
		}
		switch c.Type() {
		case syntax.KindMacroDefinition, syntax.KindUse, syntax.KindImpl, syntax.KindModule:
			return true
		}
	}
	return false
}

func (db *Database) newDef(kind DefKind, name string, file FileID, node *sitter.Node, m *Module) *Def {
	d := &Def{Kind: kind, Name: name, File: file, Node: node, Module: m}
	db.defs[keyOf(file, node)] = d
	return d
}

func (db *Database) collectFields(file FileID, body *sitter.Node, owner *Def) []*Field {
	if body == nil {
		return nil
	}
	var fields []*Field
	switch body.Type() {
	case "field_declaration_list":
		for _, c := range syntax.NamedChildren(body) {
			if c.Type() != syntax.KindField {
				continue
			}
			f := &Field{
				Name:     db.text(file, syntax.NameOf(c)),
				Index:    len(fields),
				Named:    true,
				File:     file,
				Node:     c,
				TypeNode: c.ChildByFieldName("type"),
				Owner:    owner,
			}
			db.fields[keyOf(file, c)] = f
			fields = append(fields, f)
		}
	case "ordered_field_declaration_list":
		for _, c := range syntax.NamedChildren(body) {
			switch c.Type() {
			case syntax.KindAttributeItem, "visibility_modifier", syntax.KindLineComment, syntax.KindBlockComment:
				continue
			}
			idx := len(fields)
			fields = append(fields, &Field{
				Name:     strconv.Itoa(idx),
				Index:    idx,
				File:     file,
				Node:     c,
				TypeNode: c,
				Owner:    owner,
			})
		}
	}
	return fields
}

func (db *Database) collectVariants(file FileID, enum *sitter.Node, d *Def) {
	body := enum.ChildByFieldName("body")
	for _, v := range syntax.NamedChildren(body) {
		if v.Type() != syntax.KindEnumVariant {
			continue
		}
		name := db.text(file, syntax.NameOf(v))
		if name == "" {
			continue
		}
		vd := db.newDef(DefVariant, name, file, v, d.Module)
		vd.Parent = d
		vd.Fields = db.collectFields(file, v.ChildByFieldName("body"), vd)
	}
}

// Variants returns the variants of an enum in declaration order.
func (db *Database) Variants(enum *Def) []*Def {
	if enum == nil || enum.Kind != DefEnum || enum.Node == nil {
		return nil
	}
	var out []*Def
	for _, v := range syntax.NamedChildren(enum.Node.ChildByFieldName("body")) {
		if d := db.defs[keyOf(enum.File, v)]; d != nil {
			out = append(out, d)
		}
	}
	return out
}

func (db *Database) collectTraitItems(file FileID, trait *sitter.Node, d *Def) {
	for _, item := range syntax.NamedChildren(trait.ChildByFieldName("body")) {
		var kind DefKind
		switch item.Type() {
		case syntax.KindFunction, syntax.KindFunctionSignature:
			kind = DefFunction
		case syntax.KindConst:
			kind = DefConst
		case syntax.KindAssociatedType, syntax.KindTypeAlias:
			kind = DefTypeAlias
		default:
			continue
		}
		name := db.text(file, syntax.NameOf(item))
		if name == "" {
			continue
		}
		td := db.newDef(kind, name, file, item, d.Module)
		td.Parent = d
	}
}

// TraitItems returns the items declared inside a trait.
func (db *Database) TraitItems(trait *Def) []*Def {
	if trait == nil || trait.Kind != DefTrait || trait.Node == nil {
		return nil
	}
	var out []*Def
	for _, item := range syntax.NamedChildren(trait.Node.ChildByFieldName("body")) {
		if d := db.defs[keyOf(trait.File, item)]; d != nil {
			out = append(out, d)
		}
	}
	return out
}

func (db *Database) collectImpl(file FileID, node *sitter.Node, m *Module) {
	impl := &Impl{File: file, Node: node, Module: m}
	for _, item := range syntax.NamedChildren(node.ChildByFieldName("body")) {
		var kind DefKind
		switch item.Type() {
		case syntax.KindFunction:
			kind = DefFunction
		case syntax.KindConst:
			kind = DefConst
		case syntax.KindTypeAlias:
			kind = DefTypeAlias
		default:
			continue
		}
		name := db.text(file, syntax.NameOf(item))
		if name == "" {
			continue
		}
		d := db.newDef(kind, name, file, item, m)
		d.Impl = impl
		impl.Items = append(impl.Items, d)
	}
	db.impls = append(db.impls, impl)
	db.implAt[keyOf(file, node)] = impl
}

// ImplAt returns the impl block for an impl_item node, or nil.
func (db *Database) ImplAt(file FileID, node *sitter.Node) *Impl {
	return db.implAt[keyOf(file, node)]
}

// resolveImpls binds every impl block to the definitions named by its self
// type and trait.
func (db *Database) resolveImpls() {
	for _, impl := range db.impls {
		a := db.Analyzer(impl.File, impl.Node)
		impl.SelfDef = a.typeDef(impl.Node.ChildByFieldName("type"))
		impl.TraitDef = a.typeDef(impl.Node.ChildByFieldName("trait"))
	}
}

func hasMacroExport(t *syntax.Tree, n *sitter.Node) bool {
	for prev := n.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		switch prev.Type() {
		case syntax.KindAttributeItem:
			if strings.Contains(t.Text(prev), "macro_export") {
				return true
			}
		case syntax.KindLineComment, syntax.KindBlockComment:
		default:
			return false
		}
	}
	return false
}

// useTree flattens a use tree into imports.
func (db *Database) useTree(file FileID, n *sitter.Node, prefix []string) []*Import {
	switch n.Type() {
	case "use_as_clause":
		p := append(clone(prefix), db.pathSegments(file, n.ChildByFieldName("path"))...)
		alias := db.text(file, n.ChildByFieldName("alias"))
		if alias == "_" || alias == "" {
			return nil
		}
		return []*Import{{Path: p, Name: alias, Node: n}}
	case "use_wildcard":
		var p []string
		if c := n.NamedChild(0); c != nil {
			p = db.pathSegments(file, c)
		}
		return []*Import{{Path: append(clone(prefix), p...), Glob: true, Node: n}}
	case "scoped_use_list":
		p := clone(prefix)
		if c := n.ChildByFieldName("path"); c != nil {
			p = append(p, db.pathSegments(file, c)...)
		}
		return db.useTree(file, n.ChildByFieldName("list"), p)
	case "use_list":
		var out []*Import
		for _, c := range syntax.NamedChildren(n) {
			out = append(out, db.useTree(file, c, prefix)...)
		}
		return out
	}
	segs := db.pathSegments(file, n)
	if len(segs) == 0 {
		return nil
	}
	if len(segs) == 1 && segs[0] == "self" && len(prefix) > 0 {
		return []*Import{{Path: clone(prefix), Name: prefix[len(prefix)-1], Node: n}}
	}
	p := append(clone(prefix), segs...)
	return []*Import{{Path: p, Name: p[len(p)-1], Node: n}}
}

// pathSegments returns the textual segments of a path-like node.
func (db *Database) pathSegments(file FileID, n *sitter.Node) []string {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case syntax.KindScopedIdentifier, syntax.KindScopedTypeIdentifier:
		segs := db.pathSegments(file, n.ChildByFieldName("path"))
		return append(segs, db.text(file, n.ChildByFieldName("name")))
	case syntax.KindGenericType:
		return db.pathSegments(file, n.ChildByFieldName("type"))
	case syntax.KindGenericFunction:
		return db.pathSegments(file, n.ChildByFieldName("function"))
	case syntax.KindIdentifier, syntax.KindTypeIdentifier, syntax.KindPrimitiveType,
		syntax.KindSelf, syntax.KindSuper, syntax.KindCrate, syntax.KindFieldIdentifier:
		return []string{db.text(file, n)}
	}
	return nil
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
