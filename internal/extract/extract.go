// Package extract walks parsed Rust files and records their declarations in
// the symbol index. Extraction is purely syntactic: nothing is resolved.
package extract

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/wayfind/internal/store"
	"github.com/jward/wayfind/internal/syntax"
)

// Symbol kinds recorded in the index.
const (
	KindStruct    = "struct"
	KindUnion     = "union"
	KindEnum      = "enum"
	KindVariant   = "enum_variant"
	KindFunction  = "function"
	KindTrait     = "trait"
	KindTypeAlias = "type_alias"
	KindConst     = "const"
	KindStatic    = "static"
	KindModule    = "module"
	KindMacro     = "macro"
	KindField     = "field"
)

var symbolKinds = map[string]string{
	syntax.KindStruct:            KindStruct,
	syntax.KindUnion:             KindUnion,
	syntax.KindEnum:              KindEnum,
	syntax.KindEnumVariant:       KindVariant,
	syntax.KindFunction:          KindFunction,
	syntax.KindFunctionSignature: KindFunction,
	syntax.KindTrait:             KindTrait,
	syntax.KindTypeAlias:         KindTypeAlias,
	syntax.KindAssociatedType:    KindTypeAlias,
	syntax.KindConst:             KindConst,
	syntax.KindStatic:            KindStatic,
	syntax.KindModule:            KindModule,
	syntax.KindMacroDefinition:   KindMacro,
	syntax.KindField:             KindField,
}

// KindFor returns the index kind recorded for a declaration node kind.
func KindFor(nodeKind string) (string, bool) {
	kind, ok := symbolKinds[nodeKind]
	return kind, ok
}

type parent struct {
	id   *int64
	name string
}

// Extract inserts one symbol per declaration in tree into ds and returns
// how many were written. Declarations nested in other declarations carry
// the enclosing name as their container; items inside an impl block are
// contained by the impl's self type.
func Extract(tree *syntax.Tree, fileID int64, ds store.DataStore) (int, error) {
	x := &extractor{tree: tree, fileID: fileID, ds: ds}
	if err := x.walk(tree.Root(), parent{}); err != nil {
		return x.count, err
	}
	return x.count, nil
}

type extractor struct {
	tree   *syntax.Tree
	fileID int64
	ds     store.DataStore
	count  int
}

func (x *extractor) walk(n *sitter.Node, p parent) error {
	for _, c := range syntax.NamedChildren(n) {
		next := p
		if kind, ok := symbolKinds[c.Type()]; ok {
			sym, err := x.insert(c, kind, p)
			if err != nil {
				return err
			}
			if sym != nil {
				next = parent{id: &sym.ID, name: sym.Name}
			}
		} else if c.Type() == syntax.KindImpl {
			next = parent{name: syntax.Normalize(x.tree.Text(implSelfName(c)))}
		}
		if err := x.walk(c, next); err != nil {
			return err
		}
	}
	return nil
}

func implSelfName(impl *sitter.Node) *sitter.Node {
	ty := impl.ChildByFieldName("type")
	if ty != nil && ty.Type() == syntax.KindGenericType {
		return ty.ChildByFieldName("type")
	}
	return ty
}

func (x *extractor) insert(decl *sitter.Node, kind string, p parent) (*store.Symbol, error) {
	name := syntax.NameOf(decl)
	if name == nil || x.tree.Text(name) == "" {
		return nil, nil
	}
	full := syntax.ItemRange(x.tree, decl)
	start := decl.StartPoint()
	fileID := x.fileID
	sym := &store.Symbol{
		FileID:         &fileID,
		Name:           x.tree.Text(name),
		Kind:           kind,
		Visibility:     x.visibility(decl),
		Modifiers:      x.modifiers(decl),
		Container:      p.name,
		StartByte:      int(full.Start),
		EndByte:        int(full.End),
		FocusStart:     int(name.StartByte()),
		FocusEnd:       int(name.EndByte()),
		StartLine:      int(start.Row),
		StartCol:       int(start.Column),
		Docs:           syntax.DocComment(x.tree, decl),
		Description:    syntax.ShortLabel(x.tree, decl),
		ParentSymbolID: p.id,
	}
	if _, err := x.ds.InsertSymbol(sym); err != nil {
		return nil, fmt.Errorf("extract %s %s: %w", kind, sym.Name, err)
	}
	x.count++
	return sym, nil
}

func (x *extractor) visibility(decl *sitter.Node) string {
	for _, c := range syntax.NamedChildren(decl) {
		if c.Type() == "visibility_modifier" {
			return syntax.Normalize(x.tree.Text(c))
		}
	}
	return ""
}

func (x *extractor) modifiers(decl *sitter.Node) []string {
	var mods []string
	for _, c := range syntax.NamedChildren(decl) {
		switch c.Type() {
		case "function_modifiers":
			mods = append(mods, strings.Fields(x.tree.Text(c))...)
		case "mutable_specifier":
			mods = append(mods, "mut")
		}
	}
	return mods
}
