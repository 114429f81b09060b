package hir

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// DefKind enumerates module-level and associated definitions.
type DefKind int

const (
	DefModule DefKind = iota
	DefFunction
	DefStruct
	DefUnion
	DefEnum
	DefVariant
	DefConst
	DefStatic
	DefTrait
	DefTypeAlias
	DefBuiltin
)

var defKindNames = map[DefKind]string{
	DefModule:    "module",
	DefFunction:  "function",
	DefStruct:    "struct",
	DefUnion:     "union",
	DefEnum:      "enum",
	DefVariant:   "enum_variant",
	DefConst:     "const",
	DefStatic:    "static",
	DefTrait:     "trait",
	DefTypeAlias: "type_alias",
	DefBuiltin:   "builtin",
}

func (k DefKind) String() string {
	if s, ok := defKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Def is a named definition. Builtin types have no File or Node; the root
// module of a crate has a File but no Node.
type Def struct {
	Kind   DefKind
	Name   string
	File   FileID
	Node   *sitter.Node
	Module *Module // owning module; for DefModule, the module itself
	Parent *Def    // enum of a variant, trait of a trait item
	Impl   *Impl   // impl block of an associated item
	Fields []*Field
}

// HasSource reports whether the definition has a location in some file.
func (d *Def) HasSource() bool {
	return d != nil && d.File != 0
}

// IsAdt reports whether d is a struct, union or enum.
func (d *Def) IsAdt() bool {
	switch d.Kind {
	case DefStruct, DefUnion, DefEnum:
		return true
	}
	return false
}

func (d *Def) inTypeNS() bool {
	switch d.Kind {
	case DefModule, DefStruct, DefUnion, DefEnum, DefTrait, DefTypeAlias, DefBuiltin, DefVariant:
		return true
	}
	return false
}

func (d *Def) inValueNS() bool {
	switch d.Kind {
	case DefFunction, DefConst, DefStatic, DefStruct, DefVariant:
		return true
	}
	return false
}

// Field is a struct, union or variant field. Positional fields are named by
// their index and point at their type node.
type Field struct {
	Name     string
	Index    int
	Named    bool
	File     FileID
	Node     *sitter.Node
	TypeNode *sitter.Node
	Owner    *Def
}

// Impl is an impl block. SelfDef and TraitDef are resolved when the database
// is built; SelfDef is nil for impls on types that are not definitions
// (references, tuples) or that did not resolve.
type Impl struct {
	File     FileID
	Node     *sitter.Node
	Module   *Module
	Items    []*Def
	SelfDef  *Def
	TraitDef *Def
}

// MacroDef is a macro_rules! definition.
type MacroDef struct {
	Name     string
	File     FileID
	Node     *sitter.Node
	Module   *Module
	Exported bool
}

// Binding is a local variable introduced by a pattern.
type Binding struct {
	Name string
	File FileID
	Node *sitter.Node
}

// SelfParam is the receiver of a method.
type SelfParam struct {
	File FileID
	Node *sitter.Node // self_parameter
	Func *sitter.Node
}

// SelfToken returns the `self` keyword inside the parameter.
func (p *SelfParam) SelfToken() *sitter.Node {
	count := int(p.Node.ChildCount())
	for i := 0; i < count; i++ {
		if c := p.Node.Child(i); c != nil && c.Type() == "self" {
			return c
		}
	}
	return p.Node
}

// GenericParam is a type parameter declared on an item.
type GenericParam struct {
	Name  string
	File  FileID
	Node  *sitter.Node
	Owner *sitter.Node
}

// ResolutionKind tags what a path resolved to.
type ResolutionKind int

const (
	ResDef ResolutionKind = iota
	ResLocal
	ResGenericParam
	ResSelfType
	ResAssocItem
	ResMacro
	ResSelfParam
)

// Resolution is the result of resolving a path. Exactly one payload field
// is set, according to Kind.
type Resolution struct {
	Kind      ResolutionKind
	Def       *Def
	Local     *Binding
	Generic   *GenericParam
	Impl      *Impl
	Macro     *MacroDef
	SelfParam *SelfParam
}

func defResolution(d *Def) *Resolution {
	if d.Impl != nil {
		return &Resolution{Kind: ResAssocItem, Def: d}
	}
	return &Resolution{Kind: ResDef, Def: d}
}
