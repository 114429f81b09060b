package wayfind

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/wayfind/internal/hir"
	"github.com/jward/wayfind/internal/syntax"
)

// ReferenceKind tags what a name usage refers to.
type ReferenceKind int

const (
	RefMacro ReferenceKind = iota + 1
	RefFieldAccess
	RefAssocItem
	RefMethod
	RefDef
	RefSelfType
	RefPat
	RefSelfParam
	RefGenericParam
)

var referenceKindNames = map[ReferenceKind]string{
	RefMacro:        "macro",
	RefFieldAccess:  "field_access",
	RefAssocItem:    "assoc_item",
	RefMethod:       "method",
	RefDef:          "def",
	RefSelfType:     "self_type",
	RefPat:          "pat",
	RefSelfParam:    "self_param",
	RefGenericParam: "generic_param",
}

func (k ReferenceKind) String() string {
	if s, ok := referenceKindNames[k]; ok {
		return s
	}
	return "unclassified"
}

// Reference is a classified name usage. The payload field matching Kind is
// set: Def for RefAssocItem, RefMethod and RefDef.
type Reference struct {
	Kind      ReferenceKind
	Macro     *hir.MacroDef
	Field     *hir.Field
	Def       *hir.Def
	SelfType  hir.Ty
	Binding   *hir.Binding
	SelfParam *hir.SelfParam
	Generic   *hir.GenericParam
}

// classifyNameRef tags nameRef with the kind of entity it refers to. It
// reports false when nothing matched, which is an ordinary outcome for
// unresolved imports and dangling names.
func classifyNameRef(an *hir.Analyzer, nameRef *sitter.Node) (Reference, bool) {
	parent := nameRef.Parent()

	fieldExpr := parent
	if fieldExpr != nil && !(fieldExpr.Type() == syntax.KindFieldExpression && syntax.IsField(fieldExpr, "field", nameRef)) {
		fieldExpr = nil
	}

	if fieldExpr != nil {
		if call := fieldExpr.Parent(); call != nil && call.Type() == syntax.KindCallExpression && syntax.IsField(call, "function", fieldExpr) {
			if fn := an.ResolveMethodCall(fieldExpr); fn != nil {
				return Reference{Kind: RefMethod, Def: fn}, true
			}
		}
	}

	if call := macroCallOf(nameRef); call != nil {
		if mac := an.ResolveMacro(call); mac != nil {
			return Reference{Kind: RefMacro, Macro: mac}, true
		}
	}

	if fieldExpr != nil {
		if fd := an.ResolveField(fieldExpr); fd != nil {
			return Reference{Kind: RefFieldAccess, Field: fd}, true
		}
	}

	if parent != nil {
		switch parent.Type() {
		case syntax.KindFieldInitializer, "shorthand_field_initializer", syntax.KindFieldPattern:
			if fd := an.ResolveStructField(parent); fd != nil {
				return Reference{Kind: RefFieldAccess, Field: fd}, true
			}
		}
	}

	if nameRef.Type() == syntax.KindFieldIdentifier || syntax.IsTupleIndex(nameRef) {
		return Reference{}, false
	}

	res := an.ResolvePath(syntax.PathOf(nameRef))
	if res == nil {
		return Reference{}, false
	}
	switch res.Kind {
	case hir.ResDef:
		return Reference{Kind: RefDef, Def: res.Def}, true
	case hir.ResAssocItem:
		return Reference{Kind: RefAssocItem, Def: res.Def}, true
	case hir.ResLocal:
		return Reference{Kind: RefPat, Binding: res.Local}, true
	case hir.ResSelfParam:
		return Reference{Kind: RefSelfParam, SelfParam: res.SelfParam}, true
	case hir.ResGenericParam:
		return Reference{Kind: RefGenericParam, Generic: res.Generic}, true
	case hir.ResSelfType:
		return Reference{Kind: RefSelfType, SelfType: an.SelfType(res.Impl)}, true
	case hir.ResMacro:
		return Reference{Kind: RefMacro, Macro: res.Macro}, true
	}
	return Reference{}, false
}

// macroCallOf returns the macro_invocation whose macro path ends in n.
func macroCallOf(n *sitter.Node) *sitter.Node {
	p := syntax.PathOf(n)
	call := p.Parent()
	if call == nil || call.Type() != syntax.KindMacroInvocation || !syntax.IsField(call, "macro", p) {
		return nil
	}
	return call
}
