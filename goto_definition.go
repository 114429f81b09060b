package wayfind

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/wayfind/internal/hir"
	"github.com/jward/wayfind/internal/syntax"
)

// ReferenceResult is the outcome of resolving a name usage: one target the
// semantic model proved, or an approximate list from the symbol index that
// may be empty and may hold several candidates.
type ReferenceResult struct {
	exact  *NavigationTarget
	approx []NavigationTarget
}

// Exact wraps a proven target.
func Exact(t NavigationTarget) ReferenceResult {
	return ReferenceResult{exact: &t}
}

// Approximate wraps best-effort candidates.
func Approximate(targets []NavigationTarget) ReferenceResult {
	return ReferenceResult{approx: targets}
}

// IsExact reports whether the result was proven by the semantic model.
func (r ReferenceResult) IsExact() bool {
	return r.exact != nil
}

// Targets returns the exact target alone or the approximate candidates.
func (r ReferenceResult) Targets() []NavigationTarget {
	if r.exact != nil {
		return []NavigationTarget{*r.exact}
	}
	if r.approx == nil {
		return []NavigationTarget{}
	}
	return r.approx
}

// declarationTable is the closed set of declaration kinds whose own name
// resolves to the declaration.
var declarationTable = map[string]bool{
	syntax.KindStruct:            true,
	syntax.KindEnum:              true,
	syntax.KindEnumVariant:       true,
	syntax.KindFunction:          true,
	syntax.KindFunctionSignature: true,
	syntax.KindTypeAlias:         true,
	syntax.KindConst:             true,
	syntax.KindStatic:            true,
	syntax.KindTrait:             true,
	syntax.KindField:             true,
	syntax.KindModule:            true,
	syntax.KindMacroDefinition:   true,
}

func (a *Analysis) gotoDefinition(ctx context.Context, f *hir.File, offset uint32) (*RangeInfo[[]NavigationTarget], bool, error) {
	root := f.Tree.Root()
	if nameRef := syntax.FindNameRefAt(root, offset); nameRef != nil {
		res, err := a.referenceDefinition(ctx, f.ID, nameRef)
		if err != nil {
			return nil, false, err
		}
		return &RangeInfo[[]NavigationTarget]{Range: syntax.RangeOf(nameRef), Info: res.Targets()}, res.IsExact(), nil
	}
	if name := syntax.FindNameAt(root, offset); name != nil {
		targets, ok := a.nameDefinition(f.ID, name)
		if !ok {
			return nil, false, nil
		}
		return &RangeInfo[[]NavigationTarget]{Range: syntax.RangeOf(name), Info: targets}, true, nil
	}
	return nil, false, nil
}

// referenceDefinition resolves a name usage. Semantic gaps never fail the
// query: the worst case is an empty approximate result. Errors come only
// from the symbol index or cancellation.
func (a *Analysis) referenceDefinition(ctx context.Context, file FileID, nameRef *sitter.Node) (ReferenceResult, error) {
	an := a.db.Analyzer(file, nameRef)

	if ref, ok := classifyNameRef(an, nameRef); ok {
		var (
			t     NavigationTarget
			built bool
		)
		switch ref.Kind {
		case RefMacro:
			t, built = a.targetFromMacro(ref.Macro)
		case RefFieldAccess:
			t, built = a.targetFromField(ref.Field)
		case RefAssocItem, RefMethod:
			t, built = a.targetFromDef(ref.Def)
		case RefDef:
			if t, ok := a.targetFromDef(ref.Def); ok {
				return Exact(t), nil
			}
			return Approximate(nil), nil
		case RefSelfType:
			// Self on a non-ADT type produces nothing and skips the index.
			if d := adtOf(ref.SelfType); d != nil {
				if t, ok := a.targetFromDef(d); ok {
					return Exact(t), nil
				}
			}
			return Approximate(nil), nil
		case RefPat:
			t, built = a.targetFromBinding(ref.Binding)
		case RefSelfParam:
			t, built = a.targetFromSelfParam(ref.SelfParam)
		case RefGenericParam:
			return Approximate(nil), nil
		}
		if built {
			return Exact(t), nil
		}
	}

	f := a.db.File(file)
	hits, err := a.indexResolve(ctx, f.Tree.Text(nameRef))
	if err != nil {
		return ReferenceResult{}, err
	}
	targets := make([]NavigationTarget, 0, len(hits))
	for _, hit := range hits {
		targets = append(targets, a.targetFromSymbol(hit))
	}
	return Approximate(targets), nil
}

// nameDefinition resolves a declared name to its declaration. A `mod foo;`
// stub resolves to the root of the file it loads.
func (a *Analysis) nameDefinition(file FileID, name *sitter.Node) ([]NavigationTarget, bool) {
	parent := name.Parent()
	if parent == nil {
		return nil, false
	}

	if parent.Type() == syntax.KindModule && parent.ChildByFieldName("body") == nil {
		if m := a.db.ModuleForDecl(file, parent); m != nil {
			if t, ok := a.targetFromModule(m); ok {
				return []NavigationTarget{t}, true
			}
		}
	}

	if !declarationTable[parent.Type()] {
		return nil, false
	}
	t, ok := a.targetFromNamed(file, parent)
	if !ok {
		return nil, false
	}
	return []NavigationTarget{t}, true
}

// adtOf returns the struct, union or enum behind t, or nil.
func adtOf(t hir.Ty) *hir.Def {
	if t.Kind != hir.TyAdt || t.Def == nil || !t.Def.IsAdt() {
		return nil
	}
	return t.Def
}
