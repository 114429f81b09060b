package hir

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/wayfind/internal/syntax"
)

// lookupLocal finds the binding of name visible at the anchor. Later lets
// shadow earlier ones; nested function items do not see enclosing locals.
func (a *Analyzer) lookupLocal(name string) *Binding {
	at := a.node
	child := at
	for anc := at.Parent(); anc != nil; child, anc = anc, anc.Parent() {
		var found *Binding
		switch anc.Type() {
		case syntax.KindBlock:
			for _, stmt := range syntax.NamedChildren(anc) {
				if stmt.Type() != syntax.KindLetDeclaration || stmt.EndByte() > at.StartByte() {
					continue
				}
				if b := a.bindingIn(stmt.ChildByFieldName("pattern"), name); b != nil {
					found = b
				}
			}
		case syntax.KindFunction:
			if !syntax.IsField(anc, "body", child) {
				return nil
			}
			for _, p := range syntax.NamedChildren(anc.ChildByFieldName("parameters")) {
				if p.Type() != syntax.KindParameter {
					continue
				}
				if b := a.bindingIn(p.ChildByFieldName("pattern"), name); b != nil {
					return b
				}
			}
			return nil
		case syntax.KindClosureExpression:
			if !syntax.IsField(anc, "body", child) {
				break
			}
			for _, p := range syntax.NamedChildren(anc.ChildByFieldName("parameters")) {
				pat := p
				if p.Type() == syntax.KindParameter {
					pat = p.ChildByFieldName("pattern")
				}
				if b := a.bindingIn(pat, name); b != nil {
					found = b
				}
			}
		case syntax.KindMatchArm:
			mp := anc.ChildByFieldName("pattern")
			if mp == nil {
				break
			}
			pat := mp.NamedChild(0)
			if pat != nil && syntax.RangeOf(pat).Contains(syntax.RangeOf(at)) {
				break
			}
			found = a.bindingIn(pat, name)
		case syntax.KindIfExpression, syntax.KindWhileExpression:
			if !syntax.IsField(anc, "consequence", child) && !syntax.IsField(anc, "body", child) {
				break
			}
			found = a.bindingInCondition(anc.ChildByFieldName("condition"), name)
		case syntax.KindForExpression:
			if !syntax.IsField(anc, "body", child) {
				break
			}
			found = a.bindingIn(anc.ChildByFieldName("pattern"), name)
		}
		if found != nil {
			return found
		}
	}
	return nil
}

func (a *Analyzer) bindingInCondition(cond *sitter.Node, name string) *Binding {
	if cond == nil {
		return nil
	}
	switch cond.Type() {
	case syntax.KindLetCondition:
		return a.bindingIn(cond.ChildByFieldName("pattern"), name)
	case "let_chain":
		var found *Binding
		for _, c := range syntax.NamedChildren(cond) {
			if c.Type() == syntax.KindLetCondition {
				if b := a.bindingIn(c.ChildByFieldName("pattern"), name); b != nil {
					found = b
				}
			}
		}
		return found
	}
	return nil
}

// bindingIn returns the binding of name introduced by pattern, if any.
func (a *Analyzer) bindingIn(pattern *sitter.Node, name string) *Binding {
	for _, n := range Bindings(pattern) {
		if a.text(n) == name {
			return &Binding{Name: name, File: a.file.ID, Node: n}
		}
	}
	return nil
}

// Bindings returns the name nodes a pattern binds, in source order.
func Bindings(pattern *sitter.Node) []*sitter.Node {
	if pattern == nil {
		return nil
	}
	var out []*sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if syntax.IsName(n) && (n.Type() == syntax.KindIdentifier || n.Type() == syntax.KindShorthandField) {
			out = append(out, n)
			return
		}
		for _, c := range syntax.NamedChildren(n) {
			walk(c)
		}
	}
	walk(pattern)
	return out
}

// selfParam returns the receiver of the method enclosing the anchor.
func (a *Analyzer) selfParam() *SelfParam {
	for anc := a.node; anc != nil; anc = anc.Parent() {
		if anc.Type() != syntax.KindFunction {
			continue
		}
		for _, p := range syntax.NamedChildren(anc.ChildByFieldName("parameters")) {
			if p.Type() == syntax.KindSelfParameter {
				return &SelfParam{File: a.file.ID, Node: p, Func: anc}
			}
		}
		return nil
	}
	return nil
}

// lookupGeneric finds a type parameter named name on an enclosing item.
func (a *Analyzer) lookupGeneric(name string) *GenericParam {
	for anc := a.node; anc != nil; anc = anc.Parent() {
		switch anc.Type() {
		case syntax.KindFunction, syntax.KindFunctionSignature, syntax.KindImpl, syntax.KindStruct,
			syntax.KindEnum, syntax.KindUnion, syntax.KindTrait, syntax.KindTypeAlias:
		default:
			continue
		}
		for _, n := range GenericParamNames(anc.ChildByFieldName("type_parameters")) {
			if a.text(n) == name {
				return &GenericParam{Name: name, File: a.file.ID, Node: n, Owner: anc}
			}
		}
	}
	return nil
}

// GenericParamNames returns the name nodes of the type parameters in a
// type_parameters list. Lifetimes are skipped.
func GenericParamNames(params *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, p := range syntax.NamedChildren(params) {
		switch p.Type() {
		case syntax.KindTypeIdentifier:
			out = append(out, p)
		case syntax.KindConstrainedTypeParam:
			if l := p.ChildByFieldName("left"); l != nil && l.Type() == syntax.KindTypeIdentifier {
				out = append(out, l)
			}
		case syntax.KindOptionalTypeParam:
			if n := p.ChildByFieldName("name"); n != nil && n.Type() == syntax.KindTypeIdentifier {
				out = append(out, n)
			}
		case "const_parameter":
			if n := p.ChildByFieldName("name"); n != nil {
				out = append(out, n)
			}
		}
	}
	return out
}
