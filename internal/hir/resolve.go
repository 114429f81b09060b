package hir

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/wayfind/internal/syntax"
)

// Namespace selects which kinds of definitions a lookup accepts.
type Namespace int

const (
	NSAny Namespace = iota
	NSType
	NSValue
)

func (ns Namespace) accepts(d *Def) bool {
	switch ns {
	case NSType:
		return d.inTypeNS()
	case NSValue:
		return d.inValueNS()
	}
	return true
}

// maxResolveDepth bounds import chasing so cyclic imports terminate.
const maxResolveDepth = 16

// Analyzer answers semantic questions about the code around one anchor node.
type Analyzer struct {
	db   *Database
	file *File
	node *sitter.Node
}

// Analyzer returns an analyzer anchored at node in file.
func (db *Database) Analyzer(file FileID, node *sitter.Node) *Analyzer {
	return &Analyzer{db: db, file: db.File(file), node: node}
}

// DB returns the database the analyzer reads from.
func (a *Analyzer) DB() *Database {
	return a.db
}

// Module returns the module containing the anchor.
func (a *Analyzer) Module() *Module {
	return a.db.moduleAt(a.file.ID, a.node)
}

func (a *Analyzer) at(n *sitter.Node) *Analyzer {
	return &Analyzer{db: a.db, file: a.file, node: n}
}

func (a *Analyzer) text(n *sitter.Node) string {
	return a.file.Tree.Text(n)
}

// scopeChain returns the item scopes visible from the anchor, innermost
// first, ending with the module scope.
func (a *Analyzer) scopeChain() []*ItemScope {
	var chain []*ItemScope
	for anc := a.node; anc != nil; anc = anc.Parent() {
		sc := a.db.scopes[keyOf(a.file.ID, anc)]
		if sc == nil {
			continue
		}
		chain = append(chain, sc)
		if anc.Type() != syntax.KindBlock {
			return chain
		}
	}
	if m := a.Module(); m != nil && m.Scope != nil {
		chain = append(chain, m.Scope)
	}
	return chain
}

// SelfImpl returns the impl block enclosing the anchor, or nil.
func (a *Analyzer) SelfImpl() *Impl {
	for anc := a.node; anc != nil; anc = anc.Parent() {
		if anc.Type() == syntax.KindImpl {
			return a.db.ImplAt(a.file.ID, anc)
		}
	}
	return nil
}

// ResolvePath resolves a path-like node (identifier, type identifier,
// scoped path, generic type). It returns nil when nothing matches.
func (a *Analyzer) ResolvePath(p *sitter.Node) *Resolution {
	if p == nil {
		return nil
	}
	segs := a.db.pathSegments(a.file.ID, p)
	if len(segs) == 0 {
		return nil
	}
	an := a.at(p)
	ns := namespaceOf(p)

	if len(segs) == 1 {
		return an.resolveSingle(p, segs[0], ns)
	}

	base := an.resolvePrefix(segs[:len(segs)-1])
	if base == nil {
		return nil
	}
	last := segs[len(segs)-1]
	switch base.Kind {
	case ResSelfType:
		if base.Impl.SelfDef != nil {
			if d := a.db.assocItem(base.Impl.SelfDef, last); d != nil {
				return defResolution(d)
			}
		}
		for _, item := range base.Impl.Items {
			if item.Name == last {
				return defResolution(item)
			}
		}
		return nil
	case ResDef:
		if d := a.db.member(base.Def, last, ns, 0); d != nil {
			return defResolution(d)
		}
	}
	return nil
}

func namespaceOf(p *sitter.Node) Namespace {
	switch p.Type() {
	case syntax.KindTypeIdentifier, syntax.KindScopedTypeIdentifier, syntax.KindGenericType, syntax.KindPrimitiveType:
		return NSType
	}
	if parent := p.Parent(); parent != nil {
		switch parent.Type() {
		case "use_list", "scoped_use_list", "use_as_clause", syntax.KindUse, syntax.KindScopedIdentifier:
			return NSAny
		}
	}
	return NSValue
}

func (a *Analyzer) resolveSingle(p *sitter.Node, name string, ns Namespace) *Resolution {
	switch name {
	case "Self":
		if impl := a.SelfImpl(); impl != nil {
			return &Resolution{Kind: ResSelfType, Impl: impl}
		}
		return nil
	case "self":
		if sp := a.selfParam(); sp != nil {
			return &Resolution{Kind: ResSelfParam, SelfParam: sp}
		}
		if m := a.Module(); m != nil {
			return &Resolution{Kind: ResDef, Def: m.Def}
		}
		return nil
	case "crate":
		if m := a.Module(); m != nil {
			return &Resolution{Kind: ResDef, Def: m.Crate.Root.Def}
		}
		return nil
	case "super":
		if m := a.Module(); m != nil && m.Parent != nil {
			return &Resolution{Kind: ResDef, Def: m.Parent.Def}
		}
		return nil
	}

	if ns == NSValue && !inUsePath(p) {
		if b := a.lookupLocal(name); b != nil {
			return &Resolution{Kind: ResLocal, Local: b}
		}
	}
	if ns != NSValue {
		if g := a.lookupGeneric(name); g != nil {
			return &Resolution{Kind: ResGenericParam, Generic: g}
		}
	}
	if d := a.lookupName(name, ns); d != nil {
		return defResolution(d)
	}
	if ns == NSValue {
		if d := a.lookupName(name, NSType); d != nil {
			return defResolution(d)
		}
	}
	return nil
}

func inUsePath(n *sitter.Node) bool {
	for anc := n.Parent(); anc != nil; anc = anc.Parent() {
		switch anc.Type() {
		case syntax.KindUse:
			return true
		case syntax.KindBlock, syntax.KindFunction, syntax.KindSourceFile:
			return false
		}
	}
	return false
}

// resolvePrefix resolves the leading segments of a multi-segment path to a
// module, type or Self.
func (a *Analyzer) resolvePrefix(segs []string) *Resolution {
	var cur *Def
	for i, seg := range segs {
		if i == 0 {
			switch seg {
			case "Self":
				if impl := a.SelfImpl(); impl != nil {
					if len(segs) == 1 {
						return &Resolution{Kind: ResSelfType, Impl: impl}
					}
					cur = impl.SelfDef
				}
			case "crate":
				if m := a.Module(); m != nil {
					cur = m.Crate.Root.Def
				}
			case "self":
				if m := a.Module(); m != nil {
					cur = m.Def
				}
			case "super":
				if m := a.Module(); m != nil && m.Parent != nil {
					cur = m.Parent.Def
				}
			case "":
			default:
				cur = a.lookupName(seg, NSType)
				if cur == nil {
					if c := a.db.CrateByName(seg); c != nil {
						cur = c.Root.Def
					}
				}
			}
		} else {
			if seg == "super" && cur != nil && cur.Kind == DefModule && cur.Module.Parent != nil {
				cur = cur.Module.Parent.Def
			} else {
				cur = a.db.member(cur, seg, NSType, 0)
			}
		}
		if cur == nil {
			return nil
		}
	}
	return &Resolution{Kind: ResDef, Def: cur}
}

// lookupName finds name in the visible item scopes, then among crates and
// builtin types.
func (a *Analyzer) lookupName(name string, ns Namespace) *Def {
	for _, sc := range a.scopeChain() {
		if d := a.db.lookupInScope(sc, name, ns, 0); d != nil {
			return d
		}
	}
	if ns != NSValue {
		if c := a.db.CrateByName(name); c != nil {
			return c.Root.Def
		}
		if d := a.db.builtins[name]; d != nil {
			return d
		}
	}
	return nil
}

func (db *Database) lookupInScope(sc *ItemScope, name string, ns Namespace, depth int) *Def {
	if sc == nil || depth > maxResolveDepth {
		return nil
	}
	for _, d := range sc.Defs[name] {
		if ns.accepts(d) {
			return d
		}
	}
	for _, imp := range sc.Imports {
		if imp.Glob || imp.Name != name {
			continue
		}
		if d := db.resolveImport(sc, imp.Path, ns, depth+1); d != nil {
			return d
		}
	}
	for _, imp := range sc.Imports {
		if !imp.Glob {
			continue
		}
		target := db.resolveImport(sc, imp.Path, NSType, depth+1)
		if d := db.member(target, name, ns, depth+1); d != nil {
			return d
		}
	}
	return nil
}

// resolveImport resolves a use path. Paths are tried relative to the
// importing module first, then to the crate root, then as extern crates.
func (db *Database) resolveImport(sc *ItemScope, segs []string, ns Namespace, depth int) *Def {
	if len(segs) == 0 || depth > maxResolveDepth {
		return nil
	}
	m := sc.Module
	var cur *Def
	rest := segs[1:]
	switch segs[0] {
	case "crate":
		cur = m.Crate.Root.Def
	case "self":
		cur = m.Def
	case "super":
		if m.Parent == nil {
			return nil
		}
		cur = m.Parent.Def
	default:
		first := NSType
		if len(segs) == 1 {
			first = ns
		}
		cur = db.lookupInScope(m.Scope, segs[0], first, depth+1)
		if cur == nil && sc != m.Scope {
			cur = db.lookupInScope(sc, segs[0], first, depth+1)
		}
		if cur == nil && !m.IsRoot() {
			cur = db.lookupInScope(m.Crate.Root.Scope, segs[0], first, depth+1)
		}
		if cur == nil {
			if c := db.CrateByName(segs[0]); c != nil {
				cur = c.Root.Def
			}
		}
		if cur == nil {
			cur = db.builtins[segs[0]]
		}
	}
	for i, seg := range rest {
		want := NSType
		if i == len(rest)-1 {
			want = ns
		}
		cur = db.member(cur, seg, want, depth+1)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// member looks up name inside a module, enum, trait or type.
func (db *Database) member(owner *Def, name string, ns Namespace, depth int) *Def {
	if owner == nil {
		return nil
	}
	switch owner.Kind {
	case DefModule:
		if owner.Module == nil {
			return nil
		}
		if name == "super" && owner.Module.Parent != nil {
			return owner.Module.Parent.Def
		}
		if name == "self" {
			return owner
		}
		return db.lookupInScope(owner.Module.Scope, name, ns, depth)
	case DefEnum:
		for _, v := range db.Variants(owner) {
			if v.Name == name {
				return v
			}
		}
		return db.assocItem(owner, name)
	case DefTrait:
		for _, item := range db.TraitItems(owner) {
			if item.Name == name {
				return item
			}
		}
		return nil
	case DefStruct, DefUnion, DefTypeAlias, DefBuiltin:
		return db.assocItem(owner, name)
	}
	return nil
}

// assocItem finds an item named name in impl blocks for owner: inherent
// impls first, then trait impls, then default methods of implemented
// traits.
func (db *Database) assocItem(owner *Def, name string) *Def {
	var traitImpls []*Impl
	for _, impl := range db.impls {
		if impl.SelfDef != owner {
			continue
		}
		if impl.TraitDef != nil {
			traitImpls = append(traitImpls, impl)
			continue
		}
		for _, item := range impl.Items {
			if item.Name == name {
				return item
			}
		}
	}
	for _, impl := range traitImpls {
		for _, item := range impl.Items {
			if item.Name == name {
				return item
			}
		}
	}
	for _, impl := range traitImpls {
		for _, item := range db.TraitItems(impl.TraitDef) {
			if item.Name == name {
				return item
			}
		}
	}
	return nil
}

// typeDef resolves a type node to the definition it names, looking through
// generic arguments.
func (a *Analyzer) typeDef(n *sitter.Node) *Def {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case syntax.KindPrimitiveType:
		return a.db.builtins[a.text(n)]
	case syntax.KindGenericType:
		return a.typeDef(n.ChildByFieldName("type"))
	case syntax.KindTypeIdentifier, syntax.KindScopedTypeIdentifier, syntax.KindIdentifier, syntax.KindScopedIdentifier:
		res := a.ResolvePath(n)
		if res == nil {
			return nil
		}
		switch res.Kind {
		case ResDef:
			return res.Def
		case ResSelfType:
			return res.Impl.SelfDef
		}
	}
	return nil
}

// ResolveMacro resolves the macro invoked by a macro_invocation node.
// Macros defined textually in the current module or its ancestors win over
// exported macros of other crates.
func (a *Analyzer) ResolveMacro(call *sitter.Node) *MacroDef {
	if call == nil || call.Type() != syntax.KindMacroInvocation {
		return nil
	}
	segs := a.db.pathSegments(a.file.ID, call.ChildByFieldName("macro"))
	if len(segs) == 0 {
		return nil
	}
	name := segs[len(segs)-1]
	offset := call.StartByte()

	var best *MacroDef
	for _, sc := range a.scopeChain() {
		for _, mac := range sc.Macros {
			if mac.Name == name && mac.File == a.file.ID && mac.Node.StartByte() < offset {
				best = mac
			}
		}
		if best != nil {
			return best
		}
	}
	for m := a.Module(); m != nil && m.Parent != nil; {
		m = m.Parent
		if m.Scope == nil {
			continue
		}
		for _, mac := range m.Scope.Macros {
			if mac.Name == name {
				return mac
			}
		}
	}
	for _, mac := range a.db.macros {
		if mac.Name == name && mac.Exported {
			return mac
		}
	}
	return nil
}
