package hir

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/wayfind/internal/syntax"
)

// maxInferDepth bounds recursive inference through calls, aliases and
// bindings.
const maxInferDepth = 64

// TypeOfExpr infers the type of an expression node.
func (a *Analyzer) TypeOfExpr(n *sitter.Node) (Ty, bool) {
	t := newInferer(a.db).expr(a.file.ID, n)
	return t, !t.IsUnknown()
}

// TypeOfPat infers the type of a pattern node or a name bound by one.
func (a *Analyzer) TypeOfPat(n *sitter.Node) (Ty, bool) {
	t := newInferer(a.db).pat(a.file.ID, n)
	return t, !t.IsUnknown()
}

// ResolveField resolves the field named by a field_expression.
func (a *Analyzer) ResolveField(fieldExpr *sitter.Node) *Field {
	if fieldExpr == nil || fieldExpr.Type() != syntax.KindFieldExpression {
		return nil
	}
	inf := newInferer(a.db)
	recv := inf.expr(a.file.ID, fieldExpr.ChildByFieldName("value")).Deref()
	return a.db.fieldOf(recv, a.text(fieldExpr.ChildByFieldName("field")))
}

// ResolveStructField resolves the field named inside a struct literal or
// struct pattern: a field_initializer, a shorthand initializer or a
// field_pattern.
func (a *Analyzer) ResolveStructField(n *sitter.Node) *Field {
	if n == nil {
		return nil
	}
	var name string
	switch n.Type() {
	case syntax.KindFieldInitializer:
		name = a.text(n.ChildByFieldName("field"))
	case "shorthand_field_initializer":
		name = a.text(n.NamedChild(0))
	case syntax.KindFieldPattern:
		name = a.text(n.ChildByFieldName("name"))
	default:
		return nil
	}
	for anc := n.Parent(); anc != nil; anc = anc.Parent() {
		var owner *sitter.Node
		switch anc.Type() {
		case syntax.KindStructExpression:
			owner = anc.ChildByFieldName("name")
		case syntax.KindStructPattern:
			owner = anc.ChildByFieldName("type")
		default:
			continue
		}
		def := a.at(owner).typeDef(owner)
		if def == nil {
			if res := a.at(owner).ResolvePath(owner); res != nil && res.Def != nil {
				def = res.Def
			}
		}
		return fieldByName(def, name)
	}
	return nil
}

// ResolveMethodCall resolves the method called through a field_expression
// in callee position.
func (a *Analyzer) ResolveMethodCall(fieldExpr *sitter.Node) *Def {
	if fieldExpr == nil || fieldExpr.Type() != syntax.KindFieldExpression {
		return nil
	}
	inf := newInferer(a.db)
	recv := inf.expr(a.file.ID, fieldExpr.ChildByFieldName("value"))
	return inf.method(recv, a.text(fieldExpr.ChildByFieldName("field")))
}

// SelfType returns the type of Self inside impl.
func (a *Analyzer) SelfType(impl *Impl) Ty {
	return newInferer(a.db).implSelf(impl)
}

type inferer struct {
	db     *Database
	depth  int
	active map[nodeKey]bool
}

func newInferer(db *Database) *inferer {
	return &inferer{db: db, active: make(map[nodeKey]bool)}
}

func (inf *inferer) enter(file FileID, n *sitter.Node) bool {
	k := keyOf(file, n)
	if inf.active[k] || inf.depth >= maxInferDepth {
		return false
	}
	inf.active[k] = true
	inf.depth++
	return true
}

func (inf *inferer) exit(file FileID, n *sitter.Node) {
	delete(inf.active, keyOf(file, n))
	inf.depth--
}

func (inf *inferer) text(file FileID, n *sitter.Node) string {
	return inf.db.text(file, n)
}

func (inf *inferer) expr(file FileID, n *sitter.Node) Ty {
	if n == nil {
		return Unknown()
	}
	if !inf.enter(file, n) {
		return Unknown()
	}
	defer inf.exit(file, n)

	switch n.Type() {
	case "integer_literal":
		return inf.intLiteral(file, n)
	case "float_literal":
		return inf.floatLiteral(file, n)
	case "string_literal", "raw_string_literal":
		return RefTo(Scalar("str"), false)
	case "char_literal":
		return Scalar("char")
	case "boolean_literal":
		return Scalar("bool")
	case "unit_expression":
		return Unit()
	case "parenthesized_expression":
		return inf.expr(file, n.NamedChild(0))
	case "tuple_expression":
		var elems []Ty
		for _, c := range syntax.NamedChildren(n) {
			if c.Type() != syntax.KindAttributeItem {
				elems = append(elems, inf.expr(file, c).fixed())
			}
		}
		return Ty{Kind: TyTuple, Args: elems}
	case "array_expression":
		return inf.array(file, n)
	case "reference_expression":
		inner := inf.expr(file, n.ChildByFieldName("value"))
		return RefTo(inner.fixed(), hasChild(n, "mutable_specifier"))
	case "unary_expression":
		inner := inf.expr(file, n.NamedChild(0))
		if op := n.Child(0); op != nil && op.Type() == "*" {
			if inner.Kind == TyRef {
				return inner.elem()
			}
			return Unknown()
		}
		return inner
	case "binary_expression":
		return inf.binary(file, n)
	case "assignment_expression", "compound_assignment_expr":
		return Unit()
	case "type_cast_expression":
		return inf.lower(file, n.ChildByFieldName("type"))
	case "return_expression", "break_expression", "continue_expression":
		return Never()
	case syntax.KindBlock:
		return inf.block(file, n)
	case "unsafe_block", "const_block":
		return inf.block(file, firstOfKind(n, syntax.KindBlock))
	case syntax.KindIfExpression:
		return inf.ifExpr(file, n)
	case syntax.KindMatchExpression:
		return inf.match(file, n)
	case syntax.KindWhileExpression, syntax.KindForExpression:
		return Unit()
	case syntax.KindIdentifier, syntax.KindSelf, syntax.KindScopedIdentifier:
		return inf.path(file, n)
	case syntax.KindGenericFunction:
		return inf.path(file, n.ChildByFieldName("function"))
	case syntax.KindCallExpression:
		return inf.call(file, n)
	case syntax.KindFieldExpression:
		return inf.field(file, n)
	case syntax.KindStructExpression:
		return inf.structLit(file, n)
	case "index_expression":
		return inf.index(file, n)
	case "expression_statement":
		return inf.expr(file, n.NamedChild(0))
	}
	return Unknown()
}

func (inf *inferer) intLiteral(file FileID, n *sitter.Node) Ty {
	text := strings.ReplaceAll(inf.text(file, n), "_", "")
	isHex := strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X")
	for _, s := range []string{"i128", "u128", "isize", "usize", "i16", "u16", "i32", "u32", "i64", "u64", "i8", "u8"} {
		if strings.HasSuffix(text, s) {
			return Scalar(s)
		}
	}
	if !isHex {
		for _, s := range []string{"f32", "f64"} {
			if strings.HasSuffix(text, s) {
				return Scalar(s)
			}
		}
	}
	if t := inf.expectedScalar(file, n); t.Kind == TyScalar && isIntName(t.Name) {
		return t
	}
	return Ty{Kind: TyScalar, Name: "i32", unsuffixed: true}
}

func (inf *inferer) floatLiteral(file FileID, n *sitter.Node) Ty {
	text := inf.text(file, n)
	for _, s := range []string{"f32", "f64"} {
		if strings.HasSuffix(text, s) {
			return Scalar(s)
		}
	}
	if t := inf.expectedScalar(file, n); t.Kind == TyScalar && isFloatName(t.Name) {
		return t
	}
	return Ty{Kind: TyScalar, Name: "f64", unsuffixed: true}
}

// expectedScalar returns the declared type a literal is assigned to, when
// the literal is the initializer of an annotated let, const or static.
func (inf *inferer) expectedScalar(file FileID, n *sitter.Node) Ty {
	parent := n.Parent()
	if parent == nil {
		return Unknown()
	}
	switch parent.Type() {
	case syntax.KindLetDeclaration, syntax.KindConst, syntax.KindStatic:
		if syntax.IsField(parent, "value", n) {
			if ty := parent.ChildByFieldName("type"); ty != nil && ty.Type() == syntax.KindPrimitiveType {
				return Scalar(inf.text(file, ty))
			}
		}
	}
	return Unknown()
}

func (t Ty) fixed() Ty {
	t.unsuffixed = false
	return t
}

func (inf *inferer) array(file FileID, n *sitter.Node) Ty {
	elems := make([]*sitter.Node, 0)
	for _, c := range syntax.NamedChildren(n) {
		if c.Type() != syntax.KindAttributeItem && !syntax.IsField(n, "length", c) {
			elems = append(elems, c)
		}
	}
	elem := Unknown()
	if len(elems) > 0 {
		elem = inf.expr(file, elems[0]).fixed()
	}
	length := strconv.Itoa(len(elems))
	if l := n.ChildByFieldName("length"); l != nil {
		length = inf.text(file, l)
	}
	return Ty{Kind: TyArray, Elem: &elem, Len: length}
}

func (inf *inferer) binary(file FileID, n *sitter.Node) Ty {
	op := inf.text(file, n.ChildByFieldName("operator"))
	switch op {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		return Scalar("bool")
	}
	l := inf.expr(file, n.ChildByFieldName("left"))
	r := inf.expr(file, n.ChildByFieldName("right"))
	if op == "<<" || op == ">>" {
		return l
	}
	l, r = l.Deref(), r.Deref()
	switch {
	case l.IsUnknown():
		return r
	case l.unsuffixed && r.Kind == TyScalar && !r.unsuffixed:
		return r
	}
	return l
}

func (inf *inferer) block(file FileID, n *sitter.Node) Ty {
	if n == nil {
		return Unknown()
	}
	if tail := TailExpr(n); tail != nil {
		return inf.expr(file, tail)
	}
	return Unit()
}

// TailExpr returns the trailing expression of a block, or nil when the
// block ends in a statement.
func TailExpr(block *sitter.Node) *sitter.Node {
	children := syntax.NamedChildren(block)
	for i := len(children) - 1; i >= 0; i-- {
		c := children[i]
		switch c.Type() {
		case syntax.KindLineComment, syntax.KindBlockComment:
			continue
		case "expression_statement":
			last := c.Child(int(c.ChildCount()) - 1)
			if last != nil && last.Type() == ";" {
				return nil
			}
			return c.NamedChild(0)
		}
		if syntax.IsExpression(c) {
			return c
		}
		return nil
	}
	return nil
}

func (inf *inferer) ifExpr(file FileID, n *sitter.Node) Ty {
	cons := inf.expr(file, n.ChildByFieldName("consequence"))
	alt := n.ChildByFieldName("alternative")
	if alt == nil {
		return Unit()
	}
	if cons.Kind == TyNever || cons.IsUnknown() {
		return inf.expr(file, alt.NamedChild(0))
	}
	return cons
}

func (inf *inferer) match(file FileID, n *sitter.Node) Ty {
	for _, arm := range syntax.NamedChildren(n.ChildByFieldName("body")) {
		if arm.Type() != syntax.KindMatchArm {
			continue
		}
		t := inf.expr(file, arm.ChildByFieldName("value"))
		if t.Kind != TyNever && !t.IsUnknown() {
			return t.fixed()
		}
	}
	return Unknown()
}

func (inf *inferer) path(file FileID, n *sitter.Node) Ty {
	res := inf.db.Analyzer(file, n).ResolvePath(n)
	if res == nil {
		return Unknown()
	}
	switch res.Kind {
	case ResLocal:
		return inf.pat(res.Local.File, res.Local.Node)
	case ResSelfParam:
		return inf.selfParam(res.SelfParam)
	case ResDef, ResAssocItem:
		return inf.valueOf(res.Def)
	}
	return Unknown()
}

// valueOf returns the type of a definition used as a value.
func (inf *inferer) valueOf(d *Def) Ty {
	switch d.Kind {
	case DefFunction:
		params, ret := inf.signature(d)
		return Ty{Kind: TyFnDef, Name: d.Name, Def: d, Args: params, Elem: &ret}
	case DefConst, DefStatic:
		return inf.lower(d.File, d.Node.ChildByFieldName("type"))
	case DefStruct:
		if isTupleLike(d) {
			return inf.ctor(d, d)
		}
		return AdtOf(d, unknownArgs(d))
	case DefVariant:
		if isTupleLike(d) {
			return inf.ctor(d, d.Parent)
		}
		return AdtOf(d.Parent, unknownArgs(d.Parent))
	}
	return Unknown()
}

func (inf *inferer) ctor(d *Def, adt *Def) Ty {
	params := make([]Ty, 0, len(d.Fields))
	for _, f := range d.Fields {
		params = append(params, inf.lower(f.File, f.TypeNode))
	}
	ret := AdtOf(adt, paramArgs(inf.db, adt))
	return Ty{Kind: TyFnDef, Name: d.Name, Def: d, Args: params, Elem: &ret}
}

func isTupleLike(d *Def) bool {
	return len(d.Fields) > 0 && !d.Fields[0].Named
}

// signature lowers the parameter and return types of a function. The
// receiver is not included.
func (inf *inferer) signature(d *Def) ([]Ty, Ty) {
	var params []Ty
	for _, p := range syntax.NamedChildren(d.Node.ChildByFieldName("parameters")) {
		if p.Type() == syntax.KindParameter {
			params = append(params, inf.lower(d.File, p.ChildByFieldName("type")))
		}
	}
	ret := Unit()
	if r := d.Node.ChildByFieldName("return_type"); r != nil {
		ret = inf.lower(d.File, r)
	}
	return params, ret
}

func (inf *inferer) call(file FileID, n *sitter.Node) Ty {
	callee := n.ChildByFieldName("function")
	args := argumentNodes(n)
	if callee == nil {
		return Unknown()
	}
	if callee.Type() == syntax.KindFieldExpression {
		recv := inf.expr(file, callee.ChildByFieldName("value"))
		d := inf.method(recv, inf.text(file, callee.ChildByFieldName("field")))
		if d == nil {
			return Unknown()
		}
		m := adtSubst(inf.db, recv.Deref())
		params, ret := inf.signature(d)
		inf.unifyArgs(file, params, args, m)
		return ret.Subst(m).fixed()
	}

	path := callee
	if callee.Type() == syntax.KindGenericFunction {
		path = callee.ChildByFieldName("function")
	}
	switch path.Type() {
	case syntax.KindIdentifier, syntax.KindScopedIdentifier, syntax.KindSelf:
	default:
		return Unknown()
	}
	res := inf.db.Analyzer(file, path).ResolvePath(path)
	if res == nil {
		return Unknown()
	}
	switch res.Kind {
	case ResSelfType:
		return inf.implSelf(res.Impl)
	case ResDef, ResAssocItem:
	default:
		return Unknown()
	}
	d := res.Def
	m := make(map[string]Ty)
	switch d.Kind {
	case DefFunction:
		params, ret := inf.signature(d)
		if prefix := path.ChildByFieldName("path"); prefix != nil && d.Impl != nil {
			for k, v := range adtSubst(inf.db, inf.lower(file, prefix)) {
				m[k] = v
			}
		}
		inf.unifyArgs(file, params, args, m)
		return ret.Subst(m).fixed()
	case DefStruct, DefVariant:
		adt := d
		if d.Kind == DefVariant {
			adt = d.Parent
		}
		var params []Ty
		for _, f := range d.Fields {
			params = append(params, inf.lower(f.File, f.TypeNode))
		}
		inf.unifyArgs(file, params, args, m)
		return AdtOf(adt, paramArgs(inf.db, adt)).Subst(m).withUnknownParams(inf.db, adt)
	}
	return Unknown()
}

func argumentNodes(call *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range syntax.NamedChildren(call.ChildByFieldName("arguments")) {
		switch c.Type() {
		case syntax.KindAttributeItem, syntax.KindLineComment, syntax.KindBlockComment:
			continue
		}
		out = append(out, c)
	}
	return out
}

func (inf *inferer) unifyArgs(file FileID, params []Ty, args []*sitter.Node, m map[string]Ty) {
	for i, p := range params {
		if i >= len(args) {
			return
		}
		unify(p, inf.expr(file, args[i]), m)
	}
}

// unify binds type parameters in param to the matching parts of arg.
func unify(param, arg Ty, m map[string]Ty) {
	if arg.IsUnknown() {
		return
	}
	switch param.Kind {
	case TyParam:
		if _, ok := m[param.Name]; !ok {
			m[param.Name] = arg.fixed()
		}
	case TyRef, TyArray, TySlice:
		if arg.Kind == param.Kind && param.Elem != nil && arg.Elem != nil {
			unify(*param.Elem, *arg.Elem, m)
		}
	case TyAdt:
		if arg.Kind == TyAdt && arg.Def == param.Def {
			for i := range param.Args {
				if i < len(arg.Args) {
					unify(param.Args[i], arg.Args[i], m)
				}
			}
		}
	case TyTuple:
		if arg.Kind == TyTuple {
			for i := range param.Args {
				if i < len(arg.Args) {
					unify(param.Args[i], arg.Args[i], m)
				}
			}
		}
	}
}

// withUnknownParams replaces parameters of adt left unbound by inference.
func (t Ty) withUnknownParams(db *Database, adt *Def) Ty {
	m := make(map[string]Ty)
	for _, p := range paramArgs(db, adt) {
		m[p.Name] = Unknown()
	}
	return t.Subst(m)
}

func (inf *inferer) method(recv Ty, name string) *Def {
	base := recv.Deref()
	var owner *Def
	switch base.Kind {
	case TyAdt:
		owner = base.Def
	case TyScalar:
		owner = inf.db.builtins[base.Name]
	}
	if owner == nil {
		return nil
	}
	d := inf.db.assocItem(owner, name)
	if d == nil || d.Kind != DefFunction {
		return nil
	}
	return d
}

func (inf *inferer) field(file FileID, n *sitter.Node) Ty {
	recv := inf.expr(file, n.ChildByFieldName("value"))
	base := recv.Deref()
	name := inf.text(file, n.ChildByFieldName("field"))
	if base.Kind == TyTuple {
		for i, a := range base.Args {
			if strconv.Itoa(i) == name {
				return a
			}
		}
		return Unknown()
	}
	f := inf.db.fieldOf(base, name)
	if f == nil {
		return Unknown()
	}
	return inf.lower(f.File, f.TypeNode).Subst(adtSubst(inf.db, base))
}

func (db *Database) fieldOf(t Ty, name string) *Field {
	if t.Kind != TyAdt || t.Def == nil {
		return nil
	}
	return fieldByName(t.Def, name)
}

func fieldByName(d *Def, name string) *Field {
	if d == nil {
		return nil
	}
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (inf *inferer) structLit(file FileID, n *sitter.Node) Ty {
	name := n.ChildByFieldName("name")
	res := inf.db.Analyzer(file, name).ResolvePath(name)
	if res == nil {
		return Unknown()
	}
	if res.Kind == ResSelfType {
		return inf.implSelf(res.Impl)
	}
	d := res.Def
	if d == nil {
		return Unknown()
	}
	adt := d
	if d.Kind == DefVariant {
		adt = d.Parent
	}
	if !adt.IsAdt() {
		return Unknown()
	}
	m := make(map[string]Ty)
	for _, init := range syntax.NamedChildren(n.ChildByFieldName("body")) {
		var fname string
		var value *sitter.Node
		switch init.Type() {
		case syntax.KindFieldInitializer:
			fname = inf.text(file, init.ChildByFieldName("field"))
			value = init.ChildByFieldName("value")
		case "shorthand_field_initializer":
			value = init.NamedChild(0)
			fname = inf.text(file, value)
		default:
			continue
		}
		if f := fieldByName(d, fname); f != nil {
			unify(inf.lower(f.File, f.TypeNode), inf.expr(file, value), m)
		}
	}
	return AdtOf(adt, paramArgs(inf.db, adt)).Subst(m).withUnknownParams(inf.db, adt)
}

func (inf *inferer) index(file FileID, n *sitter.Node) Ty {
	base := inf.expr(file, n.NamedChild(0)).Deref()
	idx := n.NamedChild(1)
	if base.Kind != TyArray && base.Kind != TySlice {
		return Unknown()
	}
	if idx != nil && idx.Type() == "range_expression" {
		return Ty{Kind: TySlice, Elem: base.Elem}
	}
	return base.elem()
}

func (inf *inferer) selfParam(sp *SelfParam) Ty {
	impl := inf.db.Analyzer(sp.File, sp.Node).SelfImpl()
	self := Ty{Kind: TyParam, Name: "Self"}
	if impl != nil {
		self = inf.implSelf(impl)
	}
	text := inf.text(sp.File, sp.Node)
	if strings.HasPrefix(text, "&") {
		return RefTo(self, hasChild(sp.Node, "mutable_specifier"))
	}
	if ty := sp.Node.ChildByFieldName("type"); ty != nil {
		return inf.lower(sp.File, ty)
	}
	return self
}

func (inf *inferer) implSelf(impl *Impl) Ty {
	if impl == nil {
		return Unknown()
	}
	return inf.lower(impl.File, impl.Node.ChildByFieldName("type"))
}

// lower converts a type node to a Ty.
func (inf *inferer) lower(file FileID, n *sitter.Node) Ty {
	if n == nil {
		return Unknown()
	}
	if !inf.enter(file, n) {
		return Unknown()
	}
	defer inf.exit(file, n)

	switch n.Type() {
	case syntax.KindPrimitiveType:
		return Scalar(inf.text(file, n))
	case syntax.KindTypeIdentifier, syntax.KindScopedTypeIdentifier, syntax.KindIdentifier, syntax.KindScopedIdentifier:
		return inf.lowerPath(file, n)
	case syntax.KindGenericType:
		base := inf.lower(file, n.ChildByFieldName("type"))
		if base.Kind != TyAdt {
			return base
		}
		var args []Ty
		for _, c := range syntax.NamedChildren(n.ChildByFieldName("type_arguments")) {
			switch c.Type() {
			case "lifetime", "type_binding", "trait_bounds":
				continue
			}
			args = append(args, inf.lower(file, c))
		}
		base.Args = args
		return base
	case "reference_type":
		return RefTo(inf.lower(file, n.ChildByFieldName("type")), hasChild(n, "mutable_specifier"))
	case "tuple_type":
		var elems []Ty
		for _, c := range syntax.NamedChildren(n) {
			elems = append(elems, inf.lower(file, c))
		}
		return Ty{Kind: TyTuple, Args: elems}
	case "unit_type":
		return Unit()
	case "array_type":
		elem := inf.lower(file, n.ChildByFieldName("element"))
		if l := n.ChildByFieldName("length"); l != nil {
			return Ty{Kind: TyArray, Elem: &elem, Len: inf.text(file, l)}
		}
		return Ty{Kind: TySlice, Elem: &elem}
	case "never_type":
		return Never()
	}
	return Unknown()
}

func (inf *inferer) lowerPath(file FileID, n *sitter.Node) Ty {
	res := inf.db.Analyzer(file, n).ResolvePath(n)
	if res == nil {
		return Unknown()
	}
	switch res.Kind {
	case ResGenericParam:
		return Ty{Kind: TyParam, Name: res.Generic.Name}
	case ResSelfType:
		return inf.implSelf(res.Impl)
	case ResDef, ResAssocItem:
		d := res.Def
		switch {
		case d.IsAdt():
			return AdtOf(d, unknownArgs(d))
		case d.Kind == DefBuiltin:
			return Scalar(d.Name)
		case d.Kind == DefTypeAlias && d.Node != nil:
			return inf.lower(d.File, d.Node.ChildByFieldName("type"))
		}
	}
	return Unknown()
}

// pat infers the type of a pattern node by finding the value it matches
// against and projecting through the enclosing patterns.
func (inf *inferer) pat(file FileID, n *sitter.Node) Ty {
	if n == nil {
		return Unknown()
	}
	switch n.Type() {
	case "integer_literal", "float_literal", "string_literal", "char_literal", "boolean_literal":
		return inf.expr(file, n).fixed()
	}
	if !inf.enter(file, n) {
		return Unknown()
	}
	defer inf.exit(file, n)

	parent := n.Parent()
	if parent == nil {
		return Unknown()
	}
	switch parent.Type() {
	case syntax.KindLetDeclaration:
		if ty := parent.ChildByFieldName("type"); ty != nil {
			return inf.lower(file, ty)
		}
		return inf.expr(file, parent.ChildByFieldName("value")).fixed()
	case syntax.KindParameter:
		if ty := parent.ChildByFieldName("type"); ty != nil {
			return inf.lower(file, ty)
		}
		return Unknown()
	case syntax.KindForExpression:
		return elementOf(inf.expr(file, parent.ChildByFieldName("value")))
	case syntax.KindLetCondition:
		return inf.expr(file, parent.ChildByFieldName("value")).fixed()
	case syntax.KindMatchPattern:
		arm := parent.Parent()
		if arm == nil || arm.Parent() == nil || arm.Parent().Parent() == nil {
			return Unknown()
		}
		return inf.expr(file, arm.Parent().Parent().ChildByFieldName("value")).fixed()
	case "ref_pattern":
		return RefTo(inf.pat(file, parent), false)
	case "mut_pattern", "or_pattern", "captured_pattern":
		return inf.pat(file, parent)
	case "reference_pattern":
		t := inf.pat(file, parent)
		if t.Kind == TyRef {
			return t.elem()
		}
		return Unknown()
	case "slice_pattern":
		t := inf.pat(file, parent)
		return binding(t, elementOf(t.Deref()))
	case "tuple_pattern":
		t := inf.pat(file, parent)
		base := t.Deref()
		i := patternIndex(parent, n)
		if base.Kind != TyTuple || i < 0 || i >= len(base.Args) {
			return Unknown()
		}
		return binding(t, base.Args[i])
	case syntax.KindTupleStructPattern:
		t := inf.pat(file, parent)
		typeNode := parent.ChildByFieldName("type")
		var d *Def
		if res := inf.db.Analyzer(file, typeNode).ResolvePath(typeNode); res != nil {
			d = res.Def
		}
		i := patternIndex(parent, n)
		if d == nil || i < 0 || i >= len(d.Fields) {
			return Unknown()
		}
		f := d.Fields[i]
		return binding(t, inf.lower(f.File, f.TypeNode).Subst(adtSubst(inf.db, t.Deref())))
	case syntax.KindStructPattern:
		return inf.structPatField(file, parent, inf.text(file, n))
	case syntax.KindFieldPattern:
		sp := parent.Parent()
		if sp == nil {
			return Unknown()
		}
		return inf.structPatField(file, sp, inf.text(file, parent.ChildByFieldName("name")))
	case syntax.KindClosureParameters:
		return Unknown()
	}
	return Unknown()
}

func (inf *inferer) structPatField(file FileID, sp *sitter.Node, name string) Ty {
	t := inf.pat(file, sp)
	typeNode := sp.ChildByFieldName("type")
	var d *Def
	if res := inf.db.Analyzer(file, typeNode).ResolvePath(typeNode); res != nil {
		if res.Kind == ResSelfType {
			d = res.Impl.SelfDef
		} else {
			d = res.Def
		}
	}
	f := fieldByName(d, name)
	if f == nil {
		return Unknown()
	}
	return binding(t, inf.lower(f.File, f.TypeNode).Subst(adtSubst(inf.db, t.Deref())))
}

// binding applies default binding modes: matching a non-reference pattern
// against a reference binds the inner names by reference.
func binding(outer, inner Ty) Ty {
	if outer.Kind == TyRef && !inner.IsUnknown() {
		return RefTo(inner, outer.Mut)
	}
	return inner
}

func patternIndex(parent, n *sitter.Node) int {
	i := 0
	for _, c := range syntax.NamedChildren(parent) {
		if syntax.IsField(parent, "type", c) {
			continue
		}
		switch c.Type() {
		case syntax.KindLineComment, syntax.KindBlockComment:
			continue
		}
		if syntax.SameNode(c, n) {
			return i
		}
		i++
	}
	return -1
}

func elementOf(t Ty) Ty {
	switch t.Kind {
	case TyArray, TySlice:
		return t.elem()
	case TyRef:
		inner := t.elem()
		if inner.Kind == TyArray || inner.Kind == TySlice {
			return RefTo(inner.elem(), t.Mut)
		}
	}
	return Unknown()
}

func adtSubst(db *Database, t Ty) map[string]Ty {
	if t.Kind != TyAdt || t.Def == nil || t.Def.Node == nil {
		return nil
	}
	names := GenericParamNames(t.Def.Node.ChildByFieldName("type_parameters"))
	if len(names) == 0 {
		return nil
	}
	m := make(map[string]Ty, len(names))
	for i, n := range names {
		if i < len(t.Args) {
			m[db.text(t.Def.File, n)] = t.Args[i]
		}
	}
	return m
}

// paramArgs returns the generic parameters of d as TyParam arguments.
func paramArgs(db *Database, d *Def) []Ty {
	if d == nil || d.Node == nil {
		return nil
	}
	var out []Ty
	for _, n := range GenericParamNames(d.Node.ChildByFieldName("type_parameters")) {
		out = append(out, Ty{Kind: TyParam, Name: db.text(d.File, n)})
	}
	return out
}

func unknownArgs(d *Def) []Ty {
	if d == nil || d.Node == nil {
		return nil
	}
	names := GenericParamNames(d.Node.ChildByFieldName("type_parameters"))
	if len(names) == 0 {
		return nil
	}
	out := make([]Ty, len(names))
	for i := range out {
		out[i] = Unknown()
	}
	return out
}

func hasChild(n *sitter.Node, kind string) bool {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		if c := n.Child(i); c != nil && c.Type() == kind {
			return true
		}
	}
	return false
}

func firstOfKind(n *sitter.Node, kind string) *sitter.Node {
	for _, c := range syntax.NamedChildren(n) {
		if c.Type() == kind {
			return c
		}
	}
	return nil
}
