package hir

import "strings"

// TyKind classifies a Ty.
type TyKind int

const (
	TyUnknown TyKind = iota
	TyScalar
	TyAdt
	TyRef
	TyTuple
	TyArray
	TySlice
	TyNever
	TyFnDef
	TyParam
)

// Ty is an inferred or declared type.
type Ty struct {
	Kind TyKind
	Name string // scalar, ADT, function or parameter name
	Def  *Def   // ADT or function definition
	Args []Ty   // ADT arguments, tuple elements, function parameters
	Elem *Ty    // referent, array/slice element, function return
	Mut  bool
	Len  string

	// unsuffixed marks the type of an integer or float literal without a
	// suffix, which yields to the other operand in arithmetic.
	unsuffixed bool
}

// Unknown is the type of anything inference could not determine.
func Unknown() Ty { return Ty{Kind: TyUnknown} }

// Scalar returns a builtin scalar type such as u32 or str.
func Scalar(name string) Ty { return Ty{Kind: TyScalar, Name: name} }

// Unit returns the empty tuple.
func Unit() Ty { return Ty{Kind: TyTuple} }

// Never returns the never type.
func Never() Ty { return Ty{Kind: TyNever} }

// RefTo returns a reference to elem.
func RefTo(elem Ty, mut bool) Ty { return Ty{Kind: TyRef, Elem: &elem, Mut: mut} }

// AdtOf returns a struct, union or enum type.
func AdtOf(d *Def, args []Ty) Ty { return Ty{Kind: TyAdt, Name: d.Name, Def: d, Args: args} }

// IsUnknown reports whether inference gave up.
func (t Ty) IsUnknown() bool { return t.Kind == TyUnknown }

// IsUnit reports whether t is ().
func (t Ty) IsUnit() bool { return t.Kind == TyTuple && len(t.Args) == 0 }

// Deref strips all reference layers.
func (t Ty) Deref() Ty {
	for t.Kind == TyRef && t.Elem != nil {
		t = *t.Elem
	}
	return t
}

// Subst replaces type parameters using m.
func (t Ty) Subst(m map[string]Ty) Ty {
	if len(m) == 0 {
		return t
	}
	switch t.Kind {
	case TyParam:
		if r, ok := m[t.Name]; ok {
			return r
		}
		return t
	case TyUnknown, TyScalar, TyNever:
		return t
	}
	out := t
	if len(t.Args) > 0 {
		out.Args = make([]Ty, len(t.Args))
		for i, a := range t.Args {
			out.Args[i] = a.Subst(m)
		}
	}
	if t.Elem != nil {
		e := t.Elem.Subst(m)
		out.Elem = &e
	}
	return out
}

// String renders the type the way it is written in source.
func (t Ty) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t Ty) write(b *strings.Builder) {
	switch t.Kind {
	case TyUnknown:
		b.WriteString("{unknown}")
	case TyScalar, TyParam:
		b.WriteString(t.Name)
	case TyNever:
		b.WriteString("!")
	case TyAdt:
		b.WriteString(t.Name)
		if len(t.Args) > 0 {
			b.WriteString("<")
			writeList(b, t.Args)
			b.WriteString(">")
		}
	case TyRef:
		b.WriteString("&")
		if t.Mut {
			b.WriteString("mut ")
		}
		t.elem().write(b)
	case TyTuple:
		b.WriteString("(")
		writeList(b, t.Args)
		if len(t.Args) == 1 {
			b.WriteString(",")
		}
		b.WriteString(")")
	case TyArray:
		b.WriteString("[")
		t.elem().write(b)
		b.WriteString("; ")
		b.WriteString(t.Len)
		b.WriteString("]")
	case TySlice:
		b.WriteString("[")
		t.elem().write(b)
		b.WriteString("]")
	case TyFnDef:
		b.WriteString("fn ")
		b.WriteString(t.Name)
		b.WriteString("(")
		writeList(b, t.Args)
		b.WriteString(")")
		if ret := t.elem(); !ret.IsUnit() {
			b.WriteString(" -> ")
			ret.write(b)
		}
	}
}

func (t Ty) elem() Ty {
	if t.Elem == nil {
		if t.Kind == TyFnDef {
			return Unit()
		}
		return Unknown()
	}
	return *t.Elem
}

func writeList(b *strings.Builder, tys []Ty) {
	for i, a := range tys {
		if i > 0 {
			b.WriteString(", ")
		}
		a.write(b)
	}
}

func isIntName(name string) bool {
	switch name {
	case "i8", "i16", "i32", "i64", "i128", "isize", "u8", "u16", "u32", "u64", "u128", "usize":
		return true
	}
	return false
}

func isFloatName(name string) bool {
	return name == "f32" || name == "f64"
}
