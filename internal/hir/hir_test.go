package hir

import (
	"context"
	"strings"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/wayfind/internal/fixture"
	"github.com/jward/wayfind/internal/syntax"
)

// newTestDB builds a database from a fixture and returns it together with
// the file holding the cursor and the cursor offset.
func newTestDB(t *testing.T, text string) (*Database, *File, uint32) {
	t.Helper()
	fx, err := fixture.Parse(text)
	require.NoError(t, err)
	var sources []Source
	for _, f := range fx.Files {
		sources = append(sources, Source{Path: f.Path, Text: f.Text})
	}
	db, err := New(context.Background(), sources)
	require.NoError(t, err)
	if fx.MarkerPath == "" {
		return db, nil, 0
	}
	f := db.FileByPath(fx.MarkerPath)
	require.NotNil(t, f)
	return db, f, fx.Markers[0]
}

func refAt(t *testing.T, f *File, offset uint32) *sitter.Node {
	t.Helper()
	n := syntax.FindNameRefAt(f.Tree.Root(), offset)
	require.NotNil(t, n, "no name ref at %d", offset)
	return n
}

// exprAt returns the innermost expression covering the last occurrence of
// needle.
func exprAt(t *testing.T, f *File, needle string) *sitter.Node {
	t.Helper()
	src := string(f.Tree.Source)
	i := strings.LastIndex(src, needle)
	require.GreaterOrEqual(t, i, 0, "%q not found", needle)
	r := syntax.TextRange{Start: uint32(i), End: uint32(i + len(needle))}
	for n := syntax.CoveringNode(f.Tree.Root(), r); n != nil; n = n.Parent() {
		if syntax.IsExpression(n) {
			return n
		}
	}
	t.Fatalf("no expression covers %q", needle)
	return nil
}

func resolveAt(t *testing.T, db *Database, f *File, offset uint32) *Resolution {
	t.Helper()
	n := syntax.PathOf(refAt(t, f, offset))
	return db.Analyzer(f.ID, n).ResolvePath(n)
}

// =============================================================================
// Module tree
// =============================================================================

func TestModuleTree_FileModules(t *testing.T) {
	t.Parallel()
	db, _, _ := newTestDB(t, `
//- /lib.rs
mod a;
mod b;
mod c { mod d {} }
//- /a.rs
pub struct A;
//- /b/mod.rs
mod inner;
//- /b/inner.rs
pub fn f() {}
`)
	crates := db.Crates()
	require.Len(t, crates, 1)
	root := crates[0].Root
	assert.True(t, root.IsRoot())
	require.Contains(t, root.Children, "a")
	require.Contains(t, root.Children, "b")
	require.Contains(t, root.Children, "c")

	a := root.Children["a"]
	assert.Equal(t, db.FileByPath("/a.rs").ID, a.File)
	assert.False(t, a.IsInline())

	b := root.Children["b"]
	require.Contains(t, b.Children, "inner")
	assert.Equal(t, db.FileByPath("/b/inner.rs").ID, b.Children["inner"].File)

	c := root.Children["c"]
	assert.True(t, c.IsInline())
	assert.Contains(t, c.Children, "d")
}

func TestModuleTree_MissingFile(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, "mod <|>missing;\n")
	name := syntax.FindNameAt(f.Tree.Root(), off)
	require.NotNil(t, name)
	assert.Nil(t, db.ModuleForDecl(f.ID, name.Parent()))
	assert.NotContains(t, db.Crates()[0].Root.Children, "missing")
}

func TestModuleTree_TwoCrates(t *testing.T) {
	t.Parallel()
	db, _, _ := newTestDB(t, `
//- /main.rs
fn main() {}
//- /foo/lib.rs
pub fn f() {}
`)
	require.Len(t, db.Crates(), 2)
	require.NotNil(t, db.CrateByName("foo"))
	assert.Equal(t, db.FileByPath("/foo/lib.rs").ID, db.CrateByName("foo").Root.File)
}

// =============================================================================
// Path resolution
// =============================================================================

func TestResolvePath_UseImport(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, `
//- /lib.rs
use a::Foo;
mod a;
mod b;
enum E { X(Foo<|>) }
//- /a.rs
pub struct Foo;
//- /b.rs
pub struct Foo;
`)
	res := resolveAt(t, db, f, off)
	require.NotNil(t, res)
	assert.Equal(t, ResDef, res.Kind)
	assert.Equal(t, DefStruct, res.Def.Kind)
	assert.Equal(t, "/a.rs", db.File(res.Def.File).Path)
}

func TestResolvePath_GlobImport(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, `
//- /lib.rs
mod m { pub fn helper() {} }
use m::*;
fn main() { help<|>er(); }
`)
	res := resolveAt(t, db, f, off)
	require.NotNil(t, res)
	assert.Equal(t, DefFunction, res.Def.Kind)
	assert.Equal(t, "helper", res.Def.Name)
}

func TestResolvePath_EnumVariantImport(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, `
enum Option<T> { Some(T), None }
use Option::Some;
fn main() { So<|>me(12); }
`)
	res := resolveAt(t, db, f, off)
	require.NotNil(t, res)
	assert.Equal(t, DefVariant, res.Def.Kind)
	assert.Equal(t, "Option", res.Def.Parent.Name)
}

func TestResolvePath_AssocFunction(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, `
struct Thing;
impl Thing { fn new() -> Thing { Thing } }
fn main() { Thing::ne<|>w(); }
`)
	res := resolveAt(t, db, f, off)
	require.NotNil(t, res)
	assert.Equal(t, ResAssocItem, res.Kind)
	assert.Equal(t, "new", res.Def.Name)
	require.NotNil(t, res.Def.Impl)
	assert.Equal(t, "Thing", res.Def.Impl.SelfDef.Name)
}

func TestResolvePath_SelfType(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, `
struct Foo;
impl Foo { fn new() -> Se<|>lf { Foo } }
`)
	res := resolveAt(t, db, f, off)
	require.NotNil(t, res)
	assert.Equal(t, ResSelfType, res.Kind)
	assert.Equal(t, "Foo", res.Impl.SelfDef.Name)
}

func TestResolvePath_CrateAndSuper(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, `
//- /lib.rs
mod a;
pub struct Top;
//- /a.rs
fn f() -> super::To<|>p { crate::Top }
`)
	res := resolveAt(t, db, f, off)
	require.NotNil(t, res)
	assert.Equal(t, "Top", res.Def.Name)
	assert.Equal(t, "/lib.rs", db.File(res.Def.File).Path)
}

func TestResolvePath_ExternCrate(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, `
//- /main.rs
fn main() { foo::ba<|>r(); }
//- /foo/lib.rs
pub fn bar() {}
`)
	res := resolveAt(t, db, f, off)
	require.NotNil(t, res)
	assert.Equal(t, "bar", res.Def.Name)
	assert.Equal(t, "/foo/lib.rs", db.File(res.Def.File).Path)
}

func TestResolvePath_Unresolved(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, "fn main() { nothi<|>ng(); }")
	assert.Nil(t, resolveAt(t, db, f, off))
}

func TestResolvePath_CyclicGlobsTerminate(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, `
mod a { pub use super::b::*; }
mod b { pub use super::a::*; }
use a::Mis<|>sing;
`)
	assert.Nil(t, resolveAt(t, db, f, off))
}

// =============================================================================
// Locals
// =============================================================================

func TestLookupLocal_Shadowing(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, "fn main() { let x = 0; let x = 1i32; <|>x; }")
	res := resolveAt(t, db, f, off)
	require.NotNil(t, res)
	require.Equal(t, ResLocal, res.Kind)
	assert.Equal(t, uint32(27), res.Local.Node.StartByte())
}

func TestLookupLocal_Param(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, "fn f(foo: i32) { let bar = fo<|>o; }")
	res := resolveAt(t, db, f, off)
	require.NotNil(t, res)
	require.Equal(t, ResLocal, res.Kind)
	assert.Equal(t, uint32(5), res.Local.Node.StartByte())
}

func TestLookupLocal_LetNotVisibleInOwnInitializer(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, "fn f() { let x = x<|>; }")
	assert.Nil(t, resolveAt(t, db, f, off))
}

func TestLookupLocal_MatchArmAndIfLet(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, `
enum E { A(i32) }
fn f(e: E) { match e { E::A(v) => { v<|>; } } }
`)
	res := resolveAt(t, db, f, off)
	require.NotNil(t, res)
	assert.Equal(t, ResLocal, res.Kind)

	db, f, off = newTestDB(t, `
enum E { A(i32) }
fn f(e: E) { if let E::A(w) = e { w<|>; } }
`)
	res = resolveAt(t, db, f, off)
	require.NotNil(t, res)
	assert.Equal(t, ResLocal, res.Kind)
}

func TestLookupLocal_NestedFnDoesNotCapture(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, "fn f() { let x = 1; fn g() { x<|>; } }")
	assert.Nil(t, resolveAt(t, db, f, off))
}

func TestLookupLocal_SelfParam(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, "struct S; impl S { fn f(&self) { sel<|>f; } }")
	n := syntax.FindNodeAtOffset(f.Tree.Root(), off, func(n *sitter.Node) bool { return n.Type() == syntax.KindSelf })
	require.NotNil(t, n)
	res := db.Analyzer(f.ID, n).ResolvePath(n)
	require.NotNil(t, res)
	assert.Equal(t, ResSelfParam, res.Kind)
}

// =============================================================================
// Macros
// =============================================================================

func TestResolveMacro_Textual(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, `
macro_rules! foo { () => { {} }; }
fn bar() { fo<|>o!(); }
`)
	call := refAt(t, f, off).Parent()
	require.Equal(t, syntax.KindMacroInvocation, call.Type())
	mac := db.Analyzer(f.ID, call).ResolveMacro(call)
	require.NotNil(t, mac)
	assert.Equal(t, "foo", mac.Name)
	assert.False(t, mac.Exported)
}

func TestResolveMacro_ExportedFromOtherCrate(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, `
//- /lib.rs
fn bar() { fo<|>o!(); }
//- /foo/lib.rs
#[macro_export]
macro_rules! foo { () => { {} }; }
`)
	call := refAt(t, f, off).Parent()
	mac := db.Analyzer(f.ID, call).ResolveMacro(call)
	require.NotNil(t, mac)
	assert.True(t, mac.Exported)
	assert.Equal(t, "/foo/lib.rs", db.File(mac.File).Path)
}

func TestResolveMacro_DefinedAfterUseNotVisible(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, `
fn bar() { fo<|>o!(); }
macro_rules! foo { () => {}; }
`)
	call := refAt(t, f, off).Parent()
	assert.Nil(t, db.Analyzer(f.ID, call).ResolveMacro(call))
}

// =============================================================================
// Fields and methods
// =============================================================================

func TestResolveField(t *testing.T) {
	t.Parallel()
	db, f, _ := newTestDB(t, `
struct Foo { spam: u32 }
fn bar(foo: &Foo) { foo.spam<|>; }
`)
	fe := exprAt(t, f, "foo.spam")
	require.Equal(t, syntax.KindFieldExpression, fe.Type())
	field := db.Analyzer(f.ID, fe).ResolveField(fe)
	require.NotNil(t, field)
	assert.Equal(t, "spam", field.Name)
	assert.Equal(t, "Foo", field.Owner.Name)
}

func TestResolveStructField_Literal(t *testing.T) {
	t.Parallel()
	db, f, off := newTestDB(t, `
struct Foo { spam: u32 }
fn bar() -> Foo { Foo { spam<|>: 0 } }
`)
	n := syntax.FindNodeAtOffset(f.Tree.Root(), off, func(n *sitter.Node) bool {
		return n.Type() == syntax.KindFieldInitializer
	})
	require.NotNil(t, n)
	field := db.Analyzer(f.ID, n).ResolveStructField(n)
	require.NotNil(t, field)
	assert.Equal(t, "spam", field.Name)
}

func TestResolveMethodCall(t *testing.T) {
	t.Parallel()
	db, f, _ := newTestDB(t, `
struct Foo;
impl Foo { fn frobnicate(&self) {} }
fn bar(foo: &Foo) { foo.frobnicate(); }
`)
	callee := exprAt(t, f, "foo.frobnicate")
	d := db.Analyzer(f.ID, callee).ResolveMethodCall(callee)
	require.NotNil(t, d)
	assert.Equal(t, "frobnicate", d.Name)
}

func TestResolveMethodCall_TraitDefault(t *testing.T) {
	t.Parallel()
	db, f, _ := newTestDB(t, `
trait Greet { fn hello(&self) {} }
struct Foo;
impl Greet for Foo {}
fn bar(foo: Foo) { foo.hello(); }
`)
	callee := exprAt(t, f, "foo.hello")
	d := db.Analyzer(f.ID, callee).ResolveMethodCall(callee)
	require.NotNil(t, d)
	assert.Equal(t, "Greet", d.Parent.Name)
}

// =============================================================================
// Type inference
// =============================================================================

func TestTypeOfExpr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		src    string
		expr   string
		expect string
	}{
		{"call", "pub fn foo() -> u32 { 1 }\nfn main() { let foo_test = foo(); }", "foo()", "u32"},
		{"literal yields to operand", "fn main() { let foo: usize = 1; let bar = 1 + foo; }", "1 + foo", "usize"},
		{"unsuffixed int", "fn main() { let a = 12; }", "12", "i32"},
		{"suffixed int", "fn main() { let a = 12u8; }", "12u8", "u8"},
		{"annotated literal", "fn main() { let a: u64 = 7; }", "7", "u64"},
		{"float", "fn main() { let a = 1.5; }", "1.5", "f64"},
		{"string", `fn main() { let a = "hi"; }`, `"hi"`, "&str"},
		{"comparison", "fn main() { let a = 1 < 2; }", "1 < 2", "bool"},
		{"tuple", "fn main() { let a = (1u8, true); }", "(1u8, true)", "(u8, bool)"},
		{"array", "fn main() { let a = [1u8, 2, 3]; }", "[1u8, 2, 3]", "[u8; 3]"},
		{"reference", "fn main() { let a = &mut 1u8; }", "&mut 1u8", "&mut u8"},
		{"tuple ctor", "enum Option<T> { Some(T), None }\nuse Option::Some;\nfn main() { let a = Some(12); }", "Some(12)", "Option<i32>"},
		{"assoc fn", "struct Thing;\nimpl Thing { fn new() -> Thing { Thing } }\nfn main() { let a = Thing::new(); }", "Thing::new()", "Thing"},
		{"assoc fn returning Self", "struct Thing;\nimpl Thing { fn new() -> Self { Thing } }\nfn main() { let a = Thing::new(); }", "Thing::new()", "Thing"},
		{"method", "struct S;\nimpl S { fn len(&self) -> usize { 0 } }\nfn f(s: S) { s.len(); }", "s.len()", "usize"},
		{"field", "struct S { n: u16 }\nfn f(s: &S) { s.n; }", "s.n", "u16"},
		{"generic field", "struct W<T> { v: T }\nfn f(w: W<i64>) { w.v; }", "w.v", "i64"},
		{"struct literal", "struct P { x: i8 }\nfn f() { P { x: 1 }; }", "P { x: 1 }", "P"},
		{"block tail", "fn f() { let a = { 1u8 }; }", "{ 1u8 }", "u8"},
		{"if else", "fn f() { let a = if true { 1u8 } else { 2 }; }", "if true { 1u8 } else { 2 }", "u8"},
		{"if without else", "fn f() { if true { 1u8; } }", "if true { 1u8; }", "()"},
		{"cast", "fn f() { let a = 1 as u64; }", "1 as u64", "u64"},
		{"fn item", "fn foo(a: u32) -> bool { true }\nfn f() { foo; }", "foo;", "fn foo(u32) -> bool"},
		{"const", "const C: u32 = 1;\nfn f() { C; }", "C;", "u32"},
		{"unit variant", "enum E { A, B }\nfn f() { E::A; }", "E::A", "E"},
		{"self param", "struct S;\nimpl S { fn f(&self) { self; } }", "self;", "&S"},
		{"generic fn", "fn id<T>(t: T) -> T { t }\nfn f() { id(1u16); }", "id(1u16)", "u16"},
		{"type alias", "struct A;\ntype B = A;\nfn f(b: B) { b; }", "b;", "A"},
		{"return diverges", "fn f() -> u8 { return 1; }", "return 1", "!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db, _, _ := newTestDB(t, tt.src)
			f := db.Files()[0]
			needle := strings.TrimSuffix(tt.expr, ";")
			n := exprAt(t, f, needle)
			ty, ok := db.Analyzer(f.ID, n).TypeOfExpr(n)
			require.True(t, ok, "type of %q unknown", needle)
			assert.Equal(t, tt.expect, ty.String())
		})
	}
}

func TestTypeOfExpr_Unknown(t *testing.T) {
	t.Parallel()
	db, _, _ := newTestDB(t, "fn f() { let a = nothing(); }")
	f := db.Files()[0]
	n := exprAt(t, f, "nothing()")
	ty, ok := db.Analyzer(f.ID, n).TypeOfExpr(n)
	assert.False(t, ok)
	assert.Equal(t, "{unknown}", ty.String())
}

func TestTypeOfPat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		src    string
		expect string
	}{
		{"let from ctor", "enum Option<T> { Some(T) }\nuse Option::Some;\nfn main() { let b<|>ar = Some(12); }", "Option<i32>"},
		{"let annotated", "fn f() { let a<|>: u8 = 1; }", "u8"},
		{"param", "fn f(fo<|>o: i32) {}", "i32"},
		{"shadowed", "fn f() { let x = 0i32; let y<|> = x; }", "i32"},
		{"tuple destructure", "fn f() { let (a, b<|>) = (1u8, true); }", "bool"},
		{"ref pattern", "fn f() { let ref r<|> = 1u8; }", "&u8"},
		{"tuple struct", "struct W(u16);\nfn f(w: W) { let W(in<|>ner) = w; }", "u16"},
		{"struct field shorthand", "struct P { x: i64 }\nfn f(p: P) { let P { x<|> } = p; }", "i64"},
		{"default binding mode", "struct P { x: i64 }\nfn f(p: &P) { let P { x<|> } = p; }", "&i64"},
		{"match arm", "enum E { A(u8) }\nfn f(e: E) { match e { E::A(v<|>) => {} } }", "u8"},
		{"for over array", "fn f() { for x<|> in [1u8, 2] {} }", "u8"},
		{"closure param", "fn f() { let c = |x<|>: u32| x; }", "u32"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db, f, off := newTestDB(t, tt.src)
			n := syntax.FindNameAt(f.Tree.Root(), off)
			require.NotNil(t, n)
			ty, ok := db.Analyzer(f.ID, n).TypeOfPat(n)
			require.True(t, ok)
			assert.Equal(t, tt.expect, ty.String())
		})
	}
}

func TestTy_String(t *testing.T) {
	t.Parallel()
	u8 := Scalar("u8")
	assert.Equal(t, "()", Unit().String())
	assert.Equal(t, "(u8,)", Ty{Kind: TyTuple, Args: []Ty{u8}}.String())
	assert.Equal(t, "[u8]", Ty{Kind: TySlice, Elem: &u8}.String())
	assert.Equal(t, "&&u8", RefTo(RefTo(u8, false), false).String())
	assert.Equal(t, "fn f()", Ty{Kind: TyFnDef, Name: "f"}.String())
	assert.Equal(t, "u8", RefTo(RefTo(u8, false), true).Deref().String())
}

func TestTy_Subst(t *testing.T) {
	t.Parallel()
	param := Ty{Kind: TyParam, Name: "T"}
	vec := Ty{Kind: TyAdt, Name: "Vec", Args: []Ty{RefTo(param, false)}}
	got := vec.Subst(map[string]Ty{"T": Scalar("str")})
	assert.Equal(t, "Vec<&str>", got.String())
	assert.Equal(t, "Vec<&T>", vec.String())
}
