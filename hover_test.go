package wayfind

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/wayfind/internal/metrics"
)

func trimMarkup(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, "```rust\n"), "\n```")
}

func hoverAt(t *testing.T, text string) *RangeInfo[HoverResult] {
	t.Helper()
	a, pos := analysisAndPosition(t, text)
	res, err := a.Hover(context.Background(), pos)
	require.NoError(t, err)
	require.NotNil(t, res, "expected hover text")
	return res
}

// firstHover returns the first block with its markup fence removed.
func firstHover(t *testing.T, text string) (string, HoverResult) {
	t.Helper()
	res := hoverAt(t, text)
	first, ok := res.Info.First()
	require.True(t, ok)
	return trimMarkup(first), res.Info
}

// checkHoverResult compares the sorted blocks against expected.
func checkHoverResult(t *testing.T, text string, expected ...string) HoverResult {
	t.Helper()
	res := hoverAt(t, text)
	results := append([]string(nil), res.Info.Results()...)
	sort.Strings(results)
	got := make([]string, len(results))
	for i, r := range results {
		got[i] = trimMarkup(r)
	}
	assert.Equal(t, expected, got)
	assert.Equal(t, len(expected), res.Info.Len())
	return res.Info
}

// =============================================================================
// Types of expressions and patterns
// =============================================================================

func TestHover_TypeOfExpression(t *testing.T) {
	t.Parallel()
	res := hoverAt(t, "pub fn foo() -> u32 { 1 }\n\nfn main() {\n    let foo_test = foo()<|>;\n}\n")
	assert.Equal(t, TextRange{Start: 58, End: 63}, res.Range)
	first, ok := res.Info.First()
	require.True(t, ok)
	assert.Equal(t, "u32", trimMarkup(first))
	assert.True(t, res.Info.IsExact())
}

func TestHover_LocalVariable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		fixture  string
		expected string
	}{
		{"usage", "fn func(foo: i32) { fo<|>o; }", "i32"},
		{"parameter pattern", "fn func(fo<|>o: i32) {}", "i32"},
		{"cursor at start", "\nfn func(foo: i32) { if true { <|>foo; }; }\n", "i32"},
		{"shadowing", "fn x() {}\n\nfn y() {\n    let x = 0i32;\n    x<|>;\n}\n", "i32"},
		{"let from ctor", "enum Option<T> { Some(T) }\nuse Option::Some;\n\nfn main() {\n    let b<|>ar = Some(12);\n}\n", "Option<i32>"},
		{"let from assoc fn", "struct Thing { x: u32 }\n\nimpl Thing {\n    fn new() -> Thing {\n        Thing { x: 0 }\n    }\n}\n\nfn main() {\n    let foo_<|>test = Thing::new();\n}\n", "Thing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, res := firstHover(t, tt.fixture)
			assert.Equal(t, tt.expected, got)
			assert.True(t, res.IsExact())
		})
	}
}

// =============================================================================
// Signatures
// =============================================================================

func TestHover_FnSignature(t *testing.T) {
	t.Parallel()
	res := checkHoverResult(t, `
//- /main.rs
pub fn foo() -> u32 { 1 }

fn main() {
    let foo_test = fo<|>o();
}
`, "pub fn foo() -> u32")
	assert.True(t, res.IsExact())
}

func TestHover_FnSignatureMultipleCandidates(t *testing.T) {
	t.Parallel()
	res := checkHoverResult(t, `
//- /a.rs
pub fn foo() -> u32 { 1 }

//- /b.rs
pub fn foo() -> &str { "" }

//- /c.rs
pub fn foo(a: u32, b: u32) {}

//- /main.rs
mod a;
mod b;
mod c;

fn main() {
    let foo_test = fo<|>o();
}
`, "pub fn foo() -> &str", "pub fn foo() -> u32", "pub fn foo(a: u32, b: u32)")
	assert.False(t, res.IsExact(), "candidates come from the symbol index")

	markup := res.ToMarkup()
	assert.True(t, strings.HasPrefix(markup, inexactCaveat+inexactFound+markupSeparator))
	assert.Equal(t, 2, strings.Count(markup, markupSeparator)-1)
}

func TestHover_EveryIndexCandidate(t *testing.T) {
	t.Parallel()
	res := checkHoverResult(t, `
//- /main.rs
fn main() { dup<|>(); }
//- /a/x.rs
pub fn dup() {}
//- /b/x.rs
pub fn dup() {}
//- /c/x.rs
pub fn dup() {}
//- /d/x.rs
pub fn dup() {}
//- /e/x.rs
pub fn dup() {}
`, "pub fn dup()", "pub fn dup()", "pub fn dup()", "pub fn dup()", "pub fn dup()")
	assert.False(t, res.IsExact())
}

func TestHover_FnSignatureWithTypeParams(t *testing.T) {
	t.Parallel()
	checkHoverResult(t, `
//- /main.rs
pub fn foo<'a, T: AsRef<str>>(b: &'a T) -> &'a str { }

fn main() {
    let foo_test = fo<|>o();
}
`, "pub fn foo<'a, T: AsRef<str>>(b: &'a T) -> &'a str")
}

func TestHover_FnSignatureOnFnName(t *testing.T) {
	t.Parallel()
	checkHoverResult(t, `
//- /main.rs
pub fn foo<|>(a: u32, b: u32) -> u32 {}

fn main() {
}
`, "pub fn foo(a: u32, b: u32) -> u32")
}

func TestHover_StructFieldInfo(t *testing.T) {
	t.Parallel()
	checkHoverResult(t, `
//- /main.rs
struct Foo {
    field_a: u32,
}

fn main() {
    let foo = Foo {
        field_a<|>: 0,
    };
}
`, "field_a: u32")

	checkHoverResult(t, `
//- /main.rs
struct Foo {
    field_a<|>: u32,
}

fn main() {
    let foo = Foo {
        field_a: 0,
    };
}
`, "field_a: u32")
}

func TestHover_TupleField(t *testing.T) {
	t.Parallel()
	res := hoverAt(t, "struct S(u8);\nfn f(s: S) { s.0<|>; }\n")
	assert.Equal(t, TextRange{Start: 27, End: 30}, res.Range)
	first, ok := res.Info.First()
	require.True(t, ok)
	assert.Equal(t, "u8", trimMarkup(first))
	assert.True(t, res.Info.IsExact())
}

func TestHover_ConstStatic(t *testing.T) {
	t.Parallel()
	checkHoverResult(t, "fn main() {\n    const foo<|>: u32 = 0;\n}\n", "const foo: u32")
	checkHoverResult(t, "fn main() {\n    static foo<|>: u32 = 0;\n}\n", "static foo: u32")
}

func TestHover_Some(t *testing.T) {
	t.Parallel()
	got, _ := firstHover(t, "enum Option<T> { Some(T) }\nuse Option::Some;\n\nfn main() {\n    So<|>me(12);\n}\n")
	assert.Equal(t, "Some", got)
}

func TestHover_EnumVariantDocs(t *testing.T) {
	t.Parallel()
	checkHoverResult(t, `
//- /main.rs
enum Option<T> {
    /// The None variant
    Non<|>e
}
`, "None\n```\n\nThe None variant")

	checkHoverResult(t, `
//- /main.rs
enum Option<T> {
    /// The Some variant
    Some(T)
}
fn main() {
    let s = Option::Som<|>e(12);
}
`, "Some\n```\n\nThe Some variant")
}

func TestHover_AssociatedItems(t *testing.T) {
	t.Parallel()
	got, res := firstHover(t, `struct Thing { x: u32 }

impl Thing {
    fn new() -> Thing {
        Thing { x: 0 }
    }
}

fn main() {
    let foo_test = Thing::new<|>();
}
`)
	assert.Equal(t, "fn new() -> Thing", got)
	assert.True(t, res.IsExact())

	got, res = firstHover(t, `struct X;
impl X {
    const C: u32 = 1;
}

fn main() {
    match 1 {
        X::C<|> => {},
        2 => {},
        _ => {}
    };
}
`)
	assert.Equal(t, "const C: u32", got)
	assert.True(t, res.IsExact())
}

func TestHover_Self(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		fixture  string
		expected string
	}{
		{"struct literal", "struct Thing { x: u32 }\nimpl Thing {\n    fn new() -> Self {\n        Self<|> { x: 0 }\n    }\n}\n", "struct Thing"},
		{"struct return type", "struct Thing { x: u32 }\nimpl Thing {\n    fn new() -> Self<|> {\n        Self { x: 0 }\n    }\n}\n", "struct Thing"},
		{"enum return type", "enum Thing { A }\nimpl Thing {\n    pub fn new() -> Self<|> {\n        Thing::A\n    }\n}\n", "enum Thing"},
		{"enum parameter", "enum Thing { A }\nimpl Thing {\n    pub fn thing(a: Self<|>) {\n    }\n}\n", "enum Thing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, res := firstHover(t, tt.fixture)
			assert.Equal(t, tt.expected, got)
			assert.True(t, res.IsExact())
		})
	}
}

func TestHover_InlineModule(t *testing.T) {
	t.Parallel()
	got, _ := firstHover(t, "/// Helpers.\npub mod util {\n    pub fn f() {}\n}\nfn main() { util<|>::f(); }\n")
	assert.Equal(t, "pub mod util\n```\n\nHelpers.", got)
}

// =============================================================================
// Nothing to show
// =============================================================================

func TestHover_BuiltinTypeHasNoText(t *testing.T) {
	t.Parallel()
	a, pos := analysisAndPosition(t, "fn f() -> u32<|> { 0 }")
	res, err := a.Hover(context.Background(), pos)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestHover_Whitespace(t *testing.T) {
	t.Parallel()
	a, pos := analysisAndPosition(t, "struct S;\n<|>\nfn f() {}\n")
	res, err := a.Hover(context.Background(), pos)
	require.NoError(t, err)
	assert.Nil(t, res)
}

// =============================================================================
// HoverResult
// =============================================================================

func TestHoverResult_Markup(t *testing.T) {
	t.Parallel()
	h := NewHoverResult()
	assert.True(t, h.IsExact())
	assert.True(t, h.IsEmpty())
	_, ok := h.First()
	assert.False(t, ok)

	h.Extend("a", "", "b")
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, "a\n\n---\nb", h.ToMarkup())

	h.exact = false
	assert.Equal(t, inexactCaveat+inexactFound+"\n\n---\na\n\n---\nb", h.ToMarkup())

	empty := HoverResult{}
	assert.Equal(t, inexactCaveat+"\n\n---\n", empty.ToMarkup())
}

func TestHoverResult_MarshalJSON(t *testing.T) {
	t.Parallel()
	h := NewHoverResult()
	h.Extend(rustCodeMarkupWithDoc("struct Foo", "Docs."))

	data, err := json.Marshal(h)
	require.NoError(t, err)

	var got struct {
		Results []string `json:"results"`
		Exact   bool     `json:"exact"`
		Markup  string   `json:"markup"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []string{"```rust\nstruct Foo\n```\n\nDocs."}, got.Results)
	assert.True(t, got.Exact)
	assert.Equal(t, got.Results[0], got.Markup)

	data, err = json.Marshal(NewHoverResult())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"results":[]`)
}

func TestHoverText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "```rust\nfn f()\n```\n\ndocs", hoverText("docs", "fn f()"))
	assert.Equal(t, "```rust\nfn f()\n```", hoverText("", "fn f()"))
	assert.Equal(t, "docs", hoverText("docs", ""))
	assert.Empty(t, hoverText("", ""))
}

// =============================================================================
// Metrics
// =============================================================================

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metric
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestHover_RecordsOutcome(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	e := newTestEngine(t, WithMetrics(metrics.New(reg)))
	ctx := context.Background()
	require.NoError(t, e.AddSource(ctx, "/main.rs", "fn foo() {}\n\nfn main() { foo(); let x = 1; }\n"))
	a, err := e.Analysis(ctx)
	require.NoError(t, err)

	_, err = a.Hover(ctx, FilePosition{FileID: 1, Offset: 26})
	require.NoError(t, err)
	_, err = a.Hover(ctx, FilePosition{FileID: 1, Offset: 37})
	require.NoError(t, err)
	_, err = a.Hover(ctx, FilePosition{FileID: 1, Offset: 12})
	require.NoError(t, err)

	const name = "wayfind_queries_total"
	assert.Equal(t, 1.0, counterValue(t, reg, name, map[string]string{"operation": "hover", "outcome": metrics.OutcomeExact}))
	assert.Equal(t, 1.0, counterValue(t, reg, name, map[string]string{"operation": "hover", "outcome": metrics.OutcomeType}))
	assert.Equal(t, 1.0, counterValue(t, reg, name, map[string]string{"operation": "hover", "outcome": metrics.OutcomeNone}))
}
