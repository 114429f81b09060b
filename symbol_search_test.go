package wayfind

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchEngine(t *testing.T) *Engine {
	t.Helper()
	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.AddSource(ctx, "/proj/src/lib.rs", `pub struct Point { x: i32 }
impl Point {
    pub fn new() -> Point { Point { x: 0 } }
    pub async fn load_point() {}
}
fn parse_point() {}
`))
	require.NoError(t, e.AddSource(ctx, "/proj/src/net/conn.rs", "pub fn connect() {}\nconst PORT_MAX: u16 = 1;\n"))
	require.NoError(t, e.AddSource(ctx, "/proj/src/network.rs", "pub fn point_to_point() {}\n"))
	return e
}

func resultNames(res *PagedResult[SymbolResult]) []string {
	names := make([]string, 0, len(res.Items))
	for _, sr := range res.Items {
		names = append(names, sr.Name)
	}
	return names
}

func search(t *testing.T, e *Engine, pattern string, filter SymbolFilter, sort Sort, page Pagination) *PagedResult[SymbolResult] {
	t.Helper()
	res, err := e.SearchSymbols(context.Background(), pattern, filter, sort, page)
	require.NoError(t, err)
	return res
}

func strPtr(s string) *string { return &s }

// =============================================================================
// Pattern matching
// =============================================================================

func TestSearchSymbols_Glob(t *testing.T) {
	t.Parallel()
	e := newSearchEngine(t)

	res := search(t, e, "*point", SymbolFilter{}, Sort{}, Pagination{})
	// LIKE folds ASCII case, so the struct matches too.
	assert.Equal(t, []string{"Point", "load_point", "parse_point", "point_to_point"}, resultNames(res))
	assert.Equal(t, 4, res.TotalCount)

	res = search(t, e, "Point", SymbolFilter{}, Sort{}, Pagination{})
	assert.Equal(t, []string{"Point"}, resultNames(res), "exact pattern without wildcard")
}

func TestSearchSymbols_EmptyPatternMatchesAll(t *testing.T) {
	t.Parallel()
	e := newSearchEngine(t)

	all := search(t, e, "", SymbolFilter{}, Sort{}, Pagination{})
	star := search(t, e, "*", SymbolFilter{}, Sort{}, Pagination{})
	assert.Equal(t, 8, all.TotalCount)
	assert.Equal(t, resultNames(all), resultNames(star))
}

func TestSearchSymbols_UnderscoreIsLiteral(t *testing.T) {
	t.Parallel()
	e := newSearchEngine(t)

	// An unescaped '_' would match any character.
	res := search(t, e, "PORT_*", SymbolFilter{}, Sort{}, Pagination{})
	assert.Equal(t, []string{"PORT_MAX"}, resultNames(res))

	res = search(t, e, "load%", SymbolFilter{}, Sort{}, Pagination{})
	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Items)
}

// =============================================================================
// Filters
// =============================================================================

func TestSearchSymbols_FilterKinds(t *testing.T) {
	t.Parallel()
	e := newSearchEngine(t)

	res := search(t, e, "*", SymbolFilter{Kinds: []string{"struct", "const"}}, Sort{}, Pagination{})
	assert.Equal(t, []string{"PORT_MAX", "Point"}, resultNames(res))
}

func TestSearchSymbols_FilterVisibility(t *testing.T) {
	t.Parallel()
	e := newSearchEngine(t)

	res := search(t, e, "*", SymbolFilter{Visibility: strPtr(""), Kinds: []string{"function"}}, Sort{}, Pagination{})
	assert.Equal(t, []string{"parse_point"}, resultNames(res))

	res = search(t, e, "*point*", SymbolFilter{Visibility: strPtr("pub")}, Sort{}, Pagination{})
	assert.Equal(t, []string{"Point", "load_point", "point_to_point"}, resultNames(res))
}

func TestSearchSymbols_FilterContainer(t *testing.T) {
	t.Parallel()
	e := newSearchEngine(t)

	res := search(t, e, "*", SymbolFilter{Container: strPtr("Point")}, Sort{}, Pagination{})
	assert.Equal(t, []string{"load_point", "new", "x"}, resultNames(res))
	for _, sr := range res.Items {
		assert.Equal(t, "/proj/src/lib.rs", sr.FilePath)
	}
}

func TestSearchSymbols_FilterModifiers(t *testing.T) {
	t.Parallel()
	e := newSearchEngine(t)

	res := search(t, e, "*", SymbolFilter{Modifiers: []string{"async"}}, Sort{}, Pagination{})
	require.Len(t, res.Items, 1)
	assert.Equal(t, "load_point", res.Items[0].Name)
	assert.Equal(t, []string{"async"}, res.Items[0].Modifiers)
}

func TestSearchSymbols_FilterPathPrefix(t *testing.T) {
	t.Parallel()
	e := newSearchEngine(t)

	// "src/net" must not match src/network.rs.
	res := search(t, e, "*", SymbolFilter{PathPrefix: strPtr("/proj/src/net")}, Sort{}, Pagination{})
	assert.Equal(t, []string{"PORT_MAX", "connect"}, resultNames(res))
}

// =============================================================================
// Sorting and paging
// =============================================================================

func TestSearchSymbols_SortByFileDescending(t *testing.T) {
	t.Parallel()
	e := newSearchEngine(t)

	res := search(t, e, "*", SymbolFilter{Kinds: []string{"function"}}, Sort{Field: SortByFile, Order: Desc}, Pagination{})
	require.NotEmpty(t, res.Items)
	assert.Equal(t, "/proj/src/network.rs", res.Items[0].FilePath)
	assert.Equal(t, "/proj/src/lib.rs", res.Items[len(res.Items)-1].FilePath)
}

func TestSearchSymbols_Pagination(t *testing.T) {
	t.Parallel()
	e := newSearchEngine(t)

	page1 := search(t, e, "*", SymbolFilter{}, Sort{Field: SortByName}, Pagination{Limit: 3})
	page2 := search(t, e, "*", SymbolFilter{}, Sort{Field: SortByName}, Pagination{Offset: 3, Limit: 3})
	assert.Len(t, page1.Items, 3)
	assert.Len(t, page2.Items, 3)
	assert.Equal(t, 8, page1.TotalCount)
	assert.Equal(t, 8, page2.TotalCount)
	assert.NotEqual(t, page1.Items[0].ID, page2.Items[0].ID)
}

func TestPagination_Normalize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Pagination{Offset: 0, Limit: defaultLimit}, Pagination{Offset: -4}.normalize())
	assert.Equal(t, Pagination{Offset: 2, Limit: maxLimit}, Pagination{Offset: 2, Limit: 10_000}.normalize())
	assert.Equal(t, Pagination{Limit: 7}, Pagination{Limit: 7}.normalize())
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `a\_b\%c\\d`, escapeLike(`a_b%c\d`))
}
