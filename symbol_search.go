package wayfind

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jward/wayfind/internal/store"
)

// Pagination controls offset+limit paging on search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results.
type SortField string

const (
	SortByName SortField = "name"
	SortByKind SortField = "kind"
	SortByFile SortField = "file"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering. Ties are broken by index order.
type Sort struct {
	Field SortField
	Order SortOrder
}

// SymbolFilter restricts a symbol search. All fields are optional.
type SymbolFilter struct {
	Kinds      []string // match any of these kinds
	Visibility *string  // exact match, "" for private items
	Modifiers  []string // symbol must have ALL of these modifiers
	Container  *string  // exact match on the enclosing item or impl type
	PathPrefix *string  // restrict to files under this directory
}

// SymbolResult is a symbol together with the path of its file.
type SymbolResult struct {
	store.Symbol
	FilePath string
}

// PagedResult wraps a page of results with the total match count.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

// SearchSymbols performs a glob-style search over indexed symbol names.
// '*' matches any run of characters; an empty pattern or "*" matches
// everything. As with SQL LIKE, ASCII letters match case-insensitively.
func (e *Engine) SearchSymbols(ctx context.Context, pattern string, filter SymbolFilter, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	page = page.normalize()

	var where []string
	var args []any

	// Escape literal % and _ first, then convert * to %.
	if pattern != "" && pattern != "*" {
		like := strings.ReplaceAll(escapeLike(pattern), "*", "%")
		where = append(where, "s.name LIKE ? ESCAPE '\\'")
		args = append(args, like)
	}
	if len(filter.Kinds) > 0 {
		placeholders := strings.Repeat("?,", len(filter.Kinds)-1) + "?"
		where = append(where, "s.kind IN ("+placeholders+")")
		for _, k := range filter.Kinds {
			args = append(args, k)
		}
	}
	if filter.Visibility != nil {
		where = append(where, "COALESCE(s.visibility, '') = ?")
		args = append(args, *filter.Visibility)
	}
	if filter.Container != nil {
		where = append(where, "COALESCE(s.container, '') = ?")
		args = append(args, *filter.Container)
	}
	if filter.PathPrefix != nil {
		if prefix := normalizePathPrefix(*filter.PathPrefix); prefix != "" {
			where = append(where, "f.path LIKE ? ESCAPE '\\'")
			args = append(args, escapeLike(prefix)+"%")
		}
	}
	for _, mod := range filter.Modifiers {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(s.modifiers) WHERE json_each.value = ?)")
		args = append(args, mod)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	db := e.store.DB()
	countSQL := `SELECT COUNT(*) FROM symbols s LEFT JOIN files f ON s.file_id = f.id ` + whereClause
	var total int
	if err := db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("wayfind: search symbols: count: %w", err)
	}

	dataSQL := fmt.Sprintf(
		`SELECT %s, COALESCE(f.path, '') AS file_path
		 FROM symbols s
		 LEFT JOIN files f ON s.file_id = f.id
		 %s
		 ORDER BY %s %s, s.id
		 LIMIT ? OFFSET ?`,
		prefixSymbolCols("s"), whereClause, symbolSortColumn(sort.Field), sortDirection(sort.Order),
	)
	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset)

	rows, err := db.QueryContext(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, fmt.Errorf("wayfind: search symbols: query: %w", err)
	}
	defer rows.Close()

	items := []SymbolResult{}
	for rows.Next() {
		sr, err := scanSymbolResult(rows)
		if err != nil {
			return nil, fmt.Errorf("wayfind: search symbols: scan: %w", err)
		}
		items = append(items, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("wayfind: search symbols: rows: %w", err)
	}
	e.logger.Debug("searched symbols", "pattern", pattern, "matches", total)
	return &PagedResult[SymbolResult]{Items: items, TotalCount: total}, nil
}

// normalizePathPrefix ensures a path prefix ends with "/" for correct LIKE
// matching: "src/net" must not match "src/network/".
func normalizePathPrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}

// symbolSortColumn returns the ORDER BY expression for a sort field.
// Falls back to the name for unknown fields.
func symbolSortColumn(field SortField) string {
	switch field {
	case SortByKind:
		return "s.kind"
	case SortByFile:
		return "f.path"
	default:
		return "s.name"
	}
}

func sortDirection(order SortOrder) string {
	if order == Desc {
		return "DESC"
	}
	return "ASC"
}

// prefixSymbolCols returns store.SymbolCols with a table prefix applied.
func prefixSymbolCols(prefix string) string {
	cols := strings.Split(store.SymbolCols, ",")
	for i, c := range cols {
		cols[i] = prefix + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

// scanSymbolResult scans a row of [SymbolCols..., file_path].
func scanSymbolResult(rows *sql.Rows) (SymbolResult, error) {
	var sr SymbolResult
	var mods sql.NullString
	var vis, container, docs, desc sql.NullString
	err := rows.Scan(
		&sr.ID, &sr.FileID, &sr.Name, &sr.Kind, &vis, &mods, &container,
		&sr.StartByte, &sr.EndByte, &sr.FocusStart, &sr.FocusEnd, &sr.StartLine, &sr.StartCol,
		&docs, &desc, &sr.ParentSymbolID,
		&sr.FilePath,
	)
	if err != nil {
		return sr, err
	}
	sr.Visibility = vis.String
	sr.Modifiers = store.UnmarshalModifiers(mods.String)
	sr.Container = container.String
	sr.Docs = docs.String
	sr.Description = desc.String
	return sr, nil
}

// escapeLike escapes SQL LIKE special characters with backslash.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
