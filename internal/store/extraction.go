package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

const fileCols = "id, path, language, hash, line_count, content, last_indexed"

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, language, hash, line_count, content, last_indexed) VALUES (?, ?, ?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.LineCount, f.Content, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

// UpdateFile rewrites the hash, content and timestamps of an existing file.
func (s *Store) UpdateFile(f *File) error {
	_, err := s.db.Exec(
		"UPDATE files SET language = ?, hash = ?, line_count = ?, content = ?, last_indexed = ? WHERE id = ?",
		f.Language, f.Hash, f.LineCount, f.Content, f.LastIndexed, f.ID,
	)
	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	return nil
}

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var hash sql.NullString
	var indexed sql.NullTime
	if err := scanner.Scan(&f.ID, &f.Path, &f.Language, &hash, &f.LineCount, &f.Content, &indexed); err != nil {
		return nil, err
	}
	f.Hash = hash.String
	f.LastIndexed = indexed.Time
	return f, nil
}

func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Files returns every indexed file in insertion order.
func (s *Store) Files() ([]*File, error) {
	files, err := s.queryFiles("SELECT " + fileCols + " FROM files ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

func (s *Store) FilesByLanguage(language string) ([]*File, error) {
	files, err := s.queryFiles("SELECT "+fileCols+" FROM files WHERE language = ? ORDER BY id", language)
	if err != nil {
		return nil, fmt.Errorf("files by language: %w", err)
	}
	return files, nil
}

// DeleteFiles removes files and all of their symbols.
func (s *Store) DeleteFiles(fileIDs []int64) error {
	if len(fileIDs) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := placeholderList(len(fileIDs))
	args := int64sToArgs(fileIDs)
	for _, q := range []string{
		"DELETE FROM symbols WHERE file_id IN (" + placeholders + ") AND parent_symbol_id IS NOT NULL",
		"DELETE FROM symbols WHERE file_id IN (" + placeholders + ")",
		"DELETE FROM files WHERE id IN (" + placeholders + ")",
	} {
		if _, err := tx.Exec(q, args...); err != nil {
			return fmt.Errorf("delete files: %w", err)
		}
	}
	return tx.Commit()
}

// --- Symbol operations ---

const insertSymbolSQL = `INSERT INTO symbols (file_id, name, kind, visibility, modifiers, container,
	start_byte, end_byte, focus_start, focus_end, start_line, start_col, docs, description, parent_symbol_id)
 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func symbolArgs(sym *Symbol) []any {
	return []any{
		sym.FileID, sym.Name, sym.Kind, sym.Visibility, marshalModifiers(sym.Modifiers), sym.Container,
		sym.StartByte, sym.EndByte, sym.FocusStart, sym.FocusEnd, sym.StartLine, sym.StartCol,
		sym.Docs, sym.Description, sym.ParentSymbolID,
	}
}

func (s *Store) InsertSymbol(sym *Symbol) (int64, error) {
	res, err := s.db.Exec(insertSymbolSQL, symbolArgs(sym)...)
	if err != nil {
		return 0, fmt.Errorf("insert symbol: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	sym.ID = id
	return id, nil
}

// scanSymbol reads the SymbolCols of a row, then any extra columns into
// extra.
func (s *Store) scanSymbol(scanner interface{ Scan(...any) error }, extra ...any) (*Symbol, error) {
	sym := &Symbol{}
	var mods string
	var vis, container, docs, desc sql.NullString
	dest := []any{
		&sym.ID, &sym.FileID, &sym.Name, &sym.Kind, &vis, &mods, &container,
		&sym.StartByte, &sym.EndByte, &sym.FocusStart, &sym.FocusEnd, &sym.StartLine, &sym.StartCol,
		&docs, &desc, &sym.ParentSymbolID,
	}
	err := scanner.Scan(append(dest, extra...)...)
	if err != nil {
		return nil, err
	}
	sym.Visibility = vis.String
	sym.Modifiers = UnmarshalModifiers(mods)
	sym.Container = container.String
	sym.Docs = docs.String
	sym.Description = desc.String
	return sym, nil
}

// SymbolCols is the column list for symbol queries.
const SymbolCols = `id, file_id, name, kind, visibility, modifiers, container,
	start_byte, end_byte, focus_start, focus_end, start_line, start_col, docs, description, parent_symbol_id`

func (s *Store) querySymbols(query string, args ...any) ([]*Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var symbols []*Symbol
	for rows.Next() {
		sym, err := s.scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

func (s *Store) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE file_id = ? ORDER BY id", fileID)
}

// SymbolsByName returns the symbols named exactly name, in index order.
func (s *Store) SymbolsByName(name string) ([]*Symbol, error) {
	matches, err := s.SymbolMatchesByName(name)
	if err != nil {
		return nil, err
	}
	syms := make([]*Symbol, len(matches))
	for i, m := range matches {
		syms[i] = m.Symbol
	}
	return syms, nil
}

// SymbolMatchesByName is SymbolsByName with the content hash of each
// symbol's file. Symbols and hashes are read by one statement, so a hash
// always describes the content the symbol was extracted from.
func (s *Store) SymbolMatchesByName(name string) ([]SymbolMatch, error) {
	rows, err := s.db.Query("SELECT "+SymbolCols+
		", (SELECT hash FROM files WHERE files.id = symbols.file_id) FROM symbols WHERE name = ? ORDER BY id", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var matches []SymbolMatch
	for rows.Next() {
		var hash sql.NullString
		sym, err := s.scanSymbol(rows, &hash)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		matches = append(matches, SymbolMatch{Symbol: sym, FileHash: hash.String})
	}
	return matches, rows.Err()
}

func (s *Store) SymbolChildren(symbolID int64) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE parent_symbol_id = ? ORDER BY id", symbolID)
}
