package store

import "time"

// File is an indexed source file. Content is kept so that a semantic
// snapshot can be rebuilt without rereading the working tree.
type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	LineCount   int
	Content     string
	LastIndexed time.Time
}

// Symbol is one declaration in the symbol index. Byte offsets are relative
// to the start of the file; StartByte/EndByte span the whole item including
// attached docs and attributes, FocusStart/FocusEnd span its name.
type Symbol struct {
	ID             int64
	FileID         *int64
	Name           string
	Kind           string
	Visibility     string
	Modifiers      []string
	Container      string
	StartByte      int
	EndByte        int
	FocusStart     int
	FocusEnd       int
	StartLine      int
	StartCol       int
	Docs           string
	Description    string
	ParentSymbolID *int64
}

// SymbolMatch is a symbol together with the hash its file had when the
// symbol was read.
type SymbolMatch struct {
	*Symbol
	FileHash string
}
