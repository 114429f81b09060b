package main

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLISymbol is a JSON-friendly indexed symbol.
type CLISymbol struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Visibility  string   `json:"visibility"`
	Modifiers   []string `json:"modifiers,omitempty"`
	Container   string   `json:"container,omitempty"`
	File        string   `json:"file,omitempty"`
	StartLine   int      `json:"start_line"`
	StartCol    int      `json:"start_col"`
	Description string   `json:"description,omitempty"`
}

// CLILocation is a range in 0-based line/column coordinates.
type CLILocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLITarget is a JSON-friendly navigation target.
type CLITarget struct {
	Name      string      `json:"name"`
	Kind      string      `json:"kind"`
	Location  CLILocation `json:"location"`
	Focus     CLILocation `json:"focus"`
	Container string      `json:"container,omitempty"`
	Label     string      `json:"label,omitempty"`
	Docs      string      `json:"docs,omitempty"`
}

// CLIDefinition is the result of goto: the range of the name under the
// cursor and its targets.
type CLIDefinition struct {
	Range   CLILocation `json:"range"`
	Targets []CLITarget `json:"targets"`
}

// CLIHover is the rendered hover text for a range.
type CLIHover struct {
	Range  CLILocation `json:"range"`
	Exact  bool        `json:"exact"`
	Markup string      `json:"markup"`
}

// CLIType is an inferred type.
type CLIType struct {
	Type string `json:"type"`
}
