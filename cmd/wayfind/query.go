package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/wayfind"
	"github.com/jward/wayfind/internal/syntax"
)

var gotoCmd = &cobra.Command{
	Use:   "goto <file> <line> <col>",
	Short: "Find the definition of the name at a position",
	Long:  "Resolves the name under the cursor to its definitions. All line and column numbers are 0-based.",
	Args:  cobra.ExactArgs(3),
	RunE:  runGoto,
}

var hoverCmd = &cobra.Command{
	Use:   "hover <file> <line> <col>",
	Short: "Describe the entity at a position",
	Long:  "Shows the signature and docs of the name under the cursor, or the type of the enclosing expression. All line and column numbers are 0-based.",
	Args:  cobra.ExactArgs(3),
	RunE:  runHover,
}

var typeOfCmd = &cobra.Command{
	Use:   "type-of <file> <start-line> <start-col> <end-line> <end-col>",
	Short: "Show the inferred type of the expression covering a range",
	Long:  "Prints the inferred type of the expression or pattern covering the range. All line and column numbers are 0-based.",
	Args:  cobra.ExactArgs(5),
	RunE:  runTypeOf,
}

// --- Helpers ---

// session is an open engine with a snapshot of its index.
type session struct {
	engine   *wayfind.Engine
	analysis *wayfind.Analysis
	lines    map[wayfind.FileID]*syntax.LineIndex
}

// openEngine opens the existing database from the --db flag path (or
// default).
func openEngine() (*wayfind.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'wayfind index' first)", dbPath)
	}
	return newEngine(dbPath)
}

// openSession opens the database and builds an analysis snapshot.
func openSession(ctx context.Context) (*session, error) {
	engine, err := openEngine()
	if err != nil {
		return nil, err
	}
	a, err := engine.Analysis(ctx)
	if err != nil {
		engine.Close()
		return nil, err
	}
	return &session{engine: engine, analysis: a, lines: make(map[wayfind.FileID]*syntax.LineIndex)}, nil
}

func (s *session) Close() error {
	return s.engine.Close()
}

func (s *session) lineIndex(id wayfind.FileID) *syntax.LineIndex {
	li, ok := s.lines[id]
	if !ok {
		li = syntax.NewLineIndex([]byte(s.analysis.Text(id)))
		s.lines[id] = li
	}
	return li
}

// fileID resolves a file argument to its ID in the snapshot.
func (s *session) fileID(file string) (wayfind.FileID, error) {
	path, err := resolveFilePath(file)
	if err != nil {
		return 0, err
	}
	id, ok := s.analysis.FileID(path)
	if !ok {
		return 0, fmt.Errorf("file not indexed: %s", path)
	}
	return id, nil
}

// position parses <file> <line> <col> arguments into a file position.
func (s *session) position(args []string) (wayfind.FilePosition, error) {
	id, err := s.fileID(args[0])
	if err != nil {
		return wayfind.FilePosition{}, err
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return wayfind.FilePosition{}, err
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return wayfind.FilePosition{}, err
	}
	return wayfind.FilePosition{FileID: id, Offset: s.lineIndex(id).Offset(line, col)}, nil
}

// location converts a byte range to 0-based line/column coordinates.
func (s *session) location(id wayfind.FileID, r wayfind.TextRange) CLILocation {
	li := s.lineIndex(id)
	startLine, startCol := li.LineCol(r.Start)
	endLine, endCol := li.LineCol(r.End)
	return CLILocation{
		File:      s.analysis.Path(id),
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   endLine,
		EndCol:    endCol,
	}
}

func (s *session) target(t wayfind.NavigationTarget) CLITarget {
	return CLITarget{
		Name:      t.Name,
		Kind:      t.Kind,
		Location:  s.location(t.FileID, t.FullRange),
		Focus:     s.location(t.FileID, t.FocusRange),
		Container: t.Container,
		Label:     t.Label,
		Docs:      t.Docs,
	}
}

// resolveFilePath converts a file argument to an absolute path.
// If the path is already absolute, it's returned as-is.
// Otherwise, it's resolved relative to the current working directory.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// outputResult marshals a CLIResult to w in the selected format.
func outputResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes err in the result envelope and marks it handled.
func outputError(w io.Writer, command string, err error) error {
	errorHandled = true
	if flagFormat == "json" {
		_ = outputResult(w, CLIResult{Command: command, Error: err.Error()})
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	return err
}

// --- Commands ---

func runGoto(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	s, err := openSession(ctx)
	if err != nil {
		return outputError(cmd.OutOrStdout(), "goto", err)
	}
	defer s.Close()

	pos, err := s.position(args)
	if err != nil {
		return outputError(cmd.OutOrStdout(), "goto", err)
	}
	res, err := s.analysis.GotoDefinition(ctx, pos)
	if err != nil {
		return outputError(cmd.OutOrStdout(), "goto", err)
	}

	result := CLIResult{Command: "goto"}
	if res != nil {
		targets := make([]CLITarget, 0, len(res.Info))
		for _, t := range res.Info {
			targets = append(targets, s.target(t))
		}
		result.Results = CLIDefinition{
			Range:   s.location(pos.FileID, res.Range),
			Targets: targets,
		}
	}
	return outputResult(cmd.OutOrStdout(), result)
}

func runHover(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	s, err := openSession(ctx)
	if err != nil {
		return outputError(cmd.OutOrStdout(), "hover", err)
	}
	defer s.Close()

	pos, err := s.position(args)
	if err != nil {
		return outputError(cmd.OutOrStdout(), "hover", err)
	}
	res, err := s.analysis.Hover(ctx, pos)
	if err != nil {
		return outputError(cmd.OutOrStdout(), "hover", err)
	}

	result := CLIResult{Command: "hover"}
	if res != nil {
		result.Results = CLIHover{
			Range:  s.location(pos.FileID, res.Range),
			Exact:  res.Info.IsExact(),
			Markup: res.Info.ToMarkup(),
		}
	}
	return outputResult(cmd.OutOrStdout(), result)
}

func runTypeOf(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	s, err := openSession(ctx)
	if err != nil {
		return outputError(cmd.OutOrStdout(), "type-of", err)
	}
	defer s.Close()

	start, err := s.position(args[:3])
	if err != nil {
		return outputError(cmd.OutOrStdout(), "type-of", err)
	}
	end, err := s.position([]string{args[0], args[3], args[4]})
	if err != nil {
		return outputError(cmd.OutOrStdout(), "type-of", err)
	}
	if end.Offset < start.Offset {
		return outputError(cmd.OutOrStdout(), "type-of", errors.New("range end precedes start"))
	}

	r := wayfind.FileRange{FileID: start.FileID, Range: wayfind.TextRange{Start: start.Offset, End: end.Offset}}
	ty, ok, err := s.analysis.TypeOf(ctx, r)
	if err != nil {
		return outputError(cmd.OutOrStdout(), "type-of", err)
	}

	result := CLIResult{Command: "type-of"}
	if ok {
		result.Results = CLIType{Type: ty}
	}
	return outputResult(cmd.OutOrStdout(), result)
}
