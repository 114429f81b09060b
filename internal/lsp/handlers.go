package lsp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/wayfind"
	"github.com/jward/wayfind/internal/extract"
	"github.com/jward/wayfind/internal/syntax"
)

func (s *Server) initialize(_ *glsp.Context, params *protocol.InitializeParams) (any, error) {
	switch {
	case params.RootURI != nil:
		root, err := uriToPath(string(*params.RootURI))
		if err != nil {
			return nil, fmt.Errorf("initialize: root uri: %w", err)
		}
		s.root = root
	case params.RootPath != nil:
		s.root = *params.RootPath
	}

	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindIncremental
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      true,
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &s.version,
		},
	}, nil
}

// initialized indexes the workspace root. Failures are logged; the server
// still answers for documents the client opens.
func (s *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	if s.root == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.IndexDirectory(context.Background(), s.root); err != nil {
		s.logger.Warn("workspace indexing failed", "root", s.root, "error", err)
		return nil
	}
	s.logger.Info("indexed workspace", "root", s.root)
	return nil
}

func (s *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// --- Document synchronization ---

func (s *Server) setSource(uri protocol.DocumentUri, text string) error {
	path, err := uriToPath(string(uri))
	if err != nil {
		return err
	}
	if _, ok := extract.LanguageForFile(path); !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.AddSource(context.Background(), path, text)
}

func (s *Server) textDocumentDidOpen(_ *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	return s.setSource(params.TextDocument.URI, params.TextDocument.Text)
}

func (s *Server) textDocumentDidChange(_ *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path, err := uriToPath(string(params.TextDocument.URI))
	if err != nil {
		return err
	}
	current, err := s.currentText(path)
	if err != nil {
		return err
	}
	for _, raw := range params.ContentChanges {
		switch change := raw.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			current = change.Text
		case protocol.TextDocumentContentChangeEvent:
			if change.Range == nil {
				current = change.Text
				continue
			}
			li := syntax.NewLineIndex([]byte(current))
			start := offsetAt(li, change.Range.Start)
			end := offsetAt(li, change.Range.End)
			if start > end {
				return fmt.Errorf("did change %s: range end precedes start", path)
			}
			current = current[:start] + change.Text + current[end:]
		}
	}
	return s.setSource(params.TextDocument.URI, current)
}

func (s *Server) textDocumentDidSave(_ *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text != nil {
		return s.setSource(params.TextDocument.URI, *params.Text)
	}
	return nil
}

// textDocumentDidClose reindexes the file from disk, dropping unsaved edits.
func (s *Server) textDocumentDidClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(string(params.TextDocument.URI))
	if err != nil {
		return err
	}
	if _, ok := extract.LanguageForFile(path); !ok {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.IndexFiles(context.Background(), []string{path})
}

// currentText returns the indexed text of path, or its on-disk content if
// it has not been indexed.
func (s *Server) currentText(path string) (string, error) {
	a, err := s.engine.Analysis(context.Background())
	if err != nil {
		return "", err
	}
	if id, ok := a.FileID(path); ok {
		return a.Text(id), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// --- Queries ---

// document is a snapshot view of one file with its line index.
type document struct {
	analysis *wayfind.Analysis
	id       wayfind.FileID
	lines    *syntax.LineIndex
}

// openDocument returns the snapshot view of uri, or false if the file is
// not indexed.
func (s *Server) openDocument(ctx context.Context, uri protocol.DocumentUri) (*document, bool, error) {
	path, err := uriToPath(string(uri))
	if err != nil {
		return nil, false, err
	}
	a, err := s.engine.Analysis(ctx)
	if err != nil {
		return nil, false, err
	}
	id, ok := a.FileID(path)
	if !ok {
		s.logger.Debug("request for unindexed file", "path", path)
		return nil, false, nil
	}
	return &document{analysis: a, id: id, lines: syntax.NewLineIndex([]byte(a.Text(id)))}, true, nil
}

func (d *document) position(pos protocol.Position) wayfind.FilePosition {
	return wayfind.FilePosition{FileID: d.id, Offset: offsetAt(d.lines, pos)}
}

func (s *Server) textDocumentDefinition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	ctx := context.Background()
	doc, ok, err := s.openDocument(ctx, params.TextDocument.URI)
	if err != nil || !ok {
		return nil, err
	}
	res, err := doc.analysis.GotoDefinition(ctx, doc.position(params.Position))
	if err != nil {
		return nil, err
	}
	locations := []protocol.Location{}
	if res == nil {
		return locations, nil
	}
	lines := map[wayfind.FileID]*syntax.LineIndex{doc.id: doc.lines}
	for _, t := range res.Info {
		li, ok := lines[t.FileID]
		if !ok {
			li = syntax.NewLineIndex([]byte(doc.analysis.Text(t.FileID)))
			lines[t.FileID] = li
		}
		locations = append(locations, protocol.Location{
			URI:   pathToURI(doc.analysis.Path(t.FileID)),
			Range: toRange(li, t.FocusRange),
		})
	}
	return locations, nil
}

func (s *Server) textDocumentHover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	ctx := context.Background()
	doc, ok, err := s.openDocument(ctx, params.TextDocument.URI)
	if err != nil || !ok {
		return nil, err
	}
	res, err := doc.analysis.Hover(ctx, doc.position(params.Position))
	if err != nil || res == nil || res.Info.IsEmpty() {
		return nil, err
	}
	rng := toRange(doc.lines, res.Range)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: res.Info.ToMarkup()},
		Range:    &rng,
	}, nil
}

// offsetAt converts an LSP position to a byte offset. Characters are
// counted in bytes, like the CLI's columns.
func offsetAt(li *syntax.LineIndex, pos protocol.Position) uint32 {
	return li.Offset(int(pos.Line), int(pos.Character))
}

func toPosition(li *syntax.LineIndex, offset uint32) protocol.Position {
	line, col := li.LineCol(offset)
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

func toRange(li *syntax.LineIndex, r wayfind.TextRange) protocol.Range {
	return protocol.Range{Start: toPosition(li, r.Start), End: toPosition(li, r.End)}
}
