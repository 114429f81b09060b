package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/wayfind"
	"github.com/jward/wayfind/internal/extract"
	"github.com/jward/wayfind/internal/syntax"
)

// textDocumentDocumentSymbol returns the outline of a document from the
// symbol index. Items without a parent symbol are top level; fields,
// variants and nested items hang off their parents.
func (s *Server) textDocumentDocumentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	symbols := []protocol.DocumentSymbol{}
	path, err := uriToPath(string(params.TextDocument.URI))
	if err != nil {
		return nil, err
	}

	// Hold the index still so symbol offsets match the stored content.
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.engine.Store()
	f, err := st.FileByPath(path)
	if err != nil {
		return nil, err
	}
	if f == nil {
		s.logger.Debug("document symbols for unindexed file", "path", path)
		return symbols, nil
	}
	syms, err := st.SymbolsByFile(f.ID)
	if err != nil {
		return nil, err
	}
	lines := syntax.NewLineIndex([]byte(f.Content))
	for _, sym := range syms {
		if sym.ParentSymbolID != nil {
			continue
		}
		ds, err := documentSymbol(st, lines, sym)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, ds)
	}
	return symbols, nil
}

func documentSymbol(st *wayfind.Store, lines *syntax.LineIndex, sym *wayfind.Symbol) (protocol.DocumentSymbol, error) {
	selection := toRange(lines, wayfind.TextRange{Start: uint32(sym.FocusStart), End: uint32(sym.FocusEnd)})
	ds := protocol.DocumentSymbol{
		Name:           sym.Name,
		Kind:           symbolKind(sym.Kind),
		Range:          toRange(lines, wayfind.TextRange{Start: uint32(sym.StartByte), End: uint32(sym.EndByte)}),
		SelectionRange: selection,
	}
	if sym.Description != "" {
		detail := sym.Description
		ds.Detail = &detail
	}
	children, err := st.SymbolChildren(sym.ID)
	if err != nil {
		return protocol.DocumentSymbol{}, err
	}
	for _, child := range children {
		c, err := documentSymbol(st, lines, child)
		if err != nil {
			return protocol.DocumentSymbol{}, err
		}
		ds.Children = append(ds.Children, c)
	}
	return ds, nil
}

// symbolKind maps index kinds to LSP symbol kinds.
func symbolKind(kind string) protocol.SymbolKind {
	switch kind {
	case extract.KindStruct, extract.KindUnion:
		return protocol.SymbolKindStruct
	case extract.KindEnum:
		return protocol.SymbolKindEnum
	case extract.KindVariant:
		return protocol.SymbolKindEnumMember
	case extract.KindFunction, extract.KindMacro:
		return protocol.SymbolKindFunction
	case extract.KindTrait:
		return protocol.SymbolKindInterface
	case extract.KindTypeAlias:
		return protocol.SymbolKindTypeParameter
	case extract.KindConst:
		return protocol.SymbolKindConstant
	case extract.KindStatic:
		return protocol.SymbolKindVariable
	case extract.KindModule:
		return protocol.SymbolKindModule
	case extract.KindField:
		return protocol.SymbolKindField
	default:
		return protocol.SymbolKindVariable
	}
}
