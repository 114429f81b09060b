// Package syntax wraps tree-sitter's Rust grammar and provides the node
// lookups the navigation layer needs: finding the name under a cursor,
// covering a byte range, classifying nodes as expressions or patterns, and
// rendering declaration signatures and doc comments.
package syntax

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

var (
	rustLang     *sitter.Language
	rustLangOnce sync.Once
)

// Language returns the tree-sitter Rust grammar. Lazily initialized.
func Language() *sitter.Language {
	rustLangOnce.Do(func() {
		rustLang = rust.GetLanguage()
	})
	return rustLang
}

// Tree is a parsed source file. The source bytes are kept alongside the
// tree because smacker/go-tree-sitter nodes don't carry their text.
type Tree struct {
	tree   *sitter.Tree
	Source []byte
}

// Parse parses Rust source text. A tree is always produced for valid input;
// syntax errors are represented as ERROR nodes, not as a returned error.
func Parse(ctx context.Context, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(Language())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return &Tree{tree: tree, Source: src}, nil
}

// Root returns the source_file node.
func (t *Tree) Root() *sitter.Node {
	return t.tree.RootNode()
}

// Text returns the source text of n.
func (t *Tree) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(t.Source)
}

// Range returns the byte range of the whole file. The root node is not used
// because tree-sitter excludes leading and trailing whitespace from it.
func (t *Tree) Range() TextRange {
	return TextRange{Start: 0, End: uint32(len(t.Source))}
}
