package syntax

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
)

// DocComment returns the outer doc comment attached to decl with the comment
// markers stripped, or "" when there is none. Lines of `///` comments are
// joined with "\n"; a `/** */` block contributes its inner text.
func DocComment(t *Tree, decl *sitter.Node) string {
	comments, _ := attachedTrivia(t, decl)
	if len(comments) == 0 {
		return ""
	}
	lines := make([]string, 0, len(comments))
	for i := len(comments) - 1; i >= 0; i-- {
		lines = append(lines, stripDocMarkers(t.Text(comments[i])))
	}
	doc := strings.Join(lines, "\n")
	if strings.TrimSpace(doc) == "" {
		return ""
	}
	return doc
}

// ItemRange returns the range of decl extended backwards over the attributes
// and doc comments attached to it.
func ItemRange(t *Tree, decl *sitter.Node) TextRange {
	r := RangeOf(decl)
	if _, first := attachedTrivia(t, decl); first != nil {
		r.Start = first.StartByte()
	}
	return r
}

// attachedTrivia walks the siblings directly preceding decl. It returns the
// doc comments found (nearest first) and the earliest attached sibling.
func attachedTrivia(t *Tree, decl *sitter.Node) ([]*sitter.Node, *sitter.Node) {
	var docs []*sitter.Node
	var first *sitter.Node
	cur := decl
	for prev := decl.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		if !adjacent(t, prev, cur) {
			break
		}
		switch {
		case prev.Type() == KindAttributeItem:
		case isDocComment(t, prev):
			docs = append(docs, prev)
		default:
			return docs, first
		}
		first = prev
		cur = prev
	}
	return docs, first
}

// adjacent reports whether at most one line break separates a from b, so a
// blank line detaches a comment from the item below it.
func adjacent(t *Tree, a, b *sitter.Node) bool {
	if a.EndByte() > b.StartByte() {
		return false
	}
	gap := string(t.Source[a.EndByte():b.StartByte()])
	if strings.TrimSpace(gap) != "" {
		return false
	}
	breaks := strings.Count(gap, "\n")
	if strings.HasSuffix(t.Text(a), "\n") {
		breaks++
	}
	return breaks <= 1
}

func isDocComment(t *Tree, n *sitter.Node) bool {
	text := t.Text(n)
	switch n.Type() {
	case KindLineComment:
		return strings.HasPrefix(text, "///") && !strings.HasPrefix(text, "////")
	case KindBlockComment:
		return strings.HasPrefix(text, "/**") && !strings.HasPrefix(text, "/***") && text != "/**/"
	}
	return false
}

func stripDocMarkers(text string) string {
	text = strings.TrimRight(text, "\r\n")
	if strings.HasPrefix(text, "/**") {
		text = strings.TrimSuffix(strings.TrimPrefix(text, "/**"), "*/")
		return strings.TrimSpace(text)
	}
	text = strings.TrimPrefix(text, "///")
	if r := []rune(text); len(r) > 0 && unicode.IsSpace(r[0]) {
		text = string(r[1:])
	}
	return text
}
