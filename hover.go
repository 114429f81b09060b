package wayfind

import (
	"context"
	"encoding/json"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/wayfind/internal/hir"
	"github.com/jward/wayfind/internal/syntax"
)

const (
	markupSeparator = "\n\n---\n"
	inexactCaveat   = "Failed to exactly resolve the symbol. This is probably because wayfind does not yet support traits."
	inexactFound    = "  \nThese items were found instead:"
)

// HoverResult holds the rendered blocks for a hover query.
type HoverResult struct {
	results []string
	exact   bool

	// typeOnly marks a result made of the inferred type of an expression.
	typeOnly bool
}

// NewHoverResult returns an empty, exact result.
func NewHoverResult() HoverResult {
	return HoverResult{exact: true}
}

// Extend appends the non-empty items.
func (h *HoverResult) Extend(items ...string) {
	for _, item := range items {
		if item != "" {
			h.results = append(h.results, item)
		}
	}
}

// IsExact reports false only when every block came from the symbol index.
func (h HoverResult) IsExact() bool { return h.exact }

func (h HoverResult) IsEmpty() bool { return len(h.results) == 0 }

func (h HoverResult) Len() int { return len(h.results) }

// First returns the first block.
func (h HoverResult) First() (string, bool) {
	if len(h.results) == 0 {
		return "", false
	}
	return h.results[0], true
}

// Results returns the blocks in the order they were produced.
func (h HoverResult) Results() []string { return h.results }

// ToMarkup joins the blocks for display, prefixed by a caveat when the
// result is approximate.
func (h HoverResult) ToMarkup() string {
	var b strings.Builder
	if !h.exact {
		b.WriteString(inexactCaveat)
		if len(h.results) > 0 {
			b.WriteString(inexactFound)
		}
		b.WriteString(markupSeparator)
	}
	b.WriteString(strings.Join(h.results, markupSeparator))
	return b.String()
}

func (h HoverResult) MarshalJSON() ([]byte, error) {
	results := h.results
	if results == nil {
		results = []string{}
	}
	return json.Marshal(struct {
		Results []string `json:"results"`
		Exact   bool     `json:"exact"`
		Markup  string   `json:"markup"`
	}{results, h.exact, h.ToMarkup()})
}

func rustCodeMarkup(code string) string {
	return "```rust\n" + code + "\n```"
}

func rustCodeMarkupWithDoc(code, docs string) string {
	if docs == "" {
		return rustCodeMarkup(code)
	}
	return rustCodeMarkup(code) + "\n\n" + docs
}

// hoverText renders a signature with its docs. Without a signature the
// docs stand alone; without either there is no block.
func hoverText(docs, desc string) string {
	switch {
	case desc != "":
		return rustCodeMarkupWithDoc(desc, docs)
	case docs != "":
		return docs
	}
	return ""
}

func (a *Analysis) declHover(file FileID, decl *sitter.Node) string {
	f := a.db.File(file)
	if f == nil || decl == nil {
		return ""
	}
	return hoverText(syntax.DocComment(f.Tree, decl), syntax.ShortLabel(f.Tree, decl))
}

func (a *Analysis) defHover(d *hir.Def) string {
	if !d.HasSource() || d.Node == nil {
		return ""
	}
	return a.declHover(d.File, d.Node)
}

// hover composes the text for the position. A name usage is classified and
// rendered from its definition, falling back to the symbol index; a
// declared name is rendered from its own declaration; anything else shows
// the type of the nearest expression or pattern.
func (a *Analysis) hover(ctx context.Context, f *hir.File, offset uint32) (*RangeInfo[HoverResult], error) {
	root := f.Tree.Root()
	res := NewHoverResult()
	var rng *TextRange

	if nameRef := syntax.FindNameRefAt(root, offset); nameRef != nil {
		an := a.db.Analyzer(f.ID, nameRef)
		noFallback := false

		if ref, ok := classifyNameRef(an, nameRef); ok {
			switch ref.Kind {
			case RefMethod, RefAssocItem:
				res.Extend(a.defHover(ref.Def))
			case RefMacro:
				if mf := a.db.File(ref.Macro.File); mf != nil {
					res.Extend(hoverText(syntax.DocComment(mf.Tree, ref.Macro.Node), ""))
				}
			case RefFieldAccess:
				if ref.Field.Named {
					res.Extend(a.declHover(ref.Field.File, ref.Field.Node))
				} else {
					// positional fields show the type of the access below
					noFallback = true
				}
			case RefDef:
				d := ref.Def
				switch {
				case d.Kind == hir.DefModule:
					if m := d.Module; m != nil && m.IsInline() {
						res.Extend(a.declHover(m.DeclFile, m.Decl))
					}
				case d.Kind == hir.DefBuiltin:
					// builtins have no source to describe
				default:
					res.Extend(a.defHover(d))
				}
			case RefSelfType:
				if d := adtOf(ref.SelfType); d != nil {
					res.Extend(a.defHover(d))
				}
			case RefPat, RefSelfParam:
				// shown as the inferred type below
				noFallback = true
			case RefGenericParam:
			}
		}

		if res.IsEmpty() && !noFallback {
			hits, err := a.indexResolve(ctx, f.Tree.Text(nameRef))
			if err != nil {
				return nil, err
			}
			for _, hit := range hits {
				res.Extend(hoverText(hit.sym.Docs, hit.sym.Description))
			}
			if !res.IsEmpty() {
				res.exact = false
			}
		}

		if !res.IsEmpty() {
			r := syntax.RangeOf(nameRef)
			rng = &r
		}
	} else if name := syntax.FindNameAt(root, offset); name != nil {
		if parent := name.Parent(); parent != nil && declarationTable[parent.Type()] {
			res.Extend(a.declHover(f.ID, parent))
		}
		if !res.IsEmpty() {
			r := syntax.RangeOf(name)
			rng = &r
		}
	}

	if rng == nil {
		var node *sitter.Node
		for _, n := range syntax.AncestorsAtOffset(root, offset) {
			if syntax.IsExpression(n) || syntax.IsPattern(n) {
				node = n
				break
			}
		}
		if node == nil {
			return nil, nil
		}
		r := syntax.RangeOf(node)
		if ty, ok := a.typeOf(f, r); ok {
			res.Extend(rustCodeMarkup(ty))
			res.typeOnly = true
		}
		rng = &r
	}

	if res.IsEmpty() {
		return nil, nil
	}
	return &RangeInfo[HoverResult]{Range: *rng, Info: res}, nil
}
