package syntax

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ShortLabel renders the one-line signature of a declaration, independent of
// how it is formatted in the source. It returns "" for declarations without
// a meaningful label (macros, impl blocks).
func ShortLabel(t *Tree, decl *sitter.Node) string {
	if decl == nil {
		return ""
	}
	name := t.Text(NameOf(decl))
	switch decl.Type() {
	case KindFunction, KindFunctionSignature:
		return functionLabel(t, decl)
	case KindStruct:
		return withVisibility(t, decl, "struct "+name)
	case KindUnion:
		return withVisibility(t, decl, "union "+name)
	case KindEnum:
		return withVisibility(t, decl, "enum "+name)
	case KindTrait:
		return withVisibility(t, decl, "trait "+name)
	case KindTypeAlias, KindAssociatedType:
		return withVisibility(t, decl, "type "+name)
	case KindModule:
		return withVisibility(t, decl, "mod "+name)
	case KindEnumVariant:
		return name
	case KindConst:
		return withVisibility(t, decl, ascribed(t, decl, "const "+name))
	case KindStatic:
		return withVisibility(t, decl, ascribed(t, decl, "static "+name))
	case KindField:
		return withVisibility(t, decl, ascribed(t, decl, name))
	}
	return ""
}

func functionLabel(t *Tree, decl *sitter.Node) string {
	var b strings.Builder
	for _, c := range NamedChildren(decl) {
		if c.Type() == "function_modifiers" {
			b.WriteString(Normalize(t.Text(c)))
			b.WriteString(" ")
		}
	}
	b.WriteString("fn ")
	b.WriteString(t.Text(NameOf(decl)))
	if tp := decl.ChildByFieldName("type_parameters"); tp != nil {
		b.WriteString(Normalize(t.Text(tp)))
	}
	b.WriteString("(")
	if params := decl.ChildByFieldName("parameters"); params != nil {
		var parts []string
		for _, p := range NamedChildren(params) {
			if p.Type() == KindLineComment || p.Type() == KindBlockComment || p.Type() == KindAttributeItem {
				continue
			}
			parts = append(parts, Normalize(t.Text(p)))
		}
		b.WriteString(strings.Join(parts, ", "))
	}
	b.WriteString(")")
	if ret := decl.ChildByFieldName("return_type"); ret != nil {
		b.WriteString(" -> ")
		b.WriteString(Normalize(t.Text(ret)))
	}
	return withVisibility(t, decl, b.String())
}

func ascribed(t *Tree, decl *sitter.Node, prefix string) string {
	ty := decl.ChildByFieldName("type")
	if ty == nil {
		return prefix
	}
	return prefix + ": " + Normalize(t.Text(ty))
}

func withVisibility(t *Tree, decl *sitter.Node, label string) string {
	for _, c := range NamedChildren(decl) {
		if c.Type() == "visibility_modifier" {
			return Normalize(t.Text(c)) + " " + label
		}
	}
	return label
}

// Normalize collapses whitespace runs to a single space and drops spaces
// just inside brackets and before commas.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := strings.NewReplacer(
		"( ", "(",
		" )", ")",
		"[ ", "[",
		" ]", "]",
		" ,", ",",
		",)", ")",
		",>", ">",
		", )", ")",
		", >", ">",
	)
	return r.Replace(s)
}
