package wayfind

import (
	"fmt"
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/wayfind/internal/extract"
	"github.com/jward/wayfind/internal/hir"
	"github.com/jward/wayfind/internal/syntax"
)

// Target kinds that have no counterpart among indexed declaration kinds.
const (
	KindSourceFile = "source_file"
	KindBinding    = "binding"
	KindSelfParam  = "self_param"
)

// NavigationTarget is one destination of a navigation query. FullRange
// always contains FocusRange; for targets without a name token (files,
// positional fields) the two are equal.
type NavigationTarget struct {
	FileID     FileID    `json:"file_id"`
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	FullRange  TextRange `json:"full_range"`
	FocusRange TextRange `json:"focus_range"`
	Container  string    `json:"container,omitempty"`
	Label      string    `json:"label,omitempty"`
	Docs       string    `json:"docs,omitempty"`
}

// String renders the target in a compact debug form:
// `Foo struct FileID(1) [0; 11) [7; 10)`.
func (t NavigationTarget) String() string {
	s := fmt.Sprintf("%s %s FileID(%d) %s", t.Name, t.Kind, t.FileID, t.FullRange)
	if t.FocusRange != t.FullRange {
		s += " " + t.FocusRange.String()
	}
	return s
}

func newTarget(f *hir.File, name, kind string, full, focus TextRange) NavigationTarget {
	return NavigationTarget{
		FileID:     f.ID,
		Path:       f.Path,
		Name:       name,
		Kind:       kind,
		FullRange:  full,
		FocusRange: focus,
	}
}

// targetFromNamed builds a target for a declaration with a name field.
// Macro definitions get no label.
func (a *Analysis) targetFromNamed(file hir.FileID, decl *sitter.Node) (NavigationTarget, bool) {
	f := a.db.File(file)
	if f == nil || decl == nil {
		return NavigationTarget{}, false
	}
	name := syntax.NameOf(decl)
	if name == nil {
		return NavigationTarget{}, false
	}
	kind, ok := extract.KindFor(decl.Type())
	if !ok {
		kind = decl.Type()
	}
	full := syntax.ItemRange(f.Tree, decl)
	focus := syntax.RangeOf(name)
	t := newTarget(f, f.Tree.Text(name), kind, full, focus)
	t.Docs = syntax.DocComment(f.Tree, decl)
	if decl.Type() != syntax.KindMacroDefinition {
		t.Label = syntax.ShortLabel(f.Tree, decl)
	}
	return t, true
}

// targetFromDef fails for definitions without source, such as builtin types.
func (a *Analysis) targetFromDef(d *hir.Def) (NavigationTarget, bool) {
	if !d.HasSource() {
		return NavigationTarget{}, false
	}
	if d.Kind == hir.DefModule {
		return a.targetFromModule(d.Module)
	}
	return a.targetFromNamed(d.File, d.Node)
}

// targetFromModule points inline modules at their declaration and file
// modules at the whole file.
func (a *Analysis) targetFromModule(m *hir.Module) (NavigationTarget, bool) {
	if m == nil {
		return NavigationTarget{}, false
	}
	if m.IsInline() {
		return a.targetFromNamed(m.DeclFile, m.Decl)
	}
	f := a.db.File(m.File)
	if f == nil {
		return NavigationTarget{}, false
	}
	name := m.Name
	if name == "" && m.Crate != nil {
		name = m.Crate.Name
	}
	r := f.Tree.Range()
	return newTarget(f, name, KindSourceFile, r, r), true
}

func (a *Analysis) targetFromField(fd *hir.Field) (NavigationTarget, bool) {
	if fd.Named {
		return a.targetFromNamed(fd.File, fd.Node)
	}
	f := a.db.File(fd.File)
	if f == nil {
		return NavigationTarget{}, false
	}
	r := syntax.RangeOf(fd.Node)
	t := newTarget(f, strconv.Itoa(fd.Index), extract.KindField, r, r)
	t.Label = syntax.Normalize(f.Tree.Text(fd.TypeNode))
	return t, true
}

func (a *Analysis) targetFromMacro(mac *hir.MacroDef) (NavigationTarget, bool) {
	return a.targetFromNamed(mac.File, mac.Node)
}

// targetFromBinding spans the whole binding pattern (`mut x`, `ref x`) and
// focuses the name.
func (a *Analysis) targetFromBinding(b *hir.Binding) (NavigationTarget, bool) {
	f := a.db.File(b.File)
	if f == nil {
		return NavigationTarget{}, false
	}
	full := syntax.RangeOf(b.Node)
	if p := b.Node.Parent(); p != nil {
		switch p.Type() {
		case "mut_pattern", "ref_pattern":
			full = syntax.RangeOf(p)
		}
	}
	return newTarget(f, b.Name, KindBinding, full, syntax.RangeOf(b.Node)), true
}

func (a *Analysis) targetFromSelfParam(sp *hir.SelfParam) (NavigationTarget, bool) {
	f := a.db.File(sp.File)
	if f == nil {
		return NavigationTarget{}, false
	}
	return newTarget(f, "self", KindSelfParam, syntax.RangeOf(sp.Node), syntax.RangeOf(sp.SelfToken())), true
}

// targetFromSymbol maps an index hit to a target. Labels and docs come from
// the values stored at indexing time, not from the current snapshot.
func (a *Analysis) targetFromSymbol(hit indexedSymbol) NavigationTarget {
	f := a.db.File(hit.file)
	sym := hit.sym
	return NavigationTarget{
		FileID:     f.ID,
		Path:       f.Path,
		Name:       sym.Name,
		Kind:       sym.Kind,
		FullRange:  TextRange{Start: uint32(sym.StartByte), End: uint32(sym.EndByte)},
		FocusRange: TextRange{Start: uint32(sym.FocusStart), End: uint32(sym.FocusEnd)},
		Container:  sym.Container,
		Label:      sym.Description,
		Docs:       sym.Docs,
	}
}
