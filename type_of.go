package wayfind

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/wayfind/internal/hir"
	"github.com/jward/wayfind/internal/syntax"
)

// typeOf widens r to the expression or pattern covering it and renders its
// inferred type. Only ancestors spanning exactly the covering node's range
// are considered, so an identifier widens to its path expression but not
// to an enclosing call.
func (a *Analysis) typeOf(f *hir.File, r TextRange) (string, bool) {
	leaf := syntax.CoveringNode(f.Tree.Root(), r)
	if syntax.IsTupleIndex(leaf) {
		leaf = leaf.Parent()
	}
	want := syntax.RangeOf(leaf)

	var node *sitter.Node
	for n := leaf; n != nil && syntax.RangeOf(n) == want; n = n.Parent() {
		if syntax.IsExpression(n) || syntax.IsPattern(n) {
			node = n
			break
		}
	}
	if node == nil {
		return "", false
	}

	an := a.db.Analyzer(f.ID, node)
	if syntax.IsExpression(node) {
		if ty, ok := an.TypeOfExpr(node); ok {
			return ty.String(), true
		}
	}
	if syntax.IsPattern(node) {
		if ty, ok := an.TypeOfPat(node); ok {
			return ty.String(), true
		}
	}
	return "", false
}
