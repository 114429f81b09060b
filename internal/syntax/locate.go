package syntax

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// LeavesAt returns the leaves touching offset: the leaf ending exactly at
// offset first (if any), then the leaf containing or starting at it.
// Zero-width leaves (missing tokens inserted by error recovery) are ignored.
func LeavesAt(root *sitter.Node, offset uint32) []*sitter.Node {
	var leaves []*sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		count := int(n.ChildCount())
		for i := 0; i < count; i++ {
			c := n.Child(i)
			if c == nil || c.StartByte() == c.EndByte() {
				continue
			}
			if c.StartByte() > offset {
				break
			}
			if offset > c.EndByte() {
				continue
			}
			if c.ChildCount() == 0 {
				leaves = append(leaves, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)
	return leaves
}

// AncestorsAtOffset returns the union of the ancestor chains (each starting
// at the leaf itself) of the leaves touching offset, shortest node first.
// When no leaf touches offset (whitespace), the chain of the smallest node
// containing offset is returned instead.
func AncestorsAtOffset(root *sitter.Node, offset uint32) []*sitter.Node {
	leaves := LeavesAt(root, offset)
	if len(leaves) == 0 {
		if n := smallestContaining(root, offset); n != nil {
			return Ancestors(n)
		}
		return nil
	}

	type key struct {
		start, end uint32
		kind       string
	}
	seen := make(map[key]bool)
	var nodes []*sitter.Node
	for _, leaf := range leaves {
		for _, n := range Ancestors(leaf) {
			k := key{n.StartByte(), n.EndByte(), n.Type()}
			if seen[k] {
				continue
			}
			seen[k] = true
			nodes = append(nodes, n)
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return RangeOf(nodes[i]).Len() < RangeOf(nodes[j]).Len()
	})
	return nodes
}

// FindNodeAtOffset returns the smallest node touching offset that matches
// pred, or nil.
func FindNodeAtOffset(root *sitter.Node, offset uint32, pred func(*sitter.Node) bool) *sitter.Node {
	for _, n := range AncestorsAtOffset(root, offset) {
		if pred(n) {
			return n
		}
	}
	return nil
}

// FindNameRefAt returns the name usage under the cursor, or nil.
func FindNameRefAt(root *sitter.Node, offset uint32) *sitter.Node {
	return FindNodeAtOffset(root, offset, IsNameRef)
}

// FindNameAt returns the declared or bound name under the cursor, or nil.
func FindNameAt(root *sitter.Node, offset uint32) *sitter.Node {
	return FindNodeAtOffset(root, offset, IsName)
}

// CoveringNode returns the smallest node whose range contains r. An empty
// range at a token boundary is attributed to the token on its right.
func CoveringNode(root *sitter.Node, r TextRange) *sitter.Node {
	n := root
	for {
		next := coveringChild(n, r)
		if next == nil {
			return n
		}
		n = next
	}
}

func coveringChild(n *sitter.Node, r TextRange) *sitter.Node {
	count := int(n.ChildCount())
	var left *sitter.Node
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c == nil || c.StartByte() == c.EndByte() {
			continue
		}
		cr := RangeOf(c)
		if r.Start == r.End {
			if cr.Start <= r.Start && r.Start < cr.End {
				return c
			}
			if cr.End == r.Start {
				left = c
			}
			continue
		}
		if cr.Contains(r) {
			return c
		}
	}
	return left
}

func smallestContaining(root *sitter.Node, offset uint32) *sitter.Node {
	if offset < root.StartByte() || offset > root.EndByte() {
		return nil
	}
	n := root
	for {
		var next *sitter.Node
		count := int(n.ChildCount())
		for i := 0; i < count; i++ {
			c := n.Child(i)
			if c != nil && c.StartByte() <= offset && offset < c.EndByte() {
				next = c
				break
			}
		}
		if next == nil {
			return n
		}
		n = next
	}
}
