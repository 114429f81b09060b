package syntax

import (
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// TextRange is a half-open byte span [Start, End).
type TextRange struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// RangeOf returns the byte range of a node.
func RangeOf(n *sitter.Node) TextRange {
	return TextRange{Start: n.StartByte(), End: n.EndByte()}
}

// Len returns the number of bytes in the range.
func (r TextRange) Len() uint32 {
	return r.End - r.Start
}

// Contains reports whether o lies entirely inside r.
func (r TextRange) Contains(o TextRange) bool {
	return r.Start <= o.Start && o.End <= r.End
}

// ContainsOffset reports whether offset lies inside r, treating the end as
// inclusive so a cursor placed right after a token still touches it.
func (r TextRange) ContainsOffset(offset uint32) bool {
	return r.Start <= offset && offset <= r.End
}

func (r TextRange) String() string {
	return fmt.Sprintf("[%d; %d)", r.Start, r.End)
}

// SameNode reports whether a and b denote the same syntax node. Node pointers
// are cached per tree by the bindings, but comparing range and kind keeps
// this correct for nodes obtained through different traversal paths.
func SameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// LineIndex converts between byte offsets and 0-based line/column pairs.
// Columns count bytes, matching tree-sitter points.
type LineIndex struct {
	lineStarts []uint32
	size       uint32
}

// NewLineIndex builds an index over src.
func NewLineIndex(src []byte) *LineIndex {
	starts := []uint32{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, uint32(i+1))
		}
	}
	return &LineIndex{lineStarts: starts, size: uint32(len(src))}
}

// Offset returns the byte offset of (line, col). Out-of-range positions are
// clamped to the end of the line or file.
func (li *LineIndex) Offset(line, col int) uint32 {
	if line < 0 {
		return 0
	}
	if line >= len(li.lineStarts) {
		return li.size
	}
	start := li.lineStarts[line]
	end := li.size
	if line+1 < len(li.lineStarts) {
		end = li.lineStarts[line+1] - 1
	}
	off := start + uint32(max(col, 0))
	if off > end {
		off = end
	}
	return off
}

// LineCol returns the 0-based line and column of offset.
func (li *LineIndex) LineCol(offset uint32) (int, int) {
	if offset > li.size {
		offset = li.size
	}
	line := sort.Search(len(li.lineStarts), func(i int) bool {
		return li.lineStarts[i] > offset
	}) - 1
	return line, int(offset - li.lineStarts[line])
}
