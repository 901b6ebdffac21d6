package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Range is a live selection: two (node, offset) boundary points pointing
// straight into the tree. For text nodes the offset counts code points; for
// elements it is a child index.
type Range struct {
	StartNode   *html.Node
	StartOffset int
	EndNode     *html.Node
	EndOffset   int
}

func (r Range) IsZero() bool {
	return r.StartNode == nil && r.EndNode == nil
}

func (r Range) Collapsed() bool {
	return r.StartNode == r.EndNode && r.StartOffset == r.EndOffset
}

// Point is one boundary of a Range.
type Point struct {
	Node   *html.Node
	Offset int
}

func (r Range) Start() Point { return Point{Node: r.StartNode, Offset: r.StartOffset} }
func (r Range) End() Point   { return Point{Node: r.EndNode, Offset: r.EndOffset} }

func RangeOf(start, end Point) Range {
	return Range{
		StartNode:   start.Node,
		StartOffset: start.Offset,
		EndNode:     end.Node,
		EndOffset:   end.Offset,
	}
}

// ComparePoints orders two boundary points: -1, 0 or 1. ok is false when the
// points are in unrelated trees. Both points must already be text points.
func (c *Comparator) ComparePoints(a, b Point) (int, bool) {
	if a.Node == b.Node {
		switch {
		case a.Offset < b.Offset:
			return -1, true
		case a.Offset > b.Offset:
			return 1, true
		default:
			return 0, true
		}
	}
	switch c.Compare(a.Node, b.Node) {
	case Before:
		return -1, true
	case After:
		return 1, true
	default:
		return 0, false
	}
}

// TextPoint resolves p to a text boundary under root. Element points
// (child index convention) resolve to the start of the first text node at
// or after the child, or the end of the last text node before it.
func TextPoint(root *html.Node, p Point) (Point, bool) {
	if p.Node == nil {
		return Point{}, false
	}
	if IsText(p.Node) {
		return Point{Node: p.Node, Offset: max(0, min(p.Offset, RuneLen(p.Node)))}, true
	}
	child := ChildAt(p.Node, p.Offset)
	var anchor *html.Node
	if child != nil {
		anchor = child
	} else {
		// past the last child: the point sits after everything p.Node holds
		var last *html.Node
		for t := range TextNodes(p.Node) {
			last = t
		}
		if last != nil {
			return Point{Node: last, Offset: RuneLen(last)}, true
		}
		anchor = p.Node
	}
	var (
		prev    *html.Node
		reached bool
	)
	for n := range Walk(root) {
		if n == anchor {
			reached = true
		}
		if !IsText(n) {
			continue
		}
		if reached {
			return Point{Node: n, Offset: 0}, true
		}
		prev = n
	}
	if prev != nil {
		return Point{Node: prev, Offset: RuneLen(prev)}, true
	}
	return Point{}, false
}

// Text returns the code points covered by r under root. r must hold text points.
func (r Range) Text(root *html.Node) string {
	var (
		b      strings.Builder
		inside bool
	)
	for n := range TextNodes(root) {
		if n == r.StartNode {
			inside = true
			if n == r.EndNode {
				b.WriteString(RuneSlice(n.Data, r.StartOffset, r.EndOffset))
				break
			}
			b.WriteString(RuneSlice(n.Data, r.StartOffset, RuneLen(n)))
			continue
		}
		if !inside {
			continue
		}
		if n == r.EndNode {
			b.WriteString(RuneSlice(n.Data, 0, r.EndOffset))
			break
		}
		b.WriteString(n.Data)
	}
	return b.String()
}
