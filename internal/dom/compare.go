package dom

import (
	"slices"

	"golang.org/x/net/html"
)

// Position is the relation of node A to node B.
type Position int

const (
	Equal Position = iota
	Before
	After
	Contains
	ContainedBy
	Disconnected
)

func (p Position) String() string {
	switch p {
	case Equal:
		return "equal"
	case Before:
		return "before"
	case After:
		return "after"
	case Contains:
		return "contains"
	case ContainedBy:
		return "contained_by"
	default:
		return "disconnected"
	}
}

// Address is the chain of sibling indexes from the tree root down to a node.
type Address struct {
	Root *html.Node
	Path []int
}

func AddressOf(n *html.Node) Address {
	if n == nil {
		return Address{}
	}
	var path []int
	root := n
	for root.Parent != nil {
		path = append(path, ChildIndex(root))
		root = root.Parent
	}
	slices.Reverse(path)
	return Address{Root: root, Path: path}
}

// CompareAddresses orders two addresses lexicographically. A strict prefix
// means containment.
func CompareAddresses(a, b Address) Position {
	if a.Root == nil || b.Root == nil || a.Root != b.Root {
		return Disconnected
	}
	n := min(len(a.Path), len(b.Path))
	for i := range n {
		switch {
		case a.Path[i] < b.Path[i]:
			return Before
		case a.Path[i] > b.Path[i]:
			return After
		}
	}
	switch {
	case len(a.Path) == len(b.Path):
		return Equal
	case len(a.Path) < len(b.Path):
		return Contains
	default:
		return ContainedBy
	}
}

// Orderer is a host-provided ordering primitive. ok is false when the
// orderer cannot answer for the given pair.
type Orderer interface {
	Compare(a, b *html.Node) (pos Position, ok bool)
}

// Comparator answers ordering questions, preferring a native Orderer and
// falling back to address comparison.
type Comparator struct {
	native Orderer
}

func NewComparator(native Orderer) *Comparator {
	return &Comparator{native: native}
}

func (c *Comparator) Compare(a, b *html.Node) Position {
	if a == nil || b == nil {
		return Disconnected
	}
	if a == b {
		return Equal
	}
	if c != nil && c.native != nil {
		if pos, ok := c.native.Compare(a, b); ok {
			return pos
		}
	}
	return CompareAddresses(AddressOf(a), AddressOf(b))
}

// Invalidate tells a native orderer that the tree shape changed.
func (c *Comparator) Invalidate() {
	if c == nil || c.native == nil {
		return
	}
	if inv, ok := c.native.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}
}

// Index numbers every node under a root on entry and exit so ordering and
// containment become two integer comparisons. It rebuilds lazily after
// Invalidate; the Mutator invalidates after its own edits, anyone else
// moving nodes must call it too.
type Index struct {
	root  *html.Node
	enter map[*html.Node]int
	exit  map[*html.Node]int
	dirty bool
}

func NewIndex(root *html.Node) *Index {
	return &Index{root: root, dirty: true}
}

func (ix *Index) Invalidate() {
	ix.dirty = true
}

func (ix *Index) rebuild() {
	ix.enter = make(map[*html.Node]int)
	ix.exit = make(map[*html.Node]int)
	clock := 0
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		ix.enter[n] = clock
		clock++
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
		ix.exit[n] = clock
		clock++
	}
	if ix.root != nil {
		visit(ix.root)
	}
	ix.dirty = false
}

func (ix *Index) Compare(a, b *html.Node) (Position, bool) {
	if ix == nil || ix.root == nil {
		return Disconnected, false
	}
	if ix.dirty {
		ix.rebuild()
	}
	ae, aok := ix.enter[a]
	be, bok := ix.enter[b]
	if !aok || !bok {
		return Disconnected, false
	}
	ax, bx := ix.exit[a], ix.exit[b]
	switch {
	case a == b:
		return Equal, true
	case ae < be && bx < ax:
		return Contains, true
	case be < ae && ax < bx:
		return ContainedBy, true
	case ae < be:
		return Before, true
	default:
		return After, true
	}
}
