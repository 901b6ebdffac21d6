package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultMarkerTag   = "span"
	DefaultMarkerClass = "anchor-highlight"
	DefaultMarkerAttr  = "data-anchor-marker"
)

// MarkerStyle describes the element inserted around highlighted text.
type MarkerStyle struct {
	Tag   string
	Class string
	Attr  string
}

func DefaultMarkerStyle() MarkerStyle {
	return MarkerStyle{Tag: DefaultMarkerTag, Class: DefaultMarkerClass, Attr: DefaultMarkerAttr}
}

func (s MarkerStyle) normalised() MarkerStyle {
	out := s
	if strings.TrimSpace(out.Tag) == "" {
		out.Tag = DefaultMarkerTag
	}
	if strings.TrimSpace(out.Attr) == "" {
		out.Attr = DefaultMarkerAttr
	}
	out.Tag = strings.ToLower(strings.TrimSpace(out.Tag))
	return out
}

// Split records one text node cut in two by SplitTextAt.
type Split struct {
	Left  *html.Node
	Right *html.Node
}

// Marking is everything one Mark call changed, kept so Clear can undo it.
type Marking struct {
	ID      string
	Root    *html.Node
	Splits  []Split
	Groups  int
	Wrapped int
}

// Mutator performs the in-place edits. It only restructures markers and
// split points it introduced itself.
type Mutator struct {
	cmp   *Comparator
	style MarkerStyle
}

func NewMutator(cmp *Comparator, style MarkerStyle) *Mutator {
	if cmp == nil {
		cmp = NewComparator(nil)
	}
	return &Mutator{cmp: cmp, style: style.normalised()}
}

func (m *Mutator) Style() MarkerStyle { return m.style }

// SplitTextAt cuts a text node at a code point offset. At either extreme it
// is a no-op: offset <= 0 gives (nil, n), offset >= length gives (n, nil).
// Non-text or detached nodes give (nil, nil).
func (m *Mutator) SplitTextAt(n *html.Node, offset int) (left, right *html.Node) {
	if !IsText(n) || n.Parent == nil {
		return nil, nil
	}
	if offset <= 0 {
		return nil, n
	}
	if offset >= RuneLen(n) {
		return n, nil
	}
	cut := ByteOffset(n.Data, offset)
	tail := &html.Node{Type: html.TextNode, Data: n.Data[cut:]}
	n.Data = n.Data[:cut]
	n.Parent.InsertBefore(tail, n.NextSibling)
	m.cmp.Invalidate()
	return n, tail
}

// Isolate splits the boundary text nodes of r so the range covers whole
// nodes, returning the first and last covered text node.
func (m *Mutator) Isolate(root *html.Node, r Range) (first, last *html.Node, splits []Split, ok bool) {
	if !IsText(r.StartNode) || !IsText(r.EndNode) {
		return nil, nil, nil, false
	}
	start, end := r.Start(), r.End()
	for start.Node != end.Node && start.Offset >= RuneLen(start.Node) {
		next := NextTextNode(start.Node, root, nil)
		if next == nil {
			return nil, nil, nil, false
		}
		start = Point{Node: next, Offset: 0}
	}
	for end.Node != start.Node && end.Offset <= 0 {
		prev := PreviousTextNode(end.Node, root, nil)
		if prev == nil {
			return nil, nil, nil, false
		}
		end = Point{Node: prev, Offset: RuneLen(prev)}
	}
	if start.Node == end.Node && start.Offset >= end.Offset {
		return nil, nil, nil, false
	}

	record := func(l, r *html.Node) {
		if l != nil && r != nil {
			splits = append(splits, Split{Left: l, Right: r})
		}
	}

	if start.Node == end.Node {
		l, r := m.SplitTextAt(end.Node, end.Offset)
		record(l, r)
		l, r = m.SplitTextAt(start.Node, start.Offset)
		record(l, r)
		if r == nil {
			return nil, nil, splits, false
		}
		return r, r, splits, true
	}

	l, r2 := m.SplitTextAt(end.Node, end.Offset)
	record(l, r2)
	last = l
	l, r2 = m.SplitTextAt(start.Node, start.Offset)
	record(l, r2)
	first = r2
	if first == nil || last == nil {
		return nil, nil, splits, false
	}
	return first, last, splits, true
}

// ContainedNodes walks from r.StartNode to r.EndNode in document order and
// returns the top-most nodes fully inside that span, grouped by parent.
// A change of parent starts a new group so no group straddles structure.
func (m *Mutator) ContainedNodes(r Range) [][]*html.Node {
	first, last := r.StartNode, r.EndNode
	if first == nil || last == nil {
		return nil
	}

	var (
		groups [][]*html.Node
		cur    []*html.Node
		parent *html.Node
	)
	flush := func() {
		if len(cur) > 0 {
			groups = append(groups, cur)
		}
		cur = nil
	}
	emit := func(n *html.Node) {
		if len(cur) == 0 || n.Parent != parent {
			flush()
			parent = n.Parent
		}
		cur = append(cur, n)
	}

	n := first
	for n != nil {
		switch m.cmp.Compare(n, last) {
		case Equal:
			emit(n)
			flush()
			return groups
		case Contains:
			n = n.FirstChild
		case Before:
			emit(n)
			n = nextOutside(n)
		default:
			flush()
			return groups
		}
	}
	flush()
	return groups
}

func nextOutside(n *html.Node) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if p.NextSibling != nil {
			return p.NextSibling
		}
	}
	return nil
}

// Wrap gives every non-blank text node in nodes (searching descendants of
// elements) a marker parent tagged with id. It returns how many it wrapped.
func (m *Mutator) Wrap(nodes []*html.Node, id string) int {
	count := 0
	for _, n := range nodes {
		count += m.wrapNode(n, id)
	}
	if count > 0 {
		m.cmp.Invalidate()
	}
	return count
}

func (m *Mutator) wrapNode(n *html.Node, id string) int {
	switch n.Type {
	case html.TextNode:
		if n.Parent == nil || IsBlank(n.Data) || m.IsMarker(n.Parent, id) {
			return 0
		}
		marker := m.newMarker(id)
		parent := n.Parent
		parent.InsertBefore(marker, n)
		parent.RemoveChild(n)
		marker.AppendChild(n)
		return 1
	case html.ElementNode:
		if skipWrap(n) {
			return 0
		}
		var kids []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			kids = append(kids, c)
		}
		count := 0
		for _, c := range kids {
			count += m.wrapNode(c, id)
		}
		return count
	default:
		return 0
	}
}

func skipWrap(n *html.Node) bool {
	switch strings.ToLower(n.Data) {
	case "script", "style", "template", "textarea":
		return true
	}
	return false
}

func (m *Mutator) newMarker(id string) *html.Node {
	attrs := []html.Attribute{{Key: m.style.Attr, Val: id}}
	if m.style.Class != "" {
		attrs = append(attrs, html.Attribute{Key: "class", Val: m.style.Class})
	}
	return &html.Node{Type: html.ElementNode, Data: m.style.Tag, DataAtom: atom.Lookup([]byte(m.style.Tag)), Attr: attrs}
}

// IsMarker reports whether n is a marker element. An empty id matches any marker.
func (m *Mutator) IsMarker(n *html.Node, id string) bool {
	if !IsElement(n) || !strings.EqualFold(n.Data, m.style.Tag) {
		return false
	}
	v, ok := Attr(n, m.style.Attr)
	if !ok {
		return false
	}
	return id == "" || v == id
}

// Markers lists marker elements under root carrying id.
func (m *Mutator) Markers(root *html.Node, id string) []*html.Node {
	var out []*html.Node
	for n := range Walk(root) {
		if m.IsMarker(n, id) {
			out = append(out, n)
		}
	}
	return out
}

// Unwrap removes every marker tagged id under root, moving its children
// into its place. Adjacent text nodes are left as they are.
func (m *Mutator) Unwrap(root *html.Node, id string) int {
	markers := m.Markers(root, id)
	for _, mk := range markers {
		unwrapNode(mk)
	}
	if len(markers) > 0 {
		m.cmp.Invalidate()
	}
	return len(markers)
}

func unwrapNode(marker *html.Node) {
	parent := marker.Parent
	if parent == nil {
		return
	}
	for c := marker.FirstChild; c != nil; {
		next := c.NextSibling
		marker.RemoveChild(c)
		parent.InsertBefore(c, marker)
		c = next
	}
	parent.RemoveChild(marker)
}

// Rejoin merges split pairs back together, newest first, when the halves
// are still adjacent text siblings.
func (m *Mutator) Rejoin(splits []Split) int {
	merged := 0
	for i := len(splits) - 1; i >= 0; i-- {
		s := splits[i]
		if !IsText(s.Left) || !IsText(s.Right) || s.Left.Parent == nil {
			continue
		}
		if s.Left.NextSibling != s.Right {
			continue
		}
		s.Left.Data += s.Right.Data
		s.Left.Parent.RemoveChild(s.Right)
		merged++
	}
	if merged > 0 {
		m.cmp.Invalidate()
	}
	return merged
}

// Mark isolates r under root and wraps what it covers in markers tagged id.
func (m *Mutator) Mark(root *html.Node, r Range, id string) Marking {
	mk := Marking{ID: id, Root: root}
	first, last, splits, ok := m.Isolate(root, r)
	mk.Splits = splits
	if !ok {
		return mk
	}
	groups := m.ContainedNodes(Range{StartNode: first, EndNode: last, EndOffset: RuneLen(last)})
	mk.Groups = len(groups)
	for _, g := range groups {
		mk.Wrapped += m.Wrap(g, id)
	}
	return mk
}

// Clear undoes a Mark: markers are unwrapped and its split points rejoined.
func (m *Mutator) Clear(mk Marking) int {
	if mk.Root == nil {
		return 0
	}
	removed := m.Unwrap(mk.Root, mk.ID)
	m.Rejoin(mk.Splits)
	return removed
}
