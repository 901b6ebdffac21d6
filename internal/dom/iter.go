package dom

import (
	"iter"

	"golang.org/x/net/html"
)

// Walk yields root and all of its descendants in document order.
// Each call of the returned sequence starts a fresh traversal. The tree must
// not be restructured while a traversal is in progress.
func Walk(root *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		if root == nil {
			return
		}
		stack := []*html.Node{root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(n) {
				return
			}
			for c := n.LastChild; c != nil; c = c.PrevSibling {
				stack = append(stack, c)
			}
		}
	}
}

// TextNodes yields the text nodes under root in document order.
func TextNodes(root *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		for n := range Walk(root) {
			if n.Type != html.TextNode {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

// Segment is a text node together with the code point offset at which it
// starts inside the enclosing container.
type Segment struct {
	Node  *html.Node
	Start int
	Len   int
}

func (s Segment) End() int { return s.Start + s.Len }

// Segments yields every text node under root with its running offset.
func Segments(root *html.Node) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		acc := 0
		for n := range TextNodes(root) {
			l := RuneLen(n)
			if !yield(Segment{Node: n, Start: acc, Len: l}) {
				return
			}
			acc += l
		}
	}
}
