// Package dom holds the content-tree primitives: ordering, text iteration,
// live ranges and the in-place mutations used to mark highlighted spans.
//
// Content nodes are *html.Node values. Offsets are always counted in
// Unicode code points, never bytes.
package dom

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

func IsText(n *html.Node) bool {
	return n != nil && n.Type == html.TextNode
}

func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// RuneLen returns the code point length of a text node, 0 for anything else.
func RuneLen(n *html.Node) int {
	if !IsText(n) {
		return 0
	}
	return utf8.RuneCountInString(n.Data)
}

// ByteOffset converts a code point offset inside s to a byte offset, clamped to len(s).
func ByteOffset(s string, runes int) int {
	if runes <= 0 {
		return 0
	}
	i := 0
	for pos := range s {
		if i == runes {
			return pos
		}
		i++
	}
	return len(s)
}

// RuneSlice returns s[start:end] in code points, clamping both ends.
func RuneSlice(s string, start, end int) string {
	if end < start {
		end = start
	}
	return s[ByteOffset(s, start):ByteOffset(s, end)]
}

// IsBlank reports whether s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}

// TextContent concatenates every text node under root in document order.
func TextContent(root *html.Node) string {
	var b strings.Builder
	for n := range TextNodes(root) {
		b.WriteString(n.Data)
	}
	return b.String()
}

// TextLen is the code point length of TextContent(root).
func TextLen(root *html.Node) int {
	total := 0
	for n := range TextNodes(root) {
		total += RuneLen(n)
	}
	return total
}

// Attr returns the value of key on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Within reports whether n is root or a descendant of root.
func Within(root, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

// ChildIndex returns the position of n among its siblings.
func ChildIndex(n *html.Node) int {
	idx := 0
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		idx++
	}
	return idx
}

// ChildAt returns the idx-th child of n or nil.
func ChildAt(n *html.Node, idx int) *html.Node {
	if n == nil || idx < 0 {
		return nil
	}
	c := n.FirstChild
	for ; c != nil && idx > 0; idx-- {
		c = c.NextSibling
	}
	return c
}
