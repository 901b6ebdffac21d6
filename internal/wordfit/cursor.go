package wordfit

import (
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/unkn0wn-root/textanchor/internal/dom"
)

// cursor is a position between two code points that can step across text
// nodes. pos is the container offset and is kept in step with node/off.
type cursor struct {
	root   *html.Node
	breaks dom.Breaks
	node   *html.Node
	off    int
	pos    int
}

// runeAt decodes the code point starting at rune offset i of n.
func runeAt(n *html.Node, i int) rune {
	if i < 0 {
		return 0
	}
	b := dom.ByteOffset(n.Data, i)
	if b >= len(n.Data) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(n.Data[b:])
	return r
}

// runeBefore decodes the code point ending at rune offset i of n.
func runeBefore(n *html.Node, i int) rune {
	if i <= 0 {
		return 0
	}
	r, size := utf8.DecodeLastRuneInString(n.Data[:dom.ByteOffset(n.Data, i)])
	if size == 0 {
		return 0
	}
	return r
}

func (c *cursor) before() (rune, bool) {
	node, off := c.node, c.off
	for off <= 0 {
		node = dom.PreviousTextNode(node, c.root, c.breaks)
		if node == nil {
			return 0, false
		}
		off = dom.RuneLen(node)
	}
	return runeBefore(node, off), true
}

func (c *cursor) after() (rune, bool) {
	node, off := c.node, c.off
	for off >= dom.RuneLen(node) {
		node = dom.NextTextNode(node, c.root, c.breaks)
		if node == nil {
			return 0, false
		}
		off = 0
	}
	return runeAt(node, off), true
}

func (c *cursor) back() bool {
	for c.off <= 0 {
		prev := dom.PreviousTextNode(c.node, c.root, c.breaks)
		if prev == nil {
			return false
		}
		c.node, c.off = prev, dom.RuneLen(prev)
	}
	c.off--
	c.pos--
	return true
}

func (c *cursor) forward() bool {
	for c.off >= dom.RuneLen(c.node) {
		next := dom.NextTextNode(c.node, c.root, c.breaks)
		if next == nil {
			return false
		}
		c.node, c.off = next, 0
	}
	c.off++
	c.pos++
	return true
}

// peekAfter returns the rune one past the one after the cursor.
func (c cursor) peekAfter() (rune, bool) {
	if !c.forward() {
		return 0, false
	}
	return c.after()
}

// peekBefore returns the rune one before the one before the cursor.
func (c cursor) peekBefore() (rune, bool) {
	if !c.back() {
		return 0, false
	}
	return c.before()
}

func (c cursor) point() dom.Point {
	return dom.Point{Node: c.node, Offset: c.off}
}
