package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// DefaultHardBreaks are the elements that end a run of inline text.
var DefaultHardBreaks = []string{
	"address", "article", "aside", "blockquote", "br", "dd", "div", "dl", "dt",
	"figcaption", "figure", "footer", "h1", "h2", "h3", "h4", "h5", "h6",
	"header", "hr", "li", "ol", "p", "pre", "section", "table", "td", "th",
	"tr", "ul",
}

// Breaks is a set of element names that text walking must not cross.
type Breaks map[string]struct{}

func NewBreaks(tags []string) Breaks {
	b := make(Breaks, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			b[t] = struct{}{}
		}
	}
	return b
}

func (b Breaks) Has(n *html.Node) bool {
	if len(b) == 0 || !IsElement(n) {
		return false
	}
	_, ok := b[strings.ToLower(n.Data)]
	return ok
}

// NextTextNode returns the first text node after n in document order that
// lies inside boundary. It returns nil when the walk would enter or leave
// a hard-break element, or when boundary is exhausted.
func NextTextNode(n, boundary *html.Node, breaks Breaks) *html.Node {
	if n == nil || n == boundary {
		return nil
	}
	cur := n
	descend := false
	for {
		var next *html.Node
		if descend && cur.FirstChild != nil {
			next = cur.FirstChild
		} else {
			for cur != boundary && cur.NextSibling == nil {
				cur = cur.Parent
				if cur == nil || cur == boundary {
					return nil
				}
				if breaks.Has(cur) {
					return nil
				}
			}
			if cur == boundary {
				return nil
			}
			next = cur.NextSibling
		}
		if breaks.Has(next) {
			return nil
		}
		if IsText(next) {
			return next
		}
		cur = next
		descend = true
	}
}

// PreviousTextNode mirrors NextTextNode walking towards the start of boundary.
func PreviousTextNode(n, boundary *html.Node, breaks Breaks) *html.Node {
	if n == nil || n == boundary {
		return nil
	}
	cur := n
	descend := false
	for {
		var prev *html.Node
		if descend && cur.LastChild != nil {
			prev = cur.LastChild
		} else {
			for cur != boundary && cur.PrevSibling == nil {
				cur = cur.Parent
				if cur == nil || cur == boundary {
					return nil
				}
				if breaks.Has(cur) {
					return nil
				}
			}
			if cur == boundary {
				return nil
			}
			prev = cur.PrevSibling
		}
		if breaks.Has(prev) {
			return nil
		}
		if IsText(prev) {
			return prev
		}
		cur = prev
		descend = true
	}
}
