package dom

import (
	"testing"

	"golang.org/x/net/html"
)

func paragraph(t *testing.T, markup string) *html.Node {
	t.Helper()
	holder, err := ParseFragment(markup)
	if err != nil {
		t.Fatalf("parse fragment: %v", err)
	}
	for c := holder.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) {
			return c
		}
	}
	t.Fatalf("no element in %q", markup)
	return nil
}

func textNode(t *testing.T, root *html.Node, data string) *html.Node {
	t.Helper()
	for n := range TextNodes(root) {
		if n.Data == data {
			return n
		}
	}
	t.Fatalf("text node %q not found", data)
	return nil
}

func element(t *testing.T, root *html.Node, tag string) *html.Node {
	t.Helper()
	for n := range Walk(root) {
		if IsElement(n) && n.Data == tag {
			return n
		}
	}
	t.Fatalf("element %q not found", tag)
	return nil
}
