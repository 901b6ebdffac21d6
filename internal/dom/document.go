package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/unkn0wn-root/textanchor/internal/errdef"
)

const DefaultContainerAttr = "data-textblock"

// Document indexes the containers of a parsed page by their key attribute.
type Document struct {
	Root *html.Node
	attr string
}

func NewDocument(root *html.Node, containerAttr string) *Document {
	if strings.TrimSpace(containerAttr) == "" {
		containerAttr = DefaultContainerAttr
	}
	return &Document{Root: root, attr: containerAttr}
}

func ParseDocument(r io.Reader, containerAttr string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeTree, err, "parse document")
	}
	return NewDocument(root, containerAttr), nil
}

// ParseFragment parses markup as the children of a <body> and returns a
// detached <div> holding them, handy for single paragraphs.
func ParseFragment(markup string) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeTree, err, "parse fragment")
	}
	holder := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		holder.AppendChild(n)
	}
	return holder, nil
}

func (d *Document) ContainerAttr() string { return d.attr }

// Container finds the element whose key attribute equals key.
func (d *Document) Container(key string) (*html.Node, bool) {
	if d == nil || key == "" {
		return nil, false
	}
	for n := range Walk(d.Root) {
		if !IsElement(n) {
			continue
		}
		if v, ok := Attr(n, d.attr); ok && v == key {
			return n, true
		}
	}
	return nil, false
}

// Keys lists container keys in document order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	var keys []string
	for n := range Walk(d.Root) {
		if !IsElement(n) {
			continue
		}
		if v, ok := Attr(n, d.attr); ok && v != "" {
			keys = append(keys, v)
		}
	}
	return keys
}

// KeyOf returns the key of the nearest container enclosing n.
func (d *Document) KeyOf(n *html.Node) (string, bool) {
	for p := n; p != nil; p = p.Parent {
		if !IsElement(p) {
			continue
		}
		if v, ok := Attr(p, d.attr); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func Render(w io.Writer, n *html.Node) error {
	if err := html.Render(w, n); err != nil {
		return errdef.Wrap(errdef.CodeTree, err, "render")
	}
	return nil
}

// RenderString renders n, or only its children when inner is true.
func RenderString(n *html.Node, inner bool) string {
	var buf bytes.Buffer
	if !inner {
		_ = html.Render(&buf, n)
		return buf.String()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}
