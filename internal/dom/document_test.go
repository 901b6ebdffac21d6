package dom

import (
	"strings"
	"testing"

	"golang.org/x/net/html/atom"
)

func TestParseFragment(t *testing.T) {
	holder, err := ParseFragment(`<p data-textblock="p1">Hello <em>brave</em> world.</p><p>second</p>`)
	if err != nil {
		t.Fatalf("ParseFragment: %v", err)
	}
	if holder.DataAtom != atom.Div || holder.Parent != nil {
		t.Fatalf("expected detached div holder, got %q", holder.Data)
	}
	var tags []string
	for c := holder.FirstChild; c != nil; c = c.NextSibling {
		tags = append(tags, c.Data)
	}
	if strings.Join(tags, ",") != "p,p" {
		t.Fatalf("expected two paragraphs, got %v", tags)
	}
	if got := TextContent(holder.FirstChild); got != "Hello brave world." {
		t.Fatalf("expected paragraph text, got %q", got)
	}
	if got := RenderString(holder, true); !strings.HasPrefix(got, `<p data-textblock="p1">Hello <em>brave</em>`) {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestParseFragmentPlainText(t *testing.T) {
	holder, err := ParseFragment("just text")
	if err != nil {
		t.Fatalf("ParseFragment: %v", err)
	}
	if got := TextContent(holder); got != "just text" {
		t.Fatalf("expected text child, got %q", got)
	}
}

func TestDocumentContainer(t *testing.T) {
	doc, err := ParseDocument(strings.NewReader(`<p data-textblock="a">one</p><p data-textblock="b">two</p>`), "")
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	n, ok := doc.Container("b")
	if !ok || TextContent(n) != "two" {
		t.Fatalf("expected container b")
	}
	if _, ok := doc.Container("zz"); ok {
		t.Fatalf("expected unknown key to be missing")
	}
	if key, ok := doc.KeyOf(n.FirstChild); !ok || key != "b" {
		t.Fatalf("expected KeyOf to find b, got %q", key)
	}
}

func TestWithin(t *testing.T) {
	p := paragraph(t, `<p>a <em>b</em></p>`)
	em := element(t, p, "em")
	if !Within(p, em.FirstChild) || !Within(p, p) {
		t.Fatalf("expected descendants to be within")
	}
	other := paragraph(t, `<p>x</p>`)
	if Within(p, other.FirstChild) {
		t.Fatalf("expected foreign node not to be within")
	}
}
