package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/quick"
	"github.com/aymanbagabas/go-udiff"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/unkn0wn-root/textanchor/internal/anchor"
	"github.com/unkn0wn-root/textanchor/internal/dom"
	"github.com/unkn0wn-root/textanchor/internal/highlight"
	"github.com/unkn0wn-root/textanchor/internal/store"
	"github.com/unkn0wn-root/textanchor/internal/util"
)

const previewWidth = 60

type printer struct {
	w     io.Writer
	plain bool

	label lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
	mark  lipgloss.Style
	dim   lipgloss.Style
}

func newPrinter(w io.Writer, plain bool) *printer {
	r := lipgloss.NewRenderer(w)
	if plain {
		r.SetColorProfile(termenv.Ascii)
	}
	return &printer{
		w:     w,
		plain: plain,
		label: r.NewStyle().Bold(true),
		ok:    r.NewStyle().Foreground(lipgloss.Color("42")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("203")),
		mark:  r.NewStyle().Reverse(true),
		dim:   r.NewStyle().Faint(true),
	}
}

func (p *printer) outcome(step string, out highlight.Outcome) {
	status := p.ok.Render(out.State.String())
	if !out.OK() {
		status = p.fail.Render(fmt.Sprintf("%s (%s)", out.State, out.Reason))
	}
	line := fmt.Sprintf("%s %s", p.label.Render(step+":"), status)
	if out.Range.Len() > 0 {
		line += " " + out.Range.String()
	}
	if out.Wrapped > 0 {
		line += p.dim.Render(fmt.Sprintf(" wrapped=%d", out.Wrapped))
	}
	if out.Degraded {
		line += p.fail.Render(" degraded")
	}
	fmt.Fprintln(p.w, line)
}

// textblock prints the container's text with r picked out.
func (p *printer) textblock(doc *dom.Document, key string, r anchor.OffsetRange) {
	n, ok := doc.Container(key)
	if !ok {
		return
	}
	text := dom.TextContent(n)
	total := dom.TextLen(n)
	start, end := min(max(r.Start, 0), total), min(max(r.End, 0), total)
	if start > end {
		start = end
	}
	before := dom.RuneSlice(text, 0, start)
	inside := dom.RuneSlice(text, start, end)
	after := dom.RuneSlice(text, end, total)
	fmt.Fprintf(p.w, "  %s %s%s%s\n", p.dim.Render(key+":"), oneLine(before), p.mark.Render(oneLine(inside)), oneLine(after))
}

// listing prints every textblock with a short preview, then the stored
// comment ranges.
func (p *printer) listing(doc *dom.Document, st *store.Store) {
	keys := util.SortedKeys(doc.Keys())

	fmt.Fprintln(p.w, p.label.Render("textblocks:"))
	if len(keys) == 0 {
		fmt.Fprintln(p.w, p.dim.Render("  (none)"))
	}
	for _, key := range keys {
		n, _ := doc.Container(key)
		preview := runewidth.Truncate(flatten(dom.TextContent(n)), previewWidth, "…")
		fmt.Fprintf(p.w, "  %-12s %4d  %s\n", key, dom.TextLen(n), preview)
	}

	comments := st.Comments()
	if len(comments) == 0 {
		return
	}
	fmt.Fprintln(p.w, p.label.Render("comments:"))
	for _, e := range comments {
		tb := e.TextblockKey
		if tb == "" {
			tb = "?"
		}
		fmt.Fprintf(p.w, "  %-12s %-12s %s\n", e.CommentKey, tb, e.Range)
	}
}

func (p *printer) diff(name, before, after string) {
	if before == after {
		fmt.Fprintln(p.w, p.dim.Render("no changes"))
		return
	}
	fmt.Fprint(p.w, udiff.Unified(name, name+" (marked)", before, after))
}

func (p *printer) markup(markup string) {
	if p.plain {
		fmt.Fprintln(p.w, markup)
		return
	}
	if err := quick.Highlight(p.w, markup+"\n", "html", "terminal256", "monokai"); err != nil {
		fmt.Fprintln(p.w, markup)
	}
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// oneLine keeps rune positions stable apart from CRLF pairs.
func oneLine(s string) string { return lineBreaks.Replace(s) }

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
