package wordfit

import (
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/net/html"

	"github.com/unkn0wn-root/textanchor/internal/dom"
)

// Fitter snaps range boundaries to word edges without crossing hard breaks.
type Fitter struct {
	classes Classes
	breaks  dom.Breaks
	raw     bool
}

type Option func(*Fitter)

func WithClasses(c Classes) Option {
	return func(f *Fitter) { f.classes = c }
}

func WithBreaks(b dom.Breaks) Option {
	return func(f *Fitter) { f.breaks = b }
}

// WithRaw disables fitting for callers that supply word-aligned ranges.
func WithRaw(raw bool) Option {
	return func(f *Fitter) { f.raw = raw }
}

func New(opts ...Option) *Fitter {
	f := &Fitter{
		classes: DefaultClasses(),
		breaks:  dom.NewBreaks(dom.DefaultHardBreaks),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fitter) Raw() bool { return f.raw }

// Fit adjusts both ends of r, which must hold text points inside container
// in document order. The result may be collapsed when nothing word-like
// was selected.
func (f *Fitter) Fit(container *html.Node, r dom.Range) dom.Range {
	if f.raw || !dom.IsText(r.StartNode) || !dom.IsText(r.EndNode) {
		return r
	}
	start, ok := f.cursorAt(container, r.Start())
	if !ok {
		return r
	}
	end, ok := f.cursorAt(container, r.End())
	if !ok || start.pos >= end.pos {
		return r
	}

	f.fitEnd(&end, start.pos)
	f.fitStart(&start, end.pos)
	if start.pos < end.pos {
		alignCluster(&start, false)
		alignCluster(&end, true)
	}
	if start.pos >= end.pos {
		return dom.RangeOf(start.point(), start.point())
	}
	return dom.RangeOf(start.point(), end.point())
}

func (f *Fitter) cursorAt(container *html.Node, p dom.Point) (cursor, bool) {
	for seg := range dom.Segments(container) {
		if seg.Node == p.Node {
			off := max(0, min(p.Offset, seg.Len))
			return cursor{
				root:   container,
				breaks: f.breaks,
				node:   p.Node,
				off:    off,
				pos:    seg.Start + off,
			}, true
		}
	}
	return cursor{}, false
}

func isDigit(r rune, ok bool) bool {
	return ok && unicode.IsDigit(r)
}

func (f *Fitter) class(r rune, ok bool) Class {
	if !ok {
		return Other
	}
	return f.classes.Classify(r)
}

func (f *Fitter) fitEnd(end *cursor, floor int) {
	switch f.class(end.before()) {
	case Word:
		f.extendForward(end)
	case Punct:
		if isDigit(end.after()) {
			f.extendForward(end)
			return
		}
		f.retractEnd(end, floor)
	default:
		f.retractEnd(end, floor)
	}
}

func (f *Fitter) fitStart(start *cursor, ceil int) {
	switch f.class(start.after()) {
	case Word:
		f.extendBackward(start)
	case Punct:
		if isDigit(start.before()) {
			f.extendBackward(start)
			return
		}
		f.retractStart(start, ceil)
	default:
		f.retractStart(start, ceil)
	}
}

func (f *Fitter) extendForward(c *cursor) {
	for {
		switch f.class(c.after()) {
		case Word:
			c.forward()
		case Punct:
			if !isDigit(c.peekAfter()) {
				return
			}
			c.forward()
		default:
			return
		}
	}
}

func (f *Fitter) extendBackward(c *cursor) {
	for {
		switch f.class(c.before()) {
		case Word:
			c.back()
		case Punct:
			if !isDigit(c.peekBefore()) {
				return
			}
			c.back()
		default:
			return
		}
	}
}

func (f *Fitter) retractEnd(c *cursor, floor int) {
	for c.pos > floor {
		if f.class(c.before()) == Word {
			return
		}
		if !c.back() {
			return
		}
	}
}

func (f *Fitter) retractStart(c *cursor, ceil int) {
	for c.pos < ceil {
		if f.class(c.after()) == Word {
			return
		}
		if !c.forward() {
			return
		}
	}
}

// alignCluster moves c outward to the nearest grapheme cluster edge of its
// text node so a boundary never splits a user-perceived character.
func alignCluster(c *cursor, outwardForward bool) {
	text := c.node.Data
	if c.off <= 0 || c.off >= dom.RuneLen(c.node) {
		return
	}
	g := uniseg.NewGraphemes(text)
	edge := 0
	for g.Next() {
		next := edge + len(g.Runes())
		if c.off == edge || c.off == next {
			return
		}
		if c.off > edge && c.off < next {
			target := edge
			if outwardForward {
				target = next
			}
			c.pos += target - c.off
			c.off = target
			return
		}
		edge = next
	}
}
