package anchor

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/unkn0wn-root/textanchor/internal/dom"
	"github.com/unkn0wn-root/textanchor/internal/errdef"
)

var (
	ErrInvalidSelection = errors.New("selection is empty or whitespace only")
	ErrDisconnected     = errors.New("selection is outside the container")
	ErrEmptyContainer   = errors.New("container has no text")
)

// OffsetRange anchors a span by code point offsets into the concatenated
// text of a container, together with the literal text it covered.
type OffsetRange struct {
	Start int    `json:"start" yaml:"start" toml:"start"`
	End   int    `json:"end"   yaml:"end"   toml:"end"`
	Text  string `json:"text"  yaml:"text"  toml:"text"`
}

func (r OffsetRange) Len() int { return r.End - r.Start }

func (r OffsetRange) IsZero() bool { return r == OffsetRange{} }

// Valid checks the shape of r without a container: ordered, non-negative
// offsets and text whose length matches the span.
func (r OffsetRange) Valid() bool {
	if r.Start < 0 || r.End < r.Start {
		return false
	}
	return utf8.RuneCountInString(r.Text) == r.Len()
}

func (r OffsetRange) String() string {
	return fmt.Sprintf("[%d,%d) %q", r.Start, r.End, r.Text)
}

// Restored is the result of resolving an OffsetRange against a container.
type Restored struct {
	Range dom.Range
	// Clamped is set when the stored end ran past the container's text.
	Clamped bool
	// Mismatch is set when the text now at the offsets differs from the stored text.
	Mismatch bool
	Text     string
}

func (r Restored) Degraded() bool { return r.Clamped || r.Mismatch }

// Codec converts between live ranges and offset ranges inside a container.
type Codec struct {
	cmp *dom.Comparator
}

func NewCodec(cmp *dom.Comparator) *Codec {
	if cmp == nil {
		cmp = dom.NewComparator(nil)
	}
	return &Codec{cmp: cmp}
}

// Normalize resolves both boundaries of live to text points inside container
// and orders them. Backwards selections are flipped.
func (c *Codec) Normalize(container *html.Node, live dom.Range) (dom.Range, error) {
	if live.IsZero() || container == nil {
		return dom.Range{}, errdef.Wrap(errdef.CodeSelection, ErrInvalidSelection, "normalize")
	}
	if !dom.Within(container, live.StartNode) || !dom.Within(container, live.EndNode) {
		return dom.Range{}, errdef.Wrap(errdef.CodeDisconnected, ErrDisconnected, "normalize")
	}
	start, ok := dom.TextPoint(container, live.Start())
	if !ok {
		return dom.Range{}, errdef.Wrap(errdef.CodeSelection, ErrEmptyContainer, "normalize start")
	}
	end, ok := dom.TextPoint(container, live.End())
	if !ok {
		return dom.Range{}, errdef.Wrap(errdef.CodeSelection, ErrEmptyContainer, "normalize end")
	}
	order, ok := c.cmp.ComparePoints(start, end)
	if !ok {
		return dom.Range{}, errdef.Wrap(errdef.CodeDisconnected, ErrDisconnected, "order boundaries")
	}
	if order > 0 {
		start, end = end, start
	}
	return dom.RangeOf(start, end), nil
}

// Capture measures live inside container. Empty or whitespace-only
// selections fail with ErrInvalidSelection.
func (c *Codec) Capture(container *html.Node, live dom.Range) (OffsetRange, error) {
	r, err := c.Normalize(container, live)
	if err != nil {
		return OffsetRange{}, err
	}
	start := -1
	for seg := range dom.Segments(container) {
		if seg.Node == r.StartNode {
			start = seg.Start + r.StartOffset
			break
		}
	}
	if start < 0 {
		return OffsetRange{}, errdef.Wrap(errdef.CodeDisconnected, ErrDisconnected, "locate start")
	}
	text := r.Text(container)
	if dom.IsBlank(text) {
		return OffsetRange{}, errdef.Wrap(errdef.CodeSelection, ErrInvalidSelection, "capture")
	}
	return OffsetRange{
		Start: start,
		End:   start + utf8.RuneCountInString(text),
		Text:  text,
	}, nil
}

// Restore resolves r against the container's current text. When the text
// has become shorter than r.End the range is clamped and flagged rather
// than rejected.
func (c *Codec) Restore(container *html.Node, r OffsetRange) (Restored, error) {
	if container == nil {
		return Restored{}, errdef.Wrap(errdef.CodeRestore, ErrEmptyContainer, "restore")
	}
	if r.Start < 0 || r.End < r.Start {
		return Restored{}, errdef.New(errdef.CodeRestore, "restore: malformed range %s", r)
	}

	var segs []dom.Segment
	total := 0
	for seg := range dom.Segments(container) {
		segs = append(segs, seg)
		total = seg.End()
	}
	if len(segs) == 0 || total == 0 {
		return Restored{}, errdef.Wrap(errdef.CodeRestore, ErrEmptyContainer, "restore")
	}

	out := Restored{}
	start, end := r.Start, r.End
	if end > total {
		out.Clamped = true
		end = total
		start = min(start, end)
	}
	if start == end {
		return out, errdef.Wrap(errdef.CodeRestore, ErrInvalidSelection, "restore %s against %d code points", r, total)
	}

	startPt, endPt := locate(segs, start, true), locate(segs, end, false)
	out.Range = dom.RangeOf(startPt, endPt)
	out.Text = out.Range.Text(container)
	out.Mismatch = r.Text != "" && out.Text != r.Text && !out.Clamped
	return out, nil
}

// locate maps a container offset to a text point. Start points prefer the
// beginning of the following node, end points the end of the preceding one.
func locate(segs []dom.Segment, offset int, isStart bool) dom.Point {
	for _, seg := range segs {
		if isStart && offset < seg.End() {
			return dom.Point{Node: seg.Node, Offset: offset - seg.Start}
		}
		if !isStart && offset <= seg.End() && seg.Len > 0 {
			return dom.Point{Node: seg.Node, Offset: offset - seg.Start}
		}
	}
	last := segs[len(segs)-1]
	return dom.Point{Node: last.Node, Offset: last.Len}
}

// Offset returns the container offset of a text point.
func (c *Codec) Offset(container *html.Node, p dom.Point) (int, bool) {
	for seg := range dom.Segments(container) {
		if seg.Node == p.Node {
			return seg.Start + max(0, min(p.Offset, seg.Len)), true
		}
	}
	return 0, false
}
