package anchor

import (
	"golang.org/x/net/html"

	"github.com/unkn0wn-root/textanchor/internal/dom"
	"github.com/unkn0wn-root/textanchor/internal/errdef"
)

// SelectionBackend reads the host's current selection as a live range.
type SelectionBackend interface {
	Name() string
	Selection(container *html.Node) (dom.Range, bool)
}

// BoundarySelector is implemented by hosts that track a selection as
// anchor and focus boundary points.
type BoundarySelector interface {
	SelectionBoundaries() (anchor, focus dom.Point, ok bool)
}

// OffsetSelector is implemented by hosts that only know the selection as
// flat character offsets inside the active container.
type OffsetSelector interface {
	SelectionOffsets() (start, end int, ok bool)
}

type boundaryBackend struct {
	host BoundarySelector
}

func NewBoundaryBackend(host BoundarySelector) SelectionBackend {
	return &boundaryBackend{host: host}
}

func (b *boundaryBackend) Name() string { return "boundary" }

func (b *boundaryBackend) Selection(*html.Node) (dom.Range, bool) {
	anchor, focus, ok := b.host.SelectionBoundaries()
	if !ok || anchor.Node == nil || focus.Node == nil {
		return dom.Range{}, false
	}
	return dom.RangeOf(anchor, focus), true
}

type offsetBackend struct {
	host  OffsetSelector
	codec *Codec
}

func NewOffsetBackend(host OffsetSelector, codec *Codec) SelectionBackend {
	if codec == nil {
		codec = NewCodec(nil)
	}
	return &offsetBackend{host: host, codec: codec}
}

func (b *offsetBackend) Name() string { return "offset" }

func (b *offsetBackend) Selection(container *html.Node) (dom.Range, bool) {
	start, end, ok := b.host.SelectionOffsets()
	if !ok {
		return dom.Range{}, false
	}
	if start > end {
		start, end = end, start
	}
	restored, err := b.codec.Restore(container, OffsetRange{Start: start, End: end})
	if err != nil {
		return dom.Range{}, false
	}
	return restored.Range, true
}

// Probe picks a backend once from what the host can do. Boundary points win
// over flat offsets when a host offers both.
func Probe(host any, codec *Codec) (SelectionBackend, error) {
	switch h := host.(type) {
	case BoundarySelector:
		return NewBoundaryBackend(h), nil
	case OffsetSelector:
		return NewOffsetBackend(h, codec), nil
	default:
		return nil, errdef.New(errdef.CodeSelection, "host %T exposes no selection capability", host)
	}
}
