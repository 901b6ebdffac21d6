// Package highlight drives selection capture, commit and recall for the
// textblocks of one document.
package highlight

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/unkn0wn-root/textanchor/internal/anchor"
	"github.com/unkn0wn-root/textanchor/internal/dom"
	"github.com/unkn0wn-root/textanchor/internal/errdef"
	"github.com/unkn0wn-root/textanchor/internal/sink"
	"github.com/unkn0wn-root/textanchor/internal/store"
	"github.com/unkn0wn-root/textanchor/internal/telemetry"
	"github.com/unkn0wn-root/textanchor/internal/wordfit"
)

// Resolver maps a comment to the textblock that owns it.
type Resolver interface {
	TextblockFor(commentKey string) (string, bool)
}

// Controller owns every marker it inserts and removes them again before it
// wraps anything new in the same textblock.
type Controller struct {
	doc      *dom.Document
	backend  anchor.SelectionBackend
	cmp      *dom.Comparator
	codec    *anchor.Codec
	fitter   *wordfit.Fitter
	mutator  *dom.Mutator
	store    *store.Store
	resolver Resolver
	style    dom.MarkerStyle
	sink     sink.Sink
	log      logr.Logger
	tel      telemetry.Instrumenter
	newID    func() string
	now      func() time.Time

	state     State
	block     string
	container *html.Node
	captured  anchor.OffsetRange

	committed *dom.Marking
	recalled  *dom.Marking
	recallKey string
}

type Option func(*Controller)

func WithLogger(l logr.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func WithInstrumenter(i telemetry.Instrumenter) Option {
	return func(c *Controller) {
		if i != nil {
			c.tel = i
		}
	}
}

func WithSink(s sink.Sink) Option {
	return func(c *Controller) {
		if s != nil {
			c.sink = s
		}
	}
}

func WithFitter(f *wordfit.Fitter) Option {
	return func(c *Controller) {
		if f != nil {
			c.fitter = f
		}
	}
}

func WithMarkerStyle(style dom.MarkerStyle) Option {
	return func(c *Controller) { c.style = style }
}

// WithResolver overrides the store as the comment to textblock lookup.
func WithResolver(r Resolver) Option {
	return func(c *Controller) {
		if r != nil {
			c.resolver = r
		}
	}
}

func WithIDs(next func() string) Option {
	return func(c *Controller) {
		if next != nil {
			c.newID = next
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a controller over doc. Offsets, markers and the fitter share
// one comparator backed by a document order index.
func New(doc *dom.Document, backend anchor.SelectionBackend, st *store.Store, opts ...Option) *Controller {
	if st == nil {
		st = store.New()
	}
	cmp := dom.NewComparator(dom.NewIndex(doc.Root))
	c := &Controller{
		doc:     doc,
		backend: backend,
		cmp:     cmp,
		codec:   anchor.NewCodec(cmp),
		fitter:  wordfit.New(),
		style:   dom.DefaultMarkerStyle(),
		store:   st,
		sink:    sink.Discard,
		log:     logr.Discard(),
		tel:     telemetry.Noop(),
		newID:   uuid.NewString,
		now:     time.Now,
	}
	c.resolver = st
	for _, opt := range opts {
		opt(c)
	}
	c.mutator = dom.NewMutator(cmp, c.style)
	return c
}

func (c *Controller) State() State { return c.state }

// Textblock is the key of the textblock the current gesture runs in.
func (c *Controller) Textblock() string { return c.block }

// Captured returns the range captured by the last EndSelection.
func (c *Controller) Captured() (anchor.OffsetRange, bool) {
	if c.state != Captured {
		return anchor.OffsetRange{}, false
	}
	return c.captured, true
}

func (c *Controller) transition(to State) {
	if c.state == to {
		return
	}
	c.log.V(1).Info("transition", "from", c.state, "to", to, "textblock", c.block)
	c.state = to
}

func (c *Controller) abort(reason Reason, err error) Outcome {
	c.log.V(1).Info("selection dropped", "reason", reason, "textblock", c.block, "error", errdef.Message(err))
	c.captured = anchor.OffsetRange{}
	c.container = nil
	c.transition(Idle)
	return Outcome{State: c.state, Reason: reason}
}

// BeginSelection starts a gesture in the textblock keyed key. A committed
// highlight is cleared first so no markers ever overlap.
func (c *Controller) BeginSelection(key string) Outcome {
	if c.state == Committed {
		c.clear()
	}
	if c.state == Cleared {
		c.transition(Idle)
	}
	c.captured = anchor.OffsetRange{}
	c.block = key

	container, ok := c.doc.Container(key)
	if !ok {
		return c.abort(ReasonNoContainer, errdef.New(errdef.CodeSelection, "no textblock %q", key))
	}
	c.container = container
	c.transition(Selecting)
	return Outcome{State: c.state}
}

// EndSelection reads the host selection and captures it. Empty, blank or
// out-of-textblock selections fall back to Idle without touching the store.
func (c *Controller) EndSelection() Outcome {
	if c.state != Selecting {
		return Outcome{State: c.state, Reason: ReasonWrongState}
	}
	c.cmp.Invalidate()
	live, ok := c.backend.Selection(c.container)
	if !ok {
		return c.abort(ReasonInvalidSelection, anchor.ErrInvalidSelection)
	}
	r, err := c.codec.Capture(c.container, live)
	if err != nil {
		return c.abort(reasonFor(err), err)
	}
	c.captured = r
	c.transition(Captured)
	return Outcome{State: c.state, Range: r}
}

// Commit fits the captured range, highlights it and records it under
// commentKey. An empty commentKey parks the range as pending until
// AssignPending names the new comment.
func (c *Controller) Commit(ctx context.Context, commentKey string) Outcome {
	if c.state != Captured {
		return Outcome{State: c.state, Reason: ReasonWrongState}
	}
	c.cmp.Invalidate()
	ctx, span := c.tel.Start(ctx, telemetry.OperationStart{
		Operation:    telemetry.OperationCommit,
		TextblockKey: c.block,
		CommentKey:   commentKey,
		Raw:          c.fitter.Raw(),
	})

	if c.recalled != nil && c.recalled.Root == c.container {
		c.EndRecall()
	}
	final, live, err := c.fit(c.container, c.captured, span)
	if err != nil {
		span.End(telemetry.OperationResult{Aborted: true})
		return c.abort(reasonFor(err), err)
	}

	id := c.newID()
	mk := c.mutator.Mark(c.container, live, id)
	c.committed = &mk
	if mk.Wrapped == 0 {
		c.log.Info("nothing wrapped", "textblock", c.block, "range", final.String())
	}

	c.store.SaveForTextblock(c.block, final)
	if commentKey != "" {
		c.store.TakePending()
		c.store.SaveForComment(commentKey, final)
		c.store.BindComment(commentKey, c.block)
		c.emit(ctx, sink.Commit{
			CommentKey:   commentKey,
			TextblockKey: c.block,
			Range:        final,
			MarkerID:     id,
			At:           c.now(),
		})
	} else {
		c.store.SetPending(store.Pending{TextblockKey: c.block, Range: final})
	}

	c.captured = anchor.OffsetRange{}
	c.transition(Committed)
	span.End(telemetry.OperationResult{Range: final, Wrapped: mk.Wrapped})

	out := Outcome{State: c.state, Range: final, Wrapped: mk.Wrapped, MarkerID: id}
	if mk.Wrapped == 0 {
		out.Reason = ReasonNothingWrapped
	}
	return out
}

// AssignPending files the pending range under commentKey and hands it to
// the sink.
func (c *Controller) AssignPending(ctx context.Context, commentKey string) Outcome {
	entry, ok := c.store.AssignPending(commentKey)
	if !ok {
		return Outcome{State: c.state, Reason: ReasonNotFound}
	}
	marker := ""
	if c.committed != nil {
		marker = c.committed.ID
	}
	c.emit(ctx, sink.Commit{
		CommentKey:   entry.CommentKey,
		TextblockKey: entry.TextblockKey,
		Range:        entry.Range,
		MarkerID:     marker,
		At:           c.now(),
	})
	return Outcome{State: c.state, Range: entry.Range, MarkerID: marker}
}

func (c *Controller) emit(ctx context.Context, commit sink.Commit) {
	if err := c.sink.Emit(ctx, commit); err != nil {
		c.log.Error(err, "emit commit", "comment", commit.CommentKey, "textblock", commit.TextblockKey)
	}
}

// fit restores r in container, fits it to word edges and measures the
// result again.
func (c *Controller) fit(container *html.Node, r anchor.OffsetRange, span telemetry.OperationSpan) (anchor.OffsetRange, dom.Range, error) {
	restored, err := c.codec.Restore(container, r)
	if err != nil {
		return anchor.OffsetRange{}, dom.Range{}, err
	}
	if c.fitter.Raw() {
		return r, restored.Range, nil
	}
	fitted := c.fitter.Fit(container, restored.Range)
	final, err := c.codec.Capture(container, fitted)
	if err != nil {
		return anchor.OffsetRange{}, dom.Range{}, err
	}
	span.RecordFit(r, final)
	return final, fitted, nil
}

// Reset removes every marker this controller inserted. It is the hook for
// explicit reset signals.
func (c *Controller) Reset() Outcome {
	removed := c.clear()
	c.EndRecall()
	return Outcome{State: c.state, Wrapped: removed}
}

// Cancel abandons the gesture in progress along with the session caches,
// as when a comment form is dismissed.
func (c *Controller) Cancel() Outcome {
	c.store.ClearAll()
	c.captured = anchor.OffsetRange{}
	out := c.Reset()
	if c.state != Idle {
		c.transition(Idle)
	}
	out.State = c.state
	return out
}

// ContainerChanged clears the committed highlight when focus moves to a
// different textblock. A gesture still selecting or captured there is
// abandoned.
func (c *Controller) ContainerChanged(key string) Outcome {
	if key == c.block {
		return Outcome{State: c.state}
	}
	if c.state == Selecting || c.state == Captured {
		c.EndRecall()
		return c.abort(ReasonNone, nil)
	}
	return c.Reset()
}

func (c *Controller) clear() int {
	if c.state != Committed {
		return 0
	}
	removed := 0
	if c.committed != nil {
		c.cmp.Invalidate()
		removed = c.mutator.Clear(*c.committed)
		c.committed = nil
	}
	c.transition(Cleared)
	return removed
}

// Recall shows the stored range of commentKey as a transient highlight.
// It never writes to the store. The highlight stays until EndRecall.
func (c *Controller) Recall(ctx context.Context, commentKey string) Outcome {
	c.EndRecall()
	c.cmp.Invalidate()

	_, span := c.tel.Start(ctx, telemetry.OperationStart{
		Operation:  telemetry.OperationRecall,
		CommentKey: commentKey,
		Raw:        c.fitter.Raw(),
	})

	r, ok := c.store.RecallForComment(commentKey)
	if !ok {
		span.End(telemetry.OperationResult{Aborted: true})
		return Outcome{State: c.state, Reason: ReasonNotFound}
	}
	key, ok := c.resolver.TextblockFor(commentKey)
	if !ok {
		span.End(telemetry.OperationResult{Aborted: true})
		return Outcome{State: c.state, Reason: ReasonNoContainer}
	}
	container, ok := c.doc.Container(key)
	if !ok {
		span.End(telemetry.OperationResult{Aborted: true})
		return Outcome{State: c.state, Reason: ReasonNoContainer}
	}
	if c.state == Committed && c.committed != nil && c.committed.Root == container {
		c.clear()
	}

	restored, err := c.codec.Restore(container, r)
	if err != nil {
		c.log.Info("recall failed", "comment", commentKey, "textblock", key, "error", errdef.Message(err))
		span.End(telemetry.OperationResult{Err: err})
		return Outcome{State: c.state, Reason: ReasonRestoreFailed}
	}
	degraded := restored.Degraded()
	if degraded {
		c.log.Info("degraded restore",
			"comment", commentKey,
			"textblock", key,
			"clamped", restored.Clamped,
			"mismatch", restored.Mismatch,
			"stored", r.Text,
			"found", restored.Text,
		)
	}

	live := restored.Range
	shown, err := c.codec.Capture(container, live)
	if err != nil {
		span.End(telemetry.OperationResult{Aborted: true, Degraded: degraded})
		return Outcome{State: c.state, Reason: reasonFor(err), Degraded: degraded}
	}
	if !c.fitter.Raw() {
		fitted := c.fitter.Fit(container, live)
		if final, ferr := c.codec.Capture(container, fitted); ferr == nil {
			span.RecordFit(shown, final)
			shown, live = final, fitted
		}
	}

	id := c.newID()
	mk := c.mutator.Mark(container, live, id)
	c.recalled = &mk
	c.recallKey = commentKey
	if mk.Wrapped == 0 {
		c.log.Info("nothing wrapped", "comment", commentKey, "textblock", key, "range", shown.String())
	}
	span.End(telemetry.OperationResult{Range: shown, Wrapped: mk.Wrapped, Degraded: degraded})

	out := Outcome{State: c.state, Range: shown, Wrapped: mk.Wrapped, Degraded: degraded, MarkerID: id}
	if mk.Wrapped == 0 {
		out.Reason = ReasonNothingWrapped
	}
	return out
}

// Recalling reports the comment whose range is currently shown.
func (c *Controller) Recalling() (string, bool) {
	return c.recallKey, c.recalled != nil
}

// EndRecall removes the transient recall highlight, if any.
func (c *Controller) EndRecall() int {
	if c.recalled == nil {
		return 0
	}
	c.cmp.Invalidate()
	removed := c.mutator.Clear(*c.recalled)
	c.recalled = nil
	c.recallKey = ""
	return removed
}

func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, anchor.ErrDisconnected):
		return ReasonDisconnected
	case errdef.CodeOf(err) == errdef.CodeRestore && !errors.Is(err, anchor.ErrInvalidSelection):
		return ReasonRestoreFailed
	default:
		return ReasonInvalidSelection
	}
}
