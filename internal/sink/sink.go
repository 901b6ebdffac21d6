// Package sink hands committed ranges to whatever layer submits them.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/unkn0wn-root/textanchor/internal/anchor"
	"github.com/unkn0wn-root/textanchor/internal/errdef"
)

// Commit is one (comment, range) pair produced by a commit.
type Commit struct {
	CommentKey   string             `json:"comment"`
	TextblockKey string             `json:"textblock"`
	Range        anchor.OffsetRange `json:"range"`
	MarkerID     string             `json:"marker,omitempty"`
	At           time.Time          `json:"at"`
}

type Sink interface {
	Emit(ctx context.Context, c Commit) error
}

// Func adapts a function to Sink.
type Func func(ctx context.Context, c Commit) error

func (f Func) Emit(ctx context.Context, c Commit) error { return f(ctx, c) }

// Discard drops every commit.
var Discard Sink = Func(func(context.Context, Commit) error { return nil })

// JSONLines writes one JSON object per commit.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

func (j *JSONLines) Emit(ctx context.Context, c Commit) error {
	if err := ctx.Err(); err != nil {
		return errdef.Wrap(errdef.CodeSink, err, "emit jsonl")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(c); err != nil {
		return errdef.Wrap(errdef.CodeSink, err, "emit jsonl")
	}
	return nil
}

// Memory keeps commits in order; the CLI reads them back for output.
type Memory struct {
	mu      sync.RWMutex
	commits []Commit
}

func (m *Memory) Emit(_ context.Context, c Commit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits = append(m.commits, c)
	return nil
}

func (m *Memory) Commits() []Commit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Commit, len(m.commits))
	copy(out, m.commits)
	return out
}

// Multi fans a commit out to every sink. All sinks are tried; failures are
// joined.
func Multi(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return multi(live)
}

type multi []Sink

func (m multi) Emit(ctx context.Context, c Commit) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
