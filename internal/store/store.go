// Package store keeps the offset ranges recorded during a session, indexed by
// textblock and by comment.
package store

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/unkn0wn-root/textanchor/internal/anchor"
	"github.com/unkn0wn-root/textanchor/internal/errdef"
)

// Entry binds a comment to the textblock it annotates and the span it covers.
type Entry struct {
	CommentKey   string             `json:"comment"   yaml:"comment"   toml:"comment"`
	TextblockKey string             `json:"textblock" yaml:"textblock" toml:"textblock"`
	Range        anchor.OffsetRange `json:"range"     yaml:"range"     toml:"range"`
}

// Pending is a committed range that has no comment key yet.
type Pending struct {
	TextblockKey string
	Range        anchor.OffsetRange
}

var ErrAlreadySeeded = errors.New("store already seeded")

type Store struct {
	mu          sync.RWMutex
	byTextblock map[string][]anchor.OffsetRange
	byComment   map[string]anchor.OffsetRange
	owners      map[string]string
	pending     *Pending
	seeded      bool
}

func New() *Store {
	return &Store{
		byTextblock: make(map[string][]anchor.OffsetRange),
		byComment:   make(map[string]anchor.OffsetRange),
		owners:      make(map[string]string),
	}
}

// SaveForTextblock appends r to the textblock's history.
func (s *Store) SaveForTextblock(key string, r anchor.OffsetRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byTextblock[key] = append(s.byTextblock[key], r)
}

// SaveForComment records r as the comment's only range, replacing any
// earlier one.
func (s *Store) SaveForComment(key string, r anchor.OffsetRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byComment[key] = r
}

func (s *Store) RecallForComment(key string) (anchor.OffsetRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byComment[key]
	return r, ok
}

// BindComment remembers which textblock a comment belongs to.
func (s *Store) BindComment(commentKey, textblockKey string) {
	if commentKey == "" || textblockKey == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[commentKey] = textblockKey
}

// TextblockFor resolves a comment key to the textblock it was bound to.
func (s *Store) TextblockFor(commentKey string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.owners[commentKey]
	return key, ok
}

func (s *Store) History(key string) []anchor.OffsetRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.byTextblock[key]
	if len(src) == 0 {
		return nil
	}
	out := make([]anchor.OffsetRange, len(src))
	copy(out, src)
	return out
}

func (s *Store) SetPending(p Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &p
}

func (s *Store) Pending() (Pending, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return Pending{}, false
	}
	return *s.pending, true
}

// TakePending returns the pending range and clears it.
func (s *Store) TakePending() (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Pending{}, false
	}
	p := *s.pending
	s.pending = nil
	return p, true
}

// AssignPending moves the pending range under commentKey once the comment
// exists. It reports false when nothing was pending.
func (s *Store) AssignPending(commentKey string) (Entry, bool) {
	commentKey = strings.TrimSpace(commentKey)
	if commentKey == "" {
		return Entry{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Entry{}, false
	}
	p := *s.pending
	s.pending = nil
	s.byComment[commentKey] = p.Range
	if p.TextblockKey != "" {
		s.owners[commentKey] = p.TextblockKey
	}
	return Entry{CommentKey: commentKey, TextblockKey: p.TextblockKey, Range: p.Range}, true
}

// ClearAll drops the in-session caches: the pending range and every
// textblock history. Comment ranges live for the page's lifetime.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.byTextblock = make(map[string][]anchor.OffsetRange)
}

// Seed pre-populates the comment map from externally supplied entries. It
// may run once; later calls fail with ErrAlreadySeeded. Invalid entries are
// skipped and reported together while the rest are still applied.
func (s *Store) Seed(entries []Entry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seeded {
		return 0, errdef.Wrap(errdef.CodeStore, ErrAlreadySeeded, "seed")
	}
	s.seeded = true

	var errs []error
	applied := 0
	for i, e := range entries {
		key := strings.TrimSpace(e.CommentKey)
		switch {
		case key == "":
			errs = append(errs, errdef.New(errdef.CodeSeed, "entry %d: missing comment key", i))
			continue
		case !seedable(e.Range):
			errs = append(errs, errdef.New(errdef.CodeSeed, "entry %d (%s): invalid range %s", i, key, e.Range))
			continue
		}
		s.byComment[key] = e.Range
		if tb := strings.TrimSpace(e.TextblockKey); tb != "" {
			s.owners[key] = tb
		}
		applied++
	}
	if len(errs) > 0 {
		return applied, errdef.Wrap(errdef.CodeStore, errors.Join(errs...), "seed")
	}
	return applied, nil
}

// Comments lists every comment range sorted by comment key.
func (s *Store) Comments() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.byComment))
	for key, r := range s.byComment {
		out = append(out, Entry{CommentKey: key, TextblockKey: s.owners[key], Range: r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommentKey < out[j].CommentKey })
	return out
}

// seedable accepts ranges without literal text; listings do not always carry it.
func seedable(r anchor.OffsetRange) bool {
	if r.Start < 0 || r.End <= r.Start {
		return false
	}
	return r.Text == "" || r.Valid()
}
