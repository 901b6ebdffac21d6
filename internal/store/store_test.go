package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/unkn0wn-root/textanchor/internal/anchor"
	"github.com/unkn0wn-root/textanchor/internal/errdef"
)

func rng(start, end int, text string) anchor.OffsetRange {
	return anchor.OffsetRange{Start: start, End: end, Text: text}
}

func TestSaveForCommentOverwrites(t *testing.T) {
	s := New()
	r1 := rng(0, 5, "Hello")
	r2 := rng(6, 11, "brave")
	s.SaveForComment("c1", r1)
	s.SaveForComment("c1", r2)

	got, ok := s.RecallForComment("c1")
	if !ok || got != r2 {
		t.Fatalf("expected %s, got %s (ok=%v)", r2, got, ok)
	}
	if _, ok := s.RecallForComment("missing"); ok {
		t.Fatalf("expected missing comment to be not found")
	}
}

func TestSaveForTextblockAppends(t *testing.T) {
	s := New()
	s.SaveForTextblock("p1", rng(0, 5, "Hello"))
	s.SaveForTextblock("p1", rng(0, 5, "Hello"))
	s.SaveForTextblock("p1", rng(6, 11, "brave"))
	s.SaveForTextblock("p2", rng(1, 2, "x"))

	hist := s.History("p1")
	if len(hist) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(hist))
	}
	if hist[2].Text != "brave" {
		t.Fatalf("expected insertion order, got %v", hist)
	}

	hist[0].Text = "mutated"
	if s.History("p1")[0].Text != "Hello" {
		t.Fatalf("expected History to return a copy")
	}
	if s.History("unknown") != nil {
		t.Fatalf("expected nil history for unknown textblock")
	}
}

func TestPendingAssignment(t *testing.T) {
	s := New()
	if _, ok := s.AssignPending("c1"); ok {
		t.Fatalf("expected nothing to assign")
	}
	s.SetPending(Pending{TextblockKey: "p1", Range: rng(6, 15, "brave new")})

	if _, ok := s.AssignPending("  "); ok {
		t.Fatalf("expected blank comment key to be rejected")
	}
	entry, ok := s.AssignPending("c9")
	if !ok {
		t.Fatalf("expected pending to be assigned")
	}
	if entry.TextblockKey != "p1" || entry.Range.Text != "brave new" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if _, ok := s.Pending(); ok {
		t.Fatalf("expected pending to be consumed")
	}
	if got, _ := s.RecallForComment("c9"); got.Text != "brave new" {
		t.Fatalf("expected comment range, got %s", got)
	}
	if tb, ok := s.TextblockFor("c9"); !ok || tb != "p1" {
		t.Fatalf("expected c9 bound to p1, got %q", tb)
	}
}

func TestTakePending(t *testing.T) {
	s := New()
	s.SetPending(Pending{TextblockKey: "p1", Range: rng(0, 1, "a")})
	p, ok := s.TakePending()
	if !ok || p.Range.Text != "a" {
		t.Fatalf("expected pending range, got %+v", p)
	}
	if _, ok := s.TakePending(); ok {
		t.Fatalf("expected second take to be empty")
	}
}

func TestClearAllKeepsComments(t *testing.T) {
	s := New()
	s.SaveForTextblock("p1", rng(0, 1, "a"))
	s.SaveForComment("c1", rng(0, 1, "a"))
	s.SetPending(Pending{Range: rng(0, 1, "a")})

	s.ClearAll()

	if len(s.History("p1")) != 0 {
		t.Fatalf("expected history cleared")
	}
	if _, ok := s.Pending(); ok {
		t.Fatalf("expected pending cleared")
	}
	if _, ok := s.RecallForComment("c1"); !ok {
		t.Fatalf("expected comment ranges to survive ClearAll")
	}
}

func TestSeedOnce(t *testing.T) {
	s := New()
	n, err := s.Seed([]Entry{
		{CommentKey: "c1", TextblockKey: "p1", Range: rng(0, 5, "Hello")},
		{CommentKey: "c2", TextblockKey: "p2", Range: rng(3, 7, "")},
		{CommentKey: "", Range: rng(0, 1, "a")},
		{CommentKey: "c3", Range: rng(4, 2, "")},
		{CommentKey: "c4", Range: rng(0, 3, "toolong")},
	})
	if n != 2 {
		t.Fatalf("expected 2 applied entries, got %d", n)
	}
	if errdef.CodeOf(err) != errdef.CodeStore {
		t.Fatalf("expected store error for invalid entries, got %v", err)
	}
	if _, ok := s.RecallForComment("c2"); !ok {
		t.Fatalf("expected textless range to be seeded")
	}
	if tb, _ := s.TextblockFor("c1"); tb != "p1" {
		t.Fatalf("expected c1 bound to p1, got %q", tb)
	}

	_, err = s.Seed([]Entry{{CommentKey: "c5", Range: rng(0, 1, "")}})
	if !errors.Is(err, ErrAlreadySeeded) {
		t.Fatalf("expected ErrAlreadySeeded, got %v", err)
	}
	if _, ok := s.RecallForComment("c5"); ok {
		t.Fatalf("expected second seed to be ignored")
	}
}

func TestCommentsSorted(t *testing.T) {
	s := New()
	s.SaveForComment("b", rng(0, 1, "x"))
	s.SaveForComment("a", rng(1, 2, "y"))
	s.BindComment("a", "p1")

	got := s.Comments()
	if len(got) != 2 || got[0].CommentKey != "a" || got[1].CommentKey != "b" {
		t.Fatalf("unexpected order %+v", got)
	}
	if got[0].TextblockKey != "p1" {
		t.Fatalf("expected owner to be reported, got %q", got[0].TextblockKey)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.SaveForTextblock("p", rng(j, j+1, "a"))
				_ = s.History("p")
			}
		}()
	}
	wg.Wait()
	if len(s.History("p")) != 400 {
		t.Fatalf("expected 400 entries, got %d", len(s.History("p")))
	}
}
