package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/unkn0wn-root/textanchor/internal/anchor"
	"github.com/unkn0wn-root/textanchor/internal/errdef"
)

func sample(key string) Commit {
	return Commit{
		CommentKey:   key,
		TextblockKey: "p1",
		Range:        anchor.OffsetRange{Start: 6, End: 15, Text: "brave new"},
		MarkerID:     "m-" + key,
		At:           time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestJSONLinesWritesOneObjectPerCommit(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONLines(&buf)
	for _, key := range []string{"c1", "c2"} {
		if err := s.Emit(context.Background(), sample(key)); err != nil {
			t.Fatalf("emit %s: %v", key, err)
		}
	}

	sc := bufio.NewScanner(&buf)
	var got []Commit
	for sc.Scan() {
		var c Commit
		if err := json.Unmarshal(sc.Bytes(), &c); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		got = append(got, c)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
	if got[1].CommentKey != "c2" || got[1].Range.Text != "brave new" {
		t.Fatalf("unexpected commit %+v", got[1])
	}
}

func TestJSONLinesHonoursCancelledContext(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewJSONLines(&buf).Emit(ctx, sample("c1"))
	if errdef.CodeOf(err) != errdef.CodeSink {
		t.Fatalf("expected sink error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written, got %q", buf.String())
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	mem := &Memory{}
	boom := errors.New("boom")
	failing := Func(func(context.Context, Commit) error { return boom })

	err := Multi(failing, nil, mem).Emit(context.Background(), sample("c1"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(mem.Commits()) != 1 {
		t.Fatalf("expected later sinks to still receive the commit")
	}
}

func TestSQLiteJournal(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	for _, key := range []string{"c1", "c2", "c1"} {
		if err := j.Emit(ctx, sample(key)); err != nil {
			t.Fatalf("emit %s: %v", key, err)
		}
	}

	all, err := j.Commits(ctx, "")
	if err != nil {
		t.Fatalf("commits: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 journaled commits, got %d", len(all))
	}
	only, err := j.Commits(ctx, "c1")
	if err != nil {
		t.Fatalf("commits c1: %v", err)
	}
	if len(only) != 2 {
		t.Fatalf("expected 2 commits for c1, got %d", len(only))
	}
	if only[0].Range != sample("c1").Range || !only[0].At.Equal(sample("c1").At) {
		t.Fatalf("unexpected journal row %+v", only[0])
	}
}
