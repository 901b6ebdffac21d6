package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc"
	"github.com/charmbracelet/x/ansi"

	"github.com/unkn0wn-root/textanchor/internal/config"
	"github.com/unkn0wn-root/textanchor/internal/sink"
)

var page = heredoc.Doc(`
	<html><body>
	<p data-textblock="p1">Hello brave new world.</p>
	<p data-textblock="p2">Quick <em>brown</em> fox</p>
	</body></html>
`)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runCLI(t *testing.T, opts options) string {
	t.Helper()
	if opts.Settings.Tree.ContainerAttr == "" {
		opts.Settings = config.DefaultSettings()
	}
	opts.Plain = true
	var out bytes.Buffer
	if err := run(context.Background(), opts, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	return ansi.Strip(out.String())
}

func TestParseSelect(t *testing.T) {
	start, end, err := parseSelect(" 6:16 ")
	if err != nil || start != 6 || end != 16 {
		t.Fatalf("expected 6:16, got %d:%d (%v)", start, end, err)
	}
	for _, raw := range []string{"", "6", "a:3", "3:b", "-1:4"} {
		if _, _, err := parseSelect(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestRunCommitPrintsFittedRange(t *testing.T) {
	doc := writeFile(t, "page.html", page)
	marked := filepath.Join(t.TempDir(), "marked.html")

	out := runCLI(t, options{
		DocPath:   doc,
		Block:     "p1",
		Start:     6,
		End:       16,
		HasSelect: true,
		Comment:   "c1",
		JSONLPath: "-",
		OutPath:   marked,
	})

	if !strings.Contains(out, `commit: committed [6,15) "brave new"`) {
		t.Fatalf("expected fitted commit line, got:\n%s", out)
	}
	if !strings.Contains(out, "p1: Hello brave new world.") {
		t.Fatalf("expected textblock preview, got:\n%s", out)
	}

	var line sink.Commit
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, "{") {
			if err := json.Unmarshal([]byte(l), &line); err != nil {
				t.Fatalf("decode jsonl: %v", err)
			}
		}
	}
	if line.CommentKey != "c1" || line.TextblockKey != "p1" || line.Range.Text != "brave new" {
		t.Fatalf("unexpected emitted commit %+v", line)
	}

	data, err := os.ReadFile(marked)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), `class="anchor-highlight">brave new</span>`) {
		t.Fatalf("expected marker in output document, got:\n%s", data)
	}
}

func TestRunInvalidSelectionAborts(t *testing.T) {
	doc := writeFile(t, "page.html", page)
	out := runCLI(t, options{DocPath: doc, Block: "p1", Start: 5, End: 5, HasSelect: true})
	if !strings.Contains(out, "capture: idle (invalid-selection)") {
		t.Fatalf("expected aborted capture, got:\n%s", out)
	}
	if strings.Contains(out, "commit:") {
		t.Fatalf("expected no commit after abort, got:\n%s", out)
	}
}

func TestRunUnknownTextblock(t *testing.T) {
	doc := writeFile(t, "page.html", page)
	opts := options{DocPath: doc, Block: "nope", Start: 0, End: 3, HasSelect: true, Settings: config.DefaultSettings()}
	var out bytes.Buffer
	if err := run(context.Background(), opts, &out); err == nil {
		t.Fatalf("expected error for unknown textblock")
	}
}

func TestRunPendingAssign(t *testing.T) {
	doc := writeFile(t, "page.html", page)
	out := runCLI(t, options{
		DocPath:   doc,
		Block:     "p2",
		Start:     7,
		End:       9,
		HasSelect: true,
		Assign:    "c7",
		JSONLPath: "-",
	})
	if !strings.Contains(out, "assign: committed") {
		t.Fatalf("expected assignment outcome, got:\n%s", out)
	}
	if !strings.Contains(out, `"comment":"c7"`) {
		t.Fatalf("expected assigned commit to be emitted, got:\n%s", out)
	}
}

func TestRunRecallFromSeed(t *testing.T) {
	doc := writeFile(t, "page.html", page)
	seedPath := writeFile(t, "seed.json", heredoc.Doc(`
		{"comments": [
		  {"comment": "c1", "textblock": "p2", "range": {"start": 6, "end": 11, "text": "brown"}}
		]}
	`))

	out := runCLI(t, options{DocPath: doc, SeedPath: seedPath, Recall: "c1", Diff: true})
	if !strings.Contains(out, `recall: `) || !strings.Contains(out, `[6,11) "brown"`) {
		t.Fatalf("expected recalled range, got:\n%s", out)
	}
	if !strings.Contains(out, `+<p data-textblock="p2">Quick <em><span data-anchor-marker=`) {
		t.Fatalf("expected diff with marker, got:\n%s", out)
	}
}

func TestRunList(t *testing.T) {
	doc := writeFile(t, "page.html", page)
	seedPath := writeFile(t, "seed.yaml", heredoc.Doc(`
		comments:
		  - comment: c2
		    textblock: p1
		    range: {start: 0, end: 5, text: Hello}
	`))
	out := runCLI(t, options{DocPath: doc, SeedPath: seedPath, List: true})
	for _, want := range []string{"textblocks:", "p1", "Hello brave new world.", "p2", "comments:", "c2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in listing, got:\n%s", want, out)
		}
	}
}

func TestRunSQLiteJournal(t *testing.T) {
	doc := writeFile(t, "page.html", page)
	db := filepath.Join(t.TempDir(), "commits.db")
	runCLI(t, options{DocPath: doc, Block: "p1", Start: 0, End: 3, HasSelect: true, Comment: "c1", SQLitePath: db})

	j, err := sink.OpenSQLite(context.Background(), db)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()
	commits, err := j.Commits(context.Background(), "c1")
	if err != nil {
		t.Fatalf("commits: %v", err)
	}
	if len(commits) != 1 || commits[0].Range.Text != "Hello" {
		t.Fatalf("expected one journalled commit, got %+v", commits)
	}
}
