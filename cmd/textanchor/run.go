package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/go-logr/logr"

	"github.com/unkn0wn-root/textanchor/internal/anchor"
	"github.com/unkn0wn-root/textanchor/internal/config"
	"github.com/unkn0wn-root/textanchor/internal/dom"
	"github.com/unkn0wn-root/textanchor/internal/errdef"
	"github.com/unkn0wn-root/textanchor/internal/highlight"
	"github.com/unkn0wn-root/textanchor/internal/seed"
	"github.com/unkn0wn-root/textanchor/internal/sink"
	"github.com/unkn0wn-root/textanchor/internal/store"
	"github.com/unkn0wn-root/textanchor/internal/telemetry"
	"github.com/unkn0wn-root/textanchor/internal/wordfit"
)

type options struct {
	DocPath    string
	Block      string
	Start, End int
	HasSelect  bool
	Comment    string
	Assign     string
	Recall     string
	SeedPath   string
	Raw        bool
	OutPath    string
	Diff       bool
	Color      bool
	List       bool
	JSONLPath  string
	SQLitePath string
	Copy       bool
	Plain      bool

	Settings  config.Settings
	Logger    logr.Logger
	Telemetry telemetry.Instrumenter
}

// offsetHost is the CLI's selection: flat offsets given on the command line.
type offsetHost struct {
	start, end int
	set        bool
}

func (h *offsetHost) SelectionOffsets() (int, int, bool) {
	return h.start, h.end, h.set
}

func parseSelect(raw string) (int, int, error) {
	left, right, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, 0, fmt.Errorf("expected start:end, got %q", raw)
	}
	start, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return 0, 0, fmt.Errorf("start: %w", err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return 0, 0, fmt.Errorf("end: %w", err)
	}
	if start < 0 || end < 0 {
		return 0, 0, fmt.Errorf("offsets must not be negative")
	}
	return start, end, nil
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	settings := config.NormaliseSettings(opts.Settings)
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	f, err := os.Open(opts.DocPath)
	if err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "open document")
	}
	doc, err := dom.ParseDocument(f, settings.Tree.ContainerAttr)
	_ = f.Close()
	if err != nil {
		return err
	}
	original := dom.RenderString(doc.Root, false)

	st := store.New()
	if opts.SeedPath != "" {
		entries, err := seed.Load(opts.SeedPath)
		if err != nil {
			return err
		}
		if n, err := st.Seed(entries); err != nil {
			log.Info("seed entries skipped", "applied", n, "error", err.Error())
		}
	}

	p := newPrinter(stdout, opts.Plain)

	if opts.List {
		p.listing(doc, st)
		return nil
	}

	sinks, closeSinks, err := openSinks(ctx, opts, stdout)
	if err != nil {
		return err
	}
	defer closeSinks()
	mem := &sink.Memory{}

	host := &offsetHost{}
	backend, err := anchor.Probe(host, nil)
	if err != nil {
		return err
	}
	ctl := highlight.New(doc, backend, st,
		highlight.WithLogger(log),
		highlight.WithInstrumenter(opts.Telemetry),
		highlight.WithSink(sink.Multi(append(sinks, mem)...)),
		highlight.WithFitter(wordfit.New(settings.FitterOptions()...)),
		highlight.WithMarkerStyle(settings.MarkerStyle()),
	)

	var shown []string
	if opts.HasSelect {
		if out := ctl.BeginSelection(opts.Block); !out.OK() {
			return errdef.New(errdef.CodeSelection, "textblock %q: %s", opts.Block, out.Reason)
		}
		host.start, host.end, host.set = opts.Start, opts.End, true
		captured := ctl.EndSelection()
		p.outcome("capture", captured)
		if captured.State == highlight.Captured {
			committed := ctl.Commit(ctx, opts.Comment)
			p.outcome("commit", committed)
			if committed.State == highlight.Committed {
				p.textblock(doc, opts.Block, committed.Range)
				shown = append(shown, opts.Block)
			}
			if opts.Assign != "" && opts.Comment == "" {
				p.outcome("assign", ctl.AssignPending(ctx, opts.Assign))
			}
		}
	}

	if opts.Recall != "" {
		out := ctl.Recall(ctx, opts.Recall)
		p.outcome("recall", out)
		if key, ok := st.TextblockFor(opts.Recall); ok && out.Wrapped > 0 {
			p.textblock(doc, key, out.Range)
			shown = append(shown, key)
		}
	}

	if opts.Copy {
		if commits := mem.Commits(); len(commits) > 0 {
			data, err := json.Marshal(commits[len(commits)-1])
			if err == nil {
				err = clipboard.WriteAll(string(data))
			}
			if err != nil {
				log.Error(err, "copy to clipboard")
			}
		}
	}

	marked := dom.RenderString(doc.Root, false)
	if opts.Diff {
		p.diff(opts.DocPath, original, marked)
	}
	if opts.Color {
		for _, key := range shown {
			if n, ok := doc.Container(key); ok {
				p.markup(dom.RenderString(n, false))
			}
		}
	}
	if opts.OutPath != "" {
		if err := os.WriteFile(opts.OutPath, []byte(marked), 0o644); err != nil {
			return errdef.Wrap(errdef.CodeFilesystem, err, "write %q", opts.OutPath)
		}
	}
	return nil
}

func openSinks(ctx context.Context, opts options, stdout io.Writer) ([]sink.Sink, func(), error) {
	var (
		sinks   []sink.Sink
		closers []func() error
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	switch opts.JSONLPath {
	case "":
	case "-":
		sinks = append(sinks, sink.NewJSONLines(stdout))
	default:
		f, err := os.OpenFile(opts.JSONLPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, closeAll, errdef.Wrap(errdef.CodeFilesystem, err, "open %q", opts.JSONLPath)
		}
		closers = append(closers, f.Close)
		sinks = append(sinks, sink.NewJSONLines(f))
	}

	if opts.SQLitePath != "" {
		j, err := sink.OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, j.Close)
		sinks = append(sinks, j)
	}
	return sinks, closeAll, nil
}
