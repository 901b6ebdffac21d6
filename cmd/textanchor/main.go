package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-logr/stdr"

	"github.com/unkn0wn-root/textanchor/internal/config"
	"github.com/unkn0wn-root/textanchor/internal/telemetry"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var (
		opts            options
		selectRaw       string
		verbosity       int
		showVersion     bool
		traceOTEndpoint string
		traceOTInsecure bool
		traceOTService  string
	)

	telemetryCfg := telemetry.ConfigFromEnv(os.Getenv)
	traceOTEndpoint = telemetryCfg.Endpoint
	traceOTInsecure = telemetryCfg.Insecure
	traceOTService = telemetryCfg.ServiceName

	flag.StringVar(&opts.DocPath, "doc", "", "Path to the HTML document to annotate")
	flag.StringVar(&opts.Block, "block", "", "Key of the textblock the selection is made in")
	flag.StringVar(&selectRaw, "select", "", "Selection as start:end code point offsets inside -block")
	flag.StringVar(&opts.Comment, "comment", "", "Comment key to file the selection under (empty keeps it pending)")
	flag.StringVar(&opts.Assign, "assign", "", "Comment key to give a pending selection after commit")
	flag.StringVar(&opts.Recall, "recall", "", "Comment key whose stored range should be highlighted")
	flag.StringVar(&opts.SeedPath, "seed", "", "Seed file (.json, .yaml, .toml or listing .html)")
	flag.BoolVar(&opts.Raw, "raw", false, "Skip word fitting")
	flag.StringVar(&opts.OutPath, "out", "", "Write the marked document to this path")
	flag.BoolVar(&opts.Diff, "diff", false, "Print a unified diff of the document markup")
	flag.BoolVar(&opts.Color, "color", false, "Print the marked textblock as highlighted HTML")
	flag.BoolVar(&opts.List, "list", false, "List textblocks and stored comments, then exit")
	flag.StringVar(&opts.JSONLPath, "jsonl", "", "Append commits as JSON lines to this path (- for stdout)")
	flag.StringVar(&opts.SQLitePath, "sqlite", "", "Journal commits into this SQLite database")
	flag.BoolVar(&opts.Copy, "copy", false, "Copy the committed range as JSON to the clipboard")
	flag.BoolVar(&opts.Plain, "plain", false, "Disable terminal colours")
	flag.IntVar(&verbosity, "v", 0, "Log verbosity")
	flag.BoolVar(&showVersion, "version", false, "Show textanchor version")
	flag.StringVar(
		&traceOTEndpoint,
		"trace-otel-endpoint",
		traceOTEndpoint,
		"OTLP collector endpoint for commit and recall spans",
	)
	flag.BoolVar(
		&traceOTInsecure,
		"trace-otel-insecure",
		traceOTInsecure,
		"Disable TLS for OTLP trace export",
	)
	flag.StringVar(
		&traceOTService,
		"trace-otel-service",
		traceOTService,
		"Override service.name resource attribute for exported spans",
	)
	flag.Parse()

	if showVersion {
		fmt.Printf("textanchor %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		os.Exit(0)
	}

	stdr.SetVerbosity(verbosity)
	logger := stdr.New(log.New(os.Stderr, "textanchor ", log.LstdFlags))

	if opts.DocPath == "" && flag.NArg() > 0 {
		opts.DocPath = flag.Arg(0)
	}
	if opts.DocPath == "" {
		fmt.Fprintln(os.Stderr, "usage: textanchor -doc page.html [-block key -select start:end] [-recall comment]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if selectRaw != "" {
		start, end, err := parseSelect(selectRaw)
		if err != nil {
			log.Fatalf("invalid -select: %v", err)
		}
		opts.Start, opts.End, opts.HasSelect = start, end, true
	}

	settings, _, err := config.LoadSettings()
	if err != nil {
		log.Printf("settings load error: %v", err)
		settings = config.DefaultSettings()
	}
	if opts.Raw {
		settings.Fit.Raw = true
	}

	telemetryCfg.Endpoint = strings.TrimSpace(traceOTEndpoint)
	telemetryCfg.Insecure = traceOTInsecure
	telemetryCfg.ServiceName = strings.TrimSpace(traceOTService)
	telemetryCfg.Version = version
	telemetryCfg = settings.TelemetryConfig(telemetryCfg)

	provider, err := telemetry.New(telemetryCfg)
	if err != nil {
		if telemetryCfg.Enabled() {
			log.Printf("telemetry init error: %v", err)
		}
		provider = telemetry.Noop()
	}
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := provider.Shutdown(ctx); shutdownErr != nil {
			log.Printf("telemetry shutdown: %v", shutdownErr)
		}
	}

	opts.Settings = settings
	opts.Logger = logger
	opts.Telemetry = provider

	err = run(context.Background(), opts, os.Stdout)
	shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
