// Package seed reads the comment ranges a page ships with so they can be
// loaded into the selection store before the first gesture.
package seed

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/textanchor/internal/anchor"
	"github.com/unkn0wn-root/textanchor/internal/dom"
	"github.com/unkn0wn-root/textanchor/internal/errdef"
	"github.com/unkn0wn-root/textanchor/internal/store"
)

const (
	AttrComment = "data-comment"
	AttrStart   = "data-start"
	AttrEnd     = "data-end"
	AttrText    = "data-text"
	AttrQuote   = "data-quote"
)

// File is the document shape shared by the JSON, YAML and TOML seed files.
type File struct {
	Comments []store.Entry `json:"comments" yaml:"comments" toml:"comments"`
}

// Load reads seed entries from path, picking the format from its extension.
func Load(path string) ([]store.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read seed %q", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".html" || ext == ".htm" {
		return FromListing(bytes.NewReader(data), "")
	}
	entries, err := Decode(data, ext)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeSeed, err, "parse seed %q", path)
	}
	return entries, nil
}

// Decode parses a structured seed file. ext is a file extension such as
// ".json", ".yaml", ".yml" or ".toml".
func Decode(data []byte, ext string) ([]store.Entry, error) {
	var f File
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && err != io.EOF {
			return nil, err
		}
	case "toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	default:
		return nil, errdef.New(errdef.CodeSeed, "unsupported seed format %q", ext)
	}
	return f.Comments, nil
}

// FromListing extracts entries from rendered comment listing markup. Each
// element carrying data-comment contributes one entry; data-start and
// data-end hold the offsets and the textblock key comes from the element or
// its nearest ancestor carrying containerAttr. The literal text is taken
// from data-text, or from a descendant marked data-quote.
func FromListing(r io.Reader, containerAttr string) ([]store.Entry, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeSeed, err, "parse listing")
	}
	doc := dom.NewDocument(root, containerAttr)

	var entries []store.Entry
	for n := range dom.Walk(root) {
		if !dom.IsElement(n) {
			continue
		}
		key, ok := dom.Attr(n, AttrComment)
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		entry, err := listingEntry(doc, n, strings.TrimSpace(key))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func listingEntry(doc *dom.Document, n *html.Node, key string) (store.Entry, error) {
	start, err := intAttr(n, AttrStart)
	if err != nil {
		return store.Entry{}, errdef.Wrap(errdef.CodeSeed, err, "comment %q", key)
	}
	end, err := intAttr(n, AttrEnd)
	if err != nil {
		return store.Entry{}, errdef.Wrap(errdef.CodeSeed, err, "comment %q", key)
	}
	textblock, _ := doc.KeyOf(n)
	return store.Entry{
		CommentKey:   key,
		TextblockKey: textblock,
		Range:        anchor.OffsetRange{Start: start, End: end, Text: quoteOf(n)},
	}, nil
}

func quoteOf(n *html.Node) string {
	if v, ok := dom.Attr(n, AttrText); ok {
		return v
	}
	for d := range dom.Walk(n) {
		if d == n || !dom.IsElement(d) {
			continue
		}
		if _, ok := dom.Attr(d, AttrQuote); ok {
			return dom.TextContent(d)
		}
	}
	return ""
}

func intAttr(n *html.Node, key string) (int, error) {
	raw, ok := dom.Attr(n, key)
	if !ok {
		return 0, errdef.New(errdef.CodeSeed, "missing %s", key)
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, errdef.Wrap(errdef.CodeSeed, err, "bad %s %q", key, raw)
	}
	return v, nil
}

// Resolver maps comments to textblocks using the seed entries alone, for
// hosts that keep the store for ranges only.
type Resolver map[string]string

func NewResolver(entries []store.Entry) Resolver {
	r := make(Resolver, len(entries))
	for _, e := range entries {
		if e.CommentKey != "" && e.TextblockKey != "" {
			r[e.CommentKey] = e.TextblockKey
		}
	}
	return r
}

func (r Resolver) TextblockFor(commentKey string) (string, bool) {
	key, ok := r[commentKey]
	return key, ok
}
