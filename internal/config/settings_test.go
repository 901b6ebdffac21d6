package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/unkn0wn-root/textanchor/internal/dom"
	"github.com/unkn0wn-root/textanchor/internal/errdef"
	"github.com/unkn0wn-root/textanchor/internal/telemetry"
	"github.com/unkn0wn-root/textanchor/internal/wordfit"
)

func TestLoadSettingsReturnsDefaultHandleWhenMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEXTANCHOR_CONFIG_DIR", dir)

	settings, handle, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings returned error: %v", err)
	}
	expectedPath := filepath.Join(dir, "settings.toml")
	if handle.Path != expectedPath {
		t.Fatalf("expected handle path %q, got %q", expectedPath, handle.Path)
	}
	if handle.Format != SettingsFormatTOML {
		t.Fatalf("expected format %q, got %q", SettingsFormatTOML, handle.Format)
	}
	if settings.Fit.Punct != wordfit.DefaultPunct {
		t.Fatalf("expected default punct %q, got %q", wordfit.DefaultPunct, settings.Fit.Punct)
	}
	if settings.Tree.ContainerAttr != dom.DefaultContainerAttr {
		t.Fatalf("expected default container attr, got %q", settings.Tree.ContainerAttr)
	}
	if settings.Fit.Raw {
		t.Fatalf("expected fitting enabled by default")
	}
}

func TestSaveAndLoadSettingsTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEXTANCHOR_CONFIG_DIR", dir)

	want := Settings{
		Fit:    FitSettings{Raw: true, Punct: ",;"},
		Marker: MarkerSettings{Tag: "MARK"},
	}
	if err := SaveSettings(want, SettingsHandle{}); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	got, handle, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if !got.Fit.Raw || got.Fit.Punct != ",;" {
		t.Fatalf("unexpected fit settings %+v", got.Fit)
	}
	if got.Marker.Tag != "mark" {
		t.Fatalf("expected lower-cased marker tag, got %q", got.Marker.Tag)
	}
	if handle.Format != SettingsFormatTOML {
		t.Fatalf("expected format %q after save, got %q", SettingsFormatTOML, handle.Format)
	}
}

func TestLoadSettingsTOMLSections(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEXTANCHOR_CONFIG_DIR", dir)

	body := `
[fit]
punct = ",:"

[tree]
hard_breaks = ["P", "li", "p", " "]
container_attr = "data-para"

[telemetry]
endpoint = "collector:4317"
`
	if err := os.WriteFile(filepath.Join(dir, "settings.toml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write toml settings: %v", err)
	}

	got, _, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if !slices.Equal(got.Tree.HardBreaks, []string{"p", "li"}) {
		t.Fatalf("expected deduped hard breaks, got %v", got.Tree.HardBreaks)
	}
	if got.Tree.ContainerAttr != "data-para" {
		t.Fatalf("unexpected container attr %q", got.Tree.ContainerAttr)
	}
	if got.Fit.WordExtra != wordfit.DefaultWordExtra {
		t.Fatalf("expected default word extras, got %q", got.Fit.WordExtra)
	}
	if got.Telemetry.Endpoint != "collector:4317" {
		t.Fatalf("unexpected endpoint %q", got.Telemetry.Endpoint)
	}
}

func TestLoadSettingsJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEXTANCHOR_CONFIG_DIR", dir)

	payload := Settings{Marker: MarkerSettings{Class: "note"}}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		t.Fatalf("marshal json: %v", err)
	}
	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write json settings: %v", err)
	}

	got, handle, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if got.Marker.Class != "note" {
		t.Fatalf("expected class %q, got %q", "note", got.Marker.Class)
	}
	if handle.Format != SettingsFormatJSON {
		t.Fatalf("expected json format, got %q", handle.Format)
	}
	if handle.Path != path {
		t.Fatalf("expected handle path %q, got %q", path, handle.Path)
	}
}

func TestLoadSettingsRejectsUnknownJSONFields(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEXTANCHOR_CONFIG_DIR", dir)

	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, []byte(`{"theme":"dark"}`), 0o644); err != nil {
		t.Fatalf("write json settings: %v", err)
	}
	_, _, err := LoadSettings()
	if errdef.CodeOf(err) != errdef.CodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestTelemetryConfigPrefersEnv(t *testing.T) {
	s := NormaliseSettings(Settings{Telemetry: TelemetrySettings{Endpoint: "file:4317", Service: "from-file"}})

	got := s.TelemetryConfig(telemetry.Config{ServiceName: telemetry.DefaultServiceName})
	if got.Endpoint != "file:4317" || got.ServiceName != "from-file" {
		t.Fatalf("expected file values, got %+v", got)
	}

	got = s.TelemetryConfig(telemetry.Config{Endpoint: "env:4317", ServiceName: "from-env"})
	if got.Endpoint != "env:4317" || got.ServiceName != "from-env" {
		t.Fatalf("expected env values, got %+v", got)
	}
}

func TestSettingsBuildDomainOptions(t *testing.T) {
	s := NormaliseSettings(Settings{Tree: TreeSettings{HardBreaks: []string{"p"}}})
	if len(s.Breaks()) != 1 {
		t.Fatalf("expected a single break tag, got %v", s.Breaks())
	}
	style := s.MarkerStyle()
	if style != dom.DefaultMarkerStyle() {
		t.Fatalf("expected default marker style, got %+v", style)
	}
	f := wordfit.New(s.FitterOptions()...)
	if f.Raw() {
		t.Fatalf("expected fitting fitter")
	}
}
