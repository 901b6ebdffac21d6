package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/unkn0wn-root/textanchor/internal/errdef"
)

// Settings tunes fitting, tree walking, marker markup and span export.
type Settings struct {
	Fit       FitSettings       `json:"fit"       toml:"fit"`
	Tree      TreeSettings      `json:"tree"      toml:"tree"`
	Marker    MarkerSettings    `json:"marker"    toml:"marker"`
	Telemetry TelemetrySettings `json:"telemetry" toml:"telemetry"`
}

type SettingsFormat string

const (
	SettingsFormatTOML SettingsFormat = "toml"
	SettingsFormatJSON SettingsFormat = "json"
)

// SettingsHandle remembers where settings came from so a save goes back
// to the same file.
type SettingsHandle struct {
	Path   string
	Format SettingsFormat
}

type settingsCodec struct {
	format SettingsFormat
	file   string
	decode func([]byte, *Settings) error
	encode func(Settings) ([]byte, error)
}

// Lookup order: the first file that exists wins.
var settingsCodecs = []settingsCodec{
	{
		format: SettingsFormatTOML,
		file:   "settings.toml",
		decode: func(data []byte, s *Settings) error { return toml.Unmarshal(data, s) },
		encode: func(s Settings) ([]byte, error) { return toml.Marshal(s) },
	},
	{
		format: SettingsFormatJSON,
		file:   "settings.json",
		decode: func(data []byte, s *Settings) error {
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.DisallowUnknownFields()
			return dec.Decode(s)
		},
		encode: func(s Settings) ([]byte, error) {
			data, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return nil, err
			}
			return append(data, '\n'), nil
		},
	},
}

func codecFor(format SettingsFormat) (settingsCodec, bool) {
	if format == "" {
		format = SettingsFormatTOML
	}
	for _, c := range settingsCodecs {
		if c.format == format {
			return c, true
		}
	}
	return settingsCodec{}, false
}

// LoadSettings reads settings from Dir(). A missing file yields defaults;
// a file that exists but does not parse is an error.
func LoadSettings() (Settings, SettingsHandle, error) {
	dir := Dir()
	var readErrs error
	for _, c := range settingsCodecs {
		path := filepath.Join(dir, c.file)
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			readErrs = errors.Join(readErrs, errdef.Wrap(errdef.CodeFilesystem, err, "read settings %q", path))
			continue
		}

		var s Settings
		if err := c.decode(data, &s); err != nil {
			return Settings{}, SettingsHandle{}, errdef.Wrap(errdef.CodeConfig, err, "parse settings %q", path)
		}
		return NormaliseSettings(s), SettingsHandle{Path: path, Format: c.format}, nil
	}
	if readErrs != nil {
		return Settings{}, SettingsHandle{}, readErrs
	}
	return DefaultSettings(), SettingsHandle{
		Path:   filepath.Join(dir, settingsCodecs[0].file),
		Format: settingsCodecs[0].format,
	}, nil
}

func SaveSettings(settings Settings, handle SettingsHandle) error {
	c, ok := codecFor(handle.Format)
	if !ok {
		return errdef.New(errdef.CodeConfig, "unsupported settings format %q", handle.Format)
	}
	path := handle.Path
	if path == "" {
		path = filepath.Join(Dir(), c.file)
	}
	data, err := c.encode(NormaliseSettings(settings))
	if err != nil {
		return errdef.Wrap(errdef.CodeConfig, err, "encode settings")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create settings dir")
	}
	if err := replaceFile(path, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write settings %q", path)
	}
	return nil
}

// replaceFile writes through a temp file in the same directory and renames
// it over path, so readers see the old or the new file and nothing between.
func replaceFile(path string, data []byte, perm fs.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".textanchor-settings-*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(name)
		}
	}()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(perm)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Rename(name, path)
}
