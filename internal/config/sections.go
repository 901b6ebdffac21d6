package config

import (
	"strings"

	"github.com/unkn0wn-root/textanchor/internal/dom"
	"github.com/unkn0wn-root/textanchor/internal/telemetry"
	"github.com/unkn0wn-root/textanchor/internal/util"
	"github.com/unkn0wn-root/textanchor/internal/wordfit"
)

type FitSettings struct {
	Raw       bool   `json:"raw"        toml:"raw"`
	Punct     string `json:"punct"      toml:"punct"`
	WordExtra string `json:"word_extra" toml:"word_extra"`
}

type TreeSettings struct {
	HardBreaks    []string `json:"hard_breaks"    toml:"hard_breaks"`
	ContainerAttr string   `json:"container_attr" toml:"container_attr"`
}

type MarkerSettings struct {
	Tag   string `json:"tag"   toml:"tag"`
	Class string `json:"class" toml:"class"`
	Attr  string `json:"attr"  toml:"attr"`
}

type TelemetrySettings struct {
	Endpoint string `json:"endpoint" toml:"endpoint"`
	Insecure bool   `json:"insecure" toml:"insecure"`
	Service  string `json:"service"  toml:"service"`
}

func DefaultSettings() Settings {
	return Settings{
		Fit: FitSettings{
			Punct:     wordfit.DefaultPunct,
			WordExtra: wordfit.DefaultWordExtra,
		},
		Tree: TreeSettings{
			HardBreaks:    append([]string(nil), dom.DefaultHardBreaks...),
			ContainerAttr: dom.DefaultContainerAttr,
		},
		Marker: MarkerSettings{
			Tag:   dom.DefaultMarkerTag,
			Class: dom.DefaultMarkerClass,
			Attr:  dom.DefaultMarkerAttr,
		},
	}
}

// NormaliseSettings fills blanks with defaults and cleans tag lists.
func NormaliseSettings(in Settings) Settings {
	def := DefaultSettings()
	out := in

	if out.Fit.Punct == "" {
		out.Fit.Punct = def.Fit.Punct
	}
	if out.Fit.WordExtra == "" {
		out.Fit.WordExtra = def.Fit.WordExtra
	}

	out.Tree.HardBreaks = util.NormaliseTags(in.Tree.HardBreaks)
	if len(out.Tree.HardBreaks) == 0 {
		out.Tree.HardBreaks = def.Tree.HardBreaks
	}
	out.Tree.ContainerAttr = strings.TrimSpace(out.Tree.ContainerAttr)
	if out.Tree.ContainerAttr == "" {
		out.Tree.ContainerAttr = def.Tree.ContainerAttr
	}

	out.Marker.Tag = strings.ToLower(strings.TrimSpace(out.Marker.Tag))
	if out.Marker.Tag == "" {
		out.Marker.Tag = def.Marker.Tag
	}
	out.Marker.Attr = strings.TrimSpace(out.Marker.Attr)
	if out.Marker.Attr == "" {
		out.Marker.Attr = def.Marker.Attr
	}
	out.Marker.Class = strings.TrimSpace(out.Marker.Class)
	if out.Marker.Class == "" {
		out.Marker.Class = def.Marker.Class
	}

	out.Telemetry.Endpoint = strings.TrimSpace(out.Telemetry.Endpoint)
	out.Telemetry.Service = strings.TrimSpace(out.Telemetry.Service)
	return out
}

func (s Settings) Classes() wordfit.Classes {
	return wordfit.Classes{Punct: s.Fit.Punct, WordExtra: s.Fit.WordExtra}
}

func (s Settings) Breaks() dom.Breaks {
	return dom.NewBreaks(s.Tree.HardBreaks)
}

func (s Settings) MarkerStyle() dom.MarkerStyle {
	return dom.MarkerStyle{Tag: s.Marker.Tag, Class: s.Marker.Class, Attr: s.Marker.Attr}
}

func (s Settings) FitterOptions() []wordfit.Option {
	return []wordfit.Option{
		wordfit.WithClasses(s.Classes()),
		wordfit.WithBreaks(s.Breaks()),
		wordfit.WithRaw(s.Fit.Raw),
	}
}

// TelemetryConfig layers the settings file under env, which always wins
// for the fields it sets.
func (s Settings) TelemetryConfig(env telemetry.Config) telemetry.Config {
	out := env
	if out.Endpoint == "" {
		out.Endpoint = s.Telemetry.Endpoint
		out.Insecure = out.Insecure || s.Telemetry.Insecure
	}
	if s.Telemetry.Service != "" && (out.ServiceName == "" || out.ServiceName == telemetry.DefaultServiceName) {
		out.ServiceName = s.Telemetry.Service
	}
	return out
}
