package telemetry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	envEndpoint    = "TEXTANCHOR_OTEL_ENDPOINT"
	envInsecure    = "TEXTANCHOR_OTEL_INSECURE"
	envService     = "TEXTANCHOR_OTEL_SERVICE"
	envDialTimeout = "TEXTANCHOR_OTEL_DIAL_TIMEOUT"
	envHeaders     = "TEXTANCHOR_OTEL_HEADERS"

	DefaultServiceName = "textanchor"
)

// Config selects the OTLP collector spans are exported to. An empty
// Endpoint disables export.
type Config struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
	Version     string
	DialTimeout time.Duration
	Headers     map[string]string
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// ConfigFromEnv reads the TEXTANCHOR_OTEL_* variables through getenv.
// Malformed values fall back to defaults.
func ConfigFromEnv(getenv func(string) string) Config {
	if getenv == nil {
		return Config{ServiceName: DefaultServiceName}
	}
	cfg := Config{
		Endpoint:    strings.TrimSpace(getenv(envEndpoint)),
		ServiceName: strings.TrimSpace(getenv(envService)),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if v := strings.TrimSpace(getenv(envInsecure)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Insecure = b
		}
	}
	if v := strings.TrimSpace(getenv(envDialTimeout)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.DialTimeout = d
		}
	}
	if headers, err := ParseHeaders(getenv(envHeaders)); err == nil {
		cfg.Headers = headers
	}
	return cfg
}

// ParseHeaders parses a comma separated list of key=value pairs.
func ParseHeaders(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	headers := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q", part)
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}
