package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	envConfigDir = "TEXTANCHOR_CONFIG_DIR"
	appDirName   = "textanchor"
)

// Dir is the directory settings are read from. TEXTANCHOR_CONFIG_DIR wins
// over the platform config directory.
func Dir() string {
	if dir := strings.TrimSpace(os.Getenv(envConfigDir)); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		if home, herr := os.UserHomeDir(); herr == nil {
			return filepath.Join(home, ".config", appDirName)
		}
		return appDirName
	}
	return filepath.Join(base, appDirName)
}
