package config

import (
	"os"
	"path/filepath"
)

const (
	appDir           = "autostat"
	settingsFileName = "settings.yaml"
)

// ConfigDir returns the per-user configuration directory:
// $XDG_CONFIG_HOME/autostat when set, otherwise the platform default.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDir)
	}
	return filepath.Join(os.Getenv("HOME"), ".config", appDir)
}

// DefaultPath is the settings file read when no path is given.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), settingsFileName)
}

// ResolvePath returns path, or DefaultPath when path is empty.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	return DefaultPath()
}
