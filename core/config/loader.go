package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "AUTOSTAT_"

// Loader resolves KernelSearchSettings from defaults, an optional YAML
// file and AUTOSTAT_* environment variables, in that order.
type Loader struct {
	path   string
	getenv func(string) string
}

// NewLoader creates a Loader reading path. An empty path skips the file layer.
func NewLoader(path string) *Loader {
	return &Loader{
		path:   path,
		getenv: os.Getenv,
	}
}

// Load resolves the settings and validates the result.
func (l *Loader) Load() (*KernelSearchSettings, error) {
	cfg := DefaultSettings()

	if err := l.loadYAMLFile(cfg); err != nil {
		return nil, fmt.Errorf("settings file %s: %w", l.path, err)
	}

	l.applyEnvironment(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is shorthand for NewLoader(path).Load().
func Load(path string) (*KernelSearchSettings, error) {
	return NewLoader(path).Load()
}

func (l *Loader) loadYAMLFile(cfg *KernelSearchSettings) error {
	if l.path == "" {
		return nil
	}
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func (l *Loader) applyEnvironment(cfg *KernelSearchSettings) {
	if v := l.getenv(envPrefix + "RESTART_COUNT"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.RestartCount = n
		}
	}
	if v := l.getenv(envPrefix + "ALPHA"); v != "" {
		if f, err := parseFloat(v); err == nil {
			cfg.Alpha = f
		}
	}
	if v := l.getenv(envPrefix + "MAX_ITERATIONS"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.MaxIterations = n
		}
	}
	if v := l.getenv(envPrefix + "SEED"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.Seed = int64(n)
		}
	}
	if v := l.getenv(envPrefix + "WORKERS"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := l.getenv(envPrefix + "SCORE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ScoreCache.TTL = d
		}
	}
}

func parseInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func parseFloat(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}
