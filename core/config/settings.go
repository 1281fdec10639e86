// Package config holds the run settings consumed by model fitting and
// candidate evaluation, and loads them from YAML and the environment.
package config

import (
	"fmt"
	"time"

	coreerrors "github.com/adalundhe/autostat/core/errors"
)

// DefaultAlpha is the jitter added to the training covariance diagonal.
const DefaultAlpha = 1e-7

// KernelSearchSettings configures a kernel search run.
type KernelSearchSettings struct {
	// RestartCount is the number of random restarts of the marginal
	// likelihood optimizer, on top of the run from the initial hyperparameters.
	RestartCount int `yaml:"restart_count"`

	// Alpha is added to the diagonal of the training covariance matrix.
	Alpha float64 `yaml:"alpha"`

	// MaxIterations bounds the major iterations of each optimizer run.
	MaxIterations int `yaml:"max_iterations"`

	// Seed seeds the restart sampler so fits are reproducible.
	Seed int64 `yaml:"seed"`

	// Workers is the number of candidates evaluated concurrently.
	Workers int `yaml:"workers"`

	ScoreCache ScoreCacheSettings `yaml:"score_cache"`

	// ModelCacheSize is the number of fitted models retained after evaluation.
	ModelCacheSize int `yaml:"model_cache_size"`
}

// ScoreCacheSettings configures the cross-candidate score cache.
type ScoreCacheSettings struct {
	NumCounters int64         `yaml:"num_counters"`
	MaxCost     int64         `yaml:"max_cost"`
	TTL         time.Duration `yaml:"ttl"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() *KernelSearchSettings {
	return &KernelSearchSettings{
		RestartCount:  2,
		Alpha:         DefaultAlpha,
		MaxIterations: 200,
		Seed:          1,
		Workers:       4,
		ScoreCache: ScoreCacheSettings{
			NumCounters: 1e5,
			MaxCost:     1e4,
			TTL:         30 * time.Minute,
		},
		ModelCacheSize: 16,
	}
}

// Validate rejects settings no fit could run with.
func (s *KernelSearchSettings) Validate() error {
	switch {
	case s.RestartCount < 0:
		return invalid("restart_count must be >= 0, got %d", s.RestartCount)
	case s.Alpha < 0:
		return invalid("alpha must be >= 0, got %g", s.Alpha)
	case s.MaxIterations < 0:
		return invalid("max_iterations must be >= 0, got %d", s.MaxIterations)
	case s.Workers < 0:
		return invalid("workers must be >= 0, got %d", s.Workers)
	case s.ModelCacheSize < 0:
		return invalid("model_cache_size must be >= 0, got %d", s.ModelCacheSize)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "settings",
		fmt.Errorf(format, args...))
}
