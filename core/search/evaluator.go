// Package search evaluates candidate kernel specifications against a
// dataset and ranks them. Each candidate is fitted in its own Model, so
// candidates run concurrently without sharing mutable state.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/adalundhe/autostat/core/config"
	"github.com/adalundhe/autostat/core/dataset"
	coreerrors "github.com/adalundhe/autostat/core/errors"
	"github.com/adalundhe/autostat/core/kernelspec"
	"github.com/adalundhe/autostat/core/model"
)

// Result is the outcome of evaluating one candidate.
type Result struct {
	ID            string `json:"id"`
	Spec          string `json:"spec"`
	OptimizedSpec string `json:"optimized_spec,omitempty"`
	NumParams     int    `json:"num_params"`

	LogLikelihood float64 `json:"log_likelihood"`
	BIC           float64 `json:"bic"`

	// TestLogLikelihood uses the full posterior covariance at the test
	// inputs. LogProbScore treats test points as independent. Both are nil
	// when the dataset has no test targets.
	TestLogLikelihood *float64 `json:"test_log_likelihood,omitempty"`
	LogProbScore      *float64 `json:"log_prob_score,omitempty"`

	// Skipped is set when the candidate failed numerically; Error holds the reason.
	Skipped bool   `json:"skipped"`
	Error   string `json:"error,omitempty"`

	Cached   bool          `json:"cached"`
	Duration time.Duration `json:"duration"`
}

// Evaluator fits and scores candidate specs against one dataset.
type Evaluator struct {
	data     *dataset.Dataset
	settings *config.KernelSearchSettings
	logger   *slog.Logger
	metrics  *Metrics

	scores    *ScoreCache
	models    *lru.Cache[string, *model.Model]
	modelOpts []model.Option
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the evaluator logger. It is also passed to each Model.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

// WithRegisterer registers evaluation metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Evaluator) { e.metrics = NewMetrics(reg) }
}

// WithModelOptions appends options applied to every Model.
func WithModelOptions(opts ...model.Option) Option {
	return func(e *Evaluator) { e.modelOpts = append(e.modelOpts, opts...) }
}

// NewEvaluator creates an Evaluator. A nil settings uses config.DefaultSettings.
func NewEvaluator(data *dataset.Dataset, settings *config.KernelSearchSettings, opts ...Option) (*Evaluator, error) {
	if data == nil {
		return nil, coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "new evaluator",
			fmt.Errorf("dataset is nil"))
	}
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	e := &Evaluator{
		data:     data,
		settings: settings,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	scores, err := NewScoreCache(settings.ScoreCache)
	if err != nil {
		return nil, fmt.Errorf("score cache: %w", err)
	}
	e.scores = scores

	if settings.ModelCacheSize > 0 {
		models, err := lru.New[string, *model.Model](settings.ModelCacheSize)
		if err != nil {
			scores.Close()
			return nil, fmt.Errorf("model cache: %w", err)
		}
		e.models = models
	}

	return e, nil
}

// Close releases the score cache.
func (e *Evaluator) Close() {
	e.scores.Close()
}

// CacheStats reports score cache traffic.
func (e *Evaluator) CacheStats() StatsSnapshot {
	return e.scores.Stats()
}

// Model returns the fitted model for a canonical spec string if it is
// still retained.
func (e *Evaluator) Model(spec string) (*model.Model, bool) {
	if e.models == nil {
		return nil, false
	}
	return e.models.Get(spec)
}

// Evaluate fits every spec and returns one Result per spec, in input order.
// Numerical failures mark a result skipped and the search continues; any
// other failure cancels the remaining work and is returned.
func (e *Evaluator) Evaluate(ctx context.Context, specs []kernelspec.TopLevelKernelSpec) ([]Result, error) {
	results := make([]Result, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	if e.settings.Workers > 0 {
		g.SetLimit(e.settings.Workers)
	}
	for i, spec := range specs {
		g.Go(func() error {
			r, err := e.evaluate(gctx, spec)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.scores.Wait()
	e.logger.Info("evaluation complete",
		"candidates", len(specs),
		"workers", e.settings.Workers)
	return results, nil
}

func (e *Evaluator) evaluate(ctx context.Context, spec kernelspec.TopLevelKernelSpec) (Result, error) {
	canonical := spec.String()
	key := Key(canonical)

	if cached, ok := e.scores.Get(key); ok {
		cached.ID = uuid.NewString()
		cached.Cached = true
		e.metrics.recordEvaluation(StatusCached)
		return cached, nil
	}

	start := time.Now()
	r, m, err := e.score(ctx, spec)
	r.ID = uuid.NewString()
	r.Spec = canonical
	r.NumParams = spec.NumParams()
	r.Duration = time.Since(start)
	e.metrics.observeFit(r.Duration)

	switch {
	case err == nil:
		e.metrics.recordEvaluation(StatusOK)
		if e.models != nil {
			e.models.Add(canonical, m)
		}
	case coreerrors.IsSkippable(err) && ctx.Err() == nil:
		r.Skipped = true
		r.Error = err.Error()
		e.metrics.recordEvaluation(StatusSkipped)
		e.logger.Warn("skipping candidate", "spec", canonical, "error", err)
	default:
		return Result{}, fmt.Errorf("evaluate %s: %w", canonical, err)
	}

	e.scores.Set(key, r)
	return r, nil
}

func (e *Evaluator) score(ctx context.Context, spec kernelspec.TopLevelKernelSpec) (Result, *model.Model, error) {
	opts := append([]model.Option{model.WithLogger(e.logger)}, e.modelOpts...)
	m, err := model.New(spec, e.data, e.settings, opts...)
	if err != nil {
		return Result{}, nil, err
	}
	if err := m.Fit(ctx); err != nil {
		return Result{}, nil, err
	}

	var r Result
	if r.LogLikelihood, err = m.LogLikelihood(); err != nil {
		return r, nil, err
	}
	if r.BIC, err = m.BIC(); err != nil {
		return r, nil, err
	}

	if e.data.HasTestTargets() {
		ll, err := m.LogLikelihoodTest()
		if err != nil {
			return r, nil, err
		}
		lp, err := m.PredictionLogProbScore()
		if err != nil {
			return r, nil, err
		}
		r.TestLogLikelihood, r.LogProbScore = &ll, &lp
	}

	optimized, err := m.ToSpec()
	if err != nil {
		return r, nil, err
	}
	r.OptimizedSpec = optimized.String()
	return r, m, nil
}
