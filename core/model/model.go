// Package model scores one kernel specification against one dataset.
//
// A Model builds a kernel from its spec, fits a GP engine once, and then
// serves predictions and model-quality scores: training log marginal
// likelihood, BIC, and two held-out scores. Predictions at the training and
// test inputs are computed on first use and kept for the Model's lifetime.
//
// A Model is single-use: it is fitted once and is not safe for concurrent
// use. Evaluate candidates in parallel with one Model per goroutine.
package model

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"

	"github.com/adalundhe/autostat/core/config"
	"github.com/adalundhe/autostat/core/dataset"
	coreerrors "github.com/adalundhe/autostat/core/errors"
	"github.com/adalundhe/autostat/core/gp"
	"github.com/adalundhe/autostat/core/kernel"
	"github.com/adalundhe/autostat/core/kernelspec"
	"github.com/adalundhe/autostat/core/stats"
)

// Engine is the GP capability a Model drives. *gp.Regressor implements it.
type Engine interface {
	Fit(ctx context.Context, x *mat.Dense, y []float64) error
	Predict(x mat.Matrix) ([]float64, *mat.SymDense, error)
	LogMarginalLikelihood(theta []float64) (float64, error)
	Kernel() kernel.Kernel
}

var _ Engine = (*gp.Regressor)(nil)

// EngineFactory creates the engine for a built kernel.
type EngineFactory func(k kernel.Kernel, cfg gp.Config) Engine

func defaultEngine(k kernel.Kernel, cfg gp.Config) Engine {
	return gp.NewRegressor(k, cfg)
}

type options struct {
	alpha     float64
	logger    *slog.Logger
	newEngine EngineFactory
}

// Option configures a Model.
type Option func(*options)

// WithAlpha overrides the covariance jitter from the settings.
func WithAlpha(alpha float64) Option {
	return func(o *options) { o.alpha = alpha }
}

// WithLogger sets the logger passed to the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEngine replaces the GP engine.
func WithEngine(f EngineFactory) Option {
	return func(o *options) { o.newEngine = f }
}

// Model is a compositional GP model bound to one spec and one dataset.
type Model struct {
	spec   kernelspec.TopLevelKernelSpec
	data   *dataset.Dataset
	engine Engine
	logger *slog.Logger
	fitted bool

	trainPredictions *dataset.ModelPredictions
	testPredictions  *dataset.ModelPredictions
}

// New builds the kernel for spec and an unfitted engine over it. The spec
// is cloned; data is borrowed and must not be modified while the Model is
// in use. A nil settings uses config.DefaultSettings.
func New(spec kernelspec.TopLevelKernelSpec, data *dataset.Dataset, settings *config.KernelSearchSettings, opts ...Option) (*Model, error) {
	if data == nil {
		return nil, coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "new model",
			fmt.Errorf("dataset is nil"))
	}
	if settings == nil {
		settings = config.DefaultSettings()
	}

	o := options{
		alpha:     settings.Alpha,
		logger:    slog.Default(),
		newEngine: defaultEngine,
	}
	for _, opt := range opts {
		opt(&o)
	}

	k, err := kernel.Build(spec)
	if err != nil {
		return nil, err
	}

	engine := o.newEngine(k, gp.Config{
		Alpha:         o.alpha,
		NormalizeY:    false,
		RestartCount:  settings.RestartCount,
		MaxIterations: settings.MaxIterations,
		Seed:          settings.Seed,
		Logger:        o.logger,
	})

	return &Model{
		spec:   spec.CloneTop(),
		data:   data,
		engine: engine,
		logger: o.logger,
	}, nil
}

// Spec returns the spec the Model was built from, before optimization.
func (m *Model) Spec() kernelspec.TopLevelKernelSpec {
	return m.spec
}

// Fitted reports whether Fit has completed.
func (m *Model) Fitted() bool {
	return m.fitted
}

// Fit optimizes the kernel hyperparameters on the training data. Calling
// Fit more than once is not supported.
func (m *Model) Fit(ctx context.Context) error {
	m.logger.Debug("fitting model",
		"spec", m.spec.String(),
		"params", m.spec.NumParams(),
		"samples", m.data.NumTrain())
	if err := m.engine.Fit(ctx, m.data.TrainX, m.data.TrainY); err != nil {
		return fmt.Errorf("fit %s: %w", m.spec, err)
	}
	m.fitted = true
	return nil
}

func (m *Model) requireFitted() error {
	if !m.fitted {
		return coreerrors.ErrNotFitted
	}
	return nil
}

// Predict evaluates the posterior at the rows of x, including the full
// covariance between them. Memory grows with the square of the row count.
func (m *Model) Predict(x mat.Matrix) (*dataset.ModelPredictions, error) {
	if err := m.requireFitted(); err != nil {
		return nil, err
	}
	mean, cov, err := m.engine.Predict(x)
	if err != nil {
		return nil, err
	}
	return dataset.NewModelPredictions(mean, cov)
}

// PredictTrain returns the posterior at the training inputs, computing it
// on first call.
func (m *Model) PredictTrain() (*dataset.ModelPredictions, error) {
	return m.predictCached(true)
}

// PredictTest returns the posterior at the test inputs, computing it on
// first call. It fails with ErrNoTestInputs when the dataset has none.
func (m *Model) PredictTest() (*dataset.ModelPredictions, error) {
	return m.predictCached(false)
}

func (m *Model) predictCached(train bool) (*dataset.ModelPredictions, error) {
	if err := m.requireFitted(); err != nil {
		return nil, err
	}

	slot, x := &m.trainPredictions, mat.Matrix(m.data.TrainX)
	if !train {
		if !m.data.HasTestInputs() {
			return nil, coreerrors.ErrNoTestInputs
		}
		slot, x = &m.testPredictions, m.data.TestX
	}
	if *slot != nil {
		return *slot, nil
	}

	p, err := m.Predict(x)
	if err != nil {
		return nil, err
	}
	*slot = p
	return p, nil
}

// LogLikelihood is the log marginal likelihood of the training data at the
// optimized hyperparameters.
func (m *Model) LogLikelihood() (float64, error) {
	if err := m.requireFitted(); err != nil {
		return 0, err
	}
	return m.engine.LogMarginalLikelihood(m.engine.Kernel().Theta())
}

// BIC is the Bayesian Information Criterion of the fitted model, using the
// spec's free-parameter count and the number of training observations.
func (m *Model) BIC() (float64, error) {
	ll, err := m.LogLikelihood()
	if err != nil {
		return 0, err
	}
	return stats.BIC(m.spec.NumParams(), m.data.NumTrain(), ll), nil
}

// LogLikelihoodTest is the exact log-density of the held-out residuals
// under the full posterior covariance at the test inputs. It fails with a
// numerical error when that covariance is not positive definite.
func (m *Model) LogLikelihoodTest() (float64, error) {
	p, residual, err := m.testResiduals()
	if err != nil {
		return 0, err
	}
	return stats.GaussianLogDensity(residual, p.Cov())
}

// PredictionLogProbScore scores held-out targets against their marginal
// predictive distributions, treating test points as independent. It ignores
// posterior covariance between test points and so differs from
// LogLikelihoodTest whenever that covariance has off-diagonal mass.
func (m *Model) PredictionLogProbScore() (float64, error) {
	p, residual, err := m.testResiduals()
	if err != nil {
		return 0, err
	}
	return stats.IndependentGaussianLogDensity(residual, p.Std())
}

// testResiduals returns the test predictions and mean − y_test.
func (m *Model) testResiduals() (*dataset.ModelPredictions, []float64, error) {
	if err := m.requireFitted(); err != nil {
		return nil, nil, err
	}
	if !m.data.HasTestTargets() {
		return nil, nil, coreerrors.ErrNoTestTargets
	}
	p, err := m.PredictTest()
	if err != nil {
		return nil, nil, err
	}
	return p, vek.Sub(p.Mean(), m.data.TestY), nil
}

// Residuals is train_y minus the posterior mean at the training inputs.
func (m *Model) Residuals() ([]float64, error) {
	p, err := m.PredictTrain()
	if err != nil {
		return nil, err
	}
	return vek.Sub(m.data.TrainY, p.Mean()), nil
}

// ToSpec translates the optimized kernel back into spec form. The result
// has the same structure and parameter count as Spec.
func (m *Model) ToSpec() (kernelspec.TopLevelKernelSpec, error) {
	if err := m.requireFitted(); err != nil {
		return nil, err
	}
	return kernel.ToSpec(m.engine.Kernel())
}
