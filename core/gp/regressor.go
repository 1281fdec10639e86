// Package gp implements Gaussian process regression with hyperparameters
// fitted by maximizing the log marginal likelihood.
package gp

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	coreerrors "github.com/adalundhe/autostat/core/errors"
	"github.com/adalundhe/autostat/core/kernel"
)

// =============================================================================
// Configuration
// =============================================================================

// Config configures a Regressor.
type Config struct {
	// Alpha is added to the diagonal of the training covariance.
	Alpha float64
	// NormalizeY centers and scales targets before fitting. Predictions are
	// returned on the original scale.
	NormalizeY bool
	// RestartCount is the number of additional optimizer runs started from
	// hyperparameters sampled log-uniformly within the kernel bounds.
	RestartCount int
	// MaxIterations bounds the major iterations of each optimizer run.
	// Zero leaves the optimizer's own convergence test in charge.
	MaxIterations int
	// Seed seeds the restart sampler.
	Seed int64
	// Logger for fit progress.
	Logger *slog.Logger
}

// DefaultConfig returns the configuration used for model scoring.
func DefaultConfig() Config {
	return Config{
		Alpha:         1e-10,
		RestartCount:  0,
		MaxIterations: 200,
		Seed:          1,
		Logger:        slog.Default(),
	}
}

func normalizeConfig(cfg Config) Config {
	if cfg.Alpha < 0 {
		cfg.Alpha = 0
	}
	if cfg.RestartCount < 0 {
		cfg.RestartCount = 0
	}
	if cfg.MaxIterations < 0 {
		cfg.MaxIterations = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// =============================================================================
// Regressor
// =============================================================================

// Regressor is a zero-mean GP over a kernel. It is unfitted until Fit
// succeeds; Predict and LogMarginalLikelihood require the fitted state.
//
// A Regressor is not safe for concurrent use.
type Regressor struct {
	cfg    Config
	kernel kernel.Kernel
	logger *slog.Logger

	x      *mat.Dense
	y      []float64
	yMean  float64
	yScale float64

	chol   *mat.Cholesky
	weight *mat.VecDense // K⁻¹y
	fitted bool
}

// NewRegressor creates an unfitted regressor over k.
func NewRegressor(k kernel.Kernel, cfg Config) *Regressor {
	cfg = normalizeConfig(cfg)
	return &Regressor{
		cfg:    cfg,
		kernel: k,
		logger: cfg.Logger,
		yScale: 1,
	}
}

// Kernel returns the current kernel: the initial one before Fit, the
// optimized one after.
func (r *Regressor) Kernel() kernel.Kernel {
	return r.kernel
}

// Fitted reports whether Fit has completed.
func (r *Regressor) Fitted() bool {
	return r.fitted
}

// Fit optimizes the kernel hyperparameters against (x, y) and factors the
// training covariance at the optimum. The context is checked between
// optimizer runs.
func (r *Regressor) Fit(ctx context.Context, x *mat.Dense, y []float64) error {
	n, _ := x.Dims()
	if n == 0 || n != len(y) {
		return coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "gp fit",
			fmt.Errorf("%w: x has %d rows but y has length %d",
				coreerrors.ErrDimensionMismatch, n, len(y)))
	}

	r.x = x
	r.y = r.prepareTargets(y)

	best, err := r.optimize(ctx)
	if err != nil {
		return err
	}

	k, err := r.kernel.WithTheta(best)
	if err != nil {
		return err
	}
	chol, weight, err := r.factor(k)
	if err != nil {
		return err
	}

	r.kernel = k
	r.chol = chol
	r.weight = weight
	r.fitted = true

	r.logger.Info("gp fitted",
		"kernel", k.String(),
		"samples", n,
		"restarts", r.cfg.RestartCount)
	return nil
}

func (r *Regressor) prepareTargets(y []float64) []float64 {
	out := append([]float64(nil), y...)
	r.yMean, r.yScale = 0, 1
	if !r.cfg.NormalizeY {
		return out
	}

	r.yMean = floats.Sum(out) / float64(len(out))
	var ss float64
	for _, v := range out {
		ss += (v - r.yMean) * (v - r.yMean)
	}
	if sd := math.Sqrt(ss / float64(len(out))); sd > 0 {
		r.yScale = sd
	}
	for i := range out {
		out[i] = (out[i] - r.yMean) / r.yScale
	}
	return out
}

// LogMarginalLikelihood evaluates log p(y | X, θ) for the training data at
// the log-space hyperparameters theta.
func (r *Regressor) LogMarginalLikelihood(theta []float64) (float64, error) {
	if r.x == nil {
		return 0, coreerrors.ErrNotFitted
	}
	k, err := r.kernel.WithTheta(theta)
	if err != nil {
		return 0, err
	}
	return r.logMarginalLikelihood(k)
}

func (r *Regressor) logMarginalLikelihood(k kernel.Kernel) (float64, error) {
	chol, weight, err := r.factor(k)
	if err != nil {
		return 0, err
	}

	n := len(r.y)
	yv := mat.NewVecDense(n, r.y)
	quad := mat.Dot(yv, weight)

	// log|K| = 2·Σ log L_ii, so the likelihood takes half of it.
	var l mat.TriDense
	chol.LTo(&l)
	var halfLogDet float64
	for i := 0; i < n; i++ {
		halfLogDet += math.Log(l.At(i, i))
	}

	return -0.5*quad - halfLogDet - 0.5*float64(n)*math.Log(2*math.Pi), nil
}

// factor builds K + αI over the training inputs and returns its Cholesky
// factor together with K⁻¹y.
func (r *Regressor) factor(k kernel.Kernel) (*mat.Cholesky, *mat.VecDense, error) {
	g := kernel.Gram(k, r.x)
	n := g.SymmetricDim()
	for i := 0; i < n; i++ {
		g.SetSym(i, i, g.At(i, i)+r.cfg.Alpha)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(g); !ok {
		return nil, nil, coreerrors.WrapWithKind(coreerrors.KindNumerical, "gp factor",
			fmt.Errorf("%w: training covariance for %s; try a larger alpha",
				coreerrors.ErrNotPositiveDefinite, k))
	}

	var weight mat.VecDense
	if err := chol.SolveVecTo(&weight, mat.NewVecDense(n, r.y)); err != nil {
		return nil, nil, coreerrors.WrapWithKind(coreerrors.KindNumerical, "gp factor", err)
	}
	return &chol, &weight, nil
}

// Predict returns the posterior mean and full covariance at the rows of x.
//
//	mean = k(X*, X)·K⁻¹y
//	cov  = k(X*, X*) − k(X*, X)·K⁻¹·k(X, X*)
//
// The covariance is symmetrized and negative diagonal entries, which only
// arise from round-off, are set to zero.
func (r *Regressor) Predict(x mat.Matrix) ([]float64, *mat.SymDense, error) {
	if !r.fitted {
		return nil, nil, coreerrors.ErrNotFitted
	}
	m, d := x.Dims()
	if _, trainD := r.x.Dims(); d != trainD {
		return nil, nil, coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "gp predict",
			fmt.Errorf("%w: x has %d columns but the model was fitted on %d",
				coreerrors.ErrDimensionMismatch, d, trainD))
	}

	ks := kernel.Cross(r.kernel, x, r.x)

	var meanVec mat.VecDense
	meanVec.MulVec(ks, r.weight)
	mean := make([]float64, m)
	for i := range mean {
		mean[i] = meanVec.AtVec(i)*r.yScale + r.yMean
	}

	var v mat.Dense
	if err := r.chol.SolveTo(&v, ks.T()); err != nil {
		return nil, nil, coreerrors.WrapWithKind(coreerrors.KindNumerical, "gp predict", err)
	}
	var explained mat.Dense
	explained.Mul(ks, &v)

	prior := kernel.Gram(r.kernel, x)
	scale := r.yScale * r.yScale
	cov := mat.NewSymDense(m, nil)
	clamped := 0
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			c := prior.At(i, j) - 0.5*(explained.At(i, j)+explained.At(j, i))
			if i == j && c < 0 {
				c = 0
				clamped++
			}
			cov.SetSym(i, j, c*scale)
		}
	}
	if clamped > 0 {
		r.logger.Warn("predicted variances smaller than 0, setting to 0",
			"count", clamped,
			"points", m)
	}

	return mean, cov, nil
}
