package gp

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	coreerrors "github.com/adalundhe/autostat/core/errors"
	"github.com/adalundhe/autostat/core/kernel"
)

// penalty is returned by the objective where the likelihood cannot be
// evaluated, steering the line search back toward valid hyperparameters.
const penalty = 1e25

// optimize runs L-BFGS on the negative log marginal likelihood from the
// kernel's current theta and from RestartCount sampled starts, returning
// the best theta found.
func (r *Regressor) optimize(ctx context.Context) ([]float64, error) {
	theta0 := r.kernel.Theta()
	if len(theta0) == 0 {
		return theta0, nil
	}
	bounds := r.kernel.Bounds()

	objective := func(theta []float64) float64 {
		k, err := r.kernel.WithTheta(clampTheta(theta, bounds))
		if err != nil {
			return penalty
		}
		lml, err := r.logMarginalLikelihood(k)
		if err != nil || math.IsNaN(lml) || math.IsInf(lml, 0) {
			return penalty
		}
		return -lml
	}
	problem := optimize.Problem{
		Func: objective,
		Grad: func(grad, theta []float64) {
			fd.Gradient(grad, objective, theta, &fd.Settings{Formula: fd.Central})
		},
	}
	settings := &optimize.Settings{MajorIterations: r.cfg.MaxIterations}

	best := clampTheta(theta0, bounds)
	bestF := objective(best)

	rng := rand.New(rand.NewPCG(uint64(r.cfg.Seed), 0))
	for run := 0; run <= r.cfg.RestartCount; run++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("gp fit: %w", err)
		}

		start := theta0
		if run > 0 {
			start = sampleTheta(rng, bounds)
		}

		result, err := optimize.Minimize(problem, start, settings, &optimize.LBFGS{})
		if result == nil {
			r.logger.Warn("optimizer run failed", "run", run, "error", err)
			continue
		}
		if err != nil {
			r.logger.Debug("optimizer stopped early", "run", run, "status", result.Status, "error", err)
		}

		x := clampTheta(result.X, bounds)
		f := objective(x)
		r.logger.Debug("optimizer run complete",
			"run", run,
			"lml", -f,
			"evaluations", result.FuncEvaluations)
		if f < bestF {
			best, bestF = x, f
		}
	}

	if bestF >= penalty {
		return nil, coreerrors.WrapWithKind(coreerrors.KindNumerical, "gp fit",
			fmt.Errorf("%w: no hyperparameters for %s gave a finite likelihood",
				coreerrors.ErrOptimizationFailed, r.kernel))
	}
	return best, nil
}

func clampTheta(theta []float64, bounds []kernel.Bounds) []float64 {
	out := make([]float64, len(theta))
	for i, v := range theta {
		out[i] = bounds[i].Clamp(v)
	}
	return out
}

// sampleTheta draws each entry uniformly between its log-space bounds.
func sampleTheta(rng *rand.Rand, bounds []kernel.Bounds) []float64 {
	theta := make([]float64, len(bounds))
	for i, b := range bounds {
		theta[i] = b.Lower + rng.Float64()*(b.Upper-b.Lower)
	}
	return theta
}
