// Package stats implements the scoring formulas used to rank fitted models.
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	coreerrors "github.com/adalundhe/autostat/core/errors"
)

var log2Pi = math.Log(2 * math.Pi)

// BIC is the Bayesian Information Criterion k·ln(n) − 2·ll. Lower is better.
func BIC(numParams, nObs int, logLikelihood float64) float64 {
	return float64(numParams)*math.Log(float64(nObs)) - 2*logLikelihood
}

// GaussianLogDensity is the log-density of residual under a zero-mean
// multivariate normal with covariance cov:
//
//	−0.5 · (rᵀ·Σ⁻¹·r + log|Σ| + N·ln 2π)
//
// Σ is factored as L·Lᵀ; the quadratic form is solved against the factor and
// log|Σ| is twice the sum of log(L_ii). A covariance that cannot be factored
// yields ErrNotPositiveDefinite.
func GaussianLogDensity(residual []float64, cov mat.Symmetric) (float64, error) {
	n := cov.SymmetricDim()
	if len(residual) != n {
		return 0, coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "gaussian log density",
			fmt.Errorf("%w: residual has length %d but covariance is %dx%d",
				coreerrors.ErrDimensionMismatch, len(residual), n, n))
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return 0, coreerrors.WrapWithKind(coreerrors.KindNumerical, "gaussian log density",
			fmt.Errorf("%w: %dx%d covariance", coreerrors.ErrNotPositiveDefinite, n, n))
	}

	logDet, err := choleskyLogDet(&chol)
	if err != nil {
		return 0, err
	}

	var sol mat.VecDense
	r := mat.NewVecDense(n, append([]float64(nil), residual...))
	if err := chol.SolveVecTo(&sol, r); err != nil {
		return 0, coreerrors.WrapWithKind(coreerrors.KindNumerical, "gaussian log density", err)
	}
	quad := mat.Dot(r, &sol)

	return -0.5 * (quad + logDet + float64(n)*log2Pi), nil
}

// choleskyLogDet returns log|Σ| from the factor, failing if any diagonal
// entry of L is not strictly positive.
func choleskyLogDet(chol *mat.Cholesky) (float64, error) {
	var l mat.TriDense
	chol.LTo(&l)
	n, _ := l.Dims()

	var sum float64
	for i := 0; i < n; i++ {
		d := l.At(i, i)
		if !(d > 0) || math.IsInf(d, 0) {
			return 0, coreerrors.WrapWithKind(coreerrors.KindNumerical, "cholesky log determinant",
				fmt.Errorf("%w: L[%d][%d] = %v", coreerrors.ErrNotPositiveDefinite, i, i, d))
		}
		sum += math.Log(d)
	}
	return 2 * sum, nil
}

// IndependentGaussianLogDensity scores each residual against its own
// marginal standard deviation, ignoring correlation between points:
//
//	−0.5·N·ln 2π − Σ (0.5·z_i² + ln σ_i),  z_i = r_i / σ_i
//
// It equals GaussianLogDensity only when the covariance is diagonal.
func IndependentGaussianLogDensity(residual, std []float64) (float64, error) {
	if len(residual) != len(std) {
		return 0, coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "independent log density",
			fmt.Errorf("%w: residual has length %d but std has length %d",
				coreerrors.ErrDimensionMismatch, len(residual), len(std)))
	}

	score := -0.5 * float64(len(residual)) * log2Pi
	for i, r := range residual {
		s := std[i]
		if !(s > 0) || math.IsInf(s, 0) {
			return 0, coreerrors.WrapWithKind(coreerrors.KindNumerical, "independent log density",
				fmt.Errorf("%w: std[%d] = %v", coreerrors.ErrDegenerateVariance, i, s))
		}
		z := r / s
		score -= 0.5*z*z + math.Log(s)
	}
	return score, nil
}
