package dataset

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	coreerrors "github.com/adalundhe/autostat/core/errors"
)

// ModelPredictions is the posterior at K points: mean, marginal standard
// deviation and full covariance, with std[i] = sqrt(cov[i][i]).
// It is never modified after construction; accessors return copies.
type ModelPredictions struct {
	mean []float64
	std  []float64
	cov  *mat.SymDense
}

// NewModelPredictions derives std from the covariance diagonal. The inputs
// are copied.
func NewModelPredictions(mean []float64, cov mat.Symmetric) (*ModelPredictions, error) {
	k := cov.SymmetricDim()
	if len(mean) != k {
		return nil, coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "predictions",
			fmt.Errorf("%w: mean has length %d but covariance is %dx%d",
				coreerrors.ErrDimensionMismatch, len(mean), k, k))
	}

	c := mat.NewSymDense(k, nil)
	c.CopySym(cov)

	std := make([]float64, k)
	for i := range std {
		std[i] = math.Sqrt(c.At(i, i))
	}

	return &ModelPredictions{
		mean: slices.Clone(mean),
		std:  std,
		cov:  c,
	}, nil
}

// Len is the number of points K.
func (p *ModelPredictions) Len() int { return len(p.mean) }

// Mean returns a copy of the posterior mean.
func (p *ModelPredictions) Mean() []float64 { return slices.Clone(p.mean) }

// Std returns a copy of the marginal standard deviations.
func (p *ModelPredictions) Std() []float64 { return slices.Clone(p.std) }

// Cov returns a read-only view of the K×K posterior covariance.
func (p *ModelPredictions) Cov() mat.Symmetric { return readOnlySym{p.cov} }

// readOnlySym hides the *mat.SymDense setters from callers.
type readOnlySym struct {
	s *mat.SymDense
}

func (r readOnlySym) Dims() (int, int)    { return r.s.Dims() }
func (r readOnlySym) At(i, j int) float64 { return r.s.At(i, j) }
func (r readOnlySym) T() mat.Matrix       { return r }
func (r readOnlySym) SymmetricDim() int   { return r.s.SymmetricDim() }
