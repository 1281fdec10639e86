// Package kernel implements covariance functions for Gaussian process
// regression, their composition by sum and product, and the translation
// between kernels and kernelspec trees.
//
// Hyperparameters are exposed as theta: the natural log of each free
// parameter, in a fixed depth-first order. Optimizers work on theta so that
// positivity is implicit.
package kernel

import (
	"fmt"
	"math"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"

	coreerrors "github.com/adalundhe/autostat/core/errors"
)

// Kernel is a positive semi-definite covariance function.
type Kernel interface {
	// Eval computes k(a, b).
	Eval(a, b []float64) float64

	// Theta returns the log-transformed free hyperparameters.
	Theta() []float64

	// Bounds returns log-space bounds for each entry of Theta.
	Bounds() []Bounds

	// WithTheta returns a copy of the kernel with hyperparameters set from theta.
	WithTheta(theta []float64) (Kernel, error)

	// NumParams is len(Theta()).
	NumParams() int

	String() string
}

// Bounds is a closed interval in log space.
type Bounds struct {
	Lower float64
	Upper float64
}

// Clamp restricts v to the interval.
func (b Bounds) Clamp(v float64) float64 {
	return math.Min(math.Max(v, b.Lower), b.Upper)
}

// DefaultBounds is applied to every hyperparameter: [1e-5, 1e5] on the natural scale.
var DefaultBounds = Bounds{Lower: math.Log(1e-5), Upper: math.Log(1e5)}

func defaultBounds(n int) []Bounds {
	b := make([]Bounds, n)
	for i := range b {
		b[i] = DefaultBounds
	}
	return b
}

func checkTheta(name string, theta []float64, want int) error {
	if len(theta) != want {
		return coreerrors.WrapWithKind(coreerrors.KindInvalidInput, name,
			fmt.Errorf("%w: expected %d hyperparameters, got %d",
				coreerrors.ErrDimensionMismatch, want, len(theta)))
	}
	for i, v := range theta {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return coreerrors.WrapWithKind(coreerrors.KindNumerical, name,
				fmt.Errorf("theta[%d] is not finite: %v", i, v))
		}
	}
	return nil
}

func sqDist(a, b []float64) float64 {
	d := vek.Sub(a, b)
	return vek.Dot(d, d)
}

// Gram computes the symmetric matrix k(X, X) over the rows of X.
func Gram(k Kernel, x mat.Matrix) *mat.SymDense {
	n, _ := x.Dims()
	rows := rowsOf(x)
	g := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			g.SetSym(i, j, k.Eval(rows[i], rows[j]))
		}
	}
	return g
}

// Cross computes k(A, B), one row per row of a.
func Cross(k Kernel, a, b mat.Matrix) *mat.Dense {
	ra, rb := rowsOf(a), rowsOf(b)
	out := mat.NewDense(len(ra), len(rb), nil)
	for i, x := range ra {
		for j, y := range rb {
			out.Set(i, j, k.Eval(x, y))
		}
	}
	return out
}

// Diag computes k(x_i, x_i) for each row.
func Diag(k Kernel, x mat.Matrix) []float64 {
	rows := rowsOf(x)
	d := make([]float64, len(rows))
	for i, r := range rows {
		d[i] = k.Eval(r, r)
	}
	return d
}

func rowsOf(x mat.Matrix) [][]float64 {
	n, _ := x.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, x)
	}
	return rows
}
