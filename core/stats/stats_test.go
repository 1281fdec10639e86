package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	coreerrors "github.com/adalundhe/autostat/core/errors"
)

func TestBICIncreasesWithParams(t *testing.T) {
	const n, ll = 50, -12.5
	prev := BIC(0, n, ll)
	for k := 1; k <= 10; k++ {
		cur := BIC(k, n, ll)
		assert.Greater(t, cur, prev, "k=%d", k)
		prev = cur
	}
	assert.InDelta(t, 3*math.Log(50)+25, BIC(3, n, ll), 1e-12)
}

func TestGaussianLogDensityUnivariate(t *testing.T) {
	// N(0.5 | 0, 4)
	got, err := GaussianLogDensity([]float64{0.5}, mat.NewSymDense(1, []float64{4}))
	require.NoError(t, err)

	want := -0.5*math.Log(2*math.Pi) - math.Log(2) - 0.5*(0.25/4)
	assert.InDelta(t, want, got, 1e-12)
}

func TestGaussianLogDensityMatchesDirectFormula(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{2, 0.8, 0.8, 1})
	r := []float64{0.3, -1.1}

	got, err := GaussianLogDensity(r, cov)
	require.NoError(t, err)

	var inv mat.Dense
	require.NoError(t, inv.Inverse(cov))
	rv := mat.NewVecDense(2, r)
	var tmp mat.VecDense
	tmp.MulVec(&inv, rv)
	quad := mat.Dot(rv, &tmp)
	want := -0.5 * (quad + math.Log(mat.Det(cov)) + 2*math.Log(2*math.Pi))

	assert.InDelta(t, want, got, 1e-10)
}

func TestDiagonalAndFullAgreeOnlyWhenDiagonal(t *testing.T) {
	r := []float64{0.4, -0.2, 1.0}
	std := []float64{0.5, 1.5, 2}

	diag := mat.NewSymDense(3, nil)
	for i, s := range std {
		diag.SetSym(i, i, s*s)
	}
	full, err := GaussianLogDensity(r, diag)
	require.NoError(t, err)
	approx, err := IndependentGaussianLogDensity(r, std)
	require.NoError(t, err)
	assert.InDelta(t, full, approx, 1e-10)

	correlated := mat.NewSymDense(3, nil)
	correlated.CopySym(diag)
	correlated.SetSym(0, 1, 0.6)
	correlated.SetSym(1, 2, -0.9)
	full, err = GaussianLogDensity(r, correlated)
	require.NoError(t, err)
	assert.Greater(t, math.Abs(full-approx), 1e-3)
}

func TestGaussianLogDensityNotPositiveDefinite(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	_, err := GaussianLogDensity([]float64{0, 0}, cov)
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrNotPositiveDefinite))
	assert.True(t, coreerrors.IsNumerical(err))
}

func TestGaussianLogDensityDimensionMismatch(t *testing.T) {
	_, err := GaussianLogDensity([]float64{0}, mat.NewSymDense(2, []float64{1, 0, 0, 1}))
	require.Error(t, err)
	assert.Equal(t, coreerrors.KindInvalidInput, coreerrors.GetKind(err))
}

func TestIndependentGaussianLogDensityErrors(t *testing.T) {
	tests := []struct {
		name string
		r    []float64
		std  []float64
		kind coreerrors.Kind
	}{
		{"length mismatch", []float64{1, 2}, []float64{1}, coreerrors.KindInvalidInput},
		{"zero std", []float64{1}, []float64{0}, coreerrors.KindNumerical},
		{"negative std", []float64{1}, []float64{-1}, coreerrors.KindNumerical},
		{"nan std", []float64{1}, []float64{math.NaN()}, coreerrors.KindNumerical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := IndependentGaussianLogDensity(tt.r, tt.std)
			require.Error(t, err)
			assert.Equal(t, tt.kind, coreerrors.GetKind(err))
		})
	}
}
