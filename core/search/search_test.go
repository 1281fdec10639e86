package search

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/adalundhe/autostat/core/config"
	"github.com/adalundhe/autostat/core/dataset"
	coreerrors "github.com/adalundhe/autostat/core/errors"
	"github.com/adalundhe/autostat/core/gp"
	"github.com/adalundhe/autostat/core/kernel"
	"github.com/adalundhe/autostat/core/kernelspec"
	"github.com/adalundhe/autostat/core/model"
)

// failingEngine fails to fit with the given error.
type failingEngine struct {
	*gp.Regressor
	err error
}

func (f *failingEngine) Fit(context.Context, *mat.Dense, []float64) error { return f.err }

// failPeriodic makes every kernel containing a periodic term fail with err.
func failPeriodic(err error) model.Option {
	return model.WithEngine(func(k kernel.Kernel, cfg gp.Config) model.Engine {
		r := gp.NewRegressor(k, cfg)
		if strings.Contains(k.String(), "ExpSineSquared") {
			return &failingEngine{Regressor: r, err: err}
		}
		return r
	})
}

func testData(t *testing.T, withTest bool) *dataset.Dataset {
	t.Helper()
	n := 12
	x := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		v := float64(i) * 0.5
		x.Set(i, 0, v)
		y[i] = math.Sin(v) + 0.1*v
	}
	var opts []dataset.Option
	if withTest {
		opts = append(opts, dataset.WithTest(
			mat.NewDense(3, 1, []float64{0.25, 2.75, 6.5}),
			[]float64{math.Sin(0.25) + 0.025, math.Sin(2.75) + 0.275, math.Sin(6.5) + 0.65},
		))
	}
	d, err := dataset.New(x, y, opts...)
	require.NoError(t, err)
	return d
}

func testSettings() *config.KernelSearchSettings {
	s := config.DefaultSettings()
	s.RestartCount = 0
	s.MaxIterations = 50
	s.Workers = 2
	return s
}

func candidates() []kernelspec.TopLevelKernelSpec {
	return []kernelspec.TopLevelKernelSpec{
		kernelspec.Scaled(1, &kernelspec.RBFSpec{LengthScale: 1}),
		kernelspec.Scaled(1, &kernelspec.PeriodicSpec{LengthScale: 1, Period: 6}),
		kernelspec.Add(
			kernelspec.Scaled(1, &kernelspec.RBFSpec{LengthScale: 1}),
			kernelspec.Scaled(1, &kernelspec.LinearSpec{Sigma0: 1}),
		),
	}
}

func TestEvaluateScoresEveryCandidate(t *testing.T) {
	e, err := NewEvaluator(testData(t, true), testSettings())
	require.NoError(t, err)
	defer e.Close()

	specs := candidates()
	results, err := e.Evaluate(context.Background(), specs)
	require.NoError(t, err)
	require.Len(t, results, len(specs))

	ids := map[string]bool{}
	for i, r := range results {
		assert.Equal(t, specs[i].String(), r.Spec, "results keep input order")
		assert.Equal(t, specs[i].NumParams(), r.NumParams)
		assert.False(t, r.Skipped, r.Error)
		assert.False(t, math.IsNaN(r.BIC))
		require.NotNil(t, r.TestLogLikelihood)
		require.NotNil(t, r.LogProbScore)
		assert.NotEmpty(t, r.OptimizedSpec)
		assert.NotEmpty(t, r.ID)
		ids[r.ID] = true

		m, ok := e.Model(r.Spec)
		require.True(t, ok)
		assert.True(t, m.Fitted())
	}
	assert.Len(t, ids, len(specs))
}

func TestEvaluateWithoutTestTargets(t *testing.T) {
	e, err := NewEvaluator(testData(t, false), testSettings())
	require.NoError(t, err)
	defer e.Close()

	results, err := e.Evaluate(context.Background(), candidates()[:1])
	require.NoError(t, err)
	assert.Nil(t, results[0].TestLogLikelihood)
	assert.Nil(t, results[0].LogProbScore)
}

func TestNumericalFailuresAreSkipped(t *testing.T) {
	numerical := coreerrors.WrapWithKind(coreerrors.KindNumerical, "gp factor",
		coreerrors.ErrNotPositiveDefinite)
	e, err := NewEvaluator(testData(t, false), testSettings(),
		WithModelOptions(failPeriodic(numerical)))
	require.NoError(t, err)
	defer e.Close()

	results, err := e.Evaluate(context.Background(), candidates())
	require.NoError(t, err)

	assert.False(t, results[0].Skipped)
	assert.True(t, results[1].Skipped)
	assert.Contains(t, results[1].Error, "not positive definite")
	assert.False(t, results[2].Skipped)

	_, ok := e.Model(results[1].Spec)
	assert.False(t, ok, "skipped candidates are not retained")

	ranked := Rank(results)
	assert.True(t, ranked[2].Skipped)
}

func TestOtherFailuresAbort(t *testing.T) {
	e, err := NewEvaluator(testData(t, false), testSettings(),
		WithModelOptions(failPeriodic(coreerrors.ErrDimensionMismatch)))
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Evaluate(context.Background(), candidates())
	require.Error(t, err)
	assert.ErrorIs(t, err, coreerrors.ErrDimensionMismatch)
}

func TestInvalidSpecAborts(t *testing.T) {
	e, err := NewEvaluator(testData(t, false), testSettings())
	require.NoError(t, err)
	defer e.Close()

	bad := kernelspec.Scaled(-1, &kernelspec.RBFSpec{LengthScale: 1})
	_, err = e.Evaluate(context.Background(), []kernelspec.TopLevelKernelSpec{bad})
	require.Error(t, err)
	assert.Equal(t, coreerrors.KindInvalidInput, coreerrors.GetKind(err))
}

func TestScoresAreCachedAcrossCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	e, err := NewEvaluator(testData(t, false), testSettings(), WithRegisterer(reg))
	require.NoError(t, err)
	defer e.Close()

	specs := candidates()[:1]
	first, err := e.Evaluate(context.Background(), specs)
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), specs)
	require.NoError(t, err)

	assert.False(t, first[0].Cached)
	assert.True(t, second[0].Cached)
	assert.Equal(t, first[0].BIC, second[0].BIC)
	assert.NotEqual(t, first[0].ID, second[0].ID)

	stats := e.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	m := e.metrics
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues(StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues(StatusCached)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FitDuration))
}

func TestEvaluateHonorsCancellation(t *testing.T) {
	e, err := NewEvaluator(testData(t, false), testSettings())
	require.NoError(t, err)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Evaluate(ctx, candidates())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEvaluatorRejectsBadSettings(t *testing.T) {
	s := testSettings()
	s.Workers = -1
	_, err := NewEvaluator(testData(t, false), s)
	assert.Error(t, err)

	_, err = NewEvaluator(nil, nil)
	assert.Error(t, err)
}

func TestRank(t *testing.T) {
	results := []Result{
		{Spec: "a", BIC: 3},
		{Spec: "b", Skipped: true},
		{Spec: "c", BIC: -1},
		{Spec: "d", BIC: 3},
		{Spec: "e", Skipped: true},
	}

	ranked := Rank(results)
	var order []string
	for _, r := range ranked {
		order = append(order, r.Spec)
	}
	assert.Equal(t, []string{"c", "a", "d", "b", "e"}, order)
	assert.Equal(t, "a", results[0].Spec, "input is not reordered")

	best, ok := Best(results)
	require.True(t, ok)
	assert.Equal(t, "c", best.Spec)

	_, ok = Best([]Result{{Skipped: true}})
	assert.False(t, ok)
	_, ok = Best(nil)
	assert.False(t, ok)
}

func TestKeyIsStable(t *testing.T) {
	a := Key(candidates()[0].String())
	b := Key(kernelspec.Scaled(1, &kernelspec.RBFSpec{LengthScale: 1}).String())
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, keyPrefix))
	assert.NotEqual(t, a, Key(candidates()[1].String()))
}
