package dataset

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	coreerrors "github.com/adalundhe/autostat/core/errors"
)

func TestNewValidatesShapes(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	y := []float64{1, 2, 3}

	tests := []struct {
		name    string
		x       *mat.Dense
		y       []float64
		opts    []Option
		wantErr bool
	}{
		{"train only", x, y, nil, false},
		{"with test inputs", x, y, []Option{WithTest(mat.NewDense(1, 2, nil), nil)}, false},
		{"with test targets", x, y, []Option{WithTest(mat.NewDense(2, 2, nil), []float64{0, 1})}, false},
		{"nil train_x", nil, y, nil, true},
		{"empty train_y", x, nil, nil, true},
		{"row mismatch", x, []float64{1, 2}, nil, true},
		{"test column mismatch", x, y, []Option{WithTest(mat.NewDense(1, 3, nil), nil)}, true},
		{"test target mismatch", x, y, []Option{WithTest(mat.NewDense(2, 2, nil), []float64{1})}, true},
		{"test targets without inputs", x, y, []Option{WithTest(nil, []float64{1})}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.x, tt.y, tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, coreerrors.KindInvalidInput, coreerrors.GetKind(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 3, d.NumTrain())
			assert.Equal(t, 2, d.NumFeatures())
		})
	}
}

func TestDimensionMismatchIsWrapped(t *testing.T) {
	_, err := New(mat.NewDense(2, 1, []float64{0, 1}), []float64{1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrDimensionMismatch))
}

func TestHasTest(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{0, 1})
	y := []float64{0, 1}

	d, err := New(x, y)
	require.NoError(t, err)
	assert.False(t, d.HasTestInputs())
	assert.False(t, d.HasTestTargets())

	d, err = New(x, y, WithTest(mat.NewDense(1, 1, []float64{2}), nil))
	require.NoError(t, err)
	assert.True(t, d.HasTestInputs())
	assert.False(t, d.HasTestTargets())

	d, err = New(x, y, WithTest(mat.NewDense(1, 1, []float64{2}), []float64{3}))
	require.NoError(t, err)
	assert.True(t, d.HasTestTargets())
}

func TestReadCSV(t *testing.T) {
	t.Run("with header", func(t *testing.T) {
		x, y, err := ReadCSV(strings.NewReader("x1,x2,y\n1,2,3\n4, 5, 6\n"))
		require.NoError(t, err)
		r, c := x.Dims()
		assert.Equal(t, 2, r)
		assert.Equal(t, 2, c)
		assert.Equal(t, []float64{3, 6}, y)
		assert.Equal(t, 5.0, x.At(1, 1))
	})

	t.Run("without header and with comments", func(t *testing.T) {
		x, y, err := ReadCSV(strings.NewReader("# generated\n0.5,1\n1.5,2\n"))
		require.NoError(t, err)
		r, _ := x.Dims()
		assert.Equal(t, 2, r)
		assert.Equal(t, []float64{1, 2}, y)
	})

	errCases := map[string]string{
		"empty":          "",
		"header only":    "x,y\n",
		"single column":  "1\n2\n",
		"bad value":      "1,2\n3,abc\n",
		"ragged columns": "1,2\n3,4,5\n",
	}
	for name, input := range errCases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ReadCSV(strings.NewReader(input))
			require.Error(t, err)
			assert.Equal(t, coreerrors.KindInvalidInput, coreerrors.GetKind(err))
		})
	}
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	train := filepath.Join(dir, "train.csv")
	test := filepath.Join(dir, "test.csv")
	require.NoError(t, os.WriteFile(train, []byte("x,y\n0,0\n1,0.84\n2,0.91\n"), 0o644))
	require.NoError(t, os.WriteFile(test, []byte("x,y\n3,0.14\n"), 0o644))

	d, err := LoadCSV(train, test)
	require.NoError(t, err)
	assert.Equal(t, 3, d.NumTrain())
	assert.True(t, d.HasTestTargets())
	assert.Equal(t, []float64{0.14}, d.TestY)

	d, err = LoadCSV(train, "")
	require.NoError(t, err)
	assert.False(t, d.HasTestInputs())

	_, err = LoadCSV(filepath.Join(dir, "missing.csv"), "")
	assert.Error(t, err)
}

func TestModelPredictions(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{4, 1, 1, 9})
	p, err := NewModelPredictions([]float64{1, 2}, cov)
	require.NoError(t, err)

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []float64{1, 2}, p.Mean())
	std := p.Std()
	for i := 0; i < 2; i++ {
		assert.InDelta(t, math.Sqrt(p.Cov().At(i, i)), std[i], 1e-12)
	}

	// Mutating the input or a returned slice must not leak into p.
	cov.SetSym(0, 0, 100)
	m := p.Mean()
	m[0] = 42
	assert.Equal(t, 4.0, p.Cov().At(0, 0))
	assert.Equal(t, 1.0, p.Mean()[0])
	assert.Equal(t, 1.0, p.Cov().At(1, 0))
}

func TestModelPredictionsLengthMismatch(t *testing.T) {
	_, err := NewModelPredictions([]float64{1}, mat.NewSymDense(2, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrDimensionMismatch))
}
