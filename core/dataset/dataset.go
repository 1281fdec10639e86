// Package dataset holds the training and held-out data a model is scored
// against, and the prediction triples models produce over it.
package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	coreerrors "github.com/adalundhe/autostat/core/errors"
)

// Dataset is a design matrix with targets, plus optional held-out data.
// It is read-only once constructed; models borrow it without copying.
type Dataset struct {
	TrainX *mat.Dense
	TrainY []float64

	// TestX and TestY are nil when no held-out data is configured.
	TestX *mat.Dense
	TestY []float64
}

// Option configures a Dataset during construction.
type Option func(*Dataset)

// WithTest attaches held-out inputs and targets. testY may be nil when only
// predictions at the test inputs are needed.
func WithTest(testX *mat.Dense, testY []float64) Option {
	return func(d *Dataset) {
		d.TestX = testX
		d.TestY = testY
	}
}

// New validates shapes and returns a Dataset.
func New(trainX *mat.Dense, trainY []float64, opts ...Option) (*Dataset, error) {
	d := &Dataset{TrainX: trainX, TrainY: trainY}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dataset) validate() error {
	if d.TrainX == nil || d.TrainX.IsEmpty() || len(d.TrainY) == 0 {
		return invalid(fmt.Errorf("training data must not be empty"))
	}
	n, dim := d.TrainX.Dims()
	if n != len(d.TrainY) {
		return invalid(fmt.Errorf("%w: train_x has %d rows but train_y has length %d",
			coreerrors.ErrDimensionMismatch, n, len(d.TrainY)))
	}

	if d.TestX == nil {
		if d.TestY != nil {
			return invalid(fmt.Errorf("test_y given without test_x"))
		}
		return nil
	}
	m, testDim := d.TestX.Dims()
	if testDim != dim {
		return invalid(fmt.Errorf("%w: test_x has %d columns but train_x has %d",
			coreerrors.ErrDimensionMismatch, testDim, dim))
	}
	if d.TestY != nil && len(d.TestY) != m {
		return invalid(fmt.Errorf("%w: test_x has %d rows but test_y has length %d",
			coreerrors.ErrDimensionMismatch, m, len(d.TestY)))
	}
	return nil
}

// NumTrain is the number of training observations.
func (d *Dataset) NumTrain() int {
	return len(d.TrainY)
}

// NumFeatures is the number of input dimensions.
func (d *Dataset) NumFeatures() int {
	_, c := d.TrainX.Dims()
	return c
}

// HasTestInputs reports whether test_x is configured.
func (d *Dataset) HasTestInputs() bool {
	return d.TestX != nil
}

// HasTestTargets reports whether test_y is configured.
func (d *Dataset) HasTestTargets() bool {
	return d.TestY != nil
}

func invalid(err error) error {
	return coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "dataset", err)
}
