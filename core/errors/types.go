// Package errors implements the error taxonomy shared by the model-scoring packages.
package errors

import (
	"errors"
	"fmt"
	"maps"
)

// Kind represents the classification of a scoring error.
// Callers running many candidate specs branch on the kind to decide whether
// a failure is local to one candidate or fatal to the whole run.
type Kind int

const (
	// KindInvalidInput indicates malformed arguments: shape mismatches,
	// non-positive hyperparameters, unknown kernel kinds.
	KindInvalidInput Kind = iota

	// KindInvalidState indicates an operation that is not valid for the
	// current lifecycle state, such as scoring before fit or requesting
	// test scores without test data.
	KindInvalidState

	// KindNumerical indicates a linear-algebra or optimization failure,
	// such as a covariance matrix that is not positive definite.
	KindNumerical
)

var kindNames = map[Kind]string{
	KindInvalidInput: "invalid_input",
	KindInvalidState: "invalid_state",
	KindNumerical:    "numerical",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ScoringError wraps an error with kind classification.
type ScoringError struct {
	Kind       Kind
	Message    string
	Underlying error
	Context    map[string]string
}

// Error implements the error interface.
func (e *ScoringError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ScoringError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target is a ScoringError with the same kind and message.
// Matching on the message keeps sentinels of one kind distinguishable.
func (e *ScoringError) Is(target error) bool {
	var se *ScoringError
	if errors.As(target, &se) {
		return e.Kind == se.Kind && e.Message == se.Message
	}
	return false
}

// NewScoringError creates a new ScoringError with the given kind and message.
func NewScoringError(kind Kind, message string, underlying error) *ScoringError {
	return &ScoringError{
		Kind:       kind,
		Message:    message,
		Underlying: underlying,
		Context:    make(map[string]string),
	}
}

// WithContext adds context key-value pairs to the error.
func (e *ScoringError) WithContext(key, value string) *ScoringError {
	e.Context[key] = value
	return e
}

// GetKind extracts the Kind from an error. Unclassified errors are
// passed through Classify.
func GetKind(err error) Kind {
	var se *ScoringError
	if errors.As(err, &se) {
		return se.Kind
	}
	return Classify(err)
}

// IsNumerical reports whether err is a numerical failure.
func IsNumerical(err error) bool {
	return err != nil && GetKind(err) == KindNumerical
}

// IsInvalidState reports whether err is a lifecycle misuse.
func IsInvalidState(err error) bool {
	return err != nil && GetKind(err) == KindInvalidState
}

// IsSkippable reports whether a search loop may drop the failing candidate
// and continue. Only numerical failures qualify: retrying the same inputs
// cannot succeed, but other candidates are unaffected.
func IsSkippable(err error) bool {
	return IsNumerical(err)
}

// Sentinel errors. Wrap them with WrapWithKind or fmt.Errorf("%w") to add detail.
var (
	// Invalid input
	ErrInvalidInput      = NewScoringError(KindInvalidInput, "invalid input", nil)
	ErrDimensionMismatch = NewScoringError(KindInvalidInput, "dimension mismatch", nil)
	ErrUnknownKernel     = NewScoringError(KindInvalidInput, "unknown kernel", nil)

	// Invalid state
	ErrNotFitted     = NewScoringError(KindInvalidState, "model is not fitted", nil)
	ErrNoTestInputs  = NewScoringError(KindInvalidState, "dataset has no test inputs (test_x)", nil)
	ErrNoTestTargets = NewScoringError(KindInvalidState, "dataset has no test targets (test_y)", nil)

	// Numerical
	ErrNotPositiveDefinite = NewScoringError(KindNumerical, "matrix is not positive definite", nil)
	ErrDegenerateVariance  = NewScoringError(KindNumerical, "predictive variance is not strictly positive", nil)
	ErrOptimizationFailed  = NewScoringError(KindNumerical, "hyperparameter optimization failed", nil)
)

// WrapWithKind wraps an error with a kind classification.
func WrapWithKind(kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}

	// Don't double-wrap ScoringErrors
	var se *ScoringError
	if errors.As(err, &se) {
		// Preserve existing kind if wrapping
		return &ScoringError{
			Kind:       se.Kind,
			Message:    message,
			Underlying: err,
			Context:    maps.Clone(se.Context),
		}
	}

	return NewScoringError(kind, message, err)
}
