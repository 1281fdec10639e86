package errors

import (
	"errors"
	"fmt"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindInvalidInput, "invalid_input"},
		{KindInvalidState, "invalid_state"},
		{KindNumerical, "numerical"},
		{Kind(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("Kind.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestScoringErrorError(t *testing.T) {
	t.Run("with underlying error", func(t *testing.T) {
		underlying := errors.New("base error")
		err := NewScoringError(KindNumerical, "wrapped", underlying)
		expected := "[numerical] wrapped: base error"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})

	t.Run("without underlying error", func(t *testing.T) {
		err := NewScoringError(KindInvalidState, "simple error", nil)
		expected := "[invalid_state] simple error"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})
}

func TestScoringErrorUnwrap(t *testing.T) {
	underlying := errors.New("base error")
	err := NewScoringError(KindNumerical, "wrapped", underlying)

	if err.Unwrap() != underlying {
		t.Errorf("Unwrap() did not return underlying error")
	}
}

func TestScoringErrorIs(t *testing.T) {
	if errors.Is(ErrNoTestInputs, ErrNoTestTargets) {
		t.Error("distinct sentinels of one kind should not match")
	}

	wrapped := fmt.Errorf("log_likelihood_test: %w", ErrNoTestTargets)
	if !errors.Is(wrapped, ErrNoTestTargets) {
		t.Error("fmt-wrapped sentinel should match")
	}

	kinded := WrapWithKind(KindInvalidInput, "scoring", ErrNotPositiveDefinite)
	if !errors.Is(kinded, ErrNotPositiveDefinite) {
		t.Error("WrapWithKind should keep the sentinel in the chain")
	}

	if ErrNotFitted.Is(errors.New("plain error")) {
		t.Error("ScoringError.Is should return false for non-ScoringError")
	}
}

func TestWrapWithKind(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		if WrapWithKind(KindNumerical, "msg", nil) != nil {
			t.Error("wrapping nil should return nil")
		}
	})

	t.Run("plain error takes requested kind", func(t *testing.T) {
		err := WrapWithKind(KindNumerical, "cholesky", errors.New("boom"))
		if GetKind(err) != KindNumerical {
			t.Errorf("GetKind() = %v, want numerical", GetKind(err))
		}
	})

	t.Run("scoring error keeps its kind", func(t *testing.T) {
		err := WrapWithKind(KindInvalidInput, "predict", ErrNotFitted)
		if GetKind(err) != KindInvalidState {
			t.Errorf("GetKind() = %v, want invalid_state", GetKind(err))
		}
	})
}

func TestWithContext(t *testing.T) {
	err := NewScoringError(KindInvalidState, "missing", nil).WithContext("field", "test_y")
	if err.Context["field"] != "test_y" {
		t.Errorf("Context[field] = %q, want test_y", err.Context["field"])
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		numerical bool
		state     bool
	}{
		{"nil", nil, false, false},
		{"not fitted", ErrNotFitted, false, true},
		{"no test targets", fmt.Errorf("score: %w", ErrNoTestTargets), false, true},
		{"not positive definite", ErrNotPositiveDefinite, true, false},
		{"gonum condition", mat.Condition(1e18), true, false},
		{"message pattern", errors.New("linesearch: no change"), true, false},
		{"plain", errors.New("bad shape"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNumerical(tt.err); got != tt.numerical {
				t.Errorf("IsNumerical() = %v, want %v", got, tt.numerical)
			}
			if got := IsSkippable(tt.err); got != tt.numerical {
				t.Errorf("IsSkippable() = %v, want %v", got, tt.numerical)
			}
			if got := IsInvalidState(tt.err); got != tt.state {
				t.Errorf("IsInvalidState() = %v, want %v", got, tt.state)
			}
		})
	}
}

func TestClassifierCustomPattern(t *testing.T) {
	c := NewErrorClassifier()
	err := errors.New("jitter exhausted")

	if c.Classify(err) != KindInvalidInput {
		t.Fatalf("unexpected kind before pattern registration")
	}
	if perr := c.AddNumericalPattern(`jitter`); perr != nil {
		t.Fatalf("AddNumericalPattern failed: %v", perr)
	}
	if c.Classify(err) != KindNumerical {
		t.Errorf("Classify() = %v, want numerical", c.Classify(err))
	}
	if c.AddNumericalPattern(`(`) == nil {
		t.Error("invalid pattern should fail to compile")
	}
}
