package errors

import (
	"errors"
	"regexp"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// ErrorClassifier assigns a Kind to errors that were not raised as
// ScoringErrors, typically errors bubbling up from gonum.
type ErrorClassifier struct {
	mu            sync.RWMutex
	numericalPats []*regexp.Regexp
	statePats     []*regexp.Regexp
}

var defaultNumericalPatterns = []string{
	`(?i)positive definite`,
	`(?i)positive symmetric`,
	`(?i)singular`,
	`(?i)ill-conditioned`,
	`(?i)linesearch`,
	`(?i)\bnan\b`,
	`(?i)not finite`,
}

var defaultStatePatterns = []string{
	`(?i)not fitted`,
	`(?i)no test`,
}

// NewErrorClassifier creates a classifier preloaded with the default patterns.
func NewErrorClassifier() *ErrorClassifier {
	c := &ErrorClassifier{}
	for _, p := range defaultNumericalPatterns {
		c.numericalPats = append(c.numericalPats, regexp.MustCompile(p))
	}
	for _, p := range defaultStatePatterns {
		c.statePats = append(c.statePats, regexp.MustCompile(p))
	}
	return c
}

// Classify returns the Kind for err. Errors that match nothing are
// classified as invalid input.
func (c *ErrorClassifier) Classify(err error) Kind {
	if err == nil {
		return KindInvalidInput
	}

	var se *ScoringError
	if errors.As(err, &se) {
		return se.Kind
	}

	var cond mat.Condition
	if errors.As(err, &cond) {
		return KindNumerical
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	msg := err.Error()
	if matchesPatterns(msg, c.numericalPats) {
		return KindNumerical
	}
	if matchesPatterns(msg, c.statePats) {
		return KindInvalidState
	}
	return KindInvalidInput
}

// AddNumericalPattern registers an additional message pattern that marks
// an error as numerical.
func (c *ErrorClassifier) AddNumericalPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.numericalPats = append(c.numericalPats, re)
	c.mu.Unlock()
	return nil
}

func matchesPatterns(msg string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}

var defaultClassifier = NewErrorClassifier()

// Classify classifies err with the default classifier.
func Classify(err error) Kind {
	return defaultClassifier.Classify(err)
}
