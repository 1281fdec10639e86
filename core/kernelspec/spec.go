// Package kernelspec defines the structured form of compositional kernels:
// a sum of scaled products over base kernels. Specs are plain values that a
// search process can inspect, mutate and compare; package kernel turns them
// into covariance functions and back.
package kernelspec

import (
	"fmt"
	"strings"
)

// KernelSpec is a node in a kernel composition tree.
type KernelSpec interface {
	// NumParams is the number of free hyperparameters of the node and its
	// children. Every kernel built from the spec exposes the same count.
	NumParams() int

	// String renders the canonical form of the node.
	String() string

	// Clone returns a deep copy.
	Clone() KernelSpec
}

// TopLevelKernelSpec is the root of a composition: always a sum of scaled products.
type TopLevelKernelSpec = *AdditiveSpec

const floatFormat = "%.6f"

func formatFloat(v float64) string {
	return fmt.Sprintf(floatFormat, v)
}

// =============================================================================
// Base kernels
// =============================================================================

// RBFSpec is a squared-exponential kernel.
type RBFSpec struct {
	LengthScale float64
}

func (s *RBFSpec) NumParams() int { return 1 }

func (s *RBFSpec) String() string {
	return "RBF(l=" + formatFloat(s.LengthScale) + ")"
}

func (s *RBFSpec) Clone() KernelSpec {
	c := *s
	return &c
}

// PeriodicSpec is an exp-sine-squared kernel.
type PeriodicSpec struct {
	LengthScale float64
	Period      float64
}

func (s *PeriodicSpec) NumParams() int { return 2 }

func (s *PeriodicSpec) String() string {
	return "PER(l=" + formatFloat(s.LengthScale) + ", p=" + formatFloat(s.Period) + ")"
}

func (s *PeriodicSpec) Clone() KernelSpec {
	c := *s
	return &c
}

// RQSpec is a rational quadratic kernel.
type RQSpec struct {
	LengthScale float64
	Alpha       float64
}

func (s *RQSpec) NumParams() int { return 2 }

func (s *RQSpec) String() string {
	return "RQ(l=" + formatFloat(s.LengthScale) + ", a=" + formatFloat(s.Alpha) + ")"
}

func (s *RQSpec) Clone() KernelSpec {
	c := *s
	return &c
}

// LinearSpec is a dot-product kernel with inhomogeneity Sigma0.
type LinearSpec struct {
	Sigma0 float64
}

func (s *LinearSpec) NumParams() int { return 1 }

func (s *LinearSpec) String() string {
	return "LIN(s0=" + formatFloat(s.Sigma0) + ")"
}

func (s *LinearSpec) Clone() KernelSpec {
	c := *s
	return &c
}

// =============================================================================
// Combinators
// =============================================================================

// ProductSpec multiplies its operands and scales the result by Scalar.
// The scalar is itself a free hyperparameter.
type ProductSpec struct {
	Scalar   float64
	Operands []KernelSpec
}

func (s *ProductSpec) NumParams() int {
	n := 1
	for _, op := range s.Operands {
		n += op.NumParams()
	}
	return n
}

func (s *ProductSpec) String() string {
	parts := make([]string, 0, len(s.Operands)+1)
	parts = append(parts, formatFloat(s.Scalar))
	for _, op := range s.Operands {
		parts = append(parts, op.String())
	}
	return "PROD(" + strings.Join(parts, ", ") + ")"
}

func (s *ProductSpec) Clone() KernelSpec {
	return s.cloneProduct()
}

func (s *ProductSpec) cloneProduct() *ProductSpec {
	ops := make([]KernelSpec, len(s.Operands))
	for i, op := range s.Operands {
		ops[i] = op.Clone()
	}
	return &ProductSpec{Scalar: s.Scalar, Operands: ops}
}

// AdditiveSpec sums scaled products.
type AdditiveSpec struct {
	Operands []*ProductSpec
}

func (s *AdditiveSpec) NumParams() int {
	n := 0
	for _, op := range s.Operands {
		n += op.NumParams()
	}
	return n
}

func (s *AdditiveSpec) String() string {
	parts := make([]string, len(s.Operands))
	for i, op := range s.Operands {
		parts[i] = op.String()
	}
	return "ADD(" + strings.Join(parts, ", ") + ")"
}

func (s *AdditiveSpec) Clone() KernelSpec {
	return s.CloneTop()
}

// CloneTop is Clone with the concrete return type.
func (s *AdditiveSpec) CloneTop() *AdditiveSpec {
	ops := make([]*ProductSpec, len(s.Operands))
	for i, op := range s.Operands {
		ops[i] = op.cloneProduct()
	}
	return &AdditiveSpec{Operands: ops}
}

// =============================================================================
// Helpers
// =============================================================================

// Scaled wraps a single base kernel in a one-term sum with the given scale.
// Scaled(1, &RBFSpec{LengthScale: 1}) has two free hyperparameters.
func Scaled(scalar float64, base KernelSpec) TopLevelKernelSpec {
	return &AdditiveSpec{
		Operands: []*ProductSpec{{Scalar: scalar, Operands: []KernelSpec{base}}},
	}
}

// Add concatenates the terms of several top-level specs.
func Add(specs ...TopLevelKernelSpec) TopLevelKernelSpec {
	out := &AdditiveSpec{}
	for _, s := range specs {
		out.Operands = append(out.Operands, s.CloneTop().Operands...)
	}
	return out
}
