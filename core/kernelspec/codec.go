package kernelspec

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	coreerrors "github.com/adalundhe/autostat/core/errors"
)

// Node kinds accepted in YAML documents.
const (
	KindAdd      = "add"
	KindProduct  = "product"
	KindRBF      = "rbf"
	KindPeriodic = "periodic"
	KindRQ       = "rq"
	KindLinear   = "linear"
)

// node is the YAML shape of a spec tree. Missing hyperparameters default to 1.
type node struct {
	Kind        string   `yaml:"kind"`
	Scalar      *float64 `yaml:"scalar,omitempty"`
	LengthScale *float64 `yaml:"length_scale,omitempty"`
	Period      *float64 `yaml:"period,omitempty"`
	Alpha       *float64 `yaml:"alpha,omitempty"`
	Sigma0      *float64 `yaml:"sigma0,omitempty"`
	Operands    []node   `yaml:"operands,omitempty"`
}

type candidatesDoc struct {
	Candidates []node `yaml:"candidates"`
}

// Decode parses a single spec document. A root that is not a sum is
// wrapped in a one-term sum; a bare base kernel also gets a unit scale.
func Decode(data []byte) (TopLevelKernelSpec, error) {
	var n node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, invalidSpec("decode spec", err)
	}
	return n.toTopLevel()
}

// DecodeCandidates parses a document of the form `candidates: [spec, ...]`.
func DecodeCandidates(data []byte) ([]TopLevelKernelSpec, error) {
	var doc candidatesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, invalidSpec("decode candidates", err)
	}
	if len(doc.Candidates) == 0 {
		return nil, invalidSpec("decode candidates", fmt.Errorf("no candidates listed"))
	}

	specs := make([]TopLevelKernelSpec, 0, len(doc.Candidates))
	for i, n := range doc.Candidates {
		s, err := n.toTopLevel()
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// Encode renders a spec as a YAML document Decode accepts.
func Encode(spec TopLevelKernelSpec) ([]byte, error) {
	return yaml.Marshal(fromSpec(spec))
}

func (n node) toTopLevel() (TopLevelKernelSpec, error) {
	var spec TopLevelKernelSpec
	switch strings.ToLower(n.Kind) {
	case KindAdd:
		add, err := n.toAdditive()
		if err != nil {
			return nil, err
		}
		spec = add
	case KindProduct:
		prod, err := n.toProduct()
		if err != nil {
			return nil, err
		}
		spec = &AdditiveSpec{Operands: []*ProductSpec{prod}}
	default:
		base, err := n.toBase()
		if err != nil {
			return nil, err
		}
		spec = Scaled(1, base)
	}
	if err := Validate(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func (n node) toAdditive() (*AdditiveSpec, error) {
	add := &AdditiveSpec{Operands: make([]*ProductSpec, 0, len(n.Operands))}
	for _, op := range n.Operands {
		if strings.EqualFold(op.Kind, KindProduct) {
			prod, err := op.toProduct()
			if err != nil {
				return nil, err
			}
			add.Operands = append(add.Operands, prod)
			continue
		}
		inner, err := op.toOperand()
		if err != nil {
			return nil, err
		}
		add.Operands = append(add.Operands, &ProductSpec{Scalar: 1, Operands: []KernelSpec{inner}})
	}
	return add, nil
}

func (n node) toProduct() (*ProductSpec, error) {
	prod := &ProductSpec{Scalar: orOne(n.Scalar), Operands: make([]KernelSpec, 0, len(n.Operands))}
	for _, op := range n.Operands {
		inner, err := op.toOperand()
		if err != nil {
			return nil, err
		}
		prod.Operands = append(prod.Operands, inner)
	}
	return prod, nil
}

// toOperand decodes a product operand: a base kernel or a nested sum.
func (n node) toOperand() (KernelSpec, error) {
	switch strings.ToLower(n.Kind) {
	case KindAdd:
		return n.toAdditive()
	case KindProduct:
		return nil, invalidSpec("decode spec", fmt.Errorf("product nested directly in product"))
	default:
		return n.toBase()
	}
}

func (n node) toBase() (KernelSpec, error) {
	switch strings.ToLower(n.Kind) {
	case KindRBF:
		return &RBFSpec{LengthScale: orOne(n.LengthScale)}, nil
	case KindPeriodic:
		return &PeriodicSpec{LengthScale: orOne(n.LengthScale), Period: orOne(n.Period)}, nil
	case KindRQ:
		return &RQSpec{LengthScale: orOne(n.LengthScale), Alpha: orOne(n.Alpha)}, nil
	case KindLinear:
		return &LinearSpec{Sigma0: orOne(n.Sigma0)}, nil
	default:
		return nil, coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "decode spec",
			fmt.Errorf("%w: %q", coreerrors.ErrUnknownKernel, n.Kind))
	}
}

func orOne(v *float64) float64 {
	if v == nil {
		return 1
	}
	return *v
}

func ptr(v float64) *float64 { return &v }

func fromSpec(s KernelSpec) node {
	switch v := s.(type) {
	case *AdditiveSpec:
		n := node{Kind: KindAdd}
		for _, op := range v.Operands {
			n.Operands = append(n.Operands, fromSpec(op))
		}
		return n
	case *ProductSpec:
		n := node{Kind: KindProduct, Scalar: ptr(v.Scalar)}
		for _, op := range v.Operands {
			n.Operands = append(n.Operands, fromSpec(op))
		}
		return n
	case *RBFSpec:
		return node{Kind: KindRBF, LengthScale: ptr(v.LengthScale)}
	case *PeriodicSpec:
		return node{Kind: KindPeriodic, LengthScale: ptr(v.LengthScale), Period: ptr(v.Period)}
	case *RQSpec:
		return node{Kind: KindRQ, LengthScale: ptr(v.LengthScale), Alpha: ptr(v.Alpha)}
	case *LinearSpec:
		return node{Kind: KindLinear, Sigma0: ptr(v.Sigma0)}
	default:
		return node{Kind: fmt.Sprintf("%T", s)}
	}
}

// Validate checks that every sum and product is non-empty and every
// hyperparameter is finite and strictly positive.
func Validate(s KernelSpec) error {
	switch v := s.(type) {
	case *AdditiveSpec:
		if v == nil || len(v.Operands) == 0 {
			return invalidSpec("validate", fmt.Errorf("empty sum"))
		}
		for _, op := range v.Operands {
			if err := Validate(op); err != nil {
				return err
			}
		}
	case *ProductSpec:
		if v == nil || len(v.Operands) == 0 {
			return invalidSpec("validate", fmt.Errorf("empty product"))
		}
		if err := positive("scalar", v.Scalar); err != nil {
			return err
		}
		for _, op := range v.Operands {
			if err := Validate(op); err != nil {
				return err
			}
		}
	case *RBFSpec:
		return positive("rbf length_scale", v.LengthScale)
	case *PeriodicSpec:
		if err := positive("periodic length_scale", v.LengthScale); err != nil {
			return err
		}
		return positive("periodic period", v.Period)
	case *RQSpec:
		if err := positive("rq length_scale", v.LengthScale); err != nil {
			return err
		}
		return positive("rq alpha", v.Alpha)
	case *LinearSpec:
		return positive("linear sigma0", v.Sigma0)
	default:
		return coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "validate",
			fmt.Errorf("%w: %T", coreerrors.ErrUnknownKernel, s))
	}
	return nil
}

func positive(name string, v float64) error {
	if v > 0 && !math.IsInf(v, 0) {
		return nil
	}
	return invalidSpec("validate", fmt.Errorf("%s must be positive and finite, got %g", name, v))
}

func invalidSpec(op string, err error) error {
	return coreerrors.WrapWithKind(coreerrors.KindInvalidInput, op, err)
}
