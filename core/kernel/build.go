package kernel

import (
	"fmt"

	coreerrors "github.com/adalundhe/autostat/core/errors"
	"github.com/adalundhe/autostat/core/kernelspec"
)

// Build turns a spec into a kernel. Sums become Sum, products become a
// Product led by a Constant carrying the scalar, and base specs map to their
// kernels one to one, so Build(s).NumParams() == s.NumParams().
func Build(spec kernelspec.KernelSpec) (Kernel, error) {
	if err := kernelspec.Validate(spec); err != nil {
		return nil, err
	}
	return build(spec)
}

func build(spec kernelspec.KernelSpec) (Kernel, error) {
	switch s := spec.(type) {
	case *kernelspec.AdditiveSpec:
		terms := make([]Kernel, 0, len(s.Operands))
		for _, op := range s.Operands {
			t, err := build(op)
			if err != nil {
				return nil, err
			}
			terms = append(terms, t)
		}
		return &Sum{Terms: terms}, nil
	case *kernelspec.ProductSpec:
		factors := make([]Kernel, 0, len(s.Operands)+1)
		factors = append(factors, &Constant{Value: s.Scalar})
		for _, op := range s.Operands {
			f, err := build(op)
			if err != nil {
				return nil, err
			}
			factors = append(factors, f)
		}
		return &Product{Factors: factors}, nil
	case *kernelspec.RBFSpec:
		return &RBF{LengthScale: s.LengthScale}, nil
	case *kernelspec.PeriodicSpec:
		return &ExpSineSquared{LengthScale: s.LengthScale, Periodicity: s.Period}, nil
	case *kernelspec.RQSpec:
		return &RationalQuadratic{LengthScale: s.LengthScale, Alpha: s.Alpha}, nil
	case *kernelspec.LinearSpec:
		return &DotProduct{Sigma0: s.Sigma0}, nil
	default:
		return nil, unsupported("build", spec)
	}
}

// ToSpec translates a kernel back into spec form. The root may be a Sum or
// a single scaled Product; every Product must carry exactly one Constant.
func ToSpec(k Kernel) (kernelspec.TopLevelKernelSpec, error) {
	switch v := k.(type) {
	case *Sum:
		return sumToSpec(v)
	case *Product:
		p, err := productToSpec(v)
		if err != nil {
			return nil, err
		}
		return &kernelspec.AdditiveSpec{Operands: []*kernelspec.ProductSpec{p}}, nil
	default:
		return nil, coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "to spec",
			fmt.Errorf("root kernel %s has no output scale", k))
	}
}

func sumToSpec(s *Sum) (*kernelspec.AdditiveSpec, error) {
	out := &kernelspec.AdditiveSpec{Operands: make([]*kernelspec.ProductSpec, 0, len(s.Terms))}
	for _, t := range s.Terms {
		p, ok := t.(*Product)
		if !ok {
			return nil, coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "to spec",
				fmt.Errorf("sum term %s is not a scaled product", t))
		}
		ps, err := productToSpec(p)
		if err != nil {
			return nil, err
		}
		out.Operands = append(out.Operands, ps)
	}
	return out, nil
}

func productToSpec(p *Product) (*kernelspec.ProductSpec, error) {
	out := &kernelspec.ProductSpec{}
	scaled := false
	for _, f := range p.Factors {
		switch v := f.(type) {
		case *Constant:
			if scaled {
				return nil, coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "to spec",
					fmt.Errorf("product %s has more than one constant", p))
			}
			out.Scalar = v.Value
			scaled = true
		case *Sum:
			inner, err := sumToSpec(v)
			if err != nil {
				return nil, err
			}
			out.Operands = append(out.Operands, inner)
		case *Product:
			inner, err := productToSpec(v)
			if err != nil {
				return nil, err
			}
			out.Operands = append(out.Operands, inner)
		default:
			base, err := baseToSpec(f)
			if err != nil {
				return nil, err
			}
			out.Operands = append(out.Operands, base)
		}
	}
	if !scaled {
		return nil, coreerrors.WrapWithKind(coreerrors.KindInvalidInput, "to spec",
			fmt.Errorf("product %s has no constant", p))
	}
	return out, nil
}

func baseToSpec(k Kernel) (kernelspec.KernelSpec, error) {
	switch v := k.(type) {
	case *RBF:
		return &kernelspec.RBFSpec{LengthScale: v.LengthScale}, nil
	case *ExpSineSquared:
		return &kernelspec.PeriodicSpec{LengthScale: v.LengthScale, Period: v.Periodicity}, nil
	case *RationalQuadratic:
		return &kernelspec.RQSpec{LengthScale: v.LengthScale, Alpha: v.Alpha}, nil
	case *DotProduct:
		return &kernelspec.LinearSpec{Sigma0: v.Sigma0}, nil
	default:
		return nil, unsupported("to spec", k)
	}
}

func unsupported(op string, v any) error {
	return coreerrors.WrapWithKind(coreerrors.KindInvalidInput, op,
		fmt.Errorf("%w: %T", coreerrors.ErrUnknownKernel, v))
}
