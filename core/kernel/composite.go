package kernel

import (
	"strings"
)

var (
	_ Kernel = (*Sum)(nil)
	_ Kernel = (*Product)(nil)
)

// Sum is k(a, b) = Σ terms.
type Sum struct {
	Terms []Kernel
}

func (k *Sum) Eval(a, b []float64) float64 {
	var v float64
	for _, t := range k.Terms {
		v += t.Eval(a, b)
	}
	return v
}

func (k *Sum) Theta() []float64 { return concatTheta(k.Terms) }
func (k *Sum) Bounds() []Bounds { return concatBounds(k.Terms) }
func (k *Sum) NumParams() int   { return countParams(k.Terms) }
func (k *Sum) String() string   { return join(k.Terms, " + ") }

func (k *Sum) WithTheta(theta []float64) (Kernel, error) {
	terms, err := splitTheta("sum", k.Terms, theta)
	if err != nil {
		return nil, err
	}
	return &Sum{Terms: terms}, nil
}

// Product is k(a, b) = Π factors.
type Product struct {
	Factors []Kernel
}

func (k *Product) Eval(a, b []float64) float64 {
	v := 1.0
	for _, f := range k.Factors {
		v *= f.Eval(a, b)
	}
	return v
}

func (k *Product) Theta() []float64 { return concatTheta(k.Factors) }
func (k *Product) Bounds() []Bounds { return concatBounds(k.Factors) }
func (k *Product) NumParams() int   { return countParams(k.Factors) }

func (k *Product) String() string {
	parts := make([]string, len(k.Factors))
	for i, f := range k.Factors {
		if _, ok := f.(*Sum); ok {
			parts[i] = "(" + f.String() + ")"
			continue
		}
		parts[i] = f.String()
	}
	return strings.Join(parts, " * ")
}

func (k *Product) WithTheta(theta []float64) (Kernel, error) {
	factors, err := splitTheta("product", k.Factors, theta)
	if err != nil {
		return nil, err
	}
	return &Product{Factors: factors}, nil
}

func concatTheta(ks []Kernel) []float64 {
	var theta []float64
	for _, k := range ks {
		theta = append(theta, k.Theta()...)
	}
	return theta
}

func concatBounds(ks []Kernel) []Bounds {
	var b []Bounds
	for _, k := range ks {
		b = append(b, k.Bounds()...)
	}
	return b
}

func countParams(ks []Kernel) int {
	n := 0
	for _, k := range ks {
		n += k.NumParams()
	}
	return n
}

func splitTheta(name string, ks []Kernel, theta []float64) ([]Kernel, error) {
	if err := checkTheta(name, theta, countParams(ks)); err != nil {
		return nil, err
	}
	out := make([]Kernel, len(ks))
	offset := 0
	for i, k := range ks {
		n := k.NumParams()
		next, err := k.WithTheta(theta[offset : offset+n])
		if err != nil {
			return nil, err
		}
		out[i] = next
		offset += n
	}
	return out, nil
}

func join(ks []Kernel, sep string) string {
	parts := make([]string, len(ks))
	for i, k := range ks {
		parts[i] = k.String()
	}
	return strings.Join(parts, sep)
}
