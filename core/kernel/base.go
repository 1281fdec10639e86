package kernel

import (
	"fmt"
	"math"

	"github.com/viterin/vek"
)

var (
	_ Kernel = (*Constant)(nil)
	_ Kernel = (*RBF)(nil)
	_ Kernel = (*ExpSineSquared)(nil)
	_ Kernel = (*RationalQuadratic)(nil)
	_ Kernel = (*DotProduct)(nil)
)

// Constant is k(a, b) = Value. Inside a Product it acts as an output scale.
type Constant struct {
	Value float64
}

func (k *Constant) Eval(_, _ []float64) float64 { return k.Value }
func (k *Constant) Theta() []float64            { return []float64{math.Log(k.Value)} }
func (k *Constant) Bounds() []Bounds            { return defaultBounds(1) }
func (k *Constant) NumParams() int              { return 1 }
func (k *Constant) String() string              { return fmt.Sprintf("%.3g", k.Value) }

func (k *Constant) WithTheta(theta []float64) (Kernel, error) {
	if err := checkTheta("constant", theta, 1); err != nil {
		return nil, err
	}
	return &Constant{Value: math.Exp(theta[0])}, nil
}

// RBF is the squared-exponential kernel exp(-d² / 2l²).
type RBF struct {
	LengthScale float64
}

func (k *RBF) Eval(a, b []float64) float64 {
	return math.Exp(-0.5 * sqDist(a, b) / (k.LengthScale * k.LengthScale))
}

func (k *RBF) Theta() []float64 { return []float64{math.Log(k.LengthScale)} }
func (k *RBF) Bounds() []Bounds { return defaultBounds(1) }
func (k *RBF) NumParams() int   { return 1 }
func (k *RBF) String() string   { return fmt.Sprintf("RBF(length_scale=%.3g)", k.LengthScale) }

func (k *RBF) WithTheta(theta []float64) (Kernel, error) {
	if err := checkTheta("rbf", theta, 1); err != nil {
		return nil, err
	}
	return &RBF{LengthScale: math.Exp(theta[0])}, nil
}

// ExpSineSquared is the periodic kernel exp(-2 sin²(π d / p) / l²).
type ExpSineSquared struct {
	LengthScale float64
	Periodicity float64
}

func (k *ExpSineSquared) Eval(a, b []float64) float64 {
	d := math.Sqrt(sqDist(a, b))
	s := math.Sin(math.Pi * d / k.Periodicity)
	return math.Exp(-2 * s * s / (k.LengthScale * k.LengthScale))
}

func (k *ExpSineSquared) Theta() []float64 {
	return []float64{math.Log(k.LengthScale), math.Log(k.Periodicity)}
}

func (k *ExpSineSquared) Bounds() []Bounds { return defaultBounds(2) }
func (k *ExpSineSquared) NumParams() int   { return 2 }

func (k *ExpSineSquared) String() string {
	return fmt.Sprintf("ExpSineSquared(length_scale=%.3g, periodicity=%.3g)", k.LengthScale, k.Periodicity)
}

func (k *ExpSineSquared) WithTheta(theta []float64) (Kernel, error) {
	if err := checkTheta("exp_sine_squared", theta, 2); err != nil {
		return nil, err
	}
	return &ExpSineSquared{LengthScale: math.Exp(theta[0]), Periodicity: math.Exp(theta[1])}, nil
}

// RationalQuadratic is (1 + d² / 2αl²)^-α, a scale mixture of RBF kernels.
type RationalQuadratic struct {
	LengthScale float64
	Alpha       float64
}

func (k *RationalQuadratic) Eval(a, b []float64) float64 {
	base := 1 + sqDist(a, b)/(2*k.Alpha*k.LengthScale*k.LengthScale)
	return math.Pow(base, -k.Alpha)
}

func (k *RationalQuadratic) Theta() []float64 {
	return []float64{math.Log(k.LengthScale), math.Log(k.Alpha)}
}

func (k *RationalQuadratic) Bounds() []Bounds { return defaultBounds(2) }
func (k *RationalQuadratic) NumParams() int   { return 2 }

func (k *RationalQuadratic) String() string {
	return fmt.Sprintf("RationalQuadratic(length_scale=%.3g, alpha=%.3g)", k.LengthScale, k.Alpha)
}

func (k *RationalQuadratic) WithTheta(theta []float64) (Kernel, error) {
	if err := checkTheta("rational_quadratic", theta, 2); err != nil {
		return nil, err
	}
	return &RationalQuadratic{LengthScale: math.Exp(theta[0]), Alpha: math.Exp(theta[1])}, nil
}

// DotProduct is the linear kernel σ0² + a·b.
type DotProduct struct {
	Sigma0 float64
}

func (k *DotProduct) Eval(a, b []float64) float64 {
	return k.Sigma0*k.Sigma0 + vek.Dot(a, b)
}

func (k *DotProduct) Theta() []float64 { return []float64{math.Log(k.Sigma0)} }
func (k *DotProduct) Bounds() []Bounds { return defaultBounds(1) }
func (k *DotProduct) NumParams() int   { return 1 }
func (k *DotProduct) String() string   { return fmt.Sprintf("DotProduct(sigma_0=%.3g)", k.Sigma0) }

func (k *DotProduct) WithTheta(theta []float64) (Kernel, error) {
	if err := checkTheta("dot_product", theta, 1); err != nil {
		return nil, err
	}
	return &DotProduct{Sigma0: math.Exp(theta[0])}, nil
}
