// Package profile provides absorption-line profile shapes.
//
// Every shape has unit peak depth at its center, so a line with depth d
// absorbs 1 - d*shape(x). Each shape exposes an evaluator and an
// equivalent-width integral in the dispersion unit.
//
// Available shapes:
//
//   - [Gaussian]:   parameter "fwhm"
//   - [Lorentzian]: parameter "scale" (half width at half maximum)
//   - [Voigt]:      parameters "fwhm" and "shape" (pseudo-Voigt mixing 0..1)
package profile

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownKind is returned by [ParseKind] for unsupported profile names.
var ErrUnknownKind = errors.New("profile: unknown kind")

// FWHMToSigma converts a full width at half maximum into the Gaussian
// width parameter.
const FWHMToSigma = 1 / 2.355

// GaussianIntegralFactor is sqrt(pi)/2.355, the equivalent width of a
// unit-depth [Gaussian] per unit FWHM. It is the established measurement
// convention and is not the area under the curve; see [GaussianAreaFactor].
const GaussianIntegralFactor = 0.752634332

// GaussianAreaFactor is sqrt(pi/(4 ln 2)), the area under a unit-depth
// Gaussian per unit FWHM.
var GaussianAreaFactor = math.Sqrt(math.Pi / (4 * math.Ln2))

// Parameter names used by the shapes.
const (
	ParamFWHM  = "fwhm"
	ParamShape = "shape"
	ParamScale = "scale"
)

// Kind identifies a profile shape.
type Kind int

const (
	KindGaussian Kind = iota
	KindVoigt
	KindLorentzian
)

func (k Kind) String() string {
	switch k {
	case KindGaussian:
		return "gaussian"
	case KindVoigt:
		return "voigt"
	case KindLorentzian:
		return "lorentzian"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a case-insensitive name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gaussian":
		return KindGaussian, nil
	case "voigt":
		return KindVoigt, nil
	case "lorentzian":
		return KindLorentzian, nil
	default:
		return 0, fmt.Errorf("%w: %q (available: gaussian, voigt, lorentzian)", ErrUnknownKind, name)
	}
}

// Shape is a stateless absorption profile.
type Shape interface {
	Kind() Kind
	// Params lists the shape parameter names in fit order.
	Params() []string
	// EvaluateInto writes the unit-depth profile centered at center to dst.
	EvaluateInto(dst, x []float64, center float64, params map[string]float64)
	// Integrate returns the integral of depth times the profile.
	Integrate(depth float64, params map[string]float64) float64
}

// For returns the Shape for a Kind.
func For(k Kind) (Shape, error) {
	switch k {
	case KindGaussian:
		return Gaussian{}, nil
	case KindVoigt:
		return Voigt{}, nil
	case KindLorentzian:
		return Lorentzian{}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, k)
	}
}

// GaussianAt evaluates exp(-(x-center)^2 / (2 sigma^2)). With
// sigma = fwhm*FWHMToSigma it equals 0.5 at center +/- fwhm/2.
func GaussianAt(center, sigma, x float64) float64 {
	u := (x - center) / sigma
	return math.Exp(-0.5 * u * u)
}

// GaussianInto evaluates [GaussianAt] for every x.
func GaussianInto(dst, x []float64, center, sigma float64) {
	inv := 1 / sigma
	for i, xi := range x {
		u := (xi - center) * inv
		dst[i] = math.Exp(-0.5 * u * u)
	}
}

// GaussianIntegral returns depth*|fwhm|*GaussianIntegralFactor.
func GaussianIntegral(depth, fwhm float64) float64 {
	return depth * math.Abs(fwhm) * GaussianIntegralFactor
}

// Gaussian is the primary line shape, parameterised by "fwhm". Integrate
// returns the conventional equivalent width, [GaussianIntegral].
type Gaussian struct{}

func (Gaussian) Kind() Kind { return KindGaussian }

func (Gaussian) Params() []string { return []string{ParamFWHM} }

func (Gaussian) EvaluateInto(dst, x []float64, center float64, params map[string]float64) {
	GaussianInto(dst, x, center, params[ParamFWHM]*FWHMToSigma)
}

func (Gaussian) Integrate(depth float64, params map[string]float64) float64 {
	return GaussianIntegral(depth, params[ParamFWHM])
}

// Lorentzian is scale^2/((x-center)^2 + scale^2).
type Lorentzian struct{}

func (Lorentzian) Kind() Kind { return KindLorentzian }

func (Lorentzian) Params() []string { return []string{ParamScale} }

func (Lorentzian) EvaluateInto(dst, x []float64, center float64, params map[string]float64) {
	lorentzianInto(dst, x, center, params[ParamScale])
}

func (Lorentzian) Integrate(depth float64, params map[string]float64) float64 {
	return depth * math.Pi * math.Abs(params[ParamScale])
}

func lorentzianInto(dst, x []float64, center, scale float64) {
	g2 := scale * scale
	for i, xi := range x {
		d := xi - center
		dst[i] = g2 / (d*d + g2)
	}
}

// Voigt is a pseudo-Voigt: shape*Lorentzian + (1-shape)*Gaussian, both with
// the same FWHM.
type Voigt struct{}

func (Voigt) Kind() Kind { return KindVoigt }

func (Voigt) Params() []string { return []string{ParamFWHM, ParamShape} }

func (Voigt) EvaluateInto(dst, x []float64, center float64, params map[string]float64) {
	fwhm, eta := params[ParamFWHM], params[ParamShape]
	sigma := fwhm * FWHMToSigma
	gamma := fwhm / 2
	g2 := gamma * gamma
	for i, xi := range x {
		d := xi - center
		u := d / sigma
		dst[i] = eta*g2/(d*d+g2) + (1-eta)*math.Exp(-0.5*u*u)
	}
}

func (Voigt) Integrate(depth float64, params map[string]float64) float64 {
	fwhm, eta := math.Abs(params[ParamFWHM]), params[ParamShape]
	return depth * (eta*math.Pi*fwhm/2 + (1-eta)*fwhm*GaussianAreaFactor)
}
