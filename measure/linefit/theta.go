package linefit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-spectro/spectro/profile"
	"github.com/cwbudde/algo-spectro/synth"
)

// Parameter names.
const (
	ParamLineDepth    = "line_depth"
	ParamFWHM         = profile.ParamFWHM
	ParamShape        = profile.ParamShape
	ParamScale        = profile.ParamScale
	ParamWavelength   = "wavelength"
	ParamBlendingFWHM = "blending_fwhm"

	ParamOutlierFraction = "outlier_fraction"
	ParamOutlierMean     = "outlier_mean"
	ParamOutlierVariance = "outlier_variance"

	ParamEffectiveTemperature = "effective_temperature"
	ParamSurfaceGravity       = "surface_gravity"
	ParamMetallicity          = "metallicity"
	ParamMicroturbulence      = "microturbulence"
)

const continuumPrefix = "continuum."

// StellarParameterNames lists the keys a blended fit needs in its seed.
var StellarParameterNames = []string{
	ParamEffectiveTemperature,
	ParamSurfaceGravity,
	ParamMetallicity,
	ParamMicroturbulence,
}

// ContinuumParam returns the name of the i-th continuum coefficient,
// counted from the highest power.
func ContinuumParam(i int) string {
	return continuumPrefix + strconv.Itoa(i)
}

// IsContinuumParam reports whether name is a continuum coefficient.
func IsContinuumParam(name string) bool {
	return strings.HasPrefix(name, continuumPrefix)
}

// Theta is a named parameter vector. It marshals to a JSON object.
type Theta map[string]float64

// Clone returns a copy of t.
func (t Theta) Clone() Theta {
	out := make(Theta, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Has reports whether name is set.
func (t Theta) Has(name string) bool {
	_, ok := t[name]
	return ok
}

// Keys returns the parameter names in sorted order.
func (t Theta) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Continuum returns the coefficients continuum.0..continuum.order and
// whether all of them are present.
func (t Theta) Continuum(order int) ([]float64, bool) {
	coef := make([]float64, order+1)
	for i := range coef {
		v, ok := t[ContinuumParam(i)]
		if !ok {
			return nil, false
		}
		coef[i] = v
	}
	return coef, true
}

// SetContinuum stores coef as continuum.0..continuum.N.
func (t Theta) SetContinuum(coef []float64) {
	for i, c := range coef {
		t[ContinuumParam(i)] = c
	}
}

// StellarParameters extracts the stellar parameters. All four must be
// present.
func (t Theta) StellarParameters() (synth.StellarParameters, error) {
	var missing []string
	for _, k := range StellarParameterNames {
		if !t.Has(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return synth.StellarParameters{}, fmt.Errorf("%w: missing %s", ErrMissingStellarParameters, strings.Join(missing, ", "))
	}
	return synth.StellarParameters{
		EffectiveTemperature: t[ParamEffectiveTemperature],
		SurfaceGravity:       t[ParamSurfaceGravity],
		Metallicity:          t[ParamMetallicity],
		Microturbulence:      t[ParamMicroturbulence],
	}, nil
}

// EquivalentWidth returns the Gaussian equivalent width in milli-Angstrom
// implied by line_depth and fwhm.
func (t Theta) EquivalentWidth() (float64, error) {
	depth, ok := t[ParamLineDepth]
	if !ok {
		return 0, fmt.Errorf("%w: theta has no %s", ErrPrecondition, ParamLineDepth)
	}
	fwhm, ok := t[ParamFWHM]
	if !ok {
		return 0, fmt.Errorf("%w: theta has no %s", ErrPrecondition, ParamFWHM)
	}
	return 1000 * profile.GaussianIntegral(depth, fwhm), nil
}
