// Package synth defines the collaborators that produce synthetic comparison
// spectra: model atmospheres, line lists and the spectral synthesiser.
//
// Synthesis itself happens outside this module. Callers plug in any
// implementation of [Synthesizer], or wrap a function with [Func].
package synth

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-spectro/spectro/spectrum"
)

// Line-list defaults applied by [Line.WithDefaults].
const (
	DefaultSynthesiseSurrounding = 1.5
	DefaultOpacityContribution   = 1.0
	DefaultOversample            = 4
)

var (
	// ErrInvalidRequest is returned by [Request.Validate].
	ErrInvalidRequest = errors.New("synth: invalid request")
	// ErrInvalidAtmosphere is returned by [Atmosphere.Validate].
	ErrInvalidAtmosphere = errors.New("synth: invalid atmosphere")
)

// Line is one atomic transition of a line list.
type Line struct {
	Wavelength            float64 `json:"wavelength" yaml:"wavelength"`
	Species               float64 `json:"species" yaml:"species"`
	ExcitationPotential   float64 `json:"excitation_potential" yaml:"excitation_potential"`
	LogGF                 float64 `json:"loggf" yaml:"loggf"`
	VanDerWaalsBroadening float64 `json:"van_der_waals_broadening" yaml:"van_der_waals_broadening"`
	Damp2                 float64 `json:"damp2" yaml:"damp2"`
	// SynthesiseSurrounding is the half width in Angstrom around the line
	// the synthesiser should include it for.
	SynthesiseSurrounding float64 `json:"synthesise_surrounding" yaml:"synthesise_surrounding"`
	OpacityContribution   float64 `json:"opacity_contribution" yaml:"opacity_contribution"`
}

// WithDefaults fills zero SynthesiseSurrounding and OpacityContribution.
func (l Line) WithDefaults() Line {
	if l.SynthesiseSurrounding == 0 {
		l.SynthesiseSurrounding = DefaultSynthesiseSurrounding
	}
	if l.OpacityContribution == 0 {
		l.OpacityContribution = DefaultOpacityContribution
	}
	return l
}

// StellarParameters are the global parameters of the star.
type StellarParameters struct {
	EffectiveTemperature float64 `json:"effective_temperature"`
	SurfaceGravity       float64 `json:"surface_gravity"`
	Metallicity          float64 `json:"metallicity"`
	Microturbulence      float64 `json:"microturbulence"`
}

// DepthPoint is one layer of a model atmosphere.
type DepthPoint struct {
	Temperature float64
	Pressure    float64
	Density     float64
	Opacity     float64
}

// Atmosphere is a model photosphere: stellar parameters plus the layer
// structure.
type Atmosphere struct {
	StellarParameters
	// AlphaEnhancement is nil when the model does not specify it.
	AlphaEnhancement *float64
	Depths           []DepthPoint
}

// Validate checks that the atmosphere has finite parameters and at least
// one layer.
func (a *Atmosphere) Validate() error {
	p := a.StellarParameters
	for name, v := range map[string]float64{
		"effective_temperature": p.EffectiveTemperature,
		"surface_gravity":       p.SurfaceGravity,
		"metallicity":           p.Metallicity,
		"microturbulence":       p.Microturbulence,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidAtmosphere, name)
		}
	}
	if p.EffectiveTemperature <= 0 {
		return fmt.Errorf("%w: effective temperature must be > 0", ErrInvalidAtmosphere)
	}
	if len(a.Depths) == 0 {
		return fmt.Errorf("%w: no depth points", ErrInvalidAtmosphere)
	}
	return nil
}

// Request asks for a synthetic spectrum over [Min, Max].
type Request struct {
	Stellar StellarParameters
	// Atmosphere is optional; synthesisers that interpolate their own
	// model grid use Stellar.
	Atmosphere *Atmosphere
	Lines      []Line
	Min        float64
	Max        float64
	// WavelengthStep is the observed pixel size; the synthesiser samples
	// WavelengthStep/Oversample.
	WavelengthStep float64
	Oversample     int
}

// Step returns the sampling step of the synthetic spectrum.
func (r Request) Step() float64 {
	over := r.Oversample
	if over <= 0 {
		over = DefaultOversample
	}
	return r.WavelengthStep / float64(over)
}

// Validate checks the request for consistency.
func (r Request) Validate() error {
	switch {
	case !(r.Max > r.Min):
		return fmt.Errorf("%w: empty range [%g, %g]", ErrInvalidRequest, r.Min, r.Max)
	case !(r.WavelengthStep > 0) || math.IsInf(r.WavelengthStep, 0):
		return fmt.Errorf("%w: wavelength step %g", ErrInvalidRequest, r.WavelengthStep)
	case r.Oversample < 0:
		return fmt.Errorf("%w: oversample %d", ErrInvalidRequest, r.Oversample)
	case len(r.Lines) == 0:
		return fmt.Errorf("%w: no lines", ErrInvalidRequest)
	}
	if r.Atmosphere != nil {
		return r.Atmosphere.Validate()
	}
	return nil
}

// Synthesizer produces a normalised synthetic spectrum for a request.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (spectrum.Curve, error)
}

// Func adapts a function to the [Synthesizer] interface.
type Func func(ctx context.Context, req Request) (spectrum.Curve, error)

// Synthesize calls f.
func (f Func) Synthesize(ctx context.Context, req Request) (spectrum.Curve, error) {
	return f(ctx, req)
}
