package linefit

import (
	"fmt"
	"math"
	"sync"

	"github.com/cwbudde/algo-spectro/spectro/species"
	"github.com/cwbudde/algo-spectro/spectro/spectrum"
	"github.com/cwbudde/algo-spectro/synth"
)

// TransitionSpec describes an atomic transition. Only Wavelength is
// required.
type TransitionSpec struct {
	Wavelength          float64
	Species             species.Spec
	ExcitationPotential *float64
	LogGF               *float64
	// BlendingTransitions are synthesised and smoothed into the model.
	BlendingTransitions []synth.Line
	// Mask lists dispersion ranges excluded from every fit.
	Mask []spectrum.Interval
	// ContinuumRegions restricts the continuum fit to these ranges.
	ContinuumRegions      []spectrum.Interval
	VanDerWaalsBroadening float64
}

// AtomicTransition is an immutable transition description plus the result
// of its most recent fit. Results may be read while another goroutine
// fits the transition.
type AtomicTransition struct {
	wavelength          float64
	species             species.Species
	excitationPotential *float64
	logGF               *float64
	blending            []synth.Line
	mask                []spectrum.Interval
	continuumRegions    []spectrum.Interval
	vanDerWaals         float64

	mu   sync.RWMutex
	last *FitResult
}

// NewTransition validates spec and resolves its species.
func NewTransition(spec TransitionSpec) (*AtomicTransition, error) {
	if !(spec.Wavelength > 0) || math.IsInf(spec.Wavelength, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWavelength, spec.Wavelength)
	}
	sp, err := species.Parse(spec.Species)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	tr := &AtomicTransition{
		wavelength:          spec.Wavelength,
		species:             sp,
		excitationPotential: copyFloat(spec.ExcitationPotential),
		logGF:               copyFloat(spec.LogGF),
		mask:                append([]spectrum.Interval(nil), spec.Mask...),
		continuumRegions:    append([]spectrum.Interval(nil), spec.ContinuumRegions...),
		vanDerWaals:         spec.VanDerWaalsBroadening,
	}
	for _, l := range spec.BlendingTransitions {
		tr.blending = append(tr.blending, l.WithDefaults())
	}
	return tr, nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Wavelength returns the rest wavelength in Angstrom.
func (t *AtomicTransition) Wavelength() float64 { return t.wavelength }

// Species returns the resolved species; it is the zero value when unset.
func (t *AtomicTransition) Species() species.Species { return t.species }

// Element returns the element symbol, or "" when unspecified.
func (t *AtomicTransition) Element() string { return t.species.Element }

// AtomicNumber returns Z, or 0 when unspecified.
func (t *AtomicTransition) AtomicNumber() int { return t.species.AtomicNumber }

// IonisationLevel returns 1 for neutral species, or 0 when unspecified.
func (t *AtomicTransition) IonisationLevel() int { return t.species.Ionisation }

// SpeciesCode returns the packed code Z + (ion-1)/10, or 0 when unspecified.
func (t *AtomicTransition) SpeciesCode() float64 { return t.species.Code }

// ExcitationPotential returns the lower-level excitation potential in eV.
func (t *AtomicTransition) ExcitationPotential() (float64, bool) {
	if t.excitationPotential == nil {
		return 0, false
	}
	return *t.excitationPotential, true
}

// LogGF returns the oscillator strength.
func (t *AtomicTransition) LogGF() (float64, bool) {
	if t.logGF == nil {
		return 0, false
	}
	return *t.logGF, true
}

// VanDerWaalsBroadening returns the damping constant.
func (t *AtomicTransition) VanDerWaalsBroadening() float64 { return t.vanDerWaals }

// BlendingTransitions returns a copy of the blending line list.
func (t *AtomicTransition) BlendingTransitions() []synth.Line {
	return append([]synth.Line(nil), t.blending...)
}

// HasBlending reports whether the transition has blending transitions.
func (t *AtomicTransition) HasBlending() bool { return len(t.blending) > 0 }

// Mask returns a copy of the excluded dispersion ranges.
func (t *AtomicTransition) Mask() []spectrum.Interval {
	return append([]spectrum.Interval(nil), t.mask...)
}

// ContinuumRegions returns a copy of the continuum regions.
func (t *AtomicTransition) ContinuumRegions() []spectrum.Interval {
	return append([]spectrum.Interval(nil), t.continuumRegions...)
}

// String renders e.g. "Fe II at 4720.1 Å".
func (t *AtomicTransition) String() string {
	name := "Unspecified transition"
	if t.species.Known() {
		name = t.species.String()
	}
	return fmt.Sprintf("%s at %.1f Å", name, t.wavelength)
}

// LastFit returns the most recent fit result, or nil.
func (t *AtomicTransition) LastFit() *FitResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// EquivalentWidth returns the most recently measured equivalent width in
// milli-Angstrom.
func (t *AtomicTransition) EquivalentWidth() (float64, bool) {
	last := t.LastFit()
	if last == nil {
		return 0, false
	}
	return last.EquivalentWidth, true
}

// ReducedEquivalentWidth returns log(EW/wavelength) with EW in
// milli-Angstrom and the wavelength in Angstrom.
func (t *AtomicTransition) ReducedEquivalentWidth() (float64, error) {
	ew, ok := t.EquivalentWidth()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotMeasured, t)
	}
	return math.Log(ew / t.wavelength), nil
}

func (t *AtomicTransition) record(res *FitResult) {
	t.mu.Lock()
	t.last = res
	t.mu.Unlock()
}
