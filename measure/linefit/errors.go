package linefit

import "errors"

// Error classes. Every error returned by [Fit] matches exactly one class
// with errors.Is, plus the more specific sentinel where one exists.
var (
	// ErrConfiguration reports invalid options or an unsupported profile name.
	ErrConfiguration = errors.New("linefit: configuration error")
	// ErrPrecondition reports data that cannot be fitted as requested.
	ErrPrecondition = errors.New("linefit: precondition failed")
	// ErrMissingStellarParameters reports a blended transition fitted
	// without effective temperature, surface gravity, metallicity and
	// microturbulence.
	ErrMissingStellarParameters = errors.New("linefit: stellar parameters required for blending synthesis")
	// ErrCannotEstimateFWHM reports that no half-maximum crossing was found
	// on either side of the line.
	ErrCannotEstimateFWHM = errors.New("linefit: cannot estimate initial fwhm")
	// ErrInvalidSeed reports a non-finite initial parameter or objective.
	ErrInvalidSeed = errors.New("linefit: invalid initial parameters")
	// ErrSynthesis wraps failures of the blending synthesiser.
	ErrSynthesis = errors.New("linefit: blending synthesis failed")
	// ErrNotImplemented reports a recognised but unsupported profile kind.
	ErrNotImplemented = errors.New("linefit: not implemented")
	// ErrNotMeasured is returned by transition accessors before a fit.
	ErrNotMeasured = errors.New("linefit: equivalent width not measured")
)

// Specific sentinels; each unwraps to its class.
var (
	ErrOutOfBounds         = classified(ErrPrecondition, "transition outside the data range")
	ErrNoFiniteData        = classified(ErrPrecondition, "no finite data around the transition")
	ErrInvalidWavelength   = classified(ErrConfiguration, "wavelength must be finite and > 0")
	ErrInvalidOrder        = classified(ErrConfiguration, "continuum order must be >= 0")
	ErrInvalidSurrounding  = classified(ErrConfiguration, "surrounding must be finite and > 0")
	ErrUnknownParameter    = classified(ErrConfiguration, "constraint on unknown parameter")
	ErrInvalidOption       = classified(ErrConfiguration, "invalid option value")
	ErrSynthesizerRequired = classified(ErrConfiguration, "blending transitions need a synthesizer")
)

type classError struct {
	class error
	msg   string
}

func classified(class error, msg string) error {
	return &classError{class: class, msg: msg}
}

func (e *classError) Error() string { return "linefit: " + e.msg }

func (e *classError) Unwrap() error { return e.class }
