package linefit

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-spectro/measure/outlier"
	"github.com/cwbudde/algo-spectro/spectro/profile"
	"github.com/cwbudde/algo-spectro/synth"
)

// Defaults.
const (
	DefaultSurrounding        = 2.0
	DefaultXTol               = 1e-5
	DefaultFTol               = 1e-5
	DefaultLineDepthTolerance = 1e-3
	DefaultOversample         = synth.DefaultOversample
	// maxIterationsPerParam scales the Nelder-Mead budget with the number of
	// free parameters.
	maxIterationsPerParam = 200
	// minFinitePixels is the smallest window that is fitted.
	minFinitePixels = 5
)

// Strategy selects the objective minimised by [Fit].
type Strategy int

const (
	// StrategyIterative minimises chi-square with continuum/outlier
	// refinement rounds.
	StrategyIterative Strategy = iota
	// StrategyMixture minimises a two-component mixture likelihood with a
	// broad background for outliers.
	StrategyMixture
)

func (s Strategy) String() string {
	switch s {
	case StrategyIterative:
		return "iterative"
	case StrategyMixture:
		return "mixture"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps "iterative" or "mixture" to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "iterative", "":
		return StrategyIterative, nil
	case "mixture":
		return StrategyMixture, nil
	default:
		return 0, fmt.Errorf("%w: strategy %q", ErrInvalidOption, name)
	}
}

// Recorder receives one observation per fit.
type Recorder interface {
	RecordFit(strategy string, converged bool, iterations, evaluations int, elapsed time.Duration)
	RecordFailure(strategy string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordFit(string, bool, int, int, time.Duration) {}
func (nopRecorder) RecordFailure(string, error)                    {}

// Bounds is an optional lower/upper constraint; nil means unbounded.
type Bounds struct {
	Lower *float64
	Upper *float64
}

// Allows reports whether v satisfies the bounds.
func (b Bounds) Allows(v float64) bool {
	if b.Lower != nil && v < *b.Lower {
		return false
	}
	if b.Upper != nil && v > *b.Upper {
		return false
	}
	return true
}

// Limit returns a pointer to v, for use with [WithConstraint].
func Limit(v float64) *float64 { return &v }

// Option configures [Fit].
type Option func(*config)

type config struct {
	initial            Theta
	kind               profile.Kind
	continuumOrder     int
	hasContinuumOrder  bool
	surrounding        float64
	constraints        map[string]Bounds
	strategy           Strategy
	oversample         int
	wavelengthStep     float64
	synthesizer        synth.Synthesizer
	atmosphere         *synth.Atmosphere
	logger             zerolog.Logger
	maxIterations      int
	xtol, ftol         float64
	lineDepthTolerance float64
	detectNearbyLines  bool
	wavelengthTol      float64
	centralWeighting   bool
	clipSigma          float64
	masker             outlier.Masker
	recorder           Recorder
	errs               []error
}

func defaultConfig() *config {
	return &config{
		kind:               profile.KindGaussian,
		surrounding:        DefaultSurrounding,
		constraints:        map[string]Bounds{},
		strategy:           StrategyIterative,
		oversample:         DefaultOversample,
		logger:             zerolog.Nop(),
		xtol:               DefaultXTol,
		ftol:               DefaultFTol,
		lineDepthTolerance: DefaultLineDepthTolerance,
		detectNearbyLines:  true,
		masker:             outlier.Masker{Rounds: outlier.DefaultRounds},
		recorder:           nopRecorder{},
	}
}

func (c *config) fail(format string, args ...any) {
	c.errs = append(c.errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidOption}, args...)...))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// WithInitialTheta supplies seed values. Supplied line_depth and fwhm are
// never re-estimated; stellar parameters are required for blended lines.
func WithInitialTheta(theta Theta) Option {
	return func(c *config) { c.initial = theta.Clone() }
}

// WithKind selects the profile shape. Only Gaussian is fitted; other kinds
// fail with ErrNotImplemented.
func WithKind(k profile.Kind) Option {
	return func(c *config) { c.kind = k }
}

// WithContinuumOrder enables a polynomial continuum of the given order.
func WithContinuumOrder(order int) Option {
	return func(c *config) {
		c.continuumOrder = order
		c.hasContinuumOrder = true
	}
}

// WithSurrounding sets the half width in Angstrom of the fitted window.
func WithSurrounding(angstrom float64) Option {
	return func(c *config) { c.surrounding = angstrom }
}

// WithConstraint bounds a parameter. A constraint on "wavelength" also
// makes the wavelength a free parameter.
func WithConstraint(name string, lower, upper *float64) Option {
	return func(c *config) {
		c.constraints[name] = Bounds{Lower: copyFloat(lower), Upper: copyFloat(upper)}
	}
}

// WithStrategy selects the objective.
func WithStrategy(s Strategy) Option {
	return func(c *config) { c.strategy = s }
}

// WithOversample sets the synthesis oversampling factor relative to the
// observed pixel size.
func WithOversample(n int) Option {
	return func(c *config) {
		if n <= 0 {
			c.fail("oversample %d", n)
			return
		}
		c.oversample = n
	}
}

// WithWavelengthStep overrides the observed pixel size passed to the
// synthesiser.
func WithWavelengthStep(step float64) Option {
	return func(c *config) {
		if !(step > 0) || !finite(step) {
			c.fail("wavelength step %g", step)
			return
		}
		c.wavelengthStep = step
	}
}

// WithSynthesizer sets the synthesiser used for blending transitions.
func WithSynthesizer(s synth.Synthesizer) Option {
	return func(c *config) { c.synthesizer = s }
}

// WithAtmosphere attaches a model photosphere to synthesis requests.
func WithAtmosphere(a *synth.Atmosphere) Option {
	return func(c *config) { c.atmosphere = a }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMaxIterations caps Nelder-Mead iterations and function evaluations.
// Zero uses 200 per free parameter.
func WithMaxIterations(n int) Option {
	return func(c *config) {
		if n < 0 {
			c.fail("max iterations %d", n)
			return
		}
		c.maxIterations = n
	}
}

// WithTolerance sets the simplex spread tolerances in parameters and
// objective value.
func WithTolerance(xtol, ftol float64) Option {
	return func(c *config) {
		if !(xtol > 0) || !(ftol > 0) || !finite(xtol) || !finite(ftol) {
			c.fail("tolerance xtol=%g ftol=%g", xtol, ftol)
			return
		}
		c.xtol, c.ftol = xtol, ftol
	}
}

// WithLineDepthTolerance sets the clip margin of the line depth seed.
func WithLineDepthTolerance(tol float64) Option {
	return func(c *config) {
		if !(tol > 0 && tol < 0.5) {
			c.fail("line depth tolerance %g", tol)
			return
		}
		c.lineDepthTolerance = tol
	}
}

// WithDetectNearbyLines toggles the outlier masker.
func WithDetectNearbyLines(on bool) Option {
	return func(c *config) { c.detectNearbyLines = on }
}

// WithWavelengthTolerance frees the line center within +/- tol Angstrom of
// the nominal wavelength. The center is seeded at the flux minimum inside
// that range and the fit never leaves it. Zero keeps the center fixed.
func WithWavelengthTolerance(tol float64) Option {
	return func(c *config) {
		if !(tol >= 0) || !finite(tol) {
			c.fail("wavelength tolerance %g", tol)
			return
		}
		c.wavelengthTol = tol
	}
}

// WithCentralWeighting scales each pixel variance by 4*(x - wavelength)^2,
// which favours pixels near the line center. A pixel exactly at the center
// gets zero variance and drops out of the fit.
func WithCentralWeighting(on bool) Option {
	return func(c *config) { c.centralWeighting = on }
}

// WithClipSigma refits once without the pixels that lie k or more
// standard deviations from the first fit. Zero disables clipping.
func WithClipSigma(k float64) Option {
	return func(c *config) {
		if !(k >= 0) || !finite(k) {
			c.fail("clip sigma %g", k)
			return
		}
		c.clipSigma = k
	}
}

// WithMaskRounds sets the number of continuum/masker refinement rounds.
func WithMaskRounds(n int) Option {
	return func(c *config) {
		if n <= 0 {
			c.fail("mask rounds %d", n)
			return
		}
		c.masker.Rounds = n
	}
}

// WithMasker replaces the outlier masker configuration.
func WithMasker(m outlier.Masker) Option {
	return func(c *config) { c.masker = m }
}

// WithMetrics reports every fit to r.
func WithMetrics(r Recorder) Option {
	return func(c *config) {
		if r == nil {
			r = nopRecorder{}
		}
		c.recorder = r
	}
}

// validate checks option values that depend on each other.
func (c *config) validate() error {
	if len(c.errs) > 0 {
		return c.errs[0]
	}
	if c.hasContinuumOrder && c.continuumOrder < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOrder, c.continuumOrder)
	}
	if !(c.surrounding > 0) || math.IsInf(c.surrounding, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidSurrounding, c.surrounding)
	}
	switch c.kind {
	case profile.KindGaussian:
	case profile.KindVoigt, profile.KindLorentzian:
		return fmt.Errorf("%w: %s profile", ErrNotImplemented, c.kind)
	default:
		return fmt.Errorf("%w: %w", ErrConfiguration, profile.ErrUnknownKind)
	}
	switch c.strategy {
	case StrategyIterative, StrategyMixture:
	default:
		return fmt.Errorf("%w: %v", ErrInvalidOption, c.strategy)
	}
	return nil
}
