package linefit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cwbudde/algo-vecmath"
	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-spectro/internal/poly"
	"github.com/cwbudde/algo-spectro/measure/continuum"
	"github.com/cwbudde/algo-spectro/spectro/spectrum"
)

// Fit measures the transition in data and stores the result on tr.
//
// The fit window is tr.Wavelength() +/- the surrounding (2 Angstrom by
// default). Seeds not supplied with [WithInitialTheta] are estimated from
// the data; the objective is then minimised with Nelder-Mead. Reaching the
// iteration limit is not an error and is reported in the diagnostics.
func Fit(ctx context.Context, tr *AtomicTransition, data *spectrum.Spectrum, opts ...Option) (*FitResult, error) {
	start := time.Now()
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		cfg.recorder.RecordFailure(cfg.strategy.String(), err)
		return nil, err
	}

	f := &fitter{
		cfg: cfg,
		tr:  tr,
		log: cfg.logger.With().Str("transition", tr.String()).Logger(),
	}
	res, err := f.run(ctx, data)
	if err != nil {
		cfg.recorder.RecordFailure(cfg.strategy.String(), err)
		return nil, err
	}

	res.Diagnostics.Duration = time.Since(start)
	cfg.recorder.RecordFit(res.Diagnostics.Strategy, res.Diagnostics.Converged,
		res.Diagnostics.Iterations, res.Diagnostics.FunctionCalls, res.Diagnostics.Duration)
	tr.record(res)
	return res, nil
}

type fitter struct {
	cfg *config
	tr  *AtomicTransition
	log zerolog.Logger

	layout   layout
	window   *spectrum.Spectrum
	theta    Theta
	blending *blendingSpectrum
	coef     []float64
	diag     Diagnostics
}

func (f *fitter) run(ctx context.Context, data *spectrum.Spectrum) (*FitResult, error) {
	cfg, tr := f.cfg, f.tr
	if data == nil || data.Len() < 2 {
		return nil, fmt.Errorf("%w: empty spectrum", ErrNoFiniteData)
	}

	lambda := tr.Wavelength()
	disp := data.Dispersion
	if !(disp[0] < lambda && lambda < disp[len(disp)-1]) {
		return nil, fmt.Errorf("%w: %.3f not in (%.3f, %.3f)", ErrOutOfBounds, lambda, disp[0], disp[len(disp)-1])
	}

	if err := f.buildLayout(); err != nil {
		return nil, err
	}
	constraints, err := f.resolveConstraints()
	if err != nil {
		return nil, err
	}

	lo, hi := lambda-cfg.surrounding, lambda+cfg.surrounding
	f.window = data.Slice(lo, hi)
	if len(tr.mask) > 0 {
		f.window = f.window.MaskByDispersion(tr.mask)
	}
	if f.window.FiniteCount() < minFinitePixels {
		return nil, fmt.Errorf("%w: %d finite of %d pixels within %.2f Å of %.3f, need %d",
			ErrNoFiniteData, f.window.FiniteCount(), f.window.Len(), cfg.surrounding, lambda, minFinitePixels)
	}

	f.seedKnown()

	if f.layout.blending >= 0 {
		stellar, err := cfg.initial.StellarParameters()
		if err != nil {
			return nil, err
		}
		f.blending, err = synthesizeBlending(ctx, cfg, tr, stellar, lo, hi, f.window.MinStep(), f.window.Dispersion)
		if err != nil {
			return nil, err
		}
	}

	if err := f.seedIteratively(); err != nil {
		return nil, err
	}
	if cfg.strategy == StrategyMixture {
		seedMixture(f.theta, cfg.initial, f.window.Flux)
	}

	w := f.window
	variance := w.Variance
	if cfg.centralWeighting {
		variance = centralWeights(w.Dispersion, w.Variance, lambda)
	}
	fixedContinuum := continuum.Evaluate(f.coef, w.Dispersion)
	build := func(flux []float64) *model {
		return newModel(f.layout, w.Dispersion, flux, variance, lambda, fixedContinuum, f.blending, constraints)
	}
	m := build(w.Flux)
	objective := f.objective(m)

	x0 := f.layout.vector(f.theta)
	for i, v := range x0 {
		if !finite(v) {
			return nil, fmt.Errorf("%w: %s = %g", ErrInvalidSeed, f.layout.names[i], v)
		}
	}
	f0 := objective(x0)
	if !finite(f0) {
		return nil, fmt.Errorf("%w: objective %g at %v", ErrInvalidSeed, f0, f.theta)
	}
	f.diag.InitialTheta = f.layout.theta(x0)
	f.diag.InitialObjective = f0

	maxIter := cfg.maxIterations
	if maxIter == 0 {
		maxIter = maxIterationsPerParam * len(x0)
	}
	sres, err := minimizeSimplex(ctx, objective, x0, f0, cfg.xtol, cfg.ftol, maxIter)
	if err != nil {
		return nil, err
	}
	f.log.Debug().
		Str("status", sres.Status.String()).
		Int("iterations", sres.Iterations).
		Int("evaluations", sres.Evaluations).
		Float64("objective", sres.F).
		Msg("optimisation finished")

	if cfg.clipSigma > 0 {
		m, sres, err = f.clipAndRefit(ctx, m, sres, build, maxIter)
		if err != nil {
			return nil, err
		}
	}
	return f.result(m, sres)
}

// clipAndRefit minimises again, starting from the first optimum, without
// the pixels at least clipSigma standard deviations from its model. The
// first fit is kept when nothing is clipped or too few pixels remain.
func (f *fitter) clipAndRefit(ctx context.Context, m *model, sres simplexResult, build func([]float64) *model, maxIter int) (*model, simplexResult, error) {
	if !m.evaluate(sres.X) {
		return m, sres, nil
	}
	flux := append([]float64(nil), m.flux...)
	clipped, remaining := 0, 0
	for i, v := range flux {
		sigma := math.Abs(v-m.out[i]) / math.Sqrt(m.variance[i])
		switch {
		case !finite(sigma):
			continue
		case sigma >= f.cfg.clipSigma:
			flux[i] = math.NaN()
			clipped++
		default:
			remaining++
		}
	}
	if clipped == 0 || remaining < minFinitePixels {
		return m, sres, nil
	}

	cm := build(flux)
	objective := f.objective(cm)
	f0 := objective(sres.X)
	if !finite(f0) {
		return m, sres, nil
	}
	next, err := minimizeSimplex(ctx, objective, sres.X, f0, f.cfg.xtol, f.cfg.ftol, maxIter)
	if err != nil {
		return nil, simplexResult{}, err
	}
	next.Iterations += sres.Iterations
	next.Evaluations += sres.Evaluations
	f.diag.ClippedPixels = clipped
	f.log.Debug().
		Int("clipped", clipped).
		Float64("objective", next.F).
		Msg("refit after clipping")
	return cm, next, nil
}

// centralWeights returns variance scaled by 4*(x-center)^2.
func centralWeights(disp, variance []float64, center float64) []float64 {
	out := make([]float64, len(variance))
	for i, v := range variance {
		d := disp[i] - center
		out[i] = 4 * d * d * v
	}
	return out
}

func (f *fitter) buildLayout() error {
	cfg := f.cfg
	_, hasWavelength := cfg.constraints[ParamWavelength]
	hasWavelength = hasWavelength || cfg.wavelengthTol > 0
	freeContinuum := cfg.hasContinuumOrder && len(f.tr.continuumRegions) == 0
	blending := f.tr.HasBlending()
	if blending {
		if _, err := cfg.initial.StellarParameters(); err != nil {
			return err
		}
		if cfg.synthesizer == nil {
			return ErrSynthesizerRequired
		}
	}
	f.layout = newLayout(f.tr.Wavelength(), hasWavelength, cfg.continuumOrder, freeContinuum, blending, cfg.strategy == StrategyMixture)
	f.log.Debug().
		Int("count", len(f.layout.names)).
		Str("parameters", strings.Join(f.layout.names, ", ")).
		Msg("fit parameters")
	return nil
}

func (f *fitter) resolveConstraints() ([]constraint, error) {
	names := make([]string, 0, len(f.cfg.constraints))
	for name := range f.cfg.constraints {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []constraint
	for _, name := range names {
		idx := f.layout.index(name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q (fitting %s)", ErrUnknownParameter, name, strings.Join(f.layout.names, ", "))
		}
		out = append(out, constraint{index: idx, bounds: f.cfg.constraints[name]})
	}
	if tol := f.cfg.wavelengthTol; tol > 0 {
		lambda := f.tr.Wavelength()
		out = append(out, constraint{
			index:  f.layout.wavelength,
			bounds: Bounds{Lower: Limit(lambda - tol), Upper: Limit(lambda + tol)},
		})
	}
	return out, nil
}

// seedKnown starts theta from the nominal wavelength, or the flux minimum
// within the wavelength tolerance, and every supplied seed that is a fit
// parameter.
func (f *fitter) seedKnown() {
	f.theta = Theta{}
	for _, name := range f.layout.names {
		if v, ok := f.cfg.initial[name]; ok {
			f.theta[name] = v
		}
	}
	lambda := f.tr.Wavelength()
	f.theta[ParamWavelength] = lambda
	if tol := f.cfg.wavelengthTol; tol > 0 {
		if x, ok := trough(f.window.Dispersion, f.window.Flux, lambda-tol, lambda+tol); ok {
			f.theta[ParamWavelength] = x
		}
	}
}

func (f *fitter) missing(name string) bool {
	if f.layout.index(name) < 0 {
		return false
	}
	return !f.cfg.initial.Has(name)
}

// seedIteratively alternates continuum estimation, line depth and FWHM
// seeding and outlier masking. The mixture strategy runs a single round.
func (f *fitter) seedIteratively() error {
	cfg, w := f.cfg, f.window
	center := f.theta[ParamWavelength]

	est := continuum.Estimator{Order: cfg.continuumOrder, Regions: f.tr.continuumRegions}
	fitContinuum := false
	f.coef = []float64{1}
	if cfg.hasContinuumOrder {
		if err := est.Validate(w.Dispersion); err != nil {
			return continuumError(err)
		}
		fitContinuum = est.HasRegions()
		for i := 0; i <= cfg.continuumOrder && !fitContinuum; i++ {
			fitContinuum = !cfg.initial.Has(ContinuumParam(i))
		}
		if !fitContinuum {
			f.coef, _ = cfg.initial.Continuum(cfg.continuumOrder)
			if f.layout.continuum >= 0 {
				f.theta.SetContinuum(f.coef)
			}
		}
	}

	var mask []bool
	var blendCurve *spectrum.Curve
	if fitContinuum {
		mask = est.BaseMask(w.Dispersion, w.Flux)
		if f.blending != nil {
			blendCurve = &f.blending.curve
		}
	}
	iterate := fitContinuum && cfg.detectNearbyLines && cfg.strategy == StrategyIterative
	rounds := 1
	if iterate {
		rounds = cfg.masker.RoundCount()
	}

	for round := 0; round < rounds; round++ {
		if fitContinuum {
			coef, err := est.Fit(w.Dispersion, w.Flux, mask, blendCurve)
			if err != nil {
				return continuumError(err)
			}
			f.coef = coef
			if f.layout.continuum >= 0 {
				f.theta.SetContinuum(coef)
			}
		}

		contAt := poly.Val(f.coef, center)
		if f.missing(ParamLineDepth) {
			depth, err := seedLineDepth(w.Dispersion, w.Flux, center, contAt, cfg.lineDepthTolerance)
			if err != nil {
				return err
			}
			f.theta[ParamLineDepth] = depth
		}
		if f.missing(ParamFWHM) {
			fwhm, err := seedFWHM(w.Dispersion, w.Flux, center, contAt, f.theta[ParamLineDepth])
			if err != nil {
				return err
			}
			f.theta[ParamFWHM] = fwhm
		}
		if f.missing(ParamBlendingFWHM) {
			f.theta[ParamBlendingFWHM] = f.theta[ParamFWHM]
		}
		f.diag.MaskRounds = round + 1
		f.log.Debug().
			Int("round", round).
			Float64("line_depth", f.theta[ParamLineDepth]).
			Float64("fwhm", f.theta[ParamFWHM]).
			Floats64("continuum", f.coef).
			Msg("seeded")

		if !iterate || round == rounds-1 {
			break
		}
		excluded, err := f.maskOutliers(mask)
		if err != nil {
			return err
		}
		f.diag.ExcludedPixels += excluded
		f.log.Debug().
			Int("round", round).
			Int("excluded", excluded).
			Int("remaining", continuum.Count(mask)).
			Msg("masked nearby lines")
		if cfg.masker.Converged(excluded, len(mask)) {
			break
		}
	}
	return nil
}

// maskOutliers evaluates the seeded model, smoothing any blending spectrum
// with the line FWHM, and removes outlier runs from mask.
func (f *fitter) maskOutliers(mask []bool) (int, error) {
	w := f.window
	n := w.Len()
	var blend []float64
	if f.blending != nil {
		blend = make([]float64, n)
		if err := f.blending.smoothInto(blend, f.theta[ParamFWHM]); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
		}
	}
	model := make([]float64, n)
	compose(model, make([]float64, n), w.Dispersion, f.theta[ParamLineDepth], f.theta[ParamWavelength],
		f.theta[ParamFWHM], blend, continuum.Evaluate(f.coef, w.Dispersion))
	return f.cfg.masker.Update(mask, model, w.Flux, f.cfg.continuumOrder+1), nil
}

func (f *fitter) objective(m *model) func([]float64) float64 {
	inf := math.Inf(1)
	if f.cfg.strategy == StrategyMixture {
		l := f.layout
		return func(x []float64) float64 {
			if !m.evaluate(x) {
				return inf
			}
			return mixtureNLL(m.out, m.flux, m.variance, x[l.fraction], x[l.mean], x[l.variance])
		}
	}
	return func(x []float64) float64 {
		if !m.evaluate(x) {
			return inf
		}
		chi2, _ := chiSquare(m.out, m.flux, m.ivar)
		return chi2
	}
}

func (f *fitter) result(m *model, sres simplexResult) (*FitResult, error) {
	l := f.layout
	if !m.evaluate(sres.X) {
		return nil, fmt.Errorf("%w: optimum left the admissible region", ErrInvalidSeed)
	}
	chi2, nFinite := chiSquare(m.out, m.flux, m.ivar)
	opt := l.theta(sres.X)
	ew, err := opt.EquivalentWidth()
	if err != nil {
		return nil, err
	}

	if l.blending >= 0 {
		ratio := opt[ParamBlendingFWHM] / opt[ParamFWHM]
		if !(ratio > 0.5 && ratio < 2) {
			f.log.Debug().
				Float64("fwhm", opt[ParamFWHM]).
				Float64("blending_fwhm", opt[ParamBlendingFWHM]).
				Msg("blending FWHM disagrees with line FWHM")
		}
	}

	dof := nFinite - len(l.names) - 1
	rchi2 := 0.0
	if dof > 0 {
		rchi2 = chi2 / float64(dof)
	}

	diag := f.diag
	diag.Iterations = sres.Iterations
	diag.FunctionCalls = sres.Evaluations
	diag.Converged = sres.Converged
	diag.Status = sres.Status.String()
	diag.Strategy = f.cfg.strategy.String()
	diag.Kind = f.cfg.kind.String()
	if f.cfg.strategy == StrategyMixture {
		diag.NegLogLikelihood = sres.F
	}

	return &FitResult{
		OptimalTheta:     opt,
		Parameters:       append([]string(nil), l.names...),
		ChiSquare:        chi2,
		DegreesOfFreedom: dof,
		ReducedChiSquare: rchi2,
		EquivalentWidth:  ew,
		Diagnostics:      diag,
		Spectra:          f.spectra(m, opt),
	}, nil
}

func (f *fitter) spectra(m *model, opt Theta) Spectra {
	w := f.window
	disp := append([]float64(nil), w.Dispersion...)

	coef := f.coef
	if c, ok := opt.Continuum(f.cfg.continuumOrder); ok && f.layout.continuum >= 0 {
		coef = c
	}
	cont := continuum.Evaluate(coef, disp)

	s := Spectra{
		Data:      spectrum.Curve{Dispersion: disp, Flux: append([]float64(nil), w.Flux...)},
		Continuum: spectrum.Curve{Dispersion: disp, Flux: cont},
		Fitted:    spectrum.Curve{Dispersion: disp, Flux: append([]float64(nil), m.out...)},
	}
	if f.blending != nil {
		bd := f.blending.curve.Dispersion
		unsmoothed := continuum.Evaluate(coef, bd)
		vecmath.MulBlockInPlace(unsmoothed, f.blending.curve.Flux)
		smoothed := make([]float64, len(disp))
		vecmath.MulBlock(smoothed, cont, m.blend)
		s.BlendingUnsmoothed = &spectrum.Curve{Dispersion: append([]float64(nil), bd...), Flux: unsmoothed}
		s.BlendingSmoothed = &spectrum.Curve{Dispersion: disp, Flux: smoothed}
	}
	return s
}

func continuumError(err error) error {
	switch {
	case errors.Is(err, continuum.ErrInvalidOrder):
		return fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	default:
		return fmt.Errorf("%w: %w", ErrPrecondition, err)
	}
}
