// Package linefit measures equivalent widths by fitting absorption-line
// profiles to observed spectra.
//
// A fit models the pixels around one [AtomicTransition] as
//
//	model(x) = blending(x) * (1 - depth*G(x; wavelength, fwhm)) * continuum(x)
//
// where G is a unit-peak Gaussian, continuum is a polynomial (or unity) and
// blending is a synthetic spectrum of neighbouring lines smoothed to the
// fitted resolution (or unity). The parameters are optimised with a
// Nelder-Mead simplex, either against chi-square after iterative removal
// of unmodelled features ([StrategyIterative]) or against a two-component
// mixture likelihood that absorbs outlying pixels ([StrategyMixture]).
//
// The equivalent width of the fitted line, in milli-Angstrom, is
//
//	1000 * depth * |fwhm| * 0.752634332
//
// # Usage
//
//	tr, err := linefit.NewTransition(linefit.TransitionSpec{
//		Wavelength: 5242.49,
//		Species:    species.Name("Fe I"),
//	})
//	res, err := linefit.Fit(ctx, tr, observed, linefit.WithContinuumOrder(1))
//	fmt.Println(res.EquivalentWidth)
package linefit
