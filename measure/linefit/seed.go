package linefit

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-spectro/dsp/interp"
)

// nearestFinite returns the index closest to i with finite flux, preferring
// the right neighbour on ties, or -1 when every pixel is non-finite.
func nearestFinite(flux []float64, i int) int {
	for d := 0; d < len(flux); d++ {
		for _, j := range [2]int{i + d, i - d} {
			if j >= 0 && j < len(flux) && finite(flux[j]) {
				return j
			}
		}
	}
	return -1
}

// seedLineDepth estimates the depth from the flux at the insertion index of
// wavelength relative to the continuum there, clipped to [tol, 1-tol].
func seedLineDepth(disp, flux []float64, wavelength, continuum, tol float64) (float64, error) {
	i := interp.SearchSorted(disp, wavelength)
	if i >= len(flux) {
		i = len(flux) - 1
	}
	j := nearestFinite(flux, i)
	if j < 0 {
		return 0, ErrNoFiniteData
	}
	depth := 1 - flux[j]/continuum
	if math.IsNaN(depth) {
		return 0, fmt.Errorf("%w: line depth seed is NaN (continuum %g)", ErrInvalidSeed, continuum)
	}
	return math.Min(math.Max(depth, tol), 1-tol), nil
}

// seedFWHM finds the half-maximum crossings on either side of wavelength.
// With only one crossing the width is mirrored from that side.
func seedFWHM(disp, flux []float64, wavelength, continuum, depth float64) (float64, error) {
	mid := continuum * (1 - 0.5*depth)
	i := interp.SearchSorted(disp, wavelength)

	pos, neg := math.NaN(), math.NaN()
	for j := i; j < len(flux); j++ {
		if flux[j] > mid {
			pos = disp[j]
			break
		}
	}
	for j := min(i, len(flux)) - 1; j >= 0; j-- {
		if flux[j] > mid {
			neg = disp[j]
			break
		}
	}

	switch {
	case !math.IsNaN(pos) && !math.IsNaN(neg):
		return pos - neg, nil
	case !math.IsNaN(pos):
		return 2 * (pos - wavelength), nil
	case !math.IsNaN(neg):
		return 2 * (wavelength - neg), nil
	default:
		return 0, fmt.Errorf("%w at %.3f", ErrCannotEstimateFWHM, wavelength)
	}
}

// trough returns the dispersion of the lowest finite flux within [lo, hi].
func trough(disp, flux []float64, lo, hi float64) (float64, bool) {
	best, at := math.Inf(1), -1
	for i, x := range disp {
		if x < lo || x > hi || !finite(flux[i]) {
			continue
		}
		if flux[i] < best {
			best, at = flux[i], i
		}
	}
	if at < 0 {
		return 0, false
	}
	return disp[at], true
}
