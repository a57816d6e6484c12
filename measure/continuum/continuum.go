// Package continuum estimates the polynomial continuum level around an
// absorption line, optionally restricted to user-defined continuum regions
// and divided by a synthetic blending spectrum.
package continuum

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-spectro/dsp/interp"
	"github.com/cwbudde/algo-spectro/internal/poly"
	"github.com/cwbudde/algo-spectro/spectro/spectrum"
)

var (
	// ErrNoOverlap is returned when none of the continuum regions overlaps
	// the data.
	ErrNoOverlap = errors.New("continuum: regions do not overlap the data")
	// ErrTooFewPoints is returned when the mask leaves fewer usable pixels
	// than polynomial coefficients.
	ErrTooFewPoints = errors.New("continuum: too few points for the polynomial order")
	// ErrInvalidOrder is returned for a negative polynomial order.
	ErrInvalidOrder = errors.New("continuum: order must be >= 0")
)

// Overlaps reports whether the closed intervals [aStart, aEnd] and
// [bStart, bEnd] share at least one point. Bounds may be given in either
// order.
func Overlaps(aStart, aEnd, bStart, bEnd float64) bool {
	if aStart > aEnd {
		aStart, aEnd = aEnd, aStart
	}
	if bStart > bEnd {
		bStart, bEnd = bEnd, bStart
	}
	return aStart <= bEnd && bStart <= aEnd
}

// AnyOverlap reports whether any region overlaps [lo, hi].
func AnyOverlap(regions []spectrum.Interval, lo, hi float64) bool {
	for _, r := range regions {
		if Overlaps(r.Start, r.End, lo, hi) {
			return true
		}
	}
	return false
}

// RegionMask marks the pixels whose sorted insertion index falls in
// [searchsorted(start), searchsorted(end)) for any region.
func RegionMask(disp []float64, regions []spectrum.Interval) []bool {
	mask := make([]bool, len(disp))
	for _, r := range regions {
		lo := interp.SearchSorted(disp, r.Start)
		hi := interp.SearchSorted(disp, r.End)
		for i := lo; i < hi; i++ {
			mask[i] = true
		}
	}
	return mask
}

// FiniteMask marks pixels with finite flux.
func FiniteMask(flux []float64) []bool {
	mask := make([]bool, len(flux))
	for i, f := range flux {
		mask[i] = !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return mask
}

// Count returns the number of set entries.
func Count(mask []bool) int {
	n := 0
	for _, m := range mask {
		if m {
			n++
		}
	}
	return n
}

// Estimator fits a continuum polynomial of Order, highest power first.
type Estimator struct {
	Order   int
	Regions []spectrum.Interval
}

// HasRegions reports whether continuum regions were configured.
func (e Estimator) HasRegions() bool {
	return len(e.Regions) > 0
}

// Validate checks the order and that the configured regions, if any, reach
// the dispersion range of disp.
func (e Estimator) Validate(disp []float64) error {
	if e.Order < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOrder, e.Order)
	}
	if !e.HasRegions() || len(disp) == 0 {
		return nil
	}
	if !AnyOverlap(e.Regions, disp[0], disp[len(disp)-1]) {
		return fmt.Errorf("%w: %v vs [%.3f, %.3f]", ErrNoOverlap, e.Regions, disp[0], disp[len(disp)-1])
	}
	return nil
}

// BaseMask returns the pixels eligible for the continuum fit: finite pixels
// inside the continuum regions, or all finite pixels when no regions are
// configured.
func (e Estimator) BaseMask(disp, flux []float64) []bool {
	mask := FiniteMask(flux)
	if !e.HasRegions() {
		return mask
	}
	region := RegionMask(disp, e.Regions)
	for i := range mask {
		mask[i] = mask[i] && region[i]
	}
	return mask
}

// Fit returns the least-squares continuum through the masked pixels. When
// blending is non-nil the flux is first divided by the blending spectrum
// resampled onto disp.
func (e Estimator) Fit(disp, flux []float64, mask []bool, blending *spectrum.Curve) ([]float64, error) {
	if e.Order < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOrder, e.Order)
	}

	x := make([]float64, 0, len(disp))
	y := make([]float64, 0, len(disp))
	for i, m := range mask {
		if m {
			x = append(x, disp[i])
			y = append(y, flux[i])
		}
	}

	if blending != nil && len(x) > 0 {
		rbs, err := interp.Linear(x, blending.Dispersion, blending.Flux)
		if err != nil {
			return nil, fmt.Errorf("continuum: resample blending spectrum: %w", err)
		}
		n := 0
		for i := range y {
			v := y[i] / rbs[i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			x[n], y[n] = x[i], v
			n++
		}
		x, y = x[:n], y[:n]
	}

	if len(x) < e.Order+1 {
		return nil, fmt.Errorf("%w: %d points, order %d", ErrTooFewPoints, len(x), e.Order)
	}

	coef, err := poly.Fit(x, y, e.Order)
	if err != nil {
		return nil, fmt.Errorf("continuum: %w", err)
	}
	return coef, nil
}

// Evaluate returns the continuum described by coef at every disp.
func Evaluate(coef, disp []float64) []float64 {
	out := make([]float64, len(disp))
	poly.ValInto(out, coef, disp)
	return out
}
