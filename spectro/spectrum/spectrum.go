// Package spectrum holds observed spectra: a strictly increasing dispersion
// grid with flux and variance per pixel.
package spectrum

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrLengthMismatch is returned when dispersion, flux and variance differ
	// in length.
	ErrLengthMismatch = errors.New("spectrum: dispersion, flux and variance lengths differ")
	// ErrNotIncreasing is returned for a dispersion grid that is not strictly
	// increasing.
	ErrNotIncreasing = errors.New("spectrum: dispersion must be strictly increasing")
	// ErrTooShort is returned for spectra with fewer than two pixels.
	ErrTooShort = errors.New("spectrum: need at least two pixels")
)

// Interval is an inclusive dispersion range [Start, End].
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains reports whether x lies in the interval.
func (iv Interval) Contains(x float64) bool {
	return iv.Start <= x && x <= iv.End
}

// Curve is a dispersion/flux pair without uncertainties.
type Curve struct {
	Dispersion []float64 `json:"dispersion"`
	Flux       []float64 `json:"flux"`
}

// Spectrum is an observed spectrum slice. NaN flux marks a bad pixel.
type Spectrum struct {
	Dispersion []float64
	Flux       []float64
	Variance   []float64
}

// New validates and wraps the given arrays. A nil variance means unit
// variance everywhere. The slices are not copied.
func New(disp, flux, variance []float64) (*Spectrum, error) {
	if variance == nil {
		variance = make([]float64, len(disp))
		for i := range variance {
			variance[i] = 1
		}
	}
	if len(disp) != len(flux) || len(disp) != len(variance) {
		return nil, fmt.Errorf("%w: %d, %d, %d", ErrLengthMismatch, len(disp), len(flux), len(variance))
	}
	if len(disp) < 2 {
		return nil, ErrTooShort
	}
	for i := 1; i < len(disp); i++ {
		if !(disp[i] > disp[i-1]) {
			return nil, fmt.Errorf("%w: index %d", ErrNotIncreasing, i)
		}
	}
	return &Spectrum{Dispersion: disp, Flux: flux, Variance: variance}, nil
}

// Len returns the number of pixels.
func (s *Spectrum) Len() int { return len(s.Dispersion) }

// Slice returns a copy restricted to lo <= dispersion <= hi. The result may
// be shorter than two pixels.
func (s *Spectrum) Slice(lo, hi float64) *Spectrum {
	out := &Spectrum{}
	for i, x := range s.Dispersion {
		if x < lo || x > hi {
			continue
		}
		out.Dispersion = append(out.Dispersion, x)
		out.Flux = append(out.Flux, s.Flux[i])
		out.Variance = append(out.Variance, s.Variance[i])
	}
	return out
}

// MaskByDispersion returns a copy whose flux and variance are NaN inside
// any of the intervals. The grid is unchanged.
func (s *Spectrum) MaskByDispersion(intervals []Interval) *Spectrum {
	out := s.Clone()
	for i, x := range out.Dispersion {
		for _, iv := range intervals {
			if iv.Contains(x) {
				out.Flux[i] = math.NaN()
				out.Variance[i] = math.NaN()
				break
			}
		}
	}
	return out
}

// Clone returns a deep copy.
func (s *Spectrum) Clone() *Spectrum {
	return &Spectrum{
		Dispersion: append([]float64(nil), s.Dispersion...),
		Flux:       append([]float64(nil), s.Flux...),
		Variance:   append([]float64(nil), s.Variance...),
	}
}

// IVariance returns 1/variance per pixel. Zero variance yields +Inf and
// NaN variance yields NaN; callers drop non-finite terms.
func (s *Spectrum) IVariance() []float64 {
	out := make([]float64, len(s.Variance))
	for i, v := range s.Variance {
		out[i] = 1 / v
	}
	return out
}

// MinStep returns the smallest spacing between adjacent dispersion points.
func (s *Spectrum) MinStep() float64 {
	return MinStep(s.Dispersion)
}

// MinStep returns the smallest positive difference between adjacent
// elements, or +Inf for fewer than two points.
func MinStep(disp []float64) float64 {
	step := math.Inf(1)
	for i := 1; i < len(disp); i++ {
		if d := disp[i] - disp[i-1]; d < step {
			step = d
		}
	}
	return step
}

// Curve returns the dispersion and flux without variance.
func (s *Spectrum) Curve() Curve {
	return Curve{Dispersion: s.Dispersion, Flux: s.Flux}
}

// FiniteCount returns the number of pixels with finite flux.
func (s *Spectrum) FiniteCount() int {
	n := 0
	for _, f := range s.Flux {
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			n++
		}
	}
	return n
}
