package interp

import (
	"errors"
	"sort"
)

// ErrLengthMismatch is returned when the sample grid and values differ in
// length.
var ErrLengthMismatch = errors.New("interp: xp and fp length mismatch")

// ErrEmpty is returned when no samples are given.
var ErrEmpty = errors.New("interp: no samples")

// SearchSorted returns the smallest index i with grid[i] >= v, or len(grid)
// when v is beyond the last element. grid must be sorted ascending.
func SearchSorted(grid []float64, v float64) int {
	return sort.SearchFloat64s(grid, v)
}

// Linear resamples the curve (xp, fp) at x. xp must be strictly increasing.
// Points left of xp[0] take fp[0] and points right of the last sample take
// the last value.
func Linear(x, xp, fp []float64) ([]float64, error) {
	out := make([]float64, len(x))
	if err := LinearInto(out, x, xp, fp); err != nil {
		return nil, err
	}
	return out, nil
}

// LinearInto is [Linear] writing into dst, which must have len(x) elements.
func LinearInto(dst, x, xp, fp []float64) error {
	if len(xp) != len(fp) {
		return ErrLengthMismatch
	}
	if len(xp) == 0 {
		return ErrEmpty
	}
	last := len(xp) - 1
	for i, v := range x {
		switch {
		case v <= xp[0]:
			dst[i] = fp[0]
		case v >= xp[last]:
			dst[i] = fp[last]
		default:
			j := SearchSorted(xp, v)
			if xp[j] == v {
				dst[i] = fp[j]
				continue
			}
			frac := (v - xp[j-1]) / (xp[j] - xp[j-1])
			dst[i] = fp[j-1] + frac*(fp[j]-fp[j-1])
		}
	}
	return nil
}
