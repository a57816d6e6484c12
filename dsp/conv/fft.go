package conv

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// fftFull convolves a and b with one transform of the smallest power of two
// holding the full result. Spectra windows are short enough that block
// processing does not pay off.
func fftFull(a, b []float64) ([]float64, error) {
	n := len(a) + len(b) - 1
	size := 1
	for size < n {
		size <<= 1
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("conv: fft plan of size %d: %w", size, err)
	}

	fa := make([]complex128, size)
	fb := make([]complex128, size)
	for i, v := range a {
		fa[i] = complex(v, 0)
	}
	for i, v := range b {
		fb[i] = complex(v, 0)
	}

	if err := plan.Forward(fa, fa); err != nil {
		return nil, fmt.Errorf("conv: forward fft: %w", err)
	}
	if err := plan.Forward(fb, fb); err != nil {
		return nil, fmt.Errorf("conv: forward fft: %w", err)
	}
	for i := range fa {
		fa[i] *= fb[i]
	}
	prod := make([]complex128, size)
	if err := plan.Inverse(prod, fa); err != nil {
		return nil, fmt.Errorf("conv: inverse fft: %w", err)
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = real(prod[i])
	}
	return out, nil
}
