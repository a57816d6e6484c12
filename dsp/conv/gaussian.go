package conv

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// gaussianTruncate is the kernel half-width in units of sigma.
const gaussianTruncate = 4.0

// GaussianKernel returns the normalized sampled Gaussian of the given sigma
// (in samples), with radius int(4*sigma + 0.5).
func GaussianKernel(sigma float64) []float64 {
	radius := int(gaussianTruncate*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	inv := -0.5 / (sigma * sigma)
	for i := -radius; i <= radius; i++ {
		x := float64(i)
		kernel[i+radius] = math.Exp(inv * x * x)
	}
	vecmath.ScaleBlockInPlace(kernel, 1/vecmath.Sum(kernel))
	return kernel
}

// GaussianFilter smooths x with a Gaussian of standard deviation sigma
// samples. The result has the same length as x.
func GaussianFilter(x []float64, sigma float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}
	if sigma < 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return nil, ErrInvalidSigma
	}
	if sigma == 0 {
		return append([]float64(nil), x...), nil
	}

	kernel := GaussianKernel(sigma)
	radius := len(kernel) / 2
	if radius == 0 {
		return append([]float64(nil), x...), nil
	}

	return Valid(reflectPad(x, radius), kernel)
}

// reflectPad extends x by radius samples on both sides using half-sample
// symmetric reflection, repeating periodically when radius exceeds len(x).
func reflectPad(x []float64, radius int) []float64 {
	n := len(x)
	out := make([]float64, n+2*radius)
	period := 2 * n
	for i := range out {
		j := (i - radius) % period
		if j < 0 {
			j += period
		}
		if j >= n {
			j = period - 1 - j
		}
		out[i] = x[j]
	}
	return out
}
