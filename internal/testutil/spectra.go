package testutil

import (
	"math"
	"math/rand"
)

// Grid returns n uniformly spaced dispersion points starting at start.
func Grid(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// Line describes one synthetic Gaussian absorption line.
type Line struct {
	Center float64
	Depth  float64
	FWHM   float64
}

// AbsorptionSpectrum returns continuum * prod(1 - depth*exp(-(x-c)^2/(2 sigma^2)))
// with sigma = fwhm/2.355, evaluated on disp. continuum holds polynomial
// coefficients, highest power first; nil means a flat unit continuum.
func AbsorptionSpectrum(disp []float64, continuum []float64, lines ...Line) []float64 {
	out := make([]float64, len(disp))
	for i, x := range disp {
		c := 1.0
		if len(continuum) > 0 {
			c = 0
			for _, k := range continuum {
				c = c*x + k
			}
		}
		for _, l := range lines {
			u := (x - l.Center) / (l.FWHM / 2.355)
			c *= 1 - l.Depth*math.Exp(-0.5*u*u)
		}
		out[i] = c
	}
	return out
}

// DeterministicNoise generates uniform noise in [-amplitude, amplitude) with
// a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// GaussianNoise generates normally distributed noise with standard
// deviation sigma and a fixed seed.
func GaussianNoise(seed int64, sigma float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = rng.NormFloat64() * sigma
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Ones returns a slice of length n filled with 1.0.
func Ones(n int) []float64 {
	return DC(1.0, n)
}
