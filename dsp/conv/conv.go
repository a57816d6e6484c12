package conv

import (
	"errors"

	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by the convolution functions.
var (
	ErrEmptyInput    = errors.New("conv: empty input")
	ErrEmptyKernel   = errors.New("conv: empty kernel")
	ErrKernelTooLong = errors.New("conv: kernel longer than signal")
	ErrInvalidSigma  = errors.New("conv: sigma must be finite and >= 0")
)

// fftThreshold is the kernel length above which [Full] convolves in the
// frequency domain.
const fftThreshold = 64

func check(signal, kernel []float64) error {
	if len(signal) == 0 {
		return ErrEmptyInput
	}
	if len(kernel) == 0 {
		return ErrEmptyKernel
	}
	return nil
}

// Full returns the linear convolution of signal and kernel, with length
// len(signal)+len(kernel)-1.
func Full(signal, kernel []float64) ([]float64, error) {
	if err := check(signal, kernel); err != nil {
		return nil, err
	}
	if len(kernel) > len(signal) {
		signal, kernel = kernel, signal
	}
	if len(kernel) > fftThreshold {
		return fftFull(signal, kernel)
	}
	out := make([]float64, len(signal)+len(kernel)-1)
	accumulate(out, signal, kernel)
	return out, nil
}

// Direct is [Full] restricted to the pixel domain.
func Direct(signal, kernel []float64) ([]float64, error) {
	if err := check(signal, kernel); err != nil {
		return nil, err
	}
	out := make([]float64, len(signal)+len(kernel)-1)
	accumulate(out, signal, kernel)
	return out, nil
}

// Valid returns the len(signal)-len(kernel)+1 samples where the kernel
// lies entirely inside the signal.
func Valid(signal, kernel []float64) ([]float64, error) {
	if err := check(signal, kernel); err != nil {
		return nil, err
	}
	if len(kernel) > len(signal) {
		return nil, ErrKernelTooLong
	}
	full, err := Full(signal, kernel)
	if err != nil {
		return nil, err
	}
	return full[len(kernel)-1 : len(signal)], nil
}

// accumulate adds signal, scaled by each kernel tap and shifted by the tap
// index, into dst. dst must hold len(signal)+len(kernel)-1 zeros.
func accumulate(dst, signal, kernel []float64) {
	scaled := make([]float64, len(signal))
	for j, w := range kernel {
		if w == 0 {
			continue
		}
		vecmath.ScaleBlock(scaled, signal, w)
		vecmath.AddBlockInPlace(dst[j:j+len(signal)], scaled)
	}
}
