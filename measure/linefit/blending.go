package linefit

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-spectro/dsp/conv"
	"github.com/cwbudde/algo-spectro/dsp/interp"
	"github.com/cwbudde/algo-spectro/spectro/profile"
	"github.com/cwbudde/algo-spectro/spectro/spectrum"
	"github.com/cwbudde/algo-spectro/synth"
)

// blendingSpectrum is a synthetic spectrum of the blending transitions,
// smoothed on demand and resampled onto the observed grid.
type blendingSpectrum struct {
	curve   spectrum.Curve
	minStep float64
	target  []float64
}

// synthesizeBlending asks the synthesiser for the blending transitions over
// [lo, hi]. Errors from the synthesiser are wrapped with ErrSynthesis.
func synthesizeBlending(ctx context.Context, cfg *config, tr *AtomicTransition, stellar synth.StellarParameters, lo, hi, pixel float64, target []float64) (*blendingSpectrum, error) {
	if cfg.synthesizer == nil {
		return nil, ErrSynthesizerRequired
	}
	step := pixel
	if cfg.wavelengthStep > 0 {
		step = cfg.wavelengthStep
	}
	req := synth.Request{
		Stellar:        stellar,
		Atmosphere:     cfg.atmosphere,
		Lines:          tr.BlendingTransitions(),
		Min:            lo,
		Max:            hi,
		WavelengthStep: step,
		Oversample:     cfg.oversample,
	}
	curve, err := cfg.synthesizer.Synthesize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	if len(curve.Dispersion) < 2 || len(curve.Dispersion) != len(curve.Flux) {
		return nil, fmt.Errorf("%w: synthesiser returned %d/%d points", ErrSynthesis, len(curve.Dispersion), len(curve.Flux))
	}
	return &blendingSpectrum{
		curve:   curve,
		minStep: spectrum.MinStep(curve.Dispersion),
		target:  target,
	}, nil
}

// smoothInto writes the blending flux, smoothed with a Gaussian of the given
// FWHM in Angstrom, at every target dispersion point.
func (b *blendingSpectrum) smoothInto(dst []float64, fwhm float64) error {
	sigma := fwhm / b.minStep * profile.FWHMToSigma
	smoothed, err := conv.GaussianFilter(b.curve.Flux, sigma)
	if err != nil {
		return fmt.Errorf("smooth blending spectrum: %w", err)
	}
	return interp.LinearInto(dst, b.target, b.curve.Dispersion, smoothed)
}

