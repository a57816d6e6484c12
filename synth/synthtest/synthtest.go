// Package synthtest provides a deterministic [synth.Synthesizer] that
// renders every line as a Gaussian absorption, for tests and dry runs.
package synthtest

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-spectro/spectro/profile"
	"github.com/cwbudde/algo-spectro/spectro/spectrum"
	"github.com/cwbudde/algo-spectro/synth"
)

// Gaussian renders each requested line with the same FWHM and a depth of
// Depth*OpacityContribution.
type Gaussian struct {
	FWHM  float64
	Depth float64
	// Err, when set, is returned by every call.
	Err error

	calls atomic.Int64
}

// Calls returns the number of Synthesize invocations.
func (g *Gaussian) Calls() int {
	return int(g.calls.Load())
}

// Synthesize implements synth.Synthesizer.
func (g *Gaussian) Synthesize(ctx context.Context, req synth.Request) (spectrum.Curve, error) {
	g.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return spectrum.Curve{}, err
	}
	if g.Err != nil {
		return spectrum.Curve{}, g.Err
	}
	if err := req.Validate(); err != nil {
		return spectrum.Curve{}, err
	}

	step := req.Step()
	n := int(math.Floor((req.Max-req.Min)/step+1e-9)) + 1
	disp := make([]float64, n)
	flux := make([]float64, n)
	for i := range disp {
		disp[i] = req.Min + float64(i)*step
		flux[i] = 1
	}

	sigma := g.FWHM * profile.FWHMToSigma
	shape := make([]float64, n)
	for _, l := range req.Lines {
		l = l.WithDefaults()
		depth := g.Depth * l.OpacityContribution
		profile.GaussianInto(shape, disp, l.Wavelength, sigma)
		for i := range flux {
			flux[i] *= 1 - depth*shape[i]
		}
	}
	return spectrum.Curve{Dispersion: disp, Flux: flux}, nil
}
