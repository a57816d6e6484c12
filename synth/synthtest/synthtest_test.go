package synthtest

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-spectro/synth"
)

func TestGaussianGridAndDepth(t *testing.T) {
	g := &Gaussian{FWHM: 0.1, Depth: 0.4}
	req := synth.Request{
		Lines:          []synth.Line{{Wavelength: 5000.5}},
		Min:            4999,
		Max:            5002,
		WavelengthStep: 0.01,
	}
	curve, err := g.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(curve.Dispersion) != 1201 {
		t.Fatalf("len = %d, want 1201", len(curve.Dispersion))
	}
	minFlux := math.Inf(1)
	for _, f := range curve.Flux {
		minFlux = math.Min(minFlux, f)
	}
	if math.Abs(minFlux-0.6) > 1e-6 {
		t.Fatalf("line core = %v, want 0.6", minFlux)
	}
	if g.Calls() != 1 {
		t.Fatalf("Calls = %d", g.Calls())
	}
}

func TestGaussianErrors(t *testing.T) {
	sentinel := errors.New("boom")
	g := &Gaussian{Err: sentinel}
	if _, err := g.Synthesize(context.Background(), synth.Request{}); !errors.Is(err, sentinel) {
		t.Fatalf("err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&Gaussian{}).Synthesize(ctx, synth.Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
