package linefit

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/cwbudde/algo-spectro/internal/testutil"
	"github.com/cwbudde/algo-spectro/spectro/species"
	"github.com/cwbudde/algo-spectro/synth"
)

func TestNewTransition(t *testing.T) {
	ep, gf := 3.2, -1.5
	tr, err := NewTransition(TransitionSpec{
		Wavelength:          4720.1,
		Species:             species.Name("Fe II"),
		ExcitationPotential: &ep,
		LogGF:               &gf,
		BlendingTransitions: []synth.Line{{Wavelength: 4720.5, Species: 26.0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	ep = 0

	if got := tr.String(); got != "Fe II at 4720.1 Å" {
		t.Fatalf("String() = %q", got)
	}
	if tr.Element() != "Fe" || tr.AtomicNumber() != 26 || tr.IonisationLevel() != 2 {
		t.Fatalf("species = %+v", tr.Species())
	}
	testutil.RequireNearlyEqual(t, tr.SpeciesCode(), 26.1, 1e-12)
	if v, ok := tr.ExcitationPotential(); !ok || v != 3.2 {
		t.Fatalf("excitation potential = %v, %v", v, ok)
	}
	if v, ok := tr.LogGF(); !ok || v != -1.5 {
		t.Fatalf("loggf = %v, %v", v, ok)
	}
	lines := tr.BlendingTransitions()
	if len(lines) != 1 || lines[0].SynthesiseSurrounding != synth.DefaultSynthesiseSurrounding ||
		lines[0].OpacityContribution != synth.DefaultOpacityContribution {
		t.Fatalf("blending lines = %+v", lines)
	}
	lines[0].Wavelength = 0
	if tr.BlendingTransitions()[0].Wavelength != 4720.5 {
		t.Fatal("blending lines are shared with the caller")
	}
}

func TestNewTransitionUnspecifiedSpecies(t *testing.T) {
	tr, err := NewTransition(TransitionSpec{Wavelength: 6000})
	if err != nil {
		t.Fatal(err)
	}
	if got := tr.String(); got != "Unspecified transition at 6000.0 Å" {
		t.Fatalf("String() = %q", got)
	}
	if tr.AtomicNumber() != 0 || tr.Element() != "" || tr.SpeciesCode() != 0 {
		t.Fatalf("species = %+v", tr.Species())
	}
	if _, ok := tr.LogGF(); ok {
		t.Fatal("loggf reported present")
	}
}

func TestNewTransitionErrors(t *testing.T) {
	for _, w := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := NewTransition(TransitionSpec{Wavelength: w}); !errors.Is(err, ErrInvalidWavelength) {
			t.Errorf("wavelength %v: err = %v", w, err)
		}
	}
	_, err := NewTransition(TransitionSpec{Wavelength: 5000, Species: species.Name("Xx")})
	if !errors.Is(err, species.ErrUnknownElement) || !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v", err)
	}
}

func TestReducedEquivalentWidth(t *testing.T) {
	tr := newTestTransition(t, TransitionSpec{})
	if _, err := tr.ReducedEquivalentWidth(); !errors.Is(err, ErrNotMeasured) {
		t.Fatalf("err = %v, want ErrNotMeasured", err)
	}

	res, err := Fit(context.Background(), tr, lineSpectrum(t, nil, mainLine()))
	if err != nil {
		t.Fatal(err)
	}
	rew, err := tr.ReducedEquivalentWidth()
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireNearlyEqual(t, rew, math.Log(res.EquivalentWidth/testCenter), 1e-15)
}

func TestTransitionConcurrentReads(t *testing.T) {
	tr := newTestTransition(t, TransitionSpec{})
	data := lineSpectrum(t, nil, mainLine())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := Fit(context.Background(), tr, data); err != nil {
			t.Error(err)
		}
	}()
	for i := 0; i < 100; i++ {
		_, _ = tr.EquivalentWidth()
		_ = tr.LastFit()
	}
	wg.Wait()

	if _, ok := tr.EquivalentWidth(); !ok {
		t.Fatal("no result after fit")
	}
}

func TestParseStrategy(t *testing.T) {
	for name, want := range map[string]Strategy{"iterative": StrategyIterative, "Mixture": StrategyMixture, "": StrategyIterative} {
		got, err := ParseStrategy(name)
		if err != nil || got != want {
			t.Fatalf("ParseStrategy(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseStrategy("annealing"); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("err = %v", err)
	}
}
