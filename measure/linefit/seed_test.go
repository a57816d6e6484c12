package linefit

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-spectro/internal/testutil"
)

func TestSeedLineDepth(t *testing.T) {
	disp := testutil.Grid(5000, 0.1, 11)
	flux := testutil.Ones(len(disp))
	flux[5] = 0.4

	got, err := seedLineDepth(disp, flux, 5000.5, 1, 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireNearlyEqual(t, got, 0.6, 1e-12)

	// Relative to the continuum, and clipped.
	got, _ = seedLineDepth(disp, flux, 5000.5, 0.5, 1e-3)
	testutil.RequireNearlyEqual(t, got, 0.2, 1e-12)
	got, _ = seedLineDepth(disp, flux, 5000.5, 0.3, 1e-3)
	testutil.RequireNearlyEqual(t, got, 1e-3, 1e-15)
	flux[5] = -1
	got, _ = seedLineDepth(disp, flux, 5000.5, 1, 1e-3)
	testutil.RequireNearlyEqual(t, got, 1-1e-3, 1e-15)
}

func TestSeedLineDepthUsesNearestFinitePixel(t *testing.T) {
	disp := testutil.Grid(5000, 0.1, 11)
	flux := testutil.Ones(len(disp))
	flux[5] = math.NaN()
	flux[6] = 0.7
	flux[4] = 0.2

	got, err := seedLineDepth(disp, flux, 5000.5, 1, 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireNearlyEqual(t, got, 0.3, 1e-12)

	for i := range flux {
		flux[i] = math.NaN()
	}
	if _, err := seedLineDepth(disp, flux, 5000.5, 1, 1e-3); !errors.Is(err, ErrNoFiniteData) {
		t.Fatalf("err = %v, want ErrNoFiniteData", err)
	}
}

func TestSeedFWHM(t *testing.T) {
	disp := testutil.Grid(5000, 0.01, 201)
	flux := testutil.AbsorptionSpectrum(disp, nil, testutil.Line{Center: 5001, Depth: 0.6, FWHM: 0.2})

	got, err := seedFWHM(disp, flux, 5001, 1, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	// The crossings are the first pixels past half depth, at most one
	// pixel outside the true width on each side.
	if got < 0.2-1e-9 || got > 0.2+0.021 {
		t.Fatalf("fwhm seed = %v, want within two pixels above 0.2", got)
	}
}

func TestSeedFWHMOneSided(t *testing.T) {
	disp := testutil.Grid(5000, 0.01, 201)
	flux := testutil.AbsorptionSpectrum(disp, nil, testutil.Line{Center: 5001, Depth: 0.6, FWHM: 0.2})
	both, _ := seedFWHM(disp, flux, 5001, 1, 0.6)

	// Blank out the blue side.
	for i := 0; i < 100; i++ {
		flux[i] = math.NaN()
	}
	got, err := seedFWHM(disp, flux, 5001, 1, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireNearlyEqual(t, got, both, 0.02)

	for i := range flux {
		flux[i] = 0.1
	}
	if _, err := seedFWHM(disp, flux, 5001, 1, 0.6); !errors.Is(err, ErrCannotEstimateFWHM) {
		t.Fatalf("err = %v, want ErrCannotEstimateFWHM", err)
	}
}
