package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-spectro/internal/testutil"
	"github.com/cwbudde/algo-spectro/measure/linefit"
	"github.com/cwbudde/algo-spectro/spectro/species"
	"github.com/cwbudde/algo-spectro/spectro/spectrum"
)

func fitLine(t *testing.T, spec linefit.TransitionSpec) (*linefit.AtomicTransition, *linefit.FitResult) {
	t.Helper()
	disp := testutil.Grid(5003, 0.01, 401)
	flux := testutil.AbsorptionSpectrum(disp, nil, testutil.Line{Center: 5005, Depth: 0.5, FWHM: 0.2})
	data, err := spectrum.New(disp, flux, testutil.DC(1e-4, len(disp)))
	require.NoError(t, err)

	tr, err := linefit.NewTransition(spec)
	require.NoError(t, err)
	res, err := linefit.Fit(context.Background(), tr, data)
	require.NoError(t, err)
	return tr, res
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "fits.db"))
	require.NoError(t, err)
	defer store.Close()

	tr, res := fitLine(t, linefit.TransitionSpec{Wavelength: 5005, Species: species.Name("Fe II")})
	id, err := store.Save(tr, res)
	require.NoError(t, err)

	got, err := store.Get(id)
	require.NoError(t, err)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, 5005.0, got.Wavelength)
	assert.Equal(t, "Fe II", got.Species)
	assert.InDelta(t, 26.1, got.SpeciesCode, 1e-12)
	assert.Equal(t, "iterative", got.Strategy)
	assert.Equal(t, res.EquivalentWidth, got.EquivalentWidth)
	assert.Equal(t, res.ChiSquare, got.ChiSquare)
	assert.Equal(t, res.Diagnostics.Converged, got.Converged)
	assert.Equal(t, res.Diagnostics.FunctionCalls, got.FunctionCalls)
	assert.Equal(t, res.OptimalTheta, got.Theta)
	assert.Equal(t, res.Spectra.Fitted, got.Fitted)
	assert.False(t, got.CreatedAt.IsZero())

	ew, err := got.Theta.EquivalentWidth()
	require.NoError(t, err)
	assert.Equal(t, res.EquivalentWidth, ew)
}

func TestUnspecifiedSpeciesAndNonFiniteChiSquare(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	tr, res := fitLine(t, linefit.TransitionSpec{Wavelength: 5005})
	res.ReducedChiSquare = math.Inf(1)

	id, err := store.Save(tr, res)
	require.NoError(t, err)
	got, err := store.Get(id)
	require.NoError(t, err)

	assert.Empty(t, got.Species)
	assert.Zero(t, got.SpeciesCode)
	assert.True(t, math.IsNaN(got.ReducedChiSquare))
}

func TestListByWavelength(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	tr, res := fitLine(t, linefit.TransitionSpec{Wavelength: 5005})
	for i := 0; i < 3; i++ {
		_, err := store.Save(tr, res)
		require.NoError(t, err)
	}

	all, err := store.List(5000, 5010)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := store.List(6000, 6010)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetMissing(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFloat64Blob(t *testing.T) {
	in := []float64{1, -2.5, math.Inf(1), 0}
	assert.Equal(t, in, decodeFloat64(encodeFloat64(in)))
}
