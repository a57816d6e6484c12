package interp

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-spectro/internal/testutil"
)

func TestLinearClampsAndInterpolates(t *testing.T) {
	xp := []float64{1, 2, 4}
	fp := []float64{10, 20, 0}
	x := []float64{0, 1, 1.5, 2, 3, 4, 9}

	got, err := Linear(x, xp, fp)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, got, []float64{10, 10, 15, 20, 10, 0, 0}, 1e-12)
}

func TestLinearIdentityOnSameGrid(t *testing.T) {
	xp := []float64{5000, 5000.01, 5000.02, 5000.03}
	fp := []float64{0.9, 0.5, 0.7, 1}
	got, err := Linear(xp, xp, fp)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, got, fp, 0)
}

func TestLinearErrors(t *testing.T) {
	if _, err := Linear([]float64{1}, []float64{1, 2}, []float64{1}); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v", err)
	}
	if _, err := Linear([]float64{1}, nil, nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v", err)
	}
}

func TestSearchSorted(t *testing.T) {
	grid := []float64{1, 2, 3}
	for _, tc := range []struct {
		v    float64
		want int
	}{
		{v: 0.5, want: 0},
		{v: 1, want: 0},
		{v: 1.5, want: 1},
		{v: 3, want: 2},
		{v: 4, want: 3},
	} {
		if got := SearchSorted(grid, tc.v); got != tc.want {
			t.Fatalf("SearchSorted(%v) = %d, want %d", tc.v, got, tc.want)
		}
	}
}
