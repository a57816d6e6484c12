package poly

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-spectro/internal/testutil"
)

func TestVal(t *testing.T) {
	// 2x^2 - 3x + 1
	c := []float64{2, -3, 1}
	for _, tc := range []struct{ x, want float64 }{{0, 1}, {1, 0}, {2, 3}, {-1, 6}} {
		if got := Val(c, tc.x); got != tc.want {
			t.Fatalf("Val(%v) = %v, want %v", tc.x, got, tc.want)
		}
	}
	if got := Val(nil, 3); got != 0 {
		t.Fatalf("empty polynomial = %v", got)
	}

	dst := make([]float64, 3)
	ValInto(dst, c, []float64{0, 1, 2})
	testutil.RequireSliceNearlyEqual(t, dst, []float64{1, 0, 3}, 0)
}

func TestShift(t *testing.T) {
	// (x+2)^2 = x^2 + 4x + 4
	testutil.RequireSliceNearlyEqual(t, Shift([]float64{1, 0, 0}, 2), []float64{1, 4, 4}, 0)

	c := []float64{0.01, -49.05}
	shifted := Shift(c, 5005)
	testutil.RequireSliceNearlyEqual(t, shifted, []float64{0.01, 1}, 1e-12)
	testutil.RequireSliceNearlyEqual(t, Shift(shifted, -5005), c, 1e-12)

	c = []float64{3e-4, -2, 0.5, 7}
	for _, x := range []float64{-1, 0, 2.5} {
		testutil.RequireNearlyEqual(t, Val(Shift(c, 4), x), Val(c, x+4), 1e-12)
	}
	if Shift(nil, 1) != nil {
		t.Fatal("shift of empty polynomial")
	}
}

func TestFitExact(t *testing.T) {
	tests := []struct {
		name  string
		coef  []float64
		order int
		x     []float64
	}{
		{"constant", []float64{0.98}, 0, testutil.Grid(4999, 0.1, 20)},
		{"line near 5000", []float64{1e-3, -4}, 1, testutil.Grid(4998, 0.05, 80)},
		{"quadratic", []float64{0.5, -1, 2}, 2, testutil.Grid(-2, 0.25, 17)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := make([]float64, len(tt.x))
			ValInto(y, tt.coef, tt.x)

			got, err := Fit(tt.x, y, tt.order)
			if err != nil {
				t.Fatal(err)
			}
			fitted := make([]float64, len(tt.x))
			ValInto(fitted, got, tt.x)
			testutil.RequireSliceNearlyEqual(t, fitted, y, 1e-8)
		})
	}
}

func TestFitLeastSquares(t *testing.T) {
	// Mean of the samples is the order-0 least-squares solution.
	got, err := Fit([]float64{1, 2, 3, 4}, []float64{1, 2, 4, 5}, 0)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireNearlyEqual(t, got[0], 3, 1e-12)
}

func TestFitErrors(t *testing.T) {
	if _, err := Fit([]float64{1}, []float64{1}, 1); !errors.Is(err, ErrTooFewPoints) {
		t.Fatalf("err = %v", err)
	}
	if _, err := Fit([]float64{1}, []float64{1}, -1); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("err = %v", err)
	}
	if _, err := Fit([]float64{1, 2}, []float64{1}, 0); err == nil {
		t.Fatal("expected length mismatch error")
	}
}
