package testutil

import (
	"fmt"
	"math"
	"testing"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RequireSliceNearlyEqual fails t unless got and want have the same length
// and agree within eps pixel by pixel. NaN matches NaN, since bad pixels
// are flagged that way.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		g := got[i]
		if math.IsNaN(w) && math.IsNaN(g) {
			continue
		}
		if d := math.Abs(g - w); !(d <= eps) {
			t.Fatalf("pixel %d: got %v, want %v (|diff| %v > %v)", i, g, w, d, eps)
		}
	}
}

// RequireFinite fails t on the first NaN or Inf in data.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()
	for i, v := range data {
		if !finite(v) {
			t.Fatalf("pixel %d: non-finite value %v", i, v)
		}
	}
}

// MaxAbsDiff returns the largest |a[i]-b[i]| over pixels where both values
// are finite.
func MaxAbsDiff(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}
	worst := 0.0
	for i, v := range a {
		if finite(v) && finite(b[i]) {
			worst = math.Max(worst, math.Abs(v-b[i]))
		}
	}
	return worst, nil
}

// RequireNearlyEqual fails t unless |got-want| <= eps.
func RequireNearlyEqual(t *testing.T, got, want, eps float64) {
	t.Helper()
	if d := math.Abs(got - want); !(d <= eps) {
		t.Fatalf("got %v, want %v (|diff| %v > %v)", got, want, d, eps)
	}
}

// RequireRelative fails t unless got is within rel*|want| of a non-zero
// want. Equivalent widths are compared this way.
func RequireRelative(t *testing.T, got, want, rel float64) {
	t.Helper()
	if want == 0 || !(math.Abs(got-want) <= rel*math.Abs(want)) {
		t.Fatalf("got %v, want %v within %.3g%%", got, want, 100*rel)
	}
}
