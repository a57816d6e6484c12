package conv

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-spectro/internal/testutil"
)

func TestDirect(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected []float64
	}{
		{name: "simple 3x3", a: []float64{1, 2, 3}, b: []float64{1, 1, 1}, expected: []float64{1, 3, 6, 5, 3}},
		{name: "impulse", a: []float64{1, 2, 3, 4, 5}, b: []float64{1}, expected: []float64{1, 2, 3, 4, 5}},
		{name: "delayed impulse", a: []float64{1, 2, 3, 4, 5}, b: []float64{0, 0, 1}, expected: []float64{0, 0, 1, 2, 3, 4, 5}},
		{name: "symmetric", a: []float64{1, 2, 1}, b: []float64{1, 2, 1}, expected: []float64{1, 4, 6, 4, 1}},
		{name: "vector path", a: []float64{1, 0, 0, 2}, b: []float64{1, 2, 3, 4, 5}, expected: []float64{1, 2, 3, 6, 9, 6, 8, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Direct(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.RequireSliceNearlyEqual(t, result, tt.expected, 1e-12)
		})
	}
}

func TestDirectErrors(t *testing.T) {
	if _, err := Direct(nil, []float64{1}); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := Direct([]float64{1}, nil); !errors.Is(err, ErrEmptyKernel) {
		t.Fatalf("expected ErrEmptyKernel, got %v", err)
	}
}

func TestFFTMatchesDirect(t *testing.T) {
	signal := testutil.DeterministicNoise(3, 1, 1500)
	kernel := GaussianKernel(30)

	want, err := Direct(signal, kernel)
	if err != nil {
		t.Fatal(err)
	}
	got, err := fftFull(signal, kernel)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, got, want, 1e-10)

	auto, err := Full(kernel, signal)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, auto, want, 1e-10)
}

func TestValid(t *testing.T) {
	valid, err := Valid([]float64{1, 2, 3, 4, 5}, []float64{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, valid, []float64{6, 9, 12}, 1e-12)

	if _, err := Valid([]float64{1, 2}, []float64{1, 1, 1}); !errors.Is(err, ErrKernelTooLong) {
		t.Fatalf("err = %v, want ErrKernelTooLong", err)
	}
	if _, err := Full(nil, []float64{1}); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
}

func TestGaussianKernelNormalized(t *testing.T) {
	for _, sigma := range []float64{0.3, 1, 2.5, 40} {
		k := GaussianKernel(sigma)
		if len(k)%2 != 1 {
			t.Fatalf("sigma %v: even kernel length %d", sigma, len(k))
		}
		sum := 0.0
		for _, v := range k {
			sum += v
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Fatalf("sigma %v: kernel sum %v", sigma, sum)
		}
	}
	if got := len(GaussianKernel(1)); got != 9 {
		t.Fatalf("sigma 1 kernel length = %d, want 9", got)
	}
}

// Reference values from scipy.ndimage.gaussian_filter1d.
func TestGaussianFilterReference(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}

	got, err := GaussianFilter(x, 1)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, got, []float64{1.42704095, 2.06782203, 3, 3.93217797, 4.57295905}, 1e-7)

	got, err = GaussianFilter(x, 4)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, got, []float64{2.91948343, 2.95023502, 3, 3.04976498, 3.08051657}, 1e-7)
}

func TestGaussianFilterPreservesConstant(t *testing.T) {
	x := testutil.DC(0.7, 300)
	got, err := GaussianFilter(x, 25)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, got, x, 1e-12)
}

func TestGaussianFilterZeroSigma(t *testing.T) {
	x := []float64{3, 1, 2}
	got, err := GaussianFilter(x, 0)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, got, x, 0)
	got[0] = 0
	if x[0] != 3 {
		t.Fatal("GaussianFilter must not alias its input")
	}
}

func TestGaussianFilterErrors(t *testing.T) {
	if _, err := GaussianFilter(nil, 1); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err = %v", err)
	}
	for _, s := range []float64{-1, math.NaN(), math.Inf(1)} {
		if _, err := GaussianFilter([]float64{1}, s); !errors.Is(err, ErrInvalidSigma) {
			t.Fatalf("sigma %v: err = %v", s, err)
		}
	}
}

func TestReflectPad(t *testing.T) {
	got := reflectPad([]float64{1, 2, 3}, 4)
	testutil.RequireSliceNearlyEqual(t, got, []float64{3, 3, 2, 1, 1, 2, 3, 3, 2, 1, 1}, 0)
}
