package species

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestStringAndCodeAgree(t *testing.T) {
	tests := []struct {
		name string
		code float64
	}{
		{name: "Fe", code: 26.0},
		{name: "Fe I", code: 26.0},
		{name: "Fe II", code: 26.1},
		{name: "Fe 2", code: 26.1},
		{name: "Ca", code: 20.0},
		{name: "Ti III", code: 22.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fromName, err := ParseString(tt.name)
			if err != nil {
				t.Fatalf("ParseString(%q): %v", tt.name, err)
			}
			fromCode, err := FromCode(tt.code)
			if err != nil {
				t.Fatalf("FromCode(%v): %v", tt.code, err)
			}
			if diff := cmp.Diff(fromCode, fromName, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Fatalf("species mismatch (-code +name):\n%s", diff)
			}
		})
	}
}

func TestFromCode(t *testing.T) {
	s, err := FromCode(26.1)
	if err != nil {
		t.Fatal(err)
	}
	want := Species{Element: "Fe", AtomicNumber: 26, Ionisation: 2, Code: 26.1}
	if diff := cmp.Diff(want, s, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if got := s.String(); got != "Fe II" {
		t.Fatalf("String() = %q", got)
	}
}

func TestParseNumericString(t *testing.T) {
	s, err := ParseString("20.0")
	if err != nil {
		t.Fatal(err)
	}
	if s.Element != "Ca" || s.Ionisation != 1 {
		t.Fatalf("got %+v", s)
	}
}

func TestParseUnset(t *testing.T) {
	s, err := Parse(Spec{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Known() {
		t.Fatalf("unset spec resolved to %+v", s)
	}
	if s.String() != "unspecified" {
		t.Fatalf("String() = %q", s.String())
	}
}

func TestUnknownElement(t *testing.T) {
	for _, in := range []string{"Xx", "fe", "", "FE II"} {
		if _, err := ParseString(in); !errors.Is(err, ErrUnknownElement) {
			t.Errorf("ParseString(%q) err = %v, want ErrUnknownElement", in, err)
		}
	}
	for _, code := range []float64{0, 150.0, math.NaN()} {
		if _, err := FromCode(code); !errors.Is(err, ErrUnknownElement) {
			t.Errorf("FromCode(%v) err = %v, want ErrUnknownElement", code, err)
		}
	}
}

func TestInvalidIonisation(t *testing.T) {
	if _, err := ParseString("Fe x"); !errors.Is(err, ErrInvalidIonisation) {
		t.Fatalf("err = %v, want ErrInvalidIonisation", err)
	}
	if _, err := ParseString("Fe 0"); !errors.Is(err, ErrInvalidIonisation) {
		t.Fatalf("err = %v, want ErrInvalidIonisation", err)
	}
}

func TestTableRoundTrip(t *testing.T) {
	for z := 1; z <= MaxAtomicNumber; z++ {
		sym, err := Element(z)
		if err != nil {
			t.Fatal(err)
		}
		got, err := AtomicNumber(sym)
		if err != nil || got != z {
			t.Fatalf("AtomicNumber(%q) = %d, %v; want %d", sym, got, err, z)
		}
	}
}
