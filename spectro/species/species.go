// Package species resolves chemical species identifiers of atomic
// transitions.
//
// A species is given either as a packed numeric code Z + (ion-1)/10
// (26.0 is Fe I, 26.1 is Fe II) or as a string such as "Fe", "Fe I",
// "Fe II" or "Fe 2". Both forms resolve to the same [Species] value.
package species

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownElement is returned when an element symbol or atomic number is
// not in the periodic table.
var ErrUnknownElement = errors.New("species: unknown element")

// ErrInvalidIonisation is returned when an ionisation token cannot be parsed.
var ErrInvalidIonisation = errors.New("species: invalid ionisation level")

func unknownElement(v any) error {
	return fmt.Errorf("%w: %v", ErrUnknownElement, v)
}

// Species is a resolved chemical species. The zero value is the
// "unspecified" species.
type Species struct {
	Element      string
	AtomicNumber int
	Ionisation   int // 1 is neutral
	Code         float64
}

// Known reports whether the species was specified.
func (s Species) Known() bool {
	return s.AtomicNumber > 0
}

// String renders the species in spectroscopic notation, e.g. "Fe II".
func (s Species) String() string {
	if !s.Known() {
		return "unspecified"
	}
	return s.Element + " " + strings.Repeat("I", s.Ionisation)
}

type specKind int

const (
	specUnset specKind = iota
	specCode
	specName
)

// Spec is an unresolved species identifier. The zero value is unset.
type Spec struct {
	kind specKind
	code float64
	name string
}

// Code returns a Spec for a packed numeric species code.
func Code(code float64) Spec {
	return Spec{kind: specCode, code: code}
}

// Name returns a Spec for a string identifier such as "Fe II".
func Name(name string) Spec {
	return Spec{kind: specName, name: name}
}

// IsSet reports whether the Spec carries an identifier.
func (s Spec) IsSet() bool {
	return s.kind != specUnset
}

// Parse resolves a Spec. An unset Spec resolves to the zero Species.
func Parse(s Spec) (Species, error) {
	switch s.kind {
	case specCode:
		return FromCode(s.code)
	case specName:
		return ParseString(s.name)
	default:
		return Species{}, nil
	}
}

// FromCode resolves a packed numeric species code.
func FromCode(code float64) (Species, error) {
	if math.IsNaN(code) || math.IsInf(code, 0) {
		return Species{}, unknownElement(code)
	}
	z := int(math.Floor(code))
	element, err := Element(z)
	if err != nil {
		return Species{}, err
	}
	ion := int(math.Round(10*(code-float64(z)))) + 1
	return newSpecies(element, z, ion), nil
}

// ParseString resolves a string identifier. Numeric strings ("26.1") are
// treated as packed codes.
func ParseString(s string) (Species, error) {
	s = strings.TrimSpace(s)
	if code, err := strconv.ParseFloat(s, 64); err == nil {
		return FromCode(code)
	}

	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Species{}, unknownElement(s)
	}
	z, err := AtomicNumber(fields[0])
	if err != nil {
		return Species{}, err
	}

	ion := 1
	if len(fields) > 1 {
		ion, err = parseIonisation(fields[1])
		if err != nil {
			return Species{}, err
		}
	}
	return newSpecies(fields[0], z, ion), nil
}

// parseIonisation accepts roman-style tokens (counted "I" characters, which
// covers I to III) or explicit integers.
func parseIonisation(token string) (int, error) {
	upper := strings.ToUpper(token)
	if strings.Contains(upper, "I") {
		return strings.Count(upper, "I"), nil
	}
	ion, err := strconv.Atoi(token)
	if err != nil || ion < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIonisation, token)
	}
	return ion, nil
}

func newSpecies(element string, z, ion int) Species {
	return Species{
		Element:      element,
		AtomicNumber: z,
		Ionisation:   ion,
		Code:         float64(z) + float64(ion-1)/10,
	}
}
