package species

// symbols lists element symbols by atomic number; index 0 is unused.
var symbols = [...]string{
	"",
	"H", "He", "Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar", "K", "Ca",
	"Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr", "Rb", "Sr", "Y", "Zr",
	"Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn",
	"Sb", "Te", "I", "Xe", "Cs", "Ba", "La", "Ce", "Pr", "Nd",
	"Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb",
	"Lu", "Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg",
	"Tl", "Pb", "Bi", "Po", "At", "Rn", "Fr", "Ra", "Ac", "Th",
	"Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf", "Es", "Fm",
	"Md", "No", "Lr",
}

var atomicNumbers = func() map[string]int {
	m := make(map[string]int, len(symbols))
	for z, s := range symbols {
		if s != "" {
			m[s] = z
		}
	}
	return m
}()

// MaxAtomicNumber is the largest atomic number known to the table.
const MaxAtomicNumber = len(symbols) - 1

// AtomicNumber returns the atomic number for a case-sensitive element symbol.
func AtomicNumber(symbol string) (int, error) {
	z, ok := atomicNumbers[symbol]
	if !ok {
		return 0, unknownElement(symbol)
	}
	return z, nil
}

// Element returns the element symbol for an atomic number.
func Element(z int) (string, error) {
	if z < 1 || z > MaxAtomicNumber {
		return "", unknownElement(z)
	}
	return symbols[z], nil
}
