package linefit

import (
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-spectro/internal/poly"
	"github.com/cwbudde/algo-spectro/spectro/profile"
)

// layout maps parameter names to positions in the optimiser vector. The
// continuum block holds the polynomial in x-origin; Theta carries it in x.
type layout struct {
	names      []string
	depth      int
	fwhm       int
	wavelength int // -1 when fixed
	continuum  int // index of continuum.0, -1 when fixed
	order      int
	origin     float64
	blending   int // -1 without blending transitions
	fraction   int // mixture only, -1 otherwise
	mean       int
	variance   int
}

func newLayout(origin float64, hasWavelength bool, continuumOrder int, freeContinuum, blending, mixture bool) layout {
	l := layout{origin: origin, wavelength: -1, continuum: -1, blending: -1, fraction: -1, mean: -1, variance: -1}
	add := func(name string) int {
		l.names = append(l.names, name)
		return len(l.names) - 1
	}
	l.depth = add(ParamLineDepth)
	l.fwhm = add(ParamFWHM)
	if hasWavelength {
		l.wavelength = add(ParamWavelength)
	}
	if freeContinuum {
		l.order = continuumOrder
		l.continuum = len(l.names)
		for i := 0; i <= continuumOrder; i++ {
			add(ContinuumParam(i))
		}
	}
	if blending {
		l.blending = add(ParamBlendingFWHM)
	}
	if mixture {
		l.fraction = add(ParamOutlierFraction)
		l.mean = add(ParamOutlierMean)
		l.variance = add(ParamOutlierVariance)
	}
	return l
}

func (l layout) vector(theta Theta) []float64 {
	x := make([]float64, len(l.names))
	for i, name := range l.names {
		x[i] = theta[name]
	}
	if l.continuum >= 0 {
		block := x[l.continuum : l.continuum+l.order+1]
		copy(block, poly.Shift(block, l.origin))
	}
	return x
}

func (l layout) theta(x []float64) Theta {
	t := make(Theta, len(l.names))
	for i, name := range l.names {
		t[name] = x[i]
	}
	if l.continuum >= 0 {
		t.SetContinuum(l.absoluteContinuum(x))
	}
	return t
}

// absoluteContinuum returns the continuum coefficients of x in the
// dispersion coordinate.
func (l layout) absoluteContinuum(x []float64) []float64 {
	return poly.Shift(x[l.continuum:l.continuum+l.order+1], -l.origin)
}

func (l layout) isContinuum(i int) bool {
	return l.continuum >= 0 && i >= l.continuum && i <= l.continuum+l.order
}

func (l layout) index(name string) int {
	for i, n := range l.names {
		if n == name {
			return i
		}
	}
	return -1
}

// constraint is a user bound resolved to a vector index.
type constraint struct {
	index  int
	bounds Bounds
}

// model evaluates blending * (1 - depth*G(center, fwhm)) * continuum on a
// fixed grid. It owns scratch buffers and is not safe for concurrent use.
type model struct {
	layout      layout
	disp        []float64
	flux        []float64
	ivar        []float64
	variance    []float64
	wavelength  float64
	continuum   []float64 // fixed continuum on disp
	blending    *blendingSpectrum
	constraints []constraint

	prof   []float64
	blend  []float64
	cont   []float64
	out    []float64
	offset []float64 // disp - layout.origin
}

func newModel(l layout, disp, flux, variance []float64, wavelength float64, fixedContinuum []float64, b *blendingSpectrum, constraints []constraint) *model {
	n := len(disp)
	ivar := make([]float64, n)
	for i, v := range variance {
		ivar[i] = 1 / v
	}
	m := &model{
		layout:      l,
		disp:        disp,
		flux:        flux,
		ivar:        ivar,
		variance:    variance,
		wavelength:  wavelength,
		continuum:   fixedContinuum,
		blending:    b,
		constraints: constraints,
		prof:        make([]float64, n),
		blend:       make([]float64, n),
		cont:        make([]float64, n),
		out:         make([]float64, n),
	}
	if l.continuum >= 0 {
		m.offset = make([]float64, n)
		for i, x := range disp {
			m.offset[i] = x - l.origin
		}
	}
	return m
}

// admissible applies the physical and user constraints.
func (m *model) admissible(x []float64) bool {
	l := m.layout
	if !(x[l.fwhm] > 0) || !(x[l.depth] > 0 && x[l.depth] < 1) {
		return false
	}
	if l.blending >= 0 && !(x[l.blending] >= 0) {
		return false
	}
	if l.fraction >= 0 && (!(x[l.fraction] > 0 && x[l.fraction] < 1) || !(x[l.variance] >= 0)) {
		return false
	}
	var absolute []float64
	for _, c := range m.constraints {
		v := x[c.index]
		if l.isContinuum(c.index) {
			if absolute == nil {
				absolute = l.absoluteContinuum(x)
			}
			v = absolute[c.index-l.continuum]
		}
		if !c.bounds.Allows(v) {
			return false
		}
	}
	return true
}

// evaluate fills m.out with the model for x. It reports false when x is
// outside the admissible region or the blending spectrum cannot be
// smoothed.
func (m *model) evaluate(x []float64) bool {
	if !m.admissible(x) {
		return false
	}
	l := m.layout

	center := m.wavelength
	if l.wavelength >= 0 {
		center = x[l.wavelength]
	}

	cont := m.continuum
	if l.continuum >= 0 {
		poly.ValInto(m.cont, x[l.continuum:l.continuum+l.order+1], m.offset)
		cont = m.cont
	}

	var blend []float64
	if m.blending != nil {
		if err := m.blending.smoothInto(m.blend, x[l.blending]); err != nil {
			return false
		}
		blend = m.blend
	}

	compose(m.out, m.prof, m.disp, x[l.depth], center, x[l.fwhm], blend, cont)
	return true
}

// compose writes blend * (1 - depth*G) * cont to dst using prof as
// scratch. A nil blend is treated as unity.
func compose(dst, prof, disp []float64, depth, center, fwhm float64, blend, cont []float64) {
	profile.GaussianInto(prof, disp, center, fwhm*profile.FWHMToSigma)
	for i, g := range prof {
		prof[i] = 1 - depth*g
	}
	vecmath.MulBlock(dst, prof, cont)
	if blend != nil {
		vecmath.MulBlockInPlace(dst, blend)
	}
}

// chiSquare returns sum((model-flux)^2 * ivar) over finite terms and the
// number of finite terms.
func chiSquare(model, flux, ivar []float64) (float64, int) {
	sum := 0.0
	n := 0
	for i, mv := range model {
		r := mv - flux[i]
		term := r * r * ivar[i]
		if math.IsNaN(term) || math.IsInf(term, 0) {
			continue
		}
		sum += term
		n++
	}
	return sum, n
}

// gaussianLogLike is -0.5*((f-m)^2*ivar - log(ivar)).
func gaussianLogLike(f, m, ivar float64) float64 {
	r := f - m
	return -0.5 * (r*r*ivar - math.Log(ivar))
}

// logAddExp returns log(exp(a) + exp(b)) without overflow.
func logAddExp(a, b float64) float64 {
	if a == b {
		return a + math.Ln2
	}
	if a < b {
		a, b = b, a
	}
	if math.IsInf(a, -1) {
		return a
	}
	return a + math.Log1p(math.Exp(b-a))
}

// mixtureNLL returns the negative log-likelihood of a two-component mixture:
// the line model with weight 1-p and a background of mean y and extra
// variance v with weight p. Non-finite terms are skipped.
func mixtureNLL(model, flux, variance []float64, p, y, v float64) float64 {
	lnP, ln1mP := math.Log(p), math.Log1p(-p)
	sum := 0.0
	for i, mv := range model {
		f := flux[i]
		lm := gaussianLogLike(f, mv, 1/variance[i])
		lb := gaussianLogLike(f, y, 1/(v+variance[i]))
		term := logAddExp(ln1mP+lm, lnP+lb)
		if math.IsNaN(term) || math.IsInf(term, 0) {
			continue
		}
		sum += term
	}
	return -sum
}
