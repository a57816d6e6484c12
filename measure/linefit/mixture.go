package linefit

import (
	"gonum.org/v1/gonum/stat"
)

// Mixture seeds.
const (
	defaultOutlierFraction = 0.01
	defaultOutlierVariance = 0.01
)

// seedMixture fills the outlier fraction, background mean and background
// variance that were not supplied. The background mean starts at the mean
// finite flux.
func seedMixture(theta, initial Theta, flux []float64) {
	set := func(name string, v float64) {
		if s, ok := initial[name]; ok {
			v = s
		}
		theta[name] = v
	}
	set(ParamOutlierFraction, defaultOutlierFraction)
	set(ParamOutlierVariance, defaultOutlierVariance)

	finiteFlux := make([]float64, 0, len(flux))
	for _, v := range flux {
		if finite(v) {
			finiteFlux = append(finiteFlux, v)
		}
	}
	set(ParamOutlierMean, stat.Mean(finiteFlux, nil))
}
