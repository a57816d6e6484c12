// Package outlier finds contiguous runs of pixels that deviate from a model
// and removes them from a fitting mask. Unmodelled neighbouring lines and
// cosmic-ray hits show up as such runs.
//
// Runs are located by differencing the boolean sequence |sigma| > threshold.
// Whether the first edge opens or closes a run is decided by the flag of the
// pixel right after it, so a run that touches the left border of the window
// is never reported.
package outlier

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Defaults for [Masker].
const (
	DefaultRounds       = 3
	DefaultThreshold    = 1.0
	DefaultMinRunLength = 2
)

// Run is the half-open pixel range [Start, End) of an outlier run.
type Run struct {
	Start int
	End   int
}

// Len returns the number of pixels in the run.
func (r Run) Len() int { return r.End - r.Start }

// Standardize returns (model-flux)/std, where residuals outside mask are
// zeroed and std is the population standard deviation of the in-mask
// residuals. A zero or undefined std yields all zeros.
func Standardize(model, flux []float64, mask []bool) []float64 {
	sigmas := make([]float64, len(model))
	inMask := make([]float64, 0, len(model))
	for i := range model {
		if !mask[i] {
			continue
		}
		sigmas[i] = model[i] - flux[i]
		inMask = append(inMask, sigmas[i])
	}
	if len(inMask) == 0 {
		return sigmas
	}

	_, variance := stat.PopMeanVariance(inMask, nil)
	std := math.Sqrt(variance)
	if std == 0 || math.IsNaN(std) {
		for i := range sigmas {
			sigmas[i] = 0
		}
		return sigmas
	}
	for i := range sigmas {
		sigmas[i] /= std
	}
	return sigmas
}

// Edges returns every index i where the outlier flag of pixel i differs
// from that of pixel i+1.
func Edges(sigmas []float64, threshold float64) []int {
	var edges []int
	for i := 0; i+1 < len(sigmas); i++ {
		if flagged(sigmas[i], threshold) != flagged(sigmas[i+1], threshold) {
			edges = append(edges, i)
		}
	}
	return edges
}

// Runs groups the flagged pixels into contiguous runs using [Edges]. A run
// still open at the last edge extends to the end of the sequence.
//
// The flag of the pixel after the first edge decides whether even edges
// open runs. A run that starts at pixel 0 has no opening edge and is never
// reported.
func Runs(sigmas []float64, threshold float64) []Run {
	edges := Edges(sigmas, threshold)
	if len(edges) == 0 {
		return nil
	}

	startsOnEven := flagged(sigmas[edges[0]+1], threshold)
	var runs []Run
	for i, edge := range edges {
		isStart := (i%2 == 0) == startsOnEven
		if !isStart {
			continue
		}
		end := len(sigmas)
		if i+1 < len(edges) {
			end = edges[i+1] + 1
		}
		runs = append(runs, Run{Start: edge + 1, End: end})
	}
	return runs
}

func flagged(sigma, threshold float64) bool {
	return math.Abs(sigma) > threshold
}

// Masker removes outlier runs from a continuum mask.
type Masker struct {
	// Rounds is the number of refinement rounds; zero means DefaultRounds.
	Rounds int
	// Threshold is the flagging level in standard deviations; zero means
	// DefaultThreshold.
	Threshold float64
	// MinRunLength is the shortest run that is excluded; zero means
	// DefaultMinRunLength. Shorter runs (isolated pixels) stay in the mask.
	MinRunLength int
	// Tolerance stops the refinement once a round excludes no more than
	// this fraction of the pixels. Zero runs every round.
	Tolerance float64
}

// RoundCount returns the configured number of rounds.
func (m Masker) RoundCount() int {
	if m.Rounds <= 0 {
		return DefaultRounds
	}
	return m.Rounds
}

func (m Masker) threshold() float64 {
	if m.Threshold <= 0 {
		return DefaultThreshold
	}
	return m.Threshold
}

func (m Masker) minRun() int {
	if m.MinRunLength <= 0 {
		return DefaultMinRunLength
	}
	return m.MinRunLength
}

// Update standardizes the residuals of model against flux within mask and
// clears every qualifying outlier run from mask in place. If the update
// would leave fewer than minKeep pixels, mask is left unchanged. It returns
// the number of newly excluded pixels.
func (m Masker) Update(mask []bool, model, flux []float64, minKeep int) int {
	sigmas := Standardize(model, flux, mask)

	next := append([]bool(nil), mask...)
	excluded := 0
	for _, r := range Runs(sigmas, m.threshold()) {
		if r.Len() < m.minRun() {
			continue
		}
		for i := r.Start; i < r.End; i++ {
			if next[i] {
				next[i] = false
				excluded++
			}
		}
	}

	kept := 0
	for _, v := range next {
		if v {
			kept++
		}
	}
	if kept < minKeep {
		return 0
	}
	copy(mask, next)
	return excluded
}

// Converged reports whether a round that excluded the given number of
// pixels out of n ends the refinement early.
func (m Masker) Converged(excluded, n int) bool {
	return m.Tolerance > 0 && float64(excluded) <= m.Tolerance*float64(n)
}
