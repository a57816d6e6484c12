package linefit

import (
	"time"

	"github.com/cwbudde/algo-spectro/spectro/spectrum"
)

// FitResult is the outcome of [Fit]. It is not modified after Fit returns.
type FitResult struct {
	// OptimalTheta holds the fitted parameters only.
	OptimalTheta Theta `json:"theta"`
	// Parameters lists the fitted parameter names in optimiser order.
	Parameters []string `json:"parameters"`
	ChiSquare  float64  `json:"chi_square"`
	// DegreesOfFreedom is the number of finite pixels less the fitted
	// parameters and one. ReducedChiSquare is zero when it is not positive.
	DegreesOfFreedom int         `json:"degrees_of_freedom"`
	ReducedChiSquare float64     `json:"reduced_chi_square"`
	EquivalentWidth  float64     `json:"equivalent_width"`
	Diagnostics      Diagnostics `json:"diagnostics"`
	Spectra          Spectra     `json:"spectra"`
}

// Diagnostics describes how the optimum was reached.
type Diagnostics struct {
	Iterations    int    `json:"iterations"`
	FunctionCalls int    `json:"function_calls"`
	Converged     bool   `json:"converged"`
	Status        string `json:"status"`
	Strategy      string `json:"strategy"`
	Kind          string `json:"kind"`
	InitialTheta  Theta  `json:"initial_theta"`
	// InitialObjective is the objective at InitialTheta.
	InitialObjective float64 `json:"initial_objective"`
	// NegLogLikelihood is set by the mixture strategy.
	NegLogLikelihood float64 `json:"neg_log_likelihood,omitempty"`
	MaskRounds       int     `json:"mask_rounds"`
	// ExcludedPixels counts continuum pixels removed by the outlier masker.
	ExcludedPixels int `json:"excluded_pixels"`
	// ClippedPixels counts pixels dropped before the refit of WithClipSigma.
	ClippedPixels int           `json:"clipped_pixels,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Spectra are the curves behind a fit, all on the observed grid except
// BlendingUnsmoothed.
type Spectra struct {
	Data               spectrum.Curve  `json:"data"`
	Continuum          spectrum.Curve  `json:"continuum"`
	BlendingUnsmoothed *spectrum.Curve `json:"blending_unsmoothed,omitempty"`
	BlendingSmoothed   *spectrum.Curve `json:"blending_smoothed,omitempty"`
	Fitted             spectrum.Curve  `json:"fitted"`
}
