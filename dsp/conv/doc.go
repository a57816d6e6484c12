// Package conv smooths spectra with Gaussian kernels.
//
// Synthetic spectra are computed on a fine grid and must be degraded to
// the resolution of an observation before they are compared with it.
// [GaussianFilter] does this with a sampled, unit-sum Gaussian; the
// convolution behind it is exposed as [Full], [Valid] and [Direct].
//
// Kernels longer than 64 taps are applied with a single zero-padded FFT,
// shorter ones in the pixel domain.
//
// # Boundaries
//
// [GaussianFilter] follows scipy.ndimage.gaussian_filter1d: sigma is in
// pixels, the kernel is truncated at 4 sigma, and the spectrum is extended
// by half-sample symmetric reflection (d c b a | a b c d | d c b a). A
// sigma of zero returns a copy of the input.
package conv
