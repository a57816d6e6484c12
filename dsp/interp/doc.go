// Package interp provides interpolation primitives for resampling sampled
// curves onto a new grid.
//
//   - [Linear]:       piecewise-linear resampling with end-value clamping
//   - [LinearInto]:   allocation-free variant of [Linear]
//   - [SearchSorted]: insertion index into a sorted grid
package interp
