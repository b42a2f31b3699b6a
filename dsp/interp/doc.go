// Package interp provides the small interpolation primitives used to refine
// discrete spectral measurements:
//
//   - [Parabolic]: three-point vertex fit for sub-bin peak location
//   - [Linear2]:   2-point linear interpolation
//   - [Crossing]:  fractional position where a segment crosses a level
package interp
