// ABOUTME: Noise package documentation
// ABOUTME: Describes the brown noise stochastic process
// Package noise provides the brown noise sample source.
//
// Each step draws uniform white noise in [-1, 1], scales it by 0.02 and
// accumulates it into a running value, clamps that value to [-1, 1] and
// multiplies it by 0.998 so that pure integration cannot build up DC offset.
//
// Example:
//
//	gen := noise.New(nil)
//	buf := make([]float32, 4096)
//	gen.Fill(buf)
//	gen.Reset()
package noise
