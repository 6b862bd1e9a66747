package filter

import "math"

// Butterworth is a second-order (biquad) direct-form-I low-pass
// section used by Riesz mode, which forms a bandpass from the
// difference of a hi-cutoff and a lo-cutoff instance. One instance
// holds the state of every pixel of one pyramid level; coefficients
// are shared across those pixels and recomputed only when the cutoff
// Hz or the framerate changes.
type Butterworth struct {
	coeff Coeffs

	// Per-pixel state: the two previous inputs and the two previous
	// outputs (direct form I).
	x1, x2 []float32
	y1, y2 []float32
}

// Coeffs holds a second-order low-pass Butterworth section's
// bilinear-transform-derived coefficients.
type Coeffs struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// DesignLowpass computes a second-order Butterworth low-pass section
// for cutoff cutoffHz at sampleHz, via the standard bilinear transform
// (no corpus file implements this directly; this is the textbook
// prewarped bilinear design, the same family of math the nested-loop
// per-pixel state style in this package already assumes).
func DesignLowpass(cutoffHz, sampleHz float64) Coeffs {
	if cutoffHz <= 0 {
		cutoffHz = 1e-6
	}
	nyquist := sampleHz / 2
	if cutoffHz >= nyquist {
		cutoffHz = nyquist * 0.999
	}
	wc := math.Tan(math.Pi * cutoffHz / sampleHz)
	k := wc * wc
	sqrt2 := math.Sqrt2
	norm := 1 / (1 + sqrt2*wc + k)

	b0 := k * norm
	b1 := 2 * b0
	b2 := b0
	a1 := 2 * (k - 1) * norm
	a2 := (1 - sqrt2*wc + k) * norm

	return Coeffs{B0: b0, B1: b1, B2: b2, A1: a1, A2: a2}
}

// NewButterworth allocates a filter with n independent pixel states,
// designed for the given cutoff/sample rate pair.
func NewButterworth(cutoffHz, sampleHz float64, n int) *Butterworth {
	return &Butterworth{
		coeff: DesignLowpass(cutoffHz, sampleHz),
		x1:    make([]float32, n),
		x2:    make([]float32, n),
		y1:    make([]float32, n),
		y2:    make([]float32, n),
	}
}

// Redesign recomputes coefficients for a changed cutoff or framerate,
// leaving the per-pixel state (and thus filter history) untouched.
func (b *Butterworth) Redesign(cutoffHz, sampleHz float64) {
	b.coeff = DesignLowpass(cutoffHz, sampleHz)
}

// Apply runs one sample through the biquad for every pixel, in direct
// form: y[n] = b0*x[n] + b1*x[n-1] + b2*x[n-2] - a1*y[n-1] - a2*y[n-2].
func (b *Butterworth) Apply(x []float32) []float32 {
	c := b.coeff
	out := make([]float32, len(x))
	for i, xn := range x {
		yn := c.B0*float64(xn) + c.B1*float64(b.x1[i]) + c.B2*float64(b.x2[i]) -
			c.A1*float64(b.y1[i]) - c.A2*float64(b.y2[i])
		b.x2[i] = b.x1[i]
		b.x1[i] = xn
		b.y2[i] = b.y1[i]
		b.y1[i] = float32(yn)
		out[i] = float32(yn)
	}
	return out
}
