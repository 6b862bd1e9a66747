// Package filter implements the three temporal bandpass filters the
// magnification algorithms apply: an ideal FFT-based filter for color
// mode, a per-level IIR filter for Laplacian mode, and a pair of
// Butterworth biquads for Riesz mode. No FFT or DSP library appears
// anywhere in the corpus (the two audio/SDR examples hand-roll their
// own transforms too), so every filter here is implemented directly
// against stdlib math/cmplx.
package filter

import "math/cmplx"

// IdealBandpassRows applies a row-wise ideal (rectangular) bandpass in
// the frequency domain to a (rows x cols) matrix, in place semantics
// via a freshly allocated result: each row is an independent temporal
// sample sequence of length cols, which must be a power of two.
// Frequencies below loHz or above hiHz are zeroed; the edges are
// inclusive. DC (bin 0) is preserved only when loHz == 0.
func IdealBandpassRows(mat [][]float64, cols int, sampleHz float64, loHz, hiHz float64) [][]float64 {
	out := make([][]float64, len(mat))
	for r, row := range mat {
		out[r] = idealBandpass1D(row, cols, sampleHz, loHz, hiHz)
	}
	return out
}

func idealBandpass1D(samples []float64, n int, sampleHz, loHz, hiHz float64) []float64 {
	spectrum := make([]complex128, n)
	for i := 0; i < n; i++ {
		if i < len(samples) {
			spectrum[i] = complex(samples[i], 0)
		}
	}
	fft(spectrum, false)

	binHz := sampleHz / float64(n)
	for k := 0; k < n; k++ {
		freq := binFrequency(k, n, binHz)
		if freq == 0 && loHz == 0 {
			continue
		}
		mag := freq
		if mag < 0 {
			mag = -mag
		}
		if mag < loHz || mag > hiHz {
			spectrum[k] = 0
		}
	}

	fft(spectrum, true)
	out := make([]float64, n)
	for i := range out {
		out[i] = real(spectrum[i])
	}
	return out
}

// binFrequency maps FFT bin k of an n-point transform to its signed
// frequency in Hz, folding the upper half onto negative frequencies.
func binFrequency(k, n int, binHz float64) float64 {
	if k <= n/2 {
		return float64(k) * binHz
	}
	return float64(k-n) * binHz
}

// fft is an in-place iterative radix-2 Cooley-Tukey transform. len(a)
// must be a power of two; the color algorithm passes
// magnify.OptimalBufferSize as the length, which always is one.
func fft(a []complex128, inverse bool) {
	n := len(a)
	if n <= 1 {
		return
	}

	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; bit > 0; bit >>= 1 {
			j ^= bit
			if j&bit != 0 {
				break
			}
		}
		if i < j {
			a[i], a[j] = a[j], a[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		angle := -2 * piConst / float64(length)
		if inverse {
			angle = -angle
		}
		wlen := cmplx.Rect(1, angle)
		for i := 0; i < n; i += length {
			w := complex(1, 0)
			half := length / 2
			for j := 0; j < half; j++ {
				u := a[i+j]
				v := a[i+j+half] * w
				a[i+j] = u + v
				a[i+j+half] = u - v
				w *= wlen
			}
		}
	}

	if inverse {
		for i := range a {
			a[i] /= complex(float64(n), 0)
		}
	}
}

const piConst = 3.14159265358979323846
