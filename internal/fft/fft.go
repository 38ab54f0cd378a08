// Package fft implements the discrete Fourier transforms used by the
// spectral crossover engine.
//
// Forward transforms are unscaled; inverse transforms carry the 1/n factor.
// Power-of-two lengths use an iterative radix-2 Cooley-Tukey; all other
// lengths fall back to Bluestein's chirp-z algorithm, so tensors of any
// dimension size can be transformed.
package fft

import (
	"math"
	"math/bits"
	"math/cmplx"
)

// Forward computes the unscaled forward DFT of x.
func Forward(x []complex128) []complex128 {
	return transform(x, false)
}

// Inverse computes the inverse DFT of x, scaled by 1/len(x).
func Inverse(x []complex128) []complex128 {
	return transform(x, true)
}

func transform(x []complex128, inverse bool) []complex128 {
	n := len(x)
	if n == 0 {
		return nil
	}
	if inverse {
		// inverse(x) = conj(forward(conj(x))) / n
		tmp := make([]complex128, n)
		for i, v := range x {
			tmp[i] = cmplx.Conj(v)
		}
		out := transform(tmp, false)
		inv := 1.0 / float64(n)
		for i, v := range out {
			out[i] = cmplx.Conj(v) * complex(inv, 0)
		}
		return out
	}

	out := make([]complex128, n)
	copy(out, x)
	if n&(n-1) == 0 {
		fftPow2(out)
		return out
	}
	return bluestein(out)
}

// fftPow2 is an in-place iterative radix-2 Cooley-Tukey FFT.
// len(x) must be a power of two.
func fftPow2(x []complex128) {
	n := len(x)
	if n < 2 {
		return
	}

	// Bit-reversal permutation.
	shift := 64 - uint(bits.TrailingZeros(uint(n)))
	for i := 0; i < n; i++ {
		j := int(bits.Reverse64(uint64(i)) >> shift)
		if j > i {
			x[i], x[j] = x[j], x[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		step := -2 * math.Pi / float64(size)
		for start := 0; start < n; start += size {
			for k := 0; k < half; k++ {
				w := cmplx.Exp(complex(0, step*float64(k)))
				even := x[start+k]
				odd := x[start+k+half] * w
				x[start+k] = even + odd
				x[start+k+half] = even - odd
			}
		}
	}
}

// bluestein computes the DFT of arbitrary length via the chirp-z transform,
// expressed as a circular convolution of power-of-two size.
func bluestein(x []complex128) []complex128 {
	n := len(x)
	m := 1
	for m < 2*n-1 {
		m <<= 1
	}

	// chirp[k] = exp(-i*pi*k^2/n); k^2 mod 2n keeps the argument bounded.
	chirp := make([]complex128, n)
	for k := 0; k < n; k++ {
		kk := (int64(k) * int64(k)) % int64(2*n)
		chirp[k] = cmplx.Exp(complex(0, -math.Pi*float64(kk)/float64(n)))
	}

	a := make([]complex128, m)
	b := make([]complex128, m)
	for k := 0; k < n; k++ {
		a[k] = x[k] * chirp[k]
		inv := cmplx.Conj(chirp[k])
		b[k] = inv
		if k > 0 {
			b[m-k] = inv
		}
	}

	fftPow2(a)
	fftPow2(b)
	for i := range a {
		a[i] *= b[i]
	}
	// Unscaled inverse of the product.
	for i := range a {
		a[i] = cmplx.Conj(a[i])
	}
	fftPow2(a)
	invM := 1.0 / float64(m)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		out[k] = cmplx.Conj(a[k]) * complex(invM, 0) * chirp[k]
	}
	return out
}

// RFFT computes the forward DFT of a real signal, returning the
// non-redundant half spectrum of length n/2+1.
func RFFT(x []float64) []complex128 {
	n := len(x)
	buf := make([]complex128, n)
	for i, v := range x {
		buf[i] = complex(v, 0)
	}
	full := Forward(buf)
	return full[:n/2+1]
}

// IRFFT inverts a half spectrum back to a real signal of length n,
// reconstructing the redundant negative frequencies by conjugate symmetry.
func IRFFT(spec []complex128, n int) []float64 {
	full := make([]complex128, n)
	copy(full, spec[:min(len(spec), n)])
	for k := n/2 + 1; k < n; k++ {
		full[k] = cmplx.Conj(full[n-k])
	}
	inv := Inverse(full)
	out := make([]float64, n)
	for i, v := range inv {
		out[i] = real(v)
	}
	return out
}
