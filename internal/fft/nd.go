package fft

import (
	"github.com/alloy-ml/alloy/internal/parallel"
)

// N-dimensional real transforms. The half spectrum lives on the last axis
// (length n/2+1); the remaining axes carry full complex transforms. Lines
// along each axis are transformed in parallel.

// SpectrumShape returns the shape of the half spectrum for a real input of
// the given shape.
func SpectrumShape(shape []int) []int {
	spec := make([]int, len(shape))
	copy(spec, shape)
	spec[len(spec)-1] = shape[len(shape)-1]/2 + 1
	return spec
}

// RFFTN computes the forward DFT of a real N-dimensional array (row-major),
// returning the half spectrum with shape SpectrumShape(shape).
func RFFTN(x []float64, shape []int) []complex128 {
	specShape := SpectrumShape(shape)
	nLast := shape[len(shape)-1]
	specLast := specShape[len(specShape)-1]
	rows := len(x) / nLast

	spec := make([]complex128, numElements(specShape))
	parallel.ForRows(rows, func(r int) {
		line := RFFT(x[r*nLast : (r+1)*nLast])
		copy(spec[r*specLast:(r+1)*specLast], line)
	}, parallel.DefaultConfig())

	// Full complex transform along every remaining axis.
	for axis := len(specShape) - 2; axis >= 0; axis-- {
		transformAxis(spec, specShape, axis, false)
	}
	return spec
}

// IRFFTN inverts a half spectrum produced by RFFTN back to a real array of
// the given shape.
func IRFFTN(spec []complex128, shape []int) []float64 {
	specShape := SpectrumShape(shape)
	work := make([]complex128, len(spec))
	copy(work, spec)

	for axis := 0; axis < len(specShape)-1; axis++ {
		transformAxis(work, specShape, axis, true)
	}

	nLast := shape[len(shape)-1]
	specLast := specShape[len(specShape)-1]
	rows := numElements(shape) / nLast

	out := make([]float64, numElements(shape))
	parallel.ForRows(rows, func(r int) {
		line := IRFFT(work[r*specLast:(r+1)*specLast], nLast)
		copy(out[r*nLast:(r+1)*nLast], line)
	}, parallel.DefaultConfig())
	return out
}

// transformAxis runs a 1-D transform along the given axis for every line of
// the array.
func transformAxis(data []complex128, shape []int, axis int, inverse bool) {
	n := shape[axis]
	strides := computeStrides(shape)
	stride := strides[axis]
	lines := len(data) / n

	parallel.ForRows(lines, func(l int) {
		base := lineStart(l, shape, strides, axis)
		buf := make([]complex128, n)
		for k := 0; k < n; k++ {
			buf[k] = data[base+k*stride]
		}
		var res []complex128
		if inverse {
			res = Inverse(buf)
		} else {
			res = Forward(buf)
		}
		for k := 0; k < n; k++ {
			data[base+k*stride] = res[k]
		}
	}, parallel.DefaultConfig())
}

// lineStart maps a line ordinal to the flat index of its first element,
// enumerating all coordinates except the transform axis.
func lineStart(l int, shape, strides []int, axis int) int {
	idx := 0
	rem := l
	for d := len(shape) - 1; d >= 0; d-- {
		if d == axis {
			continue
		}
		idx += (rem % shape[d]) * strides[d]
		rem /= shape[d]
	}
	return idx
}

func computeStrides(shape []int) []int {
	strides := make([]int, len(shape))
	if len(shape) == 0 {
		return strides
	}
	strides[len(shape)-1] = 1
	for i := len(shape) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * shape[i+1]
	}
	return strides
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
