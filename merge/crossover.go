// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"fmt"
	"math"

	"github.com/alloy-ml/alloy/internal/fft"
	"github.com/alloy-ml/alloy/internal/kernel"
	"github.com/alloy-ml/alloy/tensor"
)

// Crossover blends the low frequencies of a with the high frequencies of b
// (or the reverse) through a tilted cut in the real-FFT spectrum: both
// tensors are transformed, blended per frequency bin by the mask of
// CreateFilter, and transformed back.
//
// Degenerate hyperparameters short-circuit: alpha=0 returns a, alpha=1
// returns b, tilt=1 is exactly WeightedSum(a, b, alpha). A 0-dimensional
// input or operands that are equal at half precision skip the transform
// and blend linearly at ratio tilt.
func Crossover(a, b *tensor.RawTensor, alpha, tilt float64) (*tensor.RawTensor, error) {
	if alpha == 0 {
		return a, nil
	}
	if alpha == 1 {
		return b, nil
	}
	if tilt == 1 {
		return WeightedSum(a, b, alpha)
	}

	av := kernel.Values(a)
	bv := kernel.Values(b)
	if len(a.Shape()) == 0 || kernel.AllCloseHalf(av, bv) {
		return WeightedSum(a, b, tilt)
	}

	shape := []int(a.Shape())
	aSpec := fft.RFFTN(av, shape)
	bSpec := fft.RFFTN(bv, shape)

	filter, err := CreateFilter(fft.SpectrumShape(shape), alpha, tilt)
	if err != nil {
		return nil, err
	}

	blended := make([]complex128, len(aSpec))
	for i := range blended {
		f := complex(filter[i], 0)
		blended[i] = (1-f)*aSpec[i] + f*bSpec[i]
	}
	return kernel.FromValuesLike(fft.IRFFTN(blended, shape), a), nil
}

// DistributionCrossover is Crossover applied to value distributions
// instead of spatial layouts: a and b are flattened and sorted by the
// ordering of c, the blend happens in the 1-D spectrum of the sorted
// sequences, and the result is scattered back to c's ordering.
func DistributionCrossover(a, b, c *tensor.RawTensor, alpha, tilt float64) (*tensor.RawTensor, error) {
	if alpha == 0 {
		return a, nil
	}
	if alpha == 1 {
		return b, nil
	}
	if tilt == 1 || len(a.Shape()) == 0 {
		return WeightedSum(a, b, alpha)
	}

	av := kernel.Values(a)
	bv := kernel.Values(b)
	n := len(av)

	order := kernel.ArgsortStable(kernel.Values(c))
	aDist := make([]float64, n)
	bDist := make([]float64, n)
	for i, src := range order {
		aDist[i] = av[src]
		bDist[i] = bv[src]
	}

	aSpec := fft.RFFT(aDist)
	bSpec := fft.RFFT(bDist)

	filter, err := CreateFilter([]int{len(aSpec)}, alpha, tilt)
	if err != nil {
		return nil, err
	}

	blended := make([]complex128, len(aSpec))
	for i := range blended {
		f := complex(filter[i], 0)
		blended[i] = (1-f)*aSpec[i] + f*bSpec[i]
	}
	xDist := fft.IRFFT(blended, n)

	out := make([]float64, n)
	for i, src := range order {
		out[src] = xDist[i]
	}
	return kernel.FromValuesLike(out, a), nil
}

// CreateFilter builds the frequency mask of the crossover cut over a
// spectrum of the given shape, row-major, in [0, 1] per bin.
//
// The cut is tilted around the origin by tilt (0 = hard vertical
// threshold, 0.5 = 45 degrees, 2 = inverted threshold) and slid along its
// normal until it touches (alpha, 1-alpha): alpha=0 yields all zeros,
// alpha=1 all ones, and intermediate values split the spectrum at radius
// 1-alpha. Tilt is periodic with period 4; the half beyond 2 inverts the
// mask. Returns an error when alpha is outside [0, 1].
func CreateFilter(shape []int, alpha, tilt float64) ([]float64, error) {
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("create_filter: alpha must be between 0 and 1, got %v", alpha)
	}

	tilt -= 4 * math.Floor(tilt/4)
	inverted := false
	if tilt > 2 {
		alpha = 1 - alpha
		inverted = true
	}

	ndim := len(shape)
	gradients := make([][]float64, ndim)
	for i := 0; i < ndim; i++ {
		// Axis ndim-1 holds the one-sided real-FFT spectrum; full axes
		// carry their negative frequencies in the second half.
		s := shape[ndim-1-i]
		if i == 0 || s == 1 {
			gradients[ndim-1-i] = linspace(0, 1, s)
		} else {
			half := s / 2
			g := append(
				linspace(0, float64((s-1)/2), s-half),
				linspace(float64(half), 1, half)...,
			)
			for j := range g {
				g[j] /= float64(half)
			}
			gradients[ndim-1-i] = g
		}
	}

	numel := 1
	for _, s := range shape {
		numel *= s
	}
	filter := make([]float64, numel)

	idx := make([]int, ndim)
	for i := 0; i < numel; i++ {
		var mesh float64
		if ndim > 1 {
			var s float64
			for axis := 0; axis < ndim; axis++ {
				g := gradients[axis][idx[axis]]
				s += g * g
			}
			mesh = math.Sqrt(s / float64(ndim))
		} else {
			mesh = gradients[0][idx[0]]
		}
		filter[i] = filterValue(mesh, alpha, tilt)

		for axis := ndim - 1; axis >= 0; axis-- {
			idx[axis]++
			if idx[axis] < shape[axis] {
				break
			}
			idx[axis] = 0
		}
	}

	if inverted {
		for i := range filter {
			filter[i] = 1 - filter[i]
		}
	}
	return filter, nil
}

// filterValue evaluates the tilted cut at normalized frequency mesh.
func filterValue(mesh, alpha, tilt float64) float64 {
	switch {
	case tilt < epsilon || math.Abs(tilt-4) < epsilon:
		if mesh > 1-alpha {
			return 1
		}
		return 0
	case math.Abs(tilt-2) < epsilon:
		if mesh < 1-alpha {
			return 1
		}
		return 0
	default:
		cot := 1 / math.Tan(math.Pi*tilt/2)
		var v float64
		if tilt <= 1 || (2 < tilt && tilt <= 3) {
			v = mesh*cot + alpha*cot + alpha - cot
		} else {
			v = mesh*cot - alpha*cot + alpha
		}
		return kernel.Clamp(v, 0, 1)
	}
}

// linspace returns n evenly spaced values from lo to hi inclusive.
func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
