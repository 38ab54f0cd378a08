// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"math"
	"sort"

	"github.com/alloy-ml/alloy/internal/kernel"
	"github.com/alloy-ml/alloy/tensor"
)

// RatioToRegion converts a fractional (width, offset) window over a
// dimension of n elements into concrete bounds [start, end).
//
// A negative width folds into the offset before being made positive; width
// is capped at 1 and the offset is wrapped into [0, 1). When the window
// fits without wrapping, the bounds are direct and inverted is false. When
// it wraps past the end, the complement region is returned with inverted
// true: the caller selects everything outside [start, end) instead.
func RatioToRegion(width, offset float64, n int) (start, end int, inverted bool) {
	if width < 0 {
		offset += width
		width = -width
	}
	width = math.Min(width, 1)
	if offset < 0 {
		offset = 1 + offset - math.Trunc(offset)
	}
	offset = math.Mod(offset, 1)

	var startF, endF float64
	if width+offset <= 1 {
		startF = offset * float64(n)
		endF = (width + offset) * float64(n)
	} else {
		startF = (width + offset - 1) * float64(n)
		endF = offset * float64(n)
		inverted = true
	}
	return int(math.RoundToEven(startF)), int(math.RoundToEven(endF)), inverted
}

// TensorSum splices a contiguous region of rows from b into a. The region
// is a fractional window (width, offset) over dim 0; a wrapped window
// swaps the donor and receiver so the spliced rows still come from b.
// A 0-dimensional input degenerates to picking b when width > 0.5, else a.
func TensorSum(a, b *tensor.RawTensor, width, offset float64) (*tensor.RawTensor, error) {
	if len(a.Shape()) == 0 {
		if width > 0.5 {
			return b, nil
		}
		return a, nil
	}

	rows := a.Shape()[0]
	rowSize := a.NumElements() / rows
	start, end, inverted := RatioToRegion(width, offset, rows)

	outer, inner := kernel.Values(a), kernel.Values(b)
	if inverted {
		outer, inner = inner, outer
	}
	out := make([]float64, len(outer))
	copy(out, outer)
	copy(out[start*rowSize:end*rowSize], inner[start*rowSize:end*rowSize])
	return kernel.FromValuesLike(out, a), nil
}

// TopKTensorSum splices a rank window of a's value distribution into b:
// a's sorted values are redistributed over the positions given by b's
// value ranking, and only positions whose |value| falls inside the window
// [start, end) of the sorted magnitudes take the redistributed value; the
// rest keep a. With the full window (width=1, offset=0) this permutes a's
// values into b's ordering.
func TopKTensorSum(a, b *tensor.RawTensor, width, offset float64) (*tensor.RawTensor, error) {
	aFlat := kernel.Values(a)
	n := len(aFlat)

	aDist := make([]float64, n)
	copy(aDist, aFlat)
	sortAscending(aDist)

	bIndices := kernel.ArgsortStable(kernel.Values(b))
	redist := kernel.InversePermutation(bIndices)

	start, end, inverted := RatioToRegion(width, offset, n)
	startValue := kthAbsValue(aDist, start)
	endValue := kthAbsValue(aDist, end)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := aDist[redist[i]]
		selected := math.Abs(v) >= startValue && math.Abs(v) <= endValue
		if inverted {
			selected = !selected
		}
		if selected {
			out[i] = v
		} else {
			out[i] = aFlat[i]
		}
	}
	return kernel.FromValuesLike(out, a), nil
}

func sortAscending(xs []float64) {
	sort.Float64s(xs)
}
