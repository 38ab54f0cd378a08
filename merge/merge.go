// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"fmt"
	"math"

	"github.com/alloy-ml/alloy/internal/kernel"
	"github.com/alloy-ml/alloy/tensor"
)

// epsilon bounds the hard-threshold detection in spectral filter
// construction and other exact-value comparisons on hyperparameters.
const epsilon = 1e-10

// weightedSumVals blends two slices: (1-alpha)*a + alpha*b.
// This is the inner form of WeightedSum that nearly every other operator
// composes with locally computed weights.
func weightedSumVals(a, b []float64, alpha float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = (1-alpha)*a[i] + alpha*b[i]
	}
	return out
}

// nanToZero replaces NaN elements with 0, in place, and returns xs.
// Infinities are left alone; use kernel.Sanitize where they must go too.
func nanToZero(xs []float64) []float64 {
	for i, v := range xs {
		if math.IsNaN(v) {
			xs[i] = 0
		}
	}
	return xs
}

// requireModels validates the arity of an n-ary operator.
func requireModels(op string, models []*tensor.RawTensor, minimum int) error {
	if len(models) < minimum {
		return fmt.Errorf("%s: requires at least %d input tensor(s), got %d", op, minimum, len(models))
	}
	return nil
}

// lastAxis returns the trailing dimension used for per-row broadcasts
// (1 for 0-dimensional tensors).
func lastAxis(t *tensor.RawTensor) int {
	shape := t.Shape()
	if len(shape) == 0 {
		return 1
	}
	return shape[len(shape)-1]
}

// kthAbsValue returns the k-th smallest absolute value of xs (1-indexed),
// or -1 when k <= 0, mirroring the rank-window convention of the region
// operators.
func kthAbsValue(xs []float64, k int) float64 {
	if k <= 0 {
		return -1
	}
	scratch := make([]float64, len(xs))
	for i, v := range xs {
		scratch[i] = math.Abs(v)
	}
	return kernel.KthValue(scratch, k)
}
