// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"math"

	"github.com/alloy-ml/alloy/internal/kernel"
	"github.com/alloy-ml/alloy/tensor"
)

// ModelStock merges fine-tune deltas by scaling their average with a
// per-row interpolation ratio t derived from the angular agreement of the
// deltas: t = n*cos / (1 + (n-1)*cos), where cos is the mean cosine
// similarity of consecutive delta pairs along the last axis. Rows where
// the deltas point the same way keep nearly the full average; rows where
// they disagree shrink toward zero. NaN and Inf results sanitize to zero.
func ModelStock(deltas []*tensor.RawTensor, cosEps float64) (*tensor.RawTensor, error) {
	if err := requireModels("model_stock", deltas, 1); err != nil {
		return nil, err
	}
	vals := valuesOf(deltas)
	cols := lastAxis(deltas[0])
	t := modelStockT(vals, cols, cosEps)

	avg := make([]float64, len(vals[0]))
	for _, d := range vals {
		for i, v := range d {
			avg[i] += v
		}
	}
	n := float64(len(vals))
	for i := range avg {
		avg[i] = t[i/cols] * avg[i] / n
	}
	return kernel.FromValuesLike(kernel.Sanitize(avg), deltas[0]), nil
}

// modelStockT computes the per-row interpolation ratio from the mean
// cosine similarity of consecutive delta pairs. Rows are the elements of
// all axes but the last; cols is the size of the last axis.
func modelStockT(deltas [][]float64, cols int, cosEps float64) []float64 {
	n := len(deltas)
	rows := len(deltas[0]) / cols
	t := make([]float64, rows)

	for r := 0; r < rows; r++ {
		lo, hi := r*cols, (r+1)*cols
		var cosSum float64
		for i := 0; i+1 < n; i++ {
			x := deltas[i][lo:hi]
			y := deltas[i+1][lo:hi]
			denom := math.Max(kernel.Norm(x)*kernel.Norm(y), cosEps)
			cosSum += kernel.Dot(x, y) / denom
		}
		cos := cosSum / float64(n-1)
		t[r] = float64(n) * cos / (1 + float64(n-1)*cos)
	}
	return t
}
