// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"math"

	"github.com/alloy-ml/alloy/internal/kernel"
	"github.com/alloy-ml/alloy/tensor"
)

// TiesOptions configures the full TIES pipeline, including the optional
// model-stock and geometric-median consensus variants.
type TiesOptions struct {
	// K is the fraction of largest-magnitude elements each delta keeps
	// during trimming.
	K float64
	// VoteSgn elects the per-element consensus sign by count of signs
	// instead of by summed magnitude.
	VoteSgn bool

	// ApplyStock rescales the merged delta by the model-stock interpolation
	// ratio computed from the sign-filtered deltas.
	ApplyStock bool
	// CosEps floors the cosine-similarity denominator for ApplyStock.
	CosEps float64

	// ApplyMedian replaces the mean of sign-agreeing elements with the
	// geometric median of the filtered deltas. Takes precedence over
	// ApplyStock.
	ApplyMedian bool
	// Eps, MaxIter and FTol control the median iteration (see MedianOptions).
	Eps     float64
	MaxIter int
	FTol    float64
}

// DefaultTiesOptions returns the conventional TIES configuration: keep the
// top 20% of each delta, magnitude-summed sign election, no variants.
func DefaultTiesOptions() TiesOptions {
	return TiesOptions{
		K:       0.2,
		CosEps:  1e-6,
		Eps:     1e-6,
		MaxIter: 100,
		FTol:    1e-20,
	}
}

// TiesSum merges task deltas by trim-elect-disjoint-merge: each delta is
// trimmed to its top-k fraction by magnitude, a consensus sign is elected
// per element, and elements disagreeing with the consensus are zeroed
// before averaging over the agreeing deltas only. Elements where no delta
// agrees produce 0/0 and are mapped to zero.
func TiesSum(deltas []*tensor.RawTensor, k float64, voteSgn bool) (*tensor.RawTensor, error) {
	if err := requireModels("ties_sum", deltas, 1); err != nil {
		return nil, err
	}
	filtered, counts := tiesSumDeltas(valuesOf(deltas), k, voteSgn)

	out := make([]float64, len(counts))
	for _, fd := range filtered {
		for i, v := range fd {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= counts[i]
	}
	return kernel.FromValuesLike(nanToZero(out), deltas[0]), nil
}

// TiesSumExtended is TiesSum with the optional consensus variants: with
// ApplyMedian the agreeing elements are combined by geometric median
// instead of mean; otherwise with ApplyStock the mean is rescaled by the
// model-stock ratio t computed from the filtered deltas.
func TiesSumExtended(deltas []*tensor.RawTensor, opts TiesOptions) (*tensor.RawTensor, error) {
	if err := requireModels("ties_sum_extended", deltas, 1); err != nil {
		return nil, err
	}
	filtered, counts := tiesSumDeltas(valuesOf(deltas), opts.K, opts.VoteSgn)

	if opts.ApplyMedian {
		out := geometricMedianVals(filtered, opts.Eps, opts.MaxIter, opts.FTol)
		return kernel.FromValuesLike(nanToZero(out), deltas[0]), nil
	}

	cols := lastAxis(deltas[0])
	t := make([]float64, len(counts)/cols)
	if opts.ApplyStock {
		t = modelStockT(filtered, cols, opts.CosEps)
	} else {
		for i := range t {
			t[i] = 1
		}
	}

	out := make([]float64, len(counts))
	for _, fd := range filtered {
		for i, v := range fd {
			out[i] += v
		}
	}
	for i := range out {
		out[i] = out[i] * t[i/cols] / counts[i]
	}
	return kernel.FromValuesLike(nanToZero(out), deltas[0]), nil
}

// tiesSumDeltas runs the trim and elect stages: it returns each delta with
// trimmed and sign-disagreeing elements zeroed, plus the per-element count
// of agreeing deltas.
func tiesSumDeltas(deltas [][]float64, k float64, voteSgn bool) (filtered [][]float64, counts []float64) {
	n := len(deltas[0])

	filtered = make([][]float64, len(deltas))
	signs := make([][]float64, len(deltas))
	for i, d := range deltas {
		filtered[i] = filterTopK(d, k)
		signs[i] = make([]float64, n)
		for j, v := range filtered[i] {
			signs[i][j] = kernel.Sign(v)
		}
	}

	// Elect the consensus sign per element: by summed magnitude, or by
	// sign count with VoteSgn. Ties elect sign 0, excluding every delta.
	finalSign := make([]float64, n)
	for j := 0; j < n; j++ {
		var s float64
		for i := range filtered {
			if voteSgn {
				s += signs[i][j]
			} else {
				s += filtered[i][j]
			}
		}
		finalSign[j] = kernel.Sign(s)
	}

	counts = make([]float64, n)
	for i := range filtered {
		for j := 0; j < n; j++ {
			if signs[i][j] == finalSign[j] {
				counts[j]++
			} else {
				filtered[i][j] = 0
			}
		}
	}
	return filtered, counts
}

// filterTopK zeroes all elements of d except the top-k fraction by
// absolute magnitude. At least one element always survives.
func filterTopK(d []float64, k float64) []float64 {
	kCount := int((1 - k) * float64(len(d)))
	if kCount < 1 {
		kCount = 1
	}
	threshold := kthAbsValue(d, kCount)

	out := make([]float64, len(d))
	for i, v := range d {
		if math.Abs(v) >= threshold {
			out[i] = v
		}
	}
	return out
}

// valuesOf widens a list of tensors to float64 slices.
func valuesOf(models []*tensor.RawTensor) [][]float64 {
	out := make([][]float64, len(models))
	for i, m := range models {
		out[i] = kernel.Values(m)
	}
	return out
}
