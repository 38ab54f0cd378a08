// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"math"

	"github.com/alloy-ml/alloy/internal/kernel"
	"github.com/alloy-ml/alloy/tensor"
)

// MedianOptions controls the Weiszfeld iteration of GeometricMedian.
type MedianOptions struct {
	// Eps floors the distance of each point to the current estimate,
	// keeping the reweighting finite when the estimate lands on a point.
	Eps float64
	// MaxIter bounds the iteration count; 0 returns the plain average.
	MaxIter int
	// FTol stops the iteration once the relative improvement of the
	// objective falls below it.
	FTol float64
}

// DefaultMedianOptions returns the conventional configuration.
func DefaultMedianOptions() MedianOptions {
	return MedianOptions{Eps: 1e-6, MaxIter: 100, FTol: 1e-20}
}

// GeometricMedian estimates the geometric median of the input tensors,
// each flattened to one point in R^numel, by Weiszfeld iteration. The
// returned tensor minimizes (approximately) the sum of Euclidean distances
// to the inputs, making it robust to outlier models.
func GeometricMedian(models []*tensor.RawTensor, opts MedianOptions) (*tensor.RawTensor, error) {
	if err := requireModels("geometric_median", models, 1); err != nil {
		return nil, err
	}
	out := geometricMedianVals(valuesOf(models), opts.Eps, opts.MaxIter, opts.FTol)
	return kernel.FromValuesLike(out, models[0]), nil
}

// geometricMedianVals is the slice-level Weiszfeld iteration shared with
// the TIES median variant. The returned estimate is the weighted average
// under the final reweighting, not the last midpoint, so a single input is
// reproduced exactly and MaxIter=0 yields the arithmetic mean.
func geometricMedianVals(points [][]float64, eps float64, maxIter int, ftol float64) []float64 {
	n := len(points)
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}

	median := weightedAverage(points, weights)
	objective := medianObjective(points, median, weights)
	newWeights := weights

	for iter := 0; iter < maxIter; iter++ {
		previous := objective
		newWeights = make([]float64, n)
		for i, p := range points {
			denom := math.Max(kernel.Distance(p, median), eps)
			newWeights[i] = weights[i] / denom
		}
		median = weightedAverage(points, newWeights)
		objective = medianObjective(points, median, weights)
		if math.Abs(previous-objective) <= ftol*objective {
			break
		}
	}
	return weightedAverage(points, newWeights)
}

// weightedAverage returns sum_i(w_i * p_i) / sum_i(w_i) elementwise.
func weightedAverage(points [][]float64, weights []float64) []float64 {
	out := make([]float64, len(points[0]))
	var total float64
	for i, p := range points {
		w := weights[i]
		total += w
		for j, v := range p {
			out[j] += w * v
		}
	}
	for j := range out {
		out[j] /= total
	}
	return out
}

// medianObjective returns the mean weighted distance from the points to
// the current estimate.
func medianObjective(points [][]float64, median, weights []float64) float64 {
	var s float64
	for i, p := range points {
		s += kernel.Distance(p, median) * weights[i]
	}
	return s / float64(len(points))
}
