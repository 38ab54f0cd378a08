// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"math"
	"math/cmplx"

	"github.com/alloy-ml/alloy/internal/kernel"
	"github.com/alloy-ml/alloy/tensor"
)

// Clamp limits each element of a to the elementwise envelope of the bound
// tensors. With nonzero stiffness the envelope contracts toward the bounds
// closest to the elementwise average: the maximum slides down to the
// smallest bound still above average, the minimum up to the largest bound
// still below it, interpolated at ratio stiffness.
func Clamp(a *tensor.RawTensor, bounds []*tensor.RawTensor, stiffness float64) (*tensor.RawTensor, error) {
	if err := requireModels("clamp", bounds, 1); err != nil {
		return nil, err
	}
	av := kernel.Values(a)
	vals := valuesOf(bounds)
	n := len(av)

	maximums := make([]float64, n)
	minimums := make([]float64, n)
	average := make([]float64, n)
	copy(maximums, vals[0])
	copy(minimums, vals[0])
	for _, bv := range vals {
		for j, v := range bv {
			maximums[j] = math.Max(maximums[j], v)
			minimums[j] = math.Min(minimums[j], v)
			average[j] += v
		}
	}
	for j := range average {
		average[j] /= float64(len(vals))
	}

	if stiffness != 0 {
		smallestPositive := make([]float64, n)
		largestNegative := make([]float64, n)
		copy(smallestPositive, maximums)
		copy(largestNegative, minimums)
		for _, bv := range vals {
			for j, v := range bv {
				if smallestPositive[j] >= v && v >= average[j] {
					smallestPositive[j] = v
				}
				if largestNegative[j] <= v && v <= average[j] {
					largestNegative[j] = v
				}
			}
		}
		maximums = weightedSumVals(maximums, smallestPositive, stiffness)
		minimums = weightedSumVals(minimums, largestNegative, stiffness)
	}

	out := make([]float64, n)
	for j := range out {
		out[j] = math.Min(math.Max(av[j], minimums[j]), maximums[j])
	}
	return kernel.FromValuesLike(out, a), nil
}

// TrainDifference applies the delta b-c onto a, gated per element by how
// much of the a->b movement is explained by the fine-tune rather than
// shared with c. The gate is 1.8 * |b-a| / (|b-a| + |b-c|), with 0/0
// resolving to zero.
func TrainDifference(a, b, c *tensor.RawTensor, alpha float64) (*tensor.RawTensor, error) {
	av := kernel.Values(a)
	bv := kernel.Values(b)
	cv := kernel.Values(c)

	out := make([]float64, len(av))
	for i := range out {
		ba := math.Abs(bv[i] - av[i])
		mask := 1.8 * zeroNaN(ba/(ba+math.Abs(bv[i]-cv[i])))
		out[i] = av[i] + (bv[i]-cv[i])*alpha*mask
	}
	return kernel.FromValuesLike(out, a), nil
}

// AddOpposite applies b-c onto a, gated by how far a and b have moved
// apart relative to their joint distance from 2c: elements where a and b
// diverge symmetrically around c receive the full delta.
func AddOpposite(a, b, c *tensor.RawTensor, alpha float64) (*tensor.RawTensor, error) {
	av := kernel.Values(a)
	bv := kernel.Values(b)
	cv := kernel.Values(c)

	out := make([]float64, len(av))
	for i := range out {
		ab := math.Abs(av[i] - bv[i])
		mask := 2 * zeroNaN(ab/(ab+math.Abs(av[i]+bv[i]-2*cv[i])))
		out[i] = av[i] + (bv[i]-cv[i])*alpha*mask
	}
	return kernel.FromValuesLike(out, a), nil
}

// ClampedAddOpposite is AddOpposite with the gate restricted to elements
// where a and b sit on opposite sides of c: the product (c-a)*(b-c),
// normalized by the larger squared distance to c, is clamped at zero so
// same-side elements pass a through.
func ClampedAddOpposite(a, b, c *tensor.RawTensor, alpha float64) (*tensor.RawTensor, error) {
	av := kernel.Values(a)
	bv := kernel.Values(b)
	cv := kernel.Values(c)

	out := make([]float64, len(av))
	for i := range out {
		threshold := math.Max(math.Abs(av[i]-cv[i]), math.Abs(bv[i]-cv[i]))
		mask := 2 * math.Max(zeroNaN((cv[i]-av[i])*(bv[i]-cv[i])/(threshold*threshold)), 0)
		out[i] = av[i] + (bv[i]-cv[i])*alpha*mask
	}
	return kernel.FromValuesLike(out, a), nil
}

// SelectMaxDelta picks, per element, whichever delta is larger after
// normalizing each tensor by its own standard deviation, with alpha
// biasing the comparison: (1-alpha)*|a/std(a)| >= alpha*|b/std(b)| selects
// a, otherwise b.
func SelectMaxDelta(a, b *tensor.RawTensor, alpha float64) (*tensor.RawTensor, error) {
	av := kernel.Values(a)
	bv := kernel.Values(b)
	sa := kernel.Std(av)
	sb := kernel.Std(bv)

	out := make([]float64, len(av))
	for i := range out {
		// A NaN comparison is false and falls through to b, matching the
		// selection semantics for degenerate standard deviations.
		if (1-alpha)*math.Abs(av[i]/sa) >= alpha*math.Abs(bv[i]/sb) {
			out[i] = av[i]
		} else {
			out[i] = bv[i]
		}
	}
	return kernel.FromValuesLike(out, a), nil
}

// MultiplyQuotient multiplies a by the ratio b/c raised to a per-element
// exponent: the base alpha is scaled by how strongly a and b deviate from
// c in opposite log-magnitude directions, clamped at zero otherwise. The
// power is taken over the complex plane to admit negative ratios; NaN
// results fall back to a and only the real part is kept.
func MultiplyQuotient(a, b, c *tensor.RawTensor, alpha float64) (*tensor.RawTensor, error) {
	av := kernel.Values(a)
	bv := kernel.Values(b)
	cv := kernel.Values(c)

	out := make([]float64, len(av))
	for i := range out {
		acLog := math.Log(math.Abs(av[i])) - math.Log(math.Abs(cv[i]))
		bcLog := math.Log(math.Abs(bv[i])) - math.Log(math.Abs(cv[i]))
		threshold := math.Max(math.Abs(acLog), math.Abs(bcLog))
		exponent := alpha * math.Max(-zeroNaN(acLog*bcLog/(threshold*threshold)), 0)

		ratio := complex(bv[i], 0) / complex(cv[i], 0)
		res := complex(av[i], 0) * cmplx.Pow(ratio, complex(exponent, 0))
		if math.IsNaN(real(res)) || math.IsNaN(imag(res)) {
			out[i] = av[i]
		} else {
			out[i] = real(res)
		}
	}
	return kernel.FromValuesLike(out, a), nil
}

// zeroNaN maps NaN to 0 and passes every other value through.
func zeroNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
