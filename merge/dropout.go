// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"math"
	"math/bits"
	"math/rand/v2"

	"github.com/alloy-ml/alloy/internal/kernel"
	"github.com/alloy-ml/alloy/tensor"
)

// DropoutOptions configures the stochastic delta-dropout merge.
type DropoutOptions struct {
	// Probability is the chance each element is dropped from a delta.
	Probability float64
	// Rescale raises the keep-probability correction (1-p)^Rescale applied
	// to the merged result; 0 disables rescaling, 1 is the standard
	// inverted-dropout correction.
	Rescale float64
	// Overlap shapes the joint inclusion distribution: odd integers force
	// all deltas to share one mask, even integers make masks disjoint, and
	// fractional values interpolate through a popcount-weighted softmax.
	Overlap float64
	// OverlapEmphasis blends the shaped distribution back toward its
	// binomial expansion.
	OverlapEmphasis float64
	// Seed seeds the sampler when non-negative; a negative seed draws
	// fresh entropy.
	Seed int64
}

// DefaultDropoutOptions returns the conventional configuration.
func DefaultDropoutOptions() DropoutOptions {
	return DropoutOptions{
		Probability: 0.9,
		Rescale:     1.0,
		Overlap:     1.0,
		Seed:        -1,
	}
}

// Dropout merges deltas by sampling, per element, which subset of the
// deltas contributes, then averaging the included values and correcting by
// the rescale factor. With an odd-integer Overlap each delta gets an
// independent Bernoulli keep-mask; otherwise a subset index is drawn per
// element from the combinatorial PMF of OverlappingSetsPMF and bit i of
// the index includes delta i.
func Dropout(deltas []*tensor.RawTensor, opts DropoutOptions) (*tensor.RawTensor, error) {
	if err := requireModels("dropout", deltas, 1); err != nil {
		return nil, err
	}
	rng := newRand(opts.Seed)
	vals := valuesOf(deltas)
	n := len(vals)
	numel := len(vals[0])

	masks := make([][]bool, n)
	for i := range masks {
		masks[i] = make([]bool, numel)
	}

	if floorMod(opts.Overlap, 2) == 1 {
		for i := range masks {
			for j := range masks[i] {
				masks[i][j] = rng.Float64() < 1-opts.Probability
			}
		}
	} else {
		pmf := OverlappingSetsPMF(n, opts.Probability, opts.Overlap, opts.OverlapEmphasis)
		cdf := make([]float64, len(pmf))
		var acc float64
		for i, p := range pmf {
			acc += p
			cdf[i] = acc
		}
		for j := 0; j < numel; j++ {
			idx := sampleIndex(cdf, rng.Float64())
			for i := 0; i < n; i++ {
				masks[i][j] = idx&(1<<i) != 0
			}
		}
	}

	rescalar := math.Pow(1-opts.Probability, opts.Rescale)
	if opts.Probability == 1 || math.IsNaN(rescalar) || math.IsInf(rescalar, 0) {
		rescalar = 1
	}

	out := make([]float64, numel)
	counts := make([]float64, numel)
	for i, d := range vals {
		for j, v := range d {
			if masks[i][j] {
				out[j] += v
				counts[j]++
			}
		}
	}
	for j := range out {
		out[j] /= math.Max(counts[j], 1) * rescalar
	}
	return kernel.FromValuesLike(out, deltas[0]), nil
}

// OverlappingSetsPMF returns the probability of each subset of n deltas
// being the inclusion set of one element, indexed 0..2^n-1 with bit i
// meaning delta i is included (index 0 is the empty set, carrying the drop
// probability p).
//
// Integer overlaps are exact: even spreads all mass uniformly over the
// singletons, odd puts it all on the full set. Fractional overlaps shape
// the distribution by a softmax over tan(pi*(overlap-1/2)) * (popcount -
// n/2), blended toward its binomial expansion by the distance from an
// integer and by overlapEmphasis.
func OverlappingSetsPMF(n int, p, overlap, overlapEmphasis float64) []float64 {
	size := 1 << n
	pmf := make([]float64, size-1)

	if nearInteger(overlap) {
		if int64(math.RoundToEven(overlap))%2 == 0 {
			for i := 1; i < size; i++ {
				if bits.OnesCount(uint(i)) == 1 {
					pmf[i-1] = 1 / float64(n)
				}
			}
		} else {
			pmf[size-2] = 1
		}
	} else {
		// The shaping curve is symmetric around overlap 1; odd-floored
		// overlaps mirror onto the negative side. The flipped value also
		// drives the blend below.
		if floorMod(math.Floor(overlap), 2) == 1 {
			overlap = -overlap
		}
		tan := math.Tan(math.Pi * (overlap - 0.5))
		var sum float64
		for i := 1; i < size; i++ {
			pmf[i-1] = math.Exp(tan * (float64(bits.OnesCount(uint(i))) - float64(n)/2))
			sum += pmf[i-1]
		}
		for i := range pmf {
			pmf[i] /= sum
		}
	}

	// Spread the per-cardinality binomial mass uniformly over the subsets
	// of that cardinality, then blend.
	expanded := make([]float64, size-1)
	var expandedSum float64
	for i := 1; i < size; i++ {
		k := bits.OnesCount(uint(i))
		c := float64(binomial(n, k))
		expanded[i-1] = binomialPMF(n, k, p) / c
		expandedSum += expanded[i-1]
	}
	for i := range expanded {
		expanded[i] /= expandedSum
	}

	inner := weightedSumVals(pmf, expanded, 1-math.Abs(2*overlap-1))
	pmf = weightedSumVals(pmf, inner, overlapEmphasis)

	out := make([]float64, size)
	out[0] = p
	for i, v := range pmf {
		out[i+1] = v * (1 - p)
	}
	return out
}

// TiesDropoutOptions configures the combined dropout + TIES merge.
type TiesDropoutOptions struct {
	// Probability and Rescale act as in DropoutOptions; masks are always
	// independent Bernoulli here.
	Probability float64
	Rescale     float64
	// Ties configures the consensus merge applied to the masked deltas.
	Ties TiesOptions
	// Seed seeds the sampler when non-negative.
	Seed int64
}

// DefaultTiesDropoutOptions returns the conventional configuration.
func DefaultTiesDropoutOptions() TiesDropoutOptions {
	return TiesDropoutOptions{
		Probability: 0.9,
		Rescale:     1.0,
		Ties:        DefaultTiesOptions(),
		Seed:        -1,
	}
}

// TiesSumWithDropout applies an independent Bernoulli keep-mask to each
// delta, runs the extended TIES consensus on the masked deltas, and
// divides by the rescale correction. With no deltas or certain drop the
// result is a scalar zero.
func TiesSumWithDropout(deltas []*tensor.RawTensor, opts TiesDropoutOptions) (*tensor.RawTensor, error) {
	if len(deltas) == 0 || opts.Probability == 1 {
		if len(deltas) > 0 {
			return kernel.Scalar(0, deltas[0]), nil
		}
		return tensor.Zeros[float64](tensor.Shape{}), nil
	}

	rng := newRand(opts.Seed)
	masked := make([]*tensor.RawTensor, len(deltas))
	for i, d := range deltas {
		vals := kernel.Values(d)
		for j := range vals {
			if rng.Float64() < opts.Probability {
				vals[j] = 0
			}
		}
		masked[i] = kernel.FromValuesLike(vals, d)
	}

	merged, err := TiesSumExtended(masked, opts.Ties)
	if err != nil {
		return nil, err
	}

	rescalar := math.Pow(1-opts.Probability, opts.Rescale)
	if math.IsNaN(rescalar) || math.IsInf(rescalar, 0) {
		rescalar = 1
	}
	out := kernel.Values(merged)
	for i := range out {
		out[i] /= rescalar
	}
	return kernel.FromValuesLike(out, deltas[0]), nil
}

// newRand returns a sampler seeded by seed, or by fresh entropy when seed
// is negative.
func newRand(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// sampleIndex returns the first index whose cumulative probability covers u.
func sampleIndex(cdf []float64, u float64) int {
	lo, hi := 0, len(cdf)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if cdf[mid] < u {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// floorMod returns the non-negative remainder of x modulo m.
func floorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}

// nearInteger reports whether v is numerically indistinguishable from its
// nearest integer (numpy isclose tolerances).
func nearInteger(v float64) bool {
	r := math.RoundToEven(v)
	return math.Abs(v-r) <= 1e-8+1e-5*math.Abs(r)
}

// binomial returns C(n, k).
func binomial(n, k int) int64 {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	var c int64 = 1
	for i := 0; i < k; i++ {
		c = c * int64(n-i) / int64(i+1)
	}
	return c
}

// binomialPMF returns P(X = k) for X ~ Binomial(n, p).
func binomialPMF(n, k int, p float64) float64 {
	return float64(binomial(n, k)) * math.Pow(p, float64(k)) * math.Pow(1-p, float64(n-k))
}
