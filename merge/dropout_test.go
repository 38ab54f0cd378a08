// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"math"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alloy-ml/alloy/internal/kernel"
	"github.com/alloy-ml/alloy/tensor"
)

func TestDropout_CertainDropYieldsZeros(t *testing.T) {
	a := fromVals(t, []float64{1, 2, 3, 4}, tensor.Shape{4})
	b := fromVals(t, []float64{5, 6, 7, 8}, tensor.Shape{4})

	opts := DefaultDropoutOptions()
	opts.Probability = 1
	opts.Seed = 7

	out, err := Dropout([]*tensor.RawTensor{a, b}, opts)
	require.NoError(t, err)
	// Nothing survives and the empty counts clamp to one: all zeros, no NaN.
	assertValues(t, []float64{0, 0, 0, 0}, out, 0)
}

func TestDropout_ZeroProbabilityKeepsEverything(t *testing.T) {
	a := fromVals(t, []float64{2, 4}, tensor.Shape{2})
	b := fromVals(t, []float64{6, 8}, tensor.Shape{2})

	opts := DefaultDropoutOptions()
	opts.Probability = 0
	opts.Seed = 7

	out, err := Dropout([]*tensor.RawTensor{a, b}, opts)
	require.NoError(t, err)
	// Every element of every delta is kept, so the result is the mean.
	assertValues(t, []float64{4, 6}, out, 1e-15)
}

func TestDropout_SeedIsReproducible(t *testing.T) {
	a := fromVals(t, []float64{1, -2, 3, -4, 5, -6, 7, -8}, tensor.Shape{8})
	b := fromVals(t, []float64{8, 7, -6, 5, -4, 3, -2, 1}, tensor.Shape{8})

	opts := DefaultDropoutOptions()
	opts.Probability = 0.5
	opts.Seed = 42

	first, err := Dropout([]*tensor.RawTensor{a, b}, opts)
	require.NoError(t, err)
	second, err := Dropout([]*tensor.RawTensor{a, b}, opts)
	require.NoError(t, err)
	assert.Equal(t, kernel.Values(first), kernel.Values(second))
}

func TestOverlappingSetsPMF_SumsToOne(t *testing.T) {
	for _, overlap := range []float64{0, 0.25, 0.5, 1, 1.75, 2} {
		pmf := OverlappingSetsPMF(3, 0.4, overlap, 0)
		require.Len(t, pmf, 8)
		var sum float64
		for _, p := range pmf {
			assert.GreaterOrEqual(t, p, 0.0, "overlap=%v", overlap)
			sum += p
		}
		assert.InDelta(t, 1, sum, 1e-12, "overlap=%v", overlap)
	}
}

func TestOverlappingSetsPMF_EmphasisPreservesNormalization(t *testing.T) {
	pmf := OverlappingSetsPMF(3, 0.4, 0.5, 0.3)
	var sum float64
	for _, p := range pmf {
		assert.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1, sum, 1e-12)
}

func TestOverlappingSetsPMF_EmptySetCarriesDropProbability(t *testing.T) {
	pmf := OverlappingSetsPMF(2, 0.7, 1, 0)
	assert.InDelta(t, 0.7, pmf[0], 1e-15)
}

func TestOverlappingSetsPMF_OddIntegerIsFullOverlap(t *testing.T) {
	// Odd integer overlap puts all conditional mass on the full set.
	pmf := OverlappingSetsPMF(2, 0.5, 1, 0)
	assert.InDelta(t, 0.5, pmf[0], 1e-15)
	assert.InDelta(t, 0, pmf[1], 1e-15)
	assert.InDelta(t, 0, pmf[2], 1e-15)
	assert.InDelta(t, 0.5, pmf[3], 1e-15)
}

func TestOverlappingSetsPMF_EvenIntegerIsDisjoint(t *testing.T) {
	// Even integer overlap spreads all conditional mass over singletons.
	pmf := OverlappingSetsPMF(2, 0.5, 2, 0)
	assert.InDelta(t, 0.5, pmf[0], 1e-15)
	assert.InDelta(t, 0.25, pmf[1], 1e-15)
	assert.InDelta(t, 0.25, pmf[2], 1e-15)
	assert.InDelta(t, 0, pmf[3], 1e-15)
}

func TestOverlappingSetsPMF_FractionalFavorsLargerSets(t *testing.T) {
	// Just below an odd integer the shaping still leans toward the full
	// set over the singletons.
	pmf := OverlappingSetsPMF(3, 0.1, 0.9, 0)
	full := pmf[len(pmf)-1]
	for i := 1; i < len(pmf)-1; i++ {
		if bits.OnesCount(uint(i)) == 1 {
			assert.Less(t, pmf[i], full)
		}
	}
}

func TestTiesSumWithDropout_CertainDropIsScalarZero(t *testing.T) {
	a := fromVals(t, []float64{1, 2}, tensor.Shape{2})

	opts := DefaultTiesDropoutOptions()
	opts.Probability = 1
	opts.Seed = 3

	out, err := TiesSumWithDropout([]*tensor.RawTensor{a}, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, len(out.Shape()))
	assertValues(t, []float64{0}, out, 0)
}

func TestTiesSumWithDropout_NoDropMatchesTies(t *testing.T) {
	a := fromVals(t, []float64{1, -2}, tensor.Shape{2})
	b := fromVals(t, []float64{3, -4}, tensor.Shape{2})

	opts := DefaultTiesDropoutOptions()
	opts.Probability = 0
	opts.Ties.K = 1
	opts.Seed = 3

	out, err := TiesSumWithDropout([]*tensor.RawTensor{a, b}, opts)
	require.NoError(t, err)
	assertValues(t, []float64{2, -3}, out, 1e-15)
}

func TestBinomial(t *testing.T) {
	assert.Equal(t, int64(1), binomial(5, 0))
	assert.Equal(t, int64(10), binomial(5, 2))
	assert.Equal(t, int64(252), binomial(10, 5))
	assert.Equal(t, int64(0), binomial(3, 5))
}

func TestFloorMod(t *testing.T) {
	assert.Equal(t, 1.0, floorMod(3, 2))
	assert.Equal(t, 1.0, floorMod(-1, 2))
	assert.Equal(t, 0.0, floorMod(4, 2))
	assert.True(t, math.Abs(floorMod(-0.5, 2)-1.5) < 1e-15)
}
