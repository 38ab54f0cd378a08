// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alloy-ml/alloy/tensor"
)

func TestClamp_LimitsToEnvelope(t *testing.T) {
	a := fromVals(t, []float64{-5, 0.5, 10}, tensor.Shape{3})
	lo := fromVals(t, []float64{0, 0, 0}, tensor.Shape{3})
	hi := fromVals(t, []float64{1, 1, 1}, tensor.Shape{3})

	out, err := Clamp(a, []*tensor.RawTensor{lo, hi}, 0)
	require.NoError(t, err)
	assertValues(t, []float64{0, 0.5, 1}, out, 0)
}

func TestClamp_InsideEnvelopeUnchanged(t *testing.T) {
	a := fromVals(t, []float64{0.2, 0.8}, tensor.Shape{2})
	b1 := fromVals(t, []float64{0, 1}, tensor.Shape{2})
	b2 := fromVals(t, []float64{1, 0}, tensor.Shape{2})

	out, err := Clamp(a, []*tensor.RawTensor{b1, b2}, 0)
	require.NoError(t, err)
	assertValues(t, []float64{0.2, 0.8}, out, 0)
}

func TestClamp_StiffnessContractsTowardAverage(t *testing.T) {
	// Bounds 0, 1, 5 with average 2: the smallest bound above average is 5
	// and the largest below is 1. Full stiffness clamps a into [1, 5]...
	// the envelope contracts from [0, 5] to [1, 5].
	a := fromVals(t, []float64{0.5}, tensor.Shape{1})
	b1 := fromVals(t, []float64{0}, tensor.Shape{1})
	b2 := fromVals(t, []float64{1}, tensor.Shape{1})
	b3 := fromVals(t, []float64{5}, tensor.Shape{1})

	out, err := Clamp(a, []*tensor.RawTensor{b1, b2, b3}, 1)
	require.NoError(t, err)
	assertValues(t, []float64{1}, out, 1e-15)
}

func TestClamp_RequiresBounds(t *testing.T) {
	a := fromVals(t, []float64{1}, tensor.Shape{1})
	_, err := Clamp(a, nil, 0)
	assert.Error(t, err)
}

func TestTrainDifference_NoSharedMovementGetsFullGate(t *testing.T) {
	// b-a and b-c are equal: the gate is 1.8 * 1/2 = 0.9.
	a := fromVals(t, []float64{0}, tensor.Shape{1})
	b := fromVals(t, []float64{2}, tensor.Shape{1})
	c := fromVals(t, []float64{0}, tensor.Shape{1})

	out, err := TrainDifference(a, b, c, 1)
	require.NoError(t, err)
	// a + (b-c)*1*0.9 = 1.8
	assertValues(t, []float64{1.8}, out, 1e-12)
}

func TestTrainDifference_ZeroOverZeroPassesAThrough(t *testing.T) {
	a := fromVals(t, []float64{3}, tensor.Shape{1})

	out, err := TrainDifference(a, a, a, 1)
	require.NoError(t, err)
	assertValues(t, []float64{3}, out, 0)
}

func TestAddOpposite_SymmetricDivergenceGetsFullGate(t *testing.T) {
	// a and b diverge symmetrically around c=0: |a-b| = 2, |a+b-2c| = 0,
	// gate = 2*1 = 2, result a + (b-c)*2.
	a := fromVals(t, []float64{1}, tensor.Shape{1})
	b := fromVals(t, []float64{-1}, tensor.Shape{1})
	c := fromVals(t, []float64{0}, tensor.Shape{1})

	out, err := AddOpposite(a, b, c, 1)
	require.NoError(t, err)
	assertValues(t, []float64{-1}, out, 1e-12)
}

func TestClampedAddOpposite_SameSideIsGatedOut(t *testing.T) {
	// a and b sit on the same side of c: (c-a)*(b-c) < 0 clamps to zero,
	// leaving a untouched.
	a := fromVals(t, []float64{1}, tensor.Shape{1})
	b := fromVals(t, []float64{2}, tensor.Shape{1})
	c := fromVals(t, []float64{0}, tensor.Shape{1})

	out, err := ClampedAddOpposite(a, b, c, 1)
	require.NoError(t, err)
	assertValues(t, []float64{1}, out, 0)
}

func TestClampedAddOpposite_OppositeSidesPass(t *testing.T) {
	a := fromVals(t, []float64{-1}, tensor.Shape{1})
	b := fromVals(t, []float64{1}, tensor.Shape{1})
	c := fromVals(t, []float64{0}, tensor.Shape{1})

	// (c-a)*(b-c) = 1, threshold = 1, mask = 2: a + (b-c)*2 = 1.
	out, err := ClampedAddOpposite(a, b, c, 1)
	require.NoError(t, err)
	assertValues(t, []float64{1}, out, 1e-12)
}

func TestSelectMaxDelta_PicksLargerNormalizedMagnitude(t *testing.T) {
	// Equal standard deviations: the comparison reduces to |a| vs |b| at
	// alpha=0.5.
	a := fromVals(t, []float64{3, 1, -4, 0}, tensor.Shape{4})
	b := fromVals(t, []float64{1, -2, 3, 0}, tensor.Shape{4})

	out, err := SelectMaxDelta(a, b, 0.5)
	require.NoError(t, err)

	// std(a) ~ 2.94, std(b) ~ 2.22: compare |v|/std per element.
	got := valuesOfOne(out)
	assert.Equal(t, 3.0, got[0])  // 3/2.94 > 1/2.22
	assert.Equal(t, -2.0, got[1]) // 1/2.94 < 2/2.22
}

func TestSelectMaxDelta_AlphaBiasesSelection(t *testing.T) {
	a := fromVals(t, []float64{1, -1}, tensor.Shape{2})
	b := fromVals(t, []float64{1, -1}, tensor.Shape{2})

	// alpha=0 always selects a, alpha=1 always selects b.
	atZero, err := SelectMaxDelta(a, b, 0)
	require.NoError(t, err)
	assertValues(t, []float64{1, -1}, atZero, 0)

	atOne, err := SelectMaxDelta(a, b, 1)
	require.NoError(t, err)
	assertValues(t, []float64{1, -1}, atOne, 0)
}

func TestMultiplyQuotient_NeutralExponentKeepsA(t *testing.T) {
	// a == c makes ac_log zero, so the exponent clamps to zero and
	// (b/c)^0 = 1 leaves a unchanged.
	a := fromVals(t, []float64{2, 3}, tensor.Shape{2})
	b := fromVals(t, []float64{5, 7}, tensor.Shape{2})

	out, err := MultiplyQuotient(a, b, a, 1)
	require.NoError(t, err)
	assertValues(t, []float64{2, 3}, out, 1e-12)
}

func TestMultiplyQuotient_OppositeDeviations(t *testing.T) {
	// a above c, b below c in log magnitude: ac_log*bc_log < 0 activates
	// the exponent. With |ac_log| = |bc_log| the normalized product is -1,
	// giving exponent exactly alpha.
	a := fromVals(t, []float64{4}, tensor.Shape{1})
	b := fromVals(t, []float64{1}, tensor.Shape{1})
	c := fromVals(t, []float64{2}, tensor.Shape{1})

	// exponent = 1: result = a * (b/c) = 4 * 0.5 = 2.
	out, err := MultiplyQuotient(a, b, c, 1)
	require.NoError(t, err)
	assertValues(t, []float64{2}, out, 1e-12)
}
