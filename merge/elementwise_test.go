// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alloy-ml/alloy/internal/kernel"
	"github.com/alloy-ml/alloy/tensor"
)

func fromVals(t *testing.T, vals []float64, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	out, err := tensor.FromSlice(vals, shape)
	require.NoError(t, err)
	return out
}

func assertValues(t *testing.T, expected []float64, actual *tensor.RawTensor, delta float64) {
	t.Helper()
	got := kernel.Values(actual)
	require.Len(t, got, len(expected))
	for i, exp := range expected {
		assert.InDelta(t, exp, got[i], delta, "mismatch at index %d", i)
	}
}

func TestWeightedSum_Endpoints(t *testing.T) {
	a := fromVals(t, []float64{1, -2, 3, 0.5}, tensor.Shape{4})
	b := fromVals(t, []float64{4, 0, -1, 2.5}, tensor.Shape{4})

	atZero, err := WeightedSum(a, b, 0)
	require.NoError(t, err)
	assertValues(t, []float64{1, -2, 3, 0.5}, atZero, 0)

	atOne, err := WeightedSum(a, b, 1)
	require.NoError(t, err)
	assertValues(t, []float64{4, 0, -1, 2.5}, atOne, 0)
}

func TestWeightedSum_FixedPoint(t *testing.T) {
	a := fromVals(t, []float64{0.25, -7, 1e-3}, tensor.Shape{3})

	for _, alpha := range []float64{0, 0.3, 0.5, 0.9, 1} {
		out, err := WeightedSum(a, a, alpha)
		require.NoError(t, err)
		assertValues(t, []float64{0.25, -7, 1e-3}, out, 0)
	}
}

func TestWeightedSum_Midpoint(t *testing.T) {
	a := fromVals(t, []float64{2, 4}, tensor.Shape{2})
	b := fromVals(t, []float64{4, 8}, tensor.Shape{2})

	out, err := WeightedSum(a, b, 0.5)
	require.NoError(t, err)
	assertValues(t, []float64{3, 6}, out, 1e-15)
}

func TestNAverage(t *testing.T) {
	a := fromVals(t, []float64{1, 2}, tensor.Shape{2})
	b := fromVals(t, []float64{3, 4}, tensor.Shape{2})
	c := fromVals(t, []float64{5, 9}, tensor.Shape{2})

	out, err := NAverage([]*tensor.RawTensor{a, b, c})
	require.NoError(t, err)
	assertValues(t, []float64{3, 5}, out, 1e-15)

	_, err = NAverage(nil)
	assert.Error(t, err)
}

func TestSlerp_Orthogonal(t *testing.T) {
	// Unit vectors along x and y: the halfway point lies on the 45 degree
	// direction with unit norm.
	a := fromVals(t, []float64{1, 0}, tensor.Shape{2})
	b := fromVals(t, []float64{0, 1}, tensor.Shape{2})

	out, err := Slerp(a, b, 0.5)
	require.NoError(t, err)
	inv := 1 / math.Sqrt2
	assertValues(t, []float64{inv, inv}, out, 1e-12)
}

func TestSlerp_ParallelFallsBackToWeightedSum(t *testing.T) {
	a := fromVals(t, []float64{1, 1}, tensor.Shape{2})
	b := fromVals(t, []float64{2, 2}, tensor.Shape{2})

	out, err := Slerp(a, b, 0.25)
	require.NoError(t, err)
	// sin(omega) = 0 makes the spherical formula NaN; the result must be
	// the linear blend instead.
	assertValues(t, []float64{1.25, 1.25}, out, 1e-12)
}

func TestSlerp_EndpointNorms(t *testing.T) {
	a := fromVals(t, []float64{3, 0}, tensor.Shape{2})
	b := fromVals(t, []float64{0, 5}, tensor.Shape{2})

	atZero, err := Slerp(a, b, 0)
	require.NoError(t, err)
	assertValues(t, []float64{3, 0}, atZero, 1e-12)

	atOne, err := Slerp(a, b, 1)
	require.NoError(t, err)
	assertValues(t, []float64{0, 5}, atOne, 1e-12)
}

func TestAddDifference(t *testing.T) {
	a := fromVals(t, []float64{1, 2, 3}, tensor.Shape{3})
	d := fromVals(t, []float64{10, -10, 0}, tensor.Shape{3})

	out, err := AddDifference(a, d, 0.5)
	require.NoError(t, err)
	assertValues(t, []float64{6, -3, 3}, out, 1e-15)
}

func TestSubtract(t *testing.T) {
	a := fromVals(t, []float64{5, 1}, tensor.Shape{2})
	b := fromVals(t, []float64{2, 4}, tensor.Shape{2})

	out, err := Subtract(a, b)
	require.NoError(t, err)
	assertValues(t, []float64{3, -3}, out, 0)
}

func TestPerpendicularComponent(t *testing.T) {
	a := fromVals(t, []float64{1, 0}, tensor.Shape{2})
	b := fromVals(t, []float64{3, 4}, tensor.Shape{2})

	out, err := PerpendicularComponent(a, b)
	require.NoError(t, err)
	assertValues(t, []float64{0, 4}, out, 1e-12)

	// The result is orthogonal to a.
	dot := kernel.Dot(kernel.Values(a), kernel.Values(out))
	assert.InDelta(t, 0, dot, 1e-12)
}

func TestPerpendicularComponent_ZeroBaseYieldsZeros(t *testing.T) {
	a := fromVals(t, []float64{0, 0}, tensor.Shape{2})
	b := fromVals(t, []float64{3, 4}, tensor.Shape{2})

	out, err := PerpendicularComponent(a, b)
	require.NoError(t, err)
	assertValues(t, []float64{0, 0}, out, 0)
}

func TestGeometricSum(t *testing.T) {
	a := fromVals(t, []float64{4, 9}, tensor.Shape{2})
	b := fromVals(t, []float64{16, 1}, tensor.Shape{2})

	out, err := GeometricSum(a, b, 0.5)
	require.NoError(t, err)
	assertValues(t, []float64{8, 3}, out, 1e-12)
}

func TestGeometricSum_NegativeOperands(t *testing.T) {
	a := fromVals(t, []float64{-1}, tensor.Shape{1})
	b := fromVals(t, []float64{-1}, tensor.Shape{1})

	// (-1)^(1/2) * (-1)^(1/2) = i * i = -1 over the principal branch.
	out, err := GeometricSum(a, b, 0.5)
	require.NoError(t, err)
	assertValues(t, []float64{-1}, out, 1e-12)
}

func TestAddCosineA_IdenticalColumnsKeepA(t *testing.T) {
	// Identical inputs have similarity 1 per column; with alpha=1 the ratio
	// k = 1 - clamp(1-1, 0, 1) = 1 selects b, which equals a.
	a := fromVals(t, []float64{1, 2, 3, 4}, tensor.Shape{2, 2})

	out, err := AddCosineA(a, a, 1)
	require.NoError(t, err)
	assertValues(t, []float64{1, 2, 3, 4}, out, 1e-12)
}

func TestAddCosineA_OppositeColumnsTakeB(t *testing.T) {
	a := fromVals(t, []float64{1, 0, 1, 0}, tensor.Shape{2, 2})
	b := fromVals(t, []float64{-1, 0, -1, 0}, tensor.Shape{2, 2})

	// Opposite directions give similarity -1: k = 1 - clamp(-1-0, 0, 1) = 1,
	// so every element comes from b.
	out, err := AddCosineA(a, b, 0)
	require.NoError(t, err)
	assertValues(t, kernel.Values(b), out, 1e-12)
}

func TestAddCosineB_MatchesManualRatio(t *testing.T) {
	a := fromVals(t, []float64{1, 0}, tensor.Shape{2, 1})
	b := fromVals(t, []float64{0, 1}, tensor.Shape{2, 1})

	// Orthogonal columns: similarity 0, magnitude similarity 0, combined 0.
	// alpha=0.5 gives k = 1 - clamp(0-0.5, 0, 1) = 1, selecting b.
	out, err := AddCosineB(a, b, 0.5)
	require.NoError(t, err)
	assertValues(t, []float64{0, 1}, out, 1e-12)
}
