// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alloy-ml/alloy/internal/kernel"
	"github.com/alloy-ml/alloy/tensor"
)

func TestRatioToRegion(t *testing.T) {
	tests := []struct {
		name          string
		width, offset float64
		n             int
		start, end    int
		inverted      bool
	}{
		{"plain window", 0.3, 0.2, 10, 2, 5, false},
		{"wrapping window inverts", 0.8, 0.5, 10, 3, 5, true},
		{"full width", 1.0, 0.0, 10, 0, 10, false},
		{"zero width", 0.0, 0.4, 10, 4, 4, false},
		{"negative width folds into offset", -0.3, 0.5, 10, 2, 5, false},
		{"negative offset wraps", 0.2, -0.1, 10, 1, 9, true},
		{"width capped at one", 2.0, 0.0, 10, 0, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, inverted := RatioToRegion(tt.width, tt.offset, tt.n)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
			assert.Equal(t, tt.inverted, inverted)
		})
	}
}

func TestTensorSum_SplicesRows(t *testing.T) {
	a := fromVals(t, []float64{1, 1, 2, 2, 3, 3, 4, 4, 5, 5}, tensor.Shape{5, 2})
	b := fromVals(t, []float64{10, 10, 20, 20, 30, 30, 40, 40, 50, 50}, tensor.Shape{5, 2})

	// width=0.4, offset=0.2 over 5 rows: rows [1, 3) come from b.
	out, err := TensorSum(a, b, 0.4, 0.2)
	require.NoError(t, err)
	assertValues(t, []float64{1, 1, 20, 20, 30, 30, 4, 4, 5, 5}, out, 0)
}

func TestTensorSum_WrappedRegionSwapsDonor(t *testing.T) {
	a := fromVals(t, []float64{1, 2, 3, 4, 5}, tensor.Shape{5})
	b := fromVals(t, []float64{10, 20, 30, 40, 50}, tensor.Shape{5})

	// width=0.8, offset=0.6 wraps: the complement rows [2, 3) keep a, the
	// rest come from b.
	out, err := TensorSum(a, b, 0.8, 0.6)
	require.NoError(t, err)
	assertValues(t, []float64{10, 20, 3, 40, 50}, out, 0)
}

func TestTensorSum_ScalarPicksByWidth(t *testing.T) {
	a := fromVals(t, []float64{1}, tensor.Shape{})
	b := fromVals(t, []float64{2}, tensor.Shape{})

	out, err := TensorSum(a, b, 0.6, 0)
	require.NoError(t, err)
	assert.Same(t, b, out)

	out, err = TensorSum(a, b, 0.4, 0)
	require.NoError(t, err)
	assert.Same(t, a, out)
}

func TestTopKTensorSum_FullWindowPermutesAIntoBOrder(t *testing.T) {
	a := fromVals(t, []float64{5, 1, 4, 2, 3}, tensor.Shape{5})
	b := fromVals(t, []float64{0.1, 0.9, 0.5, 0.3, 0.7}, tensor.Shape{5})

	out, err := TopKTensorSum(a, b, 1, 0)
	require.NoError(t, err)

	// With the full window every position takes a redistributed value:
	// the output is a permutation of a's values ranked like b.
	got := kernel.Values(out)
	sortedGot := append([]float64(nil), got...)
	sort.Float64s(sortedGot)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, sortedGot)

	// b's smallest value sits at index 0, so index 0 receives a's smallest.
	assert.Equal(t, float64(1), got[0])
	// b's largest value sits at index 1, so index 1 receives a's largest.
	assert.Equal(t, float64(5), got[1])
}

func TestTopKTensorSum_ZeroWidthKeepsA(t *testing.T) {
	a := fromVals(t, []float64{5, 1, 4, 2, 3}, tensor.Shape{5})
	b := fromVals(t, []float64{0.1, 0.9, 0.5, 0.3, 0.7}, tensor.Shape{5})

	// width=0 with offset=0 yields an empty window [0, 0): the start bound
	// resolves to -1 and the end bound to -1, selecting nothing.
	out, err := TopKTensorSum(a, b, 0, 0)
	require.NoError(t, err)
	assertValues(t, []float64{5, 1, 4, 2, 3}, out, 0)
}
