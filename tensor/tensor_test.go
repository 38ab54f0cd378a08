// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alloy-ml/alloy/tensor"
)

func TestZeros(t *testing.T) {
	x := tensor.Zeros[float32](tensor.Shape{2, 3})
	assert.Equal(t, tensor.Shape{2, 3}, x.Shape())
	assert.Equal(t, tensor.Float32, x.DType())
	assert.Equal(t, 6, x.NumElements())
	for _, v := range x.AsFloat32() {
		assert.Equal(t, float32(0), v)
	}
}

func TestZeros_Scalar(t *testing.T) {
	// A 0-dimensional shape holds exactly one element.
	x := tensor.Zeros[float64](tensor.Shape{})
	assert.Equal(t, 0, len(x.Shape()))
	assert.Equal(t, 1, x.NumElements())
}

func TestFromSlice(t *testing.T) {
	x, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, x.AsFloat64())

	_, err = tensor.FromSlice([]float64{1, 2}, tensor.Shape{2, 3})
	assert.Error(t, err)
}

func TestFull(t *testing.T) {
	x := tensor.Full[float32](tensor.Shape{4}, 2.5)
	for _, v := range x.AsFloat32() {
		assert.Equal(t, float32(2.5), v)
	}
}

func TestZerosLike(t *testing.T) {
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	require.NoError(t, err)

	z := tensor.ZerosLike(x)
	assert.Equal(t, x.Shape(), z.Shape())
	assert.Equal(t, x.DType(), z.DType())
	for _, v := range z.AsFloat32() {
		assert.Equal(t, float32(0), v)
	}
}

func TestClone_SharesBuffer(t *testing.T) {
	x, err := tensor.FromSlice([]float64{1, 2, 3}, tensor.Shape{3})
	require.NoError(t, err)
	assert.True(t, x.IsUnique())

	c := x.Clone()
	assert.False(t, x.IsUnique())

	// Views share memory until a new result is materialized.
	c.AsFloat64()[0] = 9
	assert.Equal(t, 9.0, x.AsFloat64()[0])

	c.Release()
	assert.True(t, x.IsUnique())
}

func TestWithShape(t *testing.T) {
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)

	v := x.WithShape(tensor.Shape{3, 2})
	assert.Equal(t, tensor.Shape{3, 2}, v.Shape())
	assert.Equal(t, x.AsFloat32(), v.AsFloat32())

	assert.Panics(t, func() { x.WithShape(tensor.Shape{4}) })
}

func TestAsTypedView_WrongDType(t *testing.T) {
	x := tensor.Zeros[float32](tensor.Shape{2})
	assert.Panics(t, func() { x.AsFloat64() })
}

func TestRandn(t *testing.T) {
	x := tensor.Randn[float64](tensor.Shape{64})
	var sum float64
	for _, v := range x.AsFloat64() {
		sum += v
	}
	// Loose sanity bound: 64 standard normals rarely average beyond ±1.
	assert.InDelta(t, 0, sum/64, 1)
}
