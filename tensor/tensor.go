// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor API of the Alloy merge library.
//
// The package defines the types the merge operators exchange:
//   - RawTensor: dense N-dimensional array with runtime dtype
//   - Shape, DataType, Device: core type definitions
//
// Example:
//
//	a := tensor.Randn[float32](tensor.Shape{16, 16})
//	b := tensor.Randn[float32](tensor.Shape{16, 16})
//	out, err := merge.WeightedSum(a, b, 0.5)
package tensor

import (
	"github.com/alloy-ml/alloy/internal/tensor"
)

// Type aliases for public API

// DType is a constraint for tensor data types.
// Supported types: float32, float64, bool.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Bool    DataType = tensor.Bool
)

// Device represents the device where tensor data resides.
type Device = tensor.Device

// Device constants.
const (
	CPU Device = tensor.CPU
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
// An empty Shape is a 0-dimensional (scalar) tensor.
type Shape = tensor.Shape

// RawTensor is the dense N-dimensional array all merge operators consume
// and produce.
type RawTensor = tensor.RawTensor

// Creation functions

// NewRaw creates a new raw tensor with the given shape, dtype, and device.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	x := tensor.Zeros[float32](tensor.Shape{2, 3})
func Zeros[T DType](shape Shape) *RawTensor {
	return tensor.Zeros[T](shape)
}

// ZerosLike creates a zero tensor with the same shape, dtype and device as t.
func ZerosLike(t *RawTensor) *RawTensor {
	return tensor.ZerosLike(t)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	x := tensor.Full[float64](tensor.Shape{2, 3}, 3.14)
func Full[T DType](shape Shape, value T) *RawTensor {
	return tensor.Full[T](shape, value)
}

// FromSlice creates a tensor from a Go slice.
//
// Example:
//
//	data := []float32{1, 2, 3, 4, 5, 6}
//	x, err := tensor.FromSlice(data, tensor.Shape{2, 3})
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice[T](data, shape)
}

// Randn creates a tensor filled with random values from standard normal
// distribution N(0, 1).
//
// Example:
//
//	x := tensor.Randn[float32](tensor.Shape{2, 3})
func Randn[T DType](shape Shape) *RawTensor {
	return tensor.Randn[T](shape)
}
