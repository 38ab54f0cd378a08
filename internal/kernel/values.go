// Package kernel provides the float64 compute primitives the merge operators
// stand on.
//
// Operator math runs in float64 regardless of the operand dtype: inputs are
// widened on read and results are narrowed back to the dtype of the first
// operand on write. Parameter tensors are typically float32 or float64 on
// disk; widening keeps the iterative solvers and spectral transforms stable
// without per-dtype code paths.
package kernel

import (
	"fmt"

	"github.com/alloy-ml/alloy/internal/tensor"
)

// Values extracts the tensor's elements as a fresh []float64.
// Panics if the tensor is not a float tensor.
func Values(t *tensor.RawTensor) []float64 {
	switch t.DType() {
	case tensor.Float32:
		src := t.AsFloat32()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	case tensor.Float64:
		src := t.AsFloat64()
		dst := make([]float64, len(src))
		copy(dst, src)
		return dst
	default:
		panic(fmt.Sprintf("kernel: unsupported dtype %s (only float32/float64 supported)", t.DType()))
	}
}

// FromValues materializes vals as a new tensor with the given shape and the
// dtype/device of like. Panics if the length does not match the shape or
// like is not a float tensor.
func FromValues(vals []float64, shape tensor.Shape, like *tensor.RawTensor) *tensor.RawTensor {
	if len(vals) != shape.NumElements() {
		panic(fmt.Sprintf("kernel: %d values do not fill shape %v", len(vals), shape))
	}
	out, err := tensor.NewRaw(shape, like.DType(), like.Device())
	if err != nil {
		panic(fmt.Sprintf("kernel: %v", err))
	}
	switch like.DType() {
	case tensor.Float32:
		dst := out.AsFloat32()
		for i, v := range vals {
			dst[i] = float32(v)
		}
	case tensor.Float64:
		copy(out.AsFloat64(), vals)
	default:
		panic(fmt.Sprintf("kernel: unsupported dtype %s (only float32/float64 supported)", like.DType()))
	}
	return out
}

// FromValuesLike is FromValues with the shape of like.
func FromValuesLike(vals []float64, like *tensor.RawTensor) *tensor.RawTensor {
	return FromValues(vals, like.Shape(), like)
}

// Scalar materializes a single value as a 0-dimensional tensor with the
// dtype/device of like.
func Scalar(v float64, like *tensor.RawTensor) *tensor.RawTensor {
	return FromValues([]float64{v}, tensor.Shape{}, like)
}
