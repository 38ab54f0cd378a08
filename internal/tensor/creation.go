package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
func Zeros[T DType](shape Shape) *RawTensor {
	var dummy T
	dtype := inferDataType(dummy)

	raw, err := NewRaw(shape, dtype, CPU)
	if err != nil {
		panic(err) // Shape validation should prevent this
	}

	// Data is already zero-initialized by make()
	return raw
}

// ZerosLike creates a zero tensor with the same shape, dtype and device as t.
func ZerosLike(t *RawTensor) *RawTensor {
	raw, err := NewRaw(t.Shape(), t.DType(), t.Device())
	if err != nil {
		panic(err)
	}
	return raw
}

// Full creates a tensor filled with a specific value.
func Full[T DType](shape Shape, value T) *RawTensor {
	raw := Zeros[T](shape)

	switch data := any(value).(type) {
	case float32:
		dst := raw.AsFloat32()
		for i := range dst {
			dst[i] = data
		}
	case float64:
		dst := raw.AsFloat64()
		for i := range dst {
			dst[i] = data
		}
	case bool:
		dst := raw.AsBool()
		for i := range dst {
			dst[i] = data
		}
	}
	return raw
}

// FromSlice creates a tensor from a Go slice.
// Returns an error if the slice length does not match the shape.
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	raw := Zeros[T](shape)
	switch src := any(data).(type) {
	case []float32:
		copy(raw.AsFloat32(), src)
	case []float64:
		copy(raw.AsFloat64(), src)
	case []bool:
		copy(raw.AsBool(), src)
	}
	return raw, nil
}

// Randn creates a tensor with random values from a normal distribution (mean=0, std=1).
// Uses Box-Muller transform. Only works with float types.
// Note: Uses math/rand (not crypto/rand) - appropriate for statistical purposes.
func Randn[T DType](shape Shape) *RawTensor {
	raw := Zeros[T](shape)

	var dummy T
	switch any(dummy).(type) {
	case float32:
		data := raw.AsFloat32()
		for i := 0; i < len(data); i += 2 {
			u1 := rand.Float64() //nolint:gosec // G404: statistical use, not security
			u2 := rand.Float64() //nolint:gosec // G404: statistical use, not security
			z0 := math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
			z1 := math.Sqrt(-2.0*math.Log(u1)) * math.Sin(2.0*math.Pi*u2)
			data[i] = float32(z0)
			if i+1 < len(data) {
				data[i+1] = float32(z1)
			}
		}
	case float64:
		data := raw.AsFloat64()
		for i := 0; i < len(data); i += 2 {
			u1 := rand.Float64() //nolint:gosec // G404: statistical use, not security
			u2 := rand.Float64() //nolint:gosec // G404: statistical use, not security
			z0 := math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
			z1 := math.Sqrt(-2.0*math.Log(u1)) * math.Sin(2.0*math.Pi*u2)
			data[i] = z0
			if i+1 < len(data) {
				data[i+1] = z1
			}
		}
	default:
		panic("Randn only supports float32 and float64 types")
	}
	return raw
}
