package kernel

import "math"

// Half-precision helpers. Several operators short-circuit when two operands
// are numerically indistinguishable at half precision, and the rotation cache
// stores transforms at reduced precision.

// Float16ToFloat32 converts half precision (IEEE 754) to float32.
func Float16ToFloat32(h uint16) float32 {
	// Extract sign, exponent, and mantissa.
	sign := (h >> 15) & 0x1
	exp := (h >> 10) & 0x1F
	mant := h & 0x3FF

	var result uint32

	switch exp {
	case 0:
		if mant == 0 {
			// Zero.
			result = uint32(sign) << 31
		} else {
			// Subnormal number - normalize it.
			exp = 1
			for (mant & 0x400) == 0 {
				mant <<= 1
				exp--
			}
			mant &= 0x3FF
			result = (uint32(sign) << 31) | (uint32(exp+127-15) << 23) | (uint32(mant) << 13)
		}
	case 0x1F:
		// Inf or NaN.
		result = (uint32(sign) << 31) | 0x7F800000 | (uint32(mant) << 13)
	default:
		// Normal number.
		result = (uint32(sign) << 31) | (uint32(exp+127-15) << 23) | (uint32(mant) << 13)
	}

	return math.Float32frombits(result)
}

// Float32ToFloat16 converts float32 to half precision (IEEE 754),
// rounding to nearest.
func Float32ToFloat16(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xFF) - 127 + 15
	mant := bits & 0x7FFFFF

	switch {
	case exp >= 0x1F:
		// Overflow, Inf or NaN.
		if (bits & 0x7FFFFFFF) > 0x7F800000 {
			return sign | 0x7C00 | 0x200 // NaN
		}
		return sign | 0x7C00 // Inf
	case exp <= 0:
		// Subnormal or zero.
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - exp)
		half := uint16(mant >> shift)
		if (mant>>(shift-1))&1 != 0 {
			half++ // round to nearest
		}
		return sign | half
	default:
		half := sign | uint16(exp)<<10 | uint16(mant>>13)
		if mant&0x1000 != 0 {
			half++ // round to nearest; carry into the exponent is correct
		}
		return half
	}
}

// HalfRound rounds v through half precision and back.
func HalfRound(v float64) float64 {
	return float64(Float16ToFloat32(Float32ToFloat16(float32(v))))
}

// AllCloseHalf reports whether a and b are elementwise close after rounding
// both to half precision (rtol=1e-5, atol=1e-8 on the rounded values).
func AllCloseHalf(a, b []float64) bool {
	const (
		rtol = 1e-5
		atol = 1e-8
	)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ah := HalfRound(a[i])
		bh := HalfRound(b[i])
		if ah == bh {
			continue
		}
		if math.IsNaN(ah) || math.IsNaN(bh) {
			return false
		}
		if math.Abs(ah-bh) > atol+rtol*math.Abs(bh) {
			return false
		}
	}
	return true
}
