package kernel

import (
	"math"
	"sort"
)

// Sum returns the sum of all elements.
func Sum(xs []float64) float64 {
	var s float64
	for _, v := range xs {
		s += v
	}
	return s
}

// Mean returns the arithmetic mean of xs. Returns 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return Sum(xs) / float64(len(xs))
}

// Dot returns the inner product of a and b.
func Dot(a, b []float64) float64 {
	var s float64
	for i, v := range a {
		s += v * b[i]
	}
	return s
}

// Norm returns the Euclidean (L2) norm of xs.
func Norm(xs []float64) float64 {
	return math.Sqrt(Dot(xs, xs))
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b []float64) float64 {
	var s float64
	for i, v := range a {
		d := v - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

// Std returns the unbiased (n-1) standard deviation of xs.
func Std(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := Mean(xs)
	var s float64
	for _, v := range xs {
		d := v - m
		s += d * d
	}
	return math.Sqrt(s / float64(len(xs)-1))
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sign returns -1, 0 or +1 matching the sign of v.
func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Sanitize replaces NaN and ±Inf with 0, in place, and returns xs.
func Sanitize(xs []float64) []float64 {
	for i, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			xs[i] = 0
		}
	}
	return xs
}

// HasNaN reports whether xs contains a NaN element.
func HasNaN(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// KthValue returns the k-th smallest element of xs (1-indexed, matching the
// usual order statistic). It mutates xs; pass a scratch copy.
// Panics if k is out of range.
func KthValue(xs []float64, k int) float64 {
	if k < 1 || k > len(xs) {
		panic("kernel: kth value out of range")
	}
	// Quickselect with median-of-three pivoting.
	lo, hi := 0, len(xs)-1
	target := k - 1
	for lo < hi {
		p := partition(xs, lo, hi)
		switch {
		case p == target:
			return xs[p]
		case p < target:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
	return xs[target]
}

func partition(xs []float64, lo, hi int) int {
	mid := lo + (hi-lo)/2
	if xs[mid] < xs[lo] {
		xs[mid], xs[lo] = xs[lo], xs[mid]
	}
	if xs[hi] < xs[lo] {
		xs[hi], xs[lo] = xs[lo], xs[hi]
	}
	if xs[hi] < xs[mid] {
		xs[hi], xs[mid] = xs[mid], xs[hi]
	}
	pivot := xs[mid]
	xs[mid], xs[hi] = xs[hi], xs[mid]
	i := lo
	for j := lo; j < hi; j++ {
		if xs[j] < pivot {
			xs[i], xs[j] = xs[j], xs[i]
			i++
		}
	}
	xs[i], xs[hi] = xs[hi], xs[i]
	return i
}

// ArgsortStable returns the permutation that sorts xs ascending, preserving
// the original order of equal elements.
func ArgsortStable(xs []float64) []int {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return xs[idx[a]] < xs[idx[b]]
	})
	return idx
}

// InversePermutation returns the permutation q with q[p[i]] = i.
func InversePermutation(p []int) []int {
	q := make([]int, len(p))
	for i, v := range p {
		q[v] = i
	}
	return q
}
