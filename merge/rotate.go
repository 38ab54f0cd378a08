// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"math"

	"github.com/alloy-ml/alloy/internal/kernel"
	"github.com/alloy-ml/alloy/internal/linalg"
	"github.com/alloy-ml/alloy/tensor"
)

// Solver abstracts the linear-algebra routines the rotation merge depends
// on. The package default is the built-in dense solver; callers may swap
// in an accelerated implementation.
type Solver interface {
	// OrthogonalProcrustes returns the cols x cols orthogonal matrix R
	// minimizing ||a*R - b|| for two rows x cols matrices, row-major.
	// With cancelReflection the result is constrained to a proper rotation
	// (det = +1).
	OrthogonalProcrustes(a, b []float64, rows, cols int, cancelReflection bool) ([]float64, error)
	// FractionalMatrixPower raises an orthogonal n x n matrix to the real
	// power t.
	FractionalMatrixPower(m []float64, n int, t float64) ([]float64, error)
}

// RotateOptions configures the rotation merge.
type RotateOptions struct {
	// Alignment is the fraction of the a->b rotation to apply: 0 leaves
	// a's orientation, 1 fully aligns a onto b's neuron basis, fractional
	// values take a matrix root of the rotation, and other integers apply
	// repeated powers.
	Alignment float64
	// Alpha additionally interpolates the centered neurons toward b's
	// (counter-rotated into a's basis) before transforming.
	Alpha float64
	// Key identifies the parameter tensor for rotation caching.
	Key string
	// Cache stores rotations across calls; nil disables caching.
	Cache Cache
	// Solver overrides the linear-algebra backend; nil uses the built-in.
	Solver Solver
}

// DefaultRotateOptions returns the conventional configuration: full
// alignment, no neuron interpolation, no caching.
func DefaultRotateOptions() RotateOptions {
	return RotateOptions{Alignment: 1}
}

// Rotate merges two weight matrices by rotating a's neuron basis onto b's:
// rows are treated as neurons, both sides are centered on their column
// means, and the orthogonal Procrustes solution of the centered neurons is
// applied to a (fully, fractionally, or repeatedly per Alignment). The
// centroids are blended linearly at ratio Alignment.
//
// Alignment=0 with Alpha=0 returns a unchanged. Tensors with fewer than
// two dimensions, or operands equal at half precision, fall back to
// WeightedSum at ratio Alpha. 4-D convolution weights with a non-trivial
// trailing dimension are flattened to (out*in) x spatial so the kernel
// layout rotates as one unit.
func Rotate(a, b *tensor.RawTensor, opts RotateOptions) (*tensor.RawTensor, error) {
	if opts.Alignment == 0 && opts.Alpha == 0 {
		return a, nil
	}

	av := kernel.Values(a)
	bv := kernel.Values(b)
	shape := a.Shape()
	if len(shape) < 2 || kernel.AllCloseHalf(av, bv) {
		return WeightedSum(a, b, opts.Alpha)
	}

	var rows, cols int
	if len(shape) == 4 && shape[3] != 1 {
		cols = shape[2] * shape[3]
		rows = a.NumElements() / cols
	} else {
		rows = shape[0]
		cols = a.NumElements() / rows
	}

	solver := opts.Solver
	if solver == nil {
		solver = linalg.New()
	}
	cache := opts.Cache
	if cache == nil {
		cache = NopCache{}
	}

	aCentroid := kernel.ColMeans(av, rows, cols)
	bCentroid := kernel.ColMeans(bv, rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			av[i*cols+j] -= aCentroid[j]
			bv[i*cols+j] -= bCentroid[j]
		}
	}

	alignmentIsFractional := opts.Alignment != math.RoundToEven(opts.Alignment)

	var rotation []float64
	if cached, ok := cache.Get(opts.Key); ok {
		rotation = kernel.Values(cached)
	} else {
		var err error
		rotation, err = solver.OrthogonalProcrustes(av, bv, rows, cols, alignmentIsFractional)
		if err != nil {
			return nil, err
		}
		cache.Put(opts.Key, reducedMatrix(rotation, cols))
	}

	transform := rotation
	switch {
	case alignmentIsFractional:
		var err error
		transform, err = solver.FractionalMatrixPower(rotation, cols, opts.Alignment)
		if err != nil {
			return nil, err
		}
	case opts.Alignment == 0:
		transform = identityMatrix(cols)
	case opts.Alignment != 1:
		transform = orthogonalPower(rotation, cols, int(math.RoundToEven(opts.Alignment)))
	}

	if opts.Alpha != 0 {
		counterRotated := kernel.MatMul(bv, kernel.Transpose(rotation, cols, cols), rows, cols, cols)
		av = weightedSumVals(av, counterRotated, opts.Alpha)
	}

	out := kernel.MatMul(av, transform, rows, cols, cols)
	centroid := weightedSumVals(aCentroid, bCentroid, opts.Alignment)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[i*cols+j] += centroid[j]
		}
	}
	return kernel.FromValuesLike(out, a), nil
}

// reducedMatrix stores a square matrix as a Float32 tensor for caching.
func reducedMatrix(m []float64, n int) *tensor.RawTensor {
	out, err := tensor.NewRaw(tensor.Shape{n, n}, tensor.Float32, tensor.CPU)
	if err != nil {
		panic(err)
	}
	dst := out.AsFloat32()
	for i, v := range m {
		dst[i] = float32(v)
	}
	return out
}

// identityMatrix returns the n x n identity, row-major.
func identityMatrix(n int) []float64 {
	m := make([]float64, n*n)
	for i := 0; i < n; i++ {
		m[i*n+i] = 1
	}
	return m
}

// orthogonalPower raises an orthogonal matrix to an integer power;
// negative powers use the transpose as the inverse.
func orthogonalPower(m []float64, n, p int) []float64 {
	base := m
	if p < 0 {
		base = kernel.Transpose(m, n, n)
		p = -p
	}
	out := identityMatrix(n)
	for ; p > 0; p >>= 1 {
		if p&1 == 1 {
			out = kernel.MatMul(out, base, n, n, n)
		}
		base = kernel.MatMul(base, base, n, n, n)
	}
	return out
}
