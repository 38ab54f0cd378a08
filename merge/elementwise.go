// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"math"
	"math/cmplx"

	"github.com/alloy-ml/alloy/internal/kernel"
	"github.com/alloy-ml/alloy/tensor"
)

// WeightedSum returns (1-alpha)*a + alpha*b.
//
// Identities: alpha=0 reproduces a exactly, alpha=1 reproduces b exactly,
// and a==b is a fixed point for every alpha.
func WeightedSum(a, b *tensor.RawTensor, alpha float64) (*tensor.RawTensor, error) {
	out := weightedSumVals(kernel.Values(a), kernel.Values(b), alpha)
	return kernel.FromValuesLike(out, a), nil
}

// NAverage returns the elementwise arithmetic mean of the inputs.
func NAverage(models []*tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := requireModels("n_average", models, 1); err != nil {
		return nil, err
	}
	out := make([]float64, models[0].NumElements())
	for _, m := range models {
		for i, v := range kernel.Values(m) {
			out[i] += v
		}
	}
	n := float64(len(models))
	for i := range out {
		out[i] /= n
	}
	return kernel.FromValuesLike(out, models[0]), nil
}

// Slerp interpolates spherically between a and b, treating each tensor as
// one flat vector: the directions are blended along the great circle at
// parameter alpha and the result is rescaled by the linear interpolation of
// the input norms. When the directions are (anti)parallel or a norm
// vanishes, the spherical formula degenerates to NaN and the operator falls
// back to WeightedSum.
func Slerp(a, b *tensor.RawTensor, alpha float64) (*tensor.RawTensor, error) {
	av := kernel.Values(a)
	bv := kernel.Values(b)

	na := kernel.Norm(av)
	nb := kernel.Norm(bv)
	an := make([]float64, len(av))
	bn := make([]float64, len(bv))
	for i := range av {
		an[i] = av[i] / na
		bn[i] = bv[i] / nb
	}

	dot := kernel.Clamp(kernel.Dot(an, bn), -1, 1)
	omega := math.Acos(dot)
	sinOmega := math.Sin(omega)

	scale := (1-alpha)*na + alpha*nb
	wa := math.Sin((1-alpha)*omega) / sinOmega
	wb := math.Sin(alpha*omega) / sinOmega
	out := make([]float64, len(av))
	for i := range out {
		out[i] = (wa*an[i] + wb*bn[i]) * scale
	}

	if kernel.HasNaN(out) {
		return WeightedSum(a, b, alpha)
	}
	return kernel.FromValuesLike(out, a), nil
}

// AddDifference returns a + alpha*b, applying a scaled delta onto a base.
func AddDifference(a, b *tensor.RawTensor, alpha float64) (*tensor.RawTensor, error) {
	av := kernel.Values(a)
	bv := kernel.Values(b)
	out := make([]float64, len(av))
	for i := range out {
		out[i] = av[i] + alpha*bv[i]
	}
	return kernel.FromValuesLike(out, a), nil
}

// Subtract returns a - b, extracting the delta between two base tensors.
func Subtract(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	av := kernel.Values(a)
	bv := kernel.Values(b)
	out := make([]float64, len(av))
	for i := range out {
		out[i] = av[i] - bv[i]
	}
	return kernel.FromValuesLike(out, a), nil
}

// PerpendicularComponent returns the component of b orthogonal to a,
// treating both tensors as flat vectors. If the projection degenerates to
// NaN (zero-norm a), the result is all zeros.
func PerpendicularComponent(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	av := kernel.Values(a)
	bv := kernel.Values(b)

	na := kernel.Norm(av)
	var proj float64
	for i := range av {
		proj += (av[i] / na) * (bv[i] / na)
	}
	out := make([]float64, len(av))
	for i := range out {
		out[i] = bv[i] - av[i]*proj
	}
	if kernel.HasNaN(out) {
		return kernel.FromValuesLike(make([]float64, len(out)), a), nil
	}
	return kernel.FromValuesLike(out, a), nil
}

// GeometricSum returns the elementwise weighted geometric mean
// a^(1-alpha) * b^alpha, computed over the complex plane so that negative
// operands contribute their principal power; only the real part is kept.
func GeometricSum(a, b *tensor.RawTensor, alpha float64) (*tensor.RawTensor, error) {
	av := kernel.Values(a)
	bv := kernel.Values(b)
	out := make([]float64, len(av))
	for i := range out {
		ca := cmplx.Pow(complex(av[i], 0), complex(1-alpha, 0))
		cb := cmplx.Pow(complex(bv[i], 0), complex(alpha, 0))
		out[i] = real(ca * cb)
	}
	return kernel.FromValuesLike(out, a), nil
}

// AddCosineA interpolates a toward b with a per-column ratio driven by the
// cosine similarity of the column-normalized inputs: similar columns keep
// more of a, dissimilar columns take more of b.
func AddCosineA(a, b *tensor.RawTensor, alpha float64) (*tensor.RawTensor, error) {
	av := kernel.Values(a)
	bv := kernel.Values(b)
	rows, cols := axisZeroLayout(a)

	an := normalizeColumns(av, rows, cols)
	bn := normalizeColumns(bv, rows, cols)
	sim := columnCosineSimilarity(an, bn, rows, cols)
	return addCosineGeneric(a, av, bv, sim, rows, cols, alpha), nil
}

// AddCosineB is the unnormalized variant of AddCosineA: the per-column
// ratio averages raw cosine similarity with a whole-tensor magnitude
// similarity term.
func AddCosineB(a, b *tensor.RawTensor, alpha float64) (*tensor.RawTensor, error) {
	av := kernel.Values(a)
	bv := kernel.Values(b)
	rows, cols := axisZeroLayout(a)

	sim := columnCosineSimilarity(av, bv, rows, cols)
	magSim := kernel.Dot(av, bv) / (kernel.Norm(av) * kernel.Norm(bv))
	for j := range sim {
		sim[j] = (sim[j] + magSim) / 2
	}
	return addCosineGeneric(a, av, bv, sim, rows, cols, alpha), nil
}

// axisZeroLayout views a tensor as rows x cols with rows = dim 0.
func axisZeroLayout(t *tensor.RawTensor) (rows, cols int) {
	shape := t.Shape()
	if len(shape) == 0 {
		return 1, 1
	}
	rows = shape[0]
	cols = t.NumElements() / rows
	return rows, cols
}

// normalizeColumns scales each column of a rows x cols matrix to unit L2
// norm, guarding near-zero columns with a small floor.
func normalizeColumns(m []float64, rows, cols int) []float64 {
	const normEps = 1e-12
	out := make([]float64, len(m))
	for j := 0; j < cols; j++ {
		var s float64
		for i := 0; i < rows; i++ {
			v := m[i*cols+j]
			s += v * v
		}
		n := math.Max(math.Sqrt(s), normEps)
		for i := 0; i < rows; i++ {
			out[i*cols+j] = m[i*cols+j] / n
		}
	}
	return out
}

// columnCosineSimilarity returns the per-column cosine similarity of two
// rows x cols matrices, with the denominator floored to avoid division by
// zero.
func columnCosineSimilarity(a, b []float64, rows, cols int) []float64 {
	const cosEps = 1e-8
	sim := make([]float64, cols)
	for j := 0; j < cols; j++ {
		var dot, na, nb float64
		for i := 0; i < rows; i++ {
			x := a[i*cols+j]
			y := b[i*cols+j]
			dot += x * y
			na += x * x
			nb += y * y
		}
		sim[j] = dot / math.Max(math.Sqrt(na)*math.Sqrt(nb), cosEps)
	}
	return sim
}

// addCosineGeneric blends a and b per column with ratio
// k = 1 - clamp(sim - alpha, 0, 1).
func addCosineGeneric(like *tensor.RawTensor, av, bv, sim []float64, rows, cols int, alpha float64) *tensor.RawTensor {
	out := make([]float64, len(av))
	for j := 0; j < cols; j++ {
		k := 1 - kernel.Clamp(sim[j]-alpha, 0, 1)
		for i := 0; i < rows; i++ {
			idx := i*cols + j
			out[idx] = (1-k)*av[idx] + k*bv[idx]
		}
	}
	return kernel.FromValuesLike(out, like)
}
