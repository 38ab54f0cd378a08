// Package linalg implements the linear-algebra service consumed by the
// alignment/rotation merge operator: an orthogonal-Procrustes solver and a
// fractional matrix power for orthogonal matrices. All matrices are dense
// row-major []float64.
package linalg

import (
	"fmt"
	"math"

	"github.com/alloy-ml/alloy/internal/kernel"
)

// Solver provides the Procrustes and matrix power routines.
// The zero value is ready to use.
type Solver struct{}

// New returns a Solver.
func New() *Solver {
	return &Solver{}
}

// OrthogonalProcrustes returns the cols×cols orthogonal matrix R minimizing
// ‖a·R - b‖_F for two rows×cols matrices: R = U·Vᵀ from the SVD of aᵀ·b.
// With cancelReflection, an improper solution (det R = -1) is repaired by
// flipping the singular vector of the smallest singular value, forcing a
// proper rotation.
func (s *Solver) OrthogonalProcrustes(a, b []float64, rows, cols int, cancelReflection bool) ([]float64, error) {
	if len(a) != rows*cols || len(b) != rows*cols {
		return nil, fmt.Errorf("procrustes: operands must be %d×%d", rows, cols)
	}

	m := kernel.MatMul(kernel.Transpose(a, rows, cols), b, cols, rows, cols)
	u, _, v := svdJacobi(m, cols)

	r := kernel.MatMul(u, kernel.Transpose(v, cols, cols), cols, cols, cols)
	if cancelReflection && detSign(r, cols) < 0 {
		// Singular values are sorted descending: the last column is the
		// cheapest direction to flip.
		for k := 0; k < cols; k++ {
			u[k*cols+cols-1] = -u[k*cols+cols-1]
		}
		r = kernel.MatMul(u, kernel.Transpose(v, cols, cols), cols, cols, cols)
	}
	return r, nil
}

// FractionalMatrixPower raises an orthogonal n×n matrix m to the real power t.
//
// The symmetric part (m+mᵀ)/2 commutes with m, so its eigenbasis block-
// diagonalizes m into plane rotations; each block is raised in closed form:
// K^t = cos(tθ)·I + (sin(tθ)/sinθ)·(K-Kᵀ)/2 for the block with eigenvalue
// cosθ. Blocks with sinθ = 0 (θ ∈ {0, π}) degenerate to cos(tθ)·I, the real
// part of the principal power.
func (s *Solver) FractionalMatrixPower(m []float64, n int, t float64) ([]float64, error) {
	if len(m) != n*n {
		return nil, fmt.Errorf("matrix power: matrix must be %d×%d", n, n)
	}

	sym := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sym[i*n+j] = (m[i*n+j] + m[j*n+i]) / 2
		}
	}
	q, vals := jacobiEigSym(sym, n)

	// Sort the eigenbasis so equal eigenvalues (conjugate rotation pairs)
	// are adjacent.
	order := kernel.ArgsortStable(vals)
	qs := make([]float64, n*n)
	sorted := make([]float64, n)
	for dst, src := range order {
		sorted[dst] = vals[src]
		for k := 0; k < n; k++ {
			qs[k*n+dst] = q[k*n+src]
		}
	}

	// b = qᵀ·m·q is block diagonal along eigenvalue clusters.
	b := kernel.MatMul(kernel.Transpose(qs, n, n), kernel.MatMul(m, qs, n, n, n), n, n, n)
	bt := make([]float64, n*n)

	const clusterTol = 1e-6
	for lo := 0; lo < n; {
		hi := lo + 1
		for hi < n && math.Abs(sorted[hi]-sorted[lo]) < clusterTol {
			hi++
		}
		powerBlock(bt, b, n, lo, hi, sorted[lo], t)
		lo = hi
	}

	return kernel.MatMul(qs, kernel.MatMul(bt, kernel.Transpose(qs, n, n), n, n, n), n, n, n), nil
}

// powerBlock writes the t-th power of the [lo,hi) diagonal block of b into bt.
func powerBlock(bt, b []float64, n, lo, hi int, cosTheta, t float64) {
	c := kernel.Clamp(cosTheta, -1, 1)
	theta := math.Acos(c)
	sinTheta := math.Sqrt(1 - c*c)

	cosT := math.Cos(t * theta)
	if sinTheta < 1e-7 {
		for i := lo; i < hi; i++ {
			bt[i*n+i] = cosT
		}
		return
	}

	scale := math.Sin(t*theta) / sinTheta
	for i := lo; i < hi; i++ {
		for j := lo; j < hi; j++ {
			skew := (b[i*n+j] - b[j*n+i]) / 2
			bt[i*n+j] = scale * skew
			if i == j {
				bt[i*n+j] += cosT
			}
		}
	}
}

// detSign returns the sign of det(m) via Gaussian elimination with partial
// pivoting: +1, -1, or 0 for a (numerically) singular matrix.
func detSign(m []float64, n int) int {
	a := make([]float64, len(m))
	copy(a, m)
	sign := 1
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r*n+col]) > math.Abs(a[pivot*n+col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot*n+col]) < 1e-14 {
			return 0
		}
		if pivot != col {
			for k := 0; k < n; k++ {
				a[col*n+k], a[pivot*n+k] = a[pivot*n+k], a[col*n+k]
			}
			sign = -sign
		}
		if a[col*n+col] < 0 {
			sign = -sign
		}
		for r := col + 1; r < n; r++ {
			f := a[r*n+col] / a[col*n+col]
			for k := col; k < n; k++ {
				a[r*n+k] -= f * a[col*n+k]
			}
		}
	}
	return sign
}
