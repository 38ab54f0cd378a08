package linalg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alloy-ml/alloy/internal/kernel"
)

func rotation2D(theta float64) []float64 {
	return []float64{
		math.Cos(theta), -math.Sin(theta),
		math.Sin(theta), math.Cos(theta),
	}
}

func assertMatrixClose(t *testing.T, expected, got []float64, tol float64) {
	t.Helper()
	require.Len(t, got, len(expected))
	for i := range expected {
		assert.InDelta(t, expected[i], got[i], tol, "index %d", i)
	}
}

func TestOrthogonalProcrustes_RecoversRotation(t *testing.T) {
	theta := math.Pi / 7
	r := rotation2D(theta)

	// b = a @ r for a full-rank a.
	a := []float64{
		1, 0,
		0, 1,
		2, -1,
		-3, 0.5,
	}
	b := kernel.MatMul(a, r, 4, 2, 2)

	s := New()
	got, err := s.OrthogonalProcrustes(a, b, 4, 2, false)
	require.NoError(t, err)
	assertMatrixClose(t, r, got, 1e-9)
}

func TestOrthogonalProcrustes_ResultIsOrthogonal(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 1, 0, -1}
	b := []float64{2, -1, 0, 3, 1, 1, -2, 4, 0, 0, 5, -3}

	s := New()
	r, err := s.OrthogonalProcrustes(a, b, 4, 3, false)
	require.NoError(t, err)

	rtr := kernel.MatMul(kernel.Transpose(r, 3, 3), r, 3, 3, 3)
	assertMatrixClose(t, identity(3), rtr, 1e-9)
}

func TestOrthogonalProcrustes_CancelReflection(t *testing.T) {
	// b mirrors a: the unconstrained optimum is a reflection (det = -1).
	a := []float64{
		1, 0,
		0, 1,
		-1, 2,
	}
	b := make([]float64, len(a))
	for i := 0; i < 3; i++ {
		b[i*2] = a[i*2]
		b[i*2+1] = -a[i*2+1]
	}

	s := New()
	unconstrained, err := s.OrthogonalProcrustes(a, b, 3, 2, false)
	require.NoError(t, err)
	assert.Equal(t, -1, detSign(unconstrained, 2))

	proper, err := s.OrthogonalProcrustes(a, b, 3, 2, true)
	require.NoError(t, err)
	assert.Equal(t, 1, detSign(proper, 2))

	rtr := kernel.MatMul(kernel.Transpose(proper, 2, 2), proper, 2, 2, 2)
	assertMatrixClose(t, identity(2), rtr, 1e-9)
}

func TestOrthogonalProcrustes_ShapeMismatch(t *testing.T) {
	s := New()
	_, err := s.OrthogonalProcrustes([]float64{1, 2}, []float64{1, 2, 3, 4}, 2, 2, false)
	assert.Error(t, err)
}

func TestFractionalMatrixPower_HalfRotationSquares(t *testing.T) {
	theta := 2 * math.Pi / 5
	r := rotation2D(theta)

	s := New()
	half, err := s.FractionalMatrixPower(r, 2, 0.5)
	require.NoError(t, err)

	squared := kernel.MatMul(half, half, 2, 2, 2)
	assertMatrixClose(t, r, squared, 1e-9)
}

func TestFractionalMatrixPower_Endpoints(t *testing.T) {
	r := rotation2D(math.Pi / 3)
	s := New()

	zero, err := s.FractionalMatrixPower(r, 2, 0)
	require.NoError(t, err)
	assertMatrixClose(t, identity(2), zero, 1e-9)

	one, err := s.FractionalMatrixPower(r, 2, 1)
	require.NoError(t, err)
	assertMatrixClose(t, r, one, 1e-9)
}

func TestFractionalMatrixPower_Identity(t *testing.T) {
	s := New()
	got, err := s.FractionalMatrixPower(identity(3), 3, 0.37)
	require.NoError(t, err)
	assertMatrixClose(t, identity(3), got, 1e-9)
}

func TestFractionalMatrixPower_BlockDiagonalRotation(t *testing.T) {
	// Two independent plane rotations embedded in 4x4.
	t1 := math.Pi / 4
	t2 := math.Pi / 6
	m := make([]float64, 16)
	m[0*4+0], m[0*4+1] = math.Cos(t1), -math.Sin(t1)
	m[1*4+0], m[1*4+1] = math.Sin(t1), math.Cos(t1)
	m[2*4+2], m[2*4+3] = math.Cos(t2), -math.Sin(t2)
	m[3*4+2], m[3*4+3] = math.Sin(t2), math.Cos(t2)

	s := New()
	third, err := s.FractionalMatrixPower(m, 4, 1.0/3.0)
	require.NoError(t, err)

	cubed := kernel.MatMul(third, kernel.MatMul(third, third, 4, 4, 4), 4, 4, 4)
	assertMatrixClose(t, m, cubed, 1e-8)
}

func TestDetSign(t *testing.T) {
	assert.Equal(t, 1, detSign(identity(3), 3))
	assert.Equal(t, -1, detSign([]float64{0, 1, 1, 0}, 2))
	assert.Equal(t, 0, detSign([]float64{1, 2, 2, 4}, 2))
	assert.Equal(t, 1, detSign(rotation2D(1.1), 2))
}

func TestJacobiEigSym(t *testing.T) {
	// Symmetric matrix with known eigenvalues 3 and 1.
	sym := []float64{2, 1, 1, 2}
	q, vals := jacobiEigSym(sym, 2)

	sorted := append([]float64(nil), vals...)
	if sorted[0] > sorted[1] {
		sorted[0], sorted[1] = sorted[1], sorted[0]
	}
	assert.InDelta(t, 1, sorted[0], 1e-12)
	assert.InDelta(t, 3, sorted[1], 1e-12)

	// q diag(vals) q^T reconstructs the input.
	d := []float64{vals[0], 0, 0, vals[1]}
	rec := kernel.MatMul(q, kernel.MatMul(d, kernel.Transpose(q, 2, 2), 2, 2, 2), 2, 2, 2)
	assertMatrixClose(t, sym, rec, 1e-10)
}

func TestSVDJacobi_Reconstructs(t *testing.T) {
	m := []float64{3, 1, -1, 2, 0, 4, 1, -2, 5}
	u, sigma, v := svdJacobi(m, 3)

	assert.True(t, sigma[0] >= sigma[1] && sigma[1] >= sigma[2])

	d := make([]float64, 9)
	for i := 0; i < 3; i++ {
		d[i*3+i] = sigma[i]
	}
	rec := kernel.MatMul(u, kernel.MatMul(d, kernel.Transpose(v, 3, 3), 3, 3, 3), 3, 3, 3)
	assertMatrixClose(t, m, rec, 1e-9)

	utu := kernel.MatMul(kernel.Transpose(u, 3, 3), u, 3, 3, 3)
	assertMatrixClose(t, identity(3), utu, 1e-9)
	vtv := kernel.MatMul(kernel.Transpose(v, 3, 3), v, 3, 3, 3)
	assertMatrixClose(t, identity(3), vtv, 1e-9)
}

func TestSVDJacobi_RankDeficient(t *testing.T) {
	// Rank-1 matrix: the zero singular directions of u are completed to an
	// orthonormal basis.
	m := []float64{1, 2, 2, 4}
	u, sigma, _ := svdJacobi(m, 2)

	assert.InDelta(t, 5, sigma[0], 1e-10)
	assert.InDelta(t, 0, sigma[1], 1e-10)

	utu := kernel.MatMul(kernel.Transpose(u, 2, 2), u, 2, 2, 2)
	assertMatrixClose(t, identity(2), utu, 1e-9)
}
