package linalg

import "math"

// jacobiEigSym computes the eigendecomposition of a symmetric n×n matrix s
// (row-major) by cyclic Jacobi rotations: s = q·diag(vals)·qᵀ. Columns of q
// are the eigenvectors. s is not modified.
func jacobiEigSym(s []float64, n int) (q, vals []float64) {
	a := make([]float64, len(s))
	copy(a, s)
	q = identity(n)

	const maxSweeps = 64
	for sweep := 0; sweep < maxSweeps; sweep++ {
		off := 0.0
		for p := 0; p < n; p++ {
			for r := p + 1; r < n; r++ {
				off += a[p*n+r] * a[p*n+r]
			}
		}
		if math.Sqrt(off) <= 1e-14*frobenius(a, n) {
			break
		}

		for p := 0; p < n-1; p++ {
			for r := p + 1; r < n; r++ {
				apq := a[p*n+r]
				if apq == 0 {
					continue
				}
				app := a[p*n+p]
				aqq := a[r*n+r]
				theta := (aqq - app) / (2 * apq)
				t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(1+theta*theta))
				c := 1 / math.Sqrt(1+t*t)
				sn := t * c

				// Rotate rows/columns p and r of a.
				for k := 0; k < n; k++ {
					akp := a[k*n+p]
					akq := a[k*n+r]
					a[k*n+p] = c*akp - sn*akq
					a[k*n+r] = sn*akp + c*akq
				}
				for k := 0; k < n; k++ {
					apk := a[p*n+k]
					aqk := a[r*n+k]
					a[p*n+k] = c*apk - sn*aqk
					a[r*n+k] = sn*apk + c*aqk
				}
				// Accumulate eigenvectors.
				for k := 0; k < n; k++ {
					qkp := q[k*n+p]
					qkq := q[k*n+r]
					q[k*n+p] = c*qkp - sn*qkq
					q[k*n+r] = sn*qkp + c*qkq
				}
			}
		}
	}

	vals = make([]float64, n)
	for i := 0; i < n; i++ {
		vals[i] = a[i*n+i]
	}
	return q, vals
}

// svdJacobi computes the singular value decomposition of a square n×n matrix
// m (row-major) by one-sided Jacobi (Hestenes): m = u·diag(sigma)·vᵀ.
// Singular values are sorted descending. Columns of u belonging to
// (near-)zero singular values are completed to an orthonormal basis.
func svdJacobi(m []float64, n int) (u, sigma, v []float64) {
	a := make([]float64, len(m))
	copy(a, m)
	v = identity(n)

	const (
		maxSweeps = 64
		tol       = 1e-14
	)
	for sweep := 0; sweep < maxSweeps; sweep++ {
		rotated := false
		for p := 0; p < n-1; p++ {
			for r := p + 1; r < n; r++ {
				var alpha, beta, gamma float64
				for k := 0; k < n; k++ {
					alpha += a[k*n+p] * a[k*n+p]
					beta += a[k*n+r] * a[k*n+r]
					gamma += a[k*n+p] * a[k*n+r]
				}
				if math.Abs(gamma) <= tol*math.Sqrt(alpha*beta) || gamma == 0 {
					continue
				}
				rotated = true
				zeta := (beta - alpha) / (2 * gamma)
				t := math.Copysign(1, zeta) / (math.Abs(zeta) + math.Sqrt(1+zeta*zeta))
				c := 1 / math.Sqrt(1+t*t)
				sn := c * t
				for k := 0; k < n; k++ {
					akp := a[k*n+p]
					akq := a[k*n+r]
					a[k*n+p] = c*akp - sn*akq
					a[k*n+r] = sn*akp + c*akq
				}
				for k := 0; k < n; k++ {
					vkp := v[k*n+p]
					vkq := v[k*n+r]
					v[k*n+p] = c*vkp - sn*vkq
					v[k*n+r] = sn*vkp + c*vkq
				}
			}
		}
		if !rotated {
			break
		}
	}

	sigma = make([]float64, n)
	u = make([]float64, n*n)
	for j := 0; j < n; j++ {
		var norm float64
		for k := 0; k < n; k++ {
			norm += a[k*n+j] * a[k*n+j]
		}
		sigma[j] = math.Sqrt(norm)
		if sigma[j] > 1e-12 {
			inv := 1 / sigma[j]
			for k := 0; k < n; k++ {
				u[k*n+j] = a[k*n+j] * inv
			}
		}
	}

	sortSVD(u, sigma, v, n)
	completeOrthonormal(u, sigma, n)
	return u, sigma, v
}

// sortSVD reorders the decomposition so singular values descend.
func sortSVD(u, sigma, v []float64, n int) {
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if sigma[j] > sigma[best] {
				best = j
			}
		}
		if best == i {
			continue
		}
		sigma[i], sigma[best] = sigma[best], sigma[i]
		for k := 0; k < n; k++ {
			u[k*n+i], u[k*n+best] = u[k*n+best], u[k*n+i]
			v[k*n+i], v[k*n+best] = v[k*n+best], v[k*n+i]
		}
	}
}

// completeOrthonormal replaces the u columns of near-zero singular values
// with unit vectors orthogonal to the remaining columns (Gram-Schmidt over
// the standard basis).
func completeOrthonormal(u, sigma []float64, n int) {
	for j := 0; j < n; j++ {
		if sigma[j] > 1e-12 {
			continue
		}
		for e := 0; e < n; e++ {
			// Candidate: standard basis vector e, projected out of every
			// existing column.
			cand := make([]float64, n)
			cand[e] = 1
			for c := 0; c < n; c++ {
				if c == j {
					continue
				}
				var dot float64
				for k := 0; k < n; k++ {
					dot += cand[k] * u[k*n+c]
				}
				for k := 0; k < n; k++ {
					cand[k] -= dot * u[k*n+c]
				}
			}
			var norm float64
			for _, c := range cand {
				norm += c * c
			}
			norm = math.Sqrt(norm)
			if norm > 1e-6 {
				for k := 0; k < n; k++ {
					u[k*n+j] = cand[k] / norm
				}
				break
			}
		}
	}
}

func identity(n int) []float64 {
	m := make([]float64, n*n)
	for i := 0; i < n; i++ {
		m[i*n+i] = 1
	}
	return m
}

func frobenius(m []float64, n int) float64 {
	var s float64
	for _, v := range m {
		s += v * v
	}
	return math.Sqrt(s)
}
