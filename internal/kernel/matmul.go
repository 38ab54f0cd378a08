package kernel

import (
	"github.com/alloy-ml/alloy/internal/parallel"
)

// MatMul computes C = A·B for row-major A (m×k) and B (k×n).
// Rows of C are computed in parallel.
func MatMul(a, b []float64, m, k, n int) []float64 {
	c := make([]float64, m*n)
	cfg := parallel.DefaultConfig()
	parallel.ForRows(m, func(i int) {
		row := c[i*n : (i+1)*n]
		for p := 0; p < k; p++ {
			av := a[i*k+p]
			if av == 0 {
				continue
			}
			brow := b[p*n : (p+1)*n]
			for j, bv := range brow {
				row[j] += av * bv
			}
		}
	}, cfg)
	return c
}

// Transpose returns the transpose of row-major a (rows×cols).
func Transpose(a []float64, rows, cols int) []float64 {
	t := make([]float64, len(a))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			t[j*rows+i] = a[i*cols+j]
		}
	}
	return t
}

// ColMeans returns the per-column mean of row-major a (rows×cols).
func ColMeans(a []float64, rows, cols int) []float64 {
	means := make([]float64, cols)
	for i := 0; i < rows; i++ {
		row := a[i*cols : (i+1)*cols]
		for j, v := range row {
			means[j] += v
		}
	}
	inv := 1.0 / float64(rows)
	for j := range means {
		means[j] *= inv
	}
	return means
}
