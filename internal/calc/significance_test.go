package calc_test

import (
	"testing"

	"github.com/gonum/matrix/mat64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroscn/idscn/internal/calc"
)

func TestPValuesTwoSided(t *testing.T) {
	z := mat64.NewDense(2, 2, []float64{1, 1.96, 1.96, 1})
	p, fdr := calc.PValues(z)

	// 2·(1−Φ(1.96)) ≈ 0.05
	assert.InDelta(t, 0.05, p.At(0, 1), 1e-3)
	assert.Equal(t, p.At(0, 1), p.At(1, 0))

	rows, cols := fdr.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
}

func TestPValuesFDRNeverBelowRaw(t *testing.T) {
	z := mat64.NewDense(3, 3, []float64{
		1, 4.2, 0.3,
		4.2, 1, 2.1,
		0.3, 2.1, 1,
	})
	p, fdr := calc.PValues(z)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.GreaterOrEqual(t, fdr.At(i, j), p.At(i, j), "entry (%d,%d)", i, j)
			assert.LessOrEqual(t, fdr.At(i, j), 1.0)
		}
	}
}

func TestBenjaminiHochbergKnownValues(t *testing.T) {
	adj := calc.BenjaminiHochberg([]float64{0.01, 0.02, 0.03, 0.04})
	require.Len(t, adj, 4)
	// p(k)·m/k is 0.04 at every rank here, and the step-up keeps it.
	for _, v := range adj {
		assert.InDelta(t, 0.04, v, 1e-12)
	}
}

func TestBenjaminiHochbergOrderPreserved(t *testing.T) {
	ps := []float64{0.9, 0.001, 0.2, 0.04}
	adj := calc.BenjaminiHochberg(ps)

	// Smallest raw p keeps the smallest adjusted p, in the input's order.
	assert.Less(t, adj[1], adj[3])
	assert.Less(t, adj[3], adj[2])
	assert.LessOrEqual(t, adj[2], adj[0])
	for i := range ps {
		assert.GreaterOrEqual(t, adj[i], ps[i])
	}
}
