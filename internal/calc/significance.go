package calc

import (
	"math"
	"sort"

	"github.com/gonum/matrix/mat64"
	"gonum.org/v1/gonum/stat/distuv"
)

// PValues converts a Z matrix into two-sided standard-normal p-values and
// their Benjamini–Hochberg correction. The correction runs across the FULL
// flattened matrix, diagonal included: every edge is counted twice and the
// diagonal contributes its own entries, which dilutes the correction
// relative to an upper-triangle-only scheme. This is the per-subject
// convention of the reference tool and keeps significance counts comparable
// with it; the permutation test uses the upper-triangle scheme instead
// (see GroupDifference).
func PValues(z *mat64.Dense) (p, fdr *mat64.Dense) {
	n, _ := z.Dims()
	flat := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			flat[i*n+j] = 2.0 * distuv.UnitNormal.Survival(math.Abs(z.At(i, j)))
		}
	}
	adj := BenjaminiHochberg(flat)

	p = mat64.NewDense(n, n, flat)
	fdr = mat64.NewDense(n, n, adj)
	return p, fdr
}

// BenjaminiHochberg returns step-up FDR-adjusted p-values for ps, in the
// original order. Adjusted values are elementwise >= the raw values and
// capped at 1.
func BenjaminiHochberg(ps []float64) []float64 {
	m := len(ps)
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return ps[order[a]] < ps[order[b]] })

	adj := make([]float64, m)
	minSoFar := 1.0
	for k := m - 1; k >= 0; k-- {
		idx := order[k]
		v := ps[idx] * float64(m) / float64(k+1)
		if v < minSoFar {
			minSoFar = v
		}
		adj[idx] = minSoFar
	}
	return adj
}

// fdrUpper applies Benjamini–Hochberg to the strict upper triangle of p,
// mirrors the adjusted values to the lower triangle and fixes the diagonal
// at 1. The SCN convention: each edge enters the correction exactly once.
func fdrUpper(p *mat64.Dense) *mat64.Dense {
	n, _ := p.Dims()
	upper := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			upper = append(upper, p.At(i, j))
		}
	}
	adj := BenjaminiHochberg(upper)

	out := mat64.NewDense(n, n, nil)
	k := 0
	for i := 0; i < n; i++ {
		out.Set(i, i, 1.0)
		for j := i + 1; j < n; j++ {
			out.Set(i, j, adj[k])
			out.Set(j, i, adj[k])
			k++
		}
	}
	return out
}
