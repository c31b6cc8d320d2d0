package calc

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/gonum/matrix/mat64"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/neuroscn/idscn/internal/dataset"
)

// GroupResult carries the outcome of the permutation group-difference test.
// Null holds the nPerm permuted difference matrices in row-major
// [perm][i][j] order, kept for export and inspection.
type GroupResult struct {
	Z     *mat64.Dense
	FDRP  *mat64.Dense
	Null  []float64
	NPerm int
}

// NullAt returns the null sample for edge (i, j) across all permutations.
func (g *GroupResult) NullAt(i, j, nRegions int) []float64 {
	out := make([]float64, g.NPerm)
	for p := 0; p < g.NPerm; p++ {
		out[p] = g.Null[p*nRegions*nRegions+i*nRegions+j]
	}
	return out
}

// GroupDifference runs the SCN permutation test between two cohorts.
//
// The observed difference is |atanh(r_ctrl) − atanh(r_pati)| per edge. The
// null distribution is built by shuffling pooled row labels nPerm times,
// splitting at the original control size and recomputing both networks; the
// per-edge Z is (observed − null mean)/null std, and the empirical p is the
// continuity-corrected one-sided tail count (k+1)/(nPerm+1) in the direction
// of the real signed difference. FDR correction runs over the upper triangle
// only, mirrored, diagonal fixed at 1.
//
// All permutation index sequences are drawn up front from a rand.Rand seeded
// with seed, so the result is deterministic for a given seed regardless of
// how the worker pool schedules iterations. ctx is checked between
// iterations; mid-permutation state is discarded on cancellation.
func (e *Engine) GroupDifference(ctx context.Context, ctrl, pati *dataset.Table, nPerm int, seed int64) (*GroupResult, error) {
	if err := dataset.SameSchema(ctrl, pati); err != nil {
		return nil, err
	}
	if nPerm < 1 {
		return nil, fmt.Errorf("%w: permutation count %d", ErrInsufficientData, nPerm)
	}

	pcnCtrl, err := e.Network(ctrl)
	if err != nil {
		return nil, fmt.Errorf("control network: %w", err)
	}
	pcnPati, err := e.Network(pati)
	if err != nil {
		return nil, fmt.Errorf("patient network: %w", err)
	}

	n := len(ctrl.Regions)
	pooled, err := dataset.Concat(ctrl, pati)
	if err != nil {
		return nil, err
	}

	// Determinism: all shuffles come from one seeded source, in order,
	// before any worker runs.
	rng := rand.New(rand.NewSource(seed))
	perms := make([][]int, nPerm)
	for i := range perms {
		perms[i] = rng.Perm(pooled.NRows())
	}

	null := make([]float64, nPerm*n*n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := 0; i < nPerm; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			split := ctrl.NRows()
			permCtrl := pooled.Select(perms[i][:split])
			permPati := pooled.Select(perms[i][split:])
			pcnA, err := e.Network(permCtrl)
			if err != nil {
				return fmt.Errorf("permutation %d: %w", i, err)
			}
			pcnB, err := e.Network(permPati)
			if err != nil {
				return fmt.Errorf("permutation %d: %w", i, err)
			}
			slot := null[i*n*n : (i+1)*n*n]
			for r := 0; r < n; r++ {
				for c := 0; c < n; c++ {
					slot[r*n+c] = pcnB.At(r, c) - pcnA.At(r, c)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &GroupResult{Null: null, NPerm: nPerm}
	if res.Z, res.FDRP, err = summarize(pcnCtrl, pcnPati, null, nPerm); err != nil {
		return nil, err
	}
	return res, nil
}

// summarize turns the null tensor into a Z matrix and an FDR-corrected
// empirical p matrix for the true control-vs-patient difference.
func summarize(pcnCtrl, pcnPati *mat64.Dense, null []float64, nPerm int) (*mat64.Dense, *mat64.Dense, error) {
	n, _ := pcnCtrl.Dims()
	z := mat64.NewDense(n, n, nil)
	p := mat64.NewDense(n, n, nil)
	sample := make([]float64, nPerm)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			rc, rp := pcnCtrl.At(i, j), pcnPati.At(i, j)
			if math.Abs(rc) >= 1-1e-12 || math.Abs(rp) >= 1-1e-12 {
				return nil, nil, fmt.Errorf("%w: correlation at edge (%d,%d) is ±1, Fisher transform diverges",
					ErrNumericalInstability, i, j)
			}
			obs := math.Abs(math.Atanh(rc) - math.Atanh(rp))
			diff := rp - rc

			for k := 0; k < nPerm; k++ {
				sample[k] = null[k*n*n+i*n+j]
			}
			mean, std := stat.MeanStdDev(sample, nil)
			if std == 0 {
				return nil, nil, fmt.Errorf("%w: permutation null has zero spread at edge (%d,%d)",
					ErrNumericalInstability, i, j)
			}
			zv := (obs - mean) / std
			z.Set(i, j, zv)
			z.Set(j, i, zv)

			extreme := 0
			for k := 0; k < nPerm; k++ {
				if (diff > 0 && sample[k] > diff) || (diff <= 0 && sample[k] < diff) {
					extreme++
				}
			}
			pv := float64(extreme+1) / float64(nPerm+1)
			p.Set(i, j, pv)
			p.Set(j, i, pv)
		}
	}

	return z, fdrUpper(p), nil
}
