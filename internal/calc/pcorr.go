// Package calc implements the network computations: partial-correlation
// estimation, single-patient perturbation with its Z transform, normal and
// FDR significance, and the permutation group-difference test.
package calc

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/gonum/matrix"
	"github.com/gonum/matrix/mat64"
	"gonum.org/v1/gonum/stat"

	"github.com/neuroscn/idscn/internal/dataset"
)

// Engine runs the network computations. workers bounds the goroutine count
// of the Pearson stage and of the loops that fan out over whole networks.
type Engine struct {
	workers int
}

// New returns an Engine with the given worker count; workers <= 0 means NumCPU.
func New(workers int) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{workers: workers}
}

// Workers returns the engine's worker count.
func (e *Engine) Workers() int { return e.workers }

type statistic struct {
	avg float64
	std float64
}

// Network computes the region-by-region partial-correlation matrix of tbl
// controlling for every covariate. Each region is residualized against
// [intercept | covariates] by least squares, then residual rows are
// correlated pairwise; every unordered pair is computed once and mirrored,
// so r(i,j) == r(j,i) holds by construction. Diagonal is exactly 1.
func (e *Engine) Network(tbl *dataset.Table) (*mat64.Dense, error) {
	nObs := tbl.NRows()
	nCov := len(tbl.Covas)
	nReg := len(tbl.Regions)

	if nObs < nCov+3 {
		return nil, fmt.Errorf("%w: %d rows for %d covariates (need %d)",
			ErrInsufficientData, nObs, nCov, nCov+3)
	}
	if err := checkVariance(tbl); err != nil {
		return nil, err
	}

	resid, err := residualize(tbl)
	if err != nil {
		return nil, err
	}

	stats := make([]statistic, nReg)
	for i := 0; i < nReg; i++ {
		var accVal, accSqrVal float64
		for t := 0; t < nObs; t++ {
			v := resid.At(i, t)
			accVal += v
			accSqrVal += v * v
		}
		avg := accVal / float64(nObs)
		std := math.Sqrt(accSqrVal/float64(nObs) - avg*avg)
		if std < 1e-15 {
			return nil, fmt.Errorf("%w: region %q has no residual variance after covariate regression",
				ErrNumericalInstability, tbl.Regions[i])
		}
		stats[i] = statistic{avg: avg, std: std}
	}

	out := mat64.NewDense(nReg, nReg, nil)

	order := make(chan int, e.workers)
	var wg sync.WaitGroup
	wg.Add(nReg)
	for i := 0; i < e.workers; i++ {
		go pearsonRows(resid, out, stats, order, &wg)
	}
	for i := 0; i < nReg; i++ {
		order <- i
	}
	wg.Wait()
	close(order)

	return out, nil
}

// pearsonRows correlates residual row `from` against every row to >= from and
// mirrors the value, one worker among several draining the order channel.
func pearsonRows(resid, out *mat64.Dense, stats []statistic, order <-chan int, wg *sync.WaitGroup) {
	nReg, nObs := resid.Dims()

	for {
		from, ok := <-order
		if !ok {
			break
		}
		out.Set(from, from, 1.0)
		for to := from + 1; to < nReg; to++ {
			var accProd float64
			for t := 0; t < nObs; t++ {
				accProd += resid.At(from, t) * resid.At(to, t)
			}
			cov := (accProd / float64(nObs)) - (stats[from].avg * stats[to].avg)
			r := cov / (stats[from].std * stats[to].std)
			if r > 1 {
				r = 1
			} else if r < -1 {
				r = -1
			}
			out.Set(from, to, r)
			out.Set(to, from, r)
		}
		wg.Done()
	}
}

func checkVariance(tbl *dataset.Table) error {
	nObs := tbl.NRows()
	col := make([]float64, nObs)
	names := append(append([]string{}, tbl.Covas...), tbl.Regions...)
	for j, name := range names {
		for i := 0; i < nObs; i++ {
			col[i] = tbl.Data.At(i, j)
		}
		if stat.Variance(col, nil) == 0 {
			return fmt.Errorf("%w: %q has zero variance", ErrConstantColumn, name)
		}
	}
	return nil
}

// residualize regresses every region column on [intercept | covariates] in a
// single least-squares solve and returns the residuals transposed to
// regions-by-observations, the orientation the Pearson stage consumes.
func residualize(tbl *dataset.Table) (*mat64.Dense, error) {
	nObs := tbl.NRows()
	nCov := len(tbl.Covas)
	nReg := len(tbl.Regions)

	x := mat64.NewDense(nObs, nCov+1, nil)
	y := mat64.NewDense(nObs, nReg, nil)
	for i := 0; i < nObs; i++ {
		x.Set(i, 0, 1.0)
		for j := 0; j < nCov; j++ {
			x.Set(i, j+1, tbl.Data.At(i, j))
		}
		for j := 0; j < nReg; j++ {
			y.Set(i, j, tbl.Data.At(i, tbl.RegionCol(j)))
		}
	}

	var beta mat64.Dense
	if err := beta.Solve(x, y); err != nil {
		if _, ok := err.(matrix.Condition); !ok {
			return nil, fmt.Errorf("%w: covariate regression failed: %v",
				ErrNumericalInstability, err)
		}
	}

	var fit mat64.Dense
	fit.Mul(x, &beta)

	resid := mat64.NewDense(nReg, nObs, nil)
	for i := 0; i < nObs; i++ {
		for j := 0; j < nReg; j++ {
			resid.Set(j, i, y.At(i, j)-fit.At(i, j))
		}
	}
	return resid, nil
}
