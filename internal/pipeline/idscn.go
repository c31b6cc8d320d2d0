package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gonum/matrix/mat64"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neuroscn/idscn/internal/calc"
	"github.com/neuroscn/idscn/internal/dataset"
	"github.com/neuroscn/idscn/internal/io"
)

// IDSCN computes the baseline control network and, per patient, the
// perturbed network with its Z, P and FDR-P matrices, persisting the full
// per-subject output layout under outDir. Patients are independent of each
// other and run in parallel with results collected into per-index slots;
// any failing subject aborts the run with its identifier.
func (r *Runner) IDSCN(ctx context.Context, ctrl, pati *dataset.Table, outDir string) error {
	start := time.Now()
	if err := dataset.SameSchema(ctrl, pati); err != nil {
		return err
	}
	if err := freshDir(outDir); err != nil {
		return err
	}

	r.Log.Info("computing baseline control network",
		zap.Int("controls", ctrl.NRows()),
		zap.Int("patients", pati.NRows()),
		zap.Int("regions", len(ctrl.Regions)))

	base, err := r.Engine.Network(ctrl)
	if err != nil {
		return fmt.Errorf("baseline network: %w", err)
	}
	if err := io.WriteLabeledMatrix(filepath.Join(outDir, "PCCn.csv"), ctrl.Regions, base); err != nil {
		return err
	}
	if err := io.WriteNames(filepath.Join(outDir, "covas.txt"), ctrl.Covas); err != nil {
		return err
	}
	if err := io.WriteNames(filepath.Join(outDir, "regions.txt"), ctrl.Regions); err != nil {
		return err
	}

	nCtrl := ctrl.NRows()
	counts := make([]int, pati.NRows())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Engine.Workers())
	for i := 0; i < pati.NRows(); i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row := pati.Row(i)
			n, err := r.subject(ctrl, base, row, nCtrl, outDir)
			if err != nil {
				return err
			}
			counts[i] = n
			r.Log.Info("subject done", zap.String("subject", row.Subject), zap.Int("significant", n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := io.WriteCountTable(filepath.Join(outDir, "count_significant.csv"), pati.Subjects, counts); err != nil {
		return err
	}
	r.Log.Info("IDSCN run complete",
		zap.Int("subjects", pati.NRows()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// subject runs the perturbation pipeline for one patient and writes the
// subject's output directory. Returns the FDR-significant edge count.
func (r *Runner) subject(ctrl *dataset.Table, base *mat64.Dense, row dataset.Row, nCtrl int, outDir string) (int, error) {
	perturbed, err := r.Engine.Perturbed(ctrl, row)
	if err != nil {
		return 0, err
	}
	delta := calc.Differential(base, perturbed)
	z, err := calc.ZScore(base, delta, nCtrl)
	if err != nil {
		return 0, fmt.Errorf("subject %s: %w", row.Subject, err)
	}
	p, fdr := calc.PValues(z)

	dir := filepath.Join(outDir, row.Subject)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("subject %s: %w", row.Subject, err)
	}
	for name, m := range map[string]*mat64.Dense{
		row.Subject + "_PCCn+1.csv": perturbed,
		row.Subject + "_Z.csv":      z,
		row.Subject + "_P.csv":      p,
		row.Subject + "_P_FDR.csv":  fdr,
	} {
		if err := io.WriteLabeledMatrix(filepath.Join(dir, name), ctrl.Regions, m); err != nil {
			return 0, fmt.Errorf("subject %s: %w", row.Subject, err)
		}
	}

	n := 0
	rows, _ := fdr.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < rows; j++ {
			if fdr.At(i, j) < 0.05 {
				n++
			}
		}
	}
	return n, nil
}
