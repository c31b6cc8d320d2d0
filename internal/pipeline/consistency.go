package pipeline

import (
	"fmt"
	"math"
	"path/filepath"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/neuroscn/idscn/internal/dataset"
	"github.com/neuroscn/idscn/internal/io"
)

// Consistency correlates the normalized group-level network difference
// (PCN_pati − PCN_ctrl)/(PCN_pati + PCN_ctrl) with the mean per-subject Z
// matrix read back from a finished IDSCN run under inDir. A high
// correlation indicates the individual perturbation networks agree with the
// direct cohort contrast. Returns the Pearson correlation and a two-sided
// Fisher-transform p-value.
func (r *Runner) Consistency(ctrl, pati *dataset.Table, inDir string) (corr, p float64, err error) {
	pcnCtrl, err := r.Engine.Network(ctrl)
	if err != nil {
		return 0, 0, fmt.Errorf("control network: %w", err)
	}
	pcnPati, err := r.Engine.Network(pati)
	if err != nil {
		return 0, 0, fmt.Errorf("patient network: %w", err)
	}

	subjects, err := subjectDirs(inDir)
	if err != nil {
		return 0, 0, err
	}
	if len(subjects) == 0 {
		return 0, 0, fmt.Errorf("pipeline: no subject directories under %s", inDir)
	}

	n := len(ctrl.Regions)
	meanZ := make([]float64, n*n)
	for _, sub := range subjects {
		_, z, err := io.ReadLabeledMatrix(filepath.Join(inDir, sub, sub+"_Z.csv"))
		if err != nil {
			return 0, 0, err
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				meanZ[i*n+j] += z.At(i, j)
			}
		}
	}
	for i := range meanZ {
		meanZ[i] /= float64(len(subjects))
	}

	groupDiff := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			num := pcnPati.At(i, j) - pcnCtrl.At(i, j)
			den := pcnPati.At(i, j) + pcnCtrl.At(i, j)
			if math.Abs(den) < 1e-12 {
				continue // opposing correlations cancel; leave the cell at 0
			}
			groupDiff[i*n+j] = num / den
		}
	}

	corr = stat.Correlation(groupDiff, meanZ, nil)
	if m := float64(len(groupDiff)); m > 3 && math.Abs(corr) < 1 {
		p = 2.0 * distuv.UnitNormal.Survival(math.Abs(math.Atanh(corr))*math.Sqrt(m-3))
	}

	r.Log.Info("consistency between group and mean individual difference",
		zap.Float64("pearson", corr),
		zap.Float64("p", p))
	return corr, p, nil
}
