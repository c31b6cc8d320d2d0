package pipeline

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/gonum/matrix/mat64"
	"go.uber.org/zap"

	"github.com/neuroscn/idscn/internal/cluster"
	"github.com/neuroscn/idscn/internal/io"
)

// SubtypeResult summarizes one clustering run.
type SubtypeResult struct {
	K          int
	EdgeCount  int
	Silhouette float64
	Clusters   [][]string
}

// Subtype aggregates the per-subject matrices persisted by a finished IDSCN
// run under inDir, selects the top targetEdges edges by significance count,
// clusters the patients over them and writes cluster_result.csv and
// sig_<N>.csv back into inDir. The caller supplies the target edge count;
// seed drives the k-means restarts.
func (r *Runner) Subtype(inDir string, targetEdges int, seed int64) (*SubtypeResult, error) {
	regions, err := io.ReadNames(filepath.Join(inDir, "regions.txt"))
	if err != nil {
		return nil, err
	}

	subjects, err := subjectDirs(inDir)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, fmt.Errorf("%w: no subject directories under %s", cluster.ErrDegenerateCluster, inDir)
	}

	zs := make([]*mat64.Dense, len(subjects))
	perturbed := make([]*mat64.Dense, len(subjects))
	for i, sub := range subjects {
		if _, zs[i], err = io.ReadLabeledMatrix(filepath.Join(inDir, sub, sub+"_Z.csv")); err != nil {
			return nil, err
		}
		if _, perturbed[i], err = io.ReadLabeledMatrix(filepath.Join(inDir, sub, sub+"_PCCn+1.csv")); err != nil {
			return nil, err
		}
	}

	_, groups, err := cluster.Aggregate(zs)
	if err != nil {
		return nil, err
	}
	edges, err := cluster.SelectTop(groups, targetEdges)
	if err != nil {
		return nil, err
	}
	r.Log.Info("edges selected",
		zap.Int("target", targetEdges),
		zap.Int("selected", len(edges)))

	feat := cluster.Features(perturbed, edges)
	k, labels, score, err := cluster.Subtype(feat, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}

	clusters := make([][]string, k)
	for i, sub := range subjects {
		clusters[labels[i]] = append(clusters[labels[i]], sub)
	}

	res := &SubtypeResult{K: k, EdgeCount: len(edges), Silhouette: score, Clusters: clusters}
	if err := io.WriteClusterResult(filepath.Join(inDir, "cluster_result.csv"), clusters, len(edges), score); err != nil {
		return nil, err
	}

	edgeNames := make([]string, len(edges))
	zAtEdges := make([][]float64, len(subjects))
	for j, e := range edges {
		edgeNames[j] = regions[e.I] + "--" + regions[e.J]
	}
	for i := range subjects {
		zAtEdges[i] = make([]float64, len(edges))
		for j, e := range edges {
			zAtEdges[i][j] = zs[i].At(e.I, e.J)
		}
	}
	sigPath := filepath.Join(inDir, fmt.Sprintf("sig_%d.csv", len(edges)))
	if err := io.WriteSigExport(sigPath, edgeNames, subjects, zAtEdges); err != nil {
		return nil, err
	}

	r.Log.Info("subtype run complete",
		zap.Int("k", k),
		zap.Float64("silhouette", score))
	return res, nil
}

// subjectDirs lists the per-subject output directories of an IDSCN run,
// sorted for stable ordering.
func subjectDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read %s: %w", dir, err)
	}
	var subs []string
	for _, e := range entries {
		if e.IsDir() {
			subs = append(subs, e.Name())
		}
	}
	sort.Strings(subs)
	return subs, nil
}
