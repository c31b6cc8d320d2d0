// Command subtype clusters patients over the top significant edges of a
// finished IDSCN output directory, writing cluster_result.csv and the
// sig_<N>.csv edge export back into it. The edge count is an explicit flag,
// not a prompt.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/neuroscn/idscn/internal/calc"
	"github.com/neuroscn/idscn/internal/pipeline"
)

func main() {
	inDir := flag.String("in", "", "IDSCN output directory")
	edges := flag.Int("edges", 0, "target count of top edges to cluster on")
	seed := flag.Int64("seed", 0, "random seed, 0 = time-based")
	verbose := flag.Bool("v", false, "development logging")
	flag.Parse()

	if *inDir == "" || *edges < 1 {
		flag.Usage()
		os.Exit(2)
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	logger := buildLogger(*verbose)
	defer logger.Sync()

	r := pipeline.New(calc.New(0), logger)
	res, err := r.Subtype(*inDir, *edges, *seed)
	if err != nil {
		log.Fatalf("[subtype] run failed: %v", err)
	}
	logger.Info("result",
		zap.Int("clusters", res.K),
		zap.Int("edges", res.EdgeCount),
		zap.Float64("silhouette", res.Silhouette))
}

func buildLogger(verbose bool) *zap.Logger {
	if verbose {
		l, _ := zap.NewDevelopment()
		return l
	}
	l, _ := zap.NewProduction()
	return l
}
