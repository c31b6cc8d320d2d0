// Command scn runs the permutation group-difference test between the two
// cohorts and persists SCN_Z.csv, SCN_P_FDR.csv and the raw permutation
// null tensor. Interruptible between permutations via SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/neuroscn/idscn/internal/calc"
	"github.com/neuroscn/idscn/internal/dataset"
	nio "github.com/neuroscn/idscn/internal/io"
	"github.com/neuroscn/idscn/internal/pipeline"
)

func main() {
	inDir := flag.String("in", "", "directory holding controls.csv and patients.csv")
	outDir := flag.String("out", "", "output directory")
	covas := flag.String("covas", "", "covariate column names: comma list or path to a name file")
	regions := flag.String("regions", "", "region column names: comma list or path to a name file")
	nPerm := flag.Int("perm", 1000, "permutation count")
	seed := flag.Int64("seed", 0, "random seed, 0 = time-based")
	workers := flag.Int("workers", 0, "worker count, 0 = all cores")
	verbose := flag.Bool("v", false, "development logging")
	flag.Parse()

	if *inDir == "" || *outDir == "" || *covas == "" || *regions == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	logger := buildLogger(*verbose)
	defer logger.Sync()

	covaNames, err := nameList(*covas)
	if err != nil {
		log.Fatalf("[scn] covariate names: %v", err)
	}
	regionNames, err := nameList(*regions)
	if err != nil {
		log.Fatalf("[scn] region names: %v", err)
	}

	ctrl, err := dataset.ReadCohort(filepath.Join(*inDir, "controls.csv"), covaNames, regionNames)
	if err != nil {
		log.Fatalf("[scn] controls: %v", err)
	}
	pati, err := dataset.ReadCohort(filepath.Join(*inDir, "patients.csv"), covaNames, regionNames)
	if err != nil {
		log.Fatalf("[scn] patients: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := pipeline.New(calc.New(*workers), logger)
	if err := r.SCN(ctx, ctrl, pati, *outDir, *nPerm, *seed); err != nil {
		log.Fatalf("[scn] run failed: %v", err)
	}
}

func buildLogger(verbose bool) *zap.Logger {
	if verbose {
		l, _ := zap.NewDevelopment()
		return l
	}
	l, _ := zap.NewProduction()
	return l
}

func nameList(arg string) ([]string, error) {
	if fi, err := os.Stat(arg); err == nil && !fi.IsDir() {
		return nio.ReadNames(arg)
	}
	parts := strings.Split(arg, ",")
	names := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names, nil
}
