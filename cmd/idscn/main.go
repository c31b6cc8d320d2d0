// Command idscn runs the per-subject IDSCN pipeline: baseline control
// network, one perturbed network per patient with Z/P/FDR-P matrices, and
// the significance count table, all persisted under -out.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/neuroscn/idscn/internal/calc"
	"github.com/neuroscn/idscn/internal/dataset"
	nio "github.com/neuroscn/idscn/internal/io"
	"github.com/neuroscn/idscn/internal/pipeline"
)

func main() {
	inDir := flag.String("in", "", "directory holding controls.csv and patients.csv")
	outDir := flag.String("out", "", "output directory (must be empty or absent)")
	covas := flag.String("covas", "", "covariate column names: comma list or path to a name file")
	regions := flag.String("regions", "", "region column names: comma list or path to a name file")
	workers := flag.Int("workers", 0, "worker count, 0 = all cores")
	verbose := flag.Bool("v", false, "development logging")
	flag.Parse()

	if *inDir == "" || *outDir == "" || *covas == "" || *regions == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := buildLogger(*verbose)
	defer logger.Sync()

	covaNames, err := nameList(*covas)
	if err != nil {
		log.Fatalf("[idscn] covariate names: %v", err)
	}
	regionNames, err := nameList(*regions)
	if err != nil {
		log.Fatalf("[idscn] region names: %v", err)
	}

	ctrl, err := dataset.ReadCohort(filepath.Join(*inDir, "controls.csv"), covaNames, regionNames)
	if err != nil {
		log.Fatalf("[idscn] controls: %v", err)
	}
	pati, err := dataset.ReadCohort(filepath.Join(*inDir, "patients.csv"), covaNames, regionNames)
	if err != nil {
		log.Fatalf("[idscn] patients: %v", err)
	}

	r := pipeline.New(calc.New(*workers), logger)
	if err := r.IDSCN(context.Background(), ctrl, pati, *outDir); err != nil {
		log.Fatalf("[idscn] run failed: %v", err)
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

// nameList accepts either a path to a newline-delimited name file or a
// comma-separated list.
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
