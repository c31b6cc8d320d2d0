// Package pipeline orchestrates the three analysis stages: the per-subject
// IDSCN run, the SCN permutation test and the subtype clustering over a
// finished IDSCN output directory.
package pipeline

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/neuroscn/idscn/internal/calc"
)

// ErrOutputConflict reports a pre-existing, non-empty output directory where
// a fresh run is required.
var ErrOutputConflict = errors.New("pipeline: output directory is not empty")

// Runner binds an engine and a logger for one analysis run.
type Runner struct {
	Engine *calc.Engine
	Log    *zap.Logger
}

// New returns a Runner; a nil logger becomes zap.NewNop().
func New(engine *calc.Engine, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{Engine: engine, Log: log}
}

// freshDir creates dir, failing with ErrOutputConflict when it already
// exists and holds anything.
func freshDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) > 0 {
		return fmt.Errorf("%w: %s", ErrOutputConflict, dir)
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pipeline: stat %s: %w", dir, err)
	}
	return os.MkdirAll(dir, 0o755)
}
