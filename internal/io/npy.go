package io

import (
	"fmt"

	"github.com/kshedden/gonpy"
)

// WriteNullTensor writes the permutation null distribution as a numpy npy
// file shaped (nPerm, nRegions, nRegions), readable from Python for
// downstream inspection of the null samples.
func WriteNullTensor(path string, null []float64, nPerm, nRegions int) error {
	if len(null) != nPerm*nRegions*nRegions {
		return fmt.Errorf("io: null tensor has %d values, expected %d*%d*%d",
			len(null), nPerm, nRegions, nRegions)
	}
	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return fmt.Errorf("io: create %s: %w", path, err)
	}
	w.Shape = []int{nPerm, nRegions, nRegions}
	w.Version = 2
	if err := w.WriteFloat64(null); err != nil {
		return fmt.Errorf("io: write %s: %w", path, err)
	}
	return nil
}
