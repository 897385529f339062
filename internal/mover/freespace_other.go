//go:build !unix

package mover

import "blackbird/internal/dataset"

func checkFreeSpace(ds *dataset.Dataset, target string, needed int64) error {
	return nil
}
