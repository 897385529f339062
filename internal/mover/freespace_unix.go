//go:build unix

package mover

import (
	"fmt"

	"golang.org/x/sys/unix"

	"blackbird/internal/dataset"
)

// checkFreeSpace refuses a move whose total size exceeds the free space on
// the target location's filesystem.
func checkFreeSpace(ds *dataset.Dataset, target string, needed int64) error {
	root, err := ds.Registry.Root(target)
	if err != nil {
		return err
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(root, &stat); err != nil {
		// Exotic filesystems may not answer; the move itself will surface
		// ENOSPC per file.
		return nil
	}
	available := int64(stat.Bavail) * int64(stat.Bsize)
	if needed > available {
		return fmt.Errorf("%w: need %d bytes on %s but only %d available",
			ErrBadRequest, needed, target, available)
	}
	return nil
}
