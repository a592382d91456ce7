package osutil

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"
)

// FreeBytes returns the bytes available on the filesystem holding path.
func FreeBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("disk usage of %s: %w", path, err)
	}
	return usage.Free, nil
}

// EnsureFree returns an error if the filesystem holding path has less than min bytes free.
// A min of zero skips the check.
func EnsureFree(path string, min uint64) error {
	if min == 0 {
		return nil
	}
	free, err := FreeBytes(path)
	if err != nil {
		return err
	}
	if free < min {
		return fmt.Errorf("only %d bytes free on %s, need at least %d", free, path, min)
	}
	return nil
}
