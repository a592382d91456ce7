package osutil

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFreeBytes(t *testing.T) {
	dir := t.TempDir()

	free, err := FreeBytes(dir)
	require.NoError(t, err)
	require.Greater(t, free, uint64(0))

	require.NoError(t, EnsureFree(dir, 0))
	require.NoError(t, EnsureFree(dir, 1))
	require.ErrorContains(t, EnsureFree(dir, math.MaxUint64), "bytes free")

	_, err = FreeBytes(filepath.Join(dir, "does", "not", "exist"))
	require.Error(t, err)
}
