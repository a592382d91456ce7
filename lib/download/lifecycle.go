package download

import (
	"fmt"
	"os"
	"path/filepath"
)

// Rename moves the artifact to <dir>/<name><ext>, keeping its extension,
// and returns the moved artifact. An existing file at the target is replaced.
func Rename(artifact Artifact, dir, name string) (Artifact, error) {
	target := filepath.Join(dir, name+filepath.Ext(artifact.Path))
	if target == artifact.Path {
		return artifact, nil
	}

	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return Artifact{}, fmt.Errorf("create %s: %w", dir, err)
	}
	err = os.Rename(artifact.Path, target)
	if err != nil {
		return Artifact{}, fmt.Errorf("rename artifact: %w", err)
	}

	moved, ok, err := stat(target)
	if err != nil {
		return Artifact{}, err
	}
	if !ok {
		return Artifact{}, fmt.Errorf("renamed artifact %s disappeared", target)
	}
	return moved, nil
}

// Discard deletes the artifact, it is not an error if it is already gone.
func Discard(artifact Artifact) error {
	err := os.Remove(artifact.Path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}
