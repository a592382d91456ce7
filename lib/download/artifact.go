// Package download waits for report exports to appear on disk and decides
// whether what appeared is worth normalizing.
package download

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Artifact is a file produced by an external report generation action.
type Artifact struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Name is the base name of the artifact without its extension.
func (a Artifact) Name() string {
	base := filepath.Base(a.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Age is how long before now the artifact was last modified.
func (a Artifact) Age(now time.Time) time.Duration {
	return now.Sub(a.ModTime)
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

func stat(path string) (Artifact, bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return Artifact{}, false, nil
	}
	if err != nil {
		return Artifact{}, false, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Artifact{}, false, nil
	}
	return Artifact{Path: path, ModTime: info.ModTime(), Size: info.Size()}, true, nil
}

// Lookup returns the artifact matching pattern. When pattern is a glob the
// match with the newest modification time wins, ties go to the name that
// sorts first.
func Lookup(pattern string) (Artifact, bool, error) {
	if !isGlob(pattern) {
		return stat(pattern)
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return Artifact{}, false, fmt.Errorf("glob %s: %w", pattern, err)
	}

	var newest Artifact
	found := false
	for _, match := range matches {
		artifact, ok, err := stat(match)
		if err != nil {
			return Artifact{}, false, err
		}
		if !ok {
			continue
		}
		if !found || artifact.ModTime.After(newest.ModTime) {
			newest = artifact
			found = true
		}
	}
	return newest, found, nil
}
