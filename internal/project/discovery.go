// File: internal/project/discovery.go
// Brief: Upward manifest lookup for root projects.

package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ProjectNotFoundError reports a start path with no ancestor directory holding the manifest.
type ProjectNotFoundError struct {
	Path     string
	Filename string
}

func (e *ProjectNotFoundError) Error() string {
	return fmt.Sprintf("could not find %q for %q", e.Filename, e.Path)
}

// FindAncestorWith returns the absolute path of the nearest directory, starting at begin and
// moving through its parents, that contains filename.
func FindAncestorWith(filename, begin string) (string, error) {
	if strings.TrimSpace(begin) == "" {
		begin = "."
	}
	expanded, err := homedir.Expand(begin)
	if err != nil {
		return "", err
	}
	current, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(current, filename)); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", &ProjectNotFoundError{Path: begin, Filename: filename}
		}
		current = parent
	}
}

// ResolveRoots resolves each start path to its project root. Unresolvable paths are reported
// individually and left out of the returned roots. An empty input resolves the working
// directory.
func ResolveRoots(paths []string, filename string) ([]string, []error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	var roots []string
	var errs []error
	for _, p := range paths {
		dir, err := FindAncestorWith(filename, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		roots = append(roots, dir)
	}
	return roots, errs
}

// canonicalPath is the node identity: absolute, cleaned, symlinks resolved when possible.
func canonicalPath(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}
