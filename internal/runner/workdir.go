package runner

import (
	"os"
	"strings"
)

// WorkDirEnv names the variable carrying the staging directory to every command.
const WorkDirEnv = "DEPS_WORK_DIR"

type WorkDir struct {
	Path string
}

// NewWorkDir creates a fresh staging directory under base, or under the system temp directory
// when base is empty.
func NewWorkDir(base string) (*WorkDir, error) {
	dir, err := os.MkdirTemp(strings.TrimSpace(base), "deps-")
	if err != nil {
		return nil, err
	}
	return &WorkDir{Path: dir}, nil
}

// Env returns the environment entry exposing the directory.
func (w *WorkDir) Env() []string {
	return []string{WorkDirEnv + "=" + w.Path}
}

// Cleanup removes the directory and everything in it. Errors are ignored.
func (w *WorkDir) Cleanup() {
	if w == nil || w.Path == "" {
		return
	}
	_ = os.RemoveAll(w.Path)
}
