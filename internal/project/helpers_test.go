package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/deps/internal/manifest"
	"github.com/go-logr/logr"
)

func writeFile(t *testing.T, path string, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// writeWorkspace creates one sibling directory per project under ws, each with a manifest
// including its listed dependencies through the {{ root }} convention.
func writeWorkspace(t *testing.T, ws string, projects map[string][]string) {
	t.Helper()
	for name, deps := range projects {
		var b strings.Builder
		fmt.Fprintf(&b, "name: %s\n", name)
		if len(deps) > 0 {
			b.WriteString("includes:\n")
			for _, d := range deps {
				fmt.Fprintf(&b, "  - \"{{ root }}/../%s/%s\"\n", d, manifest.DefaultFileName)
			}
		}
		writeFile(t, filepath.Join(ws, name, manifest.DefaultFileName), b.String())
	}
}

func build(t *testing.T, ws string, filter Filter, roots ...string) ([]*Project, *Builder) {
	t.Helper()
	b := NewBuilder(manifest.NewLoader(""), filter, logr.Discard())
	var dirs []string
	for _, r := range roots {
		dirs = append(dirs, filepath.Join(ws, r))
	}
	out, errs := b.Build(dirs)
	if len(errs) > 0 {
		t.Fatalf("build errors: %v", errs)
	}
	return out, b
}

func names(list []*Project) string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.Name)
	}
	return strings.Join(out, ",")
}

func diamond() map[string][]string {
	return map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
		"D": nil,
	}
}

// Lookup returns the node built for dir, if any.
func (b *Builder) Lookup(dir string) (*Project, bool) {
	p, ok := b.arena[canonicalPath(dir)]
	return p, ok
}

// TransitiveDependencies returns all distinct projects reachable from p (p excluded), in
// depth-first discovery order.
func TransitiveDependencies(p *Project) []*Project {
	seen := map[string]struct{}{p.Path: {}}
	var out []*Project
	var walk func(*Project)
	walk = func(cur *Project) {
		for _, dep := range cur.Dependencies {
			if _, ok := seen[dep.Path]; ok {
				continue
			}
			seen[dep.Path] = struct{}{}
			out = append(out, dep)
			walk(dep)
		}
	}
	walk(p)
	return out
}
