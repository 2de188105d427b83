// File: internal/project/build.go
// Brief: Graph Builder: memoized depth-first traversal of include relations.

package project

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/example/deps/internal/manifest"
	"github.com/go-logr/logr"
)

// Loader returns the include relations declared by the manifest file in dir.
type Loader interface {
	Load(dir, file string) ([]manifest.Include, error)
}

// Builder builds one graph per invocation. Nodes are owned by its arena, keyed by canonical
// path, so projects shared between roots are built once.
type Builder struct {
	loader Loader
	filter Filter
	log    logr.Logger

	arena map[string]*Project
	state map[string]visitState
	errs  map[string]error
}

func NewBuilder(loader Loader, filter Filter, log logr.Logger) *Builder {
	return &Builder{
		loader: loader,
		filter: filter,
		log:    log,
		arena:  map[string]*Project{},
		state:  map[string]visitState{},
		errs:   map[string]error{},
	}
}

// Build returns one Project per root directory, in input order. A root that fails (missing
// manifest, or a malformed manifest anywhere below it) is left out and reported in errs; the
// other roots are still built.
func (b *Builder) Build(rootDirs []string) ([]*Project, []error) {
	var roots []*Project
	var errs []error
	seen := map[*Project]struct{}{}
	for _, dir := range rootDirs {
		p, err := b.visit(manifest.Include{Dir: dir}, true)
		if err != nil {
			errs = append(errs, fmt.Errorf("project %s: %w", dir, err))
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		roots = append(roots, p)
	}
	return roots, errs
}

// Len reports how many distinct projects were visited, ignored ones included.
func (b *Builder) Len() int { return len(b.arena) }

func (b *Builder) visit(inc manifest.Include, isRoot bool) (*Project, error) {
	path := canonicalPath(inc.Dir)
	switch b.state[path] {
	case gray, black:
		// A gray revisit is an include cycle: hand back the partial node.
		return b.arena[path], nil
	case broken:
		return nil, b.errs[path]
	}

	name := filepath.Base(path)
	p := &Project{Name: name, Path: path}
	b.arena[path] = p
	if b.filter.Ignored(name) {
		p.Ignore = true
		b.state[path] = black
		b.log.V(1).Info("ignoring project", "name", name, "path", path)
		return p, nil
	}
	p.Skip = b.filter.Skipped(name)
	b.state[path] = gray

	includes, err := b.loader.Load(path, inc.File)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist) && isRoot:
			file := inc.File
			var pathErr *fs.PathError
			if errors.As(err, &pathErr) {
				file = filepath.Base(pathErr.Path)
			}
			return nil, b.fail(path, &ProjectNotFoundError{Path: path, Filename: file})
		case errors.Is(err, fs.ErrNotExist):
			b.log.V(1).Info("dependency has no manifest, treating as leaf", "path", path)
			includes = nil
		default:
			return nil, b.fail(path, err)
		}
	}

	b.log.V(1).Info("visiting project", "name", name, "path", path, "includes", len(includes))
	edges := map[*Project]struct{}{}
	for _, child := range includes {
		dep, err := b.visit(child, false)
		if err != nil {
			return nil, b.fail(path, err)
		}
		if _, dup := edges[dep]; dup || dep == p {
			continue
		}
		edges[dep] = struct{}{}
		p.includes = append(p.includes, dep)
		if dep.Ignore {
			p.Ignored = append(p.Ignored, dep)
			continue
		}
		p.Dependencies = append(p.Dependencies, dep)
	}
	b.state[path] = black
	return p, nil
}

func (b *Builder) fail(path string, err error) error {
	b.state[path] = broken
	b.errs[path] = err
	return err
}
