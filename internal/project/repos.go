package project

import (
	"fmt"
	"path/filepath"
)

type repoKey struct {
	path    string
	ignored bool
}

type repoPair struct {
	parent string
	dep    *Project
}

// ObtainRepos maps the project graph rooted at roots onto the repositories (ancestor
// directories holding .git) that contain each project. Repositories are named by their path.
func ObtainRepos(roots []*Project) ([]*Project, error) {
	repos := map[repoKey]*Project{}
	visited := map[repoPair]struct{}{}

	repoOf := func(p *Project) (*Project, error) {
		dir, err := FindAncestorWith(".git", p.Path)
		if err != nil {
			return nil, fmt.Errorf("project %s is not inside a repository: %w", p.Path, err)
		}
		dir = filepath.Clean(dir)
		key := repoKey{path: dir, ignored: p.Ignore}
		if r, ok := repos[key]; ok {
			return r, nil
		}
		r := &Project{Name: dir, Path: dir, Ignore: p.Ignore, Skip: p.Skip}
		repos[key] = r
		return r, nil
	}

	var convert func(deps []*Project, list *[]*Project, parent string, owner *Project) error
	convert = func(deps []*Project, list *[]*Project, parent string, owner *Project) error {
		for _, dep := range deps {
			pair := repoPair{parent: parent, dep: dep}
			if _, ok := visited[pair]; ok {
				continue
			}
			visited[pair] = struct{}{}
			repo, err := repoOf(dep)
			if err != nil {
				return err
			}
			if err := convert(dep.displayChildren(), &repo.includes, dep.Path, repo); err != nil {
				return err
			}
			if repo == owner || containsProject(*list, repo) {
				continue
			}
			*list = append(*list, repo)
		}
		*list = applyRepoPrecedence(*list)
		return nil
	}

	var out []*Project
	if err := convert(roots, &out, "", nil); err != nil {
		return nil, err
	}
	for _, r := range repos {
		r.Dependencies, r.Ignored = nil, nil
		for _, c := range r.includes {
			if c.Ignore {
				r.Ignored = append(r.Ignored, c)
			} else {
				r.Dependencies = append(r.Dependencies, c)
			}
		}
	}
	return out, nil
}

// applyRepoPrecedence keeps a single entry per repository in list: a normal entry wins over a
// skipped one, and a skipped entry wins over an ignored one.
func applyRepoPrecedence(list []*Project) []*Project {
	best := map[string]*Project{}
	rank := func(p *Project) int {
		switch {
		case !p.Ignore && !p.Skip:
			return 2
		case p.Skip && !p.Ignore:
			return 1
		default:
			return 0
		}
	}
	for _, r := range list {
		cur, ok := best[r.Path]
		if !ok || rank(r) > rank(cur) {
			best[r.Path] = r
		}
	}
	out := list[:0]
	for _, r := range list {
		if best[r.Path] == r {
			out = append(out, r)
		}
	}
	return out
}

func containsProject(list []*Project, p *Project) bool {
	for _, x := range list {
		if x == p {
			return true
		}
	}
	return false
}
