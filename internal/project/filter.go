package project

import (
	"os"
	"path/filepath"
	"strings"
)

// Filter holds the project-name predicates applied while building. Ignore wins over skip when a
// name appears in both.
type Filter struct {
	IgnoreNames map[string]struct{}
	SkipNames   map[string]struct{}
}

func NewFilter(ignore, skip []string) Filter {
	return Filter{IgnoreNames: nameSet(ignore), SkipNames: nameSet(skip)}
}

func nameSet(names []string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out[n] = struct{}{}
	}
	return out
}

func (f Filter) Ignored(name string) bool {
	_, ok := f.IgnoreNames[name]
	return ok
}

func (f Filter) Skipped(name string) bool {
	if f.Ignored(name) {
		return false
	}
	_, ok := f.SkipNames[name]
	return ok
}

// FormatTemplate substitutes {name} and {abs} for p.
func FormatTemplate(s string, p *Project) string {
	return strings.NewReplacer("{name}", p.Name, "{abs}", p.Path).Replace(s)
}

// RequireFiles reports whether every entry exists as a file or directory. Entries are formatted
// with FormatTemplate and taken relative to the project directory unless absolute. missing is
// the first path that does not exist.
func RequireFiles(p *Project, files []string) (ok bool, missing string) {
	for _, f := range files {
		path := FormatTemplate(f, p)
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.Path, path)
		}
		if _, err := os.Stat(path); err != nil {
			return false, path
		}
	}
	return true, ""
}
