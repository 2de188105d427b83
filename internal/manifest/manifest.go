// File: internal/manifest/manifest.go
// Brief: Manifest loading: template rendering and "includes" extraction.

// Package manifest reads per-project manifest files and returns the include relations they
// declare. Everything in a manifest other than the "includes" entry is opaque here.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the manifest looked up in each project directory.
const DefaultFileName = "environment.devenv.yml"

// Include is one resolved include relation: the dependency project directory and the manifest
// file name to read inside it.
type Include struct {
	Dir  string
	File string
}

// MalformedManifestError reports a manifest that could not be rendered or decoded.
type MalformedManifestError struct {
	Path string
	Err  error
}

func (e *MalformedManifestError) Error() string {
	return fmt.Sprintf("malformed manifest %s: %v", e.Path, e.Err)
}

func (e *MalformedManifestError) Unwrap() error { return e.Err }

// Loader loads include lists. DefaultFile is used for includes that name a directory and when
// Load is called without a file name.
type Loader struct {
	DefaultFile string
	Getenv      func(string) string
}

func NewLoader(defaultFile string) *Loader {
	if strings.TrimSpace(defaultFile) == "" {
		defaultFile = DefaultFileName
	}
	return &Loader{DefaultFile: defaultFile, Getenv: os.Getenv}
}

type document struct {
	Includes yaml.Node `yaml:"includes"`
}

// Load returns the includes declared by dir/file in declaration order. A missing file returns an
// error wrapping fs.ErrNotExist; an absent or null includes entry yields no includes.
func (l *Loader) Load(dir, file string) ([]Include, error) {
	if file == "" {
		file = l.DefaultFile
	}
	path := filepath.Join(dir, file)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rendered, err := l.render(path, dir, raw)
	if err != nil {
		return nil, &MalformedManifestError{Path: path, Err: err}
	}
	var doc document
	if err := yaml.Unmarshal(rendered, &doc); err != nil {
		return nil, &MalformedManifestError{Path: path, Err: err}
	}
	entries, err := includeStrings(&doc.Includes)
	if err != nil {
		return nil, &MalformedManifestError{Path: path, Err: err}
	}
	out := make([]Include, 0, len(entries))
	for _, entry := range entries {
		out = append(out, l.resolve(dir, entry))
	}
	return out, nil
}

func (l *Loader) render(path, dir string, raw []byte) ([]byte, error) {
	if !bytes.Contains(raw, []byte("{{")) {
		return raw, nil
	}
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	funcs := template.FuncMap{
		"root": func() string { return dir },
		"os":   func() string { return runtime.GOOS },
		"arch": func() string { return runtime.GOARCH },
		"env":  getenv,
	}
	tmpl, err := template.New(filepath.Base(path)).Funcs(funcs).Option("missingkey=zero").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	var b bytes.Buffer
	if err := tmpl.Execute(&b, nil); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	return b.Bytes(), nil
}

func includeStrings(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return nil, fmt.Errorf("line %d: includes must be a list of paths", n.Line)
	case yaml.SequenceNode:
	default:
		return nil, fmt.Errorf("line %d: includes must be a list of paths", n.Line)
	}
	var out []string
	for i, item := range n.Content {
		if item.Kind != yaml.ScalarNode || item.Tag == "!!null" {
			return nil, fmt.Errorf("line %d: includes[%d] must be a path string", item.Line, i)
		}
		v := strings.TrimSpace(item.Value)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (l *Loader) resolve(base, entry string) Include {
	p := filepath.FromSlash(entry)
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	p = filepath.Clean(p)
	if fi, err := os.Stat(p); err == nil && fi.IsDir() {
		return Include{Dir: p, File: l.DefaultFile}
	}
	return Include{Dir: filepath.Dir(p), File: filepath.Base(p)}
}
