package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/deps/internal/project"
)

// graph builds in-memory projects: name -> dependency names. Linearize order follows roots.
func graph(t *testing.T, edges map[string][]string, roots ...string) []*project.Project {
	t.Helper()
	nodes := map[string]*project.Project{}
	get := func(name string) *project.Project {
		if p, ok := nodes[name]; ok {
			return p
		}
		p := &project.Project{Name: name, Path: "/ws/" + name}
		nodes[name] = p
		return p
	}
	for name, deps := range edges {
		p := get(name)
		for _, d := range deps {
			p.Dependencies = append(p.Dependencies, get(d))
		}
	}
	var rs []*project.Project
	for _, r := range roots {
		rs = append(rs, get(r))
	}
	return project.Linearize(rs, false)
}

func diamondOrder(t *testing.T) []*project.Project {
	return graph(t, map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
		"D": nil,
	}, "A")
}

// recorder is an Action that records starts and finishes and checks nothing starts before
// its dependencies finished.
type recorder struct {
	mu        sync.Mutex
	delay     time.Duration
	exitCodes map[string]int
	started   []string
	finished  map[string]bool
	calls     map[string]int
	running   int
	peak      int
	violation string
}

func newRecorder() *recorder {
	return &recorder{exitCodes: map[string]int{}, finished: map[string]bool{}, calls: map[string]int{}}
}

func (r *recorder) Run(_ context.Context, p *project.Project) Outcome {
	r.mu.Lock()
	r.started = append(r.started, p.Name)
	r.calls[p.Name]++
	for _, dep := range p.Dependencies {
		if !r.finished[dep.Name] && r.violation == "" {
			r.violation = p.Name + " started before " + dep.Name + " finished"
		}
	}
	r.running++
	if r.running > r.peak {
		r.peak = r.running
	}
	r.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.running--
	r.finished[p.Name] = true
	return Outcome{ExitCode: r.exitCodes[p.Name]}
}

func (r *recorder) Started() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.started...)
}

func statuses(res *Result) map[string]Status {
	out := map[string]Status{}
	for _, n := range res.Nodes {
		out[n.Project.Name] = n.Status
	}
	return out
}
