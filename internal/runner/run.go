// File: internal/runner/run.go
// Brief: Execution Engine: node lifecycle and the three dispatch modes.

package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/deps/internal/project"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Mode int

const (
	// Sequential runs one project at a time in order.
	Sequential Mode = iota
	// OrderedParallel runs up to Jobs projects at once, never before their dependencies.
	OrderedParallel
	// UnorderedParallel runs up to Jobs projects at once with no ordering guarantee.
	UnorderedParallel
)

func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case OrderedParallel:
		return "ordered-parallel"
	case UnorderedParallel:
		return "unordered-parallel"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Options configures one run over a linearized order.
type Options struct {
	Order             []*project.Project
	Mode              Mode
	Jobs              int
	ContinueOnFailure bool
	Action            Action
	Observers         []Observer
	Logger            logr.Logger
	RunID             string
}

// Run executes opts.Action for every project of opts.Order and returns what happened to each.
// The error is only non-nil for invalid options; action failures are reported in the Result.
// Cancelling ctx stops dispatch like a failure does; work already running is not interrupted.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Action == nil {
		return nil, fmt.Errorf("action is required")
	}
	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}
	if opts.Mode == Sequential {
		jobs = 1
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	r := &run{
		opts:      opts,
		id:        runID,
		log:       opts.Logger.WithValues("run", runID),
		parallel:  jobs > 1,
		observers: append([]Observer(nil), opts.Observers...),
		result:    &Result{RunID: runID, Nodes: make([]NodeResult, len(opts.Order))},
	}
	for i, p := range opts.Order {
		r.result.Nodes[i] = NodeResult{Project: p, Status: StatusNotRun}
	}

	start := time.Now()
	r.log.V(1).Info("run started", "mode", opts.Mode.String(), "jobs", jobs, "projects", len(opts.Order))
	r.emit(Event{Type: RunStarted, Total: len(opts.Order), Parallel: r.parallel})

	switch opts.Mode {
	case Sequential:
		r.sequential(ctx)
	case OrderedParallel:
		r.ordered(ctx, jobs)
	case UnorderedParallel:
		r.unordered(ctx, jobs)
	default:
		return nil, fmt.Errorf("unknown run mode %d", int(opts.Mode))
	}

	r.result.Elapsed = time.Since(start)
	r.log.V(1).Info("run completed",
		"succeeded", r.result.Count(StatusSucceeded),
		"failed", r.result.Count(StatusFailed),
		"skipped", r.result.Count(StatusSkipped),
		"notRun", r.result.Count(StatusNotRun),
		"elapsed", r.result.Elapsed.String())
	r.emit(Event{Type: RunCompleted, Total: len(opts.Order), Parallel: r.parallel, Elapsed: r.result.Elapsed, Result: r.result})
	return r.result, nil
}

type run struct {
	opts     Options
	id       string
	log      logr.Logger
	parallel bool

	mu        sync.Mutex
	observers []Observer
	progress  int
	result    *Result
}

func (r *run) emit(ev Event) {
	ev.RunID = r.id
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	for _, o := range r.observers {
		o.ObserveEvent(ev)
	}
}

// execute runs the lifecycle of node i and reports whether it failed.
func (r *run) execute(ctx context.Context, i int) bool {
	p := r.opts.Order[i]
	base := Event{Project: p, Total: len(r.opts.Order), Parallel: r.parallel}

	skip, reason := p.Skip, ""
	if skip {
		reason = ReasonSkipProject
	} else if g, ok := r.opts.Action.(Gate); ok {
		if admitted, why := g.Admit(p); !admitted {
			skip, reason = true, why
		}
	}

	r.mu.Lock()
	r.progress++
	base.Progress = r.progress
	if skip {
		r.result.Nodes[i].Status = StatusSkipped
		r.result.Nodes[i].Reason = reason
		ev := base
		ev.Type = NodeSkipped
		ev.Reason = reason
		ev.Status = StatusSkipped
		r.emit(ev)
		r.mu.Unlock()
		r.log.V(1).Info("project skipped", "project", p.Name, "reason", reason)
		return false
	}
	ev := base
	ev.Type = NodeStarted
	if d, ok := r.opts.Action.(Describer); ok {
		ev.Details = d.Describe(p)
	}
	r.emit(ev)
	r.mu.Unlock()

	r.log.V(1).Info("project started", "project", p.Name, "path", p.Path)
	start := time.Now()
	out := r.opts.Action.Run(ctx, p)
	elapsed := out.Elapsed
	if elapsed == 0 {
		elapsed = time.Since(start)
	}
	failed := out.ExitCode != 0 || out.Err != nil

	r.mu.Lock()
	defer r.mu.Unlock()
	node := &r.result.Nodes[i]
	node.Status = StatusSucceeded
	node.ExitCode = out.ExitCode
	node.Elapsed = elapsed
	if failed {
		node.Status = StatusFailed
		r.result.Failures = append(r.result.Failures, &CommandExecutionFailure{Project: p, ExitCode: out.ExitCode, Err: out.Err})
	}
	done := base
	done.Type = NodeFinished
	done.Status = node.Status
	done.ExitCode = out.ExitCode
	done.Stdout = out.Stdout
	done.Stderr = out.Stderr
	done.Elapsed = elapsed
	done.Err = out.Err
	r.emit(done)
	r.log.V(1).Info("project finished", "project", p.Name, "status", string(node.Status), "exitCode", out.ExitCode, "elapsed", elapsed.String())
	return failed
}

func (r *run) sequential(ctx context.Context) {
	for i := range r.opts.Order {
		if ctx.Err() != nil {
			r.log.V(1).Info("run cancelled", "reason", ctx.Err().Error())
			return
		}
		if r.execute(ctx, i) && !r.opts.ContinueOnFailure {
			return
		}
	}
}

func (r *run) ordered(ctx context.Context, jobs int) {
	s := newScheduler(r.opts.Order, r.opts.ContinueOnFailure)
	stop := context.AfterFunc(ctx, s.Stop)
	defer stop()

	workers := jobs
	if workers > len(r.opts.Order) {
		workers = len(r.opts.Order)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i, ok := s.Next()
				if !ok {
					return
				}
				if ctx.Err() != nil {
					s.Stop()
					s.Done(i, false)
					return
				}
				s.Done(i, r.execute(ctx, i))
			}
		}()
	}
	wg.Wait()
}

func (r *run) unordered(ctx context.Context, jobs int) {
	var stopped atomic.Bool
	g := new(errgroup.Group)
	g.SetLimit(jobs)
	for i := range r.opts.Order {
		if stopped.Load() || ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if stopped.Load() || ctx.Err() != nil {
				return nil
			}
			if r.execute(ctx, i) && !r.opts.ContinueOnFailure {
				stopped.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()
}
