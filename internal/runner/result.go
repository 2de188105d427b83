package runner

import (
	"fmt"
	"time"

	"github.com/example/deps/internal/project"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusNotRun    Status = "not-run"
)

// NodeResult records what happened to one project of the order.
type NodeResult struct {
	Project  *project.Project
	Status   Status
	ExitCode int
	Elapsed  time.Duration
	Reason   string
}

// CommandExecutionFailure is recorded for every project whose action failed.
type CommandExecutionFailure struct {
	Project  *project.Project
	ExitCode int
	Err      error
}

func (f *CommandExecutionFailure) Error() string {
	return fmt.Sprintf("Command failed (project: %s)", f.Project.Name)
}

func (f *CommandExecutionFailure) Unwrap() error { return f.Err }

type Result struct {
	RunID string
	// Nodes is indexed like the order the run was started with.
	Nodes    []NodeResult
	Failures []*CommandExecutionFailure
	Elapsed  time.Duration
}

// Failed reports whether any node failed.
func (r *Result) Failed() bool {
	return r != nil && len(r.Failures) > 0
}

// ExitCode is 0 when no node failed. Otherwise it is the failing exit code with the largest
// magnitude, or 1 when failures carried no usable code.
func (r *Result) ExitCode() int {
	if !r.Failed() {
		return 0
	}
	code := 0
	for _, f := range r.Failures {
		if abs(f.ExitCode) > abs(code) {
			code = f.ExitCode
		}
	}
	if code == 0 {
		return 1
	}
	return code
}

// Count returns how many nodes ended with status s.
func (r *Result) Count(s Status) int {
	n := 0
	for _, node := range r.Nodes {
		if node.Status == s {
			n++
		}
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
