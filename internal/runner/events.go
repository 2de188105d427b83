package runner

import (
	"time"

	"github.com/example/deps/internal/project"
)

// EventType enumerates run events in the order a node can produce them.
type EventType string

const (
	RunStarted   EventType = "RUN_STARTED"
	RunCompleted EventType = "RUN_COMPLETED"

	NodeStarted  EventType = "NODE_STARTED"
	NodeSkipped  EventType = "NODE_SKIPPED"
	NodeFinished EventType = "NODE_FINISHED"
)

// Event is delivered to observers one at a time; observers never see two events concurrently.
type Event struct {
	Type  EventType
	RunID string
	Time  time.Time

	Project *project.Project
	// Progress counts the projects started or skipped so far, this one included.
	Progress int
	Total    int
	Parallel bool

	// Details are the action's description of what it is about to do (NodeStarted).
	Details []string
	// Reason explains a NodeSkipped event; ReasonSkipProject for --skip-project.
	Reason string

	Status   Status
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Elapsed  time.Duration
	Err      error

	// Result is set on RunCompleted.
	Result *Result
}

const ReasonSkipProject = "skipped"

type Observer interface {
	ObserveEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) ObserveEvent(ev Event) {
	if f == nil {
		return
	}
	f(ev)
}
