package runner

import (
	"sort"
	"sync"

	"github.com/example/deps/internal/project"
)

// scheduler hands out order indexes whose dependencies have all finished. Only edges to
// dependencies that come earlier in the order are tracked, so the lowest undispatched index is
// always eligible once everything before it finished and cyclic input cannot stall the queue.
type scheduler struct {
	mu   sync.Mutex
	cond *sync.Cond

	pending    []int
	dependents [][]int
	ready      []int

	running      int
	undispatched int

	continueOnFailure bool
	stopped           bool
}

func newScheduler(order []*project.Project, continueOnFailure bool) *scheduler {
	s := &scheduler{
		pending:           make([]int, len(order)),
		dependents:        make([][]int, len(order)),
		undispatched:      len(order),
		continueOnFailure: continueOnFailure,
	}
	s.cond = sync.NewCond(&s.mu)

	pos := project.Positions(order)
	for i, p := range order {
		seen := map[int]struct{}{}
		for _, dep := range p.Dependencies {
			j, ok := pos[dep.Path]
			if !ok || j >= i {
				continue
			}
			if _, dup := seen[j]; dup {
				continue
			}
			seen[j] = struct{}{}
			s.pending[i]++
			s.dependents[j] = append(s.dependents[j], i)
		}
	}
	for i := range order {
		if s.pending[i] == 0 {
			s.ready = append(s.ready, i)
		}
	}
	return s
}

// Next blocks until an index is ready and returns it, lowest first. It returns false once the
// scheduler is stopped or nothing is left to dispatch.
func (s *scheduler) Next() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if s.stopped || s.undispatched == 0 {
			return -1, false
		}
		if len(s.ready) > 0 {
			i := s.ready[0]
			s.ready = s.ready[1:]
			s.running++
			s.undispatched--
			return i, true
		}
		if s.running == 0 {
			// Unreachable for a linearized order.
			return -1, false
		}
		s.cond.Wait()
	}
}

// Done releases the dependents of i. A failure stops dispatch unless failures count as
// resolved dependencies.
func (s *scheduler) Done(i int, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running--
	if failed && !s.continueOnFailure {
		s.stopped = true
	}
	for _, d := range s.dependents[i] {
		s.pending[d]--
		if s.pending[d] == 0 {
			s.ready = append(s.ready, d)
		}
	}
	sort.Ints(s.ready)
	s.cond.Broadcast()
}

func (s *scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.cond.Broadcast()
}
