package runner

import "testing"

func TestScheduler_ReleasesDependentsInOrder(t *testing.T) {
	order := diamondOrder(t) // D, B, C, A
	s := newScheduler(order, false)

	if i, ok := s.Next(); !ok || i != 0 {
		t.Fatalf("expected D first, got %d %v", i, ok)
	}
	s.Done(0, false)
	first, _ := s.Next()
	second, _ := s.Next()
	if first != 1 || second != 2 {
		t.Fatalf("expected B then C, got %d %d", first, second)
	}
	s.Done(2, false)
	s.Done(1, false)
	if i, ok := s.Next(); !ok || i != 3 {
		t.Fatalf("expected A last, got %d %v", i, ok)
	}
	s.Done(3, false)
	if _, ok := s.Next(); ok {
		t.Fatalf("expected nothing left to dispatch")
	}
}

func TestScheduler_IgnoresEdgesToLaterProjects(t *testing.T) {
	// A cycle linearizes to C, B, A with C still pointing at A.
	order := graph(t, map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"C": {"A"},
	}, "A")
	if order[0].Name != "C" {
		t.Fatalf("unexpected order %v", order)
	}
	s := newScheduler(order, false)
	if i, ok := s.Next(); !ok || i != 0 {
		t.Fatalf("expected C to be dispatchable, got %d %v", i, ok)
	}
}

func TestScheduler_FailureStopsDispatch(t *testing.T) {
	s := newScheduler(diamondOrder(t), false)
	i, _ := s.Next()
	s.Done(i, true)
	if _, ok := s.Next(); ok {
		t.Fatalf("expected dispatch to stop after a failure")
	}
}

func TestScheduler_FailureCountsAsResolvedWhenContinuing(t *testing.T) {
	s := newScheduler(diamondOrder(t), true)
	i, _ := s.Next()
	s.Done(i, true)
	if next, ok := s.Next(); !ok || next != 1 {
		t.Fatalf("expected B to be released, got %d %v", next, ok)
	}
}

func TestScheduler_StopWakesWaiters(t *testing.T) {
	s := newScheduler(diamondOrder(t), false)
	i, _ := s.Next()
	done := make(chan bool)
	go func() {
		_, ok := s.Next()
		done <- ok
	}()
	s.Stop()
	if ok := <-done; ok {
		t.Fatalf("expected waiting Next to return false after Stop")
	}
	s.Done(i, false)
}
