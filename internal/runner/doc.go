// File: internal/runner/doc.go
// Brief: Package runner documentation.

// Package runner executes an action for every project of a linearized dependency graph.
//
// Three modes share one node lifecycle: sequential, ordered-parallel (a bounded worker pool fed
// by a ready-queue that never dispatches a project before its dependencies finished) and
// unordered-parallel (a bounded fan-out over every project). Progress is published as run
// events; Console renders them for a terminal or a GitHub Actions log.
package runner
