// File: internal/project/doc.go
// Brief: Project graph discovery, filtering, and ordering.

// Package project implements deps' dependency graph: locating project roots, following manifest
// include relations into a memoized graph, applying ignore/skip filters, and linearizing the
// result for listing or execution.
package project
