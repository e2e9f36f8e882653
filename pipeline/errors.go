package pipeline

import "errors"

// Sentinel errors for the pipeline package, following the teacher's
// convention (builder/errors.go, matrix/errors.go): package-level
// vars, never string-matched, wrapped with %w for context.
var (
	// ErrInvariant marks a C1 invariant violation surfaced mid-pipeline
	// (e.g. a neighbor referencing an unknown node) — spec/§7's
	// InternalError kind.
	ErrInvariant = errors.New("pipeline: invariant violation")
)
