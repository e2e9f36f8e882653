package query

import "errors"

// Sentinel errors for the query package's error boundary (spec/§7),
// following the teacher's convention (builder/errors.go,
// matrix/errors.go): package-level vars, checked via errors.Is/As,
// never string-matched.
var (
	// ErrValidation marks spec/§7's ValidationError kind: the query is
	// refused with no output (invalid target, an out-of-tolerance
	// weight sum, a negative threshold outside z-mode, etc).
	ErrValidation = errors.New("query: validation failed")

	// ErrIO marks spec/§7's IOError kind: a store read failed. Whitelist
	// read failures do NOT surface as ErrIO — those are logged at Warn
	// and absorbed into an empty whitelist inside the filter package.
	ErrIO = errors.New("query: io failure")

	// ErrCancelled marks spec/§7's Cancelled kind: cooperative
	// cancellation observed mid-pipeline. Never logged as an error.
	ErrCancelled = errors.New("query: cancelled")

	// ErrInternal marks spec/§7's InternalError kind: an invariant
	// violation. The query fails loudly; no recovery is attempted.
	ErrInternal = errors.New("query: internal error")
)
