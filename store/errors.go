package store

import "errors"

// Sentinel errors for the store package. Callers branch with
// errors.Is; wrap with fmt.Errorf("%w: ...") for context, per the
// teacher's sentinel-error convention (builder/errors.go,
// matrix/errors.go).
var (
	// ErrUserNotFound indicates the requested user has no feature
	// graph files in inputDir.
	ErrUserNotFound = errors.New("store: user not found")

	// ErrRead indicates an underlying filesystem read failure.
	ErrRead = errors.New("store: read failed")

	// ErrMalformed indicates a file could not be decoded into its
	// expected schema.
	ErrMalformed = errors.New("store: malformed input file")
)
