package store

import "errors"

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("store: not found")

// ErrConflict names the error class of a write that loses a race (e.g. a
// unique constraint violation on an alias). No Store method returns it or
// retries on it: such a failure surfaces as the wrapped driver error.
var ErrConflict = errors.New("store: conflict")

// ErrCorrupt signals an unrecoverable inconsistency (schema version ahead of
// what this build understands, or a torn row). This is the one error class
// the Store propagates as fatal rather than recovering locally.
var ErrCorrupt = errors.New("store: corrupt")
