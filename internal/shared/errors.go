package shared

import "errors"

// ErrIdempotencyConflict is returned when a request key was already claimed.
// Callers answer it as a duplicate request rather than a failure.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")
