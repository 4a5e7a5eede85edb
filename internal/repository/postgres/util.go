package postgres

import "errors"

// ErrNotFound covers both a missing record and a record owned by another
// user, so by-id mutations cannot leak existence.
var ErrNotFound = errors.New("not found")
