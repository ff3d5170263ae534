package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoDigest is returned when no pipeline cycle has published a digest yet.
var ErrNoDigest = errors.New("no digest available yet")
