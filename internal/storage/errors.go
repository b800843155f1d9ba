package storage

import "errors"

// ErrBucketNotFound is returned when no bucket exists for a key.
var ErrBucketNotFound = errors.New("rate limit bucket not found")
