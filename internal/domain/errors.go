package domain

import "errors"

// ErrNotFound indicates the remote resource does not exist (HTTP 404).
// It is terminal: workers must not retry it.
var ErrNotFound = errors.New("resource not found")

// ErrPoolClosed indicates the pool is shutting down and no longer admits jobs.
var ErrPoolClosed = errors.New("pool closed")
