package store

import "errors"

var (
	ErrNotFound     = errors.New("store: job not found")
	ErrUnavailable  = errors.New("store: job queue not configured")
	ErrDuplicateJob = errors.New("store: job already queued")
)
