package database

import "errors"

var (
	// ErrSchemaVersion is returned when the stored schema is not the one
	// this build writes.
	ErrSchemaVersion = errors.New("unsupported state schema version")

	// ErrRunNotFound is returned when a run ID is unknown.
	ErrRunNotFound = errors.New("crawl run not found")
)
