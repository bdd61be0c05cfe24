package scheduler

import "errors"

var (
	// ErrPoolClosed is returned by Submit after Drain has been called.
	ErrPoolClosed = errors.New("worker pool is closed")

	// ErrDrainTimeout is returned when in-flight tasks outlive the drain timeout.
	ErrDrainTimeout = errors.New("timed out waiting for in-flight tasks")
)
