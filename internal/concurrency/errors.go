// File: internal/concurrency/errors.go
// Package concurrency
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "errors"

var (
	// ErrExecutorClosed is returned by Submit once the executor has been closed.
	ErrExecutorClosed = errors.New("concurrency: executor closed")

	// ErrInvalidWorkerCount is returned when a requested worker count is not positive.
	ErrInvalidWorkerCount = errors.New("concurrency: invalid worker count")

	// ErrSchedulerClosed is returned by Schedule once the scheduler has stopped.
	ErrSchedulerClosed = errors.New("concurrency: scheduler closed")
)
