package worker

import "codeberg.org/mutker/telemetry/errors"

const (
	// Lifecycle errors
	ErrQueueClosed  = errors.ErrorCode("worker_queue_closed")
	ErrDrainTimeout = errors.ErrorCode("worker_drain_timeout")

	// Execution errors
	ErrUnitPanicked = errors.ErrorCode("worker_unit_panicked")
)
