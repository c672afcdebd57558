package schedule

import "codeberg.org/mutker/telemetry/errors"

const (
	// Lifecycle Errors
	ErrNotStarted     = errors.ErrorCode("schedule_not_started")
	ErrClosed         = errors.ErrorCode("schedule_closed")
	ErrScheduleFailed = errors.ErrorCode("schedule_failed")
)
