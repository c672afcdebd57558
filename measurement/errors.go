package measurement

import "codeberg.org/mutker/telemetry/errors"

const (
	// Session errors
	ErrSessionAlreadyStarted = errors.ErrorCode("measurement_session_already_started")
	ErrNoSessionStarted      = errors.ErrorCode("measurement_no_session_started")

	// State errors
	ErrInvalidSearch = errors.ErrorCode("measurement_invalid_search")
	ErrPersistFailed = errors.ErrorCode("measurement_persist_failed")
	ErrFlushFailed   = errors.ErrorCode("measurement_flush_failed")
)
