package event

import "codeberg.org/mutker/telemetry/errors"

const (
	// Serialization errors
	ErrEncodeFailed = errors.ErrorCode("event_encode_failed")
)
