package ping

import "codeberg.org/mutker/telemetry/errors"

const (
	// Build errors
	ErrBuildFailed = errors.ErrorCode("ping_build_failed")

	// Serialization errors
	ErrSerializeFailed = errors.ErrorCode("ping_serialize_failed")
)
