package telemetry

import "codeberg.org/mutker/telemetry/errors"

const (
	// Lifecycle errors
	ErrAlreadyInitialized = errors.ErrorCode("telemetry_already_initialized")
	ErrNotInitialized     = errors.ErrorCode("telemetry_not_initialized")
	ErrDrainTimeout       = errors.ErrorCode("telemetry_drain_timeout")

	// Builder registry errors
	ErrNoCoreBuilder   = errors.ErrorCode("telemetry_no_core_builder")
	ErrNoEventsBuilder = errors.ErrorCode("telemetry_no_events_builder")
	ErrUnknownPingType = errors.ErrorCode("telemetry_unknown_ping_type")

	// Operation errors
	ErrPingBuildFailed      = errors.ErrorCode("telemetry_ping_build_failed")
	ErrPingStoreFailed      = errors.ErrorCode("telemetry_ping_store_failed")
	ErrScheduleUploadFailed = errors.ErrorCode("telemetry_schedule_upload_failed")
)
