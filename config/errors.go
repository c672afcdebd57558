package config

import "codeberg.org/mutker/telemetry/errors"

const (
	// Loading errors
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrReadConfig      = errors.ErrReadConfig
	ErrInvalidLogLevel = errors.ErrInvalidLogLevel

	// Validation errors
	ErrMissingIdentity  = errors.ErrorCode("config_missing_identity")
	ErrMissingDataDir   = errors.ErrorCode("config_missing_data_directory")
	ErrInvalidEndpoint  = errors.ErrorCode("config_invalid_endpoint")
	ErrInvalidThreshold = errors.ErrorCode("config_invalid_threshold")
	ErrInvalidTimeout   = errors.ErrorCode("config_invalid_timeout")
)
