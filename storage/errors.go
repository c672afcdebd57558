package storage

import "codeberg.org/mutker/telemetry/errors"

const (
	// Configuration Errors
	ErrInvalidConfig  = errors.ErrInvalidConfig
	ErrInvalidDBPath  = errors.ErrorCode("storage_invalid_db_path")
	ErrInvalidPingCap = errors.ErrorCode("storage_invalid_ping_cap")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("storage_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("storage_schema_validation_failed")
	ErrTransactionFailed      = errors.ErrorCode("storage_transaction_failed")

	// Storage Errors
	ErrStorageAccess   = errors.ErrorCode("storage_access_failed")
	ErrSerializeFailed = errors.ErrorCode("storage_serialize_failed")
	ErrStorageInit     = errors.ErrInitFailed
	ErrStorageClose    = errors.ErrShutdownFailed
)
