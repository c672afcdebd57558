package prefs

import "codeberg.org/mutker/telemetry/errors"

const (
	ErrStoreInit  = errors.ErrorCode("prefs_store_init_failed")
	ErrStoreWrite = errors.ErrorCode("prefs_store_write_failed")
)
