package client

import "codeberg.org/mutker/telemetry/errors"

const (
	// Upload Errors
	ErrInvalidEndpoint = errors.ErrorCode("client_invalid_endpoint")
	ErrCompressFailed  = errors.ErrorCode("client_compress_failed")
	ErrRequestFailed   = errors.ErrorCode("client_request_failed")
	ErrUploadFailed    = errors.ErrorCode("client_upload_failed")
)
