package errors

// ErrorCode identifies one failure mode as a stable snake_case string.
// Packages declare their own codes next to the shared set in codes.go.
type ErrorCode string

// Error is a coded error. Codes survive wrapping, so callers branch on
// HasCode rather than on message text.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory mints coded errors; obtain one with New at the top of a function.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
