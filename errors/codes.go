package errors

import "net/http"

// ErrorCode is the machine-readable kind of an AppError.
type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrCodeConflict is a write that breaks a constraint other than
	// uniqueness, such as a foreign key.
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeNotConfigured means setup was skipped, e.g. no default database
	// interface was created.
	ErrCodeNotConfigured ErrorCode = "NOT_CONFIGURED"
	// ErrCodeBusy means SQLite could not take its lock in time.
	ErrCodeBusy          ErrorCode = "BUSY"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

type codeInfo struct {
	status    int
	retryable bool
}

var codes = map[ErrorCode]codeInfo{
	ErrCodeNotFound:      {http.StatusNotFound, false},
	ErrCodeAlreadyExists: {http.StatusConflict, false},
	ErrCodeConflict:      {http.StatusConflict, false},
	ErrCodeInvalidInput:  {http.StatusBadRequest, false},
	ErrCodeMissingField:  {http.StatusBadRequest, false},
	ErrCodeNotConfigured: {http.StatusInternalServerError, false},
	ErrCodeBusy:          {http.StatusServiceUnavailable, true},
	ErrCodeDatabaseError: {http.StatusInternalServerError, true},
	ErrCodeInternal:      {http.StatusInternalServerError, false},
}

// IsRetryableCode reports whether errors with code may succeed when retried.
func IsRetryableCode(code ErrorCode) bool {
	return codes[code].retryable
}

// StatusOf returns the HTTP status for code; unknown codes map to 500.
func StatusOf(code ErrorCode) int {
	if info, ok := codes[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}
