package errors

import (
	"errors"
)

// Domain errors - these represent realtime gateway rule violations
var (
	// Authentication & Authorization
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("action forbidden")
	ErrNotProjectMember = errors.New("user is not a member of this project")
	ErrServiceScope     = errors.New("service scope required")

	// Stream admission
	ErrUserConnectionLimit    = errors.New("per-user connection limit reached")
	ErrProjectConnectionLimit = errors.New("per-project connection limit reached")
	ErrStreamingUnsupported   = errors.New("response writer does not support streaming")

	// Events
	ErrUnknownEventType = errors.New("unknown event type")
	ErrUnknownChannel   = errors.New("unknown channel")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewBadRequestError wraps a validation or decode failure with the
// message shown to the caller. The sentinel→status map in the HTTP
// error handler covers every other case; add constructors here only
// when a handler needs to attach its own message.
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}
