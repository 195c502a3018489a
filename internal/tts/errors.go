package tts

import (
	"errors"
	"fmt"
)

// Common errors. Every *Error matches exactly one of these through errors.Is.
var (
	// ErrNotFound indicates a requested voice exists neither in the cache nor
	// in the remote repository.
	ErrNotFound = errors.New("voice not found")

	// ErrIOFailure indicates an existing directory or file could not be read.
	ErrIOFailure = errors.New("i/o failure")

	// ErrEmptyOutput indicates the synthesis pipeline yielded no chunks at all.
	ErrEmptyOutput = errors.New("no audio returned from pipeline")

	// ErrUpstreamFailure indicates the repository client or the synthesis
	// pipeline failed.
	ErrUpstreamFailure = errors.New("upstream failure")

	// ErrInvalidInput indicates a malformed request or configuration value.
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorCode identifies specific error types
type ErrorCode string

const (
	ErrorCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrorCodeIOFailure       ErrorCode = "IO_FAILURE"
	ErrorCodeEmptyOutput     ErrorCode = "EMPTY_OUTPUT"
	ErrorCodeUpstreamFailure ErrorCode = "UPSTREAM_FAILURE"
	ErrorCodeInvalidInput    ErrorCode = "INVALID_INPUT"
)

// Error represents a failure with the stage, voice or path it happened at.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// NewError creates a new error with an empty context.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	for _, k := range []string{"stage", "voice", "path", "repo"} {
		if v, ok := e.Context[k]; ok {
			msg += fmt.Sprintf(" (%s=%v)", k, v)
		}
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's code.
func (e *Error) Is(target error) bool {
	return e.sentinel() == target
}

func (e *Error) sentinel() error {
	switch e.Code {
	case ErrorCodeNotFound:
		return ErrNotFound
	case ErrorCodeIOFailure:
		return ErrIOFailure
	case ErrorCodeEmptyOutput:
		return ErrEmptyOutput
	case ErrorCodeUpstreamFailure:
		return ErrUpstreamFailure
	case ErrorCodeInvalidInput:
		return ErrInvalidInput
	default:
		return nil
	}
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	e.Context[key] = value
	return e
}

// NotFound builds a NotFound error for voice.
func NotFound(voice string) *Error {
	return NewError(ErrorCodeNotFound, fmt.Sprintf("voice %q not found", voice), nil).
		WithContext("voice", voice)
}

// IOFailure builds an IOFailure error for a fault on path.
func IOFailure(path string, cause error) *Error {
	return NewError(ErrorCodeIOFailure, "filesystem operation failed", cause).
		WithContext("path", path)
}

// Upstream builds an UpstreamFailure error for the given stage.
func Upstream(stage string, cause error) *Error {
	return NewError(ErrorCodeUpstreamFailure, stage+" failed", cause).
		WithContext("stage", stage)
}

// ExitCode maps an error to the process exit status used by the CLI.
// NotFound and invalid input are 1, upstream and I/O faults 2, anything
// that went wrong during synthesis 3.
func ExitCode(err error) int {
	var te *Error
	switch {
	case err == nil:
		return 0
	case errors.As(err, &te) && te.Context["stage"] == StageSynthesis:
		return 3
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidInput):
		return 1
	case errors.Is(err, ErrUpstreamFailure), errors.Is(err, ErrIOFailure):
		return 2
	default:
		return 3
	}
}
