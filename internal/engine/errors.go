package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes pipeline failures.
type ErrorCode string

const (
	// ErrCodeEmptyInput means the source held nothing but whitespace.
	ErrCodeEmptyInput ErrorCode = "EMPTY_INPUT"

	// ErrCodeParse means the parser rejected the source.
	ErrCodeParse ErrorCode = "PARSE_FAILED"

	// ErrCodeResolution means temporary storage could not be assigned.
	ErrCodeResolution ErrorCode = "RESOLUTION_FAILED"

	// ErrCodeFinalize means an action could not produce its record.
	ErrCodeFinalize ErrorCode = "FINALIZE_FAILED"

	// ErrCodeSink means a sink failed to accept or commit the stream.
	ErrCodeSink ErrorCode = "SINK_FAILED"
)

// Error is a pipeline failure with enough context to locate it.
type Error struct {
	Code    ErrorCode
	Message string

	// Position is the stream index of the failing action, or -1.
	Position int

	// Label identifies the failing action.
	Label string

	// Sink names the failing sink (ErrCodeSink only).
	Sink string

	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Sink != "" {
		msg += fmt.Sprintf(" (sink=%s)", e.Sink)
	}
	if e.Position >= 0 && e.Label != "" {
		msg += fmt.Sprintf(" (action %d %s)", e.Position, e.Label)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// emptyInputError is returned for whitespace-only source. Each run gets its
// own value; callers match it with IsEmptyInput.
func emptyInputError() *Error {
	return &Error{Code: ErrCodeEmptyInput, Message: "empty input", Position: -1}
}

func hasCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsEmptyInput reports whether err is an empty-input error.
func IsEmptyInput(err error) bool { return hasCode(err, ErrCodeEmptyInput) }

// IsParseError reports whether err is a parse failure.
func IsParseError(err error) bool { return hasCode(err, ErrCodeParse) }

// IsResolutionError reports whether err is a storage resolution failure.
func IsResolutionError(err error) bool { return hasCode(err, ErrCodeResolution) }

// IsFinalizeError reports whether err is a finalize failure.
func IsFinalizeError(err error) bool { return hasCode(err, ErrCodeFinalize) }

// IsSinkError reports whether err contains a sink failure.
func IsSinkError(err error) bool { return hasCode(err, ErrCodeSink) }

func newSinkError(sink string, position int, label string, err error) *Error {
	return &Error{
		Code:     ErrCodeSink,
		Message:  "write failed",
		Position: position,
		Label:    label,
		Sink:     sink,
		Err:      err,
	}
}
