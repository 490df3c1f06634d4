package compiler

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Parse error codes (E200-E299)
const (
	ErrCodeSyntax        = "E201" // CUE does not compile
	ErrCodeMissingBlocks = "E202" // blocks list missing or not a list
	ErrCodeUnknownKind   = "E203" // unknown block kind
	ErrCodeInvalidField  = "E204" // missing field or wrong type
	ErrCodeOutOfRange    = "E205" // value outside the encodable range
	ErrCodeDuplicate     = "E206" // duplicate temporary name
)

// ParseError represents a source error with position.
type ParseError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ParseError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Code, e.Field, e.Message)
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors; the first one is reported.
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ParseError{Code: ErrCodeSyntax, Field: "cue", Message: err.Error()}
	}

	first := errs[0]
	pe := &ParseError{
		Code:    ErrCodeSyntax,
		Field:   "cue",
		Message: first.Error(),
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		pe.Pos = positions[0]
	}
	return pe
}
