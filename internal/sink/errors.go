package sink

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/roach88/nmlc/internal/ir"
)

// Configuration error codes (E300-E399)
const (
	ErrCodeEncoderUnavailable = "E301" // format has no registered factory
	ErrCodeUnknownExtension   = "E302" // output extension not recognized
	ErrCodeNMLOutput          = "E303" // .nml requested through the generic output list
	ErrCodeDuplicateOutput    = "E304" // one path requested as two different formats
)

// ConfigError reports an output that cannot be set up.
type ConfigError struct {
	Code    string
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsEncoderUnavailable reports whether err says a format is not registered.
func IsEncoderUnavailable(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeEncoderUnavailable
	}
	return false
}

// ErrReleased is returned for writes after Close or Discard.
var ErrReleased = errors.New("sink already released")

// wrapWriteErr marks out-of-space failures fatal for the write pass.
func wrapWriteErr(path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%s: %w: %w", path, ir.ErrSinkFatal, err)
	}
	return fmt.Errorf("%s: %w", path, err)
}
