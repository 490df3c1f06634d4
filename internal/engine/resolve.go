package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/nmlc/internal/ir"
)

// ResolveStorage walks the stream from the last action to the first, once,
// calling ResolveStorage on every storage-resolving action. Later actions are
// always resolved before earlier ones; there is no second pass.
//
// References that no earlier definition satisfied are reported after the
// pass as a resolution error.
func ResolveStorage(stream ir.Stream, ts *ir.TempStorage) error {
	resolved := 0
	for i := len(stream) - 1; i >= 0; i-- {
		a := stream[i]
		switch a.Kind() {
		case ir.KindStorageResolving:
			if err := a.ResolveStorage(ts); err != nil {
				return &Error{
					Code:     ErrCodeResolution,
					Message:  "temporary storage resolution failed",
					Position: i,
					Label:    a.Label(),
					Err:      err,
				}
			}
			resolved++
		case ir.KindGeneric, ir.KindEntryPoint, ir.KindHeader:
		default:
			return &Error{
				Code:     ErrCodeResolution,
				Message:  "unknown action kind",
				Position: i,
				Label:    a.Label(),
				Err: &ir.StorageError{
					Code:    ir.ErrCodeUnknownKind,
					Message: fmt.Sprintf("action reported %s", a.Kind()),
				},
			}
		}
	}

	if err := ts.Check(); err != nil {
		return &Error{
			Code:     ErrCodeResolution,
			Message:  "unresolved switch reference",
			Position: -1,
			Err:      err,
		}
	}

	slog.Debug("temporary storage resolved", "actions", len(stream), "resolved", resolved)
	return nil
}
