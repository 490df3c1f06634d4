package engine

import (
	"errors"
	"log/slog"

	"github.com/roach88/nmlc/internal/ir"
)

// Finalize runs Finalize exactly once on every action in stream order.
// The first failure stops the pass.
func Finalize(stream ir.Stream) error {
	for i, a := range stream {
		if err := a.Finalize(); err != nil {
			return &Error{
				Code:     ErrCodeFinalize,
				Message:  "action finalization failed",
				Position: i,
				Label:    a.Label(),
				Err:      err,
			}
		}
	}
	slog.Debug("stream finalized", "actions", len(stream))
	return nil
}

// Emit finalizes the stream and then writes it to every sink in order.
// It returns, per sink, whether the full stream was accepted.
//
// A failing sink is abandoned for the rest of the stream and emission moves
// on to the next sink; a failure wrapping ir.ErrSinkFatal stops the whole
// write pass. Nothing is retried.
func Emit(stream ir.Stream, sinks []ir.Sink) ([]bool, error) {
	complete := make([]bool, len(sinks))
	if err := Finalize(stream); err != nil {
		return complete, err
	}

	var errs []error
	for si, s := range sinks {
		err := writeStream(stream, s)
		if err == nil {
			complete[si] = true
			slog.Debug("stream written", "sink", s.Name(), "actions", len(stream))
			continue
		}

		errs = append(errs, err)
		if errors.Is(err, ir.ErrSinkFatal) {
			slog.Error("fatal sink error, aborting write pass", "sink", s.Name(), "error", err)
			break
		}
		slog.Warn("sink failed, continuing with remaining sinks", "sink", s.Name(), "error", err)
	}
	return complete, errors.Join(errs...)
}

func writeStream(stream ir.Stream, s ir.Sink) error {
	for i, a := range stream {
		if err := a.WriteTo(s); err != nil {
			return newSinkError(s.Name(), i, a.Label(), err)
		}
	}
	return nil
}
