package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/nmlc/internal/ir"
)

// Parser turns source text into an ordered block list.
// On failure no partial block list is returned.
type Parser interface {
	Parse(source string) ([]ir.Block, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(source string) ([]ir.Block, error)

func (f ParserFunc) Parse(source string) ([]ir.Block, error) {
	return f(source)
}

// Status classifies the outcome of a run.
type Status int

const (
	StatusSuccess Status = iota
	StatusEmptyInput
	StatusParseFailure
	StatusResolutionFailure
	StatusFinalizeFailure
	StatusSinkFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusEmptyInput:
		return "empty_input"
	case StatusParseFailure:
		return "parse_failure"
	case StatusResolutionFailure:
		return "resolution_failure"
	case StatusFinalizeFailure:
		return "finalize_failure"
	case StatusSinkFailure:
		return "sink_failure"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	for st := StatusSuccess; st <= StatusSinkFailure; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

// Result describes a finished run.
type Result struct {
	Status Status

	// Length is the final stream length, header included.
	Length int

	// HeaderInjected reports whether a sprite-count header was prepended.
	HeaderInjected bool

	// Blocks is the parsed block count.
	Blocks int

	// Stream is the finalized stream. Nil unless resolution succeeded.
	Stream ir.Stream
}

// Pipeline wires a parser to the sinks a run emits to.
type Pipeline struct {
	Parser Parser

	// Sinks receive the finalized stream in order. The pipeline owns them
	// for the run and releases every one of them before Run returns.
	Sinks []ir.Sink

	// TempSlots is the temporary register count; zero selects
	// ir.DefaultTempSlots.
	TempSlots int

	// AfterParse is called with the parsed blocks before linearization.
	// An error aborts the run before any sink receives data.
	AfterParse func(blocks []ir.Block) error
}

// Run compiles one source text and emits it to every sink.
//
// Sinks that received the complete stream are closed; all others are
// discarded (or closed, if they cannot discard). Sinks already committed are
// not rolled back when a later sink fails.
func (p *Pipeline) Run(source string) (result *Result, err error) {
	result = &Result{}
	complete := make([]bool, len(p.Sinks))
	defer func() {
		if relErr := releaseSinks(p.Sinks, complete); relErr != nil {
			if err == nil {
				result.Status = StatusSinkFailure
			}
			err = errors.Join(err, relErr)
		}
	}()

	if strings.TrimSpace(source) == "" {
		result.Status = StatusEmptyInput
		return result, emptyInputError()
	}

	blocks, err := p.Parser.Parse(source)
	if err != nil {
		result.Status = StatusParseFailure
		return result, &Error{
			Code:     ErrCodeParse,
			Message:  "error while parsing input",
			Position: -1,
			Err:      err,
		}
	}
	result.Blocks = len(blocks)
	slog.Debug("source parsed", "blocks", len(blocks))

	if p.AfterParse != nil {
		if err := p.AfterParse(blocks); err != nil {
			result.Status = StatusSinkFailure
			return result, &Error{
				Code:     ErrCodeSink,
				Message:  "post-parse output failed",
				Position: -1,
				Err:      err,
			}
		}
	}

	stream := Linearize(blocks)
	if err := ResolveStorage(stream, ir.NewTempStorage(p.TempSlots)); err != nil {
		result.Status = StatusResolutionFailure
		return result, err
	}
	stream, injected := InjectHeader(stream)
	result.Stream = stream
	result.Length = len(stream)
	result.HeaderInjected = injected

	complete, err = Emit(stream, p.Sinks)
	if err != nil {
		if IsFinalizeError(err) {
			result.Status = StatusFinalizeFailure
		} else {
			result.Status = StatusSinkFailure
		}
		return result, err
	}

	result.Status = StatusSuccess
	slog.Debug("run complete", "actions", result.Length, "header", injected, "sinks", len(p.Sinks))
	return result, nil
}

// releaseSinks commits completed sinks and discards the rest.
func releaseSinks(sinks []ir.Sink, complete []bool) error {
	var errs []error
	for i, s := range sinks {
		var err error
		if d, ok := s.(ir.Discarder); ok && !complete[i] {
			err = d.Discard()
		} else {
			err = s.Close()
		}
		if err != nil {
			errs = append(errs, &Error{
				Code:     ErrCodeSink,
				Message:  "release failed",
				Position: -1,
				Sink:     s.Name(),
				Err:      err,
			})
		}
	}
	return errors.Join(errs...)
}
