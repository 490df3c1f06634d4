package ir

import (
	"errors"
	"fmt"
)

// Kind discriminates the actions the pipeline treats differently.
type Kind int

const (
	// KindGeneric actions are only finalized and written.
	KindGeneric Kind = iota
	// KindStorageResolving actions take part in the backward storage pass.
	KindStorageResolving
	// KindEntryPoint actions mark a callable unit and trigger header injection.
	KindEntryPoint
	// KindHeader is the synthetic sprite-count header.
	KindHeader
)

// Kinds lists every valid Kind in declaration order.
var Kinds = []Kind{KindGeneric, KindStorageResolving, KindEntryPoint, KindHeader}

func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindStorageResolving:
		return "storage_resolving"
	case KindEntryPoint:
		return "entry_point"
	case KindHeader:
		return "header"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= KindGeneric && k <= KindHeader
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown action kind %q", s)
}

// Action is one unit of compiled output.
//
// The pipeline calls ResolveStorage only on KindStorageResolving actions,
// Finalize exactly once per run, and WriteTo once per sink afterwards.
type Action interface {
	Kind() Kind
	Label() string
	ResolveStorage(ts *TempStorage) error
	Finalize() error
	WriteTo(w Writer) error
}

// Block is one top-level source construct.
type Block interface {
	// Name identifies the block in diagnostics.
	Name() string

	// Actions returns the block's actions in emission order.
	Actions() []Action

	// Source renders the block back to normalized source text, as one
	// element of the blocks list.
	Source() (string, error)
}

// Stream is the ordered action sequence owned by one compilation run.
type Stream []Action

// Kinds returns the kind of every action in order.
func (s Stream) Kinds() []Kind {
	kinds := make([]Kind, len(s))
	for i, a := range s {
		kinds[i] = a.Kind()
	}
	return kinds
}

// Record is the finalized wire unit an action hands to a sink.
type Record struct {
	Kind  Kind
	Label string
	Data  []byte
}

// Size returns the payload length in bytes.
func (r Record) Size() int {
	return len(r.Data)
}

// Writer accepts records in stream order.
type Writer interface {
	WriteRecord(r Record) error
}

// Sink is an output destination for a finalized stream.
type Sink interface {
	Writer
	Name() string
	Close() error
}

// Discarder is implemented by sinks that can drop everything written so far.
// The pipeline calls Discard instead of Close when a run does not complete.
type Discarder interface {
	Discard() error
}

var (
	// ErrSinkFatal marks a sink failure that must abort the whole write pass.
	ErrSinkFatal = errors.New("fatal sink error")

	// ErrNotFinalized is returned by WriteTo before Finalize succeeded.
	ErrNotFinalized = errors.New("action not finalized")

	// ErrAlreadyFinalized is returned by a second Finalize call.
	ErrAlreadyFinalized = errors.New("action already finalized")
)

// base carries the record bookkeeping shared by the concrete actions.
type base struct {
	label     string
	record    Record
	finalized bool
}

func (b *base) Label() string {
	return b.label
}

// ResolveStorage is a no-op for actions that hold no temporaries.
func (b *base) ResolveStorage(*TempStorage) error {
	return nil
}

func (b *base) seal(kind Kind, data []byte) error {
	if b.finalized {
		return fmt.Errorf("%s: %w", b.label, ErrAlreadyFinalized)
	}
	b.record = Record{Kind: kind, Label: b.label, Data: data}
	b.finalized = true
	return nil
}

func (b *base) WriteTo(w Writer) error {
	if !b.finalized {
		return fmt.Errorf("%s: %w", b.label, ErrNotFinalized)
	}
	return w.WriteRecord(b.record)
}

// Record returns the finalized record and whether Finalize has run.
func (b *base) Record() (Record, bool) {
	return b.record, b.finalized
}
