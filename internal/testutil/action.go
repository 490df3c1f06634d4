package testutil

import (
	"fmt"

	"github.com/roach88/nmlc/internal/ir"
)

// FakeAction is a scripted ir.Action that counts and traces every call.
//
// Trace events are "resolve <label>", "finalize <label>".
type FakeAction struct {
	ActionKind  ir.Kind
	Name        string
	Payload     []byte
	Trace       *Trace
	ResolveErr  error
	FinalizeErr error

	ResolveCalls  int
	FinalizeCalls int
	WriteCalls    int

	finalized bool
}

// NewFakeAction creates a fake action whose payload is its label.
func NewFakeAction(kind ir.Kind, label string, trace *Trace) *FakeAction {
	return &FakeAction{
		ActionKind: kind,
		Name:       label,
		Payload:    []byte(label),
		Trace:      trace,
	}
}

func (a *FakeAction) Kind() ir.Kind { return a.ActionKind }

func (a *FakeAction) Label() string { return a.Name }

func (a *FakeAction) ResolveStorage(*ir.TempStorage) error {
	a.ResolveCalls++
	a.Trace.Add("resolve " + a.Name)
	return a.ResolveErr
}

func (a *FakeAction) Finalize() error {
	a.FinalizeCalls++
	a.Trace.Add("finalize " + a.Name)
	if a.FinalizeErr != nil {
		return a.FinalizeErr
	}
	a.finalized = true
	return nil
}

func (a *FakeAction) WriteTo(w ir.Writer) error {
	a.WriteCalls++
	if !a.finalized {
		return ir.ErrNotFinalized
	}
	return w.WriteRecord(ir.Record{Kind: a.ActionKind, Label: a.Name, Data: a.Payload})
}

// FakeBlock is an ir.Block over a fixed action list.
type FakeBlock struct {
	BlockName string
	Acts      []ir.Action
}

// NewFakeBlock creates a block yielding actions in order.
func NewFakeBlock(name string, actions ...ir.Action) *FakeBlock {
	return &FakeBlock{BlockName: name, Acts: actions}
}

func (b *FakeBlock) Name() string { return b.BlockName }

func (b *FakeBlock) Actions() []ir.Action {
	return append([]ir.Action(nil), b.Acts...)
}

func (b *FakeBlock) Source() (string, error) {
	return fmt.Sprintf("{kind: %q}", b.BlockName), nil
}

// StaticParser returns a fixed block list or error, counting calls.
type StaticParser struct {
	Blocks []ir.Block
	Err    error
	Calls  int
}

func (p *StaticParser) Parse(string) ([]ir.Block, error) {
	p.Calls++
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Blocks, nil
}
