package testutil

import (
	"fmt"

	"github.com/roach88/nmlc/internal/ir"
)

// RecordingSink is an instrumented ir.Sink that keeps every record it is
// given. It can be scripted to fail at a given stream position.
//
// Trace events are "<name> write <label>", "<name> close", "<name> discard".
type RecordingSink struct {
	SinkName string
	Trace    *Trace
	Records  []ir.Record

	// FailAt makes the write at this position fail with FailErr. Negative
	// disables failure injection.
	FailAt  int
	FailErr error

	// CloseErr is returned by Close.
	CloseErr error

	Closed    bool
	Discarded bool
}

// NewRecordingSink creates a sink that never fails.
func NewRecordingSink(name string, trace *Trace) *RecordingSink {
	return &RecordingSink{SinkName: name, Trace: trace, FailAt: -1}
}

func (s *RecordingSink) Name() string { return s.SinkName }

func (s *RecordingSink) WriteRecord(r ir.Record) error {
	if s.Closed || s.Discarded {
		return fmt.Errorf("%s: write after release", s.SinkName)
	}
	if s.FailAt >= 0 && len(s.Records) == s.FailAt {
		return s.FailErr
	}
	s.Records = append(s.Records, r)
	s.Trace.Add(s.SinkName + " write " + r.Label)
	return nil
}

func (s *RecordingSink) Close() error {
	s.Closed = true
	s.Trace.Add(s.SinkName + " close")
	return s.CloseErr
}

func (s *RecordingSink) Discard() error {
	s.Discarded = true
	s.Trace.Add(s.SinkName + " discard")
	return nil
}

// Labels returns the label of every record in order.
func (s *RecordingSink) Labels() []string {
	labels := make([]string, len(s.Records))
	for i, r := range s.Records {
		labels[i] = r.Label
	}
	return labels
}

// CloseOnlySink is a RecordingSink that cannot discard.
type CloseOnlySink struct {
	inner *RecordingSink
}

// NewCloseOnlySink wraps a recording sink, hiding its Discard method.
func NewCloseOnlySink(inner *RecordingSink) *CloseOnlySink {
	return &CloseOnlySink{inner: inner}
}

func (s *CloseOnlySink) Name() string { return s.inner.Name() }

func (s *CloseOnlySink) WriteRecord(r ir.Record) error { return s.inner.WriteRecord(r) }

func (s *CloseOnlySink) Close() error { return s.inner.Close() }
