package sink

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/nmlc/internal/ir"
)

// JSONSink writes the stream as canonical JSON:
//
//	{"actions":[{"data":"..","kind":"..","label":"..","position":0}],"count":1}
type JSONSink struct {
	state
	out     target
	records []any
}

// OpenJSONFile creates a JSON sink that replaces path on Close.
func OpenJSONFile(path string) (*JSONSink, error) {
	t, err := createFileTarget(path)
	if err != nil {
		return nil, err
	}
	return &JSONSink{state: state{name: "json:" + path}, out: t}, nil
}

// NewJSON creates a JSON sink that copies the document to w on Close.
func NewJSON(name string, w io.Writer) *JSONSink {
	return &JSONSink{state: state{name: name}, out: &writerTarget{w: w}}
}

func (s *JSONSink) WriteRecord(r ir.Record) error {
	if err := s.check(); err != nil {
		return err
	}
	s.records = append(s.records, ir.CanonicalRecord(len(s.records), r))
	return nil
}

func (s *JSONSink) Close() error {
	if !s.release() {
		return nil
	}
	actions := s.records
	if actions == nil {
		actions = []any{}
	}
	doc, err := ir.MarshalCanonical(map[string]any{
		"actions": actions,
		"count":   len(s.records),
	})
	if err != nil {
		s.out.abort()
		return fmt.Errorf("%s: %w", s.name, err)
	}
	if _, err := s.out.Write(append(doc, '\n')); err != nil {
		s.out.abort()
		return err
	}
	if err := s.out.commit(); err != nil {
		return err
	}
	slog.Debug("json written", "sink", s.name, "records", len(s.records))
	return nil
}

func (s *JSONSink) Discard() error {
	if !s.release() {
		return nil
	}
	s.records = nil
	return s.out.abort()
}
