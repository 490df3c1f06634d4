package sink

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/nmlc/internal/ir"
)

// NFOInfoVersion is the listing format version written in the header.
const NFOInfoVersion = 32

const nfoHeader = "// Automatically generated by nmlc. Do not modify!\n" +
	"// (Info version %d)\n" +
	"// Format: spritenum pcxfile xpos ypos compression ysize xsize xrel yrel\n"

// NFOOptions tunes the listing.
type NFOOptions struct {
	// OmitLabels drops the "// label" line before each pseudo-sprite.
	OmitLabels bool
}

// NFOSink writes a text listing of the stream.
type NFOSink struct {
	state
	out     target
	opts    NFOOptions
	next    int
	started bool
}

// OpenNFOFile creates an NFO sink that replaces path on Close.
func OpenNFOFile(path string, opts NFOOptions) (*NFOSink, error) {
	t, err := createFileTarget(path)
	if err != nil {
		return nil, err
	}
	return &NFOSink{state: state{name: "nfo:" + path}, out: t, opts: opts}, nil
}

// NewNFO creates an NFO sink that copies the listing to w on Close.
func NewNFO(name string, w io.Writer, opts NFOOptions) *NFOSink {
	return &NFOSink{state: state{name: name}, out: &writerTarget{w: w}, opts: opts}
}

func (s *NFOSink) writeHeader() error {
	if s.started {
		return nil
	}
	s.started = true
	_, err := fmt.Fprintf(s.out, nfoHeader, NFOInfoVersion)
	return err
}

func (s *NFOSink) WriteRecord(r ir.Record) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.writeHeader(); err != nil {
		return err
	}
	if !s.opts.OmitLabels && r.Label != "" {
		if _, err := fmt.Fprintf(s.out, "// %s\n", r.Label); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.out, "%5d * %d\t %s\n", s.next, r.Size(), hexBytes(r.Data)); err != nil {
		return err
	}
	s.next++
	return nil
}

// Close writes the header for empty streams and commits the listing.
func (s *NFOSink) Close() error {
	if !s.release() {
		return nil
	}
	if err := s.writeHeader(); err != nil {
		s.out.abort()
		return err
	}
	if err := s.out.commit(); err != nil {
		return err
	}
	slog.Debug("nfo written", "sink", s.name, "sprites", s.next)
	return nil
}

func (s *NFOSink) Discard() error {
	if !s.release() {
		return nil
	}
	return s.out.abort()
}

// hexBytes renders data as space separated upper-case hex pairs.
func hexBytes(data []byte) string {
	var b strings.Builder
	b.Grow(len(data) * 3)
	for i, c := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", c)
	}
	return b.String()
}
