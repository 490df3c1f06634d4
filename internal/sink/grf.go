package sink

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"

	"github.com/roach88/nmlc/internal/ir"
)

// GRFSignature opens every container version 2 file.
var GRFSignature = []byte{0x00, 0x00, 'G', 'R', 'F', 0x82, 0x0D, 0x0A, 0x1A, 0x0A}

const (
	grfCompressionNone = 0x00
	grfPseudoSprite    = 0xFF
)

// GRFSink encodes the stream as a GRF container.
//
// Layout: signature, uint32 offset of the sprite section counted from the
// byte after the offset, compression byte, data section, sprite section.
// Each data section entry is uint32 size, 0xFF, payload. Both sections end
// with a zero uint32; the sprite section is otherwise empty.
type GRFSink struct {
	state
	out     target
	data    bytes.Buffer
	sprites int
}

// OpenGRFFile creates a GRF sink that replaces path on Close.
func OpenGRFFile(path string) (*GRFSink, error) {
	t, err := createFileTarget(path)
	if err != nil {
		return nil, err
	}
	return &GRFSink{state: state{name: "grf:" + path}, out: t}, nil
}

// NewGRF creates a GRF sink that copies the container to w on Close.
func NewGRF(name string, w io.Writer) *GRFSink {
	return &GRFSink{state: state{name: name}, out: &writerTarget{w: w}}
}

func (s *GRFSink) WriteRecord(r ir.Record) error {
	if err := s.check(); err != nil {
		return err
	}
	s.data.Write(binary.LittleEndian.AppendUint32(nil, uint32(r.Size())))
	s.data.WriteByte(grfPseudoSprite)
	s.data.Write(r.Data)
	s.sprites++
	return nil
}

// Close assembles the container and commits it.
func (s *GRFSink) Close() error {
	if !s.release() {
		return nil
	}
	if err := s.assemble(); err != nil {
		s.out.abort()
		return err
	}
	if err := s.out.commit(); err != nil {
		return err
	}
	slog.Debug("grf written", "sink", s.name, "sprites", s.sprites)
	return nil
}

func (s *GRFSink) assemble() error {
	// compression byte + data section + terminator
	offset := uint32(1 + s.data.Len() + 4)

	var buf bytes.Buffer
	buf.Write(GRFSignature)
	buf.Write(binary.LittleEndian.AppendUint32(nil, offset))
	buf.WriteByte(grfCompressionNone)
	buf.Write(s.data.Bytes())
	buf.Write(binary.LittleEndian.AppendUint32(nil, 0))
	buf.Write(binary.LittleEndian.AppendUint32(nil, 0))

	_, err := s.out.Write(buf.Bytes())
	return err
}

func (s *GRFSink) Discard() error {
	if !s.release() {
		return nil
	}
	s.data.Reset()
	return s.out.abort()
}
