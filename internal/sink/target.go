package sink

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// target is where a sink's bytes go. Nothing is visible at the destination
// until commit; abort throws the bytes away.
type target interface {
	io.Writer
	commit() error
	abort() error
}

// fileTarget writes to a temporary file in the destination directory and
// renames it over the destination on commit.
type fileTarget struct {
	path string
	tmp  *os.File
	buf  *bufio.Writer
}

func createFileTarget(path string) (*fileTarget, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &fileTarget{path: path, tmp: tmp, buf: bufio.NewWriter(tmp)}, nil
}

func (t *fileTarget) Write(p []byte) (int, error) {
	n, err := t.buf.Write(p)
	return n, wrapWriteErr(t.path, err)
}

func (t *fileTarget) commit() error {
	if err := t.buf.Flush(); err != nil {
		t.abort()
		return wrapWriteErr(t.path, err)
	}
	if err := t.tmp.Sync(); err != nil {
		t.abort()
		return wrapWriteErr(t.path, err)
	}
	if err := t.tmp.Close(); err != nil {
		os.Remove(t.tmp.Name())
		return wrapWriteErr(t.path, err)
	}
	if err := os.Rename(t.tmp.Name(), t.path); err != nil {
		os.Remove(t.tmp.Name())
		return fmt.Errorf("rename %s: %w", t.path, err)
	}
	return nil
}

func (t *fileTarget) abort() error {
	closeErr := t.tmp.Close()
	removeErr := os.Remove(t.tmp.Name())
	if errors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}
	return errors.Join(closeErr, removeErr)
}

// StagedFile is a plain file that appears at its path only on Commit.
// It gives outputs written outside a sink the same all-or-nothing rule.
type StagedFile struct {
	t *fileTarget
}

// CreateStagedFile starts a staged write of path.
func CreateStagedFile(path string) (*StagedFile, error) {
	t, err := createFileTarget(path)
	if err != nil {
		return nil, err
	}
	return &StagedFile{t: t}, nil
}

// Path returns the destination path.
func (f *StagedFile) Path() string {
	return f.t.path
}

func (f *StagedFile) Write(p []byte) (int, error) {
	return f.t.Write(p)
}

// Commit moves the written bytes into place.
func (f *StagedFile) Commit() error {
	return f.t.commit()
}

// Abort removes the staged bytes and leaves the destination untouched.
func (f *StagedFile) Abort() error {
	return f.t.abort()
}

// writerTarget holds bytes in memory and copies them to w on commit.
type writerTarget struct {
	w   io.Writer
	buf bytes.Buffer
}

func (t *writerTarget) Write(p []byte) (int, error) {
	return t.buf.Write(p)
}

func (t *writerTarget) commit() error {
	_, err := t.w.Write(t.buf.Bytes())
	t.buf.Reset()
	return err
}

func (t *writerTarget) abort() error {
	t.buf.Reset()
	return nil
}

// state tracks release so every sink rejects late writes the same way.
type state struct {
	name     string
	released bool
}

func (s *state) Name() string {
	return s.name
}

func (s *state) check() error {
	if s.released {
		return fmt.Errorf("%s: %w", s.name, ErrReleased)
	}
	return nil
}

// release marks the sink released; a second release is a no-op.
func (s *state) release() bool {
	if s.released {
		return false
	}
	s.released = true
	return true
}
