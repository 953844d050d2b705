// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tdmsync

import (
	"io"
	"os"
)

// ByteStream is the capability the core needs from a file-like collaborator:
// blocking reads into a caller-supplied buffer (a short read at EOF is an
// error, since every read here is for a fixed, previously-known size),
// blocking writes, absolute seeks, a tell, and a size. Concrete
// implementations may be backed by an *os.File or, for tests, by an
// in-memory buffer; either way the core treats them identically and never
// shares one across goroutines.
type ByteStream interface {
	// Read fills buf entirely or returns an error; a short read is always
	// an error, including io.EOF.
	Read(buf []byte) error
	// Write drains all of p or returns an error.
	Write(p []byte) error
	// Seek moves the stream's cursor to an absolute byte position.
	Seek(pos int64) error
	// Tell returns the stream's current cursor position.
	Tell() (int64, error)
	// Size returns the total length of the underlying data.
	Size() (int64, error)
}

// FileStream adapts an *os.File to ByteStream.
type FileStream struct {
	f *os.File
}

// NewFileStream wraps an already-open file. The caller owns closing it.
func NewFileStream(f *os.File) *FileStream {
	return &FileStream{f: f}
}

// OpenFileStream opens name with the given flag/perm (as os.OpenFile) and
// wraps it. The returned stream owns the file and Close releases it.
func OpenFileStream(name string, flag int, perm os.FileMode) (*FileStream, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, newError(KindIO, err, "opening %s", name)
	}
	return &FileStream{f: f}, nil
}

func (s *FileStream) Read(buf []byte) error {
	_, err := io.ReadFull(s.f, buf)
	if err != nil {
		return newError(KindIO, err, "reading %d bytes", len(buf))
	}
	return nil
}

func (s *FileStream) Write(p []byte) error {
	n, err := s.f.Write(p)
	if err != nil {
		return newError(KindIO, err, "writing %d bytes", len(p))
	}
	if n != len(p) {
		return newError(KindIO, nil, "short write: wrote %d of %d bytes", n, len(p))
	}
	return nil
}

func (s *FileStream) Seek(pos int64) error {
	_, err := s.f.Seek(pos, io.SeekStart)
	if err != nil {
		return newError(KindIO, err, "seeking to %d", pos)
	}
	return nil
}

func (s *FileStream) Tell() (int64, error) {
	pos, err := s.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, newError(KindIO, err, "tell")
	}
	return pos, nil
}

func (s *FileStream) Size() (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, newError(KindIO, err, "stat")
	}
	return fi.Size(), nil
}

// Close releases the underlying file.
func (s *FileStream) Close() error {
	return s.f.Close()
}

// MemStream is an in-memory ByteStream backed by a []byte, used by tests and
// by any caller who already holds the whole file in memory. It grows on
// write past its current length, like a file does.
type MemStream struct {
	buf []byte
	pos int64
}

// NewMemStream wraps data for reading and, if writes extend past len(data),
// growing. The slice is used directly, not copied.
func NewMemStream(data []byte) *MemStream {
	return &MemStream{buf: data}
}

// Bytes returns the stream's current backing slice.
func (s *MemStream) Bytes() []byte {
	return s.buf
}

func (s *MemStream) Read(buf []byte) error {
	if s.pos < 0 || s.pos+int64(len(buf)) > int64(len(s.buf)) {
		return newError(KindIO, io.ErrUnexpectedEOF, "short read at %d of %d bytes", s.pos, len(buf))
	}
	n := copy(buf, s.buf[s.pos:s.pos+int64(len(buf))])
	s.pos += int64(n)
	return nil
}

func (s *MemStream) Write(p []byte) error {
	end := s.pos + int64(len(p))
	if end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.pos:end], p)
	s.pos = end
	return nil
}

func (s *MemStream) Seek(pos int64) error {
	if pos < 0 {
		return newError(KindIO, nil, "negative seek to %d", pos)
	}
	s.pos = pos
	return nil
}

func (s *MemStream) Tell() (int64, error) {
	return s.pos, nil
}

func (s *MemStream) Size() (int64, error) {
	return int64(len(s.buf)), nil
}

// readAt is a small helper used by Apply: read size bytes from src at
// offset off without disturbing the eventual need for a sequential cursor
// elsewhere, by seeking first.
func readAt(src ByteStream, off, size int64) ([]byte, error) {
	if err := src.Seek(off); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if err := src.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

