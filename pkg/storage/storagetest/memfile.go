// Package storagetest provides in-memory files for tests of code that reads
// through storage.File.
package storagetest

import (
	"bytes"
	"sync/atomic"
)

// MemFile is a storage.File over a byte slice.
type MemFile struct {
	*bytes.Reader
	name   string
	closed atomic.Int32

	// CloseErr, when set, is returned by every Close.
	CloseErr error
}

// NewMemFile returns a file named name holding data.
func NewMemFile(name string, data []byte) *MemFile {
	return &MemFile{Reader: bytes.NewReader(data), name: name}
}

func (f *MemFile) Name() string { return f.name }

// Close counts calls so tests can check a file is released exactly once.
func (f *MemFile) Close() error {
	f.closed.Add(1)
	return f.CloseErr
}

// Closes reports how many times Close was called.
func (f *MemFile) Closes() int { return int(f.closed.Load()) }
