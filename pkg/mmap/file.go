// Package mmap serves local files from a read-only memory mapping.
package mmap

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// File is a memory-mapped, read-only file. ReadAt copies out of the mapping
// and is safe for concurrent use until Close.
type File struct {
	name   string
	data   []byte
	closed atomic.Bool
}

// Open maps the whole of path. The descriptor is closed once the mapping
// exists.
func Open(path string) (*File, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is the scanned file
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	m := &File{name: path}
	size := fi.Size()
	if size == 0 {
		// mmap rejects empty mappings
		return m, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("%s: %d bytes cannot be mapped", path, size)
	}

	m.data, err = mmap(int(f.Fd()), int(size))
	if err != nil {
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}
	// Advise kernel about access pattern. Failure only costs read-ahead.
	_ = madviseSequential(m.data)
	return m, nil
}

func (m *File) Name() string { return m.name }

func (m *File) Size() int64 { return int64(len(m.data)) }

func (m *File) ReadAt(p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("%s: negative offset %d", m.name, off)
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the file. Later calls are no-ops.
func (m *File) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	return munmap(data)
}
