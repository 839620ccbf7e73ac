// Package storage opens the file behind a split for random access reads.
//
// Local files are read with pread. Object stores are read with one ranged
// GET per ReadAt, so readers only fetch the byte ranges they touch. Remote
// reads run under the context returned by the file's ContextSource, which
// lets the caller bound every read by the call currently in progress.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
	"github.com/ajitpratap0/hivescan/pkg/registry"
	"github.com/ajitpratap0/hivescan/pkg/scanconf"
)

// File is an open, immutable file.
type File interface {
	io.ReaderAt
	io.Closer
	Size() int64
	Name() string
}

// ContextSource returns the context remote reads should run under.
type ContextSource func() context.Context

// Backend opens files of one storage type.
type Backend interface {
	Open(ctx context.Context, uri string, props hiveconf.Properties, active ContextSource) (File, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, uri string, props hiveconf.Properties, active ContextSource) (File, error)

// Open calls f.
func (f BackendFunc) Open(ctx context.Context, uri string, props hiveconf.Properties, active ContextSource) (File, error) {
	return f(ctx, uri, props, active)
}

var backends = registry.New[Backend]("storage backend")

func init() {
	backends.MustRegister(scanconf.FileTypeLocal.String(), BackendFunc(openLocal))
	backends.MustRegister(scanconf.FileTypeS3.String(), BackendFunc(openS3))
	backends.MustRegister(scanconf.FileTypeGCS.String(), BackendFunc(openGCS))
}

// Register installs a backend for a file type that has none yet.
func Register(t scanconf.FileType, b Backend) error {
	return backends.Register(t.String(), b)
}

// Open opens uri on the backend selected by t. active may be nil, in which
// case remote reads use ctx.
func Open(ctx context.Context, t scanconf.FileType, uri string, props hiveconf.Properties, active ContextSource) (File, error) {
	b, err := backends.Lookup(t.String())
	if err != nil {
		return nil, err
	}
	if active == nil {
		active = func() context.Context { return ctx }
	}
	return b.Open(ctx, uri, props, active)
}

// Stat returns the size of uri.
func Stat(ctx context.Context, t scanconf.FileType, uri string, props hiveconf.Properties) (int64, error) {
	f, err := Open(ctx, t, uri, props, nil)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.Size(), nil
}

// InferFileType guesses the file type from the URI scheme.
func InferFileType(uri string) scanconf.FileType {
	scheme, _, ok := strings.Cut(uri, "://")
	if !ok {
		return scanconf.FileTypeLocal
	}
	switch strings.ToLower(scheme) {
	case "s3", "s3a", "s3n", "oss", "cos", "obs":
		return scanconf.FileTypeS3
	case "gs", "gcs":
		return scanconf.FileTypeGCS
	case "hdfs", "viewfs":
		return scanconf.FileTypeHDFS
	}
	return scanconf.FileTypeLocal
}

// Location is a parsed object store URI.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

// ParseLocation splits scheme://bucket/key.
func ParseLocation(uri string) (Location, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("invalid uri %q: %w", uri, err)
	}
	loc := Location{
		Scheme: strings.ToLower(u.Scheme),
		Bucket: u.Host,
		Key:    strings.TrimPrefix(u.Path, "/"),
	}
	if loc.Scheme == "" || loc.Bucket == "" || loc.Key == "" {
		return Location{}, fmt.Errorf("invalid uri %q: expected scheme://bucket/key", uri)
	}
	return loc, nil
}

// rangeSource fetches byte ranges of one remote object.
type rangeSource interface {
	readRange(ctx context.Context, off, n int64) (io.ReadCloser, error)
	close() error
}

// rangeFile serves ReadAt with one ranged request per call.
type rangeFile struct {
	name   string
	size   int64
	src    rangeSource
	active ContextSource
}

func (f *rangeFile) Name() string { return f.name }
func (f *rangeFile) Size() int64  { return f.size }
func (f *rangeFile) Close() error { return f.src.close() }

func (f *rangeFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%s: negative offset %d", f.name, off)
	}
	if off >= f.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	n := int64(len(p))
	if off+n > f.size {
		n = f.size - off
	}

	body, err := f.src.readRange(f.active(), off, n)
	if err != nil {
		return 0, fmt.Errorf("%s: read %d bytes at %d: %w", f.name, n, off, err)
	}
	defer body.Close()

	read, err := io.ReadFull(body, p[:n])
	if err != nil {
		return read, fmt.Errorf("%s: read %d bytes at %d: %w", f.name, n, off, err)
	}
	if n < int64(len(p)) {
		return read, io.EOF
	}
	return read, nil
}
