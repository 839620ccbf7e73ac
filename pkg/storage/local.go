package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
	"github.com/ajitpratap0/hivescan/pkg/mmap"
)

// LocalMmap selects memory-mapped reads for local files.
const LocalMmap = "local.mmap"

type localFile struct {
	*os.File
	size int64
}

func (f *localFile) Size() int64 { return f.size }

// LocalPath strips a file:// scheme.
func LocalPath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		return strings.TrimPrefix(uri, "file://")
	}
	return strings.TrimPrefix(uri, "file:")
}

func openLocal(_ context.Context, uri string, props hiveconf.Properties, _ ContextSource) (File, error) {
	if props.Bool(LocalMmap, false) {
		m, err := mmap.Open(LocalPath(uri))
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	f, err := os.Open(LocalPath(uri))
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", uri)
	}
	return &localFile{File: f, size: fi.Size()}, nil
}
