// Package inputformat provides the record readers a scan pulls raw rows
// from. Readers are registered under the Hive InputFormat class names that
// table metadata refers to, plus a short alias.
package inputformat

import (
	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
	"github.com/ajitpratap0/hivescan/pkg/registry"
	"github.com/ajitpratap0/hivescan/pkg/scanconf"
	"github.com/ajitpratap0/hivescan/pkg/storage"
)

// Registered input format class names.
const (
	RCFileInputFormat = "org.apache.hadoop.hive.ql.io.RCFileInputFormat"
	TextInputFormat   = "org.apache.hadoop.mapred.TextInputFormat"
	AvroInputFormat   = "org.apache.hadoop.hive.ql.io.avro.AvroContainerInputFormat"
)

// RecordReader pulls raw rows out of one split. The value returned by Next
// may share memory with the reader and is only valid until the next call.
// Next returns io.EOF once the split is exhausted.
type RecordReader interface {
	Next() (any, error)
	Close() error
}

// Split is the byte range of one file a reader is bound to.
type Split struct {
	File   storage.File
	Start  int64
	Length int64
	// Format is the host file format code. Text readers derive compression from it.
	Format scanconf.FileFormat
}

// End is the first byte past the split, clipped to the file size.
func (s Split) End() int64 {
	// compared as a difference so huge lengths cannot overflow
	if size := s.File.Size(); s.Length >= size-s.Start {
		return size
	}
	return s.Start + s.Length
}

// Factory creates a reader over split. props carry the projection and the
// pass-through table properties.
type Factory func(split Split, props hiveconf.Properties) (RecordReader, error)

var readers = registry.New[Factory]("input format")

func init() {
	readers.MustRegister(RCFileInputFormat, newRCFileReader, "rcfile")
	readers.MustRegister(TextInputFormat, newTextReader, "text", "org.apache.hadoop.mapreduce.lib.input.TextInputFormat")
	readers.MustRegister(AvroInputFormat, newAvroReader, "avro")
}

// Register adds a reader factory.
func Register(name string, f Factory, aliases ...string) error {
	return readers.Register(name, f, aliases...)
}

// Lookup returns the factory for a class name or alias.
func Lookup(name string) (Factory, error) {
	return readers.Lookup(name)
}

// Names lists the registered class names.
func Names() []string {
	return readers.List()
}

// Aliases lists the short names of a registered class.
func Aliases(name string) []string {
	return readers.Aliases(name)
}
