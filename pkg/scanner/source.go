package scanner

import (
	"context"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
	"github.com/ajitpratap0/hivescan/pkg/inputformat"
	"github.com/ajitpratap0/hivescan/pkg/scanconf"
	"github.com/ajitpratap0/hivescan/pkg/schema"
	"github.com/ajitpratap0/hivescan/pkg/serde"
	"github.com/ajitpratap0/hivescan/pkg/storage"
)

// RequiredField is one projected column together with the accessor that
// extracts it from a deserialized row.
type RequiredField struct {
	schema.Column
	Ref *serde.FieldRef
}

// source pulls deserialized rows out of one split.
type source struct {
	file      storage.File
	reader    inputformat.RecordReader
	deser     serde.Deserializer
	inspector serde.StructInspector
	fields    []RequiredField
	closed    bool
}

// readerProperties builds the properties the reader and deserializer are
// initialised with. Pass-through keys are copied first so the derived table
// and projection properties always win.
func readerProperties(p *scanconf.Parameters, res *schema.Resolution) hiveconf.Properties {
	props := p.Extra.Clone()
	props[hiveconf.Columns] = strings.Join(p.ColumnNames, ",")
	props[hiveconf.ColumnTypes] = strings.Join(p.ColumnTypes, ":")
	props[hiveconf.SerializationLib] = p.Serde
	props[hiveconf.ColumnNumberMeta] = strconv.Itoa(len(p.ColumnNames))
	props.SetReadColumns(res.Indices(), res.Names())
	return props
}

// openSource opens the split and binds the reader and deserializer to it.
// On failure everything opened so far is released.
func openSource(ctx context.Context, p *scanconf.Parameters, res *schema.Resolution, active storage.ContextSource, log *zap.Logger) (_ *source, err error) {
	newReader, err := inputformat.Lookup(p.InputFormat)
	if err != nil {
		return nil, err
	}
	newSerde, err := serde.Lookup(p.Serde)
	if err != nil {
		return nil, err
	}

	props := readerProperties(p, res)
	s := &source{}
	defer func() {
		if err != nil {
			if cerr := s.close(); cerr != nil {
				log.Warn("release partially opened source", zap.Error(cerr))
			}
		}
	}()

	s.file, err = storage.Open(ctx, p.FileType, p.URI, props, active)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeSource, "open %s", p.URI).
			WithDetail("file_type", p.FileType.String())
	}

	s.reader, err = newReader(inputformat.Split{
		File:   s.file,
		Start:  p.SplitStart,
		Length: p.SplitLength,
		Format: p.FileFormat,
	}, props)
	if err != nil {
		return nil, keepKind(err, errors.ErrorTypeSource, "create reader "+p.InputFormat)
	}

	s.deser = newSerde()
	if err = s.deser.Initialize(props); err != nil {
		return nil, keepKind(err, errors.ErrorTypeSource, "initialize deserializer "+p.Serde)
	}
	s.inspector = s.deser.Inspector()

	// bound by declared position; inspector name lookups fold case
	refs := s.inspector.Fields()
	s.fields = make([]RequiredField, len(res.Columns))
	for i, col := range res.Columns {
		if col.Index < 0 || col.Index >= len(refs) {
			err = errors.Newf(errors.ErrorTypeSchema, "field %q at index %d outside a row of %d fields",
				col.Name, col.Index, len(refs)).
				WithDetail("field", col.Name)
			return nil, err
		}
		s.fields[i] = RequiredField{Column: col, Ref: refs[col.Index]}
	}
	return s, nil
}

// next returns the next deserialized row, or io.EOF at the end of the split.
func (s *source) next() (any, error) {
	raw, err := s.reader.Next()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, keepKind(err, errors.ErrorTypeSource, "read record")
	}
	row, err := s.deser.Deserialize(raw)
	if err != nil {
		return nil, keepKind(err, errors.ErrorTypeData, "deserialize record")
	}
	return row, nil
}

// close releases the reader and the file once. The reader is closed first
// because it may still reference the file.
func (s *source) close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var first error
	if s.reader != nil {
		if err := s.reader.Close(); err != nil {
			first = errors.Wrap(err, errors.ErrorTypeSource, "close reader")
		}
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil && first == nil {
			first = errors.Wrap(err, errors.ErrorTypeSource, "close file")
		}
	}
	return first
}

// keepKind wraps err, keeping its kind when it already carries one.
func keepKind(err error, fallback errors.ErrorType, message string) error {
	var typed *errors.Error
	if errors.As(err, &typed) {
		return errors.Wrap(err, typed.Type, message)
	}
	return errors.Wrap(err, fallback, message)
}
