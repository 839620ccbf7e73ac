package inputformat

import (
	"bufio"
	"bytes"
	"io"

	"github.com/ajitpratap0/hivescan/pkg/compression"
	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
	"github.com/ajitpratap0/hivescan/pkg/scanconf"
)

const textBufferSize = 64 * 1024

// textReader yields one []byte per line, without the line terminator.
//
// Uncompressed files split the Hadoop way: a split that does not start at
// offset zero skips its first, possibly partial, line, and a split reads
// every line that starts at or before its end. Compressed files cannot be
// split, so the split that starts at offset zero reads the whole file and
// every other split is empty.
type textReader struct {
	br     *bufio.Reader
	closer io.Closer
	pos    int64
	end    int64
	line   []byte
	done   bool
}

func newTextReader(split Split, _ hiveconf.Properties) (RecordReader, error) {
	codec, err := textCodec(split)
	if err != nil {
		return nil, err
	}

	size := split.File.Size()
	end := split.End()

	if codec != nil {
		if split.Start != 0 || split.Length == 0 {
			return &textReader{done: true}, nil
		}
		rc, err := codec.NewReader(io.NewSectionReader(split.File, 0, size))
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeData, "open %s stream", codec.Algorithm())
		}
		return &textReader{
			br:     bufio.NewReaderSize(rc, textBufferSize),
			closer: rc,
			end:    -1,
		}, nil
	}

	if split.Start >= end {
		return &textReader{done: true}, nil
	}
	r := &textReader{
		br:  bufio.NewReaderSize(io.NewSectionReader(split.File, split.Start, size-split.Start), textBufferSize),
		pos: split.Start,
		end: end,
	}
	if split.Start != 0 {
		// the previous split owns the line running through our start
		if _, err := r.readLine(); err != nil && err != io.EOF {
			return nil, err
		}
	}
	return r, nil
}

// textCodec picks the decompressor for a split from its format code, or from
// the file extension when the format does not say.
func textCodec(split Split) (compression.Codec, error) {
	var name compression.Algorithm
	switch split.Format {
	case scanconf.FormatCSVPlain:
		return nil, nil
	case scanconf.FormatCSVGzip:
		name = compression.Gzip
	case scanconf.FormatCSVLZ4Frame:
		name = compression.LZ4Frame
	case scanconf.FormatCSVDeflate:
		name = compression.Deflate
	case scanconf.FormatCSVSnappy:
		name = compression.Snappy
	case scanconf.FormatCSVBzip2, scanconf.FormatCSVLZO:
		return nil, errors.Newf(errors.ErrorTypeConfiguration, "text compression %s is not supported", split.Format).
			WithDetail("file_format", int32(split.Format))
	default:
		return compression.ForPath(split.File.Name()), nil
	}
	return compression.ForName(string(name))
}

func (r *textReader) Next() (any, error) {
	if r.done {
		return nil, io.EOF
	}
	if r.end >= 0 && r.pos > r.end {
		r.done = true
		return nil, io.EOF
	}
	line, err := r.readLine()
	if err != nil {
		if err == io.EOF {
			r.done = true
		}
		return nil, err
	}
	return line, nil
}

// readLine returns the next line and advances pos past its terminator. It
// returns io.EOF only when no bytes remain.
func (r *textReader) readLine() ([]byte, error) {
	r.line = r.line[:0]
	for {
		chunk, err := r.br.ReadSlice('\n')
		r.pos += int64(len(chunk))
		r.line = append(r.line, chunk...)
		switch err {
		case nil:
			return trimEOL(r.line), nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			if len(r.line) == 0 {
				return nil, io.EOF
			}
			return trimEOL(r.line), nil
		default:
			return nil, errors.Wrap(err, errors.ErrorTypeSource, "read text line")
		}
	}
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte{'\n'})
	return bytes.TrimSuffix(line, []byte{'\r'})
}

func (r *textReader) Close() error {
	r.done = true
	if r.closer != nil {
		c := r.closer
		r.closer = nil
		return c.Close()
	}
	return nil
}
