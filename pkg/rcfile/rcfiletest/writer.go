// Package rcfiletest writes small RCFiles for tests.
package rcfiletest

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/ajitpratap0/hivescan/pkg/compression"
	"github.com/ajitpratap0/hivescan/pkg/rcfile"
)

// DefaultSync is the sync marker used when Options.Sync is zero.
var DefaultSync = [rcfile.SyncSize]byte{
	0x5a, 0x11, 0x90, 0x3c, 0x7e, 0x02, 0xd1, 0x48,
	0xa3, 0x66, 0x0f, 0xbb, 0x21, 0xc4, 0x9d, 0x37,
}

// Options configure a Writer.
type Options struct {
	// Codec is a Hadoop codec class name or alias; empty writes uncompressed.
	Codec string
	// RowsPerGroup caps the rows of one row group. Defaults to 100.
	RowsPerGroup int
	// SkipFirstSync omits the sync marker in front of the first row group.
	SkipFirstSync bool
	Sync          [rcfile.SyncSize]byte
	Metadata      map[string]string
}

// Writer writes rows column-wise, flushing a row group every RowsPerGroup
// rows. A sync marker precedes each row group.
type Writer struct {
	w       io.Writer
	opts    Options
	codec   compression.Codec
	columns int
	pending [][][]byte
	groups  int
	err     error
}

// NewWriter writes the file header for columns columns.
func NewWriter(w io.Writer, columns int, opts Options) (*Writer, error) {
	if opts.RowsPerGroup <= 0 {
		opts.RowsPerGroup = 100
	}
	if opts.Sync == ([rcfile.SyncSize]byte{}) {
		opts.Sync = DefaultSync
	}
	wr := &Writer{w: w, opts: opts, columns: columns}

	var hdr []byte
	hdr = append(hdr, rcfile.Magic...)
	hdr = append(hdr, rcfile.Version)
	if opts.Codec != "" {
		codec, err := compression.ForName(opts.Codec)
		if err != nil {
			return nil, err
		}
		wr.codec = codec
		hdr = append(hdr, 1)
		hdr = rcfile.AppendText(hdr, opts.Codec)
	} else {
		hdr = append(hdr, 0)
	}

	meta := map[string]string{rcfile.ColumnNumberKey: strconv.Itoa(columns)}
	for k, v := range opts.Metadata {
		meta[k] = v
	}
	hdr = binary.BigEndian.AppendUint32(hdr, uint32(len(meta)))
	for k, v := range meta {
		hdr = rcfile.AppendText(hdr, k)
		hdr = rcfile.AppendText(hdr, v)
	}
	hdr = append(hdr, opts.Sync[:]...)

	if _, err := w.Write(hdr); err != nil {
		return nil, err
	}
	return wr, nil
}

// Append buffers one row; cells must have one entry per column.
func (w *Writer) Append(cells ...[]byte) error {
	if w.err != nil {
		return w.err
	}
	if len(cells) != w.columns {
		return fmt.Errorf("rcfiletest: %d cells for %d columns", len(cells), w.columns)
	}
	w.pending = append(w.pending, cells)
	if len(w.pending) >= w.opts.RowsPerGroup {
		w.err = w.flush()
	}
	return w.err
}

// AppendStrings is Append for text cells.
func (w *Writer) AppendStrings(cells ...string) error {
	row := make([][]byte, len(cells))
	for i, c := range cells {
		row[i] = []byte(c)
	}
	return w.Append(row...)
}

// Close flushes the last row group.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	if len(w.pending) > 0 {
		w.err = w.flush()
	}
	return w.err
}

func (w *Writer) flush() error {
	rows := w.pending
	w.pending = nil

	key := rcfile.AppendVLong(nil, int64(len(rows)))
	values := make([][]byte, w.columns)
	for c := 0; c < w.columns; c++ {
		var plain []byte
		lengths := make([]int, len(rows))
		for r, row := range rows {
			plain = append(plain, row[c]...)
			lengths[r] = len(row[c])
		}
		stored := plain
		if w.codec != nil {
			var err error
			if stored, err = w.codec.Compress(plain); err != nil {
				return err
			}
		}
		cellLens := encodeRunLengths(lengths)

		key = rcfile.AppendVLong(key, int64(len(stored)))
		key = rcfile.AppendVLong(key, int64(len(plain)))
		key = rcfile.AppendVLong(key, int64(len(cellLens)))
		key = append(key, cellLens...)
		values[c] = stored
	}

	storedKey := key
	if w.codec != nil {
		var err error
		if storedKey, err = w.codec.Compress(key); err != nil {
			return err
		}
	}

	valueLen := 0
	for _, v := range values {
		valueLen += len(v)
	}

	var out []byte
	if w.groups > 0 || !w.opts.SkipFirstSync {
		out = binary.BigEndian.AppendUint32(out, 0xFFFFFFFF)
		out = append(out, w.opts.Sync[:]...)
	}
	out = binary.BigEndian.AppendUint32(out, uint32(len(storedKey)+valueLen))
	out = binary.BigEndian.AppendUint32(out, uint32(len(key)))
	out = binary.BigEndian.AppendUint32(out, uint32(len(storedKey)))
	out = append(out, storedKey...)
	for _, v := range values {
		out = append(out, v...)
	}
	w.groups++
	_, err := w.w.Write(out)
	return err
}

// encodeRunLengths writes each distinct run as a length followed, when the
// length repeats, by the bitwise complement of the extra repetitions.
func encodeRunLengths(lengths []int) []byte {
	var out []byte
	for i := 0; i < len(lengths); {
		j := i + 1
		for j < len(lengths) && lengths[j] == lengths[i] {
			j++
		}
		out = rcfile.AppendVLong(out, int64(lengths[i]))
		if extra := j - i - 1; extra > 0 {
			out = rcfile.AppendVLong(out, int64(^extra))
		}
		i = j
	}
	return out
}
