// Package rcfile reads Hive RCFile (record columnar) files.
//
// A file is a header followed by row groups. Each row group has a key
// section holding the row count and, per column, the run-length encoded
// byte length of every cell, then one value buffer per column. A 16 byte
// sync marker, escaped by a -1 record length, separates row groups so that a
// byte range split can find the first row group it owns.
package rcfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ajitpratap0/hivescan/pkg/compression"
)

const (
	// SyncSize is the length of the sync marker.
	SyncSize = 16
	// SyncEscape is the record length announcing a sync marker.
	SyncEscape = -1
	// ColumnNumberKey is the metadata entry holding the column count.
	ColumnNumberKey = "hive.io.rcfile.column.number"

	// Version is the only RCFile header version supported.
	Version = 1

	maxTextLength  = 1 << 20
	maxSectionSize = 1 << 30
	syncScanChunk  = 64 << 10
)

// Magic opens every RCFile.
var Magic = []byte("RCF")

// ErrCorrupt wraps every structural decoding failure.
var ErrCorrupt = errors.New("rcfile: corrupt file")

func errCorrupt(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Header is the decoded file header.
type Header struct {
	Version    int
	Compressed bool
	CodecName  string
	Metadata   map[string]string
	Sync       [SyncSize]byte
	Columns    int
	// End is the offset of the first byte after the header.
	End int64
}

// Options control how a split is read.
type Options struct {
	// Start and Length delimit the split.
	Start  int64
	Length int64
	// Columns are the column indices to materialise; nil reads every column.
	Columns []int
}

// Reader iterates over the rows of one split.
type Reader struct {
	in       *cursor
	header   Header
	codec    compression.Codec
	end      int64
	selected []bool
	done     bool

	groups int

	rows int
	row  int
	cols []column
	cur  [][]byte
}

type column struct {
	lengths []int
	data    []byte
	off     int
}

// NewReader reads the header from ra and positions the reader on the first
// row group owned by the split. A row group is owned by the split holding the
// sync marker that precedes it; row groups written before any sync marker
// belong to the split holding the end of the header.
func NewReader(ra io.ReaderAt, size int64, opts Options) (*Reader, error) {
	in := newCursor(ra, size)
	h, err := readHeader(in)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		in:     in,
		header: h,
		end:    size,
	}
	if opts.Length < size-opts.Start {
		r.end = opts.Start + opts.Length
	}
	if h.Compressed {
		if r.codec, err = compression.ForName(h.CodecName); err != nil {
			return nil, fmt.Errorf("rcfile: codec %s: %w", h.CodecName, err)
		}
	}

	r.selected = make([]bool, h.Columns)
	if opts.Columns == nil {
		for i := range r.selected {
			r.selected[i] = true
		}
	}
	for _, id := range opts.Columns {
		// columns past the file's width read as missing
		if id >= 0 && id < h.Columns {
			r.selected[id] = true
		}
	}
	r.cols = make([]column, h.Columns)
	r.cur = make([][]byte, h.Columns)

	if opts.Start > h.End {
		if err := r.seekToSync(opts.Start); err != nil {
			return nil, err
		}
	}
	if r.in.pos >= r.end {
		r.done = true
	}
	return r, nil
}

// Header returns the file header.
func (r *Reader) Header() Header { return r.header }

// RowGroups returns how many row groups have been loaded so far.
func (r *Reader) RowGroups() int { return r.groups }

// Next returns the cells of the next row, indexed by column. Cells of
// columns that were not selected are nil. The returned slices are only
// valid until the following call. At the end of the split Next returns io.EOF.
func (r *Reader) Next() ([][]byte, error) {
	for r.row >= r.rows {
		if err := r.nextGroup(); err != nil {
			return nil, err
		}
	}
	for i := range r.cols {
		if !r.selected[i] {
			r.cur[i] = nil
			continue
		}
		c := &r.cols[i]
		n := c.lengths[r.row]
		if c.off+n > len(c.data) {
			return nil, errCorrupt("column %d cell %d overruns its buffer", i, r.row)
		}
		r.cur[i] = c.data[c.off : c.off+n : c.off+n]
		c.off += n
	}
	r.row++
	return r.cur, nil
}

// Close releases nothing of its own; the underlying file is owned by the caller.
func (r *Reader) Close() error {
	r.done = true
	r.cols = nil
	return nil
}

func (r *Reader) nextGroup() error {
	if r.done {
		return io.EOF
	}
	if r.in.pos >= r.in.size {
		r.done = true
		return io.EOF
	}

	recordLen, err := r.in.readInt32()
	if err != nil {
		return unexpectedEOF(err)
	}
	if recordLen == SyncEscape {
		syncPos := r.in.pos - 4
		var check [SyncSize]byte
		if _, err := io.ReadFull(r.in, check[:]); err != nil {
			return unexpectedEOF(err)
		}
		if check != r.header.Sync {
			return errCorrupt("sync marker mismatch at offset %d", syncPos)
		}
		if syncPos >= r.end || r.in.pos >= r.in.size {
			r.done = true
			return io.EOF
		}
		if recordLen, err = r.in.readInt32(); err != nil {
			return unexpectedEOF(err)
		}
	}
	if recordLen < 0 {
		return errCorrupt("negative record length %d", recordLen)
	}

	keyLen, err := r.in.readInt32()
	if err != nil {
		return unexpectedEOF(err)
	}
	compressedKeyLen, err := r.in.readInt32()
	if err != nil {
		return unexpectedEOF(err)
	}
	if keyLen < 0 || compressedKeyLen < 0 || keyLen > maxSectionSize || compressedKeyLen > maxSectionSize {
		return errCorrupt("bad key length %d/%d", keyLen, compressedKeyLen)
	}

	key := make([]byte, compressedKeyLen)
	if _, err := io.ReadFull(r.in, key); err != nil {
		return unexpectedEOF(err)
	}
	if r.codec != nil {
		if key, err = r.codec.Decompress(key); err != nil {
			return fmt.Errorf("rcfile: key section: %w", err)
		}
	}
	if len(key) != int(keyLen) {
		return errCorrupt("key section is %d bytes, header says %d", len(key), keyLen)
	}

	valueLens, err := r.readKey(key)
	if err != nil {
		return err
	}
	for i, n := range valueLens {
		if !r.selected[i] {
			if err := r.in.skip(int64(n.stored)); err != nil {
				return unexpectedEOF(err)
			}
			continue
		}
		buf := make([]byte, n.stored)
		if _, err := io.ReadFull(r.in, buf); err != nil {
			return unexpectedEOF(err)
		}
		if r.codec != nil {
			if buf, err = r.codec.Decompress(buf); err != nil {
				return fmt.Errorf("rcfile: column %d: %w", i, err)
			}
		}
		if len(buf) != n.plain {
			return errCorrupt("column %d holds %d bytes, key says %d", i, len(buf), n.plain)
		}
		r.cols[i].data = buf
		r.cols[i].off = 0
	}
	r.groups++
	return nil
}

type sectionLen struct {
	stored int
	plain  int
}

// readKey decodes the key section and the cell lengths of the selected columns.
func (r *Reader) readKey(key []byte) ([]sectionLen, error) {
	kr := bytes.NewReader(key)
	rows, err := ReadVInt(kr)
	if err != nil {
		return nil, errCorrupt("row count: %v", err)
	}
	if rows < 0 {
		return nil, errCorrupt("negative row count %d", rows)
	}

	lens := make([]sectionLen, len(r.cols))
	for i := range r.cols {
		stored, err := ReadVInt(kr)
		if err != nil {
			return nil, errCorrupt("column %d value length: %v", i, err)
		}
		plain, err := ReadVInt(kr)
		if err != nil {
			return nil, errCorrupt("column %d plain length: %v", i, err)
		}
		bufLen, err := ReadVInt(kr)
		if err != nil {
			return nil, errCorrupt("column %d key buffer length: %v", i, err)
		}
		if stored < 0 || plain < 0 || bufLen < 0 || bufLen > kr.Len() {
			return nil, errCorrupt("column %d lengths out of range", i)
		}
		lens[i] = sectionLen{stored: stored, plain: plain}

		start := len(key) - kr.Len()
		cellLens := key[start : start+bufLen]
		if _, err := kr.Seek(int64(bufLen), io.SeekCurrent); err != nil {
			return nil, err
		}
		if !r.selected[i] {
			continue
		}
		if r.cols[i].lengths, err = decodeRunLengths(cellLens, rows, r.cols[i].lengths[:0]); err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
	}
	r.rows = rows
	r.row = 0
	return lens, nil
}

// decodeRunLengths expands the cell lengths of one column. A non-negative
// vint is a cell length; a negative one, ^n, repeats the previous length n
// more times.
func decodeRunLengths(buf []byte, rows int, dst []int) ([]int, error) {
	br := bytes.NewReader(buf)
	prev := -1
	for br.Len() > 0 {
		v, err := ReadVInt(br)
		if err != nil {
			return nil, errCorrupt("cell lengths: %v", err)
		}
		if v >= 0 {
			dst = append(dst, v)
			prev = v
			continue
		}
		if prev < 0 {
			return nil, errCorrupt("run length without a preceding cell length")
		}
		for n := ^v; n > 0; n-- {
			dst = append(dst, prev)
		}
		if len(dst) > rows {
			break
		}
	}
	if len(dst) != rows {
		return nil, errCorrupt("%d cell lengths for %d rows", len(dst), rows)
	}
	return dst, nil
}

// seekToSync positions the reader on the first sync escape at or after
// position, or at end of file when there is none.
func (r *Reader) seekToSync(position int64) error {
	if position < r.header.End {
		position = r.header.End
	}
	size := r.in.size
	if position+4+SyncSize > size {
		r.in.seek(size)
		return nil
	}

	pattern := make([]byte, 4+SyncSize)
	binary.BigEndian.PutUint32(pattern, 0xFFFFFFFF)
	copy(pattern[4:], r.header.Sync[:])

	buf := make([]byte, syncScanChunk+len(pattern)-1)
	for off := position; off+int64(len(pattern)) <= size; off += syncScanChunk {
		n, err := r.in.ra.ReadAt(buf, off)
		if err != nil && err != io.EOF {
			return err
		}
		if i := bytes.Index(buf[:n], pattern); i >= 0 {
			r.in.seek(off + int64(i))
			return nil
		}
	}
	r.in.seek(size)
	return nil
}

func readHeader(in *cursor) (Header, error) {
	h := Header{Metadata: make(map[string]string)}

	magic := make([]byte, len(Magic)+1)
	if _, err := io.ReadFull(in, magic); err != nil {
		return h, errCorrupt("header: %v", err)
	}
	if !bytes.Equal(magic[:len(Magic)], Magic) {
		return h, fmt.Errorf("rcfile: not an RCFile (magic %q)", magic[:len(Magic)])
	}
	h.Version = int(magic[len(Magic)])
	if h.Version != Version {
		return h, fmt.Errorf("rcfile: unsupported version %d", h.Version)
	}

	compressed, err := in.ReadByte()
	if err != nil {
		return h, errCorrupt("header: %v", err)
	}
	h.Compressed = compressed != 0
	if h.Compressed {
		if h.CodecName, err = readText(in); err != nil {
			return h, errCorrupt("codec name: %v", err)
		}
	}

	count, err := in.readInt32()
	if err != nil {
		return h, errCorrupt("metadata count: %v", err)
	}
	if count < 0 || count > 1<<16 {
		return h, errCorrupt("metadata count %d", count)
	}
	for i := 0; i < int(count); i++ {
		k, err := readText(in)
		if err != nil {
			return h, errCorrupt("metadata key: %v", err)
		}
		v, err := readText(in)
		if err != nil {
			return h, errCorrupt("metadata value: %v", err)
		}
		h.Metadata[k] = v
	}

	if _, err := io.ReadFull(in, h.Sync[:]); err != nil {
		return h, errCorrupt("sync: %v", err)
	}
	h.End = in.pos

	cols, ok := h.Metadata[ColumnNumberKey]
	if !ok {
		return h, errCorrupt("metadata lacks %s", ColumnNumberKey)
	}
	if h.Columns, err = strconv.Atoi(cols); err != nil || h.Columns < 0 {
		return h, errCorrupt("column count %q", cols)
	}
	return h, nil
}

// cursor is a buffered sequential reader over an io.ReaderAt that tracks its
// offset and can seek or skip without reading the skipped bytes.
type cursor struct {
	ra   io.ReaderAt
	size int64
	pos  int64
	br   *bufio.Reader
	tmp  [4]byte
}

func newCursor(ra io.ReaderAt, size int64) *cursor {
	c := &cursor{ra: ra, size: size}
	c.br = bufio.NewReaderSize(io.NewSectionReader(ra, 0, size), 64<<10)
	return c
}

func (c *cursor) seek(pos int64) {
	c.pos = pos
	c.br.Reset(io.NewSectionReader(c.ra, pos, c.size-pos))
}

func (c *cursor) skip(n int64) error {
	if n <= int64(c.br.Buffered()) {
		d, err := c.br.Discard(int(n))
		c.pos += int64(d)
		return err
	}
	if c.pos+n > c.size {
		return io.ErrUnexpectedEOF
	}
	c.seek(c.pos + n)
	return nil
}

func (c *cursor) Read(p []byte) (int, error) {
	n, err := c.br.Read(p)
	c.pos += int64(n)
	return n, err
}

func (c *cursor) ReadByte() (byte, error) {
	b, err := c.br.ReadByte()
	if err == nil {
		c.pos++
	}
	return b, err
}

func (c *cursor) readInt32() (int32, error) {
	if _, err := io.ReadFull(c, c.tmp[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(c.tmp[:])), nil
}
