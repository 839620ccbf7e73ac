package compression

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/pierrec/lz4/v4"
)

// maxBlockSize bounds a single Hadoop block so a corrupt length cannot
// trigger a huge allocation.
const maxBlockSize = 256 << 20

// ErrCorruptBlock is returned when Hadoop block framing is inconsistent.
var ErrCorruptBlock = errors.New("corrupt hadoop compressed block")

// blockCompressor is the raw per-chunk algorithm inside Hadoop block framing.
type blockCompressor interface {
	compress(src []byte) ([]byte, error)
	decompress(src []byte, size int) ([]byte, error)
}

type lz4Block struct{}

func (lz4Block) compress(src []byte) ([]byte, error) {
	var c lz4.Compressor
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := c.CompressBlock(src, dst)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// incompressible input
		return literalLZ4Block(src), nil
	}
	return dst[:n], nil
}

func (lz4Block) decompress(src []byte, size int) ([]byte, error) {
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

// literalLZ4Block encodes src as one LZ4 sequence made only of literals.
func literalLZ4Block(src []byte) []byte {
	n := len(src)
	out := make([]byte, 0, n+n/255+2)
	if n < 15 {
		out = append(out, byte(n<<4))
	} else {
		out = append(out, 0xF0)
		rest := n - 15
		for rest >= 255 {
			out = append(out, 255)
			rest -= 255
		}
		out = append(out, byte(rest))
	}
	return append(out, src...)
}

type snappyBlock struct{}

func (snappyBlock) compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (snappyBlock) decompress(src []byte, _ int) ([]byte, error) {
	return snappy.Decode(nil, src)
}

// blockCodec implements Hadoop's BlockCompressorStream framing around a raw
// block algorithm.
type blockCodec struct {
	algorithm Algorithm
	block     blockCompressor
}

func (c *blockCodec) Algorithm() Algorithm { return c.algorithm }

// Compress writes data as a single Hadoop block with one chunk.
func (c *blockCodec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	chunk, err := c.block.compress(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.algorithm, err)
	}
	out := make([]byte, 8, 8+len(chunk))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(data)))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(chunk)))
	return append(out, chunk...), nil
}

func (c *blockCodec) Decompress(data []byte) ([]byte, error) {
	return readAll(c, data)
}

func (c *blockCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return &blockReader{codec: c, r: bufio.NewReader(r)}, nil
}

// blockReader decodes one Hadoop block at a time.
type blockReader struct {
	codec   *blockCodec
	r       *bufio.Reader
	pending bytes.Reader
	hdr     [4]byte
}

func (br *blockReader) Read(p []byte) (int, error) {
	for br.pending.Len() == 0 {
		block, err := br.nextBlock()
		if err != nil {
			return 0, err
		}
		br.pending.Reset(block)
	}
	return br.pending.Read(p)
}

func (br *blockReader) nextBlock() ([]byte, error) {
	size, err := br.readLength()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, size)
	for len(out) < size {
		clen, err := br.readLength()
		if err != nil {
			return nil, unexpected(err)
		}
		chunk := make([]byte, clen)
		if _, err := io.ReadFull(br.r, chunk); err != nil {
			return nil, unexpected(err)
		}
		plain, err := br.codec.block.decompress(chunk, size-len(out))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptBlock, err)
		}
		if len(plain) == 0 {
			return nil, ErrCorruptBlock
		}
		out = append(out, plain...)
	}
	if len(out) != size {
		return nil, ErrCorruptBlock
	}
	return out, nil
}

func (br *blockReader) readLength() (int, error) {
	if _, err := io.ReadFull(br.r, br.hdr[:]); err != nil {
		return 0, err
	}
	n := binary.BigEndian.Uint32(br.hdr[:])
	if n > maxBlockSize {
		return 0, fmt.Errorf("%w: length %d", ErrCorruptBlock, n)
	}
	return int(n), nil
}

func (br *blockReader) Close() error { return nil }

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
