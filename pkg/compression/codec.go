// Package compression implements the Hadoop compression codecs Hive files
// are written with, addressed by their Java class names.
//
// Stream codecs (DefaultCodec, GzipCodec, ZStandardCodec) wrap a standard
// container format. Block codecs (Lz4Codec, SnappyCodec) use Hadoop's block
// framing: a big-endian uint32 with the uncompressed block size, followed by
// length-prefixed compressed chunks until the block is complete.
package compression

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/hivescan/pkg/registry"
)

// Algorithm identifies a compression algorithm.
type Algorithm string

const (
	None     Algorithm = "none"
	Deflate  Algorithm = "deflate"
	Gzip     Algorithm = "gzip"
	Zstd     Algorithm = "zstd"
	LZ4      Algorithm = "lz4"
	LZ4Frame Algorithm = "lz4frame"
	Snappy   Algorithm = "snappy"
)

// Hadoop codec class names.
const (
	DefaultCodecClass   = "org.apache.hadoop.io.compress.DefaultCodec"
	GzipCodecClass      = "org.apache.hadoop.io.compress.GzipCodec"
	ZStandardCodecClass = "org.apache.hadoop.io.compress.ZStandardCodec"
	Lz4CodecClass       = "org.apache.hadoop.io.compress.Lz4Codec"
	SnappyCodecClass    = "org.apache.hadoop.io.compress.SnappyCodec"
	DeflateCodecClass   = "org.apache.hadoop.io.compress.DeflateCodec"
)

// Codec compresses and decompresses whole buffers and wraps streams.
// Implementations are safe for concurrent use.
type Codec interface {
	Algorithm() Algorithm

	// Compress returns the compressed form of data.
	Compress(data []byte) ([]byte, error)

	// Decompress returns the original bytes of one compressed buffer.
	Decompress(data []byte) ([]byte, error)

	// NewReader decompresses r as a stream.
	NewReader(r io.Reader) (io.ReadCloser, error)
}

var codecs = registry.New[Codec]("compression codec")

func init() {
	codecs.MustRegister(DefaultCodecClass, &zlibCodec{}, string(Deflate), DeflateCodecClass)
	codecs.MustRegister(GzipCodecClass, &gzipCodec{}, string(Gzip))
	codecs.MustRegister(ZStandardCodecClass, newZstdCodec(), string(Zstd))
	codecs.MustRegister(Lz4CodecClass, &blockCodec{algorithm: LZ4, block: lz4Block{}}, string(LZ4))
	codecs.MustRegister(SnappyCodecClass, &blockCodec{algorithm: Snappy, block: snappyBlock{}}, string(Snappy))
	codecs.MustRegister("lz4.frame", &lz4FrameCodec{}, string(LZ4Frame))
	codecs.MustRegister("identity", identityCodec{}, string(None))
}

// ForName returns the codec registered under a Hadoop class name or short alias.
func ForName(name string) (Codec, error) {
	return codecs.Lookup(name)
}

// Names lists the registered codec names.
func Names() []string {
	return codecs.List()
}

var extensions = map[string]Algorithm{
	".deflate": Deflate,
	".gz":      Gzip,
	".zst":     Zstd,
	".lz4":     LZ4Frame,
	".snappy":  Snappy,
}

// ForPath picks a codec from the file extension of p, the way Hadoop's
// CompressionCodecFactory does. It returns nil for uncompressed files.
func ForPath(p string) Codec {
	alg, ok := extensions[strings.ToLower(path.Ext(p))]
	if !ok {
		return nil
	}
	c, err := ForName(string(alg))
	if err != nil {
		return nil
	}
	return c
}

type identityCodec struct{}

func (identityCodec) Algorithm() Algorithm                         { return None }
func (identityCodec) Compress(data []byte) ([]byte, error)         { return data, nil }
func (identityCodec) Decompress(data []byte) ([]byte, error)       { return data, nil }
func (identityCodec) NewReader(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(r), nil }

// zlibCodec is Hadoop's DefaultCodec: a zlib stream.
type zlibCodec struct{}

func (c *zlibCodec) Algorithm() Algorithm { return Deflate }

func (c *zlibCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *zlibCodec) Decompress(data []byte) ([]byte, error) {
	return readAll(c, data)
}

func (c *zlibCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return zlib.NewReader(r)
}

type gzipCodec struct {
	readerPool sync.Pool
}

func (c *gzipCodec) Algorithm() Algorithm { return Gzip }

func (c *gzipCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *gzipCodec) Decompress(data []byte) ([]byte, error) {
	r, ok := c.readerPool.Get().(*gzip.Reader)
	if !ok {
		r = new(gzip.Reader)
	}
	defer c.readerPool.Put(r)

	if err := r.Reset(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func (c *gzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return gr, nil
}

type zstdCodec struct {
	encoderPool sync.Pool
	decoderPool sync.Pool
}

func newZstdCodec() *zstdCodec {
	zc := &zstdCodec{}
	zc.encoderPool.New = func() interface{} {
		enc, _ := zstd.NewWriter(nil)
		return enc
	}
	zc.decoderPool.New = func() interface{} {
		dec, _ := zstd.NewReader(nil)
		return dec
	}
	return zc
}

func (c *zstdCodec) Algorithm() Algorithm { return Zstd }

func (c *zstdCodec) Compress(data []byte) ([]byte, error) {
	enc := c.encoderPool.Get().(*zstd.Encoder)
	defer c.encoderPool.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

func (c *zstdCodec) Decompress(data []byte) ([]byte, error) {
	dec := c.decoderPool.Get().(*zstd.Decoder)
	defer c.decoderPool.Put(dec)
	return dec.DecodeAll(data, nil)
}

func (c *zstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

// lz4FrameCodec reads and writes the standard LZ4 frame format (.lz4 files).
type lz4FrameCodec struct{}

func (c *lz4FrameCodec) Algorithm() Algorithm { return LZ4Frame }

func (c *lz4FrameCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *lz4FrameCodec) Decompress(data []byte) ([]byte, error) {
	return readAll(c, data)
}

func (c *lz4FrameCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

func readAll(c Codec, data []byte) ([]byte, error) {
	r, err := c.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Algorithm(), err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Algorithm(), err)
	}
	return out, nil
}
