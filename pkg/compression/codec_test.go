package compression

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []byte("This is a test string that will be compressed and decompressed. " +
	"It contains some repetitive content content content to improve compression ratio.")

func TestRoundTripAllCodecs(t *testing.T) {
	random := make([]byte, 4096)
	rand.New(rand.NewSource(7)).Read(random)

	inputs := map[string][]byte{
		"text":   sample,
		"random": random,
		"large":  bytes.Repeat(sample, 2000),
	}

	for _, name := range Names() {
		codec, err := ForName(name)
		require.NoError(t, err)

		for label, in := range inputs {
			t.Run(name+"/"+label, func(t *testing.T) {
				compressed, err := codec.Compress(in)
				require.NoError(t, err)

				out, err := codec.Decompress(compressed)
				require.NoError(t, err)
				assert.Equal(t, in, out)

				r, err := codec.NewReader(bytes.NewReader(compressed))
				require.NoError(t, err)
				streamed, err := io.ReadAll(r)
				require.NoError(t, err)
				require.NoError(t, r.Close())
				assert.Equal(t, in, streamed)
			})
		}
	}
}

func TestAliases(t *testing.T) {
	tests := map[string]Algorithm{
		DefaultCodecClass:   Deflate,
		DeflateCodecClass:   Deflate,
		GzipCodecClass:      Gzip,
		ZStandardCodecClass: Zstd,
		Lz4CodecClass:       LZ4,
		SnappyCodecClass:    Snappy,
		"gzip":              Gzip,
		"lz4frame":          LZ4Frame,
	}
	for name, alg := range tests {
		c, err := ForName(name)
		require.NoError(t, err, name)
		assert.Equal(t, alg, c.Algorithm(), name)
	}

	_, err := ForName("org.apache.hadoop.io.compress.BZip2Codec")
	assert.Error(t, err)
}

func TestForPath(t *testing.T) {
	assert.Equal(t, Gzip, ForPath("s3://bucket/t/part-0.GZ").Algorithm())
	assert.Equal(t, Zstd, ForPath("/data/x.zst").Algorithm())
	assert.Equal(t, LZ4Frame, ForPath("/data/x.lz4").Algorithm())
	assert.Equal(t, Snappy, ForPath("/data/x.snappy").Algorithm())
	assert.Equal(t, Deflate, ForPath("/data/x.deflate").Algorithm())
	assert.Nil(t, ForPath("/data/x.txt"))
}

func TestBlockStreamMultipleBlocksAndChunks(t *testing.T) {
	codec, err := ForName(SnappyCodecClass)
	require.NoError(t, err)
	bc := codec.(*blockCodec)

	first, second := []byte("hello, "), []byte("hadoop world")

	var buf bytes.Buffer
	// block one is split into two chunks
	writeUint32(&buf, uint32(len(first)+len(second)))
	for _, part := range [][]byte{first, second} {
		chunk, err := bc.block.compress(part)
		require.NoError(t, err)
		writeUint32(&buf, uint32(len(chunk)))
		buf.Write(chunk)
	}
	block2, err := codec.Compress([]byte("!"))
	require.NoError(t, err)
	buf.Write(block2)

	out, err := codec.Decompress(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "hello, hadoop world!", string(out))
}

func TestBlockStreamTruncated(t *testing.T) {
	codec, err := ForName(Lz4CodecClass)
	require.NoError(t, err)

	compressed, err := codec.Compress(sample)
	require.NoError(t, err)

	_, err = codec.Decompress(compressed[:len(compressed)-3])
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var buf bytes.Buffer
	writeUint32(&buf, maxBlockSize+1)
	_, err = codec.Decompress(buf.Bytes())
	assert.ErrorIs(t, err, ErrCorruptBlock)
}

func TestLiteralLZ4Block(t *testing.T) {
	for _, n := range []int{1, 14, 15, 16, 270, 600} {
		src := bytes.Repeat([]byte{'x'}, n)
		out, err := lz4Block{}.decompress(literalLZ4Block(src), n)
		require.NoError(t, err)
		assert.Equal(t, src, out, "n=%d", n)
	}
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
