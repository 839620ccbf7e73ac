package rcfile

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVLongRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 127, -112, 128, -113, 255, 256, -256, 1 << 20, -(1 << 20),
		math.MaxInt32, math.MinInt32, math.MaxInt64, math.MinInt64}

	for _, v := range values {
		enc := AppendVLong(nil, v)
		got, err := ReadVLong(bytes.NewReader(enc))
		require.NoError(t, err, "v=%d", v)
		assert.Equal(t, v, got)
	}
}

func TestVLongKnownEncodings(t *testing.T) {
	// byte sequences produced by Hadoop's WritableUtils.writeVLong
	assert.Equal(t, []byte{0x05}, AppendVLong(nil, 5))
	assert.Equal(t, []byte{0x8f, 0x80}, AppendVLong(nil, 128))
	assert.Equal(t, []byte{0x8e, 0x01, 0x00}, AppendVLong(nil, 256))
	assert.Equal(t, []byte{0x87, 0x70}, AppendVLong(nil, -113))
}

func TestReadVLongTruncated(t *testing.T) {
	enc := AppendVLong(nil, 1<<40)
	_, err := ReadVLong(bytes.NewReader(enc[:3]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadVLong(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadVIntRange(t *testing.T) {
	_, err := ReadVInt(bytes.NewReader(AppendVLong(nil, 1<<40)))
	assert.ErrorIs(t, err, ErrVIntTooLong)
}

func TestText(t *testing.T) {
	enc := AppendText(nil, "hive.io.rcfile.column.number")
	c := newCursor(bytes.NewReader(enc), int64(len(enc)))
	s, err := readText(c)
	require.NoError(t, err)
	assert.Equal(t, "hive.io.rcfile.column.number", s)
}

func TestDecodeRunLengths(t *testing.T) {
	var buf []byte
	buf = AppendVLong(buf, 3)
	buf = AppendVLong(buf, ^int64(2))
	buf = AppendVLong(buf, 0)
	buf = AppendVLong(buf, 5)

	got, err := decodeRunLengths(buf, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 3, 0, 5}, got)

	_, err = decodeRunLengths(buf, 4, nil)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = decodeRunLengths(AppendVLong(nil, ^int64(1)), 1, nil)
	assert.ErrorIs(t, err, ErrCorrupt)
}
