package rcfile

import (
	"errors"
	"io"
)

// ErrVIntTooLong is returned for a variable-length integer wider than 8 bytes.
var ErrVIntTooLong = errors.New("rcfile: vint too long")

// AppendVLong appends v in Hadoop's WritableUtils variable-length encoding.
func AppendVLong(dst []byte, v int64) []byte {
	if v >= -112 && v <= 127 {
		return append(dst, byte(v))
	}

	n := -112
	if v < 0 {
		v = ^v
		n = -120
	}
	for tmp := v; tmp != 0; tmp >>= 8 {
		n--
	}
	dst = append(dst, byte(n))

	if n < -120 {
		n = -(n + 120)
	} else {
		n = -(n + 112)
	}
	for idx := n; idx != 0; idx-- {
		shift := uint((idx - 1) * 8)
		dst = append(dst, byte(v>>shift))
	}
	return dst
}

// ReadVLong reads one WritableUtils variable-length integer.
func ReadVLong(r io.ByteReader) (int64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	first := int8(b)
	size := vintSize(first)
	if size == 1 {
		return int64(first), nil
	}
	if size > 9 {
		return 0, ErrVIntTooLong
	}

	var v int64
	for i := 0; i < size-1; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		v = v<<8 | int64(b)
	}
	if first < -120 || (first >= -112 && first < 0) {
		return ^v, nil
	}
	return v, nil
}

// ReadVInt reads a variable-length integer that must fit an int32.
func ReadVInt(r io.ByteReader) (int, error) {
	v, err := ReadVLong(r)
	if err != nil {
		return 0, err
	}
	if v > 1<<31-1 || v < -1<<31 {
		return 0, ErrVIntTooLong
	}
	return int(v), nil
}

func vintSize(first int8) int {
	switch {
	case first >= -112:
		return 1
	case first < -120:
		return -119 - int(first)
	}
	return -111 - int(first)
}

// AppendText appends a Hadoop Text value: a vint byte length and the UTF-8 bytes.
func AppendText(dst []byte, s string) []byte {
	dst = AppendVLong(dst, int64(len(s)))
	return append(dst, s...)
}

func readText(r interface {
	io.ByteReader
	io.Reader
}) (string, error) {
	n, err := ReadVInt(r)
	if err != nil {
		return "", err
	}
	if n < 0 || n > maxTextLength {
		return "", errCorrupt("text length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", unexpectedEOF(err)
	}
	return string(buf), nil
}
