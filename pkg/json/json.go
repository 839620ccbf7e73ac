// Package json wraps goccy/go-json with the decoding and streaming settings
// used across hivescan.
package json

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

// Number is a JSON number kept in its text form.
type Number = gojson.Number

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// Marshal encodes v.
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// UnmarshalNumbers decodes data into v keeping numbers as Number, so wide
// integers and decimals survive without float rounding.
func UnmarshalNumbers(data []byte, v interface{}) error {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// LineWriter writes one JSON document per line.
type LineWriter struct {
	w *bufio.Writer
}

// NewLineWriter returns a LineWriter buffering into w.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: bufio.NewWriter(w)}
}

// Write encodes v followed by a newline.
func (lw *LineWriter) Write(v interface{}) error {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		// don't pool very large buffers
		if buf.Cap() <= 1024*1024 {
			bufferPool.Put(buf)
		}
	}()

	enc := gojson.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := lw.w.Write(buf.Bytes())
	return err
}

// Flush writes any buffered lines to the underlying writer.
func (lw *LineWriter) Flush() error {
	return lw.w.Flush()
}
