package serde

import (
	"bytes"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow/decimal128"

	"github.com/ajitpratap0/hivescan/pkg/types"
)

// Text layouts accepted for dates and timestamps.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05.999999999"
)

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04",
	DateLayout,
}

// parseText converts the text form of a primitive to its canonical value.
// ok is false when the text is not a valid value of t.
func parseText(t *types.ColumnType, b []byte) (v any, ok bool) {
	switch t.Kind {
	case types.KindString:
		return string(b), true
	case types.KindChar:
		return charValue(string(b), t.Length), true
	case types.KindVarchar:
		return truncateRunes(string(b), t.Length), true
	case types.KindBinary:
		return binaryValue(b), true
	case types.KindVoid, types.KindUnsupported:
		return nil, false
	}

	s := string(b)
	switch t.Kind {
	case types.KindBoolean:
		switch {
		case strings.EqualFold(s, "true"):
			return true, true
		case strings.EqualFold(s, "false"):
			return false, true
		}
		return nil, false
	case types.KindTinyInt, types.KindSmallInt, types.KindInt, types.KindBigInt:
		n, err := strconv.ParseInt(s, 10, intBits(t.Kind))
		if err != nil {
			return nil, false
		}
		return narrowInt(t.Kind, n), true
	case types.KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
		if err != nil {
			return nil, false
		}
		return float32(f), true
	case types.KindDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, false
		}
		return f, true
	case types.KindDecimal:
		n, err := decimal128.FromString(strings.TrimSpace(s), t.Precision, t.Scale)
		if err != nil {
			return nil, false
		}
		return n, true
	case types.KindDate:
		d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
		if err != nil {
			return nil, false
		}
		return d, true
	case types.KindTimestamp:
		ts, ok := parseTimestamp(strings.TrimSpace(s))
		if !ok {
			return nil, false
		}
		return ts, true
	}
	return nil, false
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func intBits(k types.Kind) int {
	switch k {
	case types.KindTinyInt:
		return 8
	case types.KindSmallInt:
		return 16
	case types.KindInt:
		return 32
	}
	return 64
}

func narrowInt(k types.Kind, n int64) any {
	switch k {
	case types.KindTinyInt:
		return int8(n)
	case types.KindSmallInt:
		return int16(n)
	case types.KindInt:
		return int32(n)
	}
	return n
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// charValue enforces the declared length and drops the trailing pad.
func charValue(s string, n int) string {
	return strings.TrimRight(truncateRunes(s, n), " ")
}

// binaryValue decodes base64 text and keeps anything else as raw bytes.
func binaryValue(b []byte) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(string(b)); err == nil {
		return decoded
	}
	return bytes.Clone(b)
}
