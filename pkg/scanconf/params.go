// Package scanconf turns the flat key/value map a host passes to a scanner
// into validated, immutable scan parameters.
package scanconf

import (
	"math"
	"strconv"
	"strings"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
)

// Parameter keys understood by Parse.
const (
	KeyFileType         = "file_type"
	KeyIsGetTableSchema = "is_get_table_schema"
	KeyFileFormat       = "file_format"
	KeyColumnNames      = "columns_names"
	KeyColumnTypes      = "columns_types"
	KeyRequiredFields   = "required_fields"
	KeyInputFormat      = "input_format"
	KeySerde            = "hive_serde"
	KeyURI              = "uri"
	KeySplitStartOffset = "split_start_offset"
	KeySplitSize        = "split_size"
)

const (
	// FieldsDelimiter separates column and required field names.
	FieldsDelimiter = ","
	// TypesDelimiter separates declared column types. It differs from
	// FieldsDelimiter because compound types contain commas.
	TypesDelimiter = "#"
)

var knownKeys = map[string]bool{
	KeyFileType:         true,
	KeyIsGetTableSchema: true,
	KeyFileFormat:       true,
	KeyColumnNames:      true,
	KeyColumnTypes:      true,
	KeyRequiredFields:   true,
	KeyInputFormat:      true,
	KeySerde:            true,
	KeyURI:              true,
	KeySplitStartOffset: true,
	KeySplitSize:        true,
}

var requiredKeys = []string{
	KeyFileType,
	KeyIsGetTableSchema,
	KeyFileFormat,
	KeyColumnNames,
	KeyColumnTypes,
	KeyRequiredFields,
	KeyInputFormat,
	KeySerde,
	KeyURI,
}

// Parameters are the validated scan parameters. They are never modified after Parse.
type Parameters struct {
	FileType   FileType
	FileFormat FileFormat
	SchemaOnly bool

	// ColumnNames and ColumnTypes describe the declared table schema and
	// always have the same length.
	ColumnNames []string
	ColumnTypes []string
	// RequiredFields is the projection, in the order the host wants columns.
	RequiredFields []string

	InputFormat string
	Serde       string
	URI         string

	// SplitStart and SplitLength are zero in schema-only mode.
	SplitStart  int64
	SplitLength int64

	// Extra holds every unrecognised key. It is forwarded to the reader and
	// the deserializer (delimiters, null format, storage credentials).
	Extra hiveconf.Properties
}

// Parse validates raw and builds Parameters. All failures are configuration errors.
func Parse(raw map[string]string) (*Parameters, error) {
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			return nil, errors.Newf(errors.ErrorTypeConfiguration, "missing scan parameter %s", key).
				WithDetail("key", key)
		}
	}

	p := &Parameters{
		InputFormat: strings.TrimSpace(raw[KeyInputFormat]),
		Serde:       strings.TrimSpace(raw[KeySerde]),
		URI:         strings.TrimSpace(raw[KeyURI]),
		Extra:       make(hiveconf.Properties),
	}

	fileType, err := parseInt(raw, KeyFileType, 32)
	if err != nil {
		return nil, err
	}
	p.FileType = FileType(fileType)

	fileFormat, err := parseInt(raw, KeyFileFormat, 32)
	if err != nil {
		return nil, err
	}
	p.FileFormat = FileFormat(fileFormat)

	p.SchemaOnly, err = strconv.ParseBool(strings.TrimSpace(raw[KeyIsGetTableSchema]))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeConfiguration, "invalid %s %q", KeyIsGetTableSchema, raw[KeyIsGetTableSchema])
	}

	p.ColumnNames = split(raw[KeyColumnNames], FieldsDelimiter)
	p.ColumnTypes = split(raw[KeyColumnTypes], TypesDelimiter)
	p.RequiredFields = split(raw[KeyRequiredFields], FieldsDelimiter)
	if len(p.ColumnNames) != len(p.ColumnTypes) {
		return nil, errors.Newf(errors.ErrorTypeConfiguration,
			"%d column names but %d column types", len(p.ColumnNames), len(p.ColumnTypes)).
			WithDetail("columns_names", raw[KeyColumnNames]).
			WithDetail("columns_types", raw[KeyColumnTypes])
	}

	if !p.SchemaOnly {
		if p.SplitStart, err = parseSplitValue(raw, KeySplitStartOffset); err != nil {
			return nil, err
		}
		if p.SplitLength, err = parseSplitValue(raw, KeySplitSize); err != nil {
			return nil, err
		}
	}

	for k, v := range raw {
		if !knownKeys[k] {
			p.Extra[k] = v
		}
	}
	return p, nil
}

// SplitEnd is the first byte past the split. It saturates at math.MaxInt64.
func (p *Parameters) SplitEnd() int64 {
	if p.SplitLength > math.MaxInt64-p.SplitStart {
		return math.MaxInt64
	}
	return p.SplitStart + p.SplitLength
}

// WithSplit returns a copy of p bound to another byte range of the same
// file. Extra is shared and must be treated as read-only.
func (p *Parameters) WithSplit(start, length int64) *Parameters {
	cp := *p
	cp.SplitStart = start
	cp.SplitLength = length
	return &cp
}

// Redacted returns the pass-through properties with credentials masked, for logging.
func (p *Parameters) Redacted() map[string]string {
	out := make(map[string]string, len(p.Extra))
	for k, v := range p.Extra {
		if isSensitive(k) {
			out[k] = "***REDACTED***"
			continue
		}
		out[k] = v
	}
	return out
}

var sensitiveWords = []string{"secret", "password", "token", "access_key", "access-key", "credential"}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, w := range sensitiveWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func parseInt(raw map[string]string, key string, bits int) (int64, error) {
	v := strings.TrimSpace(raw[key])
	n, err := strconv.ParseInt(v, 10, bits)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrorTypeConfiguration, "invalid %s %q", key, raw[key])
	}
	return n, nil
}

func parseSplitValue(raw map[string]string, key string) (int64, error) {
	if _, ok := raw[key]; !ok {
		return 0, errors.Newf(errors.ErrorTypeConfiguration, "missing scan parameter %s", key).
			WithDetail("key", key)
	}
	n, err := parseInt(raw, key, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Newf(errors.ErrorTypeConfiguration, "%s must not be negative, got %d", key, n)
	}
	return n, nil
}

// split trims every element; an empty or blank string is an empty list.
func split(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
