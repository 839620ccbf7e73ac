package scanconf

import (
	"math"
	"testing"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseParams() map[string]string {
	return map[string]string{
		KeyFileType:         "0",
		KeyIsGetTableSchema: "false",
		KeyFileFormat:       "11",
		KeyColumnNames:      "a,b,c",
		KeyColumnTypes:      "int#string#decimal(10,2)",
		KeyRequiredFields:   "c,a",
		KeyInputFormat:      "org.apache.hadoop.hive.ql.io.RCFileInputFormat",
		KeySerde:            "org.apache.hadoop.hive.serde2.columnar.ColumnarSerDe",
		KeyURI:              "file:///tmp/t.rc",
		KeySplitStartOffset: "0",
		KeySplitSize:        "4096",
		"field.delim":       "|",
		"AWS_SECRET_KEY":    "hunter2",
	}
}

func TestParse(t *testing.T) {
	p, err := Parse(baseParams())
	require.NoError(t, err)

	assert.Equal(t, FileTypeLocal, p.FileType)
	assert.Equal(t, FormatJNI, p.FileFormat)
	assert.False(t, p.SchemaOnly)
	assert.Equal(t, []string{"a", "b", "c"}, p.ColumnNames)
	assert.Equal(t, []string{"int", "string", "decimal(10,2)"}, p.ColumnTypes)
	assert.Equal(t, []string{"c", "a"}, p.RequiredFields)
	assert.Equal(t, int64(0), p.SplitStart)
	assert.Equal(t, int64(4096), p.SplitEnd())
	assert.Equal(t, "|", p.Extra["field.delim"])
	assert.NotContains(t, p.Extra, KeyURI)
}

func TestParseSchemaOnlySkipsSplit(t *testing.T) {
	raw := baseParams()
	raw[KeyIsGetTableSchema] = "true"
	delete(raw, KeySplitStartOffset)
	delete(raw, KeySplitSize)

	p, err := Parse(raw)
	require.NoError(t, err)
	assert.True(t, p.SchemaOnly)
	assert.Zero(t, p.SplitLength)
}

func TestParseEmptyProjection(t *testing.T) {
	raw := baseParams()
	raw[KeyRequiredFields] = ""

	p, err := Parse(raw)
	require.NoError(t, err)
	assert.Empty(t, p.RequiredFields)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"missing file type", func(m map[string]string) { delete(m, KeyFileType) }},
		{"missing uri", func(m map[string]string) { delete(m, KeyURI) }},
		{"missing split size", func(m map[string]string) { delete(m, KeySplitSize) }},
		{"bad file type", func(m map[string]string) { m[KeyFileType] = "s3" }},
		{"bad file format", func(m map[string]string) { m[KeyFileFormat] = "1.5" }},
		{"bad bool", func(m map[string]string) { m[KeyIsGetTableSchema] = "maybe" }},
		{"bad offset", func(m map[string]string) { m[KeySplitStartOffset] = "ten" }},
		{"negative size", func(m map[string]string) { m[KeySplitSize] = "-1" }},
		{"length mismatch", func(m map[string]string) { m[KeyColumnTypes] = "int#string" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := baseParams()
			tt.mutate(raw)
			p, err := Parse(raw)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration), err.Error())
		})
	}
}

func TestRedacted(t *testing.T) {
	p, err := Parse(baseParams())
	require.NoError(t, err)

	red := p.Redacted()
	assert.Equal(t, "***REDACTED***", red["AWS_SECRET_KEY"])
	assert.Equal(t, "|", red["field.delim"])
	assert.Equal(t, "hunter2", p.Extra["AWS_SECRET_KEY"])
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "s3", FileTypeS3.String())
	assert.Equal(t, "file_type(42)", FileType(42).String())
	assert.Equal(t, "avro", FormatAvro.String())
	assert.Equal(t, "file_format(99)", FileFormat(99).String())
}

func TestWithSplit(t *testing.T) {
	p, err := Parse(baseParams())
	require.NoError(t, err)

	q := p.WithSplit(100, 50)
	assert.Equal(t, int64(150), q.SplitEnd())
	assert.Equal(t, int64(4096), p.SplitEnd(), "the template is unchanged")
	assert.Equal(t, p.ColumnNames, q.ColumnNames)

	assert.Equal(t, int64(math.MaxInt64), p.WithSplit(1, math.MaxInt64).SplitEnd())
}

func TestParseFileType(t *testing.T) {
	for in, want := range map[string]FileType{"3": FileTypeS3, "gcs": FileTypeGCS, " Local ": FileTypeLocal} {
		got, err := ParseFileType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFileType("ftp")
	assert.Error(t, err)
}
