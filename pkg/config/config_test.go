package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/scanconf"
)

const jobYAML = `
name: orders
uri: s3://warehouse/orders/000000_0
file_format: 11
input_format: rcfile
serde: columnar
columns:
  - name: id
    type: bigint
  - name: tags
    type: map<string,int>
  - name: amount
    type: decimal(10,2)
properties:
  AWS_REGION: ${HIVESCAN_TEST_REGION}
  AWS_ENDPOINT: ${HIVESCAN_TEST_ENDPOINT:-http://localhost:9000}
scan:
  capacity: 1024
  format: jsonl
`

func writeJob(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadJob(t *testing.T) {
	t.Setenv("HIVESCAN_TEST_REGION", "eu-west-1")

	job, err := LoadJob(writeJob(t, jobYAML))
	require.NoError(t, err)

	assert.Equal(t, "orders", job.Name)
	assert.Equal(t, "s3", job.FileType, "inferred from the uri")
	assert.Equal(t, []string{"id", "tags", "amount"}, job.RequiredFields)
	assert.Equal(t, "eu-west-1", job.Properties["AWS_REGION"])
	assert.Equal(t, "http://localhost:9000", job.Properties["AWS_ENDPOINT"])
	assert.Equal(t, 1024, job.Scan.Capacity)
	assert.Equal(t, int64(defaultSplitSize), job.Scan.SplitSize)
	assert.Positive(t, job.Scan.Parallelism)
	assert.Equal(t, FormatJSONLines, job.Scan.Format)
	assert.Equal(t, "info", job.Observability.LogLevel)
}

func TestScanParameters(t *testing.T) {
	t.Setenv("HIVESCAN_TEST_REGION", "eu-west-1")
	job, err := LoadJob(writeJob(t, jobYAML))
	require.NoError(t, err)
	job.RequiredFields = []string{"amount", "id"}

	p, err := scanconf.Parse(job.ScanParameters(false))
	require.NoError(t, err)
	assert.Equal(t, scanconf.FileTypeS3, p.FileType)
	assert.Equal(t, scanconf.FormatJNI, p.FileFormat)
	assert.Equal(t, []string{"bigint", "map<string,int>", "decimal(10,2)"}, p.ColumnTypes)
	assert.Equal(t, []string{"amount", "id"}, p.RequiredFields)
	assert.Equal(t, "eu-west-1", p.Extra["AWS_REGION"])

	schemaOnly, err := scanconf.Parse(job.ScanParameters(true))
	require.NoError(t, err)
	assert.True(t, schemaOnly.SchemaOnly)
}

func TestEmptyProjectionIsKept(t *testing.T) {
	job, err := LoadJob(writeJob(t, jobYAML+"required_fields: []\n"))
	require.NoError(t, err)
	assert.NotNil(t, job.RequiredFields)
	assert.Empty(t, job.RequiredFields)
}

func TestLoadJobErrors(t *testing.T) {
	tests := map[string]string{
		"missing uri":    "input_format: text\nserde: text\ncolumns: [{name: a, type: int}]\n",
		"no columns":     "uri: /tmp/x\ninput_format: text\nserde: text\n",
		"bad format":     "uri: /tmp/x\ninput_format: text\nserde: text\ncolumns: [{name: a, type: int}]\nscan: {format: csv}\n",
		"bad file type":  "uri: /tmp/x\nfile_type: ftp\ninput_format: text\nserde: text\ncolumns: [{name: a, type: int}]\n",
		"unknown field":  "uri: /tmp/x\ninput_format: text\nserde: text\ncolumns: [{name: a, type: int}]\nbogus: 1\n",
		"delimiter type": "uri: /tmp/x\ninput_format: text\nserde: text\ncolumns: [{name: a, type: 'int#int'}]\n",
		"not yaml":       "uri: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadJob(writeJob(t, content))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration), err.Error())
		})
	}

	_, err := LoadJob(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("HIVESCAN_A", "1")
	assert.Equal(t, "x=1 y= z=d", substituteEnvVars("x=${HIVESCAN_A} y=${HIVESCAN_UNSET} z=${HIVESCAN_UNSET:-d}"))
	assert.Equal(t, "open ${", substituteEnvVars("open ${"))
}
