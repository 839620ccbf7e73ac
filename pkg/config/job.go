package config

import (
	"runtime"
	"strconv"
	"strings"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/scanconf"
	"github.com/ajitpratap0/hivescan/pkg/storage"
)

// Output formats of the scan command.
const (
	FormatArrow     = "arrow"
	FormatJSONLines = "jsonl"
)

const (
	defaultCapacity  = 4096
	defaultSplitSize = 128 << 20
)

// JobConfig describes one table file to scan.
type JobConfig struct {
	Name string `yaml:"name" json:"name"`

	// URI is the file to scan: a local path, file://, s3:// or gs://.
	URI string `yaml:"uri" json:"uri"`
	// FileType is a file type name or number. Inferred from URI when empty.
	FileType   string `yaml:"file_type" json:"file_type"`
	FileFormat int    `yaml:"file_format" json:"file_format"`

	InputFormat string `yaml:"input_format" json:"input_format"`
	Serde       string `yaml:"serde" json:"serde"`

	Columns []Column `yaml:"columns" json:"columns"`
	// RequiredFields is the projection. Omitted means every column; an
	// empty list counts rows.
	RequiredFields []string `yaml:"required_fields" json:"required_fields"`

	// Properties are passed through to the reader, the deserializer and
	// the storage backend (delimiters, null format, credentials).
	Properties map[string]string `yaml:"properties" json:"properties"`

	Scan          ScanConfig          `yaml:"scan" json:"scan"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// Column is one declared table column.
type Column struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// ScanConfig controls how the file is split and where batches go.
type ScanConfig struct {
	// Capacity is the maximum number of rows per batch
	Capacity int `yaml:"capacity" json:"capacity"`
	// SplitSize is the byte length of each split (0 = one split)
	SplitSize int64 `yaml:"split_size" json:"split_size"`
	// Parallelism bounds the splits scanned at once
	Parallelism int    `yaml:"parallelism" json:"parallelism"`
	Output      string `yaml:"output" json:"output"`
	Format      string `yaml:"format" json:"format"`
}

// ObservabilityConfig contains logging, metrics and tracing settings.
type ObservabilityConfig struct {
	LogLevel          string  `yaml:"log_level" json:"log_level"`
	LogFormat         string  `yaml:"log_format" json:"log_format"`
	MetricsAddr       string  `yaml:"metrics_addr" json:"metrics_addr"`
	Trace             bool    `yaml:"trace" json:"trace"`
	TraceSamplingRate float64 `yaml:"trace_sampling_rate" json:"trace_sampling_rate"`
}

// LoadJob reads, defaults and validates a job file.
func LoadJob(path string) (*JobConfig, error) {
	var job JobConfig
	if err := Load(path, &job); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "load job").
			WithDetail("path", path)
	}
	job.ApplyDefaults()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// ApplyDefaults fills every unset option.
func (j *JobConfig) ApplyDefaults() {
	if j.FileType == "" {
		j.FileType = storage.InferFileType(j.URI).String()
	}
	if j.RequiredFields == nil {
		j.RequiredFields = make([]string, len(j.Columns))
		for i, c := range j.Columns {
			j.RequiredFields[i] = c.Name
		}
	}
	if j.Scan.Capacity == 0 {
		j.Scan.Capacity = defaultCapacity
	}
	if j.Scan.SplitSize == 0 {
		j.Scan.SplitSize = defaultSplitSize
	}
	if j.Scan.Parallelism == 0 {
		j.Scan.Parallelism = runtime.NumCPU()
	}
	if j.Scan.Format == "" {
		j.Scan.Format = FormatArrow
	}
	if j.Observability.LogLevel == "" {
		j.Observability.LogLevel = "info"
	}
	if j.Observability.LogFormat == "" {
		j.Observability.LogFormat = "json"
	}
	if j.Observability.TraceSamplingRate == 0 {
		j.Observability.TraceSamplingRate = 1
	}
}

// Validate checks the job. Column types are left to the scanner.
func (j *JobConfig) Validate() error {
	switch {
	case j.URI == "":
		return invalid("uri", "is required")
	case j.InputFormat == "":
		return invalid("input_format", "is required")
	case j.Serde == "":
		return invalid("serde", "is required")
	case len(j.Columns) == 0:
		return invalid("columns", "must declare at least one column")
	case j.Scan.Capacity < 0:
		return invalid("scan.capacity", "must not be negative")
	case j.Scan.SplitSize < 0:
		return invalid("scan.split_size", "must not be negative")
	case j.Scan.Parallelism < 0:
		return invalid("scan.parallelism", "must not be negative")
	case j.Scan.Format != FormatArrow && j.Scan.Format != FormatJSONLines:
		return invalid("scan.format", "must be "+FormatArrow+" or "+FormatJSONLines)
	}
	for i, c := range j.Columns {
		if c.Name == "" || c.Type == "" {
			return invalid("columns["+strconv.Itoa(i)+"]", "needs a name and a type")
		}
		if strings.Contains(c.Name, scanconf.FieldsDelimiter) || strings.Contains(c.Type, scanconf.TypesDelimiter) {
			return invalid("columns["+strconv.Itoa(i)+"]", "contains a list delimiter")
		}
	}
	if _, err := scanconf.ParseFileType(j.FileType); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfiguration, "invalid file_type").
			WithDetail("field", "file_type")
	}
	return nil
}

// ScanParameters renders the job as the flat parameter map a scanner is
// created from. schemaOnly selects a schema probe, which carries no split.
func (j *JobConfig) ScanParameters(schemaOnly bool) map[string]string {
	names := make([]string, len(j.Columns))
	typs := make([]string, len(j.Columns))
	for i, c := range j.Columns {
		names[i] = c.Name
		typs[i] = c.Type
	}

	raw := make(map[string]string, len(j.Properties)+11)
	for k, v := range j.Properties {
		raw[k] = v
	}
	fileType, _ := scanconf.ParseFileType(j.FileType)
	raw[scanconf.KeyFileType] = strconv.Itoa(int(fileType))
	raw[scanconf.KeyIsGetTableSchema] = strconv.FormatBool(schemaOnly)
	raw[scanconf.KeyFileFormat] = strconv.Itoa(j.FileFormat)
	raw[scanconf.KeyColumnNames] = strings.Join(names, scanconf.FieldsDelimiter)
	raw[scanconf.KeyColumnTypes] = strings.Join(typs, scanconf.TypesDelimiter)
	raw[scanconf.KeyRequiredFields] = strings.Join(j.RequiredFields, scanconf.FieldsDelimiter)
	raw[scanconf.KeyInputFormat] = j.InputFormat
	raw[scanconf.KeySerde] = j.Serde
	raw[scanconf.KeyURI] = j.URI
	if !schemaOnly {
		raw[scanconf.KeySplitStartOffset] = "0"
		raw[scanconf.KeySplitSize] = "0"
	}
	return raw
}

func invalid(field, msg string) error {
	return errors.Newf(errors.ErrorTypeConfiguration, "job %s %s", field, msg).
		WithDetail("field", field)
}
