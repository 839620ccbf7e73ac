// Package serde turns the raw rows produced by input format readers into
// values that can be walked with inspectors, mirroring Hive's SerDe and
// ObjectInspector split. Deserializers are registered under their Hive class
// names so table metadata can select them directly.
package serde

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
	"github.com/ajitpratap0/hivescan/pkg/registry"
	"github.com/ajitpratap0/hivescan/pkg/types"
)

// Registered deserializer class names.
const (
	ColumnarSerDe   = "org.apache.hadoop.hive.serde2.columnar.ColumnarSerDe"
	LazySimpleSerDe = "org.apache.hadoop.hive.serde2.lazy.LazySimpleSerDe"
	JsonSerDe       = "org.apache.hive.hcatalog.data.JsonSerDe"
	AvroSerDe       = "org.apache.hadoop.hive.serde2.avro.AvroSerDe"
)

// Deserializer converts raw rows into payloads described by its row
// inspector. Initialize must be called once before anything else. The
// payload returned by Deserialize may share memory with raw and with the
// previous payload.
type Deserializer interface {
	Initialize(props hiveconf.Properties) error
	Deserialize(raw any) (any, error)
	Inspector() StructInspector
}

// Factory creates an uninitialised deserializer.
type Factory func() Deserializer

var deserializers = registry.New[Factory]("deserializer")

func init() {
	deserializers.MustRegister(ColumnarSerDe, func() Deserializer { return &columnarSerDe{} }, "columnar")
	deserializers.MustRegister(LazySimpleSerDe, func() Deserializer { return &lazySimpleSerDe{} }, "lazysimple", "text")
	deserializers.MustRegister(JsonSerDe, func() Deserializer { return &jsonSerDe{} }, "json", "org.apache.hadoop.hive.serde2.JsonSerDe")
	deserializers.MustRegister(AvroSerDe, func() Deserializer { return &avroSerDe{} }, "avro")
}

// Register adds a deserializer factory.
func Register(name string, f Factory, aliases ...string) error {
	return deserializers.Register(name, f, aliases...)
}

// Lookup returns the factory for a class name or alias.
func Lookup(name string) (Factory, error) {
	return deserializers.Lookup(name)
}

// Names lists the registered class names.
func Names() []string {
	return deserializers.List()
}

// Aliases lists the short names of a registered class.
func Aliases(name string) []string {
	return deserializers.Aliases(name)
}

// tableColumns reads the declared columns out of the "columns" and
// "columns.types" properties.
func tableColumns(props hiveconf.Properties) ([]string, []*types.ColumnType, error) {
	names := props.ColumnNames()
	typs, err := types.ParseList(props.Get(hiveconf.ColumnTypes, ""))
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeSchema, "parse column types").
			WithDetail("property", hiveconf.ColumnTypes)
	}
	if len(names) != len(typs) {
		return nil, nil, errors.Newf(errors.ErrorTypeSchema,
			"%d column names but %d column types", len(names), len(typs))
	}
	return names, typs, nil
}

func lower(s string) string { return strings.ToLower(s) }

// typeError reports a payload of an unexpected Go type.
type typeError struct {
	want string
	got  any
}

func (e *typeError) Error() string {
	return "expected " + e.want + " payload, got " + typeName(e.got)
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
