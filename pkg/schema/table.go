package schema

import (
	"github.com/ajitpratap0/hivescan/pkg/json"
	"github.com/ajitpratap0/hivescan/pkg/types"
)

// ColumnSchema describes one column in the table schema handed back by a
// schema-only probe.
type ColumnSchema struct {
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	Precision    int32          `json:"precision"`
	Scale        int32          `json:"scale"`
	Length       int            `json:"length,omitempty"`
	ChildColumns []ColumnSchema `json:"childColumns,omitempty"`
}

// TableSchema is the ordered schema of the projected columns.
type TableSchema []ColumnSchema

// TableSchema converts the resolution into its exported form.
func (r *Resolution) TableSchema() TableSchema {
	out := make(TableSchema, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = describe(c.Name, c.Type)
	}
	return out
}

func describe(name string, t *types.ColumnType) ColumnSchema {
	cs := ColumnSchema{
		Name:      name,
		Type:      t.Kind.String(),
		Precision: t.Precision,
		Scale:     t.Scale,
		Length:    t.Length,
	}
	switch t.Kind {
	case types.KindArray:
		cs.ChildColumns = []ColumnSchema{describe("element", t.Elem)}
	case types.KindMap:
		cs.ChildColumns = []ColumnSchema{describe("key", t.Key), describe("value", t.Elem)}
	case types.KindStruct:
		cs.ChildColumns = make([]ColumnSchema, len(t.Fields))
		for i, f := range t.Fields {
			cs.ChildColumns[i] = describe(f.Name, f.Type)
		}
	}
	return cs
}

// JSON encodes the schema as a JSON array.
func (s TableSchema) JSON() ([]byte, error) {
	return json.Marshal(s)
}
