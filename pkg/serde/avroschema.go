package serde

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/hivescan/pkg/json"
)

// avroSchema is the part of an Avro writer schema needed to strip union
// wrappers from decoded datums. goavro hands a non-null union value back as
// a single entry map keyed by the branch type name, which cannot be told
// apart from a one-entry Avro map without the schema.
type avroSchema struct {
	typ      string
	logical  string
	name     string
	fullName string
	fields   map[string]*avroField
	items    *avroSchema
	branches []*avroSchema
}

type avroField struct {
	name   string
	schema *avroSchema
}

var avroPrimitives = map[string]bool{
	"null": true, "boolean": true, "int": true, "long": true, "float": true,
	"double": true, "bytes": true, "string": true,
}

func parseAvroSchema(text string) (*avroSchema, error) {
	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("parse avro schema: %w", err)
	}
	return buildAvroSchema(raw, "", make(map[string]*avroSchema))
}

func buildAvroSchema(raw any, ns string, named map[string]*avroSchema) (*avroSchema, error) {
	switch v := raw.(type) {
	case string:
		if avroPrimitives[v] {
			return &avroSchema{typ: v}, nil
		}
		if s, ok := named[qualify(v, ns)]; ok {
			return s, nil
		}
		if s, ok := named[v]; ok {
			return s, nil
		}
		return nil, fmt.Errorf("unknown avro type %q", v)
	case []any:
		u := &avroSchema{typ: "union"}
		for _, b := range v {
			branch, err := buildAvroSchema(b, ns, named)
			if err != nil {
				return nil, err
			}
			u.branches = append(u.branches, branch)
		}
		return u, nil
	case map[string]any:
		return buildComplex(v, ns, named)
	}
	return nil, fmt.Errorf("malformed avro schema node %T", raw)
}

func buildComplex(v map[string]any, ns string, named map[string]*avroSchema) (*avroSchema, error) {
	typ, ok := v["type"].(string)
	if !ok {
		// {"type": {...}} wraps another schema
		return buildAvroSchema(v["type"], ns, named)
	}
	logical, _ := v["logicalType"].(string)

	switch typ {
	case "record", "error", "enum", "fixed":
		name, _ := v["name"].(string)
		if space, ok := v["namespace"].(string); ok && space != "" {
			ns = space
		}
		s := &avroSchema{typ: typ, logical: logical, name: shortName(name), fullName: qualify(name, ns)}
		named[s.fullName] = s
		if typ != "record" && typ != "error" {
			return s, nil
		}
		if strings.Contains(s.fullName, ".") {
			ns = s.fullName[:strings.LastIndexByte(s.fullName, '.')]
		}
		fields, _ := v["fields"].([]any)
		s.fields = make(map[string]*avroField, len(fields))
		for _, f := range fields {
			fm, ok := f.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("record %s has a malformed field", s.fullName)
			}
			fname, _ := fm["name"].(string)
			fs, err := buildAvroSchema(fm["type"], ns, named)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", s.fullName, fname, err)
			}
			s.fields[lower(fname)] = &avroField{name: fname, schema: fs}
		}
		return s, nil
	case "array":
		items, err := buildAvroSchema(v["items"], ns, named)
		if err != nil {
			return nil, err
		}
		return &avroSchema{typ: typ, items: items}, nil
	case "map":
		values, err := buildAvroSchema(v["values"], ns, named)
		if err != nil {
			return nil, err
		}
		return &avroSchema{typ: typ, items: values}, nil
	}
	if !avroPrimitives[typ] {
		return buildAvroSchema(typ, ns, named)
	}
	return &avroSchema{typ: typ, logical: logical}, nil
}

func qualify(name, ns string) string {
	if ns == "" || strings.Contains(name, ".") {
		return name
	}
	return ns + "." + name
}

func shortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// field finds a record field by name, ignoring case.
func (s *avroSchema) field(name string) *avroField {
	if s == nil || s.fields == nil {
		return nil
	}
	return s.fields[lower(name)]
}

// branch finds the union branch goavro labelled with name.
func (s *avroSchema) branch(name string) *avroSchema {
	for _, b := range s.branches {
		if name == b.typ || (b.fullName != "" && name == b.fullName) || (b.name != "" && name == b.name) {
			return b
		}
		if b.logical != "" && name == b.typ+"."+b.logical {
			return b
		}
	}
	return nil
}

// unwrap strips union wrappers from v, recursing through records, arrays
// and maps.
func (s *avroSchema) unwrap(v any) any {
	if v == nil || s == nil {
		return v
	}
	switch s.typ {
	case "union":
		m, ok := v.(map[string]any)
		if !ok || len(m) != 1 {
			return v
		}
		for name, inner := range m {
			return s.branch(name).unwrap(inner)
		}
	case "record", "error":
		rec, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(rec))
		for k, fv := range rec {
			if f := s.field(k); f != nil {
				fv = f.schema.unwrap(fv)
			}
			out[k] = fv
		}
		return out
	case "array":
		items, ok := v.([]any)
		if !ok {
			return v
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = s.items.unwrap(item)
		}
		return out
	case "map":
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for k, mv := range m {
			out[k] = s.items.unwrap(mv)
		}
		return out
	}
	return v
}
