package serde

import (
	"github.com/ajitpratap0/hivescan/pkg/types"
)

// Category tells which inspector interface a value's inspector implements.
type Category int

const (
	CategoryPrimitive Category = iota
	CategoryList
	CategoryMap
	CategoryStruct
)

func (c Category) String() string {
	switch c {
	case CategoryPrimitive:
		return "primitive"
	case CategoryList:
		return "list"
	case CategoryMap:
		return "map"
	case CategoryStruct:
		return "struct"
	}
	return "unknown"
}

// Inspector interprets the payloads a deserializer produces for one type.
// A nil payload is SQL NULL for every inspector.
type Inspector interface {
	Category() Category
	Type() *types.ColumnType
}

// PrimitiveInspector converts a payload to its canonical Go value:
//
//	boolean               bool
//	tinyint .. bigint     int8, int16, int32, int64
//	float, double         float32, float64
//	string, char, varchar string
//	binary                []byte
//	date, timestamp       time.Time (UTC)
//	decimal(p,s)          decimal128.Num scaled by s
//
// Primitive returns nil for NULL and for text payloads that do not parse as
// the declared type.
type PrimitiveInspector interface {
	Inspector
	Primitive(data any) (any, error)
}

// ListInspector walks array payloads.
type ListInspector interface {
	Inspector
	Element() Inspector
	Elements(data any) ([]any, error)
}

// MapEntry is one key/value pair of a map payload.
type MapEntry struct {
	Key   any
	Value any
}

// MapInspector walks map payloads.
type MapInspector interface {
	Inspector
	Key() Inspector
	Value() Inspector
	Entries(data any) ([]MapEntry, error)
}

// FieldRef is a resolved handle to one struct field. It is only valid with
// the inspector that returned it.
type FieldRef struct {
	Name      string
	ID        int
	Inspector Inspector
}

// StructInspector walks struct payloads, including whole rows.
type StructInspector interface {
	Inspector
	Fields() []*FieldRef
	// Field resolves a field by name, ignoring case.
	Field(name string) (*FieldRef, error)
	FieldData(data any, ref *FieldRef) (any, error)
}

// structFields builds the refs and the lookup index shared by every struct
// inspector.
type structFields struct {
	refs   []*FieldRef
	byName map[string]*FieldRef
}

func newStructFields(names []string, inspectors []Inspector) structFields {
	sf := structFields{
		refs:   make([]*FieldRef, len(names)),
		byName: make(map[string]*FieldRef, len(names)),
	}
	for i, name := range names {
		ref := &FieldRef{Name: name, ID: i, Inspector: inspectors[i]}
		sf.refs[i] = ref
		// the last declaration of a repeated name wins
		sf.byName[lower(name)] = ref
	}
	return sf
}

func (sf structFields) Fields() []*FieldRef { return sf.refs }

func (sf structFields) Field(name string) (*FieldRef, error) {
	if ref, ok := sf.byName[lower(name)]; ok {
		return ref, nil
	}
	return nil, &FieldNotFoundError{Name: name}
}

// FieldNotFoundError is returned when a struct has no field of that name.
type FieldNotFoundError struct {
	Name string
}

func (e *FieldNotFoundError) Error() string {
	return "no field named " + e.Name
}
