// Package types defines the column type descriptors produced from Hive type
// strings and the grammar that parses them.
package types

import (
	"strconv"
	"strings"
)

// Kind is the primitive or container category of a column.
type Kind int

const (
	KindUnsupported Kind = iota
	KindBoolean
	KindTinyInt
	KindSmallInt
	KindInt
	KindBigInt
	KindFloat
	KindDouble
	KindDecimal
	KindString
	KindChar
	KindVarchar
	KindBinary
	KindDate
	KindTimestamp
	KindVoid
	KindArray
	KindMap
	KindStruct
)

var kindNames = map[Kind]string{
	KindUnsupported: "unsupported",
	KindBoolean:     "boolean",
	KindTinyInt:     "tinyint",
	KindSmallInt:    "smallint",
	KindInt:         "int",
	KindBigInt:      "bigint",
	KindFloat:       "float",
	KindDouble:      "double",
	KindDecimal:     "decimal",
	KindString:      "string",
	KindChar:        "char",
	KindVarchar:     "varchar",
	KindBinary:      "binary",
	KindDate:        "date",
	KindTimestamp:   "timestamp",
	KindVoid:        "void",
	KindArray:       "array",
	KindMap:         "map",
	KindStruct:      "struct",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// IsPrimitive reports whether k holds a scalar value.
func (k Kind) IsPrimitive() bool {
	return k != KindArray && k != KindMap && k != KindStruct
}

// IsInteger reports whether k is one of the fixed-width integer kinds.
func (k Kind) IsInteger() bool {
	switch k {
	case KindTinyInt, KindSmallInt, KindInt, KindBigInt:
		return true
	}
	return false
}

// IsText reports whether k is stored as a string.
func (k Kind) IsText() bool {
	return k == KindString || k == KindChar || k == KindVarchar
}

const (
	// MaxDecimalPrecision is the widest decimal Hive (and decimal128) can hold.
	MaxDecimalPrecision = 38
	// DefaultDecimalPrecision applies to a bare "decimal".
	DefaultDecimalPrecision = 10
	// DefaultDecimalScale applies to a bare "decimal" or "decimal(p)".
	DefaultDecimalScale = 0
)

// Field is a named child of a struct type.
type Field struct {
	Name string
	Type *ColumnType
}

// ColumnType is a parsed column type. It is immutable once returned by Parse.
type ColumnType struct {
	Kind Kind

	// Precision and Scale are set for KindDecimal.
	Precision int32
	Scale     int32

	// Length is set for KindChar and KindVarchar.
	Length int

	// Elem is the element type of an array and the value type of a map.
	Elem *ColumnType
	// Key is the key type of a map.
	Key *ColumnType
	// Fields are the members of a struct, in declaration order.
	Fields []Field

	// raw keeps the source text for KindUnsupported so it can be reported.
	raw string
}

// Primitive returns a type descriptor for a parameterless kind.
func Primitive(k Kind) *ColumnType {
	return &ColumnType{Kind: k}
}

// Decimal returns a decimal(precision, scale) descriptor.
func Decimal(precision, scale int32) *ColumnType {
	return &ColumnType{Kind: KindDecimal, Precision: precision, Scale: scale}
}

// ArrayOf returns array<elem>.
func ArrayOf(elem *ColumnType) *ColumnType {
	return &ColumnType{Kind: KindArray, Elem: elem}
}

// MapOf returns map<key,value>.
func MapOf(key, value *ColumnType) *ColumnType {
	return &ColumnType{Kind: KindMap, Key: key, Elem: value}
}

// StructOf returns struct<fields...>.
func StructOf(fields ...Field) *ColumnType {
	return &ColumnType{Kind: KindStruct, Fields: fields}
}

// String renders t in Hive type syntax; Parse(t.String()) yields an equal type.
func (t *ColumnType) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *ColumnType) write(b *strings.Builder) {
	switch t.Kind {
	case KindDecimal:
		b.WriteString("decimal(")
		b.WriteString(strconv.Itoa(int(t.Precision)))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(int(t.Scale)))
		b.WriteByte(')')
	case KindChar, KindVarchar:
		b.WriteString(t.Kind.String())
		b.WriteByte('(')
		b.WriteString(strconv.Itoa(t.Length))
		b.WriteByte(')')
	case KindArray:
		b.WriteString("array<")
		t.Elem.write(b)
		b.WriteByte('>')
	case KindMap:
		b.WriteString("map<")
		t.Key.write(b)
		b.WriteByte(',')
		t.Elem.write(b)
		b.WriteByte('>')
	case KindStruct:
		b.WriteString("struct<")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(f.Name)
			b.WriteByte(':')
			f.Type.write(b)
		}
		b.WriteByte('>')
	case KindUnsupported:
		if t.raw != "" {
			b.WriteString(t.raw)
			return
		}
		b.WriteString(t.Kind.String())
	default:
		b.WriteString(t.Kind.String())
	}
}

// Equal reports whether two descriptors describe the same type.
func (t *ColumnType) Equal(o *ColumnType) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindDecimal:
		return t.Precision == o.Precision && t.Scale == o.Scale
	case KindChar, KindVarchar:
		return t.Length == o.Length
	case KindArray:
		return t.Elem.Equal(o.Elem)
	case KindMap:
		return t.Key.Equal(o.Key) && t.Elem.Equal(o.Elem)
	case KindStruct:
		if len(t.Fields) != len(o.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != o.Fields[i].Name || !t.Fields[i].Type.Equal(o.Fields[i].Type) {
				return false
			}
		}
		return true
	case KindUnsupported:
		return t.raw == o.raw
	}
	return true
}
