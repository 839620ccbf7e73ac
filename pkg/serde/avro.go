package serde

import (
	"math/big"
	"time"

	"github.com/apache/arrow-go/v18/arrow/decimal128"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
	"github.com/ajitpratap0/hivescan/pkg/types"
)

// AvroRecord is the raw row of an Avro container file: a goavro native
// datum and the writer schema of the file it came from.
type AvroRecord struct {
	Datum        any
	WriterSchema string
}

// avroSerDe maps Avro records onto the declared columns by field name,
// ignoring case. Columns missing from the writer schema read as NULL.
type avroSerDe struct {
	inspector *avroRowInspector

	// the writer schema is parsed once per distinct schema text
	schemaText string
	schema     *avroSchema
	row        avroRow
}

type avroRow struct {
	datum  map[string]any
	schema *avroSchema
}

func (s *avroSerDe) Initialize(props hiveconf.Properties) error {
	names, typs, err := tableColumns(props)
	if err != nil {
		return err
	}
	fields := make([]types.Field, len(names))
	inspectors := make([]Inspector, len(names))
	for i := range names {
		fields[i] = types.Field{Name: names[i], Type: typs[i]}
		inspectors[i] = avroInspector(typs[i])
	}
	s.inspector = &avroRowInspector{
		structFields: newStructFields(names, inspectors),
		typ:          types.StructOf(fields...),
	}
	return nil
}

func (s *avroSerDe) Deserialize(raw any) (any, error) {
	rec, ok := raw.(*AvroRecord)
	if !ok {
		return nil, &typeError{want: "avro record", got: raw}
	}
	if rec.WriterSchema != s.schemaText || s.schema == nil {
		schema, err := parseAvroSchema(rec.WriterSchema)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid avro writer schema")
		}
		s.schemaText, s.schema = rec.WriterSchema, schema
	}
	datum, ok := rec.Datum.(map[string]any)
	if !ok {
		return nil, &typeError{want: "avro record", got: rec.Datum}
	}
	s.row = avroRow{datum: datum, schema: s.schema}
	return &s.row, nil
}

func (s *avroSerDe) Inspector() StructInspector { return s.inspector }

type avroRowInspector struct {
	structFields
	typ *types.ColumnType
}

func (i *avroRowInspector) Category() Category      { return CategoryStruct }
func (i *avroRowInspector) Type() *types.ColumnType { return i.typ }

func (i *avroRowInspector) FieldData(data any, ref *FieldRef) (any, error) {
	if data == nil {
		return nil, nil
	}
	row, ok := data.(*avroRow)
	if !ok {
		return nil, &typeError{want: "avro row", got: data}
	}
	f := row.schema.field(ref.Name)
	if f == nil {
		return nil, nil
	}
	return f.schema.unwrap(row.datum[f.name]), nil
}

// avroInspector builds inspectors over union-free Avro values, which share
// the Go shapes of decoded JSON: []any for arrays and map[string]any for maps
// and records. Only primitives convert differently.
func avroInspector(t *types.ColumnType) Inspector {
	switch t.Kind {
	case types.KindArray:
		return &jsonList{typ: t, elem: avroInspector(t.Elem)}
	case types.KindMap:
		return &jsonMap{typ: t, key: avroInspector(t.Key), value: avroInspector(t.Elem)}
	case types.KindStruct:
		names := make([]string, len(t.Fields))
		inspectors := make([]Inspector, len(t.Fields))
		for i, f := range t.Fields {
			names[i] = f.Name
			inspectors[i] = avroInspector(f.Type)
		}
		return &jsonStruct{typ: t, structFields: newStructFields(names, inspectors)}
	}
	return &avroPrimitive{typ: t}
}

type avroPrimitive struct {
	typ *types.ColumnType
}

func (i *avroPrimitive) Category() Category      { return CategoryPrimitive }
func (i *avroPrimitive) Type() *types.ColumnType { return i.typ }

func (i *avroPrimitive) Primitive(data any) (any, error) {
	if data == nil {
		return nil, nil
	}
	v, ok := i.convert(data)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeData, "avro value of type %s is not a valid %s", typeName(data), i.typ)
	}
	return v, nil
}

func (i *avroPrimitive) convert(data any) (any, bool) {
	t := i.typ
	// map keys and enum symbols arrive as strings
	if s, ok := data.(string); ok && !t.Kind.IsText() && t.Kind != types.KindBinary {
		return parseText(t, []byte(s))
	}

	switch t.Kind {
	case types.KindVoid, types.KindUnsupported:
		return nil, true
	case types.KindBoolean:
		b, ok := data.(bool)
		return b, ok
	case types.KindTinyInt, types.KindSmallInt, types.KindInt, types.KindBigInt:
		n, ok := avroInt(data)
		if !ok || !fitsInt(n, intBits(t.Kind)) {
			return nil, false
		}
		return narrowInt(t.Kind, n), true
	case types.KindFloat:
		switch v := data.(type) {
		case float32:
			return v, true
		case float64:
			return float32(v), true
		}
	case types.KindDouble:
		switch v := data.(type) {
		case float32:
			return float64(v), true
		case float64:
			return v, true
		}
		if n, ok := avroInt(data); ok {
			return float64(n), true
		}
	case types.KindDecimal:
		if r, ok := data.(*big.Rat); ok {
			return ratToDecimal(r, t.Precision, t.Scale)
		}
		if n, ok := avroInt(data); ok {
			return ratToDecimal(new(big.Rat).SetInt64(n), t.Precision, t.Scale)
		}
	case types.KindString, types.KindChar, types.KindVarchar:
		var s string
		switch v := data.(type) {
		case string:
			s = v
		case []byte:
			s = string(v)
		default:
			return nil, false
		}
		if b, ok := parseText(t, []byte(s)); ok {
			return b, true
		}
	case types.KindBinary:
		switch v := data.(type) {
		case []byte:
			return v, true
		case string:
			return []byte(v), true
		}
	case types.KindDate:
		switch v := data.(type) {
		case time.Time:
			y, m, d := v.UTC().Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		case int32:
			return time.Unix(int64(v)*86400, 0).UTC(), true
		}
	case types.KindTimestamp:
		if ts, ok := data.(time.Time); ok {
			return ts.UTC(), true
		}
	}
	return nil, false
}

func avroInt(data any) (int64, bool) {
	switch v := data.(type) {
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

func fitsInt(n int64, bits int) bool {
	if bits == 64 {
		return true
	}
	limit := int64(1) << (bits - 1)
	return n >= -limit && n < limit
}

var ten = big.NewInt(10)

// ratToDecimal scales r to the column scale, rounding half away from zero.
func ratToDecimal(r *big.Rat, precision, scale int32) (any, bool) {
	mult := new(big.Int).Exp(ten, big.NewInt(int64(scale)), nil)
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(mult))

	num, den := scaled.Num(), scaled.Denom()
	q, m := new(big.Int).QuoRem(num, den, new(big.Int))
	if new(big.Int).Lsh(new(big.Int).Abs(m), 1).Cmp(den) >= 0 {
		if num.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}
	if q.BitLen() > 127 {
		return nil, false
	}
	n := decimal128.FromBigInt(q)
	if !n.FitsInPrecision(precision) {
		return nil, false
	}
	return n, true
}
