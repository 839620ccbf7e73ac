// Package value bridges deserialized row payloads to typed column values
// that batch sinks can append.
package value

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow/decimal128"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/serde"
	"github.com/ajitpratap0/hivescan/pkg/types"
)

// ColumnValue is one non-null cell, or Null. Primitive cells are converted
// when they are bridged; container cells are walked on demand through the
// typed accessors.
type ColumnValue struct {
	inspector serde.Inspector
	// data is the canonical value for primitives and the serde payload
	// otherwise.
	data any
}

// Null is the absent value.
var Null = ColumnValue{}

// Entry is one key/value pair of a map cell.
type Entry struct {
	Key   ColumnValue
	Value ColumnValue
}

// Bridge extracts the field ref points at from row. A NULL field, and a text
// field that does not parse as its declared type, come back as Null.
func Bridge(si serde.StructInspector, row any, ref *serde.FieldRef) (ColumnValue, error) {
	data, err := si.FieldData(row, ref)
	if err != nil {
		return Null, errors.Wrapf(err, errors.ErrorTypeData, "extract field %s", ref.Name)
	}
	return Of(ref.Inspector, data)
}

// Of wraps a payload described by in.
func Of(in serde.Inspector, data any) (ColumnValue, error) {
	if data == nil {
		return Null, nil
	}
	if pi, ok := in.(serde.PrimitiveInspector); ok {
		v, err := pi.Primitive(data)
		if err != nil {
			return Null, errors.Wrapf(err, errors.ErrorTypeData, "convert %s value", in.Type())
		}
		if v == nil {
			return Null, nil
		}
		data = v
	}
	return ColumnValue{inspector: in, data: data}, nil
}

// IsNull reports whether v is Null.
func (v ColumnValue) IsNull() bool { return v.inspector == nil }

// Type is the declared type of the value, nil for Null.
func (v ColumnValue) Type() *types.ColumnType {
	if v.inspector == nil {
		return nil
	}
	return v.inspector.Type()
}

func (v ColumnValue) kind() types.Kind {
	if v.inspector == nil {
		return types.KindVoid
	}
	return v.inspector.Type().Kind
}

func (v ColumnValue) mismatch(want string) error {
	if v.IsNull() {
		return errors.Newf(errors.ErrorTypeData, "%s accessor called on NULL", want)
	}
	return errors.Newf(errors.ErrorTypeData, "%s accessor called on %s value", want, v.Type())
}

// Bool returns a boolean cell.
func (v ColumnValue) Bool() (bool, error) {
	if b, ok := v.data.(bool); ok {
		return b, nil
	}
	return false, v.mismatch("bool")
}

// Int returns any integer cell widened to int64.
func (v ColumnValue) Int() (int64, error) {
	switch n := v.data.(type) {
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	}
	return 0, v.mismatch("int")
}

// Float returns a float or double cell.
func (v ColumnValue) Float() (float64, error) {
	switch f := v.data.(type) {
	case float32:
		return float64(f), nil
	case float64:
		return f, nil
	}
	return 0, v.mismatch("float")
}

// Text returns a string, char or varchar cell.
func (v ColumnValue) Text() (string, error) {
	if s, ok := v.data.(string); ok && v.kind().IsText() {
		return s, nil
	}
	return "", v.mismatch("text")
}

// Bytes returns a binary cell, or the bytes of a text cell.
func (v ColumnValue) Bytes() ([]byte, error) {
	switch b := v.data.(type) {
	case []byte:
		return b, nil
	case string:
		if v.kind().IsText() {
			return []byte(b), nil
		}
	}
	return nil, v.mismatch("bytes")
}

// Decimal returns a decimal cell scaled by the column scale.
func (v ColumnValue) Decimal() (decimal128.Num, error) {
	if n, ok := v.data.(decimal128.Num); ok {
		return n, nil
	}
	return decimal128.Num{}, v.mismatch("decimal")
}

// Time returns a date or timestamp cell in UTC.
func (v ColumnValue) Time() (time.Time, error) {
	if t, ok := v.data.(time.Time); ok {
		return t, nil
	}
	return time.Time{}, v.mismatch("time")
}

// Elements returns the items of an array cell.
func (v ColumnValue) Elements() ([]ColumnValue, error) {
	li, ok := v.inspector.(serde.ListInspector)
	if !ok {
		return nil, v.mismatch("elements")
	}
	items, err := li.Elements(v.data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "read array")
	}
	out := make([]ColumnValue, len(items))
	for i, item := range items {
		if out[i], err = Of(li.Element(), item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Entries returns the pairs of a map cell.
func (v ColumnValue) Entries() ([]Entry, error) {
	mi, ok := v.inspector.(serde.MapInspector)
	if !ok {
		return nil, v.mismatch("entries")
	}
	raw, err := mi.Entries(v.data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "read map")
	}
	out := make([]Entry, len(raw))
	for i, e := range raw {
		if out[i].Key, err = Of(mi.Key(), e.Key); err != nil {
			return nil, err
		}
		if out[i].Value, err = Of(mi.Value(), e.Value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Fields returns the members of a struct cell in declaration order.
func (v ColumnValue) Fields() ([]ColumnValue, error) {
	si, ok := v.inspector.(serde.StructInspector)
	if !ok {
		return nil, v.mismatch("fields")
	}
	refs := si.Fields()
	out := make([]ColumnValue, len(refs))
	for i, ref := range refs {
		var err error
		if out[i], err = Bridge(si, v.data, ref); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Interface returns the value as plain Go data: the canonical primitive,
// []any for arrays, map[string]any for structs, and []any of two element
// [key, value] pairs for maps. Decimals and dates come back as their text
// form. Null is nil.
func (v ColumnValue) Interface() (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch v.inspector.Category() {
	case serde.CategoryList:
		elems, err := v.Elements()
		if err != nil {
			return nil, err
		}
		out := make([]any, len(elems))
		for i, e := range elems {
			if out[i], err = e.Interface(); err != nil {
				return nil, err
			}
		}
		return out, nil
	case serde.CategoryMap:
		entries, err := v.Entries()
		if err != nil {
			return nil, err
		}
		out := make([]any, len(entries))
		for i, e := range entries {
			k, err := e.Key.Interface()
			if err != nil {
				return nil, err
			}
			val, err := e.Value.Interface()
			if err != nil {
				return nil, err
			}
			out[i] = []any{k, val}
		}
		return out, nil
	case serde.CategoryStruct:
		fields, err := v.Fields()
		if err != nil {
			return nil, err
		}
		refs := v.inspector.(serde.StructInspector).Fields()
		out := make(map[string]any, len(fields))
		for i, f := range fields {
			if out[refs[i].Name], err = f.Interface(); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	switch t := v.Type(); t.Kind {
	case types.KindDecimal:
		return v.data.(decimal128.Num).ToString(t.Scale), nil
	case types.KindDate:
		return v.data.(time.Time).Format(serde.DateLayout), nil
	}
	return v.data, nil
}
