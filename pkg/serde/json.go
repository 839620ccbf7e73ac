package serde

import (
	"sort"
	"strings"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
	"github.com/ajitpratap0/hivescan/pkg/json"
	"github.com/ajitpratap0/hivescan/pkg/types"
)

// jsonSerDe reads one JSON object per line. Object keys match column and
// struct field names without regard to case.
type jsonSerDe struct {
	inspector *jsonStruct
}

func (s *jsonSerDe) Initialize(props hiveconf.Properties) error {
	names, typs, err := tableColumns(props)
	if err != nil {
		return err
	}
	fields := make([]types.Field, len(names))
	for i := range names {
		fields[i] = types.Field{Name: names[i], Type: typs[i]}
	}
	s.inspector = jsonInspector(types.StructOf(fields...)).(*jsonStruct)
	return nil
}

func (s *jsonSerDe) Deserialize(raw any) (any, error) {
	line, ok := raw.([]byte)
	if !ok {
		return nil, &typeError{want: "text line", got: raw}
	}
	var row map[string]any
	if err := json.UnmarshalNumbers(line, &row); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "decode json row")
	}
	return row, nil
}

func (s *jsonSerDe) Inspector() StructInspector { return s.inspector }

func jsonInspector(t *types.ColumnType) Inspector {
	switch t.Kind {
	case types.KindArray:
		return &jsonList{typ: t, elem: jsonInspector(t.Elem)}
	case types.KindMap:
		return &jsonMap{typ: t, key: jsonInspector(t.Key), value: jsonInspector(t.Elem)}
	case types.KindStruct:
		names := make([]string, len(t.Fields))
		inspectors := make([]Inspector, len(t.Fields))
		for i, f := range t.Fields {
			names[i] = f.Name
			inspectors[i] = jsonInspector(f.Type)
		}
		return &jsonStruct{typ: t, structFields: newStructFields(names, inspectors)}
	}
	return &jsonPrimitive{typ: t}
}

type jsonPrimitive struct {
	typ *types.ColumnType
}

func (i *jsonPrimitive) Category() Category      { return CategoryPrimitive }
func (i *jsonPrimitive) Type() *types.ColumnType { return i.typ }

// Primitive accepts JSON scalars in any spelling that parses as the column
// type, so quoted numbers and numeric strings both work.
func (i *jsonPrimitive) Primitive(data any) (any, error) {
	var text string
	switch v := data.(type) {
	case nil:
		return nil, nil
	case string:
		text = v
	case json.Number:
		text = v.String()
	case bool:
		text = "false"
		if v {
			text = "true"
		}
	default:
		return nil, &typeError{want: i.typ.String(), got: data}
	}
	out, ok := parseText(i.typ, []byte(text))
	if !ok {
		if i.typ.Kind == types.KindVoid || i.typ.Kind == types.KindUnsupported {
			return nil, nil
		}
		return nil, errors.Newf(errors.ErrorTypeData, "json value %q is not a valid %s", text, i.typ)
	}
	return out, nil
}

type jsonList struct {
	typ  *types.ColumnType
	elem Inspector
}

func (i *jsonList) Category() Category      { return CategoryList }
func (i *jsonList) Type() *types.ColumnType { return i.typ }
func (i *jsonList) Element() Inspector      { return i.elem }

func (i *jsonList) Elements(data any) ([]any, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	}
	return nil, &typeError{want: i.typ.String(), got: data}
}

type jsonMap struct {
	typ   *types.ColumnType
	key   Inspector
	value Inspector
}

func (i *jsonMap) Category() Category      { return CategoryMap }
func (i *jsonMap) Type() *types.ColumnType { return i.typ }
func (i *jsonMap) Key() Inspector          { return i.key }
func (i *jsonMap) Value() Inspector        { return i.value }

// Entries returns the object members ordered by key.
func (i *jsonMap) Entries(data any) ([]MapEntry, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]MapEntry, len(keys))
		for n, k := range keys {
			out[n] = MapEntry{Key: k, Value: v[k]}
		}
		return out, nil
	}
	return nil, &typeError{want: i.typ.String(), got: data}
}

type jsonStruct struct {
	structFields
	typ *types.ColumnType
}

func (i *jsonStruct) Category() Category      { return CategoryStruct }
func (i *jsonStruct) Type() *types.ColumnType { return i.typ }

func (i *jsonStruct) FieldData(data any, ref *FieldRef) (any, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if val, ok := v[ref.Name]; ok {
			return val, nil
		}
		for k, val := range v {
			if strings.EqualFold(k, ref.Name) {
				return val, nil
			}
		}
		return nil, nil
	}
	return nil, &typeError{want: i.typ.String(), got: data}
}
