package serde

import (
	"bytes"
	"strconv"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
	"github.com/ajitpratap0/hivescan/pkg/types"
)

// defaultSeparators are Hive's delimiters by nesting level: fields, then
// collection items, then map keys, then \x04 through \x08.
var defaultSeparators = []byte{1, 2, 3, 4, 5, 6, 7, 8}

// lazyParams are the text encoding settings shared by the lazy inspectors.
type lazyParams struct {
	separators          []byte
	null                []byte
	lastColumnTakesRest bool
}

func newLazyParams(props hiveconf.Properties) (*lazyParams, error) {
	p := &lazyParams{
		separators: append([]byte(nil), defaultSeparators...),
		null:       []byte(props.Get(hiveconf.NullFormat, hiveconf.DefaultNullFormat)),
	}

	// field.delim overrides serialization.format
	keys := [][]string{
		{hiveconf.FieldDelim, hiveconf.SerializationFmt},
		{hiveconf.CollectionDelim},
		{hiveconf.MapKeyDelim},
	}
	for level, names := range keys {
		for _, key := range names {
			raw, ok := props[key]
			if !ok || raw == "" {
				continue
			}
			b, err := delimiterByte(raw)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "invalid delimiter").
					WithDetail("property", key)
			}
			p.separators[level] = b
			break
		}
	}
	p.lastColumnTakesRest = props.Bool(hiveconf.LastColumnTakesRest, false)
	return p, nil
}

// delimiterByte accepts a delimiter either as its byte value in decimal or
// as a literal character.
func delimiterByte(s string) (byte, error) {
	if n, err := strconv.ParseInt(s, 10, 16); err == nil {
		if n < -128 || n > 255 {
			return 0, &hiveconf.InvalidPropertyError{Value: s}
		}
		return byte(n), nil
	}
	return s[0], nil
}

func (p *lazyParams) isNull(b []byte) bool {
	return b == nil || bytes.Equal(b, p.null)
}

func (p *lazyParams) separator(level int) byte {
	return p.separators[level]
}

// lazyInspector builds the inspector for a value stored at the given
// nesting level.
func lazyInspector(t *types.ColumnType, p *lazyParams, level int) (Inspector, error) {
	need := level
	switch t.Kind {
	case types.KindMap:
		need = level + 1
	}
	if !t.Kind.IsPrimitive() && need >= len(p.separators) {
		return nil, errors.Newf(errors.ErrorTypeSchema,
			"type %s nests deeper than the %d supported separator levels", t, len(p.separators))
	}

	switch t.Kind {
	case types.KindArray:
		elem, err := lazyInspector(t.Elem, p, level+1)
		if err != nil {
			return nil, err
		}
		return &lazyList{typ: t, params: p, level: level, elem: elem}, nil
	case types.KindMap:
		key, err := lazyInspector(t.Key, p, level+2)
		if err != nil {
			return nil, err
		}
		val, err := lazyInspector(t.Elem, p, level+2)
		if err != nil {
			return nil, err
		}
		return &lazyMap{typ: t, params: p, level: level, key: key, value: val}, nil
	case types.KindStruct:
		names := make([]string, len(t.Fields))
		inspectors := make([]Inspector, len(t.Fields))
		for i, f := range t.Fields {
			in, err := lazyInspector(f.Type, p, level+1)
			if err != nil {
				return nil, err
			}
			names[i] = f.Name
			inspectors[i] = in
		}
		return &lazyStruct{typ: t, params: p, level: level, structFields: newStructFields(names, inspectors)}, nil
	}
	return &lazyPrimitive{typ: t, params: p}, nil
}

func lazyBytes(data any) ([]byte, error) {
	b, ok := data.([]byte)
	if !ok {
		return nil, &typeError{want: "text", got: data}
	}
	return b, nil
}

type lazyPrimitive struct {
	typ    *types.ColumnType
	params *lazyParams
}

func (i *lazyPrimitive) Category() Category      { return CategoryPrimitive }
func (i *lazyPrimitive) Type() *types.ColumnType { return i.typ }

func (i *lazyPrimitive) Primitive(data any) (any, error) {
	if data == nil {
		return nil, nil
	}
	b, err := lazyBytes(data)
	if err != nil {
		return nil, err
	}
	if i.params.isNull(b) {
		return nil, nil
	}
	v, ok := parseText(i.typ, b)
	if !ok {
		return nil, nil
	}
	return v, nil
}

type lazyList struct {
	typ    *types.ColumnType
	params *lazyParams
	level  int
	elem   Inspector
}

func (i *lazyList) Category() Category      { return CategoryList }
func (i *lazyList) Type() *types.ColumnType { return i.typ }
func (i *lazyList) Element() Inspector      { return i.elem }

func (i *lazyList) Elements(data any) ([]any, error) {
	if data == nil {
		return nil, nil
	}
	b, err := lazyBytes(data)
	if err != nil {
		return nil, err
	}
	if i.params.isNull(b) {
		return nil, nil
	}
	if len(b) == 0 {
		return []any{}, nil
	}
	parts := bytes.Split(b, []byte{i.params.separator(i.level)})
	out := make([]any, len(parts))
	for n, part := range parts {
		if !i.params.isNull(part) {
			out[n] = part
		}
	}
	return out, nil
}

type lazyMap struct {
	typ    *types.ColumnType
	params *lazyParams
	level  int
	key    Inspector
	value  Inspector
}

func (i *lazyMap) Category() Category      { return CategoryMap }
func (i *lazyMap) Type() *types.ColumnType { return i.typ }
func (i *lazyMap) Key() Inspector          { return i.key }
func (i *lazyMap) Value() Inspector        { return i.value }

// Entries splits the map text. Entries without a key separator have a NULL
// value; a repeated key keeps its first value.
func (i *lazyMap) Entries(data any) ([]MapEntry, error) {
	if data == nil {
		return nil, nil
	}
	b, err := lazyBytes(data)
	if err != nil {
		return nil, err
	}
	if i.params.isNull(b) {
		return nil, nil
	}
	if len(b) == 0 {
		return []MapEntry{}, nil
	}
	kvSep := i.params.separator(i.level + 1)
	parts := bytes.Split(b, []byte{i.params.separator(i.level)})
	out := make([]MapEntry, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, part := range parts {
		k, v, found := bytes.Cut(part, []byte{kvSep})
		if seen[string(k)] {
			continue
		}
		seen[string(k)] = true
		var entry MapEntry
		if !i.params.isNull(k) {
			entry.Key = k
		}
		if found && !i.params.isNull(v) {
			entry.Value = v
		}
		out = append(out, entry)
	}
	return out, nil
}

type lazyStruct struct {
	structFields
	typ    *types.ColumnType
	params *lazyParams
	level  int
}

func (i *lazyStruct) Category() Category      { return CategoryStruct }
func (i *lazyStruct) Type() *types.ColumnType { return i.typ }

func (i *lazyStruct) FieldData(data any, ref *FieldRef) (any, error) {
	if data == nil {
		return nil, nil
	}
	b, err := lazyBytes(data)
	if err != nil {
		return nil, err
	}
	if i.params.isNull(b) {
		return nil, nil
	}
	cells := splitFields(b, i.params.separator(i.level), len(i.refs), false)
	return cellAt(cells, ref.ID, i.params), nil
}

// splitFields cuts b into at most n fields. Extra fields are dropped unless
// rest is set, in which case the last field keeps the remainder.
func splitFields(b []byte, sep byte, n int, rest bool) [][]byte {
	cells := make([][]byte, 0, n)
	for len(cells) < n {
		if len(cells) == n-1 && rest {
			cells = append(cells, b)
			break
		}
		idx := bytes.IndexByte(b, sep)
		if idx < 0 {
			cells = append(cells, b)
			break
		}
		cells = append(cells, b[:idx])
		b = b[idx+1:]
	}
	return cells
}

func cellAt(cells [][]byte, id int, p *lazyParams) any {
	if id < 0 || id >= len(cells) || p.isNull(cells[id]) {
		return nil
	}
	return cells[id]
}

// lazyRow is the payload of a top-level row: one text cell per declared
// column, nil where the column was not read or is missing from the record.
type lazyRow struct {
	cells [][]byte
}

// rowInspector is the struct inspector of a whole text row.
type rowInspector struct {
	structFields
	typ    *types.ColumnType
	params *lazyParams
}

func newRowInspector(props hiveconf.Properties, p *lazyParams) (*rowInspector, error) {
	names, typs, err := tableColumns(props)
	if err != nil {
		return nil, err
	}
	inspectors := make([]Inspector, len(typs))
	fields := make([]types.Field, len(typs))
	for i, t := range typs {
		// columns are already cut apart, nested values start at level one
		if inspectors[i], err = lazyInspector(t, p, 1); err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeSchema, "column %s", names[i])
		}
		fields[i] = types.Field{Name: names[i], Type: t}
	}
	return &rowInspector{
		structFields: newStructFields(names, inspectors),
		typ:          types.StructOf(fields...),
		params:       p,
	}, nil
}

func (i *rowInspector) Category() Category      { return CategoryStruct }
func (i *rowInspector) Type() *types.ColumnType { return i.typ }

func (i *rowInspector) FieldData(data any, ref *FieldRef) (any, error) {
	if data == nil {
		return nil, nil
	}
	row, ok := data.(*lazyRow)
	if !ok {
		return nil, &typeError{want: "text row", got: data}
	}
	return cellAt(row.cells, ref.ID, i.params), nil
}
