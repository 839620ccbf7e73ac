// Package hiveconf holds the property names Hive readers and deserializers are
// initialised with, and a small typed view over a property map.
package hiveconf

import (
	"sort"
	"strconv"
	"strings"
)

// Table and projection properties.
const (
	Columns             = "columns"
	ColumnTypes         = "columns.types"
	SerializationLib    = "serialization.lib"
	ReadColumnIDs       = "hive.io.file.readcolumn.ids"
	ReadColumnNames     = "hive.io.file.readcolumn.names"
	ReadAllColumns      = "hive.io.file.read.all.columns"
	ColumnNumberMeta    = "hive.io.rcfile.column.number"
	FieldDelim          = "field.delim"
	SerializationFmt    = "serialization.format"
	CollectionDelim     = "collection.delim"
	MapKeyDelim         = "mapkey.delim"
	NullFormat          = "serialization.null.format"
	EscapeChar          = "escape.delim"
	LastColumnTakesRest = "serialization.last.column.takes.rest"
)

// DefaultNullFormat is how lazy text serdes spell SQL NULL.
const DefaultNullFormat = `\N`

// Properties is the flat key/value set handed to readers and deserializers.
type Properties map[string]string

// Get returns the value of key or def when it is unset or empty.
func (p Properties) Get(key, def string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return def
}

// Bool parses key as a boolean, falling back to def on absence or garbage.
func (p Properties) Bool(key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// ColumnNames splits the "columns" property.
func (p Properties) ColumnNames() []string {
	return splitNonEmpty(p[Columns], ",")
}

// ReadColumns returns the projected column indices, or nil when the reader
// should materialise every column. Without any projection property every
// column is read.
func (p Properties) ReadColumns() ([]int, error) {
	_, projected := p[ReadColumnIDs]
	if p.Bool(ReadAllColumns, !projected) {
		return nil, nil
	}
	parts := splitNonEmpty(p[ReadColumnIDs], ",")
	ids := make([]int, 0, len(parts))
	for _, s := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || id < 0 {
			return nil, &InvalidPropertyError{Key: ReadColumnIDs, Value: p[ReadColumnIDs]}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SetReadColumns records ids (projection order) and their names.
func (p Properties) SetReadColumns(ids []int, names []string) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = strconv.Itoa(id)
	}
	p[ReadColumnIDs] = strings.Join(strs, ",")
	p[ReadColumnNames] = strings.Join(names, ",")
	p[ReadAllColumns] = "false"
}

// Clone returns a shallow copy.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InvalidPropertyError reports a property whose value cannot be interpreted.
type InvalidPropertyError struct {
	Key   string
	Value string
}

func (e *InvalidPropertyError) Error() string {
	return "invalid value " + strconv.Quote(e.Value) + " for property " + e.Key
}

func splitNonEmpty(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, sep)
}
