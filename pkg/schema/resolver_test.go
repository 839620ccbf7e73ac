package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/json"
	"github.com/ajitpratap0/hivescan/pkg/scanconf"
	"github.com/ajitpratap0/hivescan/pkg/types"
)

func params(names, typesList, required []string) *scanconf.Parameters {
	return &scanconf.Parameters{
		ColumnNames:    names,
		ColumnTypes:    typesList,
		RequiredFields: required,
		SchemaOnly:     true,
	}
}

func TestResolveProjectionOrder(t *testing.T) {
	p := params(
		[]string{"a", "b", "c"},
		[]string{"int", "string", "decimal(10,2)"},
		[]string{"c", "a"},
	)

	res, err := Resolve(p, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, res.Columns, 2)

	assert.Equal(t, "c", res.Columns[0].Name)
	assert.True(t, res.Columns[0].Type.Equal(types.Decimal(10, 2)))
	assert.Equal(t, "a", res.Columns[1].Name)
	assert.Equal(t, types.KindInt, res.Columns[1].Type.Kind)

	assert.Equal(t, []int{2, 0}, res.Indices())
	assert.Equal(t, []string{"c", "a"}, res.Names())
}

func TestResolveEveryDeclaredColumn(t *testing.T) {
	names := []string{"col_tinyint", "col_decimal", "col_char", "col_array", "col_map", "col_struct"}
	ts := []string{"tinyint", "decimal(10,2)", "char(10)", "array<string>", "map<string,int>", "struct<name:string,age:int>"}

	res, err := Resolve(params(names, ts, names), nil)
	require.NoError(t, err)
	require.Len(t, res.Columns, len(names))
	for i, c := range res.Columns {
		assert.Equal(t, names[i], c.Name)
		assert.Equal(t, i, c.Index)
		assert.Equal(t, types.MustParse(ts[i]).String(), c.Type.String())
	}
}

func TestResolveEmptyProjection(t *testing.T) {
	res, err := Resolve(params([]string{"a"}, []string{"int"}, nil), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Columns)
}

func TestResolveDuplicateLastWins(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := params(
		[]string{"a", "b", "a"},
		[]string{"int", "string", "bigint"},
		[]string{"a"},
	)

	res, err := Resolve(p, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Columns[0].Index)
	assert.Equal(t, types.KindBigInt, res.Columns[0].Type.Kind)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "a", entry.ContextMap()["column"])
}

func TestResolveUnknownField(t *testing.T) {
	p := params([]string{"a"}, []string{"int"}, []string{"a", "z"})

	res, err := Resolve(p, nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
	assert.Contains(t, err.Error(), `"z"`)
}

func TestResolveMalformedType(t *testing.T) {
	p := params([]string{"a", "b"}, []string{"int", "decimal(10,"}, []string{"a", "b"})

	res, err := Resolve(p, nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))

	var pe *types.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestTableSchemaJSON(t *testing.T) {
	p := params(
		[]string{"id", "price", "tags", "attrs", "person"},
		[]string{"bigint", "decimal(10,2)", "array<string>", "map<string,int>", "struct<name:string,age:int>"},
		[]string{"price", "tags", "attrs", "person"},
	)
	res, err := Resolve(p, nil)
	require.NoError(t, err)

	data, err := res.TableSchema().JSON()
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 4)

	assert.Equal(t, "price", decoded[0]["name"])
	assert.Equal(t, "decimal", decoded[0]["type"])
	assert.EqualValues(t, 10, decoded[0]["precision"])
	assert.EqualValues(t, 2, decoded[0]["scale"])

	tags := decoded[1]["childColumns"].([]interface{})
	require.Len(t, tags, 1)
	assert.Equal(t, "string", tags[0].(map[string]interface{})["type"])

	attrs := decoded[2]["childColumns"].([]interface{})
	require.Len(t, attrs, 2)
	assert.Equal(t, "int", attrs[1].(map[string]interface{})["type"])

	person := decoded[3]["childColumns"].([]interface{})
	require.Len(t, person, 2)
	assert.Equal(t, "age", person[1].(map[string]interface{})["name"])
}

func TestTableSchemaEmptyIsArray(t *testing.T) {
	res := &Resolution{}
	data, err := res.TableSchema().JSON()
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}
