package hiveconf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadColumns(t *testing.T) {
	p := Properties{}
	p.SetReadColumns([]int{2, 0}, []string{"c", "a"})

	assert.Equal(t, "2,0", p[ReadColumnIDs])
	assert.Equal(t, "c,a", p[ReadColumnNames])
	assert.Equal(t, "false", p[ReadAllColumns])

	ids, err := p.ReadColumns()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, ids)
}

func TestReadColumnsEmptyProjection(t *testing.T) {
	p := Properties{}
	p.SetReadColumns(nil, nil)
	ids, err := p.ReadColumns()
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestReadAllColumns(t *testing.T) {
	p := Properties{ReadAllColumns: "true", ReadColumnIDs: "1"}
	ids, err := p.ReadColumns()
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestReadColumnsDefaultsToAll(t *testing.T) {
	ids, err := Properties{}.ReadColumns()
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestReadColumnsInvalid(t *testing.T) {
	p := Properties{ReadColumnIDs: "1,x"}
	_, err := p.ReadColumns()
	var ipe *InvalidPropertyError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, ReadColumnIDs, ipe.Key)
}

func TestAccessors(t *testing.T) {
	p := Properties{Columns: "a,b", FieldDelim: "", "flag": "yes"}
	assert.Equal(t, []string{"a", "b"}, p.ColumnNames())
	assert.Equal(t, "\x01", p.Get(FieldDelim, "\x01"))
	assert.True(t, p.Bool("flag", true))
	assert.False(t, p.Bool("missing", false))

	c := p.Clone()
	c[Columns] = "z"
	assert.Equal(t, "a,b", p[Columns])
	assert.Equal(t, []string{Columns, FieldDelim, "flag"}, p.Keys())
}
