// Package schema aligns the declared table columns with the requested
// projection and produces the typed, ordered schema a scan emits.
package schema

import (
	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/scanconf"
	"github.com/ajitpratap0/hivescan/pkg/types"
	"go.uber.org/zap"
)

// Column is one projected column: its name, parsed type and position in the
// declared table schema.
type Column struct {
	Name  string
	Type  *types.ColumnType
	Index int
}

// Resolution is the outcome of resolving a projection. Columns follow the
// projection order, which also decides the batch slot of each column.
type Resolution struct {
	Columns []Column
}

// Indices returns the declared positions of the projected columns.
func (r *Resolution) Indices() []int {
	out := make([]int, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = c.Index
	}
	return out
}

// Names returns the projected column names.
func (r *Resolution) Names() []string {
	out := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = c.Name
	}
	return out
}

type declared struct {
	index    int
	typeText string
}

// Resolve resolves every required field of p against the declared columns
// and parses its type. Nothing is returned on failure.
//
// When a name is declared more than once the last declaration is used. That
// is how upstream hosts have always behaved, so it is kept and reported with
// a warning rather than rejected.
func Resolve(p *scanconf.Parameters, log *zap.Logger) (*Resolution, error) {
	if log == nil {
		log = zap.NewNop()
	}

	lookup := make(map[string]declared, len(p.ColumnNames))
	for i, name := range p.ColumnNames {
		if prev, dup := lookup[name]; dup {
			log.Warn("duplicate declared column, last declaration wins",
				zap.String("column", name),
				zap.Int("ignored_index", prev.index),
				zap.Int("index", i))
		}
		lookup[name] = declared{index: i, typeText: p.ColumnTypes[i]}
	}

	res := &Resolution{Columns: make([]Column, 0, len(p.RequiredFields))}
	for _, name := range p.RequiredFields {
		d, ok := lookup[name]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeSchema, "required field %q is not a declared column", name).
				WithDetail("field", name)
		}
		t, err := types.Parse(d.typeText)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeSchema, "column %q", name).
				WithDetail("field", name)
		}
		res.Columns = append(res.Columns, Column{Name: name, Type: t, Index: d.index})
	}
	return res, nil
}
