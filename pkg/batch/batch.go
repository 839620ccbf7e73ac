// Package batch holds the sinks a scan appends column values into. A scan
// appends every projected column of a row, in projection order, before it
// moves to the next row.
package batch

import (
	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/value"
)

// Sink receives the values of one batch. slot is the position of the column
// in the projection. Null values are appended, never skipped.
type Sink interface {
	AppendData(slot int, v value.ColumnValue) error
}

// Discarder is implemented by sinks that can drop the values appended since
// a batch was last taken out of them (ArrowBatch.Record, Rows.Take). Hosts
// take every batch before the next GetNext, so a failed call leaves no
// partial rows behind.
type Discarder interface {
	Discard()
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(slot int, v value.ColumnValue) error

// AppendData calls f.
func (f SinkFunc) AppendData(slot int, v value.ColumnValue) error {
	return f(slot, v)
}

// Rows collects values as plain Go rows, one []any per row.
type Rows struct {
	columns int
	rows    [][]any
}

// NewRows returns a Rows sink for a projection of the given width.
func NewRows(columns int) *Rows {
	return &Rows{columns: columns}
}

func (r *Rows) AppendData(slot int, v value.ColumnValue) error {
	if slot < 0 || slot >= r.columns {
		return errors.Newf(errors.ErrorTypeInternal, "slot %d outside a projection of %d columns", slot, r.columns)
	}
	if slot == 0 {
		r.rows = append(r.rows, make([]any, r.columns))
	}
	if len(r.rows) == 0 {
		return errors.Newf(errors.ErrorTypeInternal, "slot %d appended before slot 0", slot)
	}
	out, err := v.Interface()
	if err != nil {
		return err
	}
	r.rows[len(r.rows)-1][slot] = out
	return nil
}

// Take returns the first n collected rows and resets the sink. A zero-width
// projection yields n empty rows.
func (r *Rows) Take(n int) ([][]any, error) {
	defer r.Discard()
	if r.columns == 0 {
		return make([][]any, n), nil
	}
	if len(r.rows) != n {
		return nil, errors.Newf(errors.ErrorTypeInternal, "sink holds %d rows, expected %d", len(r.rows), n)
	}
	return r.rows, nil
}

// Discard drops the rows collected since the last Take.
func (r *Rows) Discard() {
	r.rows = nil
}
