package inputformat

import (
	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
	"github.com/ajitpratap0/hivescan/pkg/rcfile"
)

type rcfileReader struct {
	r *rcfile.Reader
}

func newRCFileReader(split Split, props hiveconf.Properties) (RecordReader, error) {
	cols, err := props.ReadColumns()
	if err != nil {
		return nil, err
	}
	r, err := rcfile.NewReader(split.File, split.File.Size(), rcfile.Options{
		Start:   split.Start,
		Length:  split.Length,
		Columns: cols,
	})
	if err != nil {
		return nil, err
	}
	return &rcfileReader{r: r}, nil
}

// Next returns the row as [][]byte, one cell per file column.
func (r *rcfileReader) Next() (any, error) {
	row, err := r.r.Next()
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *rcfileReader) Close() error { return r.r.Close() }
