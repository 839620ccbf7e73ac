package main

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"github.com/ajitpratap0/hivescan/pkg/config"
	"github.com/ajitpratap0/hivescan/pkg/json"
)

// output writes the batches of a scan.
type output interface {
	Write(rec arrow.Record) error
	Close() error
}

// newOutput picks the writer for format. Arrow is written in the IPC file
// format to files and in the stream format to stdout.
func newOutput(format string, w io.Writer, schema *arrow.Schema, toFile bool) (output, error) {
	switch format {
	case config.FormatArrow:
		if toFile {
			fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema))
			if err != nil {
				return nil, err
			}
			return fw, nil
		}
		return ipc.NewWriter(w, ipc.WithSchema(schema)), nil
	case config.FormatJSONLines:
		return &jsonLines{w: json.NewLineWriter(w)}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// jsonLines writes one JSON object per row, keyed by column name.
type jsonLines struct {
	w *json.LineWriter
}

func (j *jsonLines) Write(rec arrow.Record) error {
	fields := rec.Schema().Fields()
	for i := 0; i < int(rec.NumRows()); i++ {
		row := make(map[string]any, len(fields))
		for c, f := range fields {
			row[f.Name] = rec.Column(c).GetOneForMarshal(i)
		}
		if err := j.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (j *jsonLines) Close() error {
	return j.w.Flush()
}
