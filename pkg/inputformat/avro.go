package inputformat

import (
	"bufio"
	"io"

	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
	"github.com/ajitpratap0/hivescan/pkg/serde"
)

// avroReader yields *serde.AvroRecord values decoded from an Avro object
// container file. Container blocks are not split: the split starting at
// offset zero reads the whole file and the others read nothing.
type avroReader struct {
	ocf    *goavro.OCFReader
	record serde.AvroRecord
	done   bool
}

func newAvroReader(split Split, _ hiveconf.Properties) (RecordReader, error) {
	if split.Start != 0 || split.Length == 0 {
		return &avroReader{done: true}, nil
	}
	in := bufio.NewReaderSize(io.NewSectionReader(split.File, 0, split.File.Size()), textBufferSize)
	ocf, err := goavro.NewOCFReader(in)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "open avro container").
			WithDetail("file", split.File.Name())
	}
	return &avroReader{
		ocf:    ocf,
		record: serde.AvroRecord{WriterSchema: ocf.Codec().Schema()},
	}, nil
}

func (r *avroReader) Next() (any, error) {
	if r.done {
		return nil, io.EOF
	}
	if !r.ocf.Scan() {
		r.done = true
		if err := r.ocf.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "scan avro block")
		}
		return nil, io.EOF
	}
	datum, err := r.ocf.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "decode avro datum")
	}
	r.record.Datum = datum
	return &r.record, nil
}

func (r *avroReader) Close() error {
	r.done = true
	return nil
}
