// Package hivescan reads the data files of Hive tables stored in legacy row
// formats and turns them into typed, column-aligned batches, the way a query
// engine's file scanner does.
//
// # Overview
//
// A scan is described by a flat string map: the declared table columns, the
// projection, the Hive input format and SerDe class names, the file location
// and the byte range (split) to read. The scanner resolves the projection,
// opens the split with the matching record reader, deserializes each record
// and appends one value per projected column to a batch sink.
//
//	s, err := scanner.New(map[string]string{
//	    "file_type":           "0",
//	    "is_get_table_schema": "false",
//	    "file_format":         "11",
//	    "columns_names":       "id,name,amount",
//	    "columns_types":       "bigint#string#decimal(10,2)",
//	    "required_fields":     "amount,id",
//	    "input_format":        "org.apache.hadoop.hive.ql.io.RCFileInputFormat",
//	    "hive_serde":          "org.apache.hadoop.hive.serde2.columnar.ColumnarSerDe",
//	    "uri":                 "file:///warehouse/orders/000000_0",
//	    "split_start_offset":  "0",
//	    "split_size":          "134217728",
//	})
//	if err != nil {
//	    return err
//	}
//	if err := s.Open(ctx); err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	b := batch.NewArrowBatch(nil, s.Columns())
//	defer b.Release()
//	for {
//	    n, err := s.GetNext(ctx, b, 4096)
//	    if err != nil || n == 0 {
//	        return err
//	    }
//	    rec, err := b.Record(n)
//	    ...
//	}
//
// # Formats
//
// Input formats:
//   - RCFile (org.apache.hadoop.hive.ql.io.RCFileInputFormat)
//   - Text (org.apache.hadoop.mapred.TextInputFormat), plain or compressed
//   - Avro containers (org.apache.hadoop.hive.ql.io.avro.AvroContainerInputFormat)
//
// SerDes:
//   - ColumnarSerDe and LazySimpleSerDe, with Hive's nested separators
//   - JsonSerDe
//   - AvroSerDe
//
// Files are read from local disk, S3 or GCS.
//
// # Key Packages
//
//	pkg/scanner      - Scanner lifecycle: Open, GetNext, Close, TableSchema
//	pkg/scanconf     - Scan parameter parsing and validation
//	pkg/schema       - Projection resolution and table schema export
//	pkg/types        - Hive type grammar
//	pkg/inputformat  - Record readers by Hive InputFormat class
//	pkg/serde        - Deserializers and inspectors by Hive SerDe class
//	pkg/value        - Typed column values bridged from deserialized rows
//	pkg/batch        - Batch sinks (Arrow records, plain rows)
//	pkg/storage      - Local, S3 and GCS file access
//	pkg/errors       - Structured error kinds
//	pkg/logger       - Structured logging
//	pkg/metrics      - Prometheus scan metrics
//	internal/pipeline - Parallel split runner
//
// # Command line
//
//	hivescan schema --job orders.yaml
//	hivescan scan --job orders.yaml --output orders.arrow --parallelism 8
//	hivescan list
package hivescan
