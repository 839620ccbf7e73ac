package scanconf

import (
	"fmt"
	"strconv"
	"strings"
)

// FileType selects the storage backend holding the split, numbered the way
// the host engine numbers them.
type FileType int32

const (
	FileTypeLocal  FileType = 0
	FileTypeBroker FileType = 1
	FileTypeStream FileType = 2
	FileTypeS3     FileType = 3
	FileTypeHDFS   FileType = 4
	FileTypeNet    FileType = 5
	FileTypeGCS    FileType = 6
)

var fileTypeNames = map[FileType]string{
	FileTypeLocal:  "local",
	FileTypeBroker: "broker",
	FileTypeStream: "stream",
	FileTypeS3:     "s3",
	FileTypeHDFS:   "hdfs",
	FileTypeNet:    "net",
	FileTypeGCS:    "gcs",
}

func (t FileType) String() string {
	if name, ok := fileTypeNames[t]; ok {
		return name
	}
	return "file_type(" + strconv.Itoa(int(t)) + ")"
}

// ParseFileType accepts a file type number or name ("s3", "gcs", ...).
func ParseFileType(s string) (FileType, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return FileType(n), nil
	}
	for t, name := range fileTypeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown file type %q", s)
}

// FileFormat is the host's file format code. For text splits it also carries
// the compression of the file.
type FileFormat int32

const (
	FormatCSVPlain    FileFormat = 0
	FormatCSVGzip     FileFormat = 1
	FormatCSVBzip2    FileFormat = 2
	FormatCSVLZO      FileFormat = 3
	FormatCSVLZ4Frame FileFormat = 4
	FormatParquet     FileFormat = 5
	FormatCSVDeflate  FileFormat = 7
	FormatORC         FileFormat = 8
	FormatJSON        FileFormat = 9
	FormatProto       FileFormat = 10
	FormatJNI         FileFormat = 11
	FormatAvro        FileFormat = 12
	FormatCSVSnappy   FileFormat = 14
)

func (f FileFormat) String() string {
	switch f {
	case FormatCSVPlain:
		return "csv_plain"
	case FormatCSVGzip:
		return "csv_gz"
	case FormatCSVBzip2:
		return "csv_bz2"
	case FormatCSVLZO:
		return "csv_lzo"
	case FormatCSVLZ4Frame:
		return "csv_lz4frame"
	case FormatParquet:
		return "parquet"
	case FormatCSVDeflate:
		return "csv_deflate"
	case FormatORC:
		return "orc"
	case FormatJSON:
		return "json"
	case FormatProto:
		return "proto"
	case FormatJNI:
		return "jni"
	case FormatAvro:
		return "avro"
	case FormatCSVSnappy:
		return "csv_snappyblock"
	}
	return "file_format(" + strconv.Itoa(int(f)) + ")"
}
