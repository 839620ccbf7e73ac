package scanner

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/hivescan/pkg/batch"
	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
	"github.com/ajitpratap0/hivescan/pkg/inputformat"
	"github.com/ajitpratap0/hivescan/pkg/metrics"
	"github.com/ajitpratap0/hivescan/pkg/rcfile/rcfiletest"
	"github.com/ajitpratap0/hivescan/pkg/scanconf"
	"github.com/ajitpratap0/hivescan/pkg/serde"
	"github.com/ajitpratap0/hivescan/pkg/storage"
	"github.com/ajitpratap0/hivescan/pkg/storage/storagetest"
	"github.com/ajitpratap0/hivescan/pkg/types"
	"github.com/ajitpratap0/hivescan/pkg/value"
)

const wholeFile = "1073741824"

// writeRCFile writes rows of (a int, b string, c decimal(10,2)). Every row
// with i%10 == 3 has a NULL b.
func writeRCFile(t *testing.T, rows int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.rc")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := rcfiletest.NewWriter(f, 3, rcfiletest.Options{RowsPerGroup: 64})
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		b := fmt.Sprintf("name-%d", i)
		if i%10 == 3 {
			b = hiveconf.DefaultNullFormat
		}
		require.NoError(t, w.AppendStrings(strconv.Itoa(i), b, fmt.Sprintf("%d.%02d", i, i%100)))
	}
	require.NoError(t, w.Close())
	return path
}

func writeText(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func rcParams(uri string) map[string]string {
	return map[string]string{
		scanconf.KeyFileType:         "0",
		scanconf.KeyIsGetTableSchema: "false",
		scanconf.KeyFileFormat:       "11",
		scanconf.KeyColumnNames:      "a,b,c",
		scanconf.KeyColumnTypes:      "int#string#decimal(10,2)",
		scanconf.KeyRequiredFields:   "c,a",
		scanconf.KeyInputFormat:      inputformat.RCFileInputFormat,
		scanconf.KeySerde:            serde.ColumnarSerDe,
		scanconf.KeyURI:              "file://" + uri,
		scanconf.KeySplitStartOffset: "0",
		scanconf.KeySplitSize:        wholeFile,
	}
}

func newScanner(t *testing.T, raw map[string]string, opts ...Option) *Scanner {
	t.Helper()
	opts = append([]Option{
		WithLogger(zaptest.NewLogger(t)),
		WithMetrics(metrics.NewScanMetrics(prometheus.NewRegistry())),
	}, opts...)
	s, err := New(raw, opts...)
	require.NoError(t, err)
	return s
}

func TestResolvedProjection(t *testing.T) {
	raw := rcParams("/unused")
	raw[scanconf.KeyIsGetTableSchema] = "true"
	delete(raw, scanconf.KeySplitStartOffset)
	delete(raw, scanconf.KeySplitSize)

	s := newScanner(t, raw)
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	cols := s.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "c", cols[0].Name)
	assert.True(t, cols[0].Type.Equal(types.Decimal(10, 2)))
	assert.Equal(t, "a", cols[1].Name)
	assert.True(t, cols[1].Type.Equal(types.Primitive(types.KindInt)))
	assert.Equal(t, []int{2, 0}, []int{cols[0].Index, cols[1].Index})
}

func TestSchemaOnlyScan(t *testing.T) {
	// the uri does not exist; a schema-only scan never touches it
	raw := rcParams("/does/not/exist.rc")
	raw[scanconf.KeyIsGetTableSchema] = "true"
	raw[scanconf.KeyInputFormat] = "no.such.InputFormat"

	s := newScanner(t, raw)
	require.NoError(t, s.Open(context.Background()))
	assert.Nil(t, s.RequiredFields(), "no source is constructed")

	ts, err := s.TableSchema()
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, "c", ts[0].Name)
	assert.Equal(t, "decimal", ts[0].Type)
	assert.Equal(t, int32(10), ts[0].Precision)
	assert.Equal(t, int32(2), ts[0].Scale)
	assert.Equal(t, "int", ts[1].Type)

	_, err = s.GetNext(context.Background(), batch.NewRows(2), 10)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))

	require.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.State())
}

func TestTableSchemaNeedsSchemaOnly(t *testing.T) {
	s := newScanner(t, rcParams(writeRCFile(t, 1)))
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	_, err := s.TableSchema()
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestBatchesUntilExhausted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewScanMetrics(reg)
	s := newScanner(t, rcParams(writeRCFile(t, 250)), WithMetrics(m))
	require.NoError(t, s.Open(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpenScanners))

	sink := batch.NewRows(2)
	var got []int
	var all [][]any
	for i := 0; i < 4; i++ {
		n, err := s.GetNext(context.Background(), sink, 100)
		require.NoError(t, err)
		got = append(got, n)
		rows, err := sink.Take(n)
		require.NoError(t, err)
		all = append(all, rows...)
	}
	assert.Equal(t, []int{100, 100, 50, 0}, got)
	assert.Equal(t, StateEOF, s.State())

	require.Len(t, all, 250)
	assert.Equal(t, []any{"7.07", int32(7)}, all[7])
	assert.Equal(t, []any{"249.49", int32(249)}, all[249])

	n, err := s.GetNext(context.Background(), sink, 100)
	require.NoError(t, err)
	assert.Zero(t, n, "exhaustion is final")

	require.NoError(t, s.Close())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.OpenScanners))
	assert.Equal(t, 250.0, testutil.ToFloat64(m.Rows.WithLabelValues(inputformat.RCFileInputFormat, serde.ColumnarSerDe)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Batches.WithLabelValues(inputformat.RCFileInputFormat)))
}

func TestNullsKeepTheirSlot(t *testing.T) {
	raw := rcParams(writeRCFile(t, 20))
	raw[scanconf.KeyRequiredFields] = "b,a"

	s := newScanner(t, raw)
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	type cell struct {
		slot int
		null bool
	}
	var cells []cell
	sink := batch.SinkFunc(func(slot int, v value.ColumnValue) error {
		cells = append(cells, cell{slot, v.IsNull()})
		return nil
	})

	n, err := s.GetNext(context.Background(), sink, 20)
	require.NoError(t, err)
	require.Equal(t, 20, n)
	require.Len(t, cells, 40)
	for i := 0; i < n; i++ {
		assert.Equal(t, cell{0, i%10 == 3}, cells[2*i], "row %d", i)
		assert.Equal(t, cell{1, false}, cells[2*i+1], "row %d", i)
	}
}

func TestZeroColumnProjectionCountsRows(t *testing.T) {
	raw := rcParams(writeRCFile(t, 30))
	raw[scanconf.KeyRequiredFields] = ""

	s := newScanner(t, raw)
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	appended := 0
	sink := batch.SinkFunc(func(int, value.ColumnValue) error {
		appended++
		return nil
	})
	n, err := s.GetNext(context.Background(), sink, 100)
	require.NoError(t, err)
	assert.Equal(t, 30, n)
	assert.Zero(t, appended)
}

func TestInvalidCapacity(t *testing.T) {
	s := newScanner(t, rcParams(writeRCFile(t, 5)))
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	for _, c := range []int{0, -1} {
		_, err := s.GetNext(context.Background(), batch.NewRows(2), c)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	}
	assert.Equal(t, StateOpen, s.State(), "a bad capacity does not close the scanner")

	n, err := s.GetNext(context.Background(), batch.NewRows(2), 10)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestMisuse(t *testing.T) {
	s := newScanner(t, rcParams(writeRCFile(t, 1)))
	_, err := s.GetNext(context.Background(), batch.NewRows(2), 1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))

	require.NoError(t, s.Open(context.Background()))
	assert.True(t, errors.IsType(s.Open(context.Background()), errors.ErrorTypeInternal))
	require.NoError(t, s.Close())

	n, err := s.GetNext(context.Background(), batch.NewRows(2), 1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewRejectsBadParameters(t *testing.T) {
	raw := rcParams("/x")
	delete(raw, scanconf.KeyURI)
	s, err := New(raw)
	assert.Nil(t, s)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestOpenFailures(t *testing.T) {
	path := writeRCFile(t, 1)
	tests := []struct {
		name   string
		mutate func(map[string]string)
		kind   errors.ErrorType
	}{
		{"unknown field", func(m map[string]string) { m[scanconf.KeyRequiredFields] = "a,zz" }, errors.ErrorTypeSchema},
		{"bad type", func(m map[string]string) { m[scanconf.KeyColumnTypes] = "int#strin#int" }, errors.ErrorTypeSchema},
		{"unknown input format", func(m map[string]string) { m[scanconf.KeyInputFormat] = "com.example.Nope" }, errors.ErrorTypeSource},
		{"unknown serde", func(m map[string]string) { m[scanconf.KeySerde] = "com.example.Nope" }, errors.ErrorTypeSource},
		{"missing file", func(m map[string]string) { m[scanconf.KeyURI] = "file:///does/not/exist.rc" }, errors.ErrorTypeSource},
		{"unsupported file type", func(m map[string]string) { m[scanconf.KeyFileType] = "4" }, errors.ErrorTypeSource},
		{"not an rcfile", func(m map[string]string) {
			m[scanconf.KeyURI] = "file://" + writeText(t, "t.txt", "plain text\n")
		}, errors.ErrorTypeSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rcParams(path)
			tt.mutate(raw)
			s := newScanner(t, raw)

			err := s.Open(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.TypeOf(err), err.Error())
			assert.Equal(t, StateClosed, s.State())
			assert.NoError(t, s.Close())
			assert.NoError(t, s.Close())
		})
	}
}

// memBackend serves in-memory files for the stream file type and records
// the context source each open received.
type memBackend struct {
	files  map[string]*storagetest.MemFile
	active storage.ContextSource
}

var mem = &memBackend{files: map[string]*storagetest.MemFile{}}

func init() {
	if err := storage.Register(scanconf.FileTypeStream, mem); err != nil {
		panic(err)
	}
}

func (b *memBackend) Open(_ context.Context, uri string, _ hiveconf.Properties, active storage.ContextSource) (storage.File, error) {
	f, ok := b.files[uri]
	if !ok {
		return nil, fmt.Errorf("no such file %s", uri)
	}
	b.active = active
	return f, nil
}

func memParams(t *testing.T, content string) (map[string]string, *storagetest.MemFile) {
	uri := "mem://" + t.Name()
	f := storagetest.NewMemFile(uri, []byte(content))
	mem.files[uri] = f
	return map[string]string{
		scanconf.KeyFileType:         strconv.Itoa(int(scanconf.FileTypeStream)),
		scanconf.KeyIsGetTableSchema: "false",
		scanconf.KeyFileFormat:       "0",
		scanconf.KeyColumnNames:      "id,name",
		scanconf.KeyColumnTypes:      "bigint#string",
		scanconf.KeyRequiredFields:   "name,id",
		scanconf.KeyInputFormat:      "text",
		scanconf.KeySerde:            serde.JsonSerDe,
		scanconf.KeyURI:              uri,
		scanconf.KeySplitStartOffset: "0",
		scanconf.KeySplitSize:        strconv.Itoa(len(content)),
	}, f
}

func TestNamesDifferingInCaseBindDeclaredColumn(t *testing.T) {
	raw, _ := memParams(t, "7\x01x\n")
	raw[scanconf.KeySerde] = serde.LazySimpleSerDe
	raw[scanconf.KeyColumnNames] = "A,a"
	raw[scanconf.KeyColumnTypes] = "int#string"
	raw[scanconf.KeyRequiredFields] = "A,a"

	s := newScanner(t, raw)
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	fields := s.RequiredFields()
	require.Len(t, fields, 2)
	assert.Equal(t, 0, fields[0].Ref.ID)
	assert.Equal(t, 1, fields[1].Ref.ID)

	sink := batch.NewRows(2)
	n, err := s.GetNext(context.Background(), sink, 10)
	require.NoError(t, err)
	rows, err := sink.Take(n)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int32(7), "x"}}, rows)
}

func TestSplitLengthNearMaxInt64(t *testing.T) {
	path := writeRCFile(t, 250)
	for _, start := range []string{"0", "1"} {
		raw := rcParams(path)
		raw[scanconf.KeySplitStartOffset] = start
		raw[scanconf.KeySplitSize] = strconv.FormatInt(math.MaxInt64, 10)

		s := newScanner(t, raw)
		require.NoError(t, s.Open(context.Background()))
		n, err := s.GetNext(context.Background(), batch.NewRows(2), 1000)
		require.NoError(t, err)
		assert.Equal(t, 250, n, "start=%s", start)
		require.NoError(t, s.Close())
	}
}

func TestSourceClosedExactlyOnce(t *testing.T) {
	raw, f := memParams(t, `{"id":1,"name":"x"}`+"\n")
	s := newScanner(t, raw)
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, f.Closes())
}

type discardingSink struct {
	*batch.Rows
	discarded bool
}

func (d *discardingSink) Discard() {
	d.discarded = true
	d.Rows.Discard()
}

func TestBadRecordFailsBatch(t *testing.T) {
	raw, f := memParams(t, `{"id":1,"name":"x"}`+"\n"+`{"id":2,`+"\n")
	reg := prometheus.NewRegistry()
	m := metrics.NewScanMetrics(reg)
	s := newScanner(t, raw, WithMetrics(m))
	require.NoError(t, s.Open(context.Background()))

	sink := &discardingSink{Rows: batch.NewRows(2)}
	n, err := s.GetNext(context.Background(), sink, 10)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData), err.Error())
	assert.True(t, sink.discarded)
	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, 1, f.Closes())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues(metrics.OpGetNext, string(errors.ErrorTypeData))))

	n, err = s.GetNext(context.Background(), sink, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, s.Close())
	assert.Equal(t, 1, f.Closes())
}

func TestSinkFailureFailsBatch(t *testing.T) {
	raw, f := memParams(t, `{"id":1,"name":"x"}`+"\n"+`{"id":2,"name":"y"}`+"\n")
	s := newScanner(t, raw)
	require.NoError(t, s.Open(context.Background()))

	calls := 0
	sink := batch.SinkFunc(func(slot int, v value.ColumnValue) error {
		calls++
		if calls == 4 {
			return fmt.Errorf("buffer full")
		}
		return nil
	})
	_, err := s.GetNext(context.Background(), sink, 10)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	assert.Contains(t, err.Error(), "buffer full")
	assert.Equal(t, 1, f.Closes())
}

var errDiskGone = fmt.Errorf("disk gone")

func TestCloseFailureReachesCaller(t *testing.T) {
	raw, f := memParams(t, `{"id":1,"name":"x"}`+"\n")
	f.CloseErr = errDiskGone
	m := metrics.NewScanMetrics(prometheus.NewRegistry())
	s := newScanner(t, raw, WithMetrics(m))
	require.NoError(t, s.Open(context.Background()))

	err := s.Close()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSource), err.Error())
	assert.ErrorIs(t, err, errDiskGone)
	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues(metrics.OpClose, string(errors.ErrorTypeSource))))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.OpenScanners))

	require.NoError(t, s.Close(), "only the first close does any work")
	assert.Equal(t, 1, f.Closes())
}

func TestCloseFailureWhileUnwindingKeepsCause(t *testing.T) {
	raw, f := memParams(t, `{"id":1,"name":"x"}`+"\n"+`{"id":2,`+"\n")
	f.CloseErr = errDiskGone
	core, logs := observer.New(zap.WarnLevel)
	s := newScanner(t, raw, WithLogger(zap.New(core)))
	require.NoError(t, s.Open(context.Background()))

	n, err := s.GetNext(context.Background(), batch.NewRows(2), 10)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, errors.ErrorTypeData, errors.TypeOf(err))
	assert.NotErrorIs(t, err, errDiskGone)
	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, 1, f.Closes())

	unwinding := logs.FilterMessage("close failed while unwinding").All()
	require.Len(t, unwinding, 1)
	assert.Contains(t, unwinding[0].ContextMap()["error"], "disk gone")

	require.NoError(t, s.Close())
	assert.Equal(t, 1, f.Closes())
}

func TestOpenFailureReleasesFileOnce(t *testing.T) {
	raw, f := memParams(t, "1\n")
	raw[scanconf.KeyFileFormat] = strconv.Itoa(int(scanconf.FormatCSVBzip2))
	f.CloseErr = errDiskGone

	s := newScanner(t, raw)
	err := s.Open(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration), err.Error())
	assert.NotErrorIs(t, err, errDiskGone)
	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, 1, f.Closes())
}

func TestReadsRunUnderCallContext(t *testing.T) {
	raw, _ := memParams(t, `{"id":1,"name":"x"}`+"\n")
	s := newScanner(t, raw)
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()
	active := mem.active
	require.NotNil(t, active)

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "call")
	var seen any
	sink := batch.SinkFunc(func(int, value.ColumnValue) error {
		seen = active().Value(key{})
		return nil
	})
	_, err := s.GetNext(ctx, sink, 10)
	require.NoError(t, err)

	assert.Equal(t, "call", seen)
	assert.Nil(t, active().Value(key{}), "the call context is removed on return")
}

func TestSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	raw, _ := memParams(t, `{"id":1,"name":"x"}`+"\n")

	s := newScanner(t, raw, WithTracerProvider(tp))
	require.NoError(t, s.Open(context.Background()))
	_, err := s.GetNext(context.Background(), batch.NewRows(2), 10)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	var names []string
	for _, span := range sr.Ended() {
		names = append(names, span.Name())
	}
	assert.Equal(t, []string{"hivescan.open", "hivescan.get_next", "hivescan.close"}, names)
}

func TestEnvRestores(t *testing.T) {
	var e env
	assert.Equal(t, context.Background(), e.current())

	type key struct{}
	outer := context.WithValue(context.Background(), key{}, "outer")
	restoreOuter := e.enter(outer)
	restoreInner := e.enter(context.WithValue(context.Background(), key{}, "inner"))
	assert.Equal(t, "inner", e.current().Value(key{}))
	restoreInner()
	assert.Equal(t, "outer", e.current().Value(key{}))
	restoreOuter()
	assert.Equal(t, context.Background(), e.current())
}

func TestReaderProperties(t *testing.T) {
	raw := rcParams(writeRCFile(t, 1))
	raw[hiveconf.FieldDelim] = "|"
	raw[hiveconf.Columns] = "overridden"
	p, err := scanconf.Parse(raw)
	require.NoError(t, err)
	s := newScanner(t, raw)
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	props := readerProperties(p, s.resolution)
	assert.Equal(t, "a,b,c", props[hiveconf.Columns])
	assert.Equal(t, "int:string:decimal(10,2)", props[hiveconf.ColumnTypes])
	assert.Equal(t, serde.ColumnarSerDe, props[hiveconf.SerializationLib])
	assert.Equal(t, "2,0", props[hiveconf.ReadColumnIDs])
	assert.Equal(t, "c,a", props[hiveconf.ReadColumnNames])
	assert.Equal(t, "false", props[hiveconf.ReadAllColumns])
	assert.Equal(t, "|", props[hiveconf.FieldDelim])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "eof", StateEOF.String())
	assert.Equal(t, "state(9)", State(9).String())
}
