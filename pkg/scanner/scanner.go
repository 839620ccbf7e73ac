// Package scanner exposes a Hive table split as batches of typed column
// values.
//
// A Scanner is built from the flat parameter map a host hands over, opened
// once, drained with GetNext and closed. Open resolves the projection
// against the declared columns and, unless the scan is a schema-only probe,
// opens the split with the configured input format and deserializer. Any
// failure in Open or GetNext closes the scanner before the error is
// returned. Close is idempotent.
//
// A Scanner is used by one goroutine at a time. Independent scanners, one
// per split, may run concurrently.
package scanner

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/logger"
	"github.com/ajitpratap0/hivescan/pkg/metrics"
	"github.com/ajitpratap0/hivescan/pkg/observability"
	"github.com/ajitpratap0/hivescan/pkg/scanconf"
	"github.com/ajitpratap0/hivescan/pkg/schema"
)

// State is the lifecycle state of a Scanner.
type State int

const (
	StateUnopened State = iota
	StateOpen
	// StateEOF is reached once the split is exhausted. GetNext keeps
	// returning 0 until the scanner is closed.
	StateEOF
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateEOF:
		return "eof"
	case StateClosed:
		return "closed"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

var scannerSeq atomic.Uint64

// Scanner reads one split. It is not safe for concurrent use.
type Scanner struct {
	id     string
	params *scanconf.Parameters

	log     *zap.Logger
	metrics *metrics.ScanMetrics
	tracer  trace.Tracer

	env        env
	state      State
	resolution *schema.Resolution
	src        *source
	// counted is set while the scanner is included in the open scanners gauge.
	counted bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger. The process logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the collectors scans report to. The process-wide set is
// used otherwise.
func WithMetrics(m *metrics.ScanMetrics) Option {
	return func(s *Scanner) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracerProvider sets the provider spans are created with. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Scanner) {
		if tp != nil {
			s.tracer = tp.Tracer(observability.TracerName)
		}
	}
}

// New parses raw and returns an unopened scanner. Invalid parameters are
// reported as configuration errors.
func New(raw map[string]string, opts ...Option) (*Scanner, error) {
	p, err := scanconf.Parse(raw)
	if err != nil {
		return nil, err
	}
	return NewWithParameters(p, opts...), nil
}

// NewWithParameters returns an unopened scanner over already parsed
// parameters. p must not be modified afterwards.
func NewWithParameters(p *scanconf.Parameters, opts ...Option) *Scanner {
	s := &Scanner{
		id:     "scanner-" + strconv.FormatUint(scannerSeq.Add(1), 10),
		params: p,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get()
	}
	if s.metrics == nil {
		s.metrics = metrics.Default()
	}
	if s.tracer == nil {
		s.tracer = observability.Tracer()
	}
	s.log = s.log.With(zap.String("scanner", s.id))
	return s
}

// ID identifies the scanner in logs.
func (s *Scanner) ID() string { return s.id }

// State returns the lifecycle state.
func (s *Scanner) State() State { return s.state }

// Parameters returns the parsed scan parameters.
func (s *Scanner) Parameters() *scanconf.Parameters { return s.params }

// Columns returns the resolved projection, in batch slot order. It is nil
// before a successful Open.
func (s *Scanner) Columns() []schema.Column {
	if s.resolution == nil {
		return nil
	}
	return s.resolution.Columns
}

// RequiredFields returns the projection together with the field accessors
// of the open split. It is nil for schema-only probes.
func (s *Scanner) RequiredFields() []RequiredField {
	if s.src == nil {
		return nil
	}
	return s.src.fields
}

// Open resolves the projection and, unless the scan is a schema-only probe,
// opens the split. On failure the scanner is closed and the error keeps the
// kind of its cause.
func (s *Scanner) Open(ctx context.Context) (err error) {
	if s.state != StateUnopened {
		return errors.Newf(errors.ErrorTypeInternal, "open called on a %s scanner", s.state)
	}

	ctx, span := s.startCall(ctx, metrics.OpOpen,
		attribute.String("uri", s.params.URI),
		attribute.String("input_format", s.params.InputFormat),
		attribute.String("serde", s.params.Serde),
		attribute.Bool("schema_only", s.params.SchemaOnly),
	)
	restore := s.env.enter(ctx)
	defer restore()
	start := time.Now()
	defer func() { s.endCall(metrics.OpOpen, span, start, err) }()

	log := logger.WithContext(ctx, s.log)
	log.Debug("opening scanner",
		zap.String("uri", s.params.URI),
		zap.String("file_type", s.params.FileType.String()),
		zap.String("file_format", s.params.FileFormat.String()),
		zap.Strings("required_fields", s.params.RequiredFields),
		zap.Any("properties", s.params.Redacted()))

	res, err := schema.Resolve(s.params, log)
	if err != nil {
		return s.abort(log, errors.Wrap(err, errors.TypeOf(err), "resolve projection"))
	}
	s.resolution = res

	if !s.params.SchemaOnly {
		src, err := openSource(ctx, s.params, res, s.env.current, log)
		if err != nil {
			return s.abort(log, errors.Wrapf(err, errors.TypeOf(err), "open split %s", s.params.URI))
		}
		s.src = src
	}

	s.state = StateOpen
	s.metrics.OpenScanners.Inc()
	s.counted = true
	log.Info("scanner opened",
		zap.Int("columns", len(res.Columns)),
		zap.Bool("schema_only", s.params.SchemaOnly))
	return nil
}

// TableSchema returns the schema of the projected columns. It is only
// available on an open schema-only probe.
func (s *Scanner) TableSchema() (_ schema.TableSchema, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(metrics.OpTableSchema, start, err) }()

	if !s.params.SchemaOnly {
		return nil, errors.New(errors.ErrorTypeConfiguration, "table schema is only available to schema-only scans").
			WithDetail("key", scanconf.KeyIsGetTableSchema)
	}
	if s.resolution == nil {
		return nil, errors.Newf(errors.ErrorTypeInternal, "table schema requested from a %s scanner", s.state)
	}
	return s.resolution.TableSchema(), nil
}

// Close releases the split. It is safe to call more than once; only the
// first call does any work.
func (s *Scanner) Close() (err error) {
	if s.state == StateClosed {
		return nil
	}

	ctx, span := s.startCall(context.Background(), metrics.OpClose)
	restore := s.env.enter(ctx)
	defer restore()
	start := time.Now()
	defer func() { s.endCall(metrics.OpClose, span, start, err) }()

	if err = s.release(); err != nil {
		logger.WithContext(ctx, s.log).Error("failed to close scanner", zap.Error(err))
		return err
	}
	logger.WithContext(ctx, s.log).Debug("scanner closed")
	return nil
}

// release closes the source once and leaves the scanner closed.
func (s *Scanner) release() error {
	s.state = StateClosed
	if s.counted {
		s.metrics.OpenScanners.Dec()
		s.counted = false
	}
	if s.src == nil {
		return nil
	}
	src := s.src
	s.src = nil
	return src.close()
}

// abort closes the scanner while cause is being returned. A close failure
// is logged and never replaces cause.
func (s *Scanner) abort(log *zap.Logger, cause error) error {
	if err := s.release(); err != nil {
		log.Warn("close failed while unwinding",
			zap.Error(err),
			zap.NamedError("cause", cause))
	}
	log.Error("scan failed",
		zap.String("kind", string(errors.TypeOf(cause))),
		zap.Error(cause))
	return cause
}

// startCall tags ctx with the scanner and split and starts the span of one
// entry point.
func (s *Scanner) startCall(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx = context.WithValue(ctx, logger.ScannerKey, s.id)
	ctx = context.WithValue(ctx, logger.SplitKey,
		fmt.Sprintf("%s:%d+%d", s.params.URI, s.params.SplitStart, s.params.SplitLength))
	attrs = append(attrs, attribute.String("scanner", s.id))
	return observability.StartSpan(ctx, s.tracer, op, attrs...)
}

func (s *Scanner) endCall(op string, span trace.Span, start time.Time, err error) {
	s.metrics.ObserveOperation(op, start, err)
	observability.EndSpan(span, err)
}
