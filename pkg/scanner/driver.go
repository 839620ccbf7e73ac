package scanner

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/hivescan/pkg/batch"
	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/logger"
	"github.com/ajitpratap0/hivescan/pkg/metrics"
	"github.com/ajitpratap0/hivescan/pkg/scanconf"
	"github.com/ajitpratap0/hivescan/pkg/value"
)

// GetNext appends up to capacity rows to sink and returns how many it
// appended. Every projected column of a row is appended, in projection
// order, before the next row is read; NULL fields are appended as
// value.Null. A return of 0 means the split is exhausted and is final.
//
// Any failure while reading, bridging or appending is returned as a data
// error. The sink is asked to Discard the rows of the failed call when it
// implements batch.Discarder, and the scanner is closed.
func (s *Scanner) GetNext(ctx context.Context, sink batch.Sink, capacity int) (n int, err error) {
	if capacity <= 0 {
		return 0, errors.Newf(errors.ErrorTypeConfiguration, "batch capacity must be positive, got %d", capacity)
	}
	switch s.state {
	case StateUnopened:
		return 0, errors.New(errors.ErrorTypeInternal, "get next called before open")
	case StateEOF, StateClosed:
		return 0, nil
	}
	if s.src == nil {
		return 0, errors.New(errors.ErrorTypeConfiguration, "schema-only scans produce no rows").
			WithDetail("key", scanconf.KeyIsGetTableSchema)
	}

	ctx, span := s.startCall(ctx, metrics.OpGetNext, attribute.Int("capacity", capacity))
	restore := s.env.enter(ctx)
	defer restore()
	start := time.Now()
	defer func() {
		span.SetAttributes(attribute.Int("rows", n))
		s.endCall(metrics.OpGetNext, span, start, err)
	}()

	rows, exhausted, err := s.fill(sink, capacity)
	if err != nil {
		if d, ok := sink.(batch.Discarder); ok {
			d.Discard()
		}
		err = errors.Wrap(err, errors.ErrorTypeData, "read batch").
			WithDetail("row_in_batch", rows)
		return 0, s.abort(logger.WithContext(ctx, s.log), err)
	}

	if exhausted {
		s.state = StateEOF
		logger.WithContext(ctx, s.log).Debug("split exhausted", zap.Int("rows", rows))
	}
	s.metrics.AddRows(s.params.InputFormat, s.params.Serde, rows)
	return rows, nil
}

// fill runs the row loop of one batch. It reports whether the source ran
// out before capacity rows were appended.
func (s *Scanner) fill(sink batch.Sink, capacity int) (int, bool, error) {
	fields := s.src.fields
	rows := 0
	for rows < capacity {
		row, err := s.src.next()
		if err == io.EOF {
			return rows, true, nil
		}
		if err != nil {
			return rows, false, err
		}

		for slot := range fields {
			f := &fields[slot]
			v, err := value.Bridge(s.src.inspector, row, f.Ref)
			if err != nil {
				return rows, false, errors.Wrapf(err, errors.ErrorTypeData, "column %s", f.Name).
					WithDetail("column", f.Name)
			}
			if err := sink.AppendData(slot, v); err != nil {
				return rows, false, errors.Wrapf(err, errors.ErrorTypeData, "append column %s", f.Name).
					WithDetail("column", f.Name).
					WithDetail("slot", slot)
			}
		}
		rows++
	}
	return rows, false, nil
}
