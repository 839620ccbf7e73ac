// Package pipeline scans one file as many splits in parallel.
package pipeline

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/hivescan/pkg/batch"
	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/ajitpratap0/hivescan/pkg/metrics"
	"github.com/ajitpratap0/hivescan/pkg/scanconf"
	"github.com/ajitpratap0/hivescan/pkg/scanner"
	"github.com/ajitpratap0/hivescan/pkg/schema"
	"github.com/ajitpratap0/hivescan/pkg/storage"
)

// Config contains configuration for a split runner
type Config struct {
	// SplitSize is the byte length of each split. 0 scans the file as one split.
	SplitSize   int64
	Parallelism int // 0 = auto (NumCPU)
	Capacity    int // rows per batch
	// Allocator backs the Arrow batches. Defaults to the Go allocator.
	Allocator memory.Allocator
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		SplitSize:   128 << 20,
		Parallelism: runtime.NumCPU(),
		Capacity:    4096,
	}
}

// Split is one byte range of the scanned file.
type Split struct {
	Index  int
	Start  int64
	Length int64
}

// Result reports what one split produced.
type Result struct {
	Split
	Rows     int64
	Batches  int
	Duration time.Duration
}

// Consumer receives every non-empty batch. Calls are serialised. The record
// is released after Consumer returns; Retain it to keep it.
type Consumer func(split Split, rec arrow.Record) error

// PlanSplits cuts size bytes into consecutive splits of splitSize bytes. A
// non-positive splitSize, or an empty file, gives a single split.
func PlanSplits(size, splitSize int64) []Split {
	if splitSize <= 0 || size <= splitSize {
		return []Split{{Index: 0, Start: 0, Length: size}}
	}
	splits := make([]Split, 0, (size+splitSize-1)/splitSize)
	for start := int64(0); start < size; start += splitSize {
		length := splitSize
		if start+length > size {
			length = size - start
		}
		splits = append(splits, Split{Index: len(splits), Start: start, Length: length})
	}
	return splits
}

// SplitRunner runs one scanner per split of a file with bounded
// parallelism.
type SplitRunner struct {
	params  *scanconf.Parameters
	config  *Config
	metrics *metrics.ScanMetrics
	logger  *zap.Logger
	opts    []scanner.Option

	mu sync.Mutex
}

// NewSplitRunner creates a runner for the file and projection described by
// p. The split range of p is ignored. opts are applied to every scanner.
func NewSplitRunner(p *scanconf.Parameters, config *Config, m *metrics.ScanMetrics, logger *zap.Logger, opts ...scanner.Option) *SplitRunner {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Parallelism <= 0 {
		config.Parallelism = runtime.NumCPU()
	}
	if config.Capacity <= 0 {
		config.Capacity = DefaultConfig().Capacity
	}
	if config.Allocator == nil {
		config.Allocator = memory.DefaultAllocator
	}
	if m == nil {
		m = metrics.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append(opts, scanner.WithMetrics(m), scanner.WithLogger(logger))

	return &SplitRunner{
		params:  p,
		config:  config,
		metrics: m,
		logger:  logger.With(zap.String("component", "split-runner"), zap.String("uri", p.URI)),
		opts:    opts,
	}
}

// Schema returns the Arrow schema of the batches the runner produces.
func (r *SplitRunner) Schema() (*arrow.Schema, error) {
	res, err := schema.Resolve(r.params, r.logger)
	if err != nil {
		return nil, err
	}
	return batch.ArrowSchema(res.Columns), nil
}

// Run scans every split and hands the batches to consume. The first failure
// cancels the remaining splits and is returned together with the results
// gathered so far.
func (r *SplitRunner) Run(ctx context.Context, consume Consumer) ([]Result, error) {
	if r.params.SchemaOnly {
		return nil, errors.New(errors.ErrorTypeConfiguration, "schema-only parameters cannot be scanned")
	}
	size, err := storage.Stat(ctx, r.params.FileType, r.params.URI, r.params.Extra)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeSource, "stat %s", r.params.URI)
	}
	splits := PlanSplits(size, r.config.SplitSize)
	r.logger.Info("scanning file",
		zap.Int64("size", size),
		zap.Int("splits", len(splits)),
		zap.Int("parallelism", r.config.Parallelism))

	tracker := r.metrics.NewThroughputTracker(r.params.InputFormat)
	results := make([]Result, len(splits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Parallelism)
	for i, sp := range splits {
		g.Go(func() error {
			res, err := r.runSplit(gctx, sp, tracker, consume)
			results[i] = res
			return err
		})
	}
	err = g.Wait()

	var rows int64
	for _, res := range results {
		rows += res.Rows
	}
	r.logger.Info("file scanned",
		zap.Int64("rows", rows),
		zap.Float64("rows_per_second", tracker.GetAndReset()),
		zap.Error(err))
	return results, err
}

func (r *SplitRunner) runSplit(ctx context.Context, sp Split, tracker *metrics.ThroughputTracker, consume Consumer) (res Result, err error) {
	res.Split = sp
	timer := metrics.NewTimer("split")
	defer func() { res.Duration = timer.Stop() }()

	s := scanner.NewWithParameters(r.params.WithSplit(sp.Start, sp.Length), r.opts...)
	if err := s.Open(ctx); err != nil {
		return res, err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	b := batch.NewArrowBatch(r.config.Allocator, s.Columns())
	defer b.Release()

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n, err := s.GetNext(ctx, b, r.config.Capacity)
		if err != nil {
			return res, err
		}
		if n == 0 {
			break
		}
		rec, err := b.Record(n)
		if err != nil {
			return res, err
		}
		err = r.deliver(sp, rec, consume)
		rec.Release()
		if err != nil {
			return res, err
		}
		res.Rows += int64(n)
		res.Batches++
		tracker.Increment(int64(n))
	}

	r.logger.Debug("split done",
		zap.Int("split", sp.Index),
		zap.Int64("rows", res.Rows),
		zap.Duration("elapsed", timer.Stop()))
	return res, nil
}

func (r *SplitRunner) deliver(sp Split, rec arrow.Record, consume Consumer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return consume(sp, rec)
}
