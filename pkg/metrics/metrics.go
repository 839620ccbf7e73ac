// Package metrics exposes scan activity as Prometheus metrics.
//
// A ScanMetrics value owns one set of collectors registered with the
// registerer it was built from. Default is registered with the global
// Prometheus registry and is what scanners use unless told otherwise.
//
//	m := metrics.NewScanMetrics(prometheus.NewRegistry())
//	start := time.Now()
//	n, err := scan(batch)
//	m.ObserveOperation(metrics.OpGetNext, start, err)
//	m.AddRows("rcfile", "columnar", n)
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/hivescan/pkg/errors"
)

// Operation labels.
const (
	OpOpen        = "open"
	OpGetNext     = "get_next"
	OpClose       = "close"
	OpTableSchema = "table_schema"
)

// ScanMetrics groups the collectors of the scan path.
type ScanMetrics struct {
	// Rows counts rows handed to sinks.
	// Labels: input_format, serde
	Rows *prometheus.CounterVec

	// Batches counts GetNext calls that produced at least one row.
	// Labels: input_format
	Batches *prometheus.CounterVec

	// Errors counts failed operations by error kind.
	// Labels: operation, kind
	Errors *prometheus.CounterVec

	// OperationDuration tracks the latency of scanner entry points.
	// Labels: operation
	OperationDuration *prometheus.HistogramVec

	// OpenScanners is the number of scanners between Open and Close.
	OpenScanners prometheus.Gauge

	// Throughput is the row rate last reported by a ThroughputTracker.
	// Labels: input_format
	Throughput *prometheus.GaugeVec
}

// NewScanMetrics creates the collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewScanMetrics(reg prometheus.Registerer) *ScanMetrics {
	f := promauto.With(reg)
	return &ScanMetrics{
		Rows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hivescan_rows_total",
				Help: "Total number of rows appended to batches",
			},
			[]string{"input_format", "serde"},
		),
		Batches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hivescan_batches_total",
				Help: "Total number of non-empty batches produced",
			},
			[]string{"input_format"},
		),
		Errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hivescan_errors_total",
				Help: "Total number of failed scanner operations",
			},
			[]string{"operation", "kind"},
		),
		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "hivescan_operation_duration_seconds",
				Help: "Latency of scanner operations in seconds",
				Buckets: []float64{
					0.0001, // 100μs - buffered batches
					0.001,  // 1ms
					0.01,   // 10ms - local reads
					0.1,    // 100ms - object store round trips
					1,
					10, // large row groups over slow links
				},
			},
			[]string{"operation"},
		),
		OpenScanners: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "hivescan_open_scanners",
				Help: "Number of scanners currently open",
			},
		),
		Throughput: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hivescan_throughput_rows_per_second",
				Help: "Current scan throughput in rows per second",
			},
			[]string{"input_format"},
		),
	}
}

var (
	defaultOnce sync.Once
	defaultSet  *ScanMetrics
)

// Default returns the process-wide metrics, registered with the global
// Prometheus registry on first use.
func Default() *ScanMetrics {
	defaultOnce.Do(func() {
		defaultSet = NewScanMetrics(prometheus.DefaultRegisterer)
	})
	return defaultSet
}

// ObserveOperation records the latency of op and, when err is non-nil, an
// error of its kind.
func (m *ScanMetrics) ObserveOperation(op string, start time.Time, err error) {
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.Errors.WithLabelValues(op, string(errors.TypeOf(err))).Inc()
	}
}

// AddRows counts one batch of n rows.
func (m *ScanMetrics) AddRows(inputFormat, serde string, n int) {
	if n <= 0 {
		return
	}
	m.Rows.WithLabelValues(inputFormat, serde).Add(float64(n))
	m.Batches.WithLabelValues(inputFormat).Inc()
}

// Timer measures the duration of one operation.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer starts a timer.
func NewTimer(name string) *Timer {
	return &Timer{start: time.Now(), name: name}
}

// Name returns the name the timer was started with.
func (t *Timer) Name() string { return t.name }

// Stop returns the time elapsed since the timer started. It may be called
// more than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker computes rows per second over reporting windows. Safe
// for concurrent use.
type ThroughputTracker struct {
	mu          sync.Mutex
	count       int64
	lastReset   time.Time
	inputFormat string
	gauge       *prometheus.GaugeVec
}

// NewThroughputTracker returns a tracker reporting into m.Throughput.
func (m *ScanMetrics) NewThroughputTracker(inputFormat string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset:   time.Now(),
		inputFormat: inputFormat,
		gauge:       m.Throughput,
	}
}

// Increment adds n rows.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset returns the rate since the last reset, publishes it and starts
// a new window.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}
	rate := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()
	t.gauge.WithLabelValues(t.inputFormat).Set(rate)
	return rate
}
