package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/hivescan/pkg/errors"
)

func TestObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewScanMetrics(reg)

	start := time.Now().Add(-5 * time.Millisecond)
	m.ObserveOperation(OpGetNext, start, nil)
	m.ObserveOperation(OpGetNext, start, errors.New(errors.ErrorTypeData, "bad row"))
	m.ObserveOperation(OpOpen, start, errors.New(errors.ErrorTypeSchema, "no column"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues(OpGetNext, string(errors.ErrorTypeData))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues(OpOpen, string(errors.ErrorTypeSchema))))
	assert.Equal(t, 2, testutil.CollectAndCount(m.OperationDuration))

	n, err := testutil.GatherAndCount(reg, "hivescan_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAddRows(t *testing.T) {
	m := NewScanMetrics(prometheus.NewRegistry())

	m.AddRows("rcfile", "columnar", 100)
	m.AddRows("rcfile", "columnar", 20)
	m.AddRows("rcfile", "columnar", 0)

	assert.Equal(t, 120.0, testutil.ToFloat64(m.Rows.WithLabelValues("rcfile", "columnar")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Batches.WithLabelValues("rcfile")))
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestThroughputTracker(t *testing.T) {
	m := NewScanMetrics(nil)
	tr := m.NewThroughputTracker("text")
	tr.Increment(500)
	time.Sleep(10 * time.Millisecond)

	rate := tr.GetAndReset()
	assert.Greater(t, rate, 0.0)
	assert.Equal(t, rate, testutil.ToFloat64(m.Throughput.WithLabelValues("text")))
}

func TestTimer(t *testing.T) {
	timer := NewTimer("open")
	time.Sleep(time.Millisecond)
	assert.Equal(t, "open", timer.Name())
	assert.GreaterOrEqual(t, timer.Stop(), time.Millisecond)
}
