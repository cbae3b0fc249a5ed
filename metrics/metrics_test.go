package metrics

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRuns(t *testing.T) {
	mc := NewMetricsCollector()
	mc.Start()
	for i := 1; i <= 100; i++ {
		mc.RecordRun(Run{
			Samples:          1000,
			EstimateLatency:  time.Duration(i) * time.Millisecond,
			ReferenceLatency: time.Microsecond,
			RelativeError:    float64(i) / 1000,
			RelativeDefined:  i%2 == 0,
		})
	}
	mc.RecordFailure("QuadratureFailureError")
	mc.RecordFailure("QuadratureFailureError")
	mc.RecordCache(true)
	mc.RecordCache(false)
	mc.RecordCache(false)
	mc.Stop()

	m := mc.GetMetrics()
	assert.Equal(t, int64(100), m.TotalRuns)
	assert.Equal(t, int64(100000), m.TotalSamples)
	assert.Equal(t, map[string]int64{"QuadratureFailureError": 2}, m.FailedRuns)
	assert.Equal(t, int64(1), m.CacheHits)
	assert.Equal(t, int64(2), m.CacheMisses)
	assert.Equal(t, 50500*time.Microsecond, m.AvgEstimateLatency)
	assert.Equal(t, 95*time.Millisecond, m.P95EstimateLatency)
	assert.Equal(t, 99*time.Millisecond, m.P99EstimateLatency)
	assert.InDelta(t, 0.051, m.MeanRelativeError, 1e-12)
	assert.InDelta(t, 0.1, m.MaxRelativeError, 1e-12)
	assert.Positive(t, m.SamplesPerSecond)

	var total int64
	for _, n := range m.EstimateLatencyHist {
		total += n
	}
	assert.Equal(t, int64(100), total)
	assert.Len(t, m.EstimateLatencyHist, 20)
}

func TestPrometheusSeries(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordRun(Run{Samples: 500, RelativeError: 0.02, RelativeDefined: true})
	mc.RecordRun(Run{Samples: 250})
	mc.RecordFailure("InvalidIntervalError")
	mc.RecordCache(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(mc.prom.runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.prom.runs.WithLabelValues("InvalidIntervalError")))
	assert.Equal(t, 750.0, testutil.ToFloat64(mc.prom.samples))
	assert.Equal(t, 0.02, testutil.ToFloat64(mc.prom.relativeError))
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.prom.cache.WithLabelValues("hit")))

	path := filepath.Join(t.TempDir(), "mcint.prom")
	require.NoError(t, mc.WriteTextfile(path))
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mcint_runs_total{result="ok"} 2`)
	assert.Contains(t, string(body), "mcint_samples_total 750")
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := NewMetricsCollector(), NewMetricsCollector()
	a.RecordRun(Run{Samples: 1})
	assert.Equal(t, 0.0, testutil.ToFloat64(b.prom.samples))
}

func TestSnapshotsAndExport(t *testing.T) {
	mc := NewMetricsCollector()
	mc.TakeSnapshot()
	mc.TakeSnapshot()

	m := mc.GetMetrics()
	assert.Len(t, m.MemorySnapshots, 2)
	assert.Positive(t, m.PeakMemoryUsage)
	assert.Positive(t, m.MaxGoroutines)

	data, err := mc.ExportToJSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "samples_per_second")

	var buf bytes.Buffer
	mc.PrintSummary(&buf)
	assert.Contains(t, buf.String(), "PERFORMANCE METRICS SUMMARY")
	assert.Contains(t, buf.String(), "Total Runs: 0")
}

func TestLatencyHistogramEdgeCases(t *testing.T) {
	assert.Empty(t, createLatencyHistogram(nil))
	h := createLatencyHistogram([]time.Duration{0, 0, 0})
	assert.Equal(t, int64(3), h[0])
	h = createLatencyHistogram([]time.Duration{1, 2, 3})
	assert.Equal(t, int64(1), h[19])
}
