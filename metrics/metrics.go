package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/stat"
)

// MetricsCollector tracks integration runs, both in process and as
// Prometheus series.
type MetricsCollector struct {
	mutex              sync.RWMutex
	startTime          time.Time        // time when collection started
	endTime            time.Time        // time when collection stopped
	totalRuns          int64            // successful runs
	failedRuns         map[string]int64 // failures by error kind
	totalSamples       int64            // Monte Carlo evaluations across runs
	cacheHits          int64
	cacheMisses        int64
	estimateLatencies  []time.Duration  // per-run sampling time
	referenceLatencies []time.Duration  // per-run quadrature time
	relativeErrors     []float64        // only runs with a defined relative error
	memoryUsage        []MemorySnapshot // history of memory snapshots

	// Go-specific metrics
	gcStats       []GCSnapshot
	numCPU        int
	maxGoroutines int

	prom *promMetrics
}

// MemorySnapshot captures memory usage at a point in time
type MemorySnapshot struct {
	Timestamp    time.Time `json:"timestamp"`
	HeapAlloc    uint64    `json:"heap_alloc"`
	HeapSys      uint64    `json:"heap_sys"`
	HeapInuse    uint64    `json:"heap_inuse"`
	StackInuse   uint64    `json:"stack_inuse"`
	NumGoroutine int       `json:"num_goroutine"`
}

// GCSnapshot captures garbage collection statistics
type GCSnapshot struct {
	Timestamp    time.Time `json:"timestamp"`
	NumGC        uint32    `json:"num_gc"`
	PauseTotalNs uint64    `json:"pause_total_ns"`
	LastPauseNs  uint64    `json:"last_pause_ns"`
}

// Run is what a single successful run reports to the collector.
type Run struct {
	Samples          int64
	EstimateLatency  time.Duration
	ReferenceLatency time.Duration
	RelativeError    float64
	RelativeDefined  bool
}

// PerformanceMetrics contains all collected performance data
type PerformanceMetrics struct {
	Duration            time.Duration    `json:"duration"`
	TotalRuns           int64            `json:"total_runs"`
	FailedRuns          map[string]int64 `json:"failed_runs"`
	TotalSamples        int64            `json:"total_samples"`
	RunsPerSecond       float64          `json:"runs_per_second"`
	SamplesPerSecond    float64          `json:"samples_per_second"`
	AvgEstimateLatency  time.Duration    `json:"avg_estimate_latency"`
	AvgReferenceLatency time.Duration    `json:"avg_reference_latency"`
	P95EstimateLatency  time.Duration    `json:"p95_estimate_latency"`
	P99EstimateLatency  time.Duration    `json:"p99_estimate_latency"`
	CacheHits           int64            `json:"cache_hits"`
	CacheMisses         int64            `json:"cache_misses"`
	MeanRelativeError   float64          `json:"mean_relative_error"`
	MaxRelativeError    float64          `json:"max_relative_error"`
	PeakMemoryUsage     uint64           `json:"peak_memory_usage"`
	MaxGoroutines       int              `json:"max_goroutines"`
	NumCPU              int              `json:"num_cpu"`
	TotalGCPauses       uint64           `json:"total_gc_pauses"`
	MemorySnapshots     []MemorySnapshot `json:"memory_snapshots"`
	GCSnapshots         []GCSnapshot     `json:"gc_snapshots"`
	EstimateLatencyHist []int64          `json:"estimate_latency_histogram"`
}

// NewMetricsCollector creates a new metrics collector with its own
// Prometheus registry.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime:          time.Now(),
		failedRuns:         make(map[string]int64),
		estimateLatencies:  make([]time.Duration, 0, 1000),
		referenceLatencies: make([]time.Duration, 0, 1000),
		memoryUsage:        make([]MemorySnapshot, 0, 1000),
		gcStats:            make([]GCSnapshot, 0, 1000),
		numCPU:             runtime.NumCPU(),
		prom:               newPromMetrics(),
	}
}

// Start begins metrics collection
func (mc *MetricsCollector) Start() {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	mc.startTime = time.Now()
}

// Stop ends metrics collection
func (mc *MetricsCollector) Stop() {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	mc.endTime = time.Now()
}

// RecordRun records a successful run.
func (mc *MetricsCollector) RecordRun(r Run) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	mc.totalRuns++
	mc.totalSamples += r.Samples
	mc.estimateLatencies = append(mc.estimateLatencies, r.EstimateLatency)
	mc.referenceLatencies = append(mc.referenceLatencies, r.ReferenceLatency)
	if r.RelativeDefined {
		mc.relativeErrors = append(mc.relativeErrors, r.RelativeError)
	}
	mc.prom.observeRun(r)
}

// RecordFailure records a failed run under its error kind.
func (mc *MetricsCollector) RecordFailure(kind string) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	mc.failedRuns[kind]++
	mc.prom.runs.WithLabelValues(kind).Inc()
}

// RecordCache records a reference cache lookup.
func (mc *MetricsCollector) RecordCache(hit bool) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	result := "miss"
	if hit {
		mc.cacheHits++
		result = "hit"
	} else {
		mc.cacheMisses++
	}
	mc.prom.cache.WithLabelValues(result).Inc()
}

// TakeSnapshot captures current system state
func (mc *MetricsCollector) TakeSnapshot() {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	now := time.Now()
	numGoroutines := runtime.NumGoroutine()

	mc.memoryUsage = append(mc.memoryUsage, MemorySnapshot{
		Timestamp:    now,
		HeapAlloc:    memStats.HeapAlloc,
		HeapSys:      memStats.HeapSys,
		HeapInuse:    memStats.HeapInuse,
		StackInuse:   memStats.StackInuse,
		NumGoroutine: numGoroutines,
	})
	mc.gcStats = append(mc.gcStats, GCSnapshot{
		Timestamp:    now,
		NumGC:        memStats.NumGC,
		PauseTotalNs: memStats.PauseTotalNs,
		// PauseNs is a ring buffer indexed by NumGC
		LastPauseNs: memStats.PauseNs[(memStats.NumGC+255)%256],
	})

	if numGoroutines > mc.maxGoroutines {
		mc.maxGoroutines = numGoroutines
	}
}

// GetMetrics returns comprehensive performance metrics
func (mc *MetricsCollector) GetMetrics() PerformanceMetrics {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	duration := mc.endTime.Sub(mc.startTime)
	if duration <= 0 {
		duration = time.Since(mc.startTime)
	}

	m := PerformanceMetrics{
		Duration:            duration,
		TotalRuns:           mc.totalRuns,
		FailedRuns:          make(map[string]int64, len(mc.failedRuns)),
		TotalSamples:        mc.totalSamples,
		RunsPerSecond:       float64(mc.totalRuns) / duration.Seconds(),
		SamplesPerSecond:    float64(mc.totalSamples) / duration.Seconds(),
		AvgEstimateLatency:  average(mc.estimateLatencies),
		AvgReferenceLatency: average(mc.referenceLatencies),
		CacheHits:           mc.cacheHits,
		CacheMisses:         mc.cacheMisses,
		MaxGoroutines:       mc.maxGoroutines,
		NumCPU:              mc.numCPU,
		MemorySnapshots:     slices.Clone(mc.memoryUsage),
		GCSnapshots:         slices.Clone(mc.gcStats),
		EstimateLatencyHist: createLatencyHistogram(mc.estimateLatencies),
	}
	for kind, n := range mc.failedRuns {
		m.FailedRuns[kind] = n
	}

	if len(mc.estimateLatencies) > 0 {
		sorted := make([]float64, len(mc.estimateLatencies))
		for i, lat := range mc.estimateLatencies {
			sorted[i] = float64(lat)
		}
		slices.Sort(sorted)
		m.P95EstimateLatency = time.Duration(stat.Quantile(0.95, stat.Empirical, sorted, nil))
		m.P99EstimateLatency = time.Duration(stat.Quantile(0.99, stat.Empirical, sorted, nil))
	}

	if len(mc.relativeErrors) > 0 {
		m.MeanRelativeError = stat.Mean(mc.relativeErrors, nil)
		m.MaxRelativeError = slices.Max(mc.relativeErrors)
	}

	for _, snapshot := range mc.memoryUsage {
		m.PeakMemoryUsage = max(m.PeakMemoryUsage, snapshot.HeapAlloc)
	}
	if len(mc.gcStats) > 0 {
		m.TotalGCPauses = mc.gcStats[len(mc.gcStats)-1].PauseTotalNs
	}
	return m
}

func average(latencies []time.Duration) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range latencies {
		total += lat
	}
	return total / time.Duration(len(latencies))
}

// createLatencyHistogram buckets latencies into 20 equal-width bins up to the
// largest one.
func createLatencyHistogram(latencies []time.Duration) []int64 {
	if len(latencies) == 0 {
		return []int64{}
	}
	buckets := make([]int64, 20)

	maxLatency := slices.Max(latencies)
	if maxLatency == 0 {
		buckets[0] = int64(len(latencies))
		return buckets
	}

	bucketSize := float64(maxLatency) / float64(len(buckets))
	for _, lat := range latencies {
		bucketIndex := int(math.Floor(float64(lat) / bucketSize))
		if bucketIndex >= len(buckets) {
			bucketIndex = len(buckets) - 1
		}
		buckets[bucketIndex]++
	}
	return buckets
}

// ExportToJSON exports metrics to JSON format
func (mc *MetricsCollector) ExportToJSON() ([]byte, error) {
	return json.MarshalIndent(mc.GetMetrics(), "", "  ")
}

// Gatherer exposes the Prometheus registry behind the collector.
func (mc *MetricsCollector) Gatherer() prometheus.Gatherer {
	return mc.prom.registry
}

// WriteTextfile writes the Prometheus series in text exposition format, for
// the node exporter textfile collector.
func (mc *MetricsCollector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, mc.prom.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// PrintSummary prints a summary of the metrics
func (mc *MetricsCollector) PrintSummary(w io.Writer) {
	metrics := mc.GetMetrics()

	var failed int64
	for _, n := range metrics.FailedRuns {
		failed += n
	}

	fmt.Fprintln(w, "\n========== PERFORMANCE METRICS SUMMARY ==========")
	fmt.Fprintf(w, "Duration: %v\n", metrics.Duration)
	fmt.Fprintf(w, "Total Runs: %d\n", metrics.TotalRuns)
	fmt.Fprintf(w, "Failed Runs: %d\n", failed)
	fmt.Fprintf(w, "Total Samples: %d\n", metrics.TotalSamples)
	fmt.Fprintf(w, "Samples/Second: %.2f\n", metrics.SamplesPerSecond)
	fmt.Fprintf(w, "Average Estimate Latency: %v\n", metrics.AvgEstimateLatency)
	fmt.Fprintf(w, "Average Reference Latency: %v\n", metrics.AvgReferenceLatency)
	fmt.Fprintf(w, "P95 Estimate Latency: %v\n", metrics.P95EstimateLatency)
	fmt.Fprintf(w, "P99 Estimate Latency: %v\n", metrics.P99EstimateLatency)
	fmt.Fprintf(w, "Reference Cache: %d hits, %d misses\n", metrics.CacheHits, metrics.CacheMisses)
	fmt.Fprintf(w, "Mean Relative Error: %.4f%%\n", metrics.MeanRelativeError*100)
	fmt.Fprintf(w, "Peak Memory Usage: %.2f MB\n", float64(metrics.PeakMemoryUsage)/1024/1024)
	fmt.Fprintf(w, "Max Goroutines: %d\n", metrics.MaxGoroutines)
	fmt.Fprintf(w, "Number of CPUs: %d\n", metrics.NumCPU)
	fmt.Fprintf(w, "Total GC Pauses: %.2f ms\n", float64(metrics.TotalGCPauses)/1e6)
	fmt.Fprintln(w, "=================================================")
}
