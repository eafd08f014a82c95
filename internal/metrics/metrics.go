package metrics

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Metrics holds counters exported over /metrics (Prometheus) and
// /api/v1/metrics (JSON).
type Metrics struct {
	startTime time.Time

	// HTTP request metrics
	httpRequestsTotal   atomic.Int64
	httpRequestsSuccess atomic.Int64
	httpRequestsError   atomic.Int64

	// HTTP latency histogram buckets (microseconds).
	// Buckets: 1ms, 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, +Inf
	httpLatencyBuckets [10]atomic.Int64
	httpLatencySum     atomic.Int64
	httpLatencyCount   atomic.Int64

	// Ingestion metrics
	ingestRecordsTotal atomic.Int64
	ingestBytesTotal   atomic.Int64
	ingestErrorsTotal  atomic.Int64

	// Query metrics
	queryRequestsTotal atomic.Int64
	querySuccessTotal  atomic.Int64
	queryErrorsTotal   atomic.Int64
	queryRowsTotal     atomic.Int64
	queryLatencySum    atomic.Int64 // microseconds
	queryLatencyCount  atomic.Int64

	// Storage metrics
	storageWritesTotal     atomic.Int64
	storageWriteBytesTotal atomic.Int64
	storageReadsTotal      atomic.Int64
	storageReadBytesTotal  atomic.Int64
	storageErrorsTotal     atomic.Int64

	// Session lifecycle metrics
	sessionsCreatedTotal atomic.Int64
	sessionsDeletedTotal atomic.Int64
	sessionsExpiredTotal atomic.Int64
	sessionsActive       atomic.Int64

	logger zerolog.Logger
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the singleton metrics instance.
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			startTime: time.Now(),
		}
	})
	return instance
}

// Init initializes the metrics singleton with a logger.
func Init(logger zerolog.Logger) *Metrics {
	m := Get()
	m.logger = logger.With().Str("component", "metrics").Logger()
	m.logger.Info().Msg("Metrics collector initialized")
	return m
}

// HTTP Metrics
func (m *Metrics) IncHTTPRequests() { m.httpRequestsTotal.Add(1) }
func (m *Metrics) IncHTTPSuccess()  { m.httpRequestsSuccess.Add(1) }
func (m *Metrics) IncHTTPError()    { m.httpRequestsError.Add(1) }

// RecordHTTPLatency records HTTP request latency in microseconds.
func (m *Metrics) RecordHTTPLatency(durationMicros int64) {
	m.httpLatencySum.Add(durationMicros)
	m.httpLatencyCount.Add(1)
	m.httpLatencyBuckets[m.getLatencyBucket(durationMicros)].Add(1)
}

func (m *Metrics) getLatencyBucket(micros int64) int {
	switch {
	case micros <= 1000:
		return 0
	case micros <= 5000:
		return 1
	case micros <= 10000:
		return 2
	case micros <= 25000:
		return 3
	case micros <= 50000:
		return 4
	case micros <= 100000:
		return 5
	case micros <= 250000:
		return 6
	case micros <= 500000:
		return 7
	case micros <= 1000000:
		return 8
	default:
		return 9
	}
}

// Ingestion Metrics
func (m *Metrics) IncIngestRecords(count int64) { m.ingestRecordsTotal.Add(count) }
func (m *Metrics) IncIngestBytes(bytes int64)   { m.ingestBytesTotal.Add(bytes) }
func (m *Metrics) IncIngestErrors()             { m.ingestErrorsTotal.Add(1) }

// Query Metrics
func (m *Metrics) IncQueryRequests()        { m.queryRequestsTotal.Add(1) }
func (m *Metrics) IncQuerySuccess()         { m.querySuccessTotal.Add(1) }
func (m *Metrics) IncQueryErrors()          { m.queryErrorsTotal.Add(1) }
func (m *Metrics) IncQueryRows(count int64) { m.queryRowsTotal.Add(count) }

// RecordQueryLatency records query latency in microseconds.
func (m *Metrics) RecordQueryLatency(durationMicros int64) {
	m.queryLatencySum.Add(durationMicros)
	m.queryLatencyCount.Add(1)
}

// Storage Metrics
func (m *Metrics) IncStorageWrites()                { m.storageWritesTotal.Add(1) }
func (m *Metrics) IncStorageWriteBytes(bytes int64) { m.storageWriteBytesTotal.Add(bytes) }
func (m *Metrics) IncStorageReads()                 { m.storageReadsTotal.Add(1) }
func (m *Metrics) IncStorageReadBytes(bytes int64)  { m.storageReadBytesTotal.Add(bytes) }
func (m *Metrics) IncStorageErrors()                { m.storageErrorsTotal.Add(1) }

// Session Metrics
func (m *Metrics) IncSessionsCreated()      { m.sessionsCreatedTotal.Add(1); m.sessionsActive.Add(1) }
func (m *Metrics) IncSessionsDeleted()      { m.sessionsDeletedTotal.Add(1); m.sessionsActive.Add(-1) }
func (m *Metrics) IncSessionsExpired()      { m.sessionsExpiredTotal.Add(1); m.sessionsActive.Add(-1) }
func (m *Metrics) SetSessionsActive(n int64) { m.sessionsActive.Store(n) }

// Snapshot returns all metrics as a map, for the JSON metrics endpoint.
func (m *Metrics) Snapshot() map[string]interface{} {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return map[string]interface{}{
		"uptime_seconds": time.Since(m.startTime).Seconds(),
		"goroutines":     runtime.NumGoroutine(),
		"go_version":     runtime.Version(),
		"num_cpu":        runtime.NumCPU(),
		"gomaxprocs":     runtime.GOMAXPROCS(0),

		"memory_alloc_bytes":      memStats.Alloc,
		"memory_heap_alloc_bytes": memStats.HeapAlloc,
		"memory_sys_bytes":        memStats.Sys,
		"gc_cycles":               memStats.NumGC,

		"http_requests_total":   m.httpRequestsTotal.Load(),
		"http_requests_success": m.httpRequestsSuccess.Load(),
		"http_requests_error":   m.httpRequestsError.Load(),
		"http_latency_sum_us":   m.httpLatencySum.Load(),
		"http_latency_count":    m.httpLatencyCount.Load(),

		"ingest_records_total": m.ingestRecordsTotal.Load(),
		"ingest_bytes_total":   m.ingestBytesTotal.Load(),
		"ingest_errors_total":  m.ingestErrorsTotal.Load(),

		"query_requests_total": m.queryRequestsTotal.Load(),
		"query_success_total":  m.querySuccessTotal.Load(),
		"query_errors_total":   m.queryErrorsTotal.Load(),
		"query_rows_total":     m.queryRowsTotal.Load(),
		"query_latency_sum_us": m.queryLatencySum.Load(),
		"query_latency_count":  m.queryLatencyCount.Load(),

		"storage_writes_total":      m.storageWritesTotal.Load(),
		"storage_write_bytes_total": m.storageWriteBytesTotal.Load(),
		"storage_reads_total":       m.storageReadsTotal.Load(),
		"storage_read_bytes_total":  m.storageReadBytesTotal.Load(),
		"storage_errors_total":      m.storageErrorsTotal.Load(),

		"sessions_created_total": m.sessionsCreatedTotal.Load(),
		"sessions_deleted_total": m.sessionsDeletedTotal.Load(),
		"sessions_expired_total": m.sessionsExpiredTotal.Load(),
		"sessions_active":        m.sessionsActive.Load(),
	}
}

// PrometheusFormat returns metrics in Prometheus text exposition format.
func (m *Metrics) PrometheusFormat() string {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var b []byte
	b = append(b, "# HELP tracecore_uptime_seconds Time since the server started\n"...)
	b = append(b, "# TYPE tracecore_uptime_seconds gauge\n"...)
	b = appendMetric(b, "tracecore_uptime_seconds", time.Since(m.startTime).Seconds())

	b = append(b, "# HELP tracecore_goroutines Number of goroutines\n"...)
	b = append(b, "# TYPE tracecore_goroutines gauge\n"...)
	b = appendMetric(b, "tracecore_goroutines", float64(runtime.NumGoroutine()))

	b = append(b, "# HELP tracecore_memory_alloc_bytes Current allocated memory\n"...)
	b = append(b, "# TYPE tracecore_memory_alloc_bytes gauge\n"...)
	b = appendMetric(b, "tracecore_memory_alloc_bytes", float64(memStats.Alloc))

	b = append(b, "# HELP tracecore_http_requests_total Total HTTP requests\n"...)
	b = append(b, "# TYPE tracecore_http_requests_total counter\n"...)
	b = appendMetric(b, "tracecore_http_requests_total", float64(m.httpRequestsTotal.Load()))

	b = append(b, "# HELP tracecore_http_requests_error_total Failed HTTP requests\n"...)
	b = append(b, "# TYPE tracecore_http_requests_error_total counter\n"...)
	b = appendMetric(b, "tracecore_http_requests_error_total", float64(m.httpRequestsError.Load()))

	b = append(b, "# HELP tracecore_http_latency_seconds HTTP request latency\n"...)
	b = append(b, "# TYPE tracecore_http_latency_seconds histogram\n"...)
	bucketLabels := []string{"0.001", "0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "1", "+Inf"}
	var cumulative int64
	for i, label := range bucketLabels {
		cumulative += m.httpLatencyBuckets[i].Load()
		b = appendMetricWithLabel(b, "tracecore_http_latency_seconds_bucket", "le", label, float64(cumulative))
	}
	b = appendMetric(b, "tracecore_http_latency_seconds_sum", float64(m.httpLatencySum.Load())/1000000.0)
	b = appendMetric(b, "tracecore_http_latency_seconds_count", float64(m.httpLatencyCount.Load()))

	b = append(b, "# HELP tracecore_ingest_records_total Total rows ingested\n"...)
	b = append(b, "# TYPE tracecore_ingest_records_total counter\n"...)
	b = appendMetric(b, "tracecore_ingest_records_total", float64(m.ingestRecordsTotal.Load()))

	b = append(b, "# HELP tracecore_ingest_bytes_total Total bytes ingested\n"...)
	b = append(b, "# TYPE tracecore_ingest_bytes_total counter\n"...)
	b = appendMetric(b, "tracecore_ingest_bytes_total", float64(m.ingestBytesTotal.Load()))

	b = append(b, "# HELP tracecore_ingest_errors_total Total ingest errors\n"...)
	b = append(b, "# TYPE tracecore_ingest_errors_total counter\n"...)
	b = appendMetric(b, "tracecore_ingest_errors_total", float64(m.ingestErrorsTotal.Load()))

	b = append(b, "# HELP tracecore_query_requests_total Total query requests\n"...)
	b = append(b, "# TYPE tracecore_query_requests_total counter\n"...)
	b = appendMetric(b, "tracecore_query_requests_total", float64(m.queryRequestsTotal.Load()))

	b = append(b, "# HELP tracecore_query_rows_total Total rows returned by queries\n"...)
	b = append(b, "# TYPE tracecore_query_rows_total counter\n"...)
	b = appendMetric(b, "tracecore_query_rows_total", float64(m.queryRowsTotal.Load()))

	b = append(b, "# HELP tracecore_query_errors_total Failed queries\n"...)
	b = append(b, "# TYPE tracecore_query_errors_total counter\n"...)
	b = appendMetric(b, "tracecore_query_errors_total", float64(m.queryErrorsTotal.Load()))

	b = append(b, "# HELP tracecore_storage_writes_total Total storage writes\n"...)
	b = append(b, "# TYPE tracecore_storage_writes_total counter\n"...)
	b = appendMetric(b, "tracecore_storage_writes_total", float64(m.storageWritesTotal.Load()))

	b = append(b, "# HELP tracecore_storage_errors_total Total storage errors\n"...)
	b = append(b, "# TYPE tracecore_storage_errors_total counter\n"...)
	b = appendMetric(b, "tracecore_storage_errors_total", float64(m.storageErrorsTotal.Load()))

	b = append(b, "# HELP tracecore_sessions_active Currently stored sessions\n"...)
	b = append(b, "# TYPE tracecore_sessions_active gauge\n"...)
	b = appendMetric(b, "tracecore_sessions_active", float64(m.sessionsActive.Load()))

	b = append(b, "# HELP tracecore_sessions_expired_total Sessions removed by the TTL sweeper\n"...)
	b = append(b, "# TYPE tracecore_sessions_expired_total counter\n"...)
	b = appendMetric(b, "tracecore_sessions_expired_total", float64(m.sessionsExpiredTotal.Load()))

	return string(b)
}

func appendMetric(b []byte, name string, value float64) []byte {
	b = append(b, name...)
	b = append(b, ' ')
	b = appendFloat(b, value)
	b = append(b, '\n')
	return b
}

func appendMetricWithLabel(b []byte, name, labelName, labelValue string, value float64) []byte {
	b = append(b, name...)
	b = append(b, '{')
	b = append(b, labelName...)
	b = append(b, '=', '"')
	b = append(b, labelValue...)
	b = append(b, '"', '}', ' ')
	b = appendFloat(b, value)
	b = append(b, '\n')
	return b
}

func appendFloat(b []byte, v float64) []byte {
	if v == float64(int64(v)) {
		return appendInt(b, int64(v))
	}
	intPart := int64(v)
	fracPart := int64((v - float64(intPart)) * 1000000)
	if fracPart < 0 {
		fracPart = -fracPart
	}
	b = appendInt(b, intPart)
	b = append(b, '.')
	if fracPart < 100000 {
		b = append(b, '0')
	}
	if fracPart < 10000 {
		b = append(b, '0')
	}
	if fracPart < 1000 {
		b = append(b, '0')
	}
	if fracPart < 100 {
		b = append(b, '0')
	}
	if fracPart < 10 {
		b = append(b, '0')
	}
	b = appendInt(b, fracPart)
	return b
}

func appendInt(b []byte, v int64) []byte {
	if v < 0 {
		b = append(b, '-')
		v = -v
	}
	if v == 0 {
		return append(b, '0')
	}
	var digits [20]byte
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return append(b, digits[i:]...)
}
