package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/24ep/mdm-sub019/pkg/config"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Authentication metrics
	AuthErrorsCounter prometheus.CounterVec

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Schema registry metrics
	SchemaOperationsCounter prometheus.CounterVec

	// Record store metrics
	RecordOperationsCounter prometheus.CounterVec

	// Table view metrics
	ViewOperationsCounter prometheus.CounterVec

	// Combination column metrics
	ComboResolutionDuration  prometheus.Histogram
	DanglingReferenceCounter prometheus.Counter
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AuthErrorsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"reason"},
	)

	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	SchemaOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_schema_operations_total",
			Help: "Total number of schema registry operations",
		},
		[]string{"operation"},
	)

	RecordOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_record_operations_total",
			Help: "Total number of data record operations",
		},
		[]string{"operation"},
	)

	ViewOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_view_operations_total",
			Help: "Total number of table view operations",
		},
		[]string{"operation"},
	)

	ComboResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_combo_resolution_duration_seconds",
			Help:    "Duration of combination column resolution per read",
			Buckets: prometheus.DefBuckets,
		},
	)

	DanglingReferenceCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_dangling_references_total",
			Help: "Total number of dangling combo member references seen while rendering",
		},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordAuthError increments the counter for authentication errors
func RecordAuthError(reason string) {
	AuthErrorsCounter.WithLabelValues(reason).Inc()
}

// RecordSchemaOperation increments the counter for schema registry operations
func RecordSchemaOperation(operation string) {
	SchemaOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordRecordOperation increments the counter for data record operations
func RecordRecordOperation(operation string) {
	RecordOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordViewOperation increments the counter for table view operations
func RecordViewOperation(operation string) {
	ViewOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordDanglingReferences counts dangling combo members seen during a render
func RecordDanglingReferences(count int) {
	if count <= 0 {
		return
	}
	DanglingReferenceCounter.Add(float64(count))
}
