package metrics

import (
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var uuidRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method"},
	)

	FileUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_uploads_total",
			Help: "Total number of file uploads",
		},
		[]string{"status"},
	)

	FileUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "file_upload_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	FileDeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_deletions_total",
			Help: "Total number of file deletions",
		},
		[]string{"status"},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_operation_duration_seconds",
			Help:    "Duration of storage operations in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	JobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Total number of conversion jobs enqueued",
		},
		[]string{"tool"},
	)

	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Total number of conversion jobs processed",
		},
		[]string{"tool", "status"},
	)

	JobsProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobs_processing_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"tool", "stage"},
	)

	QueueDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_deliveries_total",
			Help: "Queue deliveries handled by the worker pool",
		},
		[]string{"job_type", "outcome"},
	)

	QueueDeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_delivery_duration_seconds",
			Help:    "Time a worker spent on a single queue delivery",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"job_type"},
	)

	WorkerPoolActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_pool_active_jobs",
			Help: "Number of jobs currently being processed by workers",
		},
	)

	WorkerPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_pool_size",
			Help: "Size of the worker pool",
		},
	)

	QuotaExceededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_exceeded_total",
			Help: "Total anonymous submissions rejected by the daily quota",
		},
	)

	RetentionSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_sweeps_total",
			Help: "Total number of retention sweeps completed",
		},
	)

	RetentionFilesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_files_deleted_total",
			Help: "Total number of expired files deleted by the janitor",
		},
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application information",
		},
		[]string{"version", "environment", "service"},
	)

	AppUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_up",
			Help: "Application is up and running",
		},
	)
)

func NormalizePath(path string) string {
	return uuidRegex.ReplaceAllString(path, ":id")
}

func RecordFileUpload(status string, sizeBytes int64) {
	FileUploadsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		FileUploadBytes.Observe(float64(sizeBytes))
	}
}

func RecordFileDeletion(status string) {
	FileDeletionsTotal.WithLabelValues(status).Inc()
}

func RecordJobEnqueued(tool string) {
	JobsEnqueuedTotal.WithLabelValues(tool).Inc()
}

func RecordJobProcessed(tool, status string, durationSeconds float64) {
	JobsProcessedTotal.WithLabelValues(tool, status).Inc()
	JobsProcessingDuration.WithLabelValues(tool, "total").Observe(durationSeconds)
}

func RecordJobStage(tool, stage string, durationSeconds float64) {
	JobsProcessingDuration.WithLabelValues(tool, stage).Observe(durationSeconds)
}

func RecordQuotaExceeded() {
	QuotaExceededTotal.Inc()
}

func RecordRetentionSweep(deleted int) {
	RetentionSweepsTotal.Inc()
	RetentionFilesDeleted.Add(float64(deleted))
}

func SetAppInfo(version, environment, service string) {
	AppInfo.WithLabelValues(version, environment, service).Set(1)
	AppUp.Set(1)
}

func SetWorkerPoolSize(size int) {
	WorkerPoolSize.Set(float64(size))
}
