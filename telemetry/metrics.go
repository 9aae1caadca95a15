package telemetry

// Histogram bucket definitions for the publish pipeline's latency
// profiles.
var (
	// PublishBuckets for whole-publish latency (collect + write + verify)
	PublishBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

	// StoreOpBuckets for single object store operations
	StoreOpBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
)

// Publish pipeline metrics
var (
	// PublishTotal counts publish attempts by result (success, failed, rejected)
	PublishTotal CounterVec = noopCounterVec{}

	// PublishDurationSeconds measures whole-publish latency
	PublishDurationSeconds Histogram = NoopStat{}

	// UploadDurationSeconds measures the object store write
	UploadDurationSeconds Histogram = NoopStat{}

	// VerifyDurationSeconds measures the read-after-write verification
	VerifyDurationSeconds Histogram = NoopStat{}

	// SnapshotBytes tracks the size of the last published snapshot
	SnapshotBytes Gauge = NoopStat{}

	// SectionReadFailures counts degraded section reads during collection
	SectionReadFailures Counter = NoopStat{}
)

// Gateway metrics
var (
	// SnapshotReadsTotal counts anonymous snapshot reads by status (ok, not_found, error)
	SnapshotReadsTotal CounterVec = noopCounterVec{}

	// QuotaRejectionsTotal counts publishes rejected by the monthly limit
	QuotaRejectionsTotal Counter = NoopStat{}
)

// bindMetrics replaces the noop defaults with registered Prometheus
// instruments. Called once from InitializeTelemetry.
func bindMetrics() {
	PublishTotal = NewCounterVec("publish_total", "Publish attempts by result", []string{"result"})
	PublishDurationSeconds = NewHistogramWithBuckets("publish_duration_seconds", "Whole-publish latency", PublishBuckets)
	UploadDurationSeconds = NewHistogramWithBuckets("upload_duration_seconds", "Object store write latency", StoreOpBuckets)
	VerifyDurationSeconds = NewHistogramWithBuckets("verify_duration_seconds", "Read-after-write verification latency", StoreOpBuckets)
	SnapshotBytes = NewGauge("snapshot_bytes", "Size of the last published snapshot")
	SectionReadFailures = NewCounter("section_read_failures_total", "Section reads degraded to null")
	SnapshotReadsTotal = NewCounterVec("snapshot_reads_total", "Anonymous snapshot reads by status", []string{"status"})
	QuotaRejectionsTotal = NewCounter("quota_rejections_total", "Publishes rejected by the monthly limit")
}
