// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Quota decision outcomes.
const (
	QuotaGranted     = "granted"
	QuotaUnknown     = "unknown"
	QuotaExhausted   = "exhausted"
	QuotaUnavailable = "store_unavailable"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Quota gate
	IncQuotaDecision(outcome string)

	// Expression queries; op is the query name, e.g. "value_for_gene".
	ObserveQueryDuration(op string, duration time.Duration)

	// Ingestion
	AddRowsIngested(n int64)

	// Workflow engine; status is "submitted" or "failed".
	IncWorkflowSubmission(workflow, status string)

	// Rate limiting
	IncRateLimitReject(scope string)

	// HTTP
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
