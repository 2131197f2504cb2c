package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncQuotaDecision is a no-op.
func (n *NoopRecorder) IncQuotaDecision(outcome string) {}

// ObserveQueryDuration is a no-op.
func (n *NoopRecorder) ObserveQueryDuration(op string, duration time.Duration) {}

// AddRowsIngested is a no-op.
func (n *NoopRecorder) AddRowsIngested(count int64) {}

// IncWorkflowSubmission is a no-op.
func (n *NoopRecorder) IncWorkflowSubmission(workflow, status string) {}

// IncRateLimitReject is a no-op.
func (n *NoopRecorder) IncRateLimitReject(scope string) {}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}
