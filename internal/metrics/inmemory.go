package metrics

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	QuotaDecisions      map[string]uint64
	QueryCount          map[string]uint64
	QueryDurationTotal  time.Duration
	RowsIngested        int64
	WorkflowSubmissions map[string]uint64 // "workflow/status"
	RateLimitRejects    map[string]uint64
	HTTPRequests        uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu                  sync.Mutex
	quotaDecisions      map[string]uint64
	queryCount          map[string]uint64
	workflowSubmissions map[string]uint64
	rateLimitRejects    map[string]uint64

	queryDurationTotalNs int64
	rowsIngested         int64
	httpRequests         uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		quotaDecisions:      make(map[string]uint64),
		queryCount:          make(map[string]uint64),
		workflowSubmissions: make(map[string]uint64),
		rateLimitRejects:    make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		QuotaDecisions:      maps.Clone(m.quotaDecisions),
		QueryCount:          maps.Clone(m.queryCount),
		QueryDurationTotal:  time.Duration(atomic.LoadInt64(&m.queryDurationTotalNs)),
		RowsIngested:        atomic.LoadInt64(&m.rowsIngested),
		WorkflowSubmissions: maps.Clone(m.workflowSubmissions),
		RateLimitRejects:    maps.Clone(m.rateLimitRejects),
		HTTPRequests:        atomic.LoadUint64(&m.httpRequests),
	}
}

// IncQuotaDecision counts a quota gate outcome.
func (m *InMemoryRecorder) IncQuotaDecision(outcome string) {
	m.mu.Lock()
	m.quotaDecisions[outcome]++
	m.mu.Unlock()
}

// ObserveQueryDuration records an expression query.
func (m *InMemoryRecorder) ObserveQueryDuration(op string, duration time.Duration) {
	m.mu.Lock()
	m.queryCount[op]++
	m.mu.Unlock()
	atomic.AddInt64(&m.queryDurationTotalNs, duration.Nanoseconds())
}

// AddRowsIngested adds to the ingested row counter.
func (m *InMemoryRecorder) AddRowsIngested(n int64) {
	atomic.AddInt64(&m.rowsIngested, n)
}

// IncWorkflowSubmission counts a workflow submission.
func (m *InMemoryRecorder) IncWorkflowSubmission(workflow, status string) {
	m.mu.Lock()
	m.workflowSubmissions[workflow+"/"+status]++
	m.mu.Unlock()
}

// IncRateLimitReject counts a rejected request.
func (m *InMemoryRecorder) IncRateLimitReject(scope string) {
	m.mu.Lock()
	m.rateLimitRejects[scope]++
	m.mu.Unlock()
}

// ObserveHTTPRequest counts a served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}
