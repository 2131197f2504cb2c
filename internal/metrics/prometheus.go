package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "exprgate"

// PrometheusRecorder exports metrics through a Prometheus registry.
type PrometheusRecorder struct {
	quotaDecisions      *prometheus.CounterVec
	queryDuration       *prometheus.HistogramVec
	rowsIngested        prometheus.Counter
	workflowSubmissions *prometheus.CounterVec
	rateLimitRejects    *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

// NewPrometheus registers the application metrics with reg.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		quotaDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_decisions_total",
				Help:      "Quota gate decisions by outcome",
			},
			[]string{"outcome"},
		),
		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Expression query latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		rowsIngested: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_ingested_total",
				Help:      "Expression rows loaded into tables",
			},
		),
		workflowSubmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_submissions_total",
				Help:      "Workflow engine submissions by workflow and status",
			},
			[]string{"workflow", "status"},
		),
		rateLimitRejects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_rejects_total",
				Help:      "Requests rejected by rate limiting",
			},
			[]string{"scope"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// IncQuotaDecision counts a quota gate outcome.
func (p *PrometheusRecorder) IncQuotaDecision(outcome string) {
	p.quotaDecisions.WithLabelValues(outcome).Inc()
}

// ObserveQueryDuration records an expression query.
func (p *PrometheusRecorder) ObserveQueryDuration(op string, duration time.Duration) {
	p.queryDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// AddRowsIngested adds to the ingested row counter.
func (p *PrometheusRecorder) AddRowsIngested(n int64) {
	p.rowsIngested.Add(float64(n))
}

// IncWorkflowSubmission counts a workflow submission.
func (p *PrometheusRecorder) IncWorkflowSubmission(workflow, status string) {
	p.workflowSubmissions.WithLabelValues(workflow, status).Inc()
}

// IncRateLimitReject counts a rejected request.
func (p *PrometheusRecorder) IncRateLimitReject(scope string) {
	p.rateLimitRejects.WithLabelValues(scope).Inc()
}

// ObserveHTTPRequest records a served request.
func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
