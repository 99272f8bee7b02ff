package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Settlement Metrics
	submissionsTotal      *prometheus.CounterVec
	submissionDuration    *prometheus.HistogramVec
	insufficientFundsHits *prometheus.CounterVec
	feesChargedTotal      *prometheus.CounterVec

	// Mempool Metrics
	mempoolSize       *prometheus.GaugeVec
	mempoolSeedsTotal *prometheus.CounterVec

	// Confirmation Metrics
	confirmationsTotal       *prometheus.CounterVec
	confirmSweepDuration     *prometheus.HistogramVec
	confirmSweepBatchSize    *prometheus.HistogramVec
	confirmWorkflowExecTotal *prometheus.CounterVec

	// Database Metrics
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Settlement Metrics
		submissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfer_submissions_total",
				Help: "Total number of transfer submissions by asset, priority and outcome",
			},
			[]string{"asset", "priority", "outcome"},
		),
		submissionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transfer_submission_duration_seconds",
				Help:    "Duration of transfer submission handling in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"asset", "priority"},
		),
		insufficientFundsHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insufficient_funds_rejections_total",
				Help: "Total number of transfers rejected for insufficient funds",
			},
			[]string{"asset"},
		),
		feesChargedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fees_charged_total",
				Help: "Total fee amount charged, in asset units",
			},
			[]string{"asset", "priority"},
		),

		// Mempool Metrics
		mempoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mempool_size",
				Help: "Current number of transactions waiting in the mempool",
			},
			[]string{},
		),
		mempoolSeedsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mempool_synthetic_seeds_total",
				Help: "Total number of synthetic transactions seeded into the mempool",
			},
			[]string{},
		),

		// Confirmation Metrics
		confirmationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confirmations_total",
				Help: "Total number of transactions confirmed by the sweep",
			},
			[]string{"status"},
		),
		confirmSweepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "confirm_sweep_duration_seconds",
				Help:    "Duration of confirmation sweep execution in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"status"},
		),
		confirmSweepBatchSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "confirm_sweep_batch_size",
				Help:    "Number of transactions confirmed per sweep",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
			[]string{},
		),
		confirmWorkflowExecTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confirm_workflow_executions_total",
				Help: "Total number of confirmation workflow executions",
			},
			[]string{"status"},
		),

		// Database Metrics
		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Settlement metric helpers

// RecordSubmission records a transfer submission outcome with duration.
func (m *Metrics) RecordSubmission(asset, priority, outcome string, duration float64) {
	m.submissionsTotal.WithLabelValues(asset, priority, outcome).Inc()
	m.submissionDuration.WithLabelValues(asset, priority).Observe(duration)
}

// RecordInsufficientFunds records a transfer rejected for lack of balance.
func (m *Metrics) RecordInsufficientFunds(asset string) {
	m.insufficientFundsHits.WithLabelValues(asset).Inc()
}

// RecordFeeCharged records the fee deducted for a settled transfer.
func (m *Metrics) RecordFeeCharged(asset, priority string, fee float64) {
	m.feesChargedTotal.WithLabelValues(asset, priority).Add(fee)
}

// Mempool metric helpers

// RecordMempoolSize records the current mempool depth.
func (m *Metrics) RecordMempoolSize(size int) {
	m.mempoolSize.WithLabelValues().Set(float64(size))
}

// RecordSyntheticSeeds records synthetic transactions seeded into the mempool.
func (m *Metrics) RecordSyntheticSeeds(count int) {
	m.mempoolSeedsTotal.WithLabelValues().Add(float64(count))
}

// Confirmation metric helpers

// RecordConfirmations records transactions advanced by the sweep.
func (m *Metrics) RecordConfirmations(status string, count int) {
	m.confirmationsTotal.WithLabelValues(status).Add(float64(count))
}

// RecordConfirmSweep records a sweep execution with its batch size.
func (m *Metrics) RecordConfirmSweep(status string, batchSize int, duration float64) {
	m.confirmSweepDuration.WithLabelValues(status).Observe(duration)
	m.confirmSweepBatchSize.WithLabelValues().Observe(float64(batchSize))
	m.confirmWorkflowExecTotal.WithLabelValues(status).Inc()
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
