// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_api_requests_total",
			Help: "Total number of requests sent to the loan service",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "loan_api_request_duration_seconds",
			Help: "Duration of loan service requests in seconds",
		},
		[]string{"method"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_submissions_total",
			Help: "Application submissions by outcome",
		},
		[]string{"outcome"},
	)

	DocumentRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_document_refreshes_total",
			Help: "Signed document URL refreshes by trigger",
		},
		[]string{"reason"},
	)

	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_storage_errors_total",
			Help: "Local persistence failures by operation",
		},
		[]string{"op"},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_token_refreshes_total",
			Help: "Access token refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	InflightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loan_inflight_requests",
			Help: "Number of loan service requests currently in flight",
		},
	)
)

// Outcome labels shared by the counters above.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeInvalid = "invalid"
	OutcomeSkipped = "skipped"
)
