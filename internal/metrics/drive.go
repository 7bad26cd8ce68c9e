// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	driveRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drivecopy_drive_requests_total",
		Help: "Drive API calls by operation and outcome",
	}, []string{"operation", "outcome"}) // outcome=success|error|not_found|circuit_open

	driveRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drivecopy_drive_request_duration_seconds",
		Help:    "Drive API call latency by operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	driveRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drivecopy_drive_retries_total",
		Help: "Retried Drive API calls by operation",
	}, []string{"operation"})

	rateLimitWaitSeconds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drivecopy_ratelimit_wait_seconds_total",
		Help: "Time spent waiting for the client-side rate limiter",
	}, []string{"operation"})
)

// RecordDriveRequest records the outcome and latency of one Drive API call.
func RecordDriveRequest(operation, outcome string, d time.Duration) {
	driveRequestsTotal.WithLabelValues(operation, outcome).Inc()
	driveRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncDriveRetry counts a retried Drive API call.
func IncDriveRetry(operation string) {
	driveRetriesTotal.WithLabelValues(operation).Inc()
}

// AddRateLimitWait accumulates time blocked on the rate limiter.
func AddRateLimitWait(operation string, d time.Duration) {
	if d <= 0 {
		return
	}
	rateLimitWaitSeconds.WithLabelValues(operation).Add(d.Seconds())
}
