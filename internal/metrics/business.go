// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	copyItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drivecopy_copy_items_total",
		Help: "Copied items by kind and outcome",
	}, []string{"kind", "outcome"}) // kind=file|folder outcome=copied|skipped|failed

	copyAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drivecopy_copy_attempts_total",
		Help: "Total file copy attempts including retries",
	})

	assessedItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "drivecopy_assessed_items",
		Help: "Recursive item counts from the last assessment",
	}, []string{"report", "kind"}) // kind=files|folders

	validationResult = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drivecopy_validation_success",
		Help: "Whether the last source/destination comparison matched (1) or not (0)",
	})

	runStageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drivecopy_run_failures_total",
		Help: "Run failures by stage",
	}, []string{"stage"}) // stage=resolve|assess|copy|validate

	auditFindings = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "drivecopy_audit_findings",
		Help: "Findings from the last configuration audit by check and severity",
	}, []string{"check", "severity"})
)

// RecordCopyItem counts a file or folder outcome.
func RecordCopyItem(kind, outcome string) {
	copyItemsTotal.WithLabelValues(kind, outcome).Inc()
}

// IncCopyAttempt counts a single files.copy attempt.
func IncCopyAttempt() {
	copyAttemptsTotal.Inc()
}

// RecordAssessment publishes the recursive totals of a report.
func RecordAssessment(report string, files, folders int) {
	assessedItems.WithLabelValues(report, "files").Set(float64(files))
	assessedItems.WithLabelValues(report, "folders").Set(float64(folders))
}

// RecordValidation publishes the outcome of the report comparison.
func RecordValidation(ok bool) {
	if ok {
		validationResult.Set(1)
		return
	}
	validationResult.Set(0)
}

// IncRunFailure counts a failed run stage.
func IncRunFailure(stage string) {
	runStageFailures.WithLabelValues(stage).Inc()
}

// AuditKey identifies a finding bucket.
type AuditKey struct {
	Check    string
	Severity string
}

// SetAuditFindings replaces the finding counts of the last audit.
func SetAuditFindings(counts map[AuditKey]int) {
	auditFindings.Reset()
	for k, n := range counts {
		auditFindings.WithLabelValues(k.Check, k.Severity).Set(float64(n))
	}
}
