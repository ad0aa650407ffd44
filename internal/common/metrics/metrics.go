// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WizardStepsAdvanced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_steps_advanced_total",
			Help: "Total number of successful step advances by step",
		},
		[]string{"step"},
	)

	WizardValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_validation_failures_total",
			Help: "Total number of step advances rejected by field validation",
		},
		[]string{"step"},
	)

	ApplicationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applications_submitted_total",
			Help: "Total number of applications submitted by payment method",
		},
		[]string{"payment_method"},
	)

	PaymentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_failures_total",
			Help: "Total number of failed payment attempts by error code",
		},
		[]string{"payment_method", "error_code"},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "submission_duration_seconds",
			Help: "Duration of create-application plus payment processing",
		},
		[]string{"payment_method"},
	)

	DocumentDownloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_downloads_total",
			Help: "Total number of permit document downloads by type",
		},
		[]string{"document_type"},
	)

	WizardSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wizard_sessions_active",
			Help: "Number of wizard sessions currently held in memory",
		},
	)
)
