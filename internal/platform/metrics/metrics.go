package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application-level Prometheus metrics. Feature packages
// with hot paths register their own package-level collectors.
type Metrics struct {
	ReceiptsApproved   prometheus.Counter
	ReceiptsRejected   prometheus.Counter
	ValidationDuration prometheus.Histogram
}

// New creates and registers all application metrics.
func New() *Metrics {
	return &Metrics{
		ReceiptsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fiscal_receipts_approved_total",
			Help: "Receipts approved by the authority",
		}),
		ReceiptsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fiscal_receipts_rejected_total",
			Help: "Receipts rejected by the authority or local checks",
		}),
		ValidationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fiscal_validation_duration_seconds",
			Help:    "End-to-end duration of validate calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
