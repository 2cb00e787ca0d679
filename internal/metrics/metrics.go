package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts facade operations by name and outcome.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mailgate",
		Name:      "operations_total",
		Help:      "Email operations processed, by operation and status.",
	}, []string{"operation", "status"})

	// OperationSeconds tracks end-to-end operation latency including
	// rate-limiter waits.
	OperationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mailgate",
		Name:      "operation_seconds",
		Help:      "End-to-end operation duration in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"operation"})

	// RateWaitSeconds tracks time spent waiting on a per-class budget.
	RateWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mailgate",
		Name:      "rate_wait_seconds",
		Help:      "Time spent blocked on the per-class rate budget.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 3, 10),
	}, []string{"class"})
)

// ObserveOperation records one finished operation.
func ObserveOperation(operation, status string, elapsed time.Duration) {
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationSeconds.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveRateWait records one rate-limiter wait for a class.
func ObserveRateWait(class string, waited time.Duration) {
	RateWaitSeconds.WithLabelValues(class).Observe(waited.Seconds())
}
