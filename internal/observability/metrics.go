package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "littletimes_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PaymentConfirmations counts gateway confirmations by method and result.
	PaymentConfirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "littletimes_payment_confirmations_total",
		Help: "Payment confirmations by method and result",
	}, []string{"method", "result"})

	// PendingOrdersCancelled counts orders cancelled by the expiry sweep.
	PendingOrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "littletimes_pending_orders_cancelled_total",
		Help: "Pending orders cancelled after their payment window closed",
	})

	// LikeToggles counts like toggles by resulting state.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "littletimes_like_toggles_total",
		Help: "Like toggles by resulting state",
	}, []string{"state"})

	// WebhookDeliveries counts notify webhook calls by response status.
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "littletimes_webhook_deliveries_total",
		Help: "Notify webhook calls by HTTP status",
	}, []string{"status"})

	// EmailsSent counts outgoing e-mails by transport and result.
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "littletimes_emails_sent_total",
		Help: "Outgoing e-mails by transport and result",
	}, []string{"transport", "result"})
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// ResultLabel maps an error to ResultOK or ResultError.
func ResultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
