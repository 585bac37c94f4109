package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the access pipeline.
type Metrics struct {
	AuthFailures  *prometheus.CounterVec
	QuotaDenials  *prometheus.CounterVec
	StoreFailures prometheus.Counter
	TokensIssued  prometheus.Counter
}

// New initializes and registers the collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		AuthFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yuno",
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Total token verification failures by kind.",
		}, []string{"kind"}), // kind: missing, malformed, expired, audience_mismatch, issuer_mismatch
		QuotaDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yuno",
			Subsystem: "quota",
			Name:      "denials_total",
			Help:      "Total requests denied by quota, by window.",
		}, []string{"window"}),
		StoreFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "yuno",
			Subsystem: "quota",
			Name:      "store_failures_total",
			Help:      "Total counter store failures resolved by failing open.",
		}),
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "yuno",
			Subsystem: "auth",
			Name:      "tokens_issued_total",
			Help:      "Total session tokens issued.",
		}),
	}
}
