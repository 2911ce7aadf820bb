package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcomes recorded for webhook_deliveries_total.
const (
	OutcomeAccepted   = "accepted"
	OutcomeRejected   = "rejected"
	OutcomeMalformed  = "malformed"
	OutcomeNoTenant   = "unknown_tenant"
	OutcomeUnverified = "unverified"
)

// Metrics holds the Prometheus instruments for the ingestion core.
type Metrics struct {
	WebhookDeliveries *prometheus.CounterVec
	BackfillRuns      *prometheus.CounterVec
	EntityUpserts     *prometheus.CounterVec
}

// New registers the ingestion instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WebhookDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopify_webhook_deliveries_total",
			Help: "Webhook deliveries by topic and outcome.",
		}, []string{"topic", "outcome"}),
		BackfillRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopify_backfill_runs_total",
			Help: "Backfill reconciliation runs by collection and outcome.",
		}, []string{"collection", "outcome"}),
		EntityUpserts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopify_entity_upserts_total",
			Help: "Entity upserts by collection and ingestion source.",
		}, []string{"collection", "source"}),
	}
}

// NewNop returns instruments backed by a throwaway registry, for tests and
// callers that do not expose an exposition endpoint.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
