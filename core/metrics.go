package core

// Prometheus metrics for the gossip and retry services.

import "github.com/prometheus/client_golang/prometheus"

var (
	// PendingDeliveriesGauge reports the current retry-service backlog.
	PendingDeliveriesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "brightchain",
		Subsystem: "retry",
		Name:      "pending_deliveries",
		Help:      "Number of messages currently tracked by the retry service.",
	})

	// AnnouncementsForwardedTotal counts announcements re-enqueued for
	// forwarding after TTL decrement.
	AnnouncementsForwardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "brightchain",
		Subsystem: "gossip",
		Name:      "announcements_forwarded_total",
		Help:      "Total announcements forwarded with a decremented TTL.",
	})

	// AnnouncementsDroppedTotal counts announcements dropped for failing
	// validation or deduplication.
	AnnouncementsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "brightchain",
		Subsystem: "gossip",
		Name:      "announcements_dropped_total",
		Help:      "Total inbound announcements dropped as invalid or duplicate.",
	})

	// RetryExhaustionTotal counts deliveries that reached maxRetries
	// without full delivery.
	RetryExhaustionTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "brightchain",
		Subsystem: "retry",
		Name:      "exhaustion_total",
		Help:      "Total deliveries failed after exhausting their retry budget.",
	})
)

// RegisterMetrics adds every BrightChain collector to reg. Safe to call once
// per process; callers embedding multiple stores/services in tests should
// use a fresh prometheus.NewRegistry() rather than the global default.
func RegisterMetrics(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		PendingDeliveriesGauge,
		AnnouncementsForwardedTotal,
		AnnouncementsDroppedTotal,
		RetryExhaustionTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
