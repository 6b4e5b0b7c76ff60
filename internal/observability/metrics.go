package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotsPublished counts full-collection snapshots pushed to subscribers.
	SnapshotsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftline_snapshots_published_total",
		Help: "Total number of collection snapshots published to subscribers",
	}, []string{"collection"})

	// SnapshotsCoalesced counts stale snapshots dropped because a newer one replaced them.
	SnapshotsCoalesced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftline_snapshots_coalesced_total",
		Help: "Total number of stale snapshots replaced before delivery",
	}, []string{"collection"})

	// SubscribersActive is the gauge of active subscription channels per collection.
	SubscribersActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "driftline_subscribers_active",
		Help: "Number of active snapshot subscribers per collection",
	}, []string{"collection"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driftline_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// CacheErrors counts persisted-cache failures by operation.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftline_cache_errors_total",
		Help: "Total number of persisted cache errors by operation",
	}, []string{"operation"})
)
