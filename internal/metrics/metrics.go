// Package metrics exposes the service's Prometheus instrumentation.
// Naming follows the usual "subsystem_noun_unit" convention; every
// counter is labeled just enough to answer an on-call question without
// becoming a per-championship cardinality problem (championship id is
// deliberately never a label).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PacketsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "telemetry_hub",
		Name:      "packets_ingested_total",
		Help:      "Packets accepted and dispatched to the session manager, by class.",
	}, []string{"class"})

	PacketsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "telemetry_hub",
		Name:      "packets_dropped_total",
		Help:      "Packets dropped before reaching the session manager, by reason.",
	}, []string{"reason"})

	ActiveChampionships = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "telemetry_hub",
		Name:      "active_championships",
		Help:      "Number of ingestion engines currently running.",
	})

	Subscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "telemetry_hub",
		Name:      "stream_subscribers",
		Help:      "Current subscriber count, by stream type (global, team).",
	}, []string{"stream"})

	BroadcastOverflows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "telemetry_hub",
		Name:      "broadcast_overflow_total",
		Help:      "Times a lagging subscriber skipped ahead past deltas evicted from the buffer, by stream type.",
	}, []string{"stream"})

	FirewallOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "telemetry_hub",
		Name:      "firewall_operations_total",
		Help:      "Firewall controller operations, by verb and outcome.",
	}, []string{"op", "outcome"})
)
