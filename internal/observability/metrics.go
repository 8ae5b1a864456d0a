// Package observability exposes Prometheus metrics for the orchestrator.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ridebot", Name: "events_total", Help: "Inbound events processed, by kind"},
		[]string{"kind"},
	)
	DedupHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "ridebot", Name: "dedup_hits_total", Help: "Redelivered events rejected by the dedup gate"},
	)
	TripsConfirmedTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "ridebot", Name: "trips_confirmed_total", Help: "Trips created from confirmed sessions"},
	)
	AssignmentWinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "ridebot", Name: "assignment_wins_total", Help: "Driver acceptances that won the assignment race"},
	)
	AssignmentConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "ridebot", Name: "assignment_conflicts_total", Help: "Driver acceptances discarded on version conflict"},
	)
	OutboundSendFailures = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "ridebot", Name: "outbound_send_failures_total", Help: "Best-effort chat sends that failed"},
	)
)
