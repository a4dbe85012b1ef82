package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// appsCreated counts applications persisted by Create/CreateIdempotent.
	// Idempotent replays are not counted.
	appsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_applications_created_total",
			Help: "Total number of job applications created.",
		},
	)

	// statusTransitions counts status changes by edge. Both labels come from
	// the closed Status set, so cardinality is at most 25.
	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_status_transitions_total",
			Help: "Total number of application status transitions.",
		},
		[]string{"from", "to"},
	)
)

func init() {
	prometheus.MustRegister(appsCreated, statusTransitions)
}
