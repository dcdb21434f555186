package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// EventsPublishedCounter counts deletion events published per topic
	EventsPublishedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of events published to the event channel",
		},
		[]string{"service", "topic"},
	)

	// EventPublishErrorCounter counts failed publish attempts per topic
	EventPublishErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_errors_total",
			Help: "Total number of failed event publish attempts",
		},
		[]string{"service", "topic"},
	)

	// EventsConsumedCounter counts events consumed per topic and outcome
	EventsConsumedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Total number of events consumed from the event channel",
		},
		[]string{"service", "topic", "outcome"},
	)

	// CascadeDeletesCounter counts entities removed by cascade consumers
	CascadeDeletesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascade_deletes_total",
			Help: "Total number of entities deleted by cascade consumers",
		},
		[]string{"service", "entity"},
	)

	// OrphansCleanedCounter counts media references removed by reconciliation
	OrphansCleanedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orphan_references_cleaned_total",
			Help: "Total number of orphaned media references removed by reconciliation",
		},
		[]string{"service"},
	)
)

// RegisterEventMetrics registers the event channel metrics
func RegisterEventMetrics() {
	prometheus.MustRegister(EventsPublishedCounter)
	prometheus.MustRegister(EventPublishErrorCounter)
	prometheus.MustRegister(EventsConsumedCounter)
	prometheus.MustRegister(CascadeDeletesCounter)
	prometheus.MustRegister(OrphansCleanedCounter)
}
