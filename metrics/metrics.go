// Package metrics holds the Coordinator's Prometheus instrumentation: request
// throughput, lock contention, and pool occupancy, scraped by whatever
// monitoring stack operates the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ursadb_tasks_submitted_total",
		Help: "Number of client requests accepted by the Coordinator.",
	})

	TasksCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ursadb_tasks_committed_total",
		Help: "Number of tasks committed to the Database, partitioned by outcome.",
	}, []string{"outcome"})

	LockRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ursadb_lock_requests_total",
		Help: "Lock requests arbitrated by the Coordinator, partitioned by decision.",
	}, []string{"decision"})

	WorkersIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ursadb_workers_idle",
		Help: "Number of workers currently sitting in the idle queue.",
	})
)
