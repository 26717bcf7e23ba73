package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts API calls by method, route and status code
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "empyreal_api_requests_total",
			Help: "The total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	// APIRequestSeconds tracks API call latency
	APIRequestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "empyreal_api_request_seconds",
			Help:    "Time taken by API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// TransportErrors counts requests that never got a response
	TransportErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "empyreal_api_transport_errors_total",
			Help: "The total number of requests that failed before a response was received",
		},
		[]string{"route"},
	)

	// PairQueueLength tracks the number of pairs waiting to be synced
	PairQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "empyreal_pair_queue_length",
		Help: "The number of pairs currently in the queue",
	})

	// WorkersActive tracks the number of active sync workers
	WorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "empyreal_workers_active",
		Help: "The number of workers currently active",
	})

	// PairSyncSeconds tracks time taken to sync one pair
	PairSyncSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "empyreal_pair_sync_seconds",
		Help:    "Time taken to sync a pair's swap history in seconds",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	// IntervalsStored counts swap intervals written to the database
	IntervalsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "empyreal_intervals_stored_total",
		Help: "The total number of swap intervals stored",
	})

	// DatabaseOperations tracks database operations
	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "empyreal_database_operations_total",
			Help: "The total number of database operations",
		},
		[]string{"operation", "status"},
	)

	// WorkerTaskDuration tracks how long workers spend on tasks
	WorkerTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "empyreal_worker_task_duration_seconds",
			Help:    "Time taken by workers to complete tasks",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type", "worker_id"},
	)
)

// RecordAPIRequest records a completed API call
func RecordAPIRequest(method, route string, status int, seconds float64) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestSeconds.WithLabelValues(method, route).Observe(seconds)
}

// RecordTransportError records a call that failed without a response
func RecordTransportError(route string) {
	TransportErrors.WithLabelValues(route).Inc()
}

// RecordPairSync records the time taken to sync a pair
func RecordPairSync(seconds float64) {
	PairSyncSeconds.Observe(seconds)
}

// RecordIntervalsStored adds n stored intervals
func RecordIntervalsStored(n int) {
	IntervalsStored.Add(float64(n))
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string) {
	DatabaseOperations.WithLabelValues(operation, status).Inc()
}

// RecordWorkerTaskDuration records the time taken by a worker to complete a task
func RecordWorkerTaskDuration(taskType, workerID string, duration float64) {
	WorkerTaskDuration.WithLabelValues(taskType, workerID).Observe(duration)
}
