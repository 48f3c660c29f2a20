package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Object counts

	ObjectsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skyshift_objects_total",
			Help: "Total number of persisted objects by kind",
		},
		[]string{"kind"},
	)

	ClustersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skyshift_clusters_total",
			Help: "Total number of registered clusters by status",
		},
		[]string{"status"},
	)

	JobsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skyshift_jobs_total",
			Help: "Total number of jobs by status",
		},
		[]string{"status"},
	)

	// Raft / store metrics

	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skyshift_raft_is_leader",
			Help: "Whether this node is the Raft leader (1 = leader, 0 = follower)",
		},
	)

	RaftApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skyshift_raft_apply_duration_seconds",
			Help:    "Time taken to apply a store command through Raft, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyshift_store_conflicts_total",
			Help: "Total number of CAS conflicts observed during update()",
		},
		[]string{"kind"},
	)

	// API metrics

	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyshift_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skyshift_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	WatchStreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skyshift_watch_streams_active",
			Help: "Number of currently open watch streams",
		},
	)

	WatchReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skyshift_watcher_reconnects_total",
			Help: "Total number of watcher reconnect attempts after a transport error",
		},
	)

	// Scheduler metrics

	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skyshift_scheduling_latency_seconds",
			Help:    "Time taken to run one scheduling pipeline pass, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	JobsScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skyshift_jobs_scheduled_total",
			Help: "Total number of jobs successfully assigned a cluster",
		},
	)

	JobsUnschedulable = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skyshift_jobs_unschedulable_total",
			Help: "Total number of scheduling passes where no cluster passed filtering",
		},
	)

	// Skylet / reconciler metrics

	ReconciliationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skyshift_reconciliation_duration_seconds",
			Help:    "Time taken for a controller reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"controller"},
	)

	ReconciliationCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyshift_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles completed, by controller",
		},
		[]string{"controller"},
	)

	AdapterCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyshift_adapter_calls_total",
			Help: "Total number of cluster-manager adapter calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	AdapterRetryBudgetExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skyshift_adapter_retry_budget_exhausted_total",
			Help: "Total number of times a controller's adapter retry budget was exhausted",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ObjectsTotal,
		ClustersTotal,
		JobsTotal,
		RaftLeader,
		RaftApplyDuration,
		StoreConflictsTotal,
		APIRequestsTotal,
		APIRequestDuration,
		WatchStreamsActive,
		WatchReconnectsTotal,
		SchedulingLatency,
		JobsScheduled,
		JobsUnschedulable,
		ReconciliationDuration,
		ReconciliationCyclesTotal,
		AdapterCallsTotal,
		AdapterRetryBudgetExhaustedTotal,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
