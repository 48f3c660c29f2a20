package skylet

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sky-shift/skyshift-sub001/pkg/adapter"
	"github.com/sky-shift/skyshift-sub001/pkg/log"
	"github.com/sky-shift/skyshift-sub001/pkg/metrics"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// DefaultClusterHeartbeat is spec.md §4.6's default heartbeat_interval for
// ClusterController.
const DefaultClusterHeartbeat = 5 * time.Second

// DefaultClusterRetryLimit is the default number of consecutive
// get_cluster_status failures before the cluster is marked ERROR.
const DefaultClusterRetryLimit = 3

// ClusterController polls the adapter for capacity/status and mirrors it
// onto the Cluster object (spec.md §4.6).
type ClusterController struct {
	client      storeClient
	adapter     adapter.Adapter
	clusterName string
	heartbeat   time.Duration
	retryLimit  int
	logger      zerolog.Logger

	failures int
}

// NewClusterController builds a ClusterController for clusterName. A zero
// heartbeat or retryLimit uses the package defaults.
func NewClusterController(c storeClient, ad adapter.Adapter, clusterName string, heartbeat time.Duration, retryLimit int) *ClusterController {
	if heartbeat <= 0 {
		heartbeat = DefaultClusterHeartbeat
	}
	if retryLimit <= 0 {
		retryLimit = DefaultClusterRetryLimit
	}
	return &ClusterController{
		client:      c,
		adapter:     ad,
		clusterName: clusterName,
		heartbeat:   heartbeat,
		retryLimit:  retryLimit,
		logger:      log.WithCluster(clusterName).With().Str("controller", "cluster").Logger(),
	}
}

// Run ticks every heartbeat interval until ctx is cancelled.
func (cc *ClusterController) Run(ctx context.Context) error {
	ticker := time.NewTicker(cc.heartbeat)
	defer ticker.Stop()

	cc.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cc.tick(ctx)
		}
	}
}

func (cc *ClusterController) tick(ctx context.Context) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDurationVec(metrics.ReconciliationDuration, "cluster")
		metrics.ReconciliationCyclesTotal.WithLabelValues("cluster").Inc()
	}()

	report, err := cc.adapter.GetClusterStatus(ctx)
	if err != nil {
		metrics.AdapterCallsTotal.WithLabelValues("get_cluster_status", "error").Inc()
		cc.failures++
		cc.logger.Warn().Err(err).Int("consecutive_failures", cc.failures).Msg("get_cluster_status failed")
		if cc.failures >= cc.retryLimit {
			cc.markError(ctx, err)
		}
		return
	}
	metrics.AdapterCallsTotal.WithLabelValues("get_cluster_status", "ok").Inc()
	cc.failures = 0

	var cluster types.Cluster
	if err := cc.client.Get(ctx, types.KindCluster, "", cc.clusterName, &cluster); err != nil {
		cc.logger.Error().Err(err).Msg("refetch cluster failed")
		return
	}
	if cluster.Status.Status != report.Status {
		cluster.Status.Conditions = append(cluster.Status.Conditions, types.Condition{
			Type:               "Status",
			Status:             string(report.Status),
			Reason:             "Heartbeat",
			Message:            "get_cluster_status reported a new status",
			LastTransitionTime: time.Now(),
		})
	}
	cluster.Status.Status = report.Status
	cluster.Status.Capacity = report.Capacity
	cluster.Status.AllocatableCapacity = report.AllocatableCapacity
	cluster.Status.ErrorMessage = ""
	if err := cc.client.Update(ctx, &cluster); err != nil {
		cc.logger.Error().Err(err).Msg("cluster status write failed")
	}
}

// markError flips the cluster to ERROR after the retry budget is exhausted
// (spec.md §4.6, §7's Adapter error handling).
func (cc *ClusterController) markError(ctx context.Context, cause error) {
	var cluster types.Cluster
	if err := cc.client.Get(ctx, types.KindCluster, "", cc.clusterName, &cluster); err != nil {
		cc.logger.Error().Err(err).Msg("refetch cluster failed during error handling")
		return
	}
	if cluster.Status.Status == types.ClusterError {
		return
	}
	cluster.Status.Conditions = append(cluster.Status.Conditions, types.Condition{
		Type:               "Status",
		Status:             string(types.ClusterError),
		Reason:             "AdapterRetryBudgetExhausted",
		Message:            cause.Error(),
		LastTransitionTime: time.Now(),
	})
	cluster.Status.Status = types.ClusterError
	cluster.Status.ErrorMessage = cause.Error()
	metrics.AdapterRetryBudgetExhaustedTotal.Inc()
	if err := cc.client.Update(ctx, &cluster); err != nil {
		cc.logger.Error().Err(err).Msg("failed to mark cluster ERROR")
	}
}
