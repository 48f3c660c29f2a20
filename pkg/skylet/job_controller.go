package skylet

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	skyerrors "github.com/sky-shift/skyshift-sub001/pkg/errors"
	"github.com/sky-shift/skyshift-sub001/pkg/adapter"
	"github.com/sky-shift/skyshift-sub001/pkg/informer"
	"github.com/sky-shift/skyshift-sub001/pkg/log"
	"github.com/sky-shift/skyshift-sub001/pkg/metrics"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// DefaultJobHeartbeat is spec.md §4.6's default heartbeat_interval for
// JobController.
const DefaultJobHeartbeat = 3 * time.Second

// JobController mirrors the adapter's per-task status into each Job's
// replica_status for this cluster (spec.md §4.6).
type JobController struct {
	client      storeClient
	adapter     adapter.Adapter
	clusterName string
	jobs        *informer.Informer
	heartbeat   time.Duration
	logger      zerolog.Logger
}

// NewJobController builds a JobController for clusterName. A zero heartbeat
// uses DefaultJobHeartbeat.
func NewJobController(c storeClient, ad adapter.Adapter, clusterName string, jobs *informer.Informer, heartbeat time.Duration) *JobController {
	if heartbeat <= 0 {
		heartbeat = DefaultJobHeartbeat
	}
	return &JobController{
		client:      c,
		adapter:     ad,
		clusterName: clusterName,
		jobs:        jobs,
		heartbeat:   heartbeat,
		logger:      log.WithCluster(clusterName).With().Str("controller", "job").Logger(),
	}
}

// Run ticks every heartbeat interval until ctx is cancelled.
func (jc *JobController) Run(ctx context.Context) error {
	ticker := time.NewTicker(jc.heartbeat)
	defer ticker.Stop()

	jc.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			jc.tick(ctx)
		}
	}
}

func (jc *JobController) tick(ctx context.Context) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDurationVec(metrics.ReconciliationDuration, "job")
		metrics.ReconciliationCyclesTotal.WithLabelValues("job").Inc()
	}()

	report, err := jc.adapter.GetJobsStatus(ctx)
	if err != nil {
		metrics.AdapterCallsTotal.WithLabelValues("get_jobs_status", "error").Inc()
		jc.logger.Warn().Err(err).Msg("get_jobs_status failed")
		return
	}
	metrics.AdapterCallsTotal.WithLabelValues("get_jobs_status", "ok").Inc()

	for _, raw := range jc.jobs.List() {
		var job types.Job
		if err := json.Unmarshal(raw, &job); err != nil {
			continue
		}
		if _, placed := job.Status.ReplicaStatus[jc.clusterName]; !placed {
			continue
		}
		tasks, ok := report[job.Metadata.Name]
		if !ok {
			continue
		}
		counts := countByPhase(tasks)
		if replicaStatusEqual(counts, job.Status.ReplicaStatus[jc.clusterName]) {
			continue // suppress no-op write (spec.md §4.6)
		}
		jc.writeStatus(ctx, &job, counts)
	}
}

// countByPhase tallies a cluster's reported per-task statuses into the Job
// status alphabet.
func countByPhase(tasks map[string]types.TaskStatus) types.ReplicaStatus {
	counts := types.ReplicaStatus{}
	for _, st := range tasks {
		counts[taskToJobPhase(st)]++
	}
	return counts
}

func taskToJobPhase(st types.TaskStatus) types.JobStatusPhase {
	switch st {
	case types.TaskStatusRunning:
		return types.JobRunning
	case types.TaskStatusCompleted:
		return types.JobCompleted
	case types.TaskStatusFailed:
		return types.JobFailed
	default:
		return types.JobPending
	}
}

func replicaStatusEqual(a, b types.ReplicaStatus) bool {
	if len(a) != len(b) {
		return false
	}
	for phase, count := range a {
		if b[phase] != count {
			return false
		}
	}
	return true
}

func (jc *JobController) writeStatus(ctx context.Context, job *types.Job, counts types.ReplicaStatus) {
	cur := job
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		if cur.Status.ReplicaStatus == nil {
			cur.Status.ReplicaStatus = make(map[string]types.ReplicaStatus)
		}
		cur.Status.ReplicaStatus[jc.clusterName] = counts
		cur.Status.Status = types.DeriveJobStatus(cur.Status.ReplicaStatus)

		err := jc.client.Update(ctx, cur)
		if err == nil {
			return
		}
		if !skyerrors.Is(err, skyerrors.KindConflict) {
			jc.logger.Error().Err(err).Str("job", cur.Metadata.Key()).Msg("replica status write failed")
			return
		}
		var fresh types.Job
		if gerr := jc.client.Get(ctx, types.KindJob, cur.Metadata.Namespace, cur.Metadata.Name, &fresh); gerr != nil {
			jc.logger.Error().Err(gerr).Msg("refetch after conflict failed")
			return
		}
		cur = &fresh
	}
	jc.logger.Warn().Str("job", cur.Metadata.Key()).Msg("exhausted job write retries")
}
