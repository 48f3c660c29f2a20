package skylet

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	skyerrors "github.com/sky-shift/skyshift-sub001/pkg/errors"
	"github.com/sky-shift/skyshift-sub001/pkg/adapter"
	"github.com/sky-shift/skyshift-sub001/pkg/informer"
	"github.com/sky-shift/skyshift-sub001/pkg/log"
	"github.com/sky-shift/skyshift-sub001/pkg/metrics"
	"github.com/sky-shift/skyshift-sub001/pkg/scheduler"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// maxWriteRetries bounds the refetch-and-retry loop on CAS conflict, shared
// by FlowController and JobController (spec.md §4.6: "all writes are CAS; on
// conflict the controller refetches and retries").
const maxWriteRetries = 3

// FlowController submits, evicts, and cleans up Jobs on this cluster as
// their status or the FilterPolicy set changes (spec.md §4.6).
type FlowController struct {
	client      storeClient
	adapter     adapter.Adapter
	clusterName string
	jobs        *informer.Informer
	policies    *informer.Informer
	logger      zerolog.Logger
}

// NewFlowController builds a FlowController for clusterName over the shared
// jobs and policies informers.
func NewFlowController(c storeClient, ad adapter.Adapter, clusterName string, jobs, policies *informer.Informer) *FlowController {
	return &FlowController{
		client:      c,
		adapter:     ad,
		clusterName: clusterName,
		jobs:        jobs,
		policies:    policies,
		logger:      log.WithCluster(clusterName).With().Str("controller", "flow").Logger(),
	}
}

// Run registers event handlers on the shared Jobs and FilterPolicy informers
// and blocks until ctx is cancelled; it has no heartbeat of its own, it is
// purely event-driven.
func (fc *FlowController) Run(ctx context.Context) error {
	fc.jobs.AddEventHandler(informer.EventHandler{
		OnAdd:    func(raw json.RawMessage) { fc.reconcileRaw(ctx, raw) },
		OnUpdate: func(_, raw json.RawMessage) { fc.reconcileRaw(ctx, raw) },
		OnDelete: func(raw json.RawMessage) { fc.reconcileDeleted(ctx, raw) },
	})
	fc.policies.AddEventHandler(informer.EventHandler{
		OnAdd:    func(json.RawMessage) { fc.recheckAll(ctx) },
		OnUpdate: func(_, json.RawMessage) { fc.recheckAll(ctx) },
		OnDelete: func(json.RawMessage) { fc.recheckAll(ctx) },
	})
	<-ctx.Done()
	return nil
}

// recheckAll re-runs reconcileJob over every cached Job, used when a
// FilterPolicy changes and may newly disallow this cluster for jobs already
// placed here.
func (fc *FlowController) recheckAll(ctx context.Context) {
	for _, raw := range fc.jobs.List() {
		fc.reconcileRaw(ctx, raw)
	}
}

func (fc *FlowController) reconcileRaw(ctx context.Context, raw json.RawMessage) {
	var job types.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return
	}
	fc.reconcileJob(ctx, &job)
}

func (fc *FlowController) reconcileJob(ctx context.Context, job *types.Job) {
	if _, placed := job.Status.ReplicaStatus[fc.clusterName]; !placed {
		return
	}

	if fc.disallowedByFilterPolicy(job) {
		rs := job.Status.ReplicaStatus[fc.clusterName]
		_, submitted := job.Status.JobIDs[fc.clusterName]
		if !submitted && len(rs) == 1 && rs[types.JobEvicted] > 0 {
			return // already evicted from this cluster
		}
		fc.evict(ctx, job)
		return
	}

	if _, submitted := job.Status.JobIDs[fc.clusterName]; !submitted {
		fc.submit(ctx, job)
	}
}

// disallowedByFilterPolicy reuses the Scheduler's FilterPolicy intersection
// logic rather than duplicating it: a cluster the Scheduler would no longer
// select is a cluster the FlowController should evict from.
func (fc *FlowController) disallowedByFilterPolicy(job *types.Job) bool {
	pctx := &scheduler.PipelineContext{FilterPolicies: fc.filterPoliciesFor(job.Metadata.Namespace)}
	cluster := &types.Cluster{Metadata: types.Meta{Name: fc.clusterName}}
	return (scheduler.FilterPolicyFilter{}).Filter(cluster, job, pctx) != nil
}

func (fc *FlowController) filterPoliciesFor(namespace string) []*types.FilterPolicy {
	var out []*types.FilterPolicy
	for _, raw := range fc.policies.List() {
		var p types.FilterPolicy
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		if p.Metadata.Namespace == namespace {
			out = append(out, &p)
		}
	}
	return out
}

func (fc *FlowController) submit(ctx context.Context, job *types.Job) {
	id, err := fc.adapter.SubmitJob(ctx, job)
	if err != nil {
		metrics.AdapterCallsTotal.WithLabelValues("submit_job", "error").Inc()
		fc.logger.Error().Err(err).Str("job", job.Metadata.Key()).Msg("submit_job failed")
		fc.updateWithRetry(ctx, job, func(j *types.Job) {
			if j.Status.ReplicaStatus == nil {
				j.Status.ReplicaStatus = make(map[string]types.ReplicaStatus)
			}
			j.Status.ReplicaStatus[fc.clusterName] = types.ReplicaStatus{types.JobFailed: j.Spec.Replicas}
		})
		return
	}
	metrics.AdapterCallsTotal.WithLabelValues("submit_job", "ok").Inc()
	fc.updateWithRetry(ctx, job, func(j *types.Job) {
		if j.Status.JobIDs == nil {
			j.Status.JobIDs = make(map[string]string)
		}
		j.Status.JobIDs[fc.clusterName] = id
	})
}

func (fc *FlowController) evict(ctx context.Context, job *types.Job) {
	if err := fc.adapter.DeleteJob(ctx, job); err != nil {
		metrics.AdapterCallsTotal.WithLabelValues("delete_job", "error").Inc()
		fc.logger.Error().Err(err).Str("job", job.Metadata.Key()).Msg("delete_job failed during eviction")
		return
	}
	metrics.AdapterCallsTotal.WithLabelValues("delete_job", "ok").Inc()
	fc.updateWithRetry(ctx, job, func(j *types.Job) {
		if j.Status.ReplicaStatus == nil {
			j.Status.ReplicaStatus = make(map[string]types.ReplicaStatus)
		}
		j.Status.ReplicaStatus[fc.clusterName] = types.ReplicaStatus{types.JobEvicted: j.Spec.Replicas}
		delete(j.Status.JobIDs, fc.clusterName)
	})
}

// reconcileDeleted handles a Job removed from the store entirely: the
// backend workload must still be torn down (spec.md §4.6's DELETE case). The
// Job object is already gone, so no further CAS write follows.
func (fc *FlowController) reconcileDeleted(ctx context.Context, raw json.RawMessage) {
	var job types.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return
	}
	if _, placed := job.Status.ReplicaStatus[fc.clusterName]; !placed {
		return
	}
	if err := fc.adapter.DeleteJob(ctx, &job); err != nil {
		metrics.AdapterCallsTotal.WithLabelValues("delete_job", "error").Inc()
		fc.logger.Error().Err(err).Str("job", job.Metadata.Key()).Msg("delete_job failed on job delete")
		return
	}
	metrics.AdapterCallsTotal.WithLabelValues("delete_job", "ok").Inc()
}

// updateWithRetry applies mutate to job and writes it, refetching and
// reapplying mutate on CAS conflict up to maxWriteRetries times.
func (fc *FlowController) updateWithRetry(ctx context.Context, job *types.Job, mutate func(*types.Job)) {
	cur := job
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		mutate(cur)
		err := fc.client.Update(ctx, cur)
		if err == nil {
			return
		}
		if !skyerrors.Is(err, skyerrors.KindConflict) {
			fc.logger.Error().Err(err).Str("job", cur.Metadata.Key()).Msg("job write failed")
			return
		}
		var fresh types.Job
		if gerr := fc.client.Get(ctx, types.KindJob, cur.Metadata.Namespace, cur.Metadata.Name, &fresh); gerr != nil {
			fc.logger.Error().Err(gerr).Msg("refetch after conflict failed")
			return
		}
		cur = &fresh
	}
	fc.logger.Warn().Str("job", cur.Metadata.Key()).Msg("exhausted job write retries")
}
