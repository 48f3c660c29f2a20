package skylet

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sky-shift/skyshift-sub001/pkg/adapter"
	"github.com/sky-shift/skyshift-sub001/pkg/client"
	skyerrors "github.com/sky-shift/skyshift-sub001/pkg/errors"
	"github.com/sky-shift/skyshift-sub001/pkg/informer"
	"github.com/sky-shift/skyshift-sub001/pkg/log"
	"github.com/sky-shift/skyshift-sub001/pkg/metrics"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// AdapterFactory builds the Cluster Manager Adapter for a newly-ready
// cluster. Real backends (Kubernetes, Slurm, Ray) are out of scope
// (spec.md §1); a deployment wires a factory selecting by cluster.spec.manager.
type AdapterFactory func(cluster *types.Cluster) (adapter.Adapter, error)

// SkyletController is the process-wide singleton of spec.md §4.6's "Skylet
// Controller": it watches Clusters and forks a Supervisor for each one that
// becomes READY, joining it again on DELETE. It owns the Jobs, FilterPolicy,
// and Services informers shared by every forked Supervisor.
type SkyletController struct {
	client   storeClient
	clusters *informer.Informer
	jobs     *informer.Informer
	policies *informer.Informer
	services *informer.Informer
	factory  AdapterFactory
	registry *adapter.ClusterRegistry
	logger   zerolog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	waits   map[string]*sync.WaitGroup
}

// NewSkyletController builds a SkyletController. registry is populated as
// clusters come up and depopulated as they go down, so pkg/adapter.LogProxy
// can always resolve "which adapter serves this cluster".
func NewSkyletController(c *client.Client, clusters, jobs, policies, services *informer.Informer, factory AdapterFactory, registry *adapter.ClusterRegistry) *SkyletController {
	return &SkyletController{
		client:   c,
		clusters: clusters,
		jobs:     jobs,
		policies: policies,
		services: services,
		factory:  factory,
		registry: registry,
		logger:   log.WithComponent("skylet-controller"),
		cancels:  make(map[string]context.CancelFunc),
		waits:    make(map[string]*sync.WaitGroup),
	}
}

// Run starts the shared informers and the Cluster watch loop. It blocks
// until ctx is cancelled, then terminates and joins every forked Supervisor
// before returning.
func (sc *SkyletController) Run(ctx context.Context) error {
	sc.clusters.AddEventHandler(informer.EventHandler{
		OnAdd:    func(raw json.RawMessage) { sc.reconcile(ctx, raw) },
		OnUpdate: func(_, raw json.RawMessage) { sc.reconcile(ctx, raw) },
		OnDelete: func(raw json.RawMessage) { sc.terminate(raw) },
	})

	errCh := make(chan error, 4)
	go func() { errCh <- sc.clusters.Run(ctx) }()
	go func() { errCh <- sc.jobs.Run(ctx) }()
	go func() { errCh <- sc.policies.Run(ctx) }()
	go func() { errCh <- sc.services.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			sc.terminateAll()
			return nil
		case err := <-errCh:
			if err != nil {
				sc.logger.Error().Err(err).Msg("informer stopped")
			}
		}
	}
}

func (sc *SkyletController) reconcile(ctx context.Context, raw json.RawMessage) {
	var cluster types.Cluster
	if err := json.Unmarshal(raw, &cluster); err != nil {
		return
	}
	if cluster.Status.Status != types.ClusterReady {
		return
	}

	sc.mu.Lock()
	_, already := sc.cancels[cluster.Metadata.Name]
	sc.mu.Unlock()
	if already {
		return
	}
	sc.fork(ctx, &cluster)
}

func (sc *SkyletController) fork(parent context.Context, cluster *types.Cluster) {
	ad, err := sc.factory(cluster)
	if err != nil {
		sc.logger.Error().Err(err).Str("cluster", cluster.Metadata.Name).Msg("adapter factory failed")
		return
	}

	supCtx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup

	sc.mu.Lock()
	sc.cancels[cluster.Metadata.Name] = cancel
	sc.waits[cluster.Metadata.Name] = &wg
	sc.mu.Unlock()

	sc.registry.Set(cluster.Metadata.Name, ad)
	sup := NewSupervisor(sc.client, ad, *cluster, sc.jobs, sc.policies, sc.services)

	wg.Add(1)
	go func() {
		defer wg.Done()
		sup.Run(supCtx)
	}()
	sc.logger.Info().Str("cluster", cluster.Metadata.Name).Msg("forked skylet supervisor")
}

func (sc *SkyletController) terminate(raw json.RawMessage) {
	var cluster types.Cluster
	if err := json.Unmarshal(raw, &cluster); err != nil {
		return
	}
	sc.cascadeDelete(cluster.Metadata.Name)
	sc.join(cluster.Metadata.Name)
}

// cascadeDelete tears down every Job scheduled on clusterName before its
// Supervisor is joined (spec.md §8 S6): the backend workload is deleted
// through the cluster's still-registered adapter, the cluster is stripped
// out of the Job's scheduled_clusters/replica_status/job_ids, and the Job is
// reset to INIT so the Scheduler's existing runPass reschedules it.
func (sc *SkyletController) cascadeDelete(clusterName string) {
	ad, hasAdapter := sc.registry.Get(clusterName)
	for _, raw := range sc.jobs.List() {
		var job types.Job
		if err := json.Unmarshal(raw, &job); err != nil {
			continue
		}
		if !containsString(job.Status.ScheduledClusters, clusterName) {
			continue
		}
		if hasAdapter {
			if err := ad.DeleteJob(context.Background(), &job); err != nil {
				metrics.AdapterCallsTotal.WithLabelValues("delete_job", "error").Inc()
				sc.logger.Error().Err(err).Str("job", job.Metadata.Key()).Str("cluster", clusterName).
					Msg("delete_job failed during cluster delete cascade")
			} else {
				metrics.AdapterCallsTotal.WithLabelValues("delete_job", "ok").Inc()
			}
		}
		sc.stripCluster(&job, clusterName)
	}
}

// stripCluster removes clusterName from job's scheduled_clusters,
// replica_status, and job_ids, resetting job.Status.Status to INIT once no
// scheduled cluster remains, retrying the write on CAS conflict the same way
// FlowController.updateWithRetry does.
func (sc *SkyletController) stripCluster(job *types.Job, clusterName string) {
	cur := job
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		cur.Status.ScheduledClusters = removeString(cur.Status.ScheduledClusters, clusterName)
		delete(cur.Status.ReplicaStatus, clusterName)
		delete(cur.Status.JobIDs, clusterName)
		if len(cur.Status.ScheduledClusters) == 0 {
			cur.Status.Status = types.JobInit
		}
		err := sc.client.Update(context.Background(), cur)
		if err == nil {
			return
		}
		if !skyerrors.Is(err, skyerrors.KindConflict) {
			sc.logger.Error().Err(err).Str("job", cur.Metadata.Key()).Msg("job write failed during cluster delete cascade")
			return
		}
		var fresh types.Job
		if gerr := sc.client.Get(context.Background(), types.KindJob, cur.Metadata.Namespace, cur.Metadata.Name, &fresh); gerr != nil {
			sc.logger.Error().Err(gerr).Msg("refetch after conflict failed during cluster delete cascade")
			return
		}
		cur = &fresh
	}
	sc.logger.Warn().Str("job", cur.Metadata.Key()).Msg("exhausted job write retries during cluster delete cascade")
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(ss []string, s string) []string {
	out := ss[:0]
	for _, v := range ss {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func (sc *SkyletController) join(name string) {
	sc.mu.Lock()
	cancel, ok := sc.cancels[name]
	wg := sc.waits[name]
	delete(sc.cancels, name)
	delete(sc.waits, name)
	sc.mu.Unlock()
	if !ok {
		return
	}
	cancel()
	wg.Wait()
	sc.registry.Remove(name)
	sc.logger.Info().Str("cluster", name).Msg("joined skylet supervisor")
}

func (sc *SkyletController) terminateAll() {
	sc.mu.Lock()
	names := make([]string, 0, len(sc.cancels))
	for name := range sc.cancels {
		names = append(names, name)
	}
	sc.mu.Unlock()
	for _, name := range names {
		sc.join(name)
	}
}
