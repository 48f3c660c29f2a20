package scheduler

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"

	skyerrors "github.com/sky-shift/skyshift-sub001/pkg/errors"
	"github.com/sky-shift/skyshift-sub001/pkg/informer"
	"github.com/sky-shift/skyshift-sub001/pkg/log"
	"github.com/sky-shift/skyshift-sub001/pkg/metrics"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// jobClient is the subset of pkg/client.Client the scheduler writes through.
type jobClient interface {
	Get(ctx context.Context, kind types.Kind, namespace, name string, out types.Object) error
	Update(ctx context.Context, obj types.Object) error
}

// maxAssignRetries bounds the refetch-and-retry loop on CAS conflict
// (spec.md §4.5 step 4: "on conflict, re-read and restart the pipeline").
const maxAssignRetries = 3

// Scheduler computes scheduled_clusters for unscheduled Jobs by running the
// filter/score/select/assign pipeline (spec.md §4.5). It watches Clusters,
// Jobs, and FilterPolicies through Informers and re-runs the pipeline
// whenever any of them change.
type Scheduler struct {
	client jobClient

	clusters *informer.Informer
	jobs     *informer.Informer
	policies *informer.Informer

	filterPlugins []FilterPlugin
	scorePlugins  []ScorePlugin

	logger zerolog.Logger
	wake   chan struct{}
}

// New builds a Scheduler over the given Cluster, Job, and FilterPolicy
// informers, writing assignments through c.
func New(c jobClient, clusters, jobs, policies *informer.Informer) *Scheduler {
	return &Scheduler{
		client:        c,
		clusters:      clusters,
		jobs:          jobs,
		policies:      policies,
		filterPlugins: DefaultFilterPlugins(),
		scorePlugins:  DefaultScorePlugins(),
		logger:        log.WithComponent("scheduler"),
		wake:          make(chan struct{}, 1),
	}
}

// WithPlugins overrides the default filter/score pipelines, for tests.
func (s *Scheduler) WithPlugins(filters []FilterPlugin, scores []ScorePlugin) *Scheduler {
	s.filterPlugins = filters
	s.scorePlugins = scores
	return s
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run starts the Cluster/Job/FilterPolicy informers and the scheduling loop.
// It blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.clusters.AddEventHandler(informer.EventHandler{
		OnAdd:    func(json.RawMessage) { s.signal() },
		OnUpdate: func(_, _ json.RawMessage) { s.signal() },
		OnDelete: func(json.RawMessage) { s.signal() },
	})
	s.jobs.AddEventHandler(informer.EventHandler{
		OnAdd:    func(json.RawMessage) { s.signal() },
		OnUpdate: func(_, _ json.RawMessage) { s.signal() },
	})
	s.policies.AddEventHandler(informer.EventHandler{
		OnAdd:    func(json.RawMessage) { s.signal() },
		OnUpdate: func(_, _ json.RawMessage) { s.signal() },
		OnDelete: func(json.RawMessage) { s.signal() },
	})

	errCh := make(chan error, 3)
	go func() { errCh <- s.clusters.Run(ctx) }()
	go func() { errCh <- s.jobs.Run(ctx) }()
	go func() { errCh <- s.policies.Run(ctx) }()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err != nil {
				s.logger.Error().Err(err).Msg("informer stopped")
			}
		case <-s.wake:
			s.runPass(ctx)
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

// runPass runs one scheduling pass over every unscheduled Job.
func (s *Scheduler) runPass(ctx context.Context) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SchedulingLatency)

	for _, raw := range s.jobs.List() {
		var job types.Job
		if err := json.Unmarshal(raw, &job); err != nil {
			continue
		}
		if job.Status.Status != types.JobInit {
			continue
		}
		s.scheduleOne(ctx, &job)
	}
}

// scheduleOne runs the filter/score/select/assign pipeline for one job,
// retrying the assignment write on CAS conflict.
func (s *Scheduler) scheduleOne(ctx context.Context, job *types.Job) {
	logger := s.logger.With().Str("job", job.Metadata.Key()).Logger()

	pctx := &PipelineContext{FilterPolicies: s.filterPoliciesFor(job.Metadata.Namespace)}

	for attempt := 0; attempt < maxAssignRetries; attempt++ {
		cluster, score := s.selectCluster(job, pctx)
		if cluster == nil {
			metrics.JobsUnschedulable.Inc()
			logger.Debug().Msg("no cluster passed filtering")
			return
		}

		job.Status.Status = types.JobScheduled
		job.Status.ScheduledClusters = []string{cluster.Metadata.Name}
		if job.Status.ReplicaStatus == nil {
			job.Status.ReplicaStatus = make(map[string]types.ReplicaStatus)
		}
		job.Status.ReplicaStatus[cluster.Metadata.Name] = types.ReplicaStatus{types.JobInit: job.Spec.Replicas}

		err := s.client.Update(ctx, job)
		if err == nil {
			metrics.JobsScheduled.Inc()
			logger.Info().Str("cluster", cluster.Metadata.Name).Float64("score", score).Msg("scheduled job")
			return
		}

		kind, _ := skyerrors.KindOf(err)
		if kind != skyerrors.KindConflict {
			logger.Error().Err(err).Msg("assignment write failed")
			return
		}

		logger.Debug().Int("attempt", attempt).Msg("assignment conflict, refetching")
		var fresh types.Job
		if getErr := s.client.Get(ctx, types.KindJob, job.Metadata.Namespace, job.Metadata.Name, &fresh); getErr != nil {
			logger.Error().Err(getErr).Msg("refetch after conflict failed")
			return
		}
		if fresh.Status.Status != types.JobInit {
			return // another scheduler pass already placed it
		}
		*job = fresh
	}
	logger.Warn().Msg("exhausted assignment retries")
}

func (s *Scheduler) filterPoliciesFor(namespace string) []*types.FilterPolicy {
	var out []*types.FilterPolicy
	for _, raw := range s.policies.List() {
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

// selectCluster runs the filter phase over every known cluster, scores the
// survivors, and returns the winner by weighted score with the deterministic
// tie-break of spec.md §4.5 step 3.
func (s *Scheduler) selectCluster(job *types.Job, pctx *PipelineContext) (*types.Cluster, float64) {
	var candidates []*types.Cluster
	for _, raw := range s.clusters.List() {
		var c types.Cluster
		if err := json.Unmarshal(raw, &c); err != nil {
			continue
		}
		if s.passesFilters(&c, job, pctx) {
			candidates = append(candidates, &c)
		}
	}
	if len(candidates) == 0 {
		return nil, 0
	}

	scores := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		var total float64
		for _, plugin := range s.scorePlugins {
			total += plugin.Score(c, job, pctx)
		}
		scores[c.Metadata.Name] = total
	}

	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if scores[ci.Metadata.Name] != scores[cj.Metadata.Name] {
			return scores[ci.Metadata.Name] > scores[cj.Metadata.Name]
		}
		if ci.Metadata.Name != cj.Metadata.Name {
			return ci.Metadata.Name < cj.Metadata.Name
		}
		return ci.Metadata.ResourceVersion < cj.Metadata.ResourceVersion
	})

	winner := candidates[0]
	return winner, scores[winner.Metadata.Name]
}

func (s *Scheduler) passesFilters(cluster *types.Cluster, job *types.Job, pctx *PipelineContext) bool {
	for _, plugin := range s.filterPlugins {
		if u := plugin.Filter(cluster, job, pctx); u != nil {
			return false
		}
	}
	return true
}
