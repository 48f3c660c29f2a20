package skylet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sky-shift/skyshift-sub001/pkg/adapter"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

func TestFlowControllerSubmitsNewlyPlacedJob(t *testing.T) {
	c := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := &types.Job{
		Kind:     types.KindJob,
		Metadata: types.Meta{Name: "j1", Namespace: "default"},
		Spec:     types.JobSpec{Image: "busybox", Replicas: 2},
		Status: types.JobStatus{
			Status:        types.JobScheduled,
			ReplicaStatus: map[string]types.ReplicaStatus{"k1": {types.JobInit: 2}},
		},
	}
	require.NoError(t, c.Create(ctx, job))

	mem := adapter.NewMemoryAdapter(nil)
	jobs, policies, _ := newTestInformers(c)
	go func() { _ = jobs.Run(ctx) }()
	go func() { _ = policies.Run(ctx) }()

	fc := NewFlowController(c, mem, "k1", jobs, policies)
	go func() { _ = fc.Run(ctx) }()

	require.Eventually(t, func() bool {
		var fetched types.Job
		if err := c.Get(ctx, types.KindJob, "default", "j1", &fetched); err != nil {
			return false
		}
		_, ok := fetched.Status.JobIDs["k1"]
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	status, err := mem.GetJobsStatus(ctx)
	require.NoError(t, err)
	require.Len(t, status["j1"], 2)
}

func TestFlowControllerEvictsWhenFilterPolicyDisallows(t *testing.T) {
	c := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := &types.Job{
		Kind:     types.KindJob,
		Metadata: types.Meta{Name: "j2", Namespace: "default"},
		Spec:     types.JobSpec{Image: "busybox", Replicas: 1, Labels: map[string]string{"app": "web"}},
		Status: types.JobStatus{
			Status:        types.JobScheduled,
			ReplicaStatus: map[string]types.ReplicaStatus{"k1": {types.JobRunning: 1}},
			JobIDs:        map[string]string{"k1": "mgr-1"},
		},
	}
	require.NoError(t, c.Create(ctx, job))

	policy := &types.FilterPolicy{
		Kind:     types.KindFilterPolicy,
		Metadata: types.Meta{Name: "web-only-k2", Namespace: "default"},
		Spec: types.FilterPolicySpec{
			LabelsSelector: map[string]string{"app": "web"},
			Include:        []string{"k2"},
		},
	}
	require.NoError(t, c.Create(ctx, policy))

	mem := adapter.NewMemoryAdapter(nil)
	jobs, policies, _ := newTestInformers(c)
	go func() { _ = jobs.Run(ctx) }()
	go func() { _ = policies.Run(ctx) }()

	fc := NewFlowController(c, mem, "k1", jobs, policies)
	go func() { _ = fc.Run(ctx) }()

	require.Eventually(t, func() bool {
		var fetched types.Job
		if err := c.Get(ctx, types.KindJob, "default", "j2", &fetched); err != nil {
			return false
		}
		rs, ok := fetched.Status.ReplicaStatus["k1"]
		return ok && rs[types.JobEvicted] == 1
	}, 3*time.Second, 20*time.Millisecond)

	var fetched types.Job
	require.NoError(t, c.Get(ctx, types.KindJob, "default", "j2", &fetched))
	_, stillSubmitted := fetched.Status.JobIDs["k1"]
	require.False(t, stillSubmitted)
}

func TestFlowControllerDeletesBackendJobOnJobDelete(t *testing.T) {
	c := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := &types.Job{
		Kind:     types.KindJob,
		Metadata: types.Meta{Name: "j3", Namespace: "default"},
		Spec:     types.JobSpec{Image: "busybox", Replicas: 1},
		Status: types.JobStatus{
			Status:        types.JobScheduled,
			ReplicaStatus: map[string]types.ReplicaStatus{"k1": {types.JobInit: 1}},
		},
	}
	require.NoError(t, c.Create(ctx, job))

	mem := adapter.NewMemoryAdapter(nil)
	jobs, policies, _ := newTestInformers(c)
	go func() { _ = jobs.Run(ctx) }()
	go func() { _ = policies.Run(ctx) }()

	fc := NewFlowController(c, mem, "k1", jobs, policies)
	go func() { _ = fc.Run(ctx) }()

	require.Eventually(t, func() bool {
		status, err := mem.GetJobsStatus(ctx)
		return err == nil && len(status["j3"]) == 1
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, c.Delete(ctx, types.KindJob, "default", "j3"))

	require.Eventually(t, func() bool {
		status, err := mem.GetJobsStatus(ctx)
		return err == nil && len(status["j3"]) == 0
	}, 3*time.Second, 20*time.Millisecond)
}
