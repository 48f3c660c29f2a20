package scheduler

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sky-shift/skyshift-sub001/pkg/api"
	"github.com/sky-shift/skyshift-sub001/pkg/client"
	"github.com/sky-shift/skyshift-sub001/pkg/informer"
	"github.com/sky-shift/skyshift-sub001/pkg/storage"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

func newTestEnv(t *testing.T) *client.Client {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewRaftStore(storage.Config{NodeID: "node-1", DataDir: dir, Bind: "127.0.0.1:0"})
	require.NoError(t, err)
	require.Eventually(t, store.IsLeader, 5*time.Second, 10*time.Millisecond)
	srv := api.NewServer(store, nil, nil, nil)
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		_ = store.Close()
	})
	return client.New(ts.URL)
}

func newTestScheduler(t *testing.T, c *client.Client) *Scheduler {
	t.Helper()
	clusters := informer.New(c, types.KindCluster, "", time.Hour)
	jobs := informer.New(c, types.KindJob, "", time.Hour)
	policies := informer.New(c, types.KindFilterPolicy, "", time.Hour)
	return New(c, clusters, jobs, policies)
}

func TestSchedulerAssignsReadyCluster(t *testing.T) {
	c := newTestEnv(t)
	ctx := context.Background()

	cluster := &types.Cluster{
		Kind:     types.KindCluster,
		Metadata: types.Meta{Name: "k1"},
		Spec:     types.ClusterSpec{Manager: "k8s"},
		Status: types.ClusterStatus{
			Status:              types.ClusterReady,
			Capacity:            map[string]types.ResourceList{"n1": {"cpu": 8}},
			AllocatableCapacity: map[string]types.ResourceList{"n1": {"cpu": 8}},
		},
	}
	require.NoError(t, c.Create(ctx, cluster))

	job := &types.Job{
		Kind:     types.KindJob,
		Metadata: types.Meta{Name: "j1", Namespace: "default"},
		Spec:     types.JobSpec{Image: "busybox", Replicas: 1, Resources: types.ResourceList{"cpu": 1}},
		Status:   types.JobStatus{Status: types.JobInit},
	}
	require.NoError(t, c.Create(ctx, job))

	s := newTestScheduler(t, c)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = s.Run(runCtx) }()

	require.Eventually(t, func() bool {
		var fetched types.Job
		if err := c.Get(ctx, types.KindJob, "default", "j1", &fetched); err != nil {
			return false
		}
		return fetched.Status.Status == types.JobScheduled
	}, 3*time.Second, 20*time.Millisecond)

	var fetched types.Job
	require.NoError(t, c.Get(ctx, types.KindJob, "default", "j1", &fetched))
	require.Equal(t, []string{"k1"}, fetched.Status.ScheduledClusters)
	require.Equal(t, types.ReplicaStatus{types.JobInit: 1}, fetched.Status.ReplicaStatus["k1"])
}

func TestSchedulerLeavesJobUnscheduledWhenNoClusterFits(t *testing.T) {
	c := newTestEnv(t)
	ctx := context.Background()

	cluster := &types.Cluster{
		Kind:     types.KindCluster,
		Metadata: types.Meta{Name: "k1"},
		Spec:     types.ClusterSpec{Manager: "k8s"},
		Status: types.ClusterStatus{
			Status:              types.ClusterReady,
			Capacity:            map[string]types.ResourceList{"n1": {"cpu": 1}},
			AllocatableCapacity: map[string]types.ResourceList{"n1": {"cpu": 1}},
		},
	}
	require.NoError(t, c.Create(ctx, cluster))

	job := &types.Job{
		Kind:     types.KindJob,
		Metadata: types.Meta{Name: "j2", Namespace: "default"},
		Spec:     types.JobSpec{Image: "busybox", Replicas: 1, Resources: types.ResourceList{"cpu": 100}},
		Status:   types.JobStatus{Status: types.JobInit},
	}
	require.NoError(t, c.Create(ctx, job))

	s := newTestScheduler(t, c)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = s.Run(runCtx) }()

	require.Never(t, func() bool {
		var fetched types.Job
		if err := c.Get(ctx, types.KindJob, "default", "j2", &fetched); err != nil {
			return false
		}
		return fetched.Status.Status != types.JobInit
	}, 300*time.Millisecond, 20*time.Millisecond)
}

func TestSchedulerTieBreaksByClusterName(t *testing.T) {
	c := newTestEnv(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha"} {
		cluster := &types.Cluster{
			Kind:     types.KindCluster,
			Metadata: types.Meta{Name: name},
			Spec:     types.ClusterSpec{Manager: "k8s"},
			Status: types.ClusterStatus{
				Status:              types.ClusterReady,
				Capacity:            map[string]types.ResourceList{"n1": {"cpu": 8}},
				AllocatableCapacity: map[string]types.ResourceList{"n1": {"cpu": 8}},
			},
		}
		require.NoError(t, c.Create(ctx, cluster))
	}

	job := &types.Job{
		Kind:     types.KindJob,
		Metadata: types.Meta{Name: "j3", Namespace: "default"},
		Spec:     types.JobSpec{Image: "busybox", Replicas: 1, Resources: types.ResourceList{"cpu": 1}},
		Status:   types.JobStatus{Status: types.JobInit},
	}
	require.NoError(t, c.Create(ctx, job))

	s := newTestScheduler(t, c)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = s.Run(runCtx) }()

	require.Eventually(t, func() bool {
		var fetched types.Job
		if err := c.Get(ctx, types.KindJob, "default", "j3", &fetched); err != nil {
			return false
		}
		return fetched.Status.Status == types.JobScheduled
	}, 3*time.Second, 20*time.Millisecond)

	var fetched types.Job
	require.NoError(t, c.Get(ctx, types.KindJob, "default", "j3", &fetched))
	require.Equal(t, []string{"alpha"}, fetched.Status.ScheduledClusters)
}
