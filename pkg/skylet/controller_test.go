package skylet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sky-shift/skyshift-sub001/pkg/adapter"
	"github.com/sky-shift/skyshift-sub001/pkg/informer"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

func TestSkyletControllerForksAndJoinsSupervisors(t *testing.T) {
	c := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clusters := informer.New(c, types.KindCluster, "", time.Hour)
	jobs, policies, services := newTestInformers(c)
	reg := adapter.NewClusterRegistry()

	factory := func(*types.Cluster) (adapter.Adapter, error) {
		return adapter.NewMemoryAdapter(map[string]types.ResourceList{"n1": {"cpu": 4}}), nil
	}

	sc := NewSkyletController(c, clusters, jobs, policies, services, factory, reg)
	go func() { _ = sc.Run(ctx) }()

	cluster := &types.Cluster{
		Kind:     types.KindCluster,
		Metadata: types.Meta{Name: "k1"},
		Spec:     types.ClusterSpec{Manager: "k8s"},
		Status:   types.ClusterStatus{Status: types.ClusterReady},
	}
	require.NoError(t, c.Create(ctx, cluster))

	require.Eventually(t, func() bool {
		_, ok := reg.Get("k1")
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, c.Delete(ctx, types.KindCluster, "", "k1"))

	require.Eventually(t, func() bool {
		_, ok := reg.Get("k1")
		return !ok
	}, 3*time.Second, 20*time.Millisecond)
}

// TestSkyletControllerCascadesClusterDeleteToJobs covers spec.md §8 scenario
// S6: deleting a cluster a Job is scheduled on must strip the cluster from
// the Job's scheduled_clusters/replica_status/job_ids and reset it to INIT
// so the Scheduler reschedules it, rather than leaving stale references.
func TestSkyletControllerCascadesClusterDeleteToJobs(t *testing.T) {
	c := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clusters := informer.New(c, types.KindCluster, "", time.Hour)
	jobs, policies, services := newTestInformers(c)
	reg := adapter.NewClusterRegistry()

	factory := func(*types.Cluster) (adapter.Adapter, error) {
		return adapter.NewMemoryAdapter(map[string]types.ResourceList{"n1": {"cpu": 4}}), nil
	}

	sc := NewSkyletController(c, clusters, jobs, policies, services, factory, reg)
	go func() { _ = sc.Run(ctx) }()

	cluster := &types.Cluster{
		Kind:     types.KindCluster,
		Metadata: types.Meta{Name: "k1"},
		Spec:     types.ClusterSpec{Manager: "k8s"},
		Status:   types.ClusterStatus{Status: types.ClusterReady},
	}
	require.NoError(t, c.Create(ctx, cluster))

	require.Eventually(t, func() bool {
		_, ok := reg.Get("k1")
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	job := &types.Job{
		Kind:     types.KindJob,
		Metadata: types.Meta{Name: "j1", Namespace: "default"},
		Spec:     types.JobSpec{Image: "busybox", Replicas: 1},
		Status: types.JobStatus{
			Status:            types.JobRunning,
			ScheduledClusters: []string{"k1"},
			ReplicaStatus:     map[string]types.ReplicaStatus{"k1": {types.JobRunning: 1}},
			JobIDs:            map[string]string{"k1": "manager-job-1"},
		},
	}
	require.NoError(t, c.Create(ctx, job))

	require.NoError(t, c.Delete(ctx, types.KindCluster, "", "k1"))

	require.Eventually(t, func() bool {
		var fetched types.Job
		if err := c.Get(ctx, types.KindJob, "default", "j1", &fetched); err != nil {
			return false
		}
		return fetched.Status.Status == types.JobInit && len(fetched.Status.ScheduledClusters) == 0
	}, 3*time.Second, 20*time.Millisecond)

	var fetched types.Job
	require.NoError(t, c.Get(ctx, types.KindJob, "default", "j1", &fetched))
	require.NotContains(t, fetched.Status.ReplicaStatus, "k1")
	require.NotContains(t, fetched.Status.JobIDs, "k1")
}
