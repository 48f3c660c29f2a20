package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

func TestMemoryAdapterSubmitIsIdempotent(t *testing.T) {
	a := NewMemoryAdapter(nil)
	ctx := context.Background()
	job := &types.Job{Metadata: types.Meta{Name: "j1"}, Spec: types.JobSpec{Replicas: 2}}

	id1, err := a.SubmitJob(ctx, job)
	require.NoError(t, err)
	id2, err := a.SubmitJob(ctx, job)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	status, err := a.GetJobsStatus(ctx)
	require.NoError(t, err)
	require.Len(t, status["j1"], 2)
}

func TestMemoryAdapterDeleteIsIdempotent(t *testing.T) {
	a := NewMemoryAdapter(nil)
	ctx := context.Background()
	job := &types.Job{Metadata: types.Meta{Name: "j1"}, Spec: types.JobSpec{Replicas: 1}}

	_, err := a.SubmitJob(ctx, job)
	require.NoError(t, err)
	require.NoError(t, a.DeleteJob(ctx, job))
	require.NoError(t, a.DeleteJob(ctx, job)) // idempotent, no error on re-delete

	status, err := a.GetJobsStatus(ctx)
	require.NoError(t, err)
	require.NotContains(t, status, "j1")
}

func TestMemoryAdapterResubmitAfterDeleteCreatesNewJob(t *testing.T) {
	a := NewMemoryAdapter(nil)
	ctx := context.Background()
	job := &types.Job{Metadata: types.Meta{Name: "j1"}, Spec: types.JobSpec{Replicas: 1}}

	id1, err := a.SubmitJob(ctx, job)
	require.NoError(t, err)
	require.NoError(t, a.DeleteJob(ctx, job))

	id2, err := a.SubmitJob(ctx, job)
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
}

func TestMemoryAdapterClusterStatus(t *testing.T) {
	cap := map[string]types.ResourceList{"n1": {"cpu": 8}}
	a := NewMemoryAdapter(cap)

	report, err := a.GetClusterStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.ClusterReady, report.Status)
	require.Equal(t, cap, report.Capacity)
	require.Equal(t, cap, report.AllocatableCapacity)

	a.SetStatus(types.ClusterError)
	report, err = a.GetClusterStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.ClusterError, report.Status)
}

func TestMemoryAdapterLogs(t *testing.T) {
	a := NewMemoryAdapter(nil)
	job := &types.Job{Metadata: types.Meta{Name: "j1"}}

	_, err := a.GetJobLogs(context.Background(), job)
	require.Error(t, err)

	a.SetLogs("j1", []string{"line one", "line two"})
	lines, err := a.GetJobLogs(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, []string{"line one", "line two"}, lines)
}
