package skylet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sky-shift/skyshift-sub001/pkg/adapter"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// failingAdapter always fails GetClusterStatus, for retry-budget tests.
type failingAdapter struct{ adapter.Adapter }

func (failingAdapter) GetClusterStatus(context.Context) (adapter.ClusterReport, error) {
	return adapter.ClusterReport{}, errors.New("native call failed")
}

func TestClusterControllerReportsCapacity(t *testing.T) {
	c := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cluster := &types.Cluster{
		Kind:     types.KindCluster,
		Metadata: types.Meta{Name: "k1"},
		Spec:     types.ClusterSpec{Manager: "k8s"},
		Status:   types.ClusterStatus{Status: types.ClusterProvisioning},
	}
	require.NoError(t, c.Create(ctx, cluster))

	mem := adapter.NewMemoryAdapter(map[string]types.ResourceList{"n1": {"cpu": 8}})
	cc := NewClusterController(c, mem, "k1", 30*time.Millisecond, 0)
	go func() { _ = cc.Run(ctx) }()

	require.Eventually(t, func() bool {
		var fetched types.Cluster
		if err := c.Get(ctx, types.KindCluster, "", "k1", &fetched); err != nil {
			return false
		}
		return fetched.Status.Status == types.ClusterReady && fetched.Status.Capacity["n1"]["cpu"] == 8
	}, 3*time.Second, 20*time.Millisecond)
}

func TestClusterControllerRecordsConditionOnStatusChange(t *testing.T) {
	c := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cluster := &types.Cluster{
		Kind:     types.KindCluster,
		Metadata: types.Meta{Name: "k1"},
		Spec:     types.ClusterSpec{Manager: "k8s"},
		Status:   types.ClusterStatus{Status: types.ClusterProvisioning},
	}
	require.NoError(t, c.Create(ctx, cluster))

	mem := adapter.NewMemoryAdapter(map[string]types.ResourceList{"n1": {"cpu": 8}})
	cc := NewClusterController(c, mem, "k1", 30*time.Millisecond, 0)
	go func() { _ = cc.Run(ctx) }()

	require.Eventually(t, func() bool {
		var fetched types.Cluster
		if err := c.Get(ctx, types.KindCluster, "", "k1", &fetched); err != nil {
			return false
		}
		for _, cond := range fetched.Status.Conditions {
			if cond.Status == string(types.ClusterReady) {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)
}

func TestClusterControllerMarksErrorAfterRetryBudget(t *testing.T) {
	c := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cluster := &types.Cluster{
		Kind:     types.KindCluster,
		Metadata: types.Meta{Name: "k1"},
		Spec:     types.ClusterSpec{Manager: "k8s"},
		Status:   types.ClusterStatus{Status: types.ClusterReady},
	}
	require.NoError(t, c.Create(ctx, cluster))

	cc := NewClusterController(c, failingAdapter{}, "k1", 20*time.Millisecond, 2)
	go func() { _ = cc.Run(ctx) }()

	require.Eventually(t, func() bool {
		var fetched types.Cluster
		if err := c.Get(ctx, types.KindCluster, "", "k1", &fetched); err != nil {
			return false
		}
		return fetched.Status.Status == types.ClusterError
	}, 3*time.Second, 20*time.Millisecond)

	var fetched types.Cluster
	require.NoError(t, c.Get(ctx, types.KindCluster, "", "k1", &fetched))
	require.NotEmpty(t, fetched.Status.Conditions)
	last := fetched.Status.Conditions[len(fetched.Status.Conditions)-1]
	require.Equal(t, string(types.ClusterError), last.Status)
	require.Equal(t, "AdapterRetryBudgetExhausted", last.Reason)
}
