package skylet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// fakeEndpointsAdapter is a minimal EndpointsAdapter for testing the
// EndpointsController without a real mesh-capable backend.
type fakeEndpointsAdapter struct {
	sliceCounts map[string]int
}

func newFakeEndpointsAdapter() *fakeEndpointsAdapter {
	return &fakeEndpointsAdapter{sliceCounts: make(map[string]int)}
}

func (f *fakeEndpointsAdapter) SupportsEndpoints() bool { return true }

func (f *fakeEndpointsAdapter) CreateOrUpdateService(context.Context, *types.Service) error {
	return nil
}

func (f *fakeEndpointsAdapter) DeleteService(context.Context, string, string) error { return nil }

func (f *fakeEndpointsAdapter) CreateEndpointSlice(_ context.Context, namespace, name string, numEndpoints int) error {
	f.sliceCounts[namespace+"/"+name] = numEndpoints
	return nil
}

func (f *fakeEndpointsAdapter) DeleteEndpointSlice(context.Context, string, string) error { return nil }

func TestEndpointsControllerCountsRunningReplicas(t *testing.T) {
	c := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := &types.Service{
		Kind:     types.KindService,
		Metadata: types.Meta{Name: "web", Namespace: "default"},
		Spec:     types.ServiceSpec{Selector: map[string]string{"app": "web"}, Type: types.ServiceTypeClusterIP},
	}
	require.NoError(t, c.Create(ctx, svc))

	job := &types.Job{
		Kind:     types.KindJob,
		Metadata: types.Meta{Name: "j1", Namespace: "default"},
		Spec:     types.JobSpec{Image: "busybox", Replicas: 3, Labels: map[string]string{"app": "web"}},
		Status: types.JobStatus{
			Status:        types.JobRunning,
			ReplicaStatus: map[string]types.ReplicaStatus{"k1": {types.JobRunning: 3}},
		},
	}
	require.NoError(t, c.Create(ctx, job))

	jobs, _, services := newTestInformers(c)
	go func() { _ = jobs.Run(ctx) }()
	go func() { _ = services.Run(ctx) }()

	fake := newFakeEndpointsAdapter()
	ec := NewEndpointsController(c, fake, "k1", jobs, services, 30*time.Millisecond)
	go func() { _ = ec.Run(ctx) }()

	require.Eventually(t, func() bool {
		var ep types.Endpoints
		if err := c.Get(ctx, types.KindEndpoints, "default", "web", &ep); err != nil {
			return false
		}
		return ep.Status.NumEndpoints["k1"] == 3
	}, 3*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return fake.sliceCounts["default/web"] == 3
	}, 3*time.Second, 20*time.Millisecond)
}
