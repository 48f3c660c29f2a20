package client_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sky-shift/skyshift-sub001/pkg/api"
	"github.com/sky-shift/skyshift-sub001/pkg/client"
	"github.com/sky-shift/skyshift-sub001/pkg/storage"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

func newTestServer(t *testing.T) (*httptest.Server, *storage.RaftStore) {
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
	return ts, store
}

func TestClientCreateGetUpdateDelete(t *testing.T) {
	ts, _ := newTestServer(t)
	c := client.New(ts.URL)
	ctx := context.Background()

	cl := &types.Cluster{
		Kind:     types.KindCluster,
		Metadata: types.Meta{Name: "cluster-a"},
		Spec:     types.ClusterSpec{Manager: "k8s"},
	}
	require.NoError(t, c.Create(ctx, cl))
	require.Equal(t, int64(1), cl.Metadata.ResourceVersion)

	var fetched types.Cluster
	require.NoError(t, c.Get(ctx, types.KindCluster, "", "cluster-a", &fetched))
	require.Equal(t, "cluster-a", fetched.Metadata.Name)

	fetched.Spec.Manager = "slurm"
	require.NoError(t, c.Update(ctx, &fetched))
	require.Equal(t, int64(2), fetched.Metadata.ResourceVersion)

	require.NoError(t, c.Delete(ctx, types.KindCluster, "", "cluster-a"))

	var missing types.Cluster
	err := c.Get(ctx, types.KindCluster, "", "cluster-a", &missing)
	require.Error(t, err)
}

func TestClientList(t *testing.T) {
	ts, _ := newTestServer(t)
	c := client.New(ts.URL)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		cl := &types.Cluster{Kind: types.KindCluster, Metadata: types.Meta{Name: name}, Spec: types.ClusterSpec{Manager: "k8s"}}
		require.NoError(t, c.Create(ctx, cl))
	}

	items, err := c.List(ctx, types.KindCluster, "")
	require.NoError(t, err)
	require.Len(t, items, 3)
}

func TestWatcherReceivesEvents(t *testing.T) {
	ts, _ := newTestServer(t)
	c := client.New(ts.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := c.Watch(types.KindCluster, "").Run(ctx)

	time.Sleep(50 * time.Millisecond)
	cl := &types.Cluster{Kind: types.KindCluster, Metadata: types.Meta{Name: "watched"}, Spec: types.ClusterSpec{Manager: "k8s"}}
	require.NoError(t, c.Create(context.Background(), cl))

	select {
	case ev := <-events:
		require.Equal(t, "ADD", ev.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}
