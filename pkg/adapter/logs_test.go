package adapter

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sky-shift/skyshift-sub001/pkg/storage"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewRaftStore(storage.Config{NodeID: "node-1", DataDir: dir, Bind: "127.0.0.1:0"})
	require.NoError(t, err)
	require.Eventually(t, store.IsLeader, 5*time.Second, 10*time.Millisecond)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLogProxyFetchesFromScheduledClusterAdapter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := types.Job{
		Kind:     types.KindJob,
		Metadata: types.Meta{Name: "j1", Namespace: "default"},
		Status:   types.JobStatus{Status: types.JobScheduled, ScheduledClusters: []string{"k1"}},
	}
	value, err := json.Marshal(job)
	require.NoError(t, err)
	_, err = store.Write(ctx, "default/jobs/j1", value)
	require.NoError(t, err)

	reg := NewClusterRegistry()
	mem := NewMemoryAdapter(nil)
	mem.SetLogs("j1", []string{"hello", "world"})
	reg.Set("k1", mem)

	proxy := NewLogProxy(store, reg)
	logs, err := proxy.GetJobLogs(ctx, "default", "j1")
	require.NoError(t, err)
	require.Equal(t, "hello\nworld", logs)
}

func TestLogProxyUnscheduledJobIsNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := types.Job{Kind: types.KindJob, Metadata: types.Meta{Name: "j2", Namespace: "default"}}
	value, err := json.Marshal(job)
	require.NoError(t, err)
	_, err = store.Write(ctx, "default/jobs/j2", value)
	require.NoError(t, err)

	proxy := NewLogProxy(store, NewClusterRegistry())
	_, err = proxy.GetJobLogs(ctx, "default", "j2")
	require.Error(t, err)
}
