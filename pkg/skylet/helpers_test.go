package skylet

import (
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

func newTestInformers(c *client.Client) (jobs, policies, services *informer.Informer) {
	return informer.New(c, types.KindJob, "", time.Hour),
		informer.New(c, types.KindFilterPolicy, "", time.Hour),
		informer.New(c, types.KindService, "", time.Hour)
}
