package storage

import (
	"context"
	"testing"
	"time"

	skyerrors "github.com/sky-shift/skyshift-sub001/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *RaftStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewRaftStore(Config{
		NodeID:  "node-1",
		DataDir: dir,
		Bind:    "127.0.0.1:0",
	})
	require.NoError(t, err)
	require.Eventually(t, s.IsLeader, 5*time.Second, 10*time.Millisecond, "store should self-elect as single-node leader")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestVersionMonotonicity covers spec.md §8 property 1: every successful
// write strictly increases resource_version for that key.
func TestVersionMonotonicity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v1, err := s.Write(ctx, "clusters/k1", []byte(`{"a":1}`))
	require.NoError(t, err)
	require.Equal(t, int64(1), v1)

	v2, err := s.Write(ctx, "clusters/k1", []byte(`{"a":2}`))
	require.NoError(t, err)
	require.Greater(t, v2, v1)

	_, readVersion, err := s.Read(ctx, "clusters/k1")
	require.NoError(t, err)
	require.Equal(t, v2, readVersion)
}

// TestCASSafety covers spec.md §8 property 2: of N updaters supplying the same
// expected_version, exactly one succeeds.
func TestCASSafety(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v1, err := s.Write(ctx, "default/jobs/j1", []byte(`{"n":0}`))
	require.NoError(t, err)

	const updaters = 8
	results := make(chan error, updaters)
	for i := 0; i < updaters; i++ {
		go func(i int) {
			_, err := s.Update(ctx, "default/jobs/j1", []byte(`{"n":1}`), &v1)
			results <- err
		}(i)
	}

	successes, conflicts := 0, 0
	for i := 0; i < updaters; i++ {
		err := <-results
		if err == nil {
			successes++
		} else if skyerrors.Is(err, skyerrors.KindConflict) {
			conflicts++
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, updaters-1, conflicts)
}

func TestUpdateNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := int64(1)
	_, err := s.Update(ctx, "clusters/missing", []byte(`{}`), &v)
	require.Error(t, err)
	require.True(t, skyerrors.Is(err, skyerrors.KindNotFound))
}

func TestReadPrefixOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	names := []string{"a", "b", "c"}
	for _, n := range names {
		_, err := s.Write(ctx, "clusters/"+n, []byte(`{}`))
		require.NoError(t, err)
	}

	entries, err := s.ReadPrefix(ctx, "clusters/")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, n := range names {
		require.Equal(t, "clusters/"+n, entries[i].Key)
	}
}

func TestWatchDeliversAddUpdateDelete(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, stop, err := s.Watch(ctx, "clusters/")
	require.NoError(t, err)
	defer stop()

	_, err = s.Write(ctx, "clusters/k1", []byte(`{"rev":1}`))
	require.NoError(t, err)
	_, err = s.Write(ctx, "clusters/k1", []byte(`{"rev":2}`))
	require.NoError(t, err)
	_, _, err = s.Delete(ctx, "clusters/k1")
	require.NoError(t, err)

	var kinds []EventKind
	for i := 0; i < 3; i++ {
		select {
		case ev := <-events:
			kinds = append(kinds, ev.Kind)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for watch event")
		}
	}
	require.Equal(t, []EventKind{EventAdd, EventUpdate, EventDelete}, kinds)
}
