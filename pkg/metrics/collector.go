package metrics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sky-shift/skyshift-sub001/pkg/registry"
	"github.com/sky-shift/skyshift-sub001/pkg/storage"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

// leaderReporter is the optional capability a Store may offer to expose Raft
// leadership; only storage.RaftStore implements it. Polled the same way
// pkg/adapter probes EndpointsAdapter: a type assertion, never a hard
// dependency on the concrete store implementation.
type leaderReporter interface {
	IsLeader() bool
}

// Collector periodically samples the object store and publishes gauge
// metrics, replacing the teacher's manager-field walk (pkg/manager's
// MetricsCollector) with a poll over the generic Store the control plane
// actually persists into (spec.md §4.1).
type Collector struct {
	store    storage.Store
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector over store.
func NewCollector(store storage.Store, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		store:    store,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics on a ticker.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ctx := context.Background()
	c.collectObjectCounts(ctx)
	c.collectClusterStatuses(ctx)
	c.collectJobStatuses(ctx)
	c.collectRaftLeader()
}

// collectObjectCounts reports the number of persisted objects per kind:
// every object of a cluster-scoped kind, and for namespaced kinds only the
// objects in the "default" namespace.
func (c *Collector) collectObjectCounts(ctx context.Context) {
	for _, kind := range registry.Kinds() {
		desc := registry.MustLookup(kind)
		ns := ""
		if desc.Namespaced {
			ns = "default"
		}
		entries, err := c.store.ReadPrefix(ctx, desc.Prefix(ns))
		if err != nil {
			continue
		}
		ObjectsTotal.WithLabelValues(string(kind)).Set(float64(len(entries)))
	}
}

func (c *Collector) collectClusterStatuses(ctx context.Context) {
	desc := registry.MustLookup(types.KindCluster)
	entries, err := c.store.ReadPrefix(ctx, desc.Prefix(""))
	if err != nil {
		return
	}

	counts := make(map[types.ClusterStatusPhase]int)
	for _, e := range entries {
		var cluster types.Cluster
		if err := json.Unmarshal(e.Value, &cluster); err != nil {
			continue
		}
		counts[cluster.Status.Status]++
	}
	for status, n := range counts {
		ClustersTotal.WithLabelValues(string(status)).Set(float64(n))
	}
}

func (c *Collector) collectJobStatuses(ctx context.Context) {
	desc := registry.MustLookup(types.KindJob)
	entries, err := c.store.ReadPrefix(ctx, desc.Prefix("default"))
	if err != nil {
		return
	}

	counts := make(map[types.JobStatusPhase]int)
	for _, e := range entries {
		var job types.Job
		if err := json.Unmarshal(e.Value, &job); err != nil {
			continue
		}
		counts[job.Status.Status]++
	}
	for status, n := range counts {
		JobsTotal.WithLabelValues(string(status)).Set(float64(n))
	}
}

func (c *Collector) collectRaftLeader() {
	lr, ok := c.store.(leaderReporter)
	if !ok {
		return
	}
	if lr.IsLeader() {
		RaftLeader.Set(1)
	} else {
		RaftLeader.Set(0)
	}
}
